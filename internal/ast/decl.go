package ast

import "github.com/sushi-lang/sushi/internal/lexer"

type declBase struct{ Sp lexer.Span }

func (d *declBase) Span() lexer.Span { return d.Sp }
func (*declBase) declNode()          {}

// Param is one function parameter: `<Type> <name>`.
type Param struct {
	Type TypeExpr
	Name string
}

// FuncDecl is a function or generic-function-template declaration.
// Functions implicitly return Result<T,E> unless ExplicitNoResult is set
//; ReturnType is the payload type T (or a ResultTypeExpr
// `T | E` spelling out a non-default error type).
type FuncDecl struct {
	declBase
	Name             string
	TypeParams       []string
	Params           []Param
	ReturnType       TypeExpr // nil means blank/~
	Body             []Stmt
	Visibility       string // "pub" or ""
	IsStdlib         bool
	IsLibrary        bool
	// ReceiverType is non-nil for an extension method body parsed as part
	// of an `extend T [with Perk]: ...` block.
	ReceiverType TypeExpr
}

// IsGeneric reports whether this declaration is a generic template.
func (f *FuncDecl) IsGeneric() bool { return len(f.TypeParams) > 0 }

// StructField is one parsed struct field.
type StructFieldDecl struct {
	Name string
	Type TypeExpr
}

// StructDecl declares a (possibly generic) struct.
type StructDecl struct {
	declBase
	Name       string
	TypeParams []string
	Fields     []StructFieldDecl
}

// EnumVariantDecl is one parsed enum variant with its associated types.
type EnumVariantDecl struct {
	Name       string
	Associated []TypeExpr
}

// EnumDecl declares a (possibly generic) tagged union.
type EnumDecl struct {
	declBase
	Name       string
	TypeParams []string
	Variants   []EnumVariantDecl
}

// ConstDecl declares a compile-time constant.
type ConstDecl struct {
	declBase
	Name string
	Type TypeExpr
	Init Expr
}

// PerkDecl declares a trait ("perk"): a set of required method
// signatures.
type PerkDecl struct {
	declBase
	Name    string
	Methods []FuncDecl
}

// ExtendDecl is `extend T [with Perk]: method*` — either an extension
// method block (no perk) or a perk implementation for T.
type ExtendDecl struct {
	declBase
	Target  TypeExpr
	Perk    string // "" for a plain extension block
	Methods []*FuncDecl
}
