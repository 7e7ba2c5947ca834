package ast

import "github.com/sushi-lang/sushi/internal/lexer"

// typeExprBase gives every TypeExpr its span.
type typeExprBase struct{ Sp lexer.Span }

func (t *typeExprBase) Span() lexer.Span { return t.Sp }
func (*typeExprBase) typeNode()          {}

// BuiltinTypeExpr names a primitive type token (i8..u64, f32, f64, bool,
// string, ~).
type BuiltinTypeExpr struct {
	typeExprBase
	Name string
}

// NamedTypeExpr refers to a struct/enum by name; resolved to Struct/Enum
// or left as Unknown by the checker if the name never resolves.
type NamedTypeExpr struct {
	typeExprBase
	Name string
}

// ArrayTypeExpr is `T[N]` — a fixed-size array.
type ArrayTypeExpr struct {
	typeExprBase
	Elem TypeExpr
	Size uint32
}

// DynArrayTypeExpr is `T[]` — a dynamic array.
type DynArrayTypeExpr struct {
	typeExprBase
	Elem TypeExpr
}

// RefTypeExpr is `&peek T` or `&poke T`.
type RefTypeExpr struct {
	typeExprBase
	Inner TypeExpr
	Poke  bool
}

// GenericTypeExpr is `G<T1, T2, ...>`.
type GenericTypeExpr struct {
	typeExprBase
	Base string
	Args []TypeExpr
}

// ResultTypeExpr is the implicit-error sugar `T | E`.
type ResultTypeExpr struct {
	typeExprBase
	Ok  TypeExpr
	Err TypeExpr
}
