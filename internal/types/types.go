// Package types implements the Sushi type representation: a closed sum
// of variants compared structurally except
// for named nominal types, which compare by name plus structural equality
// of their parameters. This package intentionally has no dependency on
// internal/ast — it models values, not syntax — so internal/ast can carry
// a Type on every expression node without an import cycle; the symbol
// tables and semantic passes that relate Type values to AST nodes live in
// internal/sema.
package types

import (
	"fmt"
	"strings"
)

// Type is implemented by every type-system variant in
type Type interface {
	String() string
	isType()
}

// BuiltinKind enumerates the primitive kinds.
type BuiltinKind string

const (
	I8     BuiltinKind = "i8"
	I16    BuiltinKind = "i16"
	I32    BuiltinKind = "i32"
	I64    BuiltinKind = "i64"
	U8     BuiltinKind = "u8"
	U16    BuiltinKind = "u16"
	U32    BuiltinKind = "u32"
	U64    BuiltinKind = "u64"
	F32    BuiltinKind = "f32"
	F64    BuiltinKind = "f64"
	Bool   BuiltinKind = "bool"
	String BuiltinKind = "string"
	Blank  BuiltinKind = "~" // unit type
	Stdin  BuiltinKind = "stdin"
	Stdout BuiltinKind = "stdout"
	Stderr BuiltinKind = "stderr"
	File   BuiltinKind = "file"
)

// IsInteger reports whether kind is one of the sized integer kinds.
func (k BuiltinKind) IsInteger() bool {
	switch k {
	case I8, I16, I32, I64, U8, U16, U32, U64:
		return true
	}
	return false
}

// IsUnsigned reports whether kind is an unsigned integer kind.
func (k BuiltinKind) IsUnsigned() bool {
	switch k {
	case U8, U16, U32, U64:
		return true
	}
	return false
}

// IsFloat reports whether kind is f32 or f64.
func (k BuiltinKind) IsFloat() bool {
	return k == F32 || k == F64
}

// BitWidth returns the integer/float/bool bit width, or 0 if not applicable.
func (k BuiltinKind) BitWidth() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	case Bool:
		return 1
	}
	return 0
}

// Builtin is a primitive type.
type Builtin struct{ Kind BuiltinKind }

func (b *Builtin) String() string { return string(b.Kind) }
func (*Builtin) isType()          {}

var (
	TypeI8     = &Builtin{Kind: I8}
	TypeI16    = &Builtin{Kind: I16}
	TypeI32    = &Builtin{Kind: I32}
	TypeI64    = &Builtin{Kind: I64}
	TypeU8     = &Builtin{Kind: U8}
	TypeU16    = &Builtin{Kind: U16}
	TypeU32    = &Builtin{Kind: U32}
	TypeU64    = &Builtin{Kind: U64}
	TypeF32    = &Builtin{Kind: F32}
	TypeF64    = &Builtin{Kind: F64}
	TypeBool   = &Builtin{Kind: Bool}
	TypeString = &Builtin{Kind: String}
	TypeBlank  = &Builtin{Kind: Blank}
	TypeStdin  = &Builtin{Kind: Stdin}
	TypeStdout = &Builtin{Kind: Stdout}
	TypeStderr = &Builtin{Kind: Stderr}
	TypeFile   = &Builtin{Kind: File}
)

// Array is a fixed-size, stack-resident array.
type Array struct {
	Base Type
	Size uint32
}

func (a *Array) String() string { return fmt.Sprintf("%s[%d]", a.Base, a.Size) }
func (*Array) isType()          {}

// DynArray is a heap-resident growable array { len, cap, data }.
type DynArray struct{ Base Type }

func (a *DynArray) String() string { return a.Base.String() + "[]" }
func (*DynArray) isType()          {}

// StructField is one field of a Struct, in layout order.
type StructField struct {
	Name string
	Type Type
}

// Struct is a nominal product type. GenericBase/GenericArgs are populated
// iff Name contains `<...>` (invariant U2).
type Struct struct {
	Name        string
	Fields      []StructField
	GenericBase string
	GenericArgs []Type
}

func (s *Struct) String() string { return s.Name }
func (*Struct) isType()          {}

// FieldIndex returns the layout index of name, or -1.
func (s *Struct) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// EnumVariant is one tagged-union arm, in declaration order.
type EnumVariant struct {
	Name       string
	Associated []Type
}

// Enum is a tagged union.
type Enum struct {
	Name        string
	Variants    []EnumVariant
	GenericBase string
	GenericArgs []Type
}

func (e *Enum) String() string { return e.Name }
func (*Enum) isType()          {}

// VariantIndex returns the 0-based declaration index of name, or -1.
func (e *Enum) VariantIndex(name string) int {
	for i, v := range e.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Variant looks up a variant by name.
func (e *Enum) Variant(name string) (EnumVariant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return EnumVariant{}, false
}

// BorrowMode distinguishes immutable (Peek) from exclusive (Poke) borrows.
type BorrowMode int

const (
	Peek BorrowMode = iota
	Poke
)

func (m BorrowMode) String() string {
	if m == Poke {
		return "poke"
	}
	return "peek"
}

// Reference is a non-owning borrow; compiles to a pointer.
type Reference struct {
	Inner Type
	Mode  BorrowMode
}

func (r *Reference) String() string { return "&" + r.Mode.String() + " " + r.Inner.String() }
func (*Reference) isType()          {}

// Pointer is an owned heap pointer, internal to Own<T>.
type Pointer struct{ Pointee Type }

func (p *Pointer) String() string { return "*" + p.Pointee.String() }
func (*Pointer) isType()          {}

// Iterator is the value produced by range/foreach lowering. The static
// type does not distinguish range from stream iterators; codegen builds
// only range iterators.
type Iterator struct{ Element Type }

func (it *Iterator) String() string { return "Iterator<" + it.Element.String() + ">" }
func (*Iterator) isType()           {}

// Result is sugar for Enum("Result<ok, err>", [Ok(ok), Err(err)]).
type Result struct {
	Ok  Type
	Err Type
}

func (r *Result) String() string { return fmt.Sprintf("Result<%s, %s>", r.Ok, r.Err) }
func (*Result) isType()          {}

// AsEnum lowers a Result sugar type to its concrete tagged-union shape.
func (r *Result) AsEnum() *Enum {
	return &Enum{
		Name:        fmt.Sprintf("Result<%s, %s>", r.Ok, r.Err),
		GenericBase: "Result",
		GenericArgs: []Type{r.Ok, r.Err},
		Variants: []EnumVariant{
			{Name: "Ok", Associated: []Type{r.Ok}},
			{Name: "Err", Associated: []Type{r.Err}},
		},
	}
}

// GenericTypeRef is an unresolved reference to a generic instantiation,
// e.g. `Maybe<i32>` before the monomorphizer has produced the concrete
// entry. Must not reach the emitter (invariant U1).
type GenericTypeRef struct {
	Base string
	Args []Type
}

func (g *GenericTypeRef) String() string {
	parts := make([]string, len(g.Args))
	for i, a := range g.Args {
		parts[i] = a.String()
	}
	return g.Base + "<" + strings.Join(parts, ", ") + ">"
}
func (*GenericTypeRef) isType() {}

// MangledName builds the canonical `Base<arg0, arg1, ...>` name used as a
// monomorphization cache key.
func MangledName(base string, args []Type) string {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}

// TypeParameter is a placeholder inside a generic definition; must be
// substituted before the emitter sees it (invariant U1).
type TypeParameter struct{ Name string }

func (t *TypeParameter) String() string { return t.Name }
func (*TypeParameter) isType()          {}

// Unknown is a forward reference from the parser; must resolve to a
// Struct, Enum, or generic form before IR emission (invariant U1).
type Unknown struct{ Name string }

func (u *Unknown) String() string { return u.Name }
func (*Unknown) isType()          {}

// Equal compares two types structurally, except named nominal types
// (Struct/Enum), which compare by name plus structural equality of their
// generic arguments.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch at := a.(type) {
	case *Builtin:
		bt, ok := b.(*Builtin)
		return ok && at.Kind == bt.Kind
	case *Array:
		bt, ok := b.(*Array)
		return ok && at.Size == bt.Size && Equal(at.Base, bt.Base)
	case *DynArray:
		bt, ok := b.(*DynArray)
		return ok && Equal(at.Base, bt.Base)
	case *Struct:
		bt, ok := b.(*Struct)
		return ok && at.Name == bt.Name && equalArgs(at.GenericArgs, bt.GenericArgs)
	case *Enum:
		bt, ok := b.(*Enum)
		return ok && at.Name == bt.Name && equalArgs(at.GenericArgs, bt.GenericArgs)
	case *Reference:
		bt, ok := b.(*Reference)
		return ok && at.Mode == bt.Mode && Equal(at.Inner, bt.Inner)
	case *Pointer:
		bt, ok := b.(*Pointer)
		return ok && Equal(at.Pointee, bt.Pointee)
	case *Iterator:
		bt, ok := b.(*Iterator)
		return ok && Equal(at.Element, bt.Element)
	case *Result:
		bt, ok := b.(*Result)
		return ok && Equal(at.Ok, bt.Ok) && Equal(at.Err, bt.Err)
	case *GenericTypeRef:
		bt, ok := b.(*GenericTypeRef)
		return ok && at.Base == bt.Base && equalArgs(at.Args, bt.Args)
	case *TypeParameter:
		bt, ok := b.(*TypeParameter)
		return ok && at.Name == bt.Name
	case *Unknown:
		bt, ok := b.(*Unknown)
		return ok && at.Name == bt.Name
	}
	return false
}

func equalArgs(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// NeedsCleanup reports whether a value of type t owns heap memory
// transitively and therefore requires a destructor.
// The predicate gates all descent in the destructor engine.
func NeedsCleanup(t Type) bool {
	return needsCleanup(t, map[string]bool{})
}

func needsCleanup(t Type, visiting map[string]bool) bool {
	switch tt := t.(type) {
	case *DynArray:
		return true
	case *Pointer:
		return true
	case *Struct:
		if tt.GenericBase == "Own" {
			return true
		}
		if visiting[tt.Name] {
			return false
		}
		visiting[tt.Name] = true
		for _, f := range tt.Fields {
			if needsCleanup(f.Type, visiting) {
				return true
			}
		}
		return false
	case *Enum:
		if visiting[tt.Name] {
			return false
		}
		visiting[tt.Name] = true
		for _, v := range tt.Variants {
			for _, a := range v.Associated {
				if needsCleanup(a, visiting) {
					return true
				}
			}
		}
		return false
	case *Result:
		return needsCleanup(tt.Ok, visiting) || needsCleanup(tt.Err, visiting)
	case *Array:
		return needsCleanup(tt.Base, visiting)
	default:
		return false
	}
}
