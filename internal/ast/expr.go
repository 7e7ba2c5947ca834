package ast

import (
	"github.com/sushi-lang/sushi/internal/lexer"
	"github.com/sushi-lang/sushi/internal/types"
)

// IntLit is an integer literal. Its type (exprBase's inferred type, via
// SetType) is set by the checker once the
// expected/contextual type is known (defaults to i32
// boundary behavior: literals are bounds-checked against the inferred
// width).
type IntLit struct {
	exprBase
	Value int64
	Raw   string
}

// FloatLit is a floating point literal.
type FloatLit struct {
	exprBase
	Value float64
}

// BoolLit is `true`/`false`.
type BoolLit struct {
	exprBase
	Value bool
}

// StringLit is a non-interpolated string literal.
type StringLit struct {
	exprBase
	Value string
}

// InterpPiece is one piece of an interpolated string: either a literal
// text run or a parsed sub-expression.
type InterpPiece struct {
	Literal string
	Expr    Expr // nil for a literal-text piece
}

// InterpolatedString is `"... {expr} ..."`. Each Expr piece must have a
// type convertible to string.
type InterpolatedString struct {
	exprBase
	Pieces []InterpPiece
}

// Name is a bare identifier reference.
type Name struct {
	exprBase
	Ident string
}

// BinOp enumerates binary operators.
type BinOp string

const (
	OpAdd    BinOp = "+"
	OpSub    BinOp = "-"
	OpMul    BinOp = "*"
	OpDiv    BinOp = "/"
	OpMod    BinOp = "%"
	OpLt     BinOp = "<"
	OpLe     BinOp = "<="
	OpGt     BinOp = ">"
	OpGe     BinOp = ">="
	OpEq     BinOp = "=="
	OpNeq    BinOp = "!="
	OpAnd    BinOp = "and"
	OpOr     BinOp = "or"
	OpXor    BinOp = "xor"
	OpShl    BinOp = "<<"
	OpShr    BinOp = ">>"
	OpBitAnd BinOp = "&"
	OpBitOr  BinOp = "|"
)

// BinaryOp is `lhs op rhs`.
type BinaryOp struct {
	exprBase
	Op    BinOp
	Left  Expr
	Right Expr
}

// UnaryOp is a prefix operator (`-x`, `not x`).
type UnaryOp struct {
	exprBase
	Op   string
	Expr Expr
}

// Call is a direct function call `callee(args...)`. If callee names a
// struct or enum it is re-dispatched during validation to a
// StructConstructor/EnumConstructor node; see
type Call struct {
	exprBase
	Callee string
	Args   []Expr
	// MangledCallee is set by the monomorphizer (C5) when Callee refers to
	// a generic function; the emitter always uses this name if non-empty.
	MangledCallee string
}

// NamedArg is a `name: value` constructor argument.
type NamedArg struct {
	Name  string
	Value Expr
}

// StructConstructor builds a struct value: `Bag(items: from(["x"]))`.
type StructConstructor struct {
	exprBase
	Name    string
	Args    []NamedArg
	// Resolved is set by the checker once the constructor's target type is known.
	Resolved *types.Struct
}

// EnumConstructor builds a tagged-union value: `Result.Ok(x)`,
// `Maybe.Some(x)`. EnumName may be a generic base (e.g. "Maybe") when
// written without explicit type arguments; Resolved carries the concrete
// monomorph once known.
type EnumConstructor struct {
	exprBase
	EnumName    string
	Variant     string
	Args        []Expr
	Resolved    *types.Enum
}

// MethodCall is `receiver.method(args...)`.
type MethodCall struct {
	exprBase
	Receiver Expr
	Method   string
	Args     []Expr
	// InferredReturn is set by the checker.
	InferredReturn types.Type
}

// DotCall is `X.Y(args)` before disambiguation between a method call and
// an enum constructor; the checker rewrites it into one of the two.
type DotCall struct {
	exprBase
	Base   Expr
	Name   string
	Args   []Expr
}

// MemberAccess is `expr.field`.
type MemberAccess struct {
	exprBase
	Base  Expr
	Field string
}

// IndexAccess is `expr[index]`.
type IndexAccess struct {
	exprBase
	Base  Expr
	Index Expr
}

// ArrayLiteral is `[e0, e1, ...]`.
type ArrayLiteral struct {
	exprBase
	Elems []Expr
}

// DynamicArrayNew is `new(T, n)`-style heap array allocation sized at
// runtime (all elements zero-initialized).
type DynamicArrayNew struct {
	exprBase
	ElemType TypeExpr
	Size     Expr
}

// DynamicArrayFrom is `from([...])` — promotes a fixed array literal to a
// heap-resident DynArray.
type DynamicArrayFrom struct {
	exprBase
	Elems []Expr
}

// CastExpr is `expr as T`.
type CastExpr struct {
	exprBase
	Value  Expr
	Target TypeExpr
}

// RangeExpr is `start..end` or `start..=end`.
type RangeExpr struct {
	exprBase
	Start     Expr
	End       Expr
	Inclusive bool
}

// TryExpr is the `??` early-return operator. The checker populates every
// Inferred* field so the emitter never re-derives them.
type TryExpr struct {
	exprBase
	Inner Expr

	InferredInner       types.Type
	InferredUnwrapped   types.Type
	InferredSuccessTag  int
	InferredErrorType   types.Type
	InferredFuncReturn  types.Type
}

// Borrow is `&peek expr` / `&poke expr`.
type Borrow struct {
	exprBase
	Value Expr
	Poke  bool
}

// helper constructors keep call sites short.
func NewName(ident string, sp lexer.Span) *Name { return &Name{exprBase: exprBase{Sp: sp}, Ident: ident} }
