package sema

import (
	"fmt"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// ConstValue is the result of evaluating a const initializer: exactly one
// of the fields is meaningful, discriminated by Kind.
type ConstValue struct {
	Kind  types.BuiltinKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// EvalConst evaluates the closed sub-language permitted in `const`
// initializers: literals and arithmetic/comparison/logical combinations
// of other already-evaluated constants. Anything outside
// that subset (calls, constructors, field access) is rejected.
func (t *Tables) EvalConst(e ast.Expr) (ConstValue, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return ConstValue{Kind: types.I32, Int: n.Value}, nil
	case *ast.FloatLit:
		return ConstValue{Kind: types.F64, Float: n.Value}, nil
	case *ast.BoolLit:
		return ConstValue{Kind: types.Bool, Bool: n.Value}, nil
	case *ast.StringLit:
		return ConstValue{Kind: types.String, Str: n.Value}, nil
	case *ast.Name:
		if c, ok := t.Constants[n.Ident]; ok {
			if !c.Evaled {
				v, err := t.EvalConst(c.Init)
				if err != nil {
					return ConstValue{}, err
				}
				c.Value, c.Evaled = v, true
			}
			return c.Value, nil
		}
		return ConstValue{}, fmt.Errorf("%s is not a constant", n.Ident)
	case *ast.UnaryOp:
		v, err := t.EvalConst(n.Expr)
		if err != nil {
			return ConstValue{}, err
		}
		switch n.Op {
		case "-":
			if v.Kind.IsFloat() {
				v.Float = -v.Float
			} else {
				v.Int = -v.Int
			}
			return v, nil
		case "not":
			v.Bool = !v.Bool
			return v, nil
		}
		return ConstValue{}, fmt.Errorf("unsupported const unary operator %q", n.Op)
	case *ast.BinaryOp:
		return t.evalConstBinary(n)
	default:
		return ConstValue{}, fmt.Errorf("expression of type %T is not a compile-time constant", e)
	}
}

func (t *Tables) evalConstBinary(n *ast.BinaryOp) (ConstValue, error) {
	l, err := t.EvalConst(n.Left)
	if err != nil {
		return ConstValue{}, err
	}
	r, err := t.EvalConst(n.Right)
	if err != nil {
		return ConstValue{}, err
	}
	// Per the spec's §9 design-note decision: no float constant folding is
	// performed for non-comparison arithmetic operators; integer/bool
	// constants still fold.
	if l.Kind.IsFloat() || r.Kind.IsFloat() {
		switch n.Op {
		case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpEq, ast.OpNeq:
			return ConstValue{Kind: types.Bool, Bool: compareFloat(n.Op, l.Float, r.Float)}, nil
		}
		return ConstValue{}, fmt.Errorf("float constant folding for operator %q is unsupported", n.Op)
	}
	switch n.Op {
	case ast.OpAdd:
		return ConstValue{Kind: l.Kind, Int: l.Int + r.Int}, nil
	case ast.OpSub:
		return ConstValue{Kind: l.Kind, Int: l.Int - r.Int}, nil
	case ast.OpMul:
		return ConstValue{Kind: l.Kind, Int: l.Int * r.Int}, nil
	case ast.OpDiv:
		if r.Int == 0 {
			return ConstValue{}, fmt.Errorf("division by zero in constant expression")
		}
		return ConstValue{Kind: l.Kind, Int: l.Int / r.Int}, nil
	case ast.OpMod:
		if r.Int == 0 {
			return ConstValue{}, fmt.Errorf("modulo by zero in constant expression")
		}
		return ConstValue{Kind: l.Kind, Int: l.Int % r.Int}, nil
	case ast.OpShl:
		return ConstValue{Kind: l.Kind, Int: l.Int << uint(r.Int)}, nil
	case ast.OpShr:
		return ConstValue{Kind: l.Kind, Int: l.Int >> uint(r.Int)}, nil
	case ast.OpBitAnd:
		return ConstValue{Kind: l.Kind, Int: l.Int & r.Int}, nil
	case ast.OpBitOr:
		return ConstValue{Kind: l.Kind, Int: l.Int | r.Int}, nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpEq, ast.OpNeq:
		return ConstValue{Kind: types.Bool, Bool: compareInt(n.Op, l.Int, r.Int)}, nil
	case ast.OpAnd:
		return ConstValue{Kind: types.Bool, Bool: l.Bool && r.Bool}, nil
	case ast.OpOr:
		return ConstValue{Kind: types.Bool, Bool: l.Bool || r.Bool}, nil
	case ast.OpXor:
		// xor evaluates both operands unconditionally — already true here
		// since both sides are evaluated above regardless of result.
		return ConstValue{Kind: types.Bool, Bool: l.Bool != r.Bool}, nil
	}
	return ConstValue{}, fmt.Errorf("unsupported const binary operator %q", n.Op)
}

func compareInt(op ast.BinOp, l, r int64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLe:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGe:
		return l >= r
	case ast.OpEq:
		return l == r
	case ast.OpNeq:
		return l != r
	}
	return false
}

func compareFloat(op ast.BinOp, l, r float64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLe:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGe:
		return l >= r
	case ast.OpEq:
		return l == r
	case ast.OpNeq:
		return l != r
	}
	return false
}
