package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

func (g *Generator) emitExpr(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return constant.NewInt(g.intTypeFor(e.Type()), n.Value), nil
	case *ast.FloatLit:
		return constant.NewFloat(g.floatTypeFor(e.Type()), n.Value), nil
	case *ast.BoolLit:
		if n.Value {
			return constant.NewInt(irtypes.I1, 1), nil
		}
		return constant.NewInt(irtypes.I1, 0), nil
	case *ast.StringLit:
		return g.emitStringLit(n.Value)
	case *ast.InterpolatedString:
		return g.emitInterpolated(n)
	case *ast.Name:
		return g.emitName(n)
	case *ast.BinaryOp:
		return g.emitBinaryOp(n)
	case *ast.UnaryOp:
		return g.emitUnaryOp(n)
	case *ast.Call:
		return g.emitCall(n)
	case *ast.StructConstructor:
		return g.emitStructConstructor(n)
	case *ast.EnumConstructor:
		return g.emitEnumConstructor(n)
	case *ast.MethodCall:
		return g.emitMethodCall(n)
	case *ast.MemberAccess:
		return g.emitMemberAccessRead(n)
	case *ast.IndexAccess:
		return g.emitIndexAccessRead(n)
	case *ast.ArrayLiteral:
		return g.emitArrayLiteral(n)
	case *ast.DynamicArrayNew:
		return g.emitDynArrayNew(n)
	case *ast.DynamicArrayFrom:
		return g.emitDynArrayFrom(n)
	case *ast.CastExpr:
		return g.emitCast(n)
	case *ast.RangeExpr:
		return g.emitRange(n)
	case *ast.TryExpr:
		return g.emitTry(n)
	case *ast.Borrow:
		return g.emitBorrow(n)
	default:
		return nil, fmt.Errorf("codegen: unsupported expression %T", e)
	}
}

func (g *Generator) intTypeFor(t types.Type) *irtypes.IntType {
	if b, ok := t.(*types.Builtin); ok {
		switch b.Kind {
		case types.I8, types.U8:
			return irtypes.I8
		case types.I16, types.U16:
			return irtypes.I16
		case types.I64, types.U64:
			return irtypes.I64
		}
	}
	return irtypes.I32
}

func (g *Generator) floatTypeFor(t types.Type) *irtypes.FloatType {
	if b, ok := t.(*types.Builtin); ok && b.Kind == types.F32 {
		return irtypes.Float
	}
	return irtypes.Double
}

// emitStringLit builds a fat-pointer {i8*, i64} for a literal string:
// a global char-array constant, GEP'd to its first element, paired with
// its byte length.
func (g *Generator) emitStringLit(s string) (value.Value, error) {
	data := constant.NewCharArrayFromString(s + "\x00")
	glob := g.module.NewGlobalDef("", data)
	glob.Immutable = true
	ptr := g.fn.block.NewGetElementPtr(data.Type(), glob, constant.NewInt(irtypes.I64, 0), constant.NewInt(irtypes.I64, 0))
	return g.emitStringStruct(ptr, constant.NewInt(irtypes.I64, int64(len(s))))
}

// emitStringStruct stack-allocates and fills one {i8*, i64} string value.
func (g *Generator) emitStringStruct(data, length value.Value) (value.Value, error) {
	st := g.stringStruct()
	alloca := g.fn.block.NewAlloca(st)
	dataPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(data, dataPtr)
	lenPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	g.fn.block.NewStore(length, lenPtr)
	return alloca, nil
}

func (g *Generator) emitInterpolated(n *ast.InterpolatedString) (value.Value, error) {
	// Concatenate every piece's string form at runtime via the shared
	// concat helper (runtime.go), literal-text pieces first becoming
	// string constants.
	var acc value.Value
	for _, piece := range n.Pieces {
		var pieceVal value.Value
		var err error
		if piece.Expr == nil {
			pieceVal, err = g.emitStringLit(piece.Literal)
		} else {
			v, e2 := g.emitExpr(piece.Expr)
			if e2 != nil {
				return nil, e2
			}
			pieceVal, err = g.runtimeToString(v, piece.Expr.Type())
		}
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = pieceVal
			continue
		}
		acc, err = g.runtimeStringConcat(acc, pieceVal)
		if err != nil {
			return nil, err
		}
	}
	if acc == nil {
		return g.emitStringLit("")
	}
	return acc, nil
}

func (g *Generator) emitName(n *ast.Name) (value.Value, error) {
	lv, ok := g.fn.locals[n.Ident]
	if !ok {
		return nil, fmt.Errorf("codegen: unknown local %q", n.Ident)
	}
	return g.fn.block.NewLoad(lv.llvmTyp, lv.alloca), nil
}

func (g *Generator) emitBinaryOp(n *ast.BinaryOp) (value.Value, error) {
	// Logical and/or short-circuit the right operand;
	// xor is not short-circuited and falls through to the general
	// evaluate-both-sides path below.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		return g.emitShortCircuit(n)
	}

	l, err := g.emitExpr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := g.emitExpr(n.Right)
	if err != nil {
		return nil, err
	}
	isFloat := isFloatType(n.Left.Type())
	b := g.fn.block

	switch n.Op {
	case ast.OpAdd:
		if isFloat {
			return b.NewFAdd(l, r), nil
		}
		return b.NewAdd(l, r), nil
	case ast.OpSub:
		if isFloat {
			return b.NewFSub(l, r), nil
		}
		return b.NewSub(l, r), nil
	case ast.OpMul:
		if isFloat {
			return b.NewFMul(l, r), nil
		}
		return b.NewMul(l, r), nil
	case ast.OpDiv:
		if isFloat {
			return b.NewFDiv(l, r), nil
		}
		if isUnsignedType(n.Left.Type()) {
			return b.NewUDiv(l, r), nil
		}
		return b.NewSDiv(l, r), nil
	case ast.OpMod:
		if isFloat {
			return b.NewFRem(l, r), nil
		}
		if isUnsignedType(n.Left.Type()) {
			return b.NewURem(l, r), nil
		}
		return b.NewSRem(l, r), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpEq, ast.OpNeq:
		return g.emitComparison(n.Op, l, r, n.Left.Type())
	case ast.OpXor:
		return b.NewXor(l, r), nil
	case ast.OpBitAnd:
		return b.NewAnd(l, r), nil
	case ast.OpBitOr:
		return b.NewOr(l, r), nil
	case ast.OpShl:
		return b.NewShl(l, r), nil
	case ast.OpShr:
		if isUnsignedType(n.Left.Type()) {
			return b.NewLShr(l, r), nil
		}
		return b.NewAShr(l, r), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported binary operator %q", n.Op)
	}
}

// emitShortCircuit lowers `and`/`or` to two basic blocks joined through a
// stack slot, matching this package's alloca-over-phi idiom (stmt.go's
// emitIf/emitWhile) rather than an actual PHI instruction: the right
// operand is only evaluated when it can affect the result.
func (g *Generator) emitShortCircuit(n *ast.BinaryOp) (value.Value, error) {
	l, err := g.emitExpr(n.Left)
	if err != nil {
		return nil, err
	}
	result := g.fn.block.NewAlloca(irtypes.I1)
	g.fn.block.NewStore(l, result)

	rhsBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	if n.Op == ast.OpAnd {
		// false short-circuits; only evaluate r when l is true.
		g.fn.block.NewCondBr(l, rhsBlock, endBlock)
	} else {
		// true short-circuits; only evaluate r when l is false.
		g.fn.block.NewCondBr(l, endBlock, rhsBlock)
	}

	g.fn.block = rhsBlock
	r, err := g.emitExpr(n.Right)
	if err != nil {
		return nil, err
	}
	g.fn.block.NewStore(r, result)
	if g.fn.block.Term == nil {
		g.fn.block.NewBr(endBlock)
	}

	g.fn.block = endBlock
	return endBlock.NewLoad(irtypes.I1, result), nil
}

func (g *Generator) emitComparison(op ast.BinOp, l, r value.Value, operandTy types.Type) (value.Value, error) {
	b := g.fn.block
	if isFloatType(operandTy) {
		var pred enum.FPred
		switch op {
		case ast.OpLt:
			pred = enum.FPredOLT
		case ast.OpLe:
			pred = enum.FPredOLE
		case ast.OpGt:
			pred = enum.FPredOGT
		case ast.OpGe:
			pred = enum.FPredOGE
		case ast.OpEq:
			pred = enum.FPredOEQ
		case ast.OpNeq:
			pred = enum.FPredONE
		}
		return b.NewFCmp(pred, l, r), nil
	}
	unsigned := isUnsignedType(operandTy)
	var pred enum.IPred
	switch op {
	case ast.OpLt:
		if unsigned {
			pred = enum.IPredULT
		} else {
			pred = enum.IPredSLT
		}
	case ast.OpLe:
		if unsigned {
			pred = enum.IPredULE
		} else {
			pred = enum.IPredSLE
		}
	case ast.OpGt:
		if unsigned {
			pred = enum.IPredUGT
		} else {
			pred = enum.IPredSGT
		}
	case ast.OpGe:
		if unsigned {
			pred = enum.IPredUGE
		} else {
			pred = enum.IPredSGE
		}
	case ast.OpEq:
		pred = enum.IPredEQ
	case ast.OpNeq:
		pred = enum.IPredNE
	}
	return b.NewICmp(pred, l, r), nil
}

func isFloatType(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind.IsFloat()
}

func isUnsignedType(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind.IsUnsigned()
}

func (g *Generator) emitUnaryOp(n *ast.UnaryOp) (value.Value, error) {
	v, err := g.emitExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	b := g.fn.block
	switch n.Op {
	case "-":
		if isFloatType(n.Expr.Type()) {
			return b.NewFSub(constant.NewFloat(g.floatTypeFor(n.Expr.Type()), 0), v), nil
		}
		return b.NewSub(constant.NewInt(g.intTypeFor(n.Expr.Type()), 0), v), nil
	case "not":
		return b.NewXor(v, constant.NewInt(irtypes.I1, 1)), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported unary operator %q", n.Op)
	}
}

func (g *Generator) emitCall(n *ast.Call) (value.Value, error) {
	name := n.Callee
	if n.MangledCallee != "" {
		name = n.MangledCallee
	}
	if name == "destroy" && len(n.Args) == 1 {
		return g.emitDestroyCall(n.Args[0])
	}
	fn, ok := g.funcs[name]
	if !ok {
		return nil, fmt.Errorf("codegen: unknown function %q", name)
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.emitExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return g.fn.block.NewCall(fn, args...), nil
}

func (g *Generator) emitDestroyCall(arg ast.Expr) (value.Value, error) {
	name, ok := underlyingName(arg)
	if !ok {
		return nil, fmt.Errorf("codegen: destroy() target must be a local")
	}
	lv, ok := g.fn.locals[name]
	if !ok {
		return nil, fmt.Errorf("codegen: unknown local %q", name)
	}
	if err := g.emitDestroy(lv); err != nil {
		return nil, err
	}
	delete(g.fn.locals, name)
	return constant.NewInt(irtypes.I1, 0), nil
}

func underlyingName(e ast.Expr) (string, bool) {
	if nm, ok := e.(*ast.Name); ok {
		return nm.Ident, true
	}
	return "", false
}

func (g *Generator) emitStructConstructor(n *ast.StructConstructor) (value.Value, error) {
	st := n.Resolved
	llvmTy := g.structType(st)
	alloca := g.fn.block.NewAlloca(llvmTy)
	for _, arg := range n.Args {
		idx := st.FieldIndex(arg.Name)
		if idx < 0 {
			return nil, fmt.Errorf("codegen: unknown field %q on %s", arg.Name, st.Name)
		}
		val, err := g.emitExpr(arg.Value)
		if err != nil {
			return nil, err
		}
		fieldPtr := g.fn.block.NewGetElementPtr(llvmTy, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(idx)))
		g.fn.block.NewStore(val, fieldPtr)
	}
	return alloca, nil
}

func (g *Generator) emitEnumConstructor(n *ast.EnumConstructor) (value.Value, error) {
	en := n.Resolved
	llvmTy := g.enumType(en)
	alloca := g.fn.block.NewAlloca(llvmTy)
	tagIdx := en.VariantIndex(n.Variant)
	if tagIdx < 0 {
		return nil, fmt.Errorf("codegen: unknown variant %q on %s", n.Variant, en.Name)
	}
	tagPtr := g.fn.block.NewGetElementPtr(llvmTy, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, int64(tagIdx)), tagPtr)

	if len(n.Args) > 0 && len(llvmTy.Fields) > 1 {
		payloadPtr := g.fn.block.NewGetElementPtr(llvmTy, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		variant, _ := en.Variant(n.Variant)
		offset := 0
		for i, a := range n.Args {
			val, err := g.emitExpr(a)
			if err != nil {
				return nil, err
			}
			var fieldTy irtypes.Type = irtypes.I8
			if i < len(variant.Associated) {
				fieldTy, _ = g.mapType(variant.Associated[i])
			}
			slotPtr := g.fn.block.NewGetElementPtr(irtypes.I8, payloadPtr, constant.NewInt(irtypes.I64, int64(offset)))
			castPtr := g.fn.block.NewBitCast(slotPtr, irtypes.NewPointer(fieldTy))
			g.fn.block.NewStore(val, castPtr)
			offset += g.byteSizeOf(variant.Associated[i])
		}
	}
	return alloca, nil
}

func (g *Generator) emitMemberAccessRead(n *ast.MemberAccess) (value.Value, error) {
	ptr, fieldTy, err := g.emitLValue(n)
	if err != nil {
		return nil, err
	}
	llvmTy, err := g.mapType(fieldTy)
	if err != nil {
		return nil, err
	}
	return g.fn.block.NewLoad(llvmTy, ptr), nil
}

func (g *Generator) emitIndexAccessRead(n *ast.IndexAccess) (value.Value, error) {
	base, err := g.emitExpr(n.Base)
	if err != nil {
		return nil, err
	}
	idx, err := g.emitExpr(n.Index)
	if err != nil {
		return nil, err
	}
	switch bt := n.Base.Type().(type) {
	case *types.Array:
		elemTy, err := g.mapType(bt.Base)
		if err != nil {
			return nil, err
		}
		idx64 := g.emitWidenIndex(idx, n.Index.Type())
		if err := g.emitBoundsCheck(idx64, constant.NewInt(irtypes.I64, int64(bt.Size))); err != nil {
			return nil, err
		}
		elemPtr := g.fn.block.NewGetElementPtr(elemTy, base, constant.NewInt(irtypes.I32, 0), idx)
		return g.fn.block.NewLoad(elemTy, elemPtr), nil
	case *types.DynArray:
		idx64 := g.emitWidenIndex(idx, n.Index.Type())
		size, err := g.runtimeDynArrayLen(base, bt.Base)
		if err != nil {
			return nil, err
		}
		if err := g.emitBoundsCheck(idx64, size); err != nil {
			return nil, err
		}
		return g.runtimeDynArrayGet(base, idx, bt.Base)
	default:
		return nil, fmt.Errorf("codegen: indexing unsupported base type %s", n.Base.Type().String())
	}
}

// emitWidenIndex sign- or zero-extends an index expression to i64 for the
// bounds comparison in emitBoundsCheck; the original-width value still
// backs the GEP itself (LLVM accepts any integer width there).
func (g *Generator) emitWidenIndex(idx value.Value, idxTy types.Type) value.Value {
	if g.intTypeFor(idxTy) == irtypes.I64 {
		return idx
	}
	if isUnsignedType(idxTy) {
		return g.fn.block.NewZExt(idx, irtypes.I64)
	}
	return g.fn.block.NewSExt(idx, irtypes.I64)
}

// emitBoundsCheck traps with the RE2020 runtime error (message then
// exit(2020)) when idx64 is negative or >= size; otherwise falls through.
func (g *Generator) emitBoundsCheck(idx64, size value.Value) error {
	tooLow := g.fn.block.NewICmp(enum.IPredSLT, idx64, constant.NewInt(irtypes.I64, 0))
	tooHigh := g.fn.block.NewICmp(enum.IPredSGE, idx64, size)
	outOfBounds := g.fn.block.NewOr(tooLow, tooHigh)

	trapBlock := g.fn.llvmFn.NewBlock("")
	okBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(outOfBounds, trapBlock, okBlock)

	g.fn.block = trapBlock
	fmtGlobal, err := g.formatGlobal("array index %lld out of bounds for array of size %lld\n")
	if err != nil {
		return err
	}
	g.fn.block.NewCall(g.externs.printf, fmtGlobal, idx64, size)
	g.fn.block.NewCall(g.externs.exit, constant.NewInt(irtypes.I32, 2020))
	g.fn.block.NewUnreachable()

	g.fn.block = okBlock
	return nil
}

func (g *Generator) emitArrayLiteral(n *ast.ArrayLiteral) (value.Value, error) {
	arrTy, ok := n.Type().(*types.Array)
	if !ok {
		return nil, fmt.Errorf("codegen: array literal without resolved array type")
	}
	elemTy, err := g.mapType(arrTy.Base)
	if err != nil {
		return nil, err
	}
	llvmArrTy := irtypes.NewArray(uint64(len(n.Elems)), elemTy)
	alloca := g.fn.block.NewAlloca(llvmArrTy)
	for i, elem := range n.Elems {
		val, err := g.emitExpr(elem)
		if err != nil {
			return nil, err
		}
		ptr := g.fn.block.NewGetElementPtr(llvmArrTy, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(i)))
		g.fn.block.NewStore(val, ptr)
	}
	return alloca, nil
}

func (g *Generator) emitDynArrayNew(n *ast.DynamicArrayNew) (value.Value, error) {
	elemTy := g.tables.ResolveTypeExpr(n.ElemType)
	size, err := g.emitExpr(n.Size)
	if err != nil {
		return nil, err
	}
	return g.runtimeDynArrayNew(elemTy, size)
}

func (g *Generator) emitDynArrayFrom(n *ast.DynamicArrayFrom) (value.Value, error) {
	dt, ok := n.Type().(*types.DynArray)
	if !ok {
		return nil, fmt.Errorf("codegen: from() without resolved DynArray type")
	}
	vals := make([]value.Value, len(n.Elems))
	for i, e := range n.Elems {
		v, err := g.emitExpr(e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return g.runtimeDynArrayFrom(dt.Base, vals)
}

func (g *Generator) emitCast(n *ast.CastExpr) (value.Value, error) {
	v, err := g.emitExpr(n.Value)
	if err != nil {
		return nil, err
	}
	target := g.tables.ResolveTypeExpr(n.Target)
	targetTy, err := g.mapType(target)
	if err != nil {
		return nil, err
	}
	srcTy := n.Value.Type()
	b := g.fn.block
	srcFloat, dstFloat := isFloatType(srcTy), isFloatType(target)
	switch {
	case srcFloat && dstFloat:
		if widerFloat(target, srcTy) {
			return b.NewFPExt(v, targetTy), nil
		}
		return b.NewFPTrunc(v, targetTy), nil
	case srcFloat && !dstFloat:
		if isUnsignedType(target) {
			return b.NewFPToUI(v, targetTy), nil
		}
		return b.NewFPToSI(v, targetTy), nil
	case !srcFloat && dstFloat:
		if isUnsignedType(srcTy) {
			return b.NewUIToFP(v, targetTy), nil
		}
		return b.NewSIToFP(v, targetTy), nil
	default:
		if widerInt(target, srcTy) {
			if isUnsignedType(srcTy) {
				return b.NewZExt(v, targetTy), nil
			}
			return b.NewSExt(v, targetTy), nil
		}
		return b.NewTrunc(v, targetTy), nil
	}
}

func widerFloat(a, b types.Type) bool {
	return bitWidth(a) > bitWidth(b)
}
func widerInt(a, b types.Type) bool { return bitWidth(a) > bitWidth(b) }

func bitWidth(t types.Type) int {
	if bt, ok := t.(*types.Builtin); ok {
		return bt.Kind.BitWidth()
	}
	return 0
}

func (g *Generator) emitRange(n *ast.RangeExpr) (value.Value, error) {
	start, err := g.emitExpr(n.Start)
	if err != nil {
		return nil, err
	}
	end, err := g.emitExpr(n.End)
	if err != nil {
		return nil, err
	}
	if n.Inclusive {
		end = g.fn.block.NewAdd(end, constant.NewInt(irtypes.I64, 1))
	}
	return g.runtimeRangeIterator(start, end, n.Start.Type())
}

func (g *Generator) emitTry(n *ast.TryExpr) (value.Value, error) {
	inner, err := g.emitExpr(n.Inner)
	if err != nil {
		return nil, err
	}
	return g.runtimeTryUnwrap(inner, n)
}

func (g *Generator) emitBorrow(n *ast.Borrow) (value.Value, error) {
	ptr, _, err := g.emitLValue(n.Value)
	if err != nil {
		return nil, err
	}
	return ptr, nil
}
