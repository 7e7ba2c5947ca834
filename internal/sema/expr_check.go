package sema

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/types"
)

// checkExpr validates e, annotating it with its inferred type
// and returning the possibly-rewritten node (DotCall nodes are
// rewritten in place into MethodCall/EnumConstructor once disambiguated)
// alongside that type.
func (c *Checker) checkExpr(e ast.Expr, scope *Scope) (ast.Expr, types.Type) {
	if e == nil {
		return nil, nil
	}
	var t types.Type
	switch n := e.(type) {
	case *ast.IntLit:
		t = types.TypeI32
	case *ast.FloatLit:
		t = types.TypeF64
	case *ast.BoolLit:
		t = types.TypeBool
	case *ast.StringLit:
		t = types.TypeString
	case *ast.InterpolatedString:
		c.checkInterpolated(n, scope)
		t = types.TypeString
	case *ast.Name:
		t = c.checkName(n, scope)
	case *ast.BinaryOp:
		t = c.checkBinaryOp(n, scope)
	case *ast.UnaryOp:
		t = c.checkUnaryOp(n, scope)
	case *ast.Call:
		return c.checkCall(n, scope)
	case *ast.StructConstructor:
		t = c.checkStructConstructor(n, scope)
	case *ast.EnumConstructor:
		t = c.checkEnumConstructor(n, scope)
	case *ast.MethodCall:
		t = c.checkMethodCall(n, scope)
	case *ast.DotCall:
		return c.checkDotCall(n, scope)
	case *ast.MemberAccess:
		t = c.checkMemberAccess(n, scope)
	case *ast.IndexAccess:
		t = c.checkIndexAccess(n, scope)
	case *ast.ArrayLiteral:
		t = c.checkArrayLiteral(n, scope)
	case *ast.DynamicArrayNew:
		t = c.checkDynArrayNew(n, scope)
	case *ast.DynamicArrayFrom:
		t = c.checkDynArrayFrom(n, scope)
	case *ast.CastExpr:
		t = c.checkCast(n, scope)
	case *ast.RangeExpr:
		t = c.checkRange(n, scope)
	case *ast.TryExpr:
		t = c.checkTry(n, scope)
	case *ast.Borrow:
		t = c.checkBorrow(n, scope)
	default:
		t = nil
	}
	e.SetType(t)
	return e, t
}

func (c *Checker) checkInterpolated(n *ast.InterpolatedString, scope *Scope) {
	for i, piece := range n.Pieces {
		if piece.Expr == nil {
			continue
		}
		checked, pt := c.checkExpr(piece.Expr, scope)
		n.Pieces[i].Expr = checked
		if !isStringy(pt) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(piece.Expr.Span()), "interpolated value of type %s is not string-convertible", show(pt))
		}
	}
}

func (c *Checker) checkName(n *ast.Name, scope *Scope) types.Type {
	if sym := scope.Lookup(n.Ident); sym != nil {
		switch sym.Borrow {
		case Destroyed:
			c.rep.Error(diag.CE2024, diag.StageBorrow, toSpan(n.Sp), "%q used after destroy", n.Ident)
		case Moved:
			c.rep.Error(diag.CE3003, diag.StageBorrow, toSpan(n.Sp), "%q used after move", n.Ident)
		}
		return sym.Type
	}
	if ce, ok := c.tables.Constants[n.Ident]; ok {
		if !ce.Evaled {
			if v, err := c.tables.EvalConst(ce.Init); err == nil {
				ce.Value, ce.Evaled = v, true
			}
		}
		return c.tables.ResolveRecursive(ce.Type)
	}
	c.rep.Error(diag.CE2008, diag.StageTypeck, toSpan(n.Sp), "undefined name %q", n.Ident)
	return nil
}

func isStringBuiltin(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind == types.String
}

func isIntegerBuiltin(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind.IsInteger()
}

func (c *Checker) checkBinaryOp(n *ast.BinaryOp, scope *Scope) types.Type {
	left, leftT := c.checkExpr(n.Left, scope)
	n.Left = left
	right, rightT := c.checkExpr(n.Right, scope)
	n.Right = right
	sp := toSpan(n.Sp)

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if isStringBuiltin(leftT) || isStringBuiltin(rightT) {
			c.rep.Error(diag.CE2509, diag.StageTypeck, sp, "operator %q is not defined on string; use interpolation instead", n.Op)
			return nil
		}
		if !isNumeric(leftT) || !isNumeric(rightT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "operator %q requires numeric operands, got %s and %s", n.Op, show(leftT), show(rightT))
			return leftT
		}
		if !types.Equal(leftT, rightT) {
			c.rep.Error(diag.CE2510, diag.StageTypeck, sp, "mixed numeric types %s and %s require an explicit cast", show(leftT), show(rightT))
		}
		return leftT
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !isNumeric(leftT) || !isNumeric(rightT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "operator %q requires numeric operands, got %s and %s", n.Op, show(leftT), show(rightT))
		} else if !types.Equal(leftT, rightT) {
			c.rep.Error(diag.CE2510, diag.StageTypeck, sp, "mixed numeric types %s and %s require an explicit cast", show(leftT), show(rightT))
		}
		return types.TypeBool
	case ast.OpEq, ast.OpNeq:
		if !c.compat(leftT, rightT) && !c.compat(rightT, leftT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "cannot compare %s with %s", show(leftT), show(rightT))
		}
		return types.TypeBool
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		if !isBool(leftT) || !isBool(rightT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "operator %q requires bool operands, got %s and %s", n.Op, show(leftT), show(rightT))
		}
		return types.TypeBool
	case ast.OpShl, ast.OpShr, ast.OpBitAnd, ast.OpBitOr:
		if !isIntegerBuiltin(leftT) || !isIntegerBuiltin(rightT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "operator %q requires integer operands, got %s and %s", n.Op, show(leftT), show(rightT))
			return leftT
		}
		if !types.Equal(leftT, rightT) {
			c.rep.Error(diag.CE2510, diag.StageTypeck, sp, "mixed integer types %s and %s require an explicit cast", show(leftT), show(rightT))
		}
		return leftT
	}
	return nil
}

func (c *Checker) checkUnaryOp(n *ast.UnaryOp, scope *Scope) types.Type {
	val, valT := c.checkExpr(n.Expr, scope)
	n.Expr = val
	sp := toSpan(n.Sp)
	switch n.Op {
	case "-":
		if !isNumeric(valT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "unary - requires a numeric operand, got %s", show(valT))
		}
		return valT
	case "not":
		if !isBool(valT) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "not requires a bool operand, got %s", show(valT))
		}
		return types.TypeBool
	}
	return valT
}

// checkCall validates a direct call, dispatching destroy() sugar and
// generic-function instantiation before falling back to an ordinary
// function lookup.
func (c *Checker) checkCall(n *ast.Call, scope *Scope) (ast.Expr, types.Type) {
	sp := toSpan(n.Sp)

	if n.Callee == "destroy" {
		if len(n.Args) != 1 {
			c.rep.Error(diag.CE2009, diag.StageTypeck, sp, "destroy() takes exactly 1 argument")
			return n, types.TypeBlank
		}
		arg, _ := c.checkExpr(n.Args[0], scope)
		n.Args[0] = arg
		if name, ok := underlyingName(arg); ok {
			if sym := scope.Lookup(name); sym != nil {
				if err := c.borrow.Destroy(sym); err != "" {
					c.rep.Error(diag.CE3005, diag.StageBorrow, sp, "%s", err)
				}
			}
		}
		n.SetType(types.TypeBlank)
		return n, types.TypeBlank
	}

	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		checked, at := c.checkExpr(a, scope)
		n.Args[i] = checked
		argTypes[i] = at
	}

	if gt, ok := c.tables.GenericFunctions[n.Callee]; ok {
		typeArgs := inferTypeArgs(gt.TypeParams, gt.Decl.Params, argTypes)
		for i, ta := range typeArgs {
			if ta == nil {
				c.rep.Error(diag.CE0045, diag.StageMono, sp, "cannot infer type parameter %q of %s(...)", gt.TypeParams[i], n.Callee)
				n.SetType(nil)
				return n, nil
			}
		}
		sig, mangled, err := c.tables.MonomorphizeFunc(n.Callee, typeArgs)
		if err != nil {
			c.rep.Error(diag.CE2008, diag.StageMono, sp, "%v", err)
			n.SetType(nil)
			return n, nil
		}
		n.MangledCallee = mangled
		c.checkArgArity(sp, n.Callee, sig, n.Args)
		n.SetType(sig.Return)
		return n, sig.Return
	}

	sig, ok := c.tables.Functions[n.Callee]
	if !ok {
		c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "undefined function %q", n.Callee)
		n.SetType(nil)
		return n, nil
	}
	c.checkArgArity(sp, n.Callee, sig, n.Args)
	n.SetType(sig.Return)
	return n, sig.Return
}

func (c *Checker) checkArgArity(sp diag.Span, name string, sig *FuncSignature, args []ast.Expr) {
	if len(args) != len(sig.Params) {
		c.rep.Error(diag.CE2009, diag.StageTypeck, sp, "%s expects %d argument(s), got %d", name, len(sig.Params), len(args))
		return
	}
	for i, a := range args {
		if !c.compat(a.Type(), sig.Params[i]) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(a.Span()), "argument %d of %s: cannot use %s as %s", i+1, name, show(a.Type()), show(sig.Params[i]))
		}
	}
}

func (c *Checker) checkStructConstructor(n *ast.StructConstructor, scope *Scope) types.Type {
	sp := toSpan(n.Sp)
	if n.Resolved == nil {
		if st, ok := c.tables.Structs[n.Name]; ok {
			n.Resolved = st
		}
	}
	if n.Resolved == nil {
		c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "undefined struct %q", n.Name)
		return nil
	}
	if len(n.Args) != len(n.Resolved.Fields) {
		c.rep.Error(diag.CE2050, diag.StageTypeck, sp, "%s expects %d field(s), got %d", n.Resolved.Name, len(n.Resolved.Fields), len(n.Args))
	}
	for i, arg := range n.Args {
		idx := n.Resolved.FieldIndex(arg.Name)
		if idx < 0 {
			c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "%s has no field %q", n.Resolved.Name, arg.Name)
			continue
		}
		c.propagateExpected(arg.Value, n.Resolved.Fields[idx].Type)
		checked, vt := c.checkExpr(arg.Value, scope)
		n.Args[i].Value = checked
		if !c.compat(vt, n.Resolved.Fields[idx].Type) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(arg.Value.Span()), "field %q: cannot use %s as %s", arg.Name, show(vt), show(n.Resolved.Fields[idx].Type))
		}
	}
	return n.Resolved
}

func (c *Checker) checkEnumConstructor(n *ast.EnumConstructor, scope *Scope) types.Type {
	sp := toSpan(n.Sp)
	if n.Resolved == nil {
		if en, ok := c.tables.Enums[n.EnumName]; ok {
			n.Resolved = en
		}
	}
	if n.Resolved == nil && c.tables.IsGenericEnumBase(n.EnumName) {
		argTypes := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			_, at := c.checkExpr(a, scope)
			argTypes[i] = at
		}
		if len(argTypes) > 0 {
			if inst, err := c.tables.Monomorphize(n.EnumName, argTypes); err == nil {
				if en, ok := inst.(*types.Enum); ok {
					n.Resolved = en
				}
			}
		}
	}
	if n.Resolved == nil {
		c.rep.Error(diag.CE2045, diag.StageTypeck, sp, "cannot infer concrete type for %s.%s(...) in this context", n.EnumName, n.Variant)
		return nil
	}
	variant, ok := n.Resolved.Variant(n.Variant)
	if !ok {
		c.rep.Error(diag.CE2045, diag.StageTypeck, sp, "%s has no variant %q", n.Resolved.Name, n.Variant)
		return n.Resolved
	}
	if len(n.Args) != len(variant.Associated) {
		c.rep.Error(diag.CE2050, diag.StageTypeck, sp, "%s.%s expects %d argument(s), got %d", n.Resolved.Name, n.Variant, len(variant.Associated), len(n.Args))
	}
	for i, arg := range n.Args {
		var expected types.Type
		if i < len(variant.Associated) {
			expected = variant.Associated[i]
		}
		c.propagateExpected(arg, expected)
		checked, at := c.checkExpr(arg, scope)
		n.Args[i] = checked
		if expected != nil && !c.compat(at, expected) {
			c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(arg.Span()), "%s.%s argument %d: cannot use %s as %s", n.Resolved.Name, n.Variant, i+1, show(at), show(expected))
		}
	}
	return n.Resolved
}

// checkDotCall disambiguates `X.Y(args)` into an EnumConstructor (when X
// names a known enum/generic-enum base) or a MethodCall otherwise
//.
func (c *Checker) checkDotCall(n *ast.DotCall, scope *Scope) (ast.Expr, types.Type) {
	if name, ok := n.Base.(*ast.Name); ok {
		if scope.Lookup(name.Ident) == nil {
			if _, isEnum := c.tables.Enums[name.Ident]; isEnum || c.tables.IsGenericEnumBase(name.Ident) {
				ec := &ast.EnumConstructor{EnumName: name.Ident, Variant: n.Name, Args: n.Args}
				t := c.checkEnumConstructor(ec, scope)
				ec.SetType(t)
				return ec, t
			}
		}
	}
	mc := &ast.MethodCall{Receiver: n.Base, Method: n.Name, Args: n.Args}
	t := c.checkMethodCall(mc, scope)
	mc.SetType(t)
	return mc, t
}

// checkMethodCall dispatches `receiver.method(args)` through the
// priority order of: primitive methods, built-in generic
// methods (Result/Maybe/Own/HashMap/List/array/string/file/stdio), user
// extension methods (including `extend T with Perk` methods), generic
// extension methods, then the auto-derived Hashable `hash`; a user
// extension named `hash` therefore shadows the auto-derived one.
func (c *Checker) checkMethodCall(n *ast.MethodCall, scope *Scope) types.Type {
	recv, recvT := c.checkExpr(n.Receiver, scope)
	n.Receiver = recv
	sp := toSpan(n.Sp)

	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		checked, at := c.checkExpr(a, scope)
		n.Args[i] = checked
		argTypes[i] = at
	}

	base := c.tables.ResolveUnknown(recvT)
	if ref, ok := base.(*types.Reference); ok {
		base = c.tables.ResolveUnknown(ref.Inner)
	}

	if ret, ok := builtinMethodReturn(base, n.Method, argTypes); ok {
		n.InferredReturn = ret
		return ret
	}

	typeName := base.String()
	if st, ok := base.(*types.Struct); ok && st.GenericBase != "" {
		typeName = st.GenericBase
	}
	if en, ok := base.(*types.Enum); ok && en.GenericBase != "" {
		typeName = en.GenericBase
	}

	if methods, ok := c.tables.Extensions[typeName]; ok {
		if sig, ok := methods[n.Method]; ok {
			c.checkArgArity(sp, n.Method, sig, n.Args)
			n.InferredReturn = sig.Return
			return sig.Return
		}
	}
	if methods, ok := c.tables.GenericExtensions[typeName]; ok {
		if sig, ok := methods[n.Method]; ok {
			n.InferredReturn = sig.Return
			return sig.Return
		}
	}
	if c.tables.HasPerkImpl(typeName, "Hashable") && n.Method == "hash" {
		n.InferredReturn = types.TypeU64
		return types.TypeU64
	}

	c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "%s has no method %q", show(base), n.Method)
	return nil
}

// builtinMethodReturn covers the fixed built-in method surface that every
// instantiation of the primitive/generic built-ins carries, independent
// of user extensions.
func builtinMethodReturn(base types.Type, method string, args []types.Type) (types.Type, bool) {
	switch bt := base.(type) {
	case *types.DynArray:
		switch method {
		case "len":
			return types.TypeI32, true
		case "push":
			return types.TypeBlank, true
		case "pop":
			return &types.Result{Ok: bt.Base, Err: defaultErrorType()}, true
		case "get":
			return &types.Result{Ok: bt.Base, Err: defaultErrorType()}, true
		}
	case *types.Array:
		switch method {
		case "len":
			return types.TypeI32, true
		case "get":
			return &types.Enum{Name: "Maybe<" + bt.Base.String() + ">", GenericBase: "Maybe", GenericArgs: []types.Type{bt.Base}, Variants: []types.EnumVariant{{Name: "Some", Associated: []types.Type{bt.Base}}, {Name: "None"}}}, true
		}
	case *types.Struct:
		switch bt.GenericBase {
		case "Own":
			if method == "get" || method == "unwrap" {
				return bt.GenericArgs[0], true
			}
		case "HashMap":
			switch method {
			case "insert":
				return types.TypeBlank, true
			case "get":
				return &types.Enum{Name: "Maybe<" + bt.GenericArgs[1].String() + ">", GenericBase: "Maybe", GenericArgs: bt.GenericArgs[1:2], Variants: []types.EnumVariant{{Name: "Some", Associated: bt.GenericArgs[1:2]}, {Name: "None"}}}, true
			case "remove":
				return types.TypeBool, true
			case "size", "len":
				return types.TypeI32, true
			}
		case "List":
			switch method {
			case "push":
				return types.TypeBlank, true
			case "get":
				items := bt.Fields[0].Type.(*types.DynArray)
				return &types.Result{Ok: items.Base, Err: defaultErrorType()}, true
			case "len":
				return types.TypeI32, true
			}
		}
	case *types.Enum:
		switch bt.GenericBase {
		case "Result":
			okTy, errTy := bt.GenericArgs[0], bt.GenericArgs[1]
			switch method {
			case "is_ok", "is_err":
				return types.TypeBool, true
			case "realise", "expect":
				return okTy, true
			case "err":
				return &types.Enum{Name: "Maybe<" + errTy.String() + ">", GenericBase: "Maybe", GenericArgs: []types.Type{errTy}, Variants: []types.EnumVariant{{Name: "Some", Associated: []types.Type{errTy}}, {Name: "None"}}}, true
			}
		case "Maybe":
			someTy := bt.GenericArgs[0]
			switch method {
			case "is_some", "is_none":
				return types.TypeBool, true
			case "realise", "expect":
				return someTy, true
			}
		}
	case *types.Builtin:
		switch bt.Kind {
		case types.String:
			switch method {
			case "len":
				return types.TypeI32, true
			case "concat":
				return types.TypeString, true
			}
		case types.Stdout, types.Stderr:
			if method == "write" || method == "write_line" {
				return types.TypeBlank, true
			}
		case types.Stdin:
			if method == "read_line" {
				return &types.Enum{Name: "Maybe<string>", GenericBase: "Maybe", GenericArgs: []types.Type{types.TypeString}, Variants: []types.EnumVariant{{Name: "Some", Associated: []types.Type{types.TypeString}}, {Name: "None"}}}, true
			}
		case types.File:
			switch method {
			case "read_line":
				return &types.Result{Ok: types.TypeString, Err: &types.Enum{Name: "FileError"}}, true
			case "write", "close":
				return &types.Result{Ok: types.TypeBlank, Err: &types.Enum{Name: "FileError"}}, true
			}
		}
	}
	return nil, false
}

func (c *Checker) checkMemberAccess(n *ast.MemberAccess, scope *Scope) types.Type {
	base, baseT := c.checkExpr(n.Base, scope)
	n.Base = base
	sp := toSpan(n.Sp)

	resolved := c.tables.ResolveUnknown(baseT)
	if ref, ok := resolved.(*types.Reference); ok {
		resolved = c.tables.ResolveUnknown(ref.Inner)
	}
	st, ok := resolved.(*types.Struct)
	if !ok {
		c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "%s has no fields", show(baseT))
		return nil
	}
	idx := st.FieldIndex(n.Field)
	if idx < 0 {
		c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "%s has no field %q", st.Name, n.Field)
		return nil
	}
	return st.Fields[idx].Type
}

func (c *Checker) checkIndexAccess(n *ast.IndexAccess, scope *Scope) types.Type {
	base, baseT := c.checkExpr(n.Base, scope)
	n.Base = base
	idx, idxT := c.checkExpr(n.Index, scope)
	n.Index = idx
	sp := toSpan(n.Sp)
	if !isIntegerBuiltin(idxT) {
		c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(n.Index.Span()), "array index must be an integer, got %s", show(idxT))
	}
	resolved := c.tables.ResolveUnknown(baseT)
	if ref, ok := resolved.(*types.Reference); ok {
		resolved = c.tables.ResolveUnknown(ref.Inner)
	}
	switch bt := resolved.(type) {
	case *types.Array:
		return bt.Base
	case *types.DynArray:
		return bt.Base
	}
	c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "%s is not indexable", show(baseT))
	return nil
}

func (c *Checker) checkArrayLiteral(n *ast.ArrayLiteral, scope *Scope) types.Type {
	if len(n.Elems) == 0 {
		c.rep.Error(diag.CE2010, diag.StageTypeck, toSpan(n.Sp), "array literal cannot be empty; use new(T, 0) for an empty dynamic array")
		return &types.Array{Base: types.TypeI32, Size: 0}
	}
	var elemT types.Type
	for i, e := range n.Elems {
		checked, t := c.checkExpr(e, scope)
		n.Elems[i] = checked
		if elemT == nil {
			elemT = t
		} else if !c.compat(t, elemT) {
			c.rep.Error(diag.CE2011, diag.StageTypeck, toSpan(e.Span()), "array element %d: cannot use %s where %s expected", i, show(t), show(elemT))
		}
	}
	return &types.Array{Base: elemT, Size: uint32(len(n.Elems))}
}

func (c *Checker) checkDynArrayNew(n *ast.DynamicArrayNew, scope *Scope) types.Type {
	elem := c.tables.ResolveTypeExpr(n.ElemType)
	size, sizeT := c.checkExpr(n.Size, scope)
	n.Size = size
	if !isIntegerBuiltin(sizeT) {
		c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(n.Size.Span()), "new() size must be an integer, got %s", show(sizeT))
	}
	return &types.DynArray{Base: elem}
}

func (c *Checker) checkDynArrayFrom(n *ast.DynamicArrayFrom, scope *Scope) types.Type {
	if len(n.Elems) == 0 {
		return &types.DynArray{Base: types.TypeI32}
	}
	var elemT types.Type
	for i, e := range n.Elems {
		checked, t := c.checkExpr(e, scope)
		n.Elems[i] = checked
		if elemT == nil {
			elemT = t
		} else if !c.compat(t, elemT) {
			c.rep.Error(diag.CE2011, diag.StageTypeck, toSpan(e.Span()), "from() element %d: cannot use %s where %s expected", i, show(t), show(elemT))
		}
	}
	return &types.DynArray{Base: elemT}
}

func (c *Checker) checkCast(n *ast.CastExpr, scope *Scope) types.Type {
	val, valT := c.checkExpr(n.Value, scope)
	n.Value = val
	target := c.tables.ResolveTypeExpr(n.Target)
	if !isNumeric(valT) && !types.Equal(valT, target) {
		c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(n.Sp), "cannot cast %s to %s", show(valT), show(target))
	} else if isNumeric(valT) && !isNumeric(target) && !types.Equal(valT, target) {
		c.rep.Error(diag.CE2006, diag.StageTypeck, toSpan(n.Sp), "cannot cast %s to %s", show(valT), show(target))
	}
	return target
}

func (c *Checker) checkRange(n *ast.RangeExpr, scope *Scope) types.Type {
	start, startT := c.checkExpr(n.Start, scope)
	n.Start = start
	end, endT := c.checkExpr(n.End, scope)
	n.End = end
	sp := toSpan(n.Sp)
	if !isIntegerBuiltin(startT) || !isIntegerBuiltin(endT) {
		c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "range bounds must be integers, got %s and %s", show(startT), show(endT))
		return &types.Iterator{Element: types.TypeI32}
	}
	if !types.Equal(startT, endT) {
		c.rep.Error(diag.CE2510, diag.StageTypeck, sp, "range bounds %s and %s must share a type", show(startT), show(endT))
	}
	return &types.Iterator{Element: startT}
}

// checkTry validates the `??` operator and populates every Inferred* field
// the emitter needs.
func (c *Checker) checkTry(n *ast.TryExpr, scope *Scope) types.Type {
	inner, innerT := c.checkExpr(n.Inner, scope)
	n.Inner = inner
	sp := toSpan(n.Sp)

	resolved := c.tables.ResolveUnknown(innerT)
	var result *types.Result
	switch rt := resolved.(type) {
	case *types.Result:
		result = rt
	case *types.Enum:
		if rt.GenericBase == "Result" && len(rt.GenericArgs) == 2 {
			result = &types.Result{Ok: rt.GenericArgs[0], Err: rt.GenericArgs[1]}
		}
	}
	if result == nil {
		c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "?? requires a Result-typed expression, got %s", show(innerT))
		return nil
	}
	n.InferredInner = result
	n.InferredUnwrapped = result.Ok
	n.InferredSuccessTag = 0
	n.InferredErrorType = result.Err
	if c.funcReturn != nil {
		n.InferredFuncReturn = c.funcReturn
		if !c.compat(result.Err, c.funcReturn.Err) {
			c.rep.Error(diag.CE2003, diag.StageTypeck, sp, "?? propagates error type %s, incompatible with function's %s", show(result.Err), show(c.funcReturn.Err))
		}
	}
	return result.Ok
}

func (c *Checker) checkBorrow(n *ast.Borrow, scope *Scope) types.Type {
	sp := toSpan(n.Sp)
	name, ok := underlyingName(n.Value)
	if !ok {
		c.rep.Error(diag.CE2006, diag.StageTypeck, sp, "borrow target must be a local variable")
		val, valT := c.checkExpr(n.Value, scope)
		n.Value = val
		mode := types.Peek
		if n.Poke {
			mode = types.Poke
		}
		return &types.Reference{Inner: valT, Mode: mode}
	}
	sym := scope.Lookup(name)
	if sym == nil {
		c.rep.Error(diag.CE2008, diag.StageTypeck, sp, "undefined name %q", name)
		return nil
	}
	var err string
	if n.Poke {
		err = c.borrow.Poke(sym)
	} else {
		err = c.borrow.Peek(sym)
	}
	if err != "" {
		code := diag.CE3001
		if n.Poke {
			code = diag.CE3002
		}
		c.rep.Error(code, diag.StageBorrow, sp, "%s", err)
	}
	mode := types.Peek
	if n.Poke {
		mode = types.Poke
	}
	n.Value.SetType(sym.Type)
	return &types.Reference{Inner: sym.Type, Mode: mode}
}
