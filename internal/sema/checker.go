package sema

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/types"
)

// Checker is C7, the main type-validation pass. It walks every function
// body, annotating expressions with their inferred type
// and rejecting ill-typed programs. C8 (match.go) and C9 (borrow.go) run
// inline as the checker descends into match statements and borrow
// expressions, sharing its Tables and Reporter.
type Checker struct {
	tables *Tables
	rep    *diag.Reporter

	// funcReturn is the Result<T,E> type of the function currently being
	// checked; Return/TryExpr validation reads it.
	funcReturn *types.Result
	borrow     *BorrowChecker
}

// NewChecker creates a checker over tables, reporting through rep.
func NewChecker(tables *Tables, rep *diag.Reporter) *Checker {
	return &Checker{tables: tables, rep: rep}
}

// CheckFile evaluates every constant and checks every function body in
// file. Tables must already have been populated by a Collector.
func (c *Checker) CheckFile(file *ast.File) {
	for name, ce := range c.tables.Constants {
		if ce.Evaled {
			continue
		}
		v, err := c.tables.EvalConst(ce.Init)
		if err != nil {
			c.rep.Error(diag.CE2001, diag.StageTypeck, toSpan(ce.Init.Span()), "constant %q: %v", name, err)
			continue
		}
		ce.Value, ce.Evaled = v, true
	}
	for _, d := range file.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			if !n.IsGeneric() {
				c.checkFunc(n)
			}
		case *ast.ExtendDecl:
			for _, m := range n.Methods {
				c.checkFunc(m)
			}
		}
	}
}

func (c *Checker) checkFunc(fn *ast.FuncDecl) {
	sig, ok := c.tables.Functions[fn.Name]
	if !ok {
		// Extension methods aren't registered under their own bare name;
		// resolve the return type directly off the declaration instead.
		sig = &FuncSignature{Return: c.returnTypeOf(fn)}
	}
	result, ok := sig.Return.(*types.Result)
	if !ok {
		result = &types.Result{Ok: sig.Return, Err: defaultErrorType()}
	}
	c.funcReturn = result
	c.borrow = NewBorrowChecker(c.rep)

	scope := NewScope(nil)
	for _, p := range fn.Params {
		scope.Declare(p.Name, c.tables.ResolveTypeExpr(p.Type))
	}
	if fn.ReceiverType != nil {
		scope.Declare("self", c.tables.ResolveTypeExpr(fn.ReceiverType))
	}
	c.checkBlock(fn.Body, scope)
}

func (c *Checker) returnTypeOf(fn *ast.FuncDecl) types.Type {
	if rt, ok := fn.ReturnType.(*ast.ResultTypeExpr); ok {
		return &types.Result{Ok: c.tables.ResolveTypeExpr(rt.Ok), Err: c.tables.ResolveTypeExpr(rt.Err)}
	}
	return &types.Result{Ok: c.tables.ResolveTypeExpr(fn.ReturnType), Err: defaultErrorType()}
}

func (c *Checker) checkBlock(stmts []ast.Stmt, scope *Scope) {
	for _, s := range stmts {
		c.checkStmt(s, scope)
	}
	c.borrow.ExitScope(scope)
}

func (c *Checker) checkStmt(s ast.Stmt, scope *Scope) {
	switch n := s.(type) {
	case *ast.LetStmt:
		c.checkLet(n, scope)
	case *ast.RebindStmt:
		c.checkRebind(n, scope)
	case *ast.ReturnStmt:
		c.checkReturn(n, scope)
	case *ast.IfStmt:
		cond, condT := c.checkExpr(n.Cond, scope)
		n.Cond = cond
		if !isBool(condT) {
			c.rep.Error(diag.CE2005, diag.StageTypeck, toSpan(n.Cond.Span()), "if condition must be bool, got %s", show(condT))
		}
		c.checkBlock(n.Then, NewScope(scope))
		if n.Else != nil {
			c.checkBlock(n.Else, NewScope(scope))
		}
	case *ast.WhileStmt:
		cond, condT := c.checkExpr(n.Cond, scope)
		n.Cond = cond
		if !isBool(condT) {
			c.rep.Error(diag.CE2005, diag.StageTypeck, toSpan(n.Cond.Span()), "while condition must be bool, got %s", show(condT))
		}
		c.checkBlock(n.Body, NewScope(scope))
	case *ast.ForeachStmt:
		c.checkForeach(n, scope)
	case *ast.MatchStmt:
		c.checkMatch(n, scope)
	case *ast.PrintStmt:
		val, valT := c.checkExpr(n.Value, scope)
		n.Value = val
		if _, isResult := valT.(*types.Result); isResult {
			c.rep.Error(diag.CE2037, diag.StageTypeck, toSpan(n.Value.Span()), "cannot print a Result directly; unwrap it first")
		}
	case *ast.ExprStmt:
		e, _ := c.checkExpr(n.Expr, scope)
		n.Expr = e
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no type obligations
	}
}

func (c *Checker) checkLet(n *ast.LetStmt, scope *Scope) {
	var declared types.Type
	if n.DeclaredType != nil {
		declared = c.tables.ResolveRecursive(c.tables.ResolveTypeExpr(n.DeclaredType))
		if b, ok := declared.(*types.Builtin); ok && b.Kind == types.Blank {
			c.rep.Error(diag.CE2032, diag.StageTypeck, toSpan(n.Sp), "%q cannot be declared with type ~", n.Name)
		}
		c.propagateExpected(n.Init, declared)
	}
	init, initT := c.checkExpr(n.Init, scope)
	n.Init = init
	if declared == nil {
		declared = initT
	} else if !c.compat(initT, declared) {
		c.rep.Error(diag.CE2002, diag.StageTypeck, toSpan(n.Init.Span()), "cannot assign %s to %q of type %s", show(initT), n.Name, show(declared))
	}
	n.Resolved = declared
	sym := scope.Declare(n.Name, declared)
	c.borrow.Declare(sym)
}

func (c *Checker) checkRebind(n *ast.RebindStmt, scope *Scope) {
	target, targetT := c.checkExpr(n.Target, scope)
	n.Target = target
	if name, ok := n.Target.(*ast.Name); ok {
		if sym := scope.Lookup(name.Ident); sym != nil {
			if err := c.borrow.CheckMutate(sym); err != "" {
				c.rep.Error(diag.CE3003, diag.StageBorrow, toSpan(n.Sp), "%s", err)
			}
		}
	}
	if ref, ok := targetT.(*types.Reference); ok {
		targetT = ref.Inner
	}
	c.propagateExpected(n.Value, targetT)
	value, valueT := c.checkExpr(n.Value, scope)
	n.Value = value
	if !c.compat(valueT, targetT) {
		c.rep.Error(diag.CE2002, diag.StageTypeck, toSpan(n.Value.Span()), "cannot assign %s to target of type %s", show(valueT), show(targetT))
	}
}

func (c *Checker) checkReturn(n *ast.ReturnStmt, scope *Scope) {
	if n.Value == nil {
		c.rep.Error(diag.CE2030, diag.StageTypeck, toSpan(n.Sp), "return must produce Result.Ok(...)/Result.Err(...)")
		return
	}
	if dc, ok := n.Value.(*ast.DotCall); ok {
		if name, ok := dc.Base.(*ast.Name); ok && scope.Lookup(name.Ident) == nil {
			if _, isEnum := c.tables.Enums[name.Ident]; isEnum || c.tables.IsGenericEnumBase(name.Ident) {
				ec := &ast.EnumConstructor{EnumName: name.Ident, Variant: dc.Name, Args: dc.Args}
				ec.Sp = dc.Sp
				n.Value = ec
			}
		}
	}
	if c.funcReturn != nil {
		c.propagateExpected(n.Value, c.funcReturn)
	}
	val, valT := c.checkExpr(n.Value, scope)
	n.Value = val
	ec, ok := val.(*ast.EnumConstructor)
	if !ok || (ec.Variant != "Ok" && ec.Variant != "Err") {
		c.rep.Error(diag.CE2030, diag.StageTypeck, toSpan(n.Sp), "return must use Result.Ok(...) or Result.Err(...), not a bare value")
		return
	}
	if c.funcReturn != nil && !c.compat(valT, c.funcReturn) {
		c.rep.Error(diag.CE2003, diag.StageTypeck, toSpan(n.Sp), "return type %s incompatible with declared %s", show(valT), show(c.funcReturn))
	}
	if name, ok := underlyingName(n.Value); ok {
		if sym := scope.Lookup(name); sym != nil {
			n.Moved = true
			c.borrow.Move(sym)
		}
	}
}

func underlyingName(e ast.Expr) (string, bool) {
	if nm, ok := e.(*ast.Name); ok {
		return nm.Ident, true
	}
	return "", false
}

func (c *Checker) checkForeach(n *ast.ForeachStmt, scope *Scope) {
	iterable, iterT := c.checkExpr(n.Iterable, scope)
	n.Iterable = iterable
	var elem types.Type = types.TypeI32
	switch it := iterT.(type) {
	case *types.Iterator:
		elem = it.Element
	case *types.DynArray:
		elem = it.Base
	case *types.Array:
		elem = it.Base
	}
	if n.DeclaredType != nil {
		elem = c.tables.ResolveTypeExpr(n.DeclaredType)
	}
	n.ItemType = elem
	inner := NewScope(scope)
	sym := inner.Declare(n.Item, elem)
	c.borrow.Declare(sym)
	c.checkBlock(n.Body, inner)
}

// propagateExpected pushes an expected type into a constructor node before
// it is validated, so generic constructors
// know which monomorph they target.
func (c *Checker) propagateExpected(e ast.Expr, expected types.Type) {
	switch n := e.(type) {
	case *ast.EnumConstructor:
		c.resolveEnumConstructorTarget(n, expected)
	case *ast.StructConstructor:
		if st, ok := expected.(*types.Struct); ok {
			n.Resolved = st
		}
	}
}

func (c *Checker) resolveEnumConstructorTarget(n *ast.EnumConstructor, expected types.Type) {
	switch ex := expected.(type) {
	case *types.Result:
		n.Resolved = ex.AsEnum()
	case *types.Enum:
		n.Resolved = ex
	}
}

func isBool(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind == types.Bool
}

func show(t types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

