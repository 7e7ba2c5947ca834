package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// emitFuncBody fills in the previously-declared LLVM function's entry
// block and body, following the dshills-alas pattern of one alloca per
// parameter/local rather than SSA-form registers directly, so a later
// rebind can just re-store rather than needing phi nodes.
func (g *Generator) emitFuncBody(name string, fn *ast.FuncDecl) error {
	llvmFn, ok := g.funcs[name]
	if !ok {
		return fmt.Errorf("codegen: function %s was never declared", name)
	}
	retTy, err := g.resolveDeclReturn(fn)
	if err != nil {
		return err
	}

	entry := llvmFn.NewBlock("entry")
	fc := &funcContext{llvmFn: llvmFn, block: entry, locals: map[string]*localVar{}, retType: retTy}
	g.fn = fc
	fc.scopes = append(fc.scopes, &scopeFrame{})

	paramOffset := 0
	if fn.ReceiverType != nil {
		if err := g.declareParamLocal("self", g.tables.ResolveTypeExpr(fn.ReceiverType), llvmFn.Params[0]); err != nil {
			return err
		}
		paramOffset = 1
	}
	for i, p := range fn.Params {
		if err := g.declareParamLocal(p.Name, g.tables.ResolveTypeExpr(p.Type), llvmFn.Params[i+paramOffset]); err != nil {
			return err
		}
	}

	if err := g.emitBlock(fn.Body); err != nil {
		return err
	}

	// Every path through a well-checked function body ends in a return
	// (the checker rejects implicit fallthrough out of a non-blank
	// function); a blank-returning function falls through to a bare ret.
	if fc.block.Term == nil {
		fc.block.NewRet(nil)
	}
	g.fn = nil
	return nil
}

func (g *Generator) declareParamLocal(name string, t types.Type, param *ir.Param) error {
	llvmTy, err := g.mapType(t)
	if err != nil {
		return err
	}
	alloca := g.fn.block.NewAlloca(llvmTy)
	g.fn.block.NewStore(param, alloca)
	g.fn.locals[name] = &localVar{alloca: alloca, typ: t, llvmTyp: llvmTy}
	g.fn.scopes[len(g.fn.scopes)-1].names = append(g.fn.scopes[len(g.fn.scopes)-1].names, name)
	return nil
}

func (g *Generator) emitBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if g.fn.block.Term != nil {
			break // unreachable code after a terminator (e.g. after return)
		}
		if err := g.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// pushScope/popScope bracket a lexical block for the destructor engine
// (C12, invariant D1): locals declared since pushScope get their
// destructor called, in reverse order, when popScope runs, unless they
// were moved (ReturnStmt.Moved) or already destroy()'d by hand.
func (g *Generator) pushScope() {
	g.fn.scopes = append(g.fn.scopes, &scopeFrame{})
}

func (g *Generator) popScope(moved map[string]bool) error {
	frame := g.fn.scopes[len(g.fn.scopes)-1]
	g.fn.scopes = g.fn.scopes[:len(g.fn.scopes)-1]
	for i := len(frame.names) - 1; i >= 0; i-- {
		name := frame.names[i]
		if moved != nil && moved[name] {
			continue
		}
		lv, ok := g.fn.locals[name]
		delete(g.fn.locals, name)
		if !ok {
			continue // already destroy()'d by hand
		}
		if g.fn.block.Term != nil {
			continue // already returned/branched away; destructor unreachable
		}
		if err := g.emitDestroy(lv); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) emitStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.LetStmt:
		return g.emitLet(n)
	case *ast.RebindStmt:
		return g.emitRebind(n)
	case *ast.ReturnStmt:
		return g.emitReturn(n)
	case *ast.IfStmt:
		return g.emitIf(n)
	case *ast.WhileStmt:
		return g.emitWhile(n)
	case *ast.ForeachStmt:
		return g.emitForeach(n)
	case *ast.MatchStmt:
		return g.emitMatch(n)
	case *ast.PrintStmt:
		return g.emitPrint(n)
	case *ast.ExprStmt:
		_, err := g.emitExpr(n.Expr)
		return err
	case *ast.BreakStmt:
		if len(g.fn.loopEnd) == 0 {
			return fmt.Errorf("codegen: break outside a loop")
		}
		g.fn.block.NewBr(g.fn.loopEnd[len(g.fn.loopEnd)-1])
		return nil
	case *ast.ContinueStmt:
		if len(g.fn.loopCond) == 0 {
			return fmt.Errorf("codegen: continue outside a loop")
		}
		g.fn.block.NewBr(g.fn.loopCond[len(g.fn.loopCond)-1])
		return nil
	default:
		return fmt.Errorf("codegen: unsupported statement %T", s)
	}
}

func (g *Generator) emitLet(n *ast.LetStmt) error {
	val, err := g.emitExpr(n.Init)
	if err != nil {
		return err
	}
	llvmTy, err := g.mapType(n.Resolved)
	if err != nil {
		return err
	}
	alloca := g.fn.block.NewAlloca(llvmTy)
	g.fn.block.NewStore(val, alloca)
	g.fn.locals[n.Name] = &localVar{alloca: alloca, typ: n.Resolved, llvmTyp: llvmTy}
	frame := g.fn.scopes[len(g.fn.scopes)-1]
	frame.names = append(frame.names, n.Name)
	return nil
}

func (g *Generator) emitRebind(n *ast.RebindStmt) error {
	val, err := g.emitExpr(n.Value)
	if err != nil {
		return err
	}
	ptr, _, err := g.emitLValue(n.Target)
	if err != nil {
		return err
	}
	g.fn.block.NewStore(val, ptr)
	return nil
}

// emitLValue resolves an assignable expression (a bare name or a
// member-access chain ending in one) to its storage pointer.
func (g *Generator) emitLValue(e ast.Expr) (value.Value, types.Type, error) {
	switch n := e.(type) {
	case *ast.Name:
		lv, ok := g.fn.locals[n.Ident]
		if !ok {
			return nil, nil, fmt.Errorf("codegen: unknown local %q", n.Ident)
		}
		return lv.alloca, lv.typ, nil
	case *ast.MemberAccess:
		basePtr, baseTy, err := g.emitLValue(n.Base)
		if err != nil {
			return nil, nil, err
		}
		st, ok := baseTy.(*types.Struct)
		if !ok {
			return nil, nil, fmt.Errorf("codegen: member access on non-struct lvalue")
		}
		idx := st.FieldIndex(n.Field)
		if idx < 0 {
			return nil, nil, fmt.Errorf("codegen: unknown field %q on %s", n.Field, st.Name)
		}
		structTy := g.structType(st)
		fieldPtr := g.fn.block.NewGetElementPtr(structTy, basePtr,
			constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(idx)))
		return fieldPtr, st.Fields[idx].Type, nil
	default:
		return nil, nil, fmt.Errorf("codegen: unsupported assignment target %T", e)
	}
}

func (g *Generator) emitReturn(n *ast.ReturnStmt) error {
	val, err := g.emitExpr(n.Value)
	if err != nil {
		return err
	}
	moved := map[string]bool{}
	if n.Moved {
		if name, ok := underlyingLocalName(n.Value); ok {
			moved[name] = true
		}
	}
	// Run every open scope's destructors (outermost included) before the
	// return, since control is leaving the function entirely.
	for i := len(g.fn.scopes) - 1; i >= 0; i-- {
		frame := g.fn.scopes[i]
		for j := len(frame.names) - 1; j >= 0; j-- {
			name := frame.names[j]
			if moved[name] {
				continue
			}
			if lv, ok := g.fn.locals[name]; ok {
				if err := g.emitDestroy(lv); err != nil {
					return err
				}
			}
		}
	}
	g.fn.block.NewRet(val)
	return nil
}

func underlyingLocalName(e ast.Expr) (string, bool) {
	ec, ok := e.(*ast.EnumConstructor)
	if !ok || len(ec.Args) != 1 {
		return "", false
	}
	if nm, ok := ec.Args[0].(*ast.Name); ok {
		return nm.Ident, true
	}
	return "", false
}

func (g *Generator) emitIf(n *ast.IfStmt) error {
	cond, err := g.emitExpr(n.Cond)
	if err != nil {
		return err
	}
	thenBlock := g.fn.llvmFn.NewBlock("")
	elseBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(cond, thenBlock, elseBlock)

	g.fn.block = thenBlock
	g.pushScope()
	if err := g.emitBlock(n.Then); err != nil {
		return err
	}
	if err := g.popScope(nil); err != nil {
		return err
	}
	if g.fn.block.Term == nil {
		g.fn.block.NewBr(endBlock)
	}

	g.fn.block = elseBlock
	g.pushScope()
	if n.Else != nil {
		if err := g.emitBlock(n.Else); err != nil {
			return err
		}
	}
	if err := g.popScope(nil); err != nil {
		return err
	}
	if g.fn.block.Term == nil {
		g.fn.block.NewBr(endBlock)
	}

	g.fn.block = endBlock
	return nil
}

func (g *Generator) emitWhile(n *ast.WhileStmt) error {
	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")

	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	cond, err := g.emitExpr(n.Cond)
	if err != nil {
		return err
	}
	g.fn.block.NewCondBr(cond, bodyBlock, endBlock)

	g.fn.block = bodyBlock
	g.fn.loopCond = append(g.fn.loopCond, condBlock)
	g.fn.loopEnd = append(g.fn.loopEnd, endBlock)
	g.pushScope()
	if err := g.emitBlock(n.Body); err != nil {
		return err
	}
	if err := g.popScope(nil); err != nil {
		return err
	}
	g.fn.loopCond = g.fn.loopCond[:len(g.fn.loopCond)-1]
	g.fn.loopEnd = g.fn.loopEnd[:len(g.fn.loopEnd)-1]
	if g.fn.block.Term == nil {
		g.fn.block.NewBr(condBlock)
	}

	g.fn.block = endBlock
	return nil
}

func (g *Generator) emitPrint(n *ast.PrintStmt) error {
	val, err := g.emitExpr(n.Value)
	if err != nil {
		return err
	}
	return g.runtimePrint(val, n.Value.Type(), n.Newline)
}
