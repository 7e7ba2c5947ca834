// Package llvm lowers a checked Sushi AST directly to an in-memory LLVM
// module using github.com/llir/llvm's typed IR builder (ir/ir types/
// ir constant/ir value/ir enum) rather than hand-built IR text. There is
// no intermediate representation between the type-checked AST/symbol
// tables and LLVM IR: this package is components C10 (type mapping),
// C11 (expression/statement emission), C12 (destructor engine), C13
// (generic runtime), and C14 (platform externs).
package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/sema"
	"github.com/sushi-lang/sushi/internal/types"
)

// Generator holds all cross-function state for one compilation unit:
// the module under construction, every named/forward-declared struct
// and enum type, every declared Sushi function's LLVM counterpart, and
// the externs layer (C14).
type Generator struct {
	module *ir.Module
	tables *sema.Tables

	structTys   map[string]*irtypes.StructType
	enumTys     map[string]*irtypes.StructType
	dynArrayTys map[string]*irtypes.StructType
	stringTy    *irtypes.StructType

	funcs map[string]*ir.Func

	externs *externs

	// fn is the function currently being emitted into.
	fn *funcContext
}

// funcContext is the per-function emission state: the current block, the
// local-variable map (each a stack alloca, matching the alloca+store/
// load pattern emitters over github.com/llir/llvm idiomatically use),
// and the active scope stack the destructor engine walks at scope exit.
type funcContext struct {
	llvmFn  *ir.Func
	block   *ir.Block
	locals  map[string]*localVar
	scopes  []*scopeFrame
	retType types.Type

	// break/continue targets, innermost last.
	loopCond []*ir.Block
	loopEnd  []*ir.Block

	tmpCounter int
}

type localVar struct {
	alloca  value.Value // *ir.InstAlloca
	typ     types.Type
	llvmTyp irtypes.Type
}

// scopeFrame tracks locals declared in one lexical block, in declaration
// order, for RAII-style destructor emission (invariant D1: a struct/
// enum/DynArray/HashMap/List/Own local not moved or already destroyed by
// hand gets its destructor called when its scope exits, in reverse
// declaration order).
type scopeFrame struct {
	names []string
}

// NewGenerator creates an empty module ready for Generate.
func NewGenerator(tables *sema.Tables) *Generator {
	g := &Generator{
		module:      ir.NewModule(),
		tables:      tables,
		structTys:   map[string]*irtypes.StructType{},
		enumTys:     map[string]*irtypes.StructType{},
		dynArrayTys: map[string]*irtypes.StructType{},
		funcs:       map[string]*ir.Func{},
	}
	g.externs = declareExterns(g)
	return g
}

// Generate lowers file to a complete LLVM module. tables must already be
// sealed (every generic use monomorphized, every type resolved) by the
// time Generate runs; C10-C14 never re-derives anything C1-C9 already
// established.
func (g *Generator) Generate(file *ast.File) (*ir.Module, error) {
	// Pass 1: register every named struct/enum type (including
	// predefined and monomorphized generics) up front so forward
	// references between declaration order and use order always resolve.
	for _, s := range g.tables.Structs {
		g.structType(s)
	}
	for _, e := range g.tables.Enums {
		g.enumType(e)
	}

	// Pass 2: declare every function signature (so mutual recursion and
	// out-of-order calls resolve) before emitting any body.
	for _, d := range file.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			if n.IsGeneric() {
				continue
			}
			if err := g.declareFunc(n.Name, n); err != nil {
				return nil, err
			}
		case *ast.ExtendDecl:
			targetName, generic := extendTargetName(n.Target)
			if generic {
				continue
			}
			for _, m := range n.Methods {
				mangled := targetName + "." + m.Name
				if err := g.declareFunc(mangled, m); err != nil {
					return nil, err
				}
			}
		}
	}
	// Monomorphized generic functions are registered directly in
	// g.tables.Functions by C5; declare those too.
	for name, sig := range g.tables.Functions {
		if sig.Decl == nil || sig.IsGeneric {
			continue
		}
		if _, ok := g.funcs[name]; ok {
			continue
		}
		if err := g.declareFunc(name, sig.Decl); err != nil {
			return nil, err
		}
	}

	// Pass 3: emit bodies.
	for _, d := range file.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			if n.IsGeneric() {
				continue
			}
			if err := g.emitFuncBody(n.Name, n); err != nil {
				return nil, err
			}
		case *ast.ExtendDecl:
			targetName, generic := extendTargetName(n.Target)
			if generic {
				continue
			}
			for _, m := range n.Methods {
				if err := g.emitFuncBody(targetName+"."+m.Name, m); err != nil {
					return nil, err
				}
			}
		}
	}
	for name, sig := range g.tables.Functions {
		if sig.Decl == nil || sig.IsGeneric {
			continue
		}
		if g.fnHasBody(name) {
			continue
		}
		if err := g.emitFuncBody(name, sig.Decl); err != nil {
			return nil, err
		}
	}

	if err := g.emitMain(file); err != nil {
		return nil, err
	}
	return g.module, nil
}

func (g *Generator) fnHasBody(name string) bool {
	fn, ok := g.funcs[name]
	return ok && len(fn.Blocks) > 0
}

func extendTargetName(te ast.TypeExpr) (name string, generic bool) {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		return t.Name, false
	case *ast.GenericTypeExpr:
		return t.Base, true
	default:
		return "", false
	}
}

// declareFunc registers fn's LLVM signature (no body) under name.
func (g *Generator) declareFunc(name string, fn *ast.FuncDecl) error {
	retTy, err := g.resolveDeclReturn(fn)
	if err != nil {
		return err
	}
	llvmRet, err := g.mapType(retTy)
	if err != nil {
		return fmt.Errorf("function %s: %w", name, err)
	}

	var params []*ir.Param
	if fn.ReceiverType != nil {
		rt := g.tables.ResolveTypeExpr(fn.ReceiverType)
		pt, err := g.mapType(rt)
		if err != nil {
			return err
		}
		params = append(params, ir.NewParam("self", pt))
	}
	for _, p := range fn.Params {
		pt, err := g.mapType(g.tables.ResolveTypeExpr(p.Type))
		if err != nil {
			return fmt.Errorf("function %s, param %s: %w", name, p.Name, err)
		}
		params = append(params, ir.NewParam(p.Name, pt))
	}

	llvmFn := g.module.NewFunc(llvmSymbol(name), llvmRet, params...)
	g.funcs[name] = llvmFn
	return nil
}

// resolveDeclReturn returns the full Result<T,E> type a function's
// declaration resolves to (its implicit Result wrapping included), since
// the emitted LLVM function itself returns the full Result enum pointer.
func (g *Generator) resolveDeclReturn(fn *ast.FuncDecl) (types.Type, error) {
	if sig, ok := g.tables.Functions[fn.Name]; ok {
		return sig.Return, nil
	}
	if rt, ok := fn.ReturnType.(*ast.ResultTypeExpr); ok {
		ok2 := g.tables.ResolveTypeExpr(rt.Ok)
		err2 := g.tables.ResolveTypeExpr(rt.Err)
		return &types.Result{Ok: ok2, Err: err2}, nil
	}
	return &types.Result{Ok: g.tables.ResolveTypeExpr(fn.ReturnType), Err: types.TypeString}, nil
}

// llvmName mangles a Sushi qualified name (which may contain `.`/`<`/`>`
// from extension methods and monomorphized generics) into a legal LLVM
// identifier.
func llvmName(name string) string {
	return sanitize(name)
}

// llvmSymbol is llvmName plus one reservation: the Sushi entry point
// keeps the name "main" at the source level, but emitMain exports its
// own C-ABI `int main(void)` wrapper under that exact symbol, so the
// wrapped Sushi function itself must not also claim it.
func llvmSymbol(name string) string {
	if name == "main" {
		return "__sushi_main"
	}
	return llvmName(name)
}
