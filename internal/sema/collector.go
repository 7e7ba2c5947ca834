package sema

import (
	"strings"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/lexer"
	"github.com/sushi-lang/sushi/internal/types"
)

// Collector is C3: a single walk over the parsed file that populates C2
// (the Tables) and registers every `use` module's stdlib externs. It runs
// before type resolution proper, so declarations may forward-reference
// each other freely within the file.
type Collector struct {
	tables *Tables
	rep    *diag.Reporter
}

// NewCollector creates a collector writing into tables and reporting
// redeclaration errors through rep.
func NewCollector(tables *Tables, rep *diag.Reporter) *Collector {
	return &Collector{tables: tables, rep: rep}
}

// Collect walks file's uses and top-level declarations.
func (c *Collector) Collect(file *ast.File) {
	for _, u := range file.Uses {
		c.tables.RegisterStdlibUse(strings.Join(u.Path, "/"))
	}
	for _, d := range file.Decls {
		c.collectDecl(d)
	}
}

func (c *Collector) collectDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.ConstDecl:
		c.collectConst(n)
	case *ast.FuncDecl:
		c.collectFunc(n)
	case *ast.StructDecl:
		c.collectStruct(n)
	case *ast.EnumDecl:
		c.collectEnum(n)
	case *ast.PerkDecl:
		c.collectPerk(n)
	case *ast.ExtendDecl:
		c.collectExtend(n)
	}
}

func (c *Collector) collectConst(n *ast.ConstDecl) {
	if _, exists := c.tables.Constants[n.Name]; exists {
		c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "constant %q already declared", n.Name)
		return
	}
	c.tables.Constants[n.Name] = &ConstEntry{
		Name: n.Name,
		Type: c.tables.ResolveTypeExpr(n.Type),
		Init: n.Init,
	}
}

func (c *Collector) collectFunc(n *ast.FuncDecl) {
	if n.IsGeneric() {
		if _, exists := c.tables.GenericFunctions[n.Name]; exists {
			c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "generic function %q already declared", n.Name)
			return
		}
		c.tables.GenericFunctions[n.Name] = &GenericFuncTemplate{Name: n.Name, TypeParams: n.TypeParams, Decl: n}
		return
	}
	if _, exists := c.tables.Functions[n.Name]; exists {
		c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "function %q already declared", n.Name)
		return
	}
	sig := &FuncSignature{
		Name:       n.Name,
		Params:     make([]types.Type, len(n.Params)),
		ParamNames: make([]string, len(n.Params)),
		Return:     c.resolveReturn(n.ReturnType, n.Name),
		Visibility: n.Visibility,
		IsStdlib:   n.IsStdlib,
		IsLibrary:  n.IsLibrary,
		Decl:       n,
	}
	for i, p := range n.Params {
		sig.Params[i] = c.tables.ResolveTypeExpr(p.Type)
		sig.ParamNames[i] = p.Name
	}
	c.tables.Functions[n.Name] = sig
}

// resolveReturn lowers a function's declared return type, applying the
// implicit-Result-wrapping rule: a function's return
// value is always `Result<T, E>` even when written as a bare `T` or
// `T | E`. A `~` return type is wrapped the same way, as
// `Result<~, StdError>` (main() and ordinary functions alike).
func (c *Collector) resolveReturn(rt ast.TypeExpr, fnName string) types.Type {
	if result, ok := rt.(*ast.ResultTypeExpr); ok {
		return &types.Result{Ok: c.tables.ResolveTypeExpr(result.Ok), Err: c.tables.ResolveTypeExpr(result.Err)}
	}
	ok := c.tables.ResolveTypeExpr(rt)
	return &types.Result{Ok: ok, Err: defaultErrorType()}
}

func defaultErrorType() types.Type {
	return &types.Enum{Name: "StdError", Variants: []types.EnumVariant{
		{Name: "Generic", Associated: []types.Type{types.TypeString}},
	}}
}

func (c *Collector) collectStruct(n *ast.StructDecl) {
	if len(n.TypeParams) > 0 {
		if _, exists := c.tables.GenericStructs[n.Name]; exists {
			c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "struct %q already declared", n.Name)
			return
		}
		c.tables.GenericStructs[n.Name] = &GenericStructTemplate{Name: n.Name, TypeParams: n.TypeParams, Decl: n}
		return
	}
	if _, exists := c.tables.Structs[n.Name]; exists {
		c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "struct %q already declared", n.Name)
		return
	}
	fields := make([]types.StructField, len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: c.tables.ResolveTypeExpr(f.Type)}
	}
	c.tables.Structs[n.Name] = &types.Struct{Name: n.Name, Fields: fields}
}

func (c *Collector) collectEnum(n *ast.EnumDecl) {
	if len(n.TypeParams) > 0 {
		if _, exists := c.tables.GenericEnums[n.Name]; exists {
			c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "enum %q already declared", n.Name)
			return
		}
		c.tables.GenericEnums[n.Name] = &GenericEnumTemplate{Name: n.Name, TypeParams: n.TypeParams, Decl: n}
		return
	}
	if _, exists := c.tables.Enums[n.Name]; exists {
		c.rep.Error(diag.CodeDuplicateDecl, diag.StageCollect, toSpan(n.Sp), "enum %q already declared", n.Name)
		return
	}
	variants := make([]types.EnumVariant, len(n.Variants))
	for i, v := range n.Variants {
		assoc := make([]types.Type, len(v.Associated))
		for j, a := range v.Associated {
			assoc[j] = c.tables.ResolveTypeExpr(a)
		}
		variants[i] = types.EnumVariant{Name: v.Name, Associated: assoc}
	}
	c.tables.Enums[n.Name] = &types.Enum{Name: n.Name, Variants: variants}
}

func (c *Collector) collectPerk(n *ast.PerkDecl) {
	def := &PerkDef{Name: n.Name, Methods: make(map[string]*ast.FuncDecl)}
	for i := range n.Methods {
		def.Methods[n.Methods[i].Name] = &n.Methods[i]
	}
	c.tables.Perks[n.Name] = def
}

func (c *Collector) collectExtend(n *ast.ExtendDecl) {
	targetName, isGeneric := extendTargetName(n.Target)
	for _, m := range n.Methods {
		sig := &FuncSignature{
			Name:       m.Name,
			Params:     make([]types.Type, len(m.Params)),
			ParamNames: make([]string, len(m.Params)),
			Return:     c.resolveReturn(m.ReturnType, m.Name),
			Decl:       m,
		}
		for i, p := range m.Params {
			sig.Params[i] = c.tables.ResolveTypeExpr(p.Type)
			sig.ParamNames[i] = p.Name
		}
		if isGeneric {
			if c.tables.GenericExtensions[targetName] == nil {
				c.tables.GenericExtensions[targetName] = make(ExtensionMethods)
			}
			c.tables.GenericExtensions[targetName][m.Name] = sig
		} else {
			if c.tables.Extensions[targetName] == nil {
				c.tables.Extensions[targetName] = make(ExtensionMethods)
			}
			c.tables.Extensions[targetName][m.Name] = sig
		}
	}
	if n.Perk != "" {
		methods := make(map[string]*ast.FuncDecl, len(n.Methods))
		for _, m := range n.Methods {
			methods[m.Name] = m
		}
		c.tables.PerkImpls[targetName+"::"+n.Perk] = &PerkImpl{TypeName: targetName, PerkName: n.Perk, Methods: methods}
	}
}

// extendTargetName extracts the name an `extend` block attaches methods
// to, and reports whether that name is a generic base (so instantiations
// look the methods up via GenericExtensions instead of Extensions).
func extendTargetName(te ast.TypeExpr) (name string, generic bool) {
	switch n := te.(type) {
	case *ast.NamedTypeExpr:
		return n.Name, false
	case *ast.BuiltinTypeExpr:
		return n.Name, false
	case *ast.GenericTypeExpr:
		return n.Base, true
	default:
		return "", false
	}
}

func toSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}
