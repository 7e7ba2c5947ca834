package sema

import (
	"fmt"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// Monomorphize instantiates the generic base (a user struct/enum or one
// of the predefined Result/Maybe/Own/HashMap/List templates) for the
// given type arguments, memoizing on the mangled name so repeated
// requests return the identical value (invariant M1).
func (t *Tables) Monomorphize(base string, args []types.Type) (types.Type, error) {
	mangled := types.MangledName(base, args)
	if st, ok := t.Structs[mangled]; ok {
		return st, nil
	}
	if en, ok := t.Enums[mangled]; ok {
		return en, nil
	}

	if gt, ok := t.GenericEnums[base]; ok {
		if len(args) != len(gt.TypeParams) {
			return nil, fmt.Errorf("generic enum %s expects %d type args, got %d", base, len(gt.TypeParams), len(args))
		}
		en, err := t.instantiateEnum(gt, args, mangled)
		if err != nil {
			return nil, err
		}
		t.Enums[mangled] = en
		return en, nil
	}

	if gt, ok := t.GenericStructs[base]; ok {
		if len(args) != len(gt.TypeParams) {
			return nil, fmt.Errorf("generic struct %s expects %d type args, got %d", base, len(gt.TypeParams), len(args))
		}
		st, err := t.instantiateStruct(gt, args, mangled)
		if err != nil {
			return nil, err
		}
		t.Structs[mangled] = st
		return st, nil
	}

	return nil, fmt.Errorf("no generic template named %q", base)
}

func (t *Tables) instantiateEnum(gt *GenericEnumTemplate, args []types.Type, mangled string) (*types.Enum, error) {
	switch gt.Predefined {
	case "Result":
		return (&types.Result{Ok: args[0], Err: args[1]}).AsEnum(), nil
	case "Maybe":
		return &types.Enum{
			Name: mangled, GenericBase: "Maybe", GenericArgs: args,
			Variants: []types.EnumVariant{
				{Name: "Some", Associated: []types.Type{args[0]}},
				{Name: "None"},
			},
		}, nil
	}
	if gt.Decl == nil {
		return nil, fmt.Errorf("generic enum %s has no declaration to instantiate", gt.Name)
	}
	subst := substMap(gt.TypeParams, args)
	variants := make([]types.EnumVariant, len(gt.Decl.Variants))
	for i, v := range gt.Decl.Variants {
		assoc := make([]types.Type, len(v.Associated))
		for j, a := range v.Associated {
			assoc[j] = t.substituteTypeExpr(a, subst)
		}
		variants[i] = types.EnumVariant{Name: v.Name, Associated: assoc}
	}
	return &types.Enum{Name: mangled, GenericBase: gt.Name, GenericArgs: args, Variants: variants}, nil
}

func (t *Tables) instantiateStruct(gt *GenericStructTemplate, args []types.Type, mangled string) (*types.Struct, error) {
	switch gt.Predefined {
	case "Own":
		return &types.Struct{
			Name: mangled, GenericBase: "Own", GenericArgs: args,
			Fields: []types.StructField{{Name: "ptr", Type: &types.Pointer{Pointee: args[0]}}},
		}, nil
	case "HashMap":
		k, v := args[0], args[1]
		entry := &types.Struct{
			Name:        fmt.Sprintf("Entry<%s, %s>", k, v),
			GenericBase: "Entry", GenericArgs: args,
			Fields: []types.StructField{
				{Name: "key", Type: k},
				{Name: "value", Type: v},
				{Name: "state", Type: types.TypeU8},
			},
		}
		return &types.Struct{
			Name: mangled, GenericBase: "HashMap", GenericArgs: args,
			Fields: []types.StructField{
				{Name: "buckets", Type: &types.DynArray{Base: entry}},
				{Name: "size", Type: types.TypeI32},
				{Name: "capacity", Type: types.TypeI32},
				{Name: "tombstones", Type: types.TypeI32},
			},
		}, nil
	case "List":
		return &types.Struct{
			Name: mangled, GenericBase: "List", GenericArgs: args,
			Fields: []types.StructField{{Name: "items", Type: &types.DynArray{Base: args[0]}}},
		}, nil
	}
	if gt.Decl == nil {
		return nil, fmt.Errorf("generic struct %s has no declaration to instantiate", gt.Name)
	}
	subst := substMap(gt.TypeParams, args)
	fields := make([]types.StructField, len(gt.Decl.Fields))
	for i, f := range gt.Decl.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: t.substituteTypeExpr(f.Type, subst)}
	}
	return &types.Struct{Name: mangled, GenericBase: gt.Name, GenericArgs: args, Fields: fields}, nil
}

// MonomorphizeFunc instantiates a generic function template for the given
// type arguments, memoizing the concrete signature under its mangled name
// in Functions exactly like a struct/enum monomorph (invariant M1).
func (t *Tables) MonomorphizeFunc(name string, args []types.Type) (*FuncSignature, string, error) {
	mangled := types.MangledName(name, args)
	if sig, ok := t.Functions[mangled]; ok {
		return sig, mangled, nil
	}
	gt, ok := t.GenericFunctions[name]
	if !ok {
		return nil, "", fmt.Errorf("no generic function named %q", name)
	}
	if len(args) != len(gt.TypeParams) {
		return nil, "", fmt.Errorf("generic function %s expects %d type args, got %d", name, len(gt.TypeParams), len(args))
	}
	subst := substMap(gt.TypeParams, args)
	sig := &FuncSignature{
		Name:       mangled,
		Params:     make([]types.Type, len(gt.Decl.Params)),
		ParamNames: make([]string, len(gt.Decl.Params)),
		Return:     t.resolveReturnWithSubst(gt.Decl.ReturnType, subst),
		Visibility: gt.Decl.Visibility,
		IsStdlib:   gt.Decl.IsStdlib,
		IsLibrary:  gt.Decl.IsLibrary,
		IsGeneric:  false,
		Decl:       gt.Decl,
	}
	for i, p := range gt.Decl.Params {
		sig.Params[i] = t.substituteTypeExpr(p.Type, subst)
		sig.ParamNames[i] = p.Name
	}
	t.Functions[mangled] = sig
	return sig, mangled, nil
}

// resolveReturnWithSubst mirrors Collector.resolveReturn but substitutes
// generic type parameters first, for use while instantiating a generic
// function template.
func (t *Tables) resolveReturnWithSubst(rt ast.TypeExpr, subst map[string]types.Type) types.Type {
	if result, ok := rt.(*ast.ResultTypeExpr); ok {
		return &types.Result{Ok: t.substituteTypeExpr(result.Ok, subst), Err: t.substituteTypeExpr(result.Err, subst)}
	}
	return &types.Result{Ok: t.substituteTypeExpr(rt, subst), Err: defaultErrorType()}
}

// inferTypeArgs attempts to unify each generic parameter's declared type
// expression against the checked type of the corresponding call argument,
// producing a type-argument list in TypeParams order. Unresolved
// parameters are left nil; the caller reports CE0045 on any gap.
func inferTypeArgs(typeParams []string, params []ast.Param, argTypes []types.Type) []types.Type {
	want := make(map[string]types.Type, len(typeParams))
	n := len(params)
	if len(argTypes) < n {
		n = len(argTypes)
	}
	for i := 0; i < n; i++ {
		unifyTypeExpr(params[i].Type, argTypes[i], want)
	}
	out := make([]types.Type, len(typeParams))
	for i, p := range typeParams {
		out[i] = want[p]
	}
	return out
}

func unifyTypeExpr(te ast.TypeExpr, actual types.Type, want map[string]types.Type) {
	if actual == nil {
		return
	}
	switch n := te.(type) {
	case *ast.NamedTypeExpr:
		if _, already := want[n.Name]; !already {
			want[n.Name] = actual
		}
	case *ast.ArrayTypeExpr:
		if a, ok := actual.(*types.Array); ok {
			unifyTypeExpr(n.Elem, a.Base, want)
		}
	case *ast.DynArrayTypeExpr:
		if a, ok := actual.(*types.DynArray); ok {
			unifyTypeExpr(n.Elem, a.Base, want)
		}
	case *ast.RefTypeExpr:
		if r, ok := actual.(*types.Reference); ok {
			unifyTypeExpr(n.Inner, r.Inner, want)
		}
	case *ast.GenericTypeExpr:
		if g, ok := actual.(*types.Struct); ok && len(g.GenericArgs) == len(n.Args) {
			for i, a := range n.Args {
				unifyTypeExpr(a, g.GenericArgs[i], want)
			}
		} else if g, ok := actual.(*types.Enum); ok && len(g.GenericArgs) == len(n.Args) {
			for i, a := range n.Args {
				unifyTypeExpr(a, g.GenericArgs[i], want)
			}
		}
	}
}

func substMap(params []string, args []types.Type) map[string]types.Type {
	m := make(map[string]types.Type, len(params))
	for i, p := range params {
		if i < len(args) {
			m[p] = args[i]
		}
	}
	return m
}

// substituteTypeExpr resolves a field/variant type expression, replacing
// any bare type-parameter name with its concrete substitution before
// falling back to normal resolution. Re-queues nested GenericTypeRef
// instantiations so substitution runs to a fixed point.
func (t *Tables) substituteTypeExpr(te ast.TypeExpr, subst map[string]types.Type) types.Type {
	return t.ResolveRecursive(t.resolveWithSubst(te, subst))
}

// resolveWithSubst mirrors Tables.ResolveTypeExpr but substitutes a bare
// named reference for a type parameter before consulting the tables, and
// recurses the substitution into generic-type-expr arguments.
func (t *Tables) resolveWithSubst(te ast.TypeExpr, subst map[string]types.Type) types.Type {
	switch n := te.(type) {
	case *ast.NamedTypeExpr:
		if concrete, ok := subst[n.Name]; ok {
			return concrete
		}
		return t.ResolveUnknown(&types.Unknown{Name: n.Name})
	case *ast.ArrayTypeExpr:
		return &types.Array{Base: t.resolveWithSubst(n.Elem, subst), Size: n.Size}
	case *ast.DynArrayTypeExpr:
		return &types.DynArray{Base: t.resolveWithSubst(n.Elem, subst)}
	case *ast.RefTypeExpr:
		mode := types.Peek
		if n.Poke {
			mode = types.Poke
		}
		return &types.Reference{Inner: t.resolveWithSubst(n.Inner, subst), Mode: mode}
	case *ast.GenericTypeExpr:
		args := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.resolveWithSubst(a, subst)
		}
		return t.ResolveUnknown(&types.GenericTypeRef{Base: n.Base, Args: args})
	case *ast.ResultTypeExpr:
		return &types.Result{Ok: t.resolveWithSubst(n.Ok, subst), Err: t.resolveWithSubst(n.Err, subst)}
	default:
		return t.ResolveTypeExpr(te)
	}
}
