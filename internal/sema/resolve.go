package sema

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// ResolveTypeExpr lowers a parsed type expression into a types.Type. Named
// references that don't match a primitive become Unknown(name) or
// GenericTypeRef(base, args); a later call to ResolveUnknown (or the
// monomorphizer) finishes the job.
func (t *Tables) ResolveTypeExpr(te ast.TypeExpr) types.Type {
	switch n := te.(type) {
	case *ast.BuiltinTypeExpr:
		return builtinByName(n.Name)
	case *ast.NamedTypeExpr:
		return t.ResolveUnknown(&types.Unknown{Name: n.Name})
	case *ast.ArrayTypeExpr:
		return &types.Array{Base: t.ResolveTypeExpr(n.Elem), Size: n.Size}
	case *ast.DynArrayTypeExpr:
		return &types.DynArray{Base: t.ResolveTypeExpr(n.Elem)}
	case *ast.RefTypeExpr:
		mode := types.Peek
		if n.Poke {
			mode = types.Poke
		}
		return &types.Reference{Inner: t.ResolveTypeExpr(n.Inner), Mode: mode}
	case *ast.GenericTypeExpr:
		args := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.ResolveTypeExpr(a)
		}
		return t.ResolveUnknown(&types.GenericTypeRef{Base: n.Base, Args: args})
	case *ast.ResultTypeExpr:
		return &types.Result{Ok: t.ResolveTypeExpr(n.Ok), Err: t.ResolveTypeExpr(n.Err)}
	}
	return &types.Unknown{Name: "?"}
}

func builtinByName(name string) types.Type {
	switch name {
	case "i8":
		return types.TypeI8
	case "i16":
		return types.TypeI16
	case "i32":
		return types.TypeI32
	case "i64":
		return types.TypeI64
	case "u8":
		return types.TypeU8
	case "u16":
		return types.TypeU16
	case "u32":
		return types.TypeU32
	case "u64":
		return types.TypeU64
	case "f32":
		return types.TypeF32
	case "f64":
		return types.TypeF64
	case "bool":
		return types.TypeBool
	case "string":
		return types.TypeString
	case "~":
		return types.TypeBlank
	default:
		return types.TypeBlank
	}
}

// ResolveUnknown turns an Unknown(name) or GenericTypeRef(base, args) into
// a concrete Struct/Enum, instantiating generics on demand via the
// monomorphizer. Anything it can't resolve yet is returned unchanged so a
// later fixed-point pass can retry.
func (t *Tables) ResolveUnknown(ty types.Type) types.Type {
	switch n := ty.(type) {
	case *types.Unknown:
		if st, ok := t.Structs[n.Name]; ok {
			return st
		}
		if en, ok := t.Enums[n.Name]; ok {
			return en
		}
		if _, ok := t.GenericStructs[n.Name]; ok {
			return &types.GenericTypeRef{Base: n.Name}
		}
		if _, ok := t.GenericEnums[n.Name]; ok {
			return &types.GenericTypeRef{Base: n.Name}
		}
		return n
	case *types.GenericTypeRef:
		mangled := types.MangledName(n.Base, n.Args)
		if st, ok := t.Structs[mangled]; ok {
			return st
		}
		if en, ok := t.Enums[mangled]; ok {
			return en
		}
		if concrete, err := t.Monomorphize(n.Base, n.Args); err == nil {
			return concrete
		}
		return n
	default:
		return ty
	}
}

// ResolveRecursive descends into container types, resolving every nested
// Unknown/GenericTypeRef it finds.
func (t *Tables) ResolveRecursive(ty types.Type) types.Type {
	ty = t.ResolveUnknown(ty)
	switch n := ty.(type) {
	case *types.Array:
		return &types.Array{Base: t.ResolveRecursive(n.Base), Size: n.Size}
	case *types.DynArray:
		return &types.DynArray{Base: t.ResolveRecursive(n.Base)}
	case *types.Reference:
		return &types.Reference{Inner: t.ResolveRecursive(n.Inner), Mode: n.Mode}
	case *types.Pointer:
		return &types.Pointer{Pointee: t.ResolveRecursive(n.Pointee)}
	case *types.Result:
		return &types.Result{Ok: t.ResolveRecursive(n.Ok), Err: t.ResolveRecursive(n.Err)}
	case *types.GenericTypeRef:
		args := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.ResolveRecursive(a)
		}
		return t.ResolveUnknown(&types.GenericTypeRef{Base: n.Base, Args: args})
	default:
		return ty
	}
}

// HasUnresolved reports whether ty still contains an Unknown,
// GenericTypeRef, or TypeParameter anywhere in its structure (used for
// diagnostics and to decide whether another monomorphization round is
// needed; safe to call on a type containing cycles.
func HasUnresolved(ty types.Type) bool {
	return hasUnresolved(ty, map[string]bool{})
}

func hasUnresolved(ty types.Type, visiting map[string]bool) bool {
	switch n := ty.(type) {
	case *types.Unknown, *types.GenericTypeRef, *types.TypeParameter:
		return true
	case *types.Array:
		return hasUnresolved(n.Base, visiting)
	case *types.DynArray:
		return hasUnresolved(n.Base, visiting)
	case *types.Reference:
		return hasUnresolved(n.Inner, visiting)
	case *types.Pointer:
		return hasUnresolved(n.Pointee, visiting)
	case *types.Result:
		return hasUnresolved(n.Ok, visiting) || hasUnresolved(n.Err, visiting)
	case *types.Struct:
		if visiting[n.Name] {
			return false
		}
		visiting[n.Name] = true
		for _, f := range n.Fields {
			if hasUnresolved(f.Type, visiting) {
				return true
			}
		}
		return false
	case *types.Enum:
		if visiting[n.Name] {
			return false
		}
		visiting[n.Name] = true
		for _, v := range n.Variants {
			for _, a := range v.Associated {
				if hasUnresolved(a, visiting) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
