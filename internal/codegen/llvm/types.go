package llvm

import (
	"fmt"

	irtypes "github.com/llir/llvm/ir/types"

	"github.com/sushi-lang/sushi/internal/types"
)

// sizeOf gives the primitive size/alignment (in bytes) used
// for enum payload sizing, matching the original sizing table
// (backend/types/core/sizing.py): every sized kind is naturally aligned
// to its own width, and bool/string follow i8/pointer width.
func sizeOf(k types.BuiltinKind) (size, align int) {
	switch k {
	case types.I8, types.U8, types.Bool:
		return 1, 1
	case types.I16, types.U16:
		return 2, 2
	case types.I32, types.U32, types.F32:
		return 4, 4
	case types.I64, types.U64, types.F64:
		return 8, 8
	case types.String:
		return 16, 8 // fat pointer: {i8* data, i64 len}
	}
	return 8, 8
}

// mapType converts a Sushi type to its LLVM representation. Structs and
// enums are mapped to pointers to named (possibly forward-declared)
// struct types so that recursive/cyclic definitions
// resolve without infinite regress: the named type is registered in
// g.structTys / g.enumTys before its body is filled in, the way a two-pass C header
// forward-declares a struct tag.
func (g *Generator) mapType(t types.Type) (irtypes.Type, error) {
	switch tt := t.(type) {
	case nil:
		return irtypes.Void, nil
	case *types.Builtin:
		return g.mapBuiltin(tt.Kind)
	case *types.Array:
		elem, err := g.mapType(tt.Base)
		if err != nil {
			return nil, err
		}
		return irtypes.NewArray(uint64(tt.Size), elem), nil
	case *types.DynArray:
		// { i64 len, i64 cap, T* data }
		elem, err := g.mapType(tt.Base)
		if err != nil {
			return nil, err
		}
		return irtypes.NewPointer(g.dynArrayStruct(tt.Base.String(), elem)), nil
	case *types.Struct:
		return irtypes.NewPointer(g.structType(tt)), nil
	case *types.Enum:
		return irtypes.NewPointer(g.enumType(tt)), nil
	case *types.Reference:
		inner, err := g.mapType(tt.Inner)
		if err != nil {
			return nil, err
		}
		return irtypes.NewPointer(inner), nil
	case *types.Pointer:
		inner, err := g.mapType(tt.Pointee)
		if err != nil {
			return nil, err
		}
		return irtypes.NewPointer(inner), nil
	case *types.Result:
		return irtypes.NewPointer(g.enumType(tt.AsEnum())), nil
	case *types.Iterator:
		return irtypes.NewPointer(g.iteratorStruct(tt.Element)), nil
	default:
		return nil, fmt.Errorf("codegen: cannot map type %s to LLVM", t.String())
	}
}

func (g *Generator) mapBuiltin(k types.BuiltinKind) (irtypes.Type, error) {
	switch k {
	case types.I8, types.U8:
		return irtypes.I8, nil
	case types.I16, types.U16:
		return irtypes.I16, nil
	case types.I32, types.U32:
		return irtypes.I32, nil
	case types.I64, types.U64:
		return irtypes.I64, nil
	case types.F32:
		return irtypes.Float, nil
	case types.F64:
		return irtypes.Double, nil
	case types.Bool:
		return irtypes.I1, nil
	case types.String:
		return irtypes.NewPointer(g.stringStruct()), nil
	case types.Blank:
		return irtypes.Void, nil
	case types.Stdin, types.Stdout, types.Stderr, types.File:
		return irtypes.NewPointer(irtypes.I8), nil // opaque FILE*
	default:
		return nil, fmt.Errorf("codegen: unknown builtin kind %q", k)
	}
}

// stringStruct is Sushi's fat-pointer string: {i8* data, i64 len}.
func (g *Generator) stringStruct() *irtypes.StructType {
	if g.stringTy != nil {
		return g.stringTy
	}
	st := g.module.NewTypeDef("struct.string", irtypes.NewStruct(irtypes.NewPointer(irtypes.I8), irtypes.I64))
	g.stringTy = st
	return st
}

// dynArrayStruct returns (creating if needed) the named struct type for
// a DynArray<elem>: {i64 len, i64 cap, elem* data}, one definition per
// distinct element type (memoized in g.dynArrayTys, keyed by the Sushi
// element type's name rather than the LLVM type, since irtypes.Type
// doesn't expose a stable name of its own for anonymous/array types).
func (g *Generator) dynArrayStruct(elemKey string, elem irtypes.Type) *irtypes.StructType {
	name := "struct.dynarray." + sanitize(elemKey)
	if st, ok := g.dynArrayTys[name]; ok {
		return st
	}
	st := g.module.NewTypeDef(name, irtypes.NewStruct(irtypes.I64, irtypes.I64, irtypes.NewPointer(elem)))
	g.dynArrayTys[name] = st
	return st
}

// iteratorStruct is the value produced by range/foreach lowering:
// {elem* cursor, elem* end, i64 streamFlag}. Only range iterators are
// built (runtimeRangeIterator stores streamFlag 0); emitForeach does not
// read streamFlag and always walks cursor to end, and no stream
// (stdin/file) iterator is produced.
func (g *Generator) iteratorStruct(elem types.Type) *irtypes.StructType {
	elemTy, err := g.mapType(elem)
	if err != nil {
		elemTy = irtypes.I8
	}
	name := "struct.iterator." + sanitize(elem.String())
	if st, ok := g.dynArrayTys[name]; ok {
		return st
	}
	st := g.module.NewTypeDef(name, irtypes.NewStruct(irtypes.NewPointer(elemTy), irtypes.NewPointer(elemTy), irtypes.I64))
	g.dynArrayTys[name] = st
	return st
}

// structType returns the named LLVM struct type backing a Sushi struct,
// forward-declaring it (empty body registered first) so that a field
// referencing the struct itself (directly, or through another struct in
// the same cyclic group) resolves to the same *irtypes.StructType
// instance instead of recursing forever.
func (g *Generator) structType(s *types.Struct) *irtypes.StructType {
	if st, ok := g.structTys[s.Name]; ok {
		return st
	}
	st := g.module.NewTypeDef("struct."+sanitize(s.Name), irtypes.NewStruct())
	g.structTys[s.Name] = st
	fields := make([]irtypes.Type, len(s.Fields))
	for i, f := range s.Fields {
		ft, err := g.mapType(f.Type)
		if err != nil {
			ft = irtypes.I8
		}
		fields[i] = ft
	}
	st.Fields = fields
	return st
}

// enumType lays out an enum as a tagged union: {i64 tag, [N x i8] payload}
// where N is the largest associated-value byte size across all variants
//. A zero-sized payload (every
// variant is a bare tag) collapses to {i64 tag}.
func (g *Generator) enumType(e *types.Enum) *irtypes.StructType {
	if st, ok := g.enumTys[e.Name]; ok {
		return st
	}
	st := g.module.NewTypeDef("enum."+sanitize(e.Name), irtypes.NewStruct())
	g.enumTys[e.Name] = st

	maxSize := 0
	for _, v := range e.Variants {
		sz := 0
		for _, a := range v.Associated {
			sz += g.byteSizeOf(a)
		}
		if sz > maxSize {
			maxSize = sz
		}
	}
	if maxSize == 0 {
		st.Fields = []irtypes.Type{irtypes.I64}
	} else {
		st.Fields = []irtypes.Type{irtypes.I64, irtypes.NewArray(uint64(maxSize), irtypes.I8)}
	}
	return st
}

// byteSizeOf estimates a type's in-memory byte size for enum payload
// sizing. Structs/enums/strings/dynarrays/references are pointer-sized
// (8 bytes); this package always boxes non-primitive payloads behind a
// pointer rather than inlining them, so the estimate only needs to be an
// upper bound, not exact.
func (g *Generator) byteSizeOf(t types.Type) int {
	switch tt := t.(type) {
	case *types.Builtin:
		sz, _ := sizeOf(tt.Kind)
		if tt.Kind == types.String {
			return 8 // boxed: a pointer to the fat-pointer struct
		}
		return sz
	case *types.Array:
		return tt.Size * 8 // conservatively pointer-sized elements, boxed if needed
	default:
		return 8
	}
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
