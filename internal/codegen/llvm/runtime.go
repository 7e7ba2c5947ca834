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

// emitMethodCall dispatches `receiver.method(args)`. A user extension
// method (declared under its mangled Type.method name by Generate's pass
// 2) always wins; otherwise the call falls through to the built-in
// bodies backing DynArray/HashMap/List/Own/string/stdout/stderr/stdin/
// file (C13), generated inline rather than as separately declared
// functions since each is only a handful of instructions.
func (g *Generator) emitMethodCall(n *ast.MethodCall) (value.Value, error) {
	recvTy := n.Receiver.Type()
	if mangled, ok := g.extensionMethodName(recvTy, n.Method); ok {
		if fn, ok := g.funcs[mangled]; ok {
			recv, err := g.emitExpr(n.Receiver)
			if err != nil {
				return nil, err
			}
			args := []value.Value{recv}
			for _, a := range n.Args {
				v, err := g.emitExpr(a)
				if err != nil {
					return nil, err
				}
				args = append(args, v)
			}
			return g.fn.block.NewCall(fn, args...), nil
		}
	}

	switch rt := recvTy.(type) {
	case *types.DynArray:
		return g.methodDynArray(n, rt)
	case *types.Enum:
		switch rt.GenericBase {
		case "Result", "Maybe":
			return g.methodResultMaybe(n, rt)
		}
	case *types.Struct:
		switch rt.GenericBase {
		case "HashMap":
			return g.methodHashMap(n, rt)
		case "List":
			return g.methodList(n, rt)
		case "Own":
			return g.methodOwn(n, rt)
		}
	case *types.Builtin:
		if rt.Kind == types.String {
			return g.methodString(n)
		}
		if rt.Kind == types.Stdin || rt.Kind == types.Stdout || rt.Kind == types.Stderr || rt.Kind == types.File {
			return g.methodStream(n, rt.Kind)
		}
	case *types.Array:
		if n.Method == "len" {
			return constant.NewInt(irtypes.I64, int64(rt.Size)), nil
		}
		if n.Method == "get" {
			return g.methodArrayGet(n, rt)
		}
	}
	return nil, fmt.Errorf("codegen: unsupported method %s on %s", n.Method, recvTy.String())
}

func (g *Generator) extensionMethodName(recvTy types.Type, method string) (string, bool) {
	base := recvTy.String()
	if s, ok := recvTy.(*types.Struct); ok && s.GenericBase != "" {
		base = s.GenericBase
	}
	if e, ok := recvTy.(*types.Enum); ok && e.GenericBase != "" {
		base = e.GenericBase
	}
	return base + "." + method, true
}

func (g *Generator) evalArgs(n *ast.MethodCall) ([]value.Value, value.Value, error) {
	recv, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, nil, err
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.emitExpr(a)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return args, recv, nil
}

// --- DynArray ---------------------------------------------------------

func (g *Generator) runtimeDynArrayNew(elem types.Type, size value.Value) (value.Value, error) {
	elemTy, err := g.mapType(elem)
	if err != nil {
		return nil, err
	}
	st := g.dynArrayStruct(elem.String(), elemTy)
	alloca := g.fn.block.NewAlloca(st)

	elemSize := int64(g.byteSizeOf(elem))
	bytes := g.fn.block.NewMul(size, constant.NewInt(irtypes.I64, elemSize))
	raw := g.fn.block.NewCall(g.externs.malloc, bytes)
	data := g.fn.block.NewBitCast(raw, irtypes.NewPointer(elemTy))
	g.fn.block.NewCall(g.externs.memset, raw, constant.NewInt(irtypes.I32, 0), bytes)

	g.storeDynArrayFields(alloca, st, size, size, data)
	return alloca, nil
}

func (g *Generator) runtimeDynArrayFrom(elem types.Type, vals []value.Value) (value.Value, error) {
	size := constant.NewInt(irtypes.I64, int64(len(vals)))
	arr, err := g.runtimeDynArrayNew(elem, size)
	if err != nil {
		return nil, err
	}
	elemTy, _ := g.mapType(elem)
	st := g.dynArrayStruct(elem.String(), elemTy)
	dataPtr := g.fn.block.NewGetElementPtr(st, arr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
	for i, v := range vals {
		slot := g.fn.block.NewGetElementPtr(elemTy, data, constant.NewInt(irtypes.I64, int64(i)))
		g.fn.block.NewStore(v, slot)
	}
	return arr, nil
}

func (g *Generator) storeDynArrayFields(alloca value.Value, st *irtypes.StructType, length, cap value.Value, data value.Value) {
	lenPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(length, lenPtr)
	capPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	g.fn.block.NewStore(cap, capPtr)
	dataPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	g.fn.block.NewStore(data, dataPtr)
}

// emitDynArrayPush grows the backing buffer via realloc (doubling, or 4
// elements from empty) whenever length has caught up with capacity,
// before storing the new element and bumping length. Every DynArray/List
// push goes through this so neither ever silently overruns its buffer.
func (g *Generator) emitDynArrayPush(st *irtypes.StructType, recv value.Value, elemTy irtypes.Type, elemSushiTy types.Type, val value.Value) {
	lenPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	capPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	dataPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))

	length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
	capacity := g.fn.block.NewLoad(irtypes.I64, capPtr)
	full := g.fn.block.NewICmp(enum.IPredSGE, length, capacity)

	growBlock := g.fn.llvmFn.NewBlock("")
	afterGrowBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(full, growBlock, afterGrowBlock)

	g.fn.block = growBlock
	capZero := g.fn.block.NewICmp(enum.IPredEQ, capacity, constant.NewInt(irtypes.I64, 0))
	doubled := g.fn.block.NewMul(capacity, constant.NewInt(irtypes.I64, 2))
	newCapAlloca := g.fn.block.NewAlloca(irtypes.I64)
	freshBlock := g.fn.llvmFn.NewBlock("")
	doubleBlock := g.fn.llvmFn.NewBlock("")
	capJoinBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(capZero, freshBlock, doubleBlock)

	g.fn.block = freshBlock
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 4), newCapAlloca)
	g.fn.block.NewBr(capJoinBlock)

	g.fn.block = doubleBlock
	g.fn.block.NewStore(doubled, newCapAlloca)
	g.fn.block.NewBr(capJoinBlock)

	g.fn.block = capJoinBlock
	newCapacity := g.fn.block.NewLoad(irtypes.I64, newCapAlloca)
	elemSize := int64(g.byteSizeOf(elemSushiTy))
	newBytes := g.fn.block.NewMul(newCapacity, constant.NewInt(irtypes.I64, elemSize))
	oldData := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
	oldRaw := g.fn.block.NewBitCast(oldData, irtypes.NewPointer(irtypes.I8))
	rawNew := g.fn.block.NewCall(g.externs.realloc, oldRaw, newBytes)
	newData := g.fn.block.NewBitCast(rawNew, irtypes.NewPointer(elemTy))
	g.fn.block.NewStore(newData, dataPtr)
	g.fn.block.NewStore(newCapacity, capPtr)
	g.fn.block.NewBr(afterGrowBlock)

	g.fn.block = afterGrowBlock
	data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
	length2 := g.fn.block.NewLoad(irtypes.I64, lenPtr)
	slot := g.fn.block.NewGetElementPtr(elemTy, data, length2)
	g.fn.block.NewStore(val, slot)
	g.fn.block.NewStore(g.fn.block.NewAdd(length2, constant.NewInt(irtypes.I64, 1)), lenPtr)
}

func (g *Generator) runtimeDynArrayLen(arr value.Value, elem types.Type) (value.Value, error) {
	elemTy, err := g.mapType(elem)
	if err != nil {
		return nil, err
	}
	st := g.dynArrayStruct(elem.String(), elemTy)
	lenPtr := g.fn.block.NewGetElementPtr(st, arr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	return g.fn.block.NewLoad(irtypes.I64, lenPtr), nil
}

func (g *Generator) runtimeDynArrayGet(arr value.Value, idx value.Value, elem types.Type) (value.Value, error) {
	elemTy, err := g.mapType(elem)
	if err != nil {
		return nil, err
	}
	st := g.dynArrayStruct(elem.String(), elemTy)
	dataPtr := g.fn.block.NewGetElementPtr(st, arr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
	slot := g.fn.block.NewGetElementPtr(elemTy, data, idx)
	return g.fn.block.NewLoad(elemTy, slot), nil
}

func (g *Generator) methodDynArray(n *ast.MethodCall, dt *types.DynArray) (value.Value, error) {
	args, recv, err := g.evalArgs(n)
	if err != nil {
		return nil, err
	}
	elemTy, err := g.mapType(dt.Base)
	if err != nil {
		return nil, err
	}
	st := g.dynArrayStruct(dt.Base.String(), elemTy)
	lenPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))

	switch n.Method {
	case "len":
		return g.fn.block.NewLoad(irtypes.I64, lenPtr), nil
	case "get":
		return g.runtimeDynArrayGet(recv, args[0], dt.Base)
	case "push":
		g.emitDynArrayPush(st, recv, elemTy, dt.Base, args[0])
		return constant.NewInt(irtypes.I1, 0), nil
	case "pop":
		length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
		newLen := g.fn.block.NewSub(length, constant.NewInt(irtypes.I64, 1))
		dataPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
		data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
		slot := g.fn.block.NewGetElementPtr(elemTy, data, newLen)
		val := g.fn.block.NewLoad(elemTy, slot)
		g.fn.block.NewStore(newLen, lenPtr)
		return val, nil
	default:
		return nil, fmt.Errorf("codegen: unsupported DynArray method %q", n.Method)
	}
}

// methodArrayGet implements the fixed array's safe accessor: Some(elem)
// in bounds, None otherwise, never trapping the way direct `arr[i]` does.
func (g *Generator) methodArrayGet(n *ast.MethodCall, at *types.Array) (value.Value, error) {
	base, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	idx, err := g.emitExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	idx64 := g.emitWidenIndex(idx, n.Args[0].Type())
	inBounds := g.fn.block.NewAnd(
		g.fn.block.NewICmp(enum.IPredSGE, idx64, constant.NewInt(irtypes.I64, 0)),
		g.fn.block.NewICmp(enum.IPredSLT, idx64, constant.NewInt(irtypes.I64, int64(at.Size))),
	)

	elemTy, err := g.mapType(at.Base)
	if err != nil {
		return nil, err
	}

	maybeElem := &types.Enum{
		Name:        "Maybe<" + at.Base.String() + ">",
		GenericBase: "Maybe",
		GenericArgs: []types.Type{at.Base},
		Variants: []types.EnumVariant{
			{Name: "Some", Associated: []types.Type{at.Base}},
			{Name: "None"},
		},
	}
	outTy := g.enumType(maybeElem)
	out := g.fn.block.NewAlloca(outTy)

	someBlock := g.fn.llvmFn.NewBlock("")
	noneBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(inBounds, someBlock, noneBlock)

	g.fn.block = someBlock
	someTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), someTagPtr)
	elemPtr := g.fn.block.NewGetElementPtr(elemTy, base, constant.NewInt(irtypes.I32, 0), idx)
	val := g.fn.block.NewLoad(elemTy, elemPtr)
	payloadPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	castPtr := g.fn.block.NewBitCast(payloadPtr, irtypes.NewPointer(elemTy))
	g.fn.block.NewStore(val, castPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = noneBlock
	noneTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 1), noneTagPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return out, nil
}

// --- HashMap (open-addressed buckets DynArray<Entry{key,value,state}>) -
//
// Entry<K,V> is {K key, V value, u8 state} (state: 0 empty, 1 occupied, 2
// tombstone, per monomorph's instantiateStruct("HashMap", ...)). Every
// struct value is itself a pointer (mapType), so buckets is a
// DynArray<Entry*>: each slot holds either null (never used), or a
// malloc'd Entry whose state byte distinguishes live from tombstoned.
// Capacity grows by doubling (8, 16, 32, ...) rather than the textbook
// next-prime-above-2x, trading clustering quality for not needing a
// primality test in emitted IR; load factor (size+tombstones)/capacity is
// kept under 3/4 by the grow check hashMapInsert runs before it probes.

const hashMapTombstone = 2
const hashMapOccupied = 1

func hashMapEntryType(s *types.Struct) *types.Struct {
	return s.Fields[0].Type.(*types.DynArray).Base.(*types.Struct)
}

func (g *Generator) methodHashMap(n *ast.MethodCall, s *types.Struct) (value.Value, error) {
	recv, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	structTy := g.structType(s)
	sizePtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	switch n.Method {
	case "size", "len":
		return g.fn.block.NewLoad(irtypes.I32, sizePtr), nil
	case "insert":
		key, err := g.emitExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		val, err := g.emitExpr(n.Args[1])
		if err != nil {
			return nil, err
		}
		return g.hashMapInsert(s, recv, key, val)
	case "get":
		key, err := g.emitExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		return g.hashMapGet(s, recv, key)
	case "remove":
		key, err := g.emitExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		return g.hashMapRemove(s, recv, key)
	default:
		return nil, fmt.Errorf("codegen: unsupported HashMap method %q", n.Method)
	}
}

// emitKeyHash hashes a HashMap key. Strings hash by content (their bytes
// live behind the fat pointer, so the struct's own bytes would just hash
// the pointer/length); every other key type hashes the raw bytes of its
// own LLVM representation, which is exact for scalars and pointer-identity
// for boxed structs/enums (documented simplification: no deep structural
// hash for composite keys).
func (g *Generator) emitKeyHash(key value.Value, keyTy types.Type) (value.Value, error) {
	if isStringType(keyTy) {
		return g.runtimeStringHash(key)
	}
	llvmTy, err := g.mapType(keyTy)
	if err != nil {
		return nil, err
	}
	scratch := g.fn.block.NewAlloca(llvmTy)
	g.fn.block.NewStore(key, scratch)
	bytes := irtypes.NewPointer(irtypes.I8)
	asBytes := g.fn.block.NewBitCast(scratch, bytes)
	return g.emitHashBytes(asBytes, constant.NewInt(irtypes.I64, int64(g.byteSizeOf(keyTy)))), nil
}

// emitKeyEqual compares two keys already of the same type: strings by
// content, floats with an ordered compare, everything else (ints, bools,
// pointers, boxed structs/enums) with a plain bitwise/identity compare.
func (g *Generator) emitKeyEqual(a, b value.Value, keyTy types.Type) (value.Value, error) {
	if isStringType(keyTy) {
		return g.runtimeStringEqual(a, b), nil
	}
	if isFloatType(keyTy) {
		return g.fn.block.NewFCmp(enum.FPredOEQ, a, b), nil
	}
	return g.fn.block.NewICmp(enum.IPredEQ, a, b), nil
}

// runtimeStringEqual compares two strings by length and byte content,
// since string's LLVM representation is a fat pointer and a bare icmp eq
// would only match identical instances, not equal content.
func (g *Generator) runtimeStringEqual(a, b value.Value) value.Value {
	st := g.stringStruct()
	aLenPtr := g.fn.block.NewGetElementPtr(st, a, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	aLen := g.fn.block.NewLoad(irtypes.I64, aLenPtr)
	bLenPtr := g.fn.block.NewGetElementPtr(st, b, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	bLen := g.fn.block.NewLoad(irtypes.I64, bLenPtr)
	sameLen := g.fn.block.NewICmp(enum.IPredEQ, aLen, bLen)

	out := g.fn.block.NewAlloca(irtypes.I1)
	g.fn.block.NewStore(constant.NewInt(irtypes.I1, 0), out)

	lenOkBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(sameLen, lenOkBlock, endBlock)

	g.fn.block = lenOkBlock
	aDataPtr := g.fn.block.NewGetElementPtr(st, a, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	aData := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), aDataPtr)
	bDataPtr := g.fn.block.NewGetElementPtr(st, b, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	bData := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), bDataPtr)

	idxAlloca := g.fn.block.NewAlloca(irtypes.I64)
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)
	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	mismatchBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	idx := condBlock.NewLoad(irtypes.I64, idxAlloca)
	more := condBlock.NewICmp(enum.IPredSLT, idx, aLen)
	matchBlock := g.fn.llvmFn.NewBlock("")
	condBlock.NewCondBr(more, bodyBlock, matchBlock)

	g.fn.block = bodyBlock
	idx2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	aElemPtr := bodyBlock.NewGetElementPtr(irtypes.I8, aData, idx2)
	aElem := bodyBlock.NewLoad(irtypes.I8, aElemPtr)
	bElemPtr := bodyBlock.NewGetElementPtr(irtypes.I8, bData, idx2)
	bElem := bodyBlock.NewLoad(irtypes.I8, bElemPtr)
	eq := bodyBlock.NewICmp(enum.IPredEQ, aElem, bElem)
	nextBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock.NewCondBr(eq, nextBlock, mismatchBlock)

	g.fn.block = nextBlock
	next := g.fn.block.NewAdd(idx2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, idxAlloca)
	g.fn.block.NewBr(condBlock)

	g.fn.block = matchBlock
	g.fn.block.NewStore(constant.NewInt(irtypes.I1, 1), out)
	g.fn.block.NewBr(endBlock)

	g.fn.block = mismatchBlock
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return g.fn.block.NewLoad(irtypes.I1, out)
}

// hashMapHeaderLayout resolves the LLVM types shared by get/insert/remove/
// grow for a given HashMap<K,V> struct: the Entry<K,V> struct, the Entry*
// element type, and the DynArray<Entry*> header type backing `buckets`.
func (g *Generator) hashMapHeaderLayout(s *types.Struct) (*types.Struct, *irtypes.StructType, *irtypes.PointerType, *irtypes.StructType) {
	entry := hashMapEntryType(s)
	entryStructTy := g.structType(entry)
	entryPtrTy := irtypes.NewPointer(entryStructTy)
	headerTy := g.dynArrayStruct(entry.String(), entryPtrTy)
	return entry, entryStructTy, entryPtrTy, headerTy
}

// hashMapGrow replaces the buckets header with a freshly malloc'd data
// array at double the capacity (or 8, from empty), rehashing every live
// entry into its new slot. The header itself is a fresh stack alloca,
// same as any other DynArray value in this package (runtimeDynArrayNew);
// only the `data` backing buffer is heap memory.
func (g *Generator) hashMapGrow(s *types.Struct, recv value.Value) error {
	structTy := g.structType(s)
	entry, entryStructTy, entryPtrTy, headerTy := g.hashMapHeaderLayout(s)
	headerPtrTy := irtypes.NewPointer(headerTy)

	bucketsFieldPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	capFieldPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	tombFieldPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 3))
	oldCapacity := g.fn.block.NewLoad(irtypes.I32, capFieldPtr)
	capZero := g.fn.block.NewICmp(enum.IPredEQ, oldCapacity, constant.NewInt(irtypes.I32, 0))
	doubled := g.fn.block.NewMul(oldCapacity, constant.NewInt(irtypes.I32, 2))

	newCapAlloca := g.fn.block.NewAlloca(irtypes.I32)
	freshBlock := g.fn.llvmFn.NewBlock("")
	doubleBlock := g.fn.llvmFn.NewBlock("")
	capJoinBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(capZero, freshBlock, doubleBlock)

	g.fn.block = freshBlock
	g.fn.block.NewStore(constant.NewInt(irtypes.I32, 8), newCapAlloca)
	g.fn.block.NewBr(capJoinBlock)

	g.fn.block = doubleBlock
	g.fn.block.NewStore(doubled, newCapAlloca)
	g.fn.block.NewBr(capJoinBlock)

	g.fn.block = capJoinBlock
	newCapacity := g.fn.block.NewLoad(irtypes.I32, newCapAlloca)
	newCapacity64 := g.fn.block.NewZExt(newCapacity, irtypes.I64)

	oldHeader := g.fn.block.NewLoad(headerPtrTy, bucketsFieldPtr)

	newBytes := g.fn.block.NewMul(newCapacity64, constant.NewInt(irtypes.I64, 8))
	rawData := g.fn.block.NewCall(g.externs.malloc, newBytes)
	g.fn.block.NewCall(g.externs.memset, rawData, constant.NewInt(irtypes.I32, 0), newBytes)
	newData := g.fn.block.NewBitCast(rawData, irtypes.NewPointer(entryPtrTy))

	newHeader := g.fn.block.NewAlloca(headerTy)
	g.storeDynArrayFields(newHeader, headerTy, newCapacity64, newCapacity64, newData)

	rehashBlock := g.fn.llvmFn.NewBlock("")
	afterRehashBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(capZero, afterRehashBlock, rehashBlock)

	g.fn.block = rehashBlock
	oldCapacity64 := g.fn.block.NewZExt(oldCapacity, irtypes.I64)
	oldDataFieldPtr := g.fn.block.NewGetElementPtr(headerTy, oldHeader, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	oldData := g.fn.block.NewLoad(irtypes.NewPointer(entryPtrTy), oldDataFieldPtr)

	idxAlloca := g.fn.block.NewAlloca(irtypes.I64)
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)
	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	idx := condBlock.NewLoad(irtypes.I64, idxAlloca)
	more := condBlock.NewICmp(enum.IPredSLT, idx, oldCapacity64)
	condBlock.NewCondBr(more, bodyBlock, afterRehashBlock)

	g.fn.block = bodyBlock
	idx2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	oldSlotPtr := bodyBlock.NewGetElementPtr(entryPtrTy, oldData, idx2)
	oldSlot := bodyBlock.NewLoad(entryPtrTy, oldSlotPtr)
	isNull := bodyBlock.NewICmp(enum.IPredEQ, oldSlot, constant.NewNull(entryPtrTy))

	nextBlock := g.fn.llvmFn.NewBlock("")
	checkStateBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock.NewCondBr(isNull, nextBlock, checkStateBlock)

	g.fn.block = checkStateBlock
	statePtr := g.fn.block.NewGetElementPtr(entryStructTy, oldSlot, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	state := g.fn.block.NewLoad(irtypes.I8, statePtr)
	isOccupied := g.fn.block.NewICmp(enum.IPredEQ, state, constant.NewInt(irtypes.I8, hashMapOccupied))
	placeBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOccupied, placeBlock, nextBlock)

	g.fn.block = placeBlock
	llvmKeyTy, err := g.mapType(entry.Fields[0].Type)
	if err != nil {
		return err
	}
	keyFieldPtr := g.fn.block.NewGetElementPtr(entryStructTy, oldSlot, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	key := g.fn.block.NewLoad(llvmKeyTy, keyFieldPtr)
	hash, err := g.emitKeyHash(key, entry.Fields[0].Type)
	if err != nil {
		return err
	}
	if err := g.hashMapPlaceEmpty(newData, newCapacity64, hash, oldSlot, entryPtrTy); err != nil {
		return err
	}
	g.fn.block.NewBr(nextBlock)

	g.fn.block = nextBlock
	next := g.fn.block.NewAdd(idx2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, idxAlloca)
	g.fn.block.NewBr(condBlock)

	g.fn.block = afterRehashBlock
	freeBlock := g.fn.llvmFn.NewBlock("")
	updateBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(capZero, updateBlock, freeBlock)

	g.fn.block = freeBlock
	oldDataFieldPtr2 := g.fn.block.NewGetElementPtr(headerTy, oldHeader, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	oldData2 := g.fn.block.NewLoad(irtypes.NewPointer(entryPtrTy), oldDataFieldPtr2)
	g.emitFree(oldData2)
	g.fn.block.NewBr(updateBlock)

	g.fn.block = updateBlock
	g.fn.block.NewStore(newHeader, bucketsFieldPtr)
	g.fn.block.NewStore(newCapacity, capFieldPtr)
	g.fn.block.NewStore(constant.NewInt(irtypes.I32, 0), tombFieldPtr)
	return nil
}

// hashMapPlaceEmpty linearly probes data[hash%capacity...] for the first
// null slot and stores entryPtr there. Used by grow's rehash, where every
// target slot is guaranteed empty (fresh array, no duplicate keys).
func (g *Generator) hashMapPlaceEmpty(data value.Value, capacity64 value.Value, hash value.Value, entryPtr value.Value, entryPtrTy *irtypes.PointerType) error {
	base := g.fn.block.NewURem(hash, capacity64)
	idxAlloca := g.fn.block.NewAlloca(irtypes.I64)
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)

	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	doneBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	i := condBlock.NewLoad(irtypes.I64, idxAlloca)
	more := condBlock.NewICmp(enum.IPredSLT, i, capacity64)
	condBlock.NewCondBr(more, bodyBlock, doneBlock)

	g.fn.block = bodyBlock
	i2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	sum := bodyBlock.NewAdd(base, i2)
	slotIdx := bodyBlock.NewURem(sum, capacity64)
	slotPtr := bodyBlock.NewGetElementPtr(entryPtrTy, data, slotIdx)
	slotVal := bodyBlock.NewLoad(entryPtrTy, slotPtr)
	isEmpty := bodyBlock.NewICmp(enum.IPredEQ, slotVal, constant.NewNull(entryPtrTy))

	placeBlock := g.fn.llvmFn.NewBlock("")
	nextBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock.NewCondBr(isEmpty, placeBlock, nextBlock)

	g.fn.block = placeBlock
	g.fn.block.NewStore(entryPtr, slotPtr)
	g.fn.block.NewBr(doneBlock)

	g.fn.block = nextBlock
	next := g.fn.block.NewAdd(i2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, idxAlloca)
	g.fn.block.NewBr(condBlock)

	g.fn.block = doneBlock
	return nil
}

// hashMapInsert grows when the load factor (size+tombstones)/capacity
// would exceed 3/4, then probes from key's hash for either a matching
// key (value overwritten in place) or the first never-used (null) slot
// (fresh Entry malloc'd and linked in, size incremented). Tombstoned
// entries are probed past, not reused.
func (g *Generator) hashMapInsert(s *types.Struct, recv, key, val value.Value) (value.Value, error) {
	keyTy := s.GenericArgs[0]
	structTy := g.structType(s)
	_, entryStructTy, entryPtrTy, headerTy := g.hashMapHeaderLayout(s)
	headerPtrTy := irtypes.NewPointer(headerTy)

	sizePtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	capPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	tombPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 3))

	size := g.fn.block.NewLoad(irtypes.I32, sizePtr)
	capacity := g.fn.block.NewLoad(irtypes.I32, capPtr)
	tombstones := g.fn.block.NewLoad(irtypes.I32, tombPtr)

	capZero := g.fn.block.NewICmp(enum.IPredEQ, capacity, constant.NewInt(irtypes.I32, 0))
	used := g.fn.block.NewAdd(size, tombstones)
	usedExt := g.fn.block.NewSExt(used, irtypes.I64)
	capExt := g.fn.block.NewSExt(capacity, irtypes.I64)
	lhs := g.fn.block.NewMul(usedExt, constant.NewInt(irtypes.I64, 4))
	rhs := g.fn.block.NewMul(capExt, constant.NewInt(irtypes.I64, 3))
	overLoad := g.fn.block.NewICmp(enum.IPredSGT, lhs, rhs)
	growNeeded := g.fn.block.NewOr(capZero, overLoad)

	growBlock := g.fn.llvmFn.NewBlock("")
	afterGrowBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(growNeeded, growBlock, afterGrowBlock)

	g.fn.block = growBlock
	if err := g.hashMapGrow(s, recv); err != nil {
		return nil, err
	}
	g.fn.block.NewBr(afterGrowBlock)

	g.fn.block = afterGrowBlock
	capacity2 := g.fn.block.NewLoad(irtypes.I32, capPtr)
	capacity64 := g.fn.block.NewZExt(capacity2, irtypes.I64)
	header := g.fn.block.NewLoad(headerPtrTy, g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0)))
	dataFieldPtr := g.fn.block.NewGetElementPtr(headerTy, header, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	data := g.fn.block.NewLoad(irtypes.NewPointer(entryPtrTy), dataFieldPtr)

	hash, err := g.emitKeyHash(key, keyTy)
	if err != nil {
		return nil, err
	}
	base := g.fn.block.NewURem(hash, capacity64)

	iAlloca := g.fn.block.NewAlloca(irtypes.I64)
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), iAlloca)
	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	doneBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	i := condBlock.NewLoad(irtypes.I64, iAlloca)
	more := condBlock.NewICmp(enum.IPredSLT, i, capacity64)
	condBlock.NewCondBr(more, bodyBlock, doneBlock)

	g.fn.block = bodyBlock
	i2 := bodyBlock.NewLoad(irtypes.I64, iAlloca)
	sum := bodyBlock.NewAdd(base, i2)
	slotIdx := bodyBlock.NewURem(sum, capacity64)
	slotPtr := bodyBlock.NewGetElementPtr(entryPtrTy, data, slotIdx)
	slotEntry := bodyBlock.NewLoad(entryPtrTy, slotPtr)
	isNull := bodyBlock.NewICmp(enum.IPredEQ, slotEntry, constant.NewNull(entryPtrTy))

	insertHereBlock := g.fn.llvmFn.NewBlock("")
	checkOccupiedBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock.NewCondBr(isNull, insertHereBlock, checkOccupiedBlock)

	g.fn.block = checkOccupiedBlock
	statePtr := g.fn.block.NewGetElementPtr(entryStructTy, slotEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	state := g.fn.block.NewLoad(irtypes.I8, statePtr)
	isOccupied := g.fn.block.NewICmp(enum.IPredEQ, state, constant.NewInt(irtypes.I8, hashMapOccupied))
	keyCheckBlock := g.fn.llvmFn.NewBlock("")
	nextBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOccupied, keyCheckBlock, nextBlock)

	g.fn.block = keyCheckBlock
	llvmKeyTy, err := g.mapType(keyTy)
	if err != nil {
		return nil, err
	}
	keyFieldPtr := g.fn.block.NewGetElementPtr(entryStructTy, slotEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	storedKey := g.fn.block.NewLoad(llvmKeyTy, keyFieldPtr)
	keyEq, err := g.emitKeyEqual(storedKey, key, keyTy)
	if err != nil {
		return nil, err
	}
	updateBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(keyEq, updateBlock, nextBlock)

	g.fn.block = updateBlock
	valFieldPtr := g.fn.block.NewGetElementPtr(entryStructTy, slotEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	g.fn.block.NewStore(val, valFieldPtr)
	g.fn.block.NewBr(doneBlock)

	g.fn.block = insertHereBlock
	const entryAllocBytes = 24 // key/value/state each padded to a pointer-sized slot; see byteSizeOf
	rawEntry := g.fn.block.NewCall(g.externs.malloc, constant.NewInt(irtypes.I64, entryAllocBytes))
	newEntry := g.fn.block.NewBitCast(rawEntry, entryPtrTy)
	newKeyPtr := g.fn.block.NewGetElementPtr(entryStructTy, newEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(key, newKeyPtr)
	newValPtr := g.fn.block.NewGetElementPtr(entryStructTy, newEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	g.fn.block.NewStore(val, newValPtr)
	newStatePtr := g.fn.block.NewGetElementPtr(entryStructTy, newEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	g.fn.block.NewStore(constant.NewInt(irtypes.I8, hashMapOccupied), newStatePtr)
	g.fn.block.NewStore(newEntry, slotPtr)
	curSize := g.fn.block.NewLoad(irtypes.I32, sizePtr)
	g.fn.block.NewStore(g.fn.block.NewAdd(curSize, constant.NewInt(irtypes.I32, 1)), sizePtr)
	g.fn.block.NewBr(doneBlock)

	g.fn.block = nextBlock
	next := g.fn.block.NewAdd(i2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, iAlloca)
	g.fn.block.NewBr(condBlock)

	g.fn.block = doneBlock
	return constant.NewInt(irtypes.I1, 0), nil
}

// hashMapLookup probes from key's hash and returns (foundEntry,
// foundBool); foundEntry is only meaningful when foundBool is true. get
// and remove share this.
func (g *Generator) hashMapLookup(s *types.Struct, recv, key value.Value) (value.Value, value.Value, error) {
	keyTy := s.GenericArgs[0]
	structTy := g.structType(s)
	_, entryStructTy, entryPtrTy, headerTy := g.hashMapHeaderLayout(s)
	headerPtrTy := irtypes.NewPointer(headerTy)

	capPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	capacity := g.fn.block.NewLoad(irtypes.I32, capPtr)
	capacity64 := g.fn.block.NewZExt(capacity, irtypes.I64)
	capZero := g.fn.block.NewICmp(enum.IPredEQ, capacity, constant.NewInt(irtypes.I32, 0))

	resultAlloca := g.fn.block.NewAlloca(entryPtrTy)
	g.fn.block.NewStore(constant.NewNull(entryPtrTy), resultAlloca)
	foundAlloca := g.fn.block.NewAlloca(irtypes.I1)
	g.fn.block.NewStore(constant.NewInt(irtypes.I1, 0), foundAlloca)

	searchBlock := g.fn.llvmFn.NewBlock("")
	doneBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(capZero, doneBlock, searchBlock)

	g.fn.block = searchBlock
	header := g.fn.block.NewLoad(headerPtrTy, g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0)))
	dataFieldPtr := g.fn.block.NewGetElementPtr(headerTy, header, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	data := g.fn.block.NewLoad(irtypes.NewPointer(entryPtrTy), dataFieldPtr)

	hash, err := g.emitKeyHash(key, keyTy)
	if err != nil {
		return nil, nil, err
	}
	base := g.fn.block.NewURem(hash, capacity64)

	iAlloca := g.fn.block.NewAlloca(irtypes.I64)
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), iAlloca)
	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	i := condBlock.NewLoad(irtypes.I64, iAlloca)
	more := condBlock.NewICmp(enum.IPredSLT, i, capacity64)
	condBlock.NewCondBr(more, bodyBlock, doneBlock)

	g.fn.block = bodyBlock
	i2 := bodyBlock.NewLoad(irtypes.I64, iAlloca)
	sum := bodyBlock.NewAdd(base, i2)
	slotIdx := bodyBlock.NewURem(sum, capacity64)
	slotPtr := bodyBlock.NewGetElementPtr(entryPtrTy, data, slotIdx)
	slotEntry := bodyBlock.NewLoad(entryPtrTy, slotPtr)
	isNull := bodyBlock.NewICmp(enum.IPredEQ, slotEntry, constant.NewNull(entryPtrTy))

	checkBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock.NewCondBr(isNull, doneBlock, checkBlock)

	g.fn.block = checkBlock
	statePtr := g.fn.block.NewGetElementPtr(entryStructTy, slotEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	state := g.fn.block.NewLoad(irtypes.I8, statePtr)
	isOccupied := g.fn.block.NewICmp(enum.IPredEQ, state, constant.NewInt(irtypes.I8, hashMapOccupied))
	keyCheckBlock := g.fn.llvmFn.NewBlock("")
	nextBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOccupied, keyCheckBlock, nextBlock)

	g.fn.block = keyCheckBlock
	llvmKeyTy, err := g.mapType(keyTy)
	if err != nil {
		return nil, nil, err
	}
	keyFieldPtr := g.fn.block.NewGetElementPtr(entryStructTy, slotEntry, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	storedKey := g.fn.block.NewLoad(llvmKeyTy, keyFieldPtr)
	keyEq, err := g.emitKeyEqual(storedKey, key, keyTy)
	if err != nil {
		return nil, nil, err
	}
	matchBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(keyEq, matchBlock, nextBlock)

	g.fn.block = matchBlock
	g.fn.block.NewStore(slotEntry, resultAlloca)
	g.fn.block.NewStore(constant.NewInt(irtypes.I1, 1), foundAlloca)
	g.fn.block.NewBr(doneBlock)

	g.fn.block = nextBlock
	next := g.fn.block.NewAdd(i2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, iAlloca)
	g.fn.block.NewBr(condBlock)

	g.fn.block = doneBlock
	return g.fn.block.NewLoad(entryPtrTy, resultAlloca), g.fn.block.NewLoad(irtypes.I1, foundAlloca), nil
}

// hashMapGet returns Maybe<V>: Some(value) on a live match, None
// otherwise (including on an empty map, where the probe never runs).
func (g *Generator) hashMapGet(s *types.Struct, recv, key value.Value) (value.Value, error) {
	valTy := s.GenericArgs[1]
	_, entryStructTy, _, _ := g.hashMapHeaderLayout(s)

	found, foundBool, err := g.hashMapLookup(s, recv, key)
	if err != nil {
		return nil, err
	}

	maybeVal := &types.Enum{
		Name:        "Maybe<" + valTy.String() + ">",
		GenericBase: "Maybe",
		GenericArgs: []types.Type{valTy},
		Variants: []types.EnumVariant{
			{Name: "Some", Associated: []types.Type{valTy}},
			{Name: "None"},
		},
	}
	outTy := g.enumType(maybeVal)
	out := g.fn.block.NewAlloca(outTy)
	llvmValTy, err := g.mapType(valTy)
	if err != nil {
		return nil, err
	}

	someBlock := g.fn.llvmFn.NewBlock("")
	noneBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(foundBool, someBlock, noneBlock)

	g.fn.block = someBlock
	someTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), someTagPtr)
	valFieldPtr := g.fn.block.NewGetElementPtr(entryStructTy, found, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	val := g.fn.block.NewLoad(llvmValTy, valFieldPtr)
	payloadPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	castPtr := g.fn.block.NewBitCast(payloadPtr, irtypes.NewPointer(llvmValTy))
	g.fn.block.NewStore(val, castPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = noneBlock
	noneTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 1), noneTagPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return out, nil
}

// hashMapRemove tombstones a live match (state=2, size--, tombstones++)
// and returns whether a key was removed. Tombstones are counted toward
// the grow threshold (hashMapInsert) but their Entry is kept, not freed,
// since another probe sequence may still be walking past it.
func (g *Generator) hashMapRemove(s *types.Struct, recv, key value.Value) (value.Value, error) {
	structTy := g.structType(s)
	_, entryStructTy, _, _ := g.hashMapHeaderLayout(s)
	found, foundBool, err := g.hashMapLookup(s, recv, key)
	if err != nil {
		return nil, err
	}

	removeBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(foundBool, removeBlock, endBlock)

	g.fn.block = removeBlock
	statePtr := g.fn.block.NewGetElementPtr(entryStructTy, found, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	g.fn.block.NewStore(constant.NewInt(irtypes.I8, hashMapTombstone), statePtr)
	sizePtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	size := g.fn.block.NewLoad(irtypes.I32, sizePtr)
	g.fn.block.NewStore(g.fn.block.NewSub(size, constant.NewInt(irtypes.I32, 1)), sizePtr)
	tombPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 3))
	tomb := g.fn.block.NewLoad(irtypes.I32, tombPtr)
	g.fn.block.NewStore(g.fn.block.NewAdd(tomb, constant.NewInt(irtypes.I32, 1)), tombPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return foundBool, nil
}

// --- List (thin DynArray wrapper) --------------------------------------

func (g *Generator) methodList(n *ast.MethodCall, s *types.Struct) (value.Value, error) {
	recv, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	structTy := g.structType(s)
	itemsPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	itemsTy, err := g.mapType(s.Fields[0].Type)
	if err != nil {
		return nil, err
	}
	items := g.fn.block.NewLoad(itemsTy, itemsPtr)
	inner := &ast.MethodCall{Receiver: n.Receiver, Method: n.Method, Args: n.Args}
	dt := s.Fields[0].Type.(*types.DynArray)
	return g.methodDynArrayValue(inner, dt, items)
}

// methodDynArrayValue runs methodDynArray's switch against an
// already-evaluated receiver (List delegates to its items field this way
// instead of re-evaluating the receiver expression).
func (g *Generator) methodDynArrayValue(n *ast.MethodCall, dt *types.DynArray, recv value.Value) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.emitExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	elemTy, err := g.mapType(dt.Base)
	if err != nil {
		return nil, err
	}
	st := g.dynArrayStruct(dt.Base.String(), elemTy)
	lenPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	switch n.Method {
	case "len":
		return g.fn.block.NewLoad(irtypes.I64, lenPtr), nil
	case "get":
		return g.runtimeDynArrayGet(recv, args[0], dt.Base)
	case "push":
		g.emitDynArrayPush(st, recv, elemTy, dt.Base, args[0])
		return constant.NewInt(irtypes.I1, 0), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported List method %q", n.Method)
	}
}

// --- Own ----------------------------------------------------------------

func (g *Generator) methodOwn(n *ast.MethodCall, s *types.Struct) (value.Value, error) {
	recv, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	structTy := g.structType(s)
	ptrFieldPtr := g.fn.block.NewGetElementPtr(structTy, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	ptrTy, err := g.mapType(s.Fields[0].Type)
	if err != nil {
		return nil, err
	}
	innerPtr := g.fn.block.NewLoad(ptrTy, ptrFieldPtr)
	switch n.Method {
	case "get", "unwrap":
		elemTy, err := g.mapType(s.GenericArgs[0])
		if err != nil {
			return nil, err
		}
		return g.fn.block.NewLoad(elemTy, innerPtr), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported Own method %q", n.Method)
	}
}

// --- Result/Maybe -----------------------------------------------------

// methodResultMaybe implements the fixed method surface shared by
// Result<T,E> and Maybe<T>: both lower to the same two-variant tagged
// union (instantiateEnum, types.Result.AsEnum), payload-bearing variant
// always at tag 0 (Ok/Some), empty/failure variant always at tag 1
// (Err/None) — runtimeTryUnwrap relies on the identical encoding.
func (g *Generator) methodResultMaybe(n *ast.MethodCall, en *types.Enum) (value.Value, error) {
	recv, err := g.emitExpr(n.Receiver)
	if err != nil {
		return nil, err
	}
	st := g.enumType(en)
	tagPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	tag := g.fn.block.NewLoad(irtypes.I64, tagPtr)
	isOk := g.fn.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(irtypes.I64, 0))

	payloadTy := en.GenericArgs[0]
	llvmPayloadTy, err := g.mapType(payloadTy)
	if err != nil {
		return nil, err
	}

	switch n.Method {
	case "is_ok", "is_some":
		return isOk, nil
	case "is_err", "is_none":
		return g.fn.block.NewXor(isOk, constant.NewInt(irtypes.I1, 1)), nil
	case "realise":
		def, err := g.emitExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		return g.selectPayloadOrDefault(recv, st, isOk, llvmPayloadTy, def), nil
	case "expect":
		msg, err := g.emitExpr(n.Args[0])
		if err != nil {
			return nil, err
		}
		return g.emitExpectOrAbort(recv, st, isOk, llvmPayloadTy, msg)
	case "err":
		if len(en.GenericArgs) < 2 {
			return nil, fmt.Errorf("codegen: .err called on %s", en.GenericBase)
		}
		return g.emitResultErr(recv, st, isOk, en.GenericArgs[1])
	}
	return nil, fmt.Errorf("codegen: unsupported %s method %q", en.GenericBase, n.Method)
}

// selectPayloadOrDefault joins the Ok/Some payload with a caller-supplied
// default through a stack slot (this package's alloca-over-phi idiom, see
// emitShortCircuit), since LLVM's actual phi instruction isn't used here.
func (g *Generator) selectPayloadOrDefault(recv value.Value, st *irtypes.StructType, isOk value.Value, payloadTy irtypes.Type, def value.Value) value.Value {
	out := g.fn.block.NewAlloca(payloadTy)
	okBlock := g.fn.llvmFn.NewBlock("")
	defBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOk, okBlock, defBlock)

	g.fn.block = okBlock
	payloadPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	castPtr := g.fn.block.NewBitCast(payloadPtr, irtypes.NewPointer(payloadTy))
	val := g.fn.block.NewLoad(payloadTy, castPtr)
	g.fn.block.NewStore(val, out)
	g.fn.block.NewBr(endBlock)

	g.fn.block = defBlock
	g.fn.block.NewStore(def, out)
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return g.fn.block.NewLoad(payloadTy, out)
}

// emitExpectOrAbort extracts the Ok/Some payload, or prints msg and calls
// libc abort() on Err/None.
func (g *Generator) emitExpectOrAbort(recv value.Value, st *irtypes.StructType, isOk value.Value, payloadTy irtypes.Type, msg value.Value) (value.Value, error) {
	out := g.fn.block.NewAlloca(payloadTy)
	okBlock := g.fn.llvmFn.NewBlock("")
	failBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOk, okBlock, failBlock)

	g.fn.block = okBlock
	payloadPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	castPtr := g.fn.block.NewBitCast(payloadPtr, irtypes.NewPointer(payloadTy))
	val := g.fn.block.NewLoad(payloadTy, castPtr)
	g.fn.block.NewStore(val, out)
	g.fn.block.NewBr(endBlock)

	g.fn.block = failBlock
	if err := g.runtimePrint(msg, types.TypeString, true); err != nil {
		return nil, err
	}
	g.fn.block.NewCall(g.externs.abort)
	g.fn.block.NewUnreachable()

	g.fn.block = endBlock
	return g.fn.block.NewLoad(payloadTy, out), nil
}

// emitResultErr builds Result<T,E>.err() -> Maybe<E>: None when Ok, Some
// wrapping the Err payload otherwise.
func (g *Generator) emitResultErr(recv value.Value, st *irtypes.StructType, isOk value.Value, errTy types.Type) (value.Value, error) {
	maybeErr := &types.Enum{
		Name:        "Maybe<" + errTy.String() + ">",
		GenericBase: "Maybe",
		GenericArgs: []types.Type{errTy},
		Variants: []types.EnumVariant{
			{Name: "Some", Associated: []types.Type{errTy}},
			{Name: "None"},
		},
	}
	outTy := g.enumType(maybeErr)
	out := g.fn.block.NewAlloca(outTy)
	errLLVMTy, err := g.mapType(errTy)
	if err != nil {
		return nil, err
	}

	someBlock := g.fn.llvmFn.NewBlock("")
	noneBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isOk, noneBlock, someBlock)

	g.fn.block = someBlock
	someTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), someTagPtr)
	srcPayloadPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	srcCast := g.fn.block.NewBitCast(srcPayloadPtr, irtypes.NewPointer(errLLVMTy))
	errVal := g.fn.block.NewLoad(errLLVMTy, srcCast)
	dstPayloadPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	dstCast := g.fn.block.NewBitCast(dstPayloadPtr, irtypes.NewPointer(errLLVMTy))
	g.fn.block.NewStore(errVal, dstCast)
	g.fn.block.NewBr(endBlock)

	g.fn.block = noneBlock
	noneTagPtr := g.fn.block.NewGetElementPtr(outTy, out, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 1), noneTagPtr)
	g.fn.block.NewBr(endBlock)

	g.fn.block = endBlock
	return out, nil
}

// --- string ---------------------------------------------------------

func (g *Generator) methodString(n *ast.MethodCall) (value.Value, error) {
	args, recv, err := g.evalArgs(n)
	if err != nil {
		return nil, err
	}
	switch n.Method {
	case "len":
		st := g.stringStruct()
		lenPtr := g.fn.block.NewGetElementPtr(st, recv, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		return g.fn.block.NewLoad(irtypes.I64, lenPtr), nil
	case "concat":
		return g.runtimeStringConcat(recv, args[0])
	case "hash":
		return g.runtimeStringHash(recv)
	default:
		return nil, fmt.Errorf("codegen: unsupported string method %q", n.Method)
	}
}

func (g *Generator) runtimeStringHash(s value.Value) (value.Value, error) {
	st := g.stringStruct()
	dataPtr := g.fn.block.NewGetElementPtr(st, s, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	data := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), dataPtr)
	lenPtr := g.fn.block.NewGetElementPtr(st, s, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
	return g.emitHashBytes(data, length), nil
}

func (g *Generator) runtimeStringConcat(a, b value.Value) (value.Value, error) {
	st := g.stringStruct()
	aDataPtr := g.fn.block.NewGetElementPtr(st, a, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	aData := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), aDataPtr)
	aLenPtr := g.fn.block.NewGetElementPtr(st, a, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	aLen := g.fn.block.NewLoad(irtypes.I64, aLenPtr)

	bDataPtr := g.fn.block.NewGetElementPtr(st, b, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	bData := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), bDataPtr)
	bLenPtr := g.fn.block.NewGetElementPtr(st, b, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	bLen := g.fn.block.NewLoad(irtypes.I64, bLenPtr)

	total := g.fn.block.NewAdd(aLen, bLen)
	buf := g.fn.block.NewCall(g.externs.malloc, total)
	g.fn.block.NewCall(g.externs.memcpy, buf, aData, aLen)
	tailPtr := g.fn.block.NewGetElementPtr(irtypes.I8, buf, aLen)
	g.fn.block.NewCall(g.externs.memcpy, tailPtr, bData, bLen)

	return g.emitStringStruct(buf, total)
}

// runtimeToString renders a value as a string for interpolation. Strings
// pass through; everything else is snprintf'd via its type's printf
// conversion (mirrored in runtimePrint).
func (g *Generator) runtimeToString(v value.Value, t types.Type) (value.Value, error) {
	if isStringType(t) {
		return v, nil
	}
	spec, widened, err := g.printfOperand(v, t)
	if err != nil {
		return nil, err
	}
	fmtGlobal, err := g.formatGlobal(spec)
	if err != nil {
		return nil, err
	}
	const scratchBytes = 64
	buf := g.fn.block.NewCall(g.externs.malloc, constant.NewInt(irtypes.I64, scratchBytes))
	g.fn.block.NewCall(g.externs.snprintf, buf, constant.NewInt(irtypes.I64, scratchBytes), fmtGlobal, widened)
	length := g.runtimeCStrLen(buf)
	return g.emitStringStruct(buf, length)
}

func isStringType(t types.Type) bool {
	b, ok := t.(*types.Builtin)
	return ok && b.Kind == types.String
}

func (g *Generator) printfOperand(v value.Value, t types.Type) (string, value.Value, error) {
	if isFloatType(t) {
		return "%f", g.fn.block.NewFPExt(v, irtypes.Double), nil
	}
	if b, ok := t.(*types.Builtin); ok && b.Kind == types.Bool {
		return "%d", g.fn.block.NewZExt(v, irtypes.I32), nil
	}
	if isUnsignedType(t) {
		return "%llu", v, nil
	}
	return "%lld", v, nil
}

func (g *Generator) formatGlobal(s string) (value.Value, error) {
	data := constant.NewCharArrayFromString(s + "\x00")
	glob := g.module.NewGlobalDef("", data)
	glob.Immutable = true
	return g.fn.block.NewGetElementPtr(data.Type(), glob, constant.NewInt(irtypes.I64, 0), constant.NewInt(irtypes.I64, 0)), nil
}

// --- stdout/stderr/stdin/file ------------------------------------------

func (g *Generator) methodStream(n *ast.MethodCall, kind types.BuiltinKind) (value.Value, error) {
	args, recv, err := g.evalArgs(n)
	if err != nil {
		return nil, err
	}
	switch n.Method {
	case "write", "write_line":
		return g.runtimeWriteString(recv, args[0], n.Method == "write_line", kind)
	case "read_line":
		return g.runtimeReadLine(recv, kind)
	case "close":
		if kind == types.File {
			return g.fn.block.NewCall(g.externs.fclose, recv), nil
		}
		return constant.NewInt(irtypes.I1, 0), nil
	default:
		return nil, fmt.Errorf("codegen: unsupported stream method %q", n.Method)
	}
}

func (g *Generator) runtimeWriteString(handle, str value.Value, newline bool, kind types.BuiltinKind) (value.Value, error) {
	if err := g.runtimePrint(str, types.TypeString, newline); err != nil {
		return nil, err
	}
	return constant.NewInt(irtypes.I1, 0), nil
}

func (g *Generator) runtimeReadLine(handle value.Value, kind types.BuiltinKind) (value.Value, error) {
	buf := g.fn.block.NewCall(g.externs.malloc, constant.NewInt(irtypes.I64, 4096))
	g.fn.block.NewCall(g.externs.fgets, buf, constant.NewInt(irtypes.I32, 4096), handle)
	length := g.runtimeCStrLen(buf)
	return g.emitStringStruct(buf, length)
}

func (g *Generator) runtimeCStrLen(ptr value.Value) value.Value {
	fc := g.fn
	idxAlloca := fc.block.NewAlloca(irtypes.I64)
	fc.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)

	condBlock := fc.llvmFn.NewBlock("")
	bodyBlock := fc.llvmFn.NewBlock("")
	endBlock := fc.llvmFn.NewBlock("")
	fc.block.NewBr(condBlock)

	fc.block = condBlock
	idx := condBlock.NewLoad(irtypes.I64, idxAlloca)
	elemPtr := condBlock.NewGetElementPtr(irtypes.I8, ptr, idx)
	b := condBlock.NewLoad(irtypes.I8, elemPtr)
	cond := condBlock.NewICmp(enum.IPredNE, b, constant.NewInt(irtypes.I8, 0))
	condBlock.NewCondBr(cond, bodyBlock, endBlock)

	fc.block = bodyBlock
	idx2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	next := bodyBlock.NewAdd(idx2, constant.NewInt(irtypes.I64, 1))
	bodyBlock.NewStore(next, idxAlloca)
	bodyBlock.NewBr(condBlock)

	fc.block = endBlock
	return endBlock.NewLoad(irtypes.I64, idxAlloca)
}

// runtimePrint backs both the `print`/`println` statement form and
// stdout/stderr.write(_line): strings go straight to printf's "%.*s",
// everything else through its scalar conversion specifier.
func (g *Generator) runtimePrint(val value.Value, t types.Type, newline bool) error {
	if isStringType(t) {
		st := g.stringStruct()
		dataPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		data := g.fn.block.NewLoad(irtypes.NewPointer(irtypes.I8), dataPtr)
		lenPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
		fmtStr := "%.*s"
		if newline {
			fmtStr = "%.*s\n"
		}
		fmtGlobal, _ := g.formatGlobal(fmtStr)
		lenI32 := g.fn.block.NewTrunc(length, irtypes.I32)
		g.fn.block.NewCall(g.externs.printf, fmtGlobal, lenI32, data)
		return nil
	}
	spec, widened, err := g.printfOperand(val, t)
	if err != nil {
		return err
	}
	if newline {
		spec += "\n"
	}
	fmtGlobal, _ := g.formatGlobal(spec)
	g.fn.block.NewCall(g.externs.printf, fmtGlobal, widened)
	return nil
}

// --- range/try --------------------------------------------------------

func (g *Generator) runtimeRangeIterator(start, end value.Value, elemTy types.Type) (value.Value, error) {
	st := g.iteratorStruct(elemTy)
	alloca := g.fn.block.NewAlloca(st)
	llvmElemTy, err := g.mapType(elemTy)
	if err != nil {
		return nil, err
	}
	startAlloca := g.fn.block.NewAlloca(llvmElemTy)
	g.fn.block.NewStore(start, startAlloca)
	endAlloca := g.fn.block.NewAlloca(llvmElemTy)
	g.fn.block.NewStore(end, endAlloca)

	curPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	g.fn.block.NewStore(startAlloca, curPtr)
	endFieldPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	g.fn.block.NewStore(endAlloca, endFieldPtr)
	flagPtr := g.fn.block.NewGetElementPtr(st, alloca, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	g.fn.block.NewStore(constant.NewInt(irtypes.I64, 0), flagPtr)
	return alloca, nil
}

// runtimeTryUnwrap lowers `expr??`: on the Err tag, the current function
// returns the inner Result pointer immediately and unchanged (it is not
// rebuilt as the enclosing function's Result type, and no scope cleanup
// is emitted before the return); on Ok it yields the unwrapped payload.
func (g *Generator) runtimeTryUnwrap(inner value.Value, n *ast.TryExpr) (value.Value, error) {
	resultEnum, ok := n.InferredInner.(*types.Result)
	if !ok {
		return nil, fmt.Errorf("codegen: ?? applied to non-Result expression")
	}
	en := resultEnum.AsEnum()
	st := g.enumType(en)
	tagPtr := g.fn.block.NewGetElementPtr(st, inner, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	tag := g.fn.block.NewLoad(irtypes.I64, tagPtr)
	isErr := g.fn.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(irtypes.I64, 1))

	errBlock := g.fn.llvmFn.NewBlock("")
	okBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(isErr, errBlock, okBlock)

	g.fn.block = errBlock
	g.fn.block.NewRet(inner)

	g.fn.block = okBlock
	payloadPtr := g.fn.block.NewGetElementPtr(st, inner, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
	okTy, err := g.mapType(resultEnum.Ok)
	if err != nil {
		return nil, err
	}
	castPtr := g.fn.block.NewBitCast(payloadPtr, irtypes.NewPointer(okTy))
	return g.fn.block.NewLoad(okTy, castPtr), nil
}
