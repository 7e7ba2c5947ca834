package llvm

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sushi-lang/sushi/internal/types"
)

// needsCleanup reports whether a value of type t transitively carries heap
// memory that must be released at scope exit (invariant D1). It gates all
// destructor descent: a type for which this returns false gets no destroy
// call emitted at all, so a plain struct of scalars costs zero IR. Own<T>
// always needs cleanup (it holds a heap pointer outright); a struct or enum
// needs it only if some field/variant actually reaches an Own<T> or
// DynArray; a DynArray always needs it since its backing buffer is always
// malloc'd regardless of what it stores.
func needsCleanup(t types.Type) bool {
	switch tt := t.(type) {
	case *types.Struct:
		if tt.GenericBase == "Own" {
			return true
		}
		for _, f := range tt.Fields {
			if needsCleanup(f.Type) {
				return true
			}
		}
		return false
	case *types.Enum:
		for _, v := range tt.Variants {
			for _, a := range v.Associated {
				if needsCleanup(a) {
					return true
				}
			}
		}
		return false
	case *types.DynArray:
		return true
	default:
		return false
	}
}

// emitDestroy runs the destructor for one scope-exiting local (invariant
// D1): structs walk the fields that need it, enums switch on their live tag
// and walk that variant's associated values, DynArrays free their backing
// buffer. Every container here is a stack alloca (see emitStructConstructor,
// emitEnumConstructor, runtimeDynArrayNew) and is never itself freed — only
// the heap memory it owns (Own<T>'s pointee, a DynArray's data buffer) is.
func (g *Generator) emitDestroy(lv *localVar) error {
	if !needsCleanup(lv.typ) {
		return nil
	}
	val := g.fn.block.NewLoad(lv.llvmTyp, lv.alloca)
	return g.destroyValue(val, lv.typ)
}

func (g *Generator) destroyValue(ptr value.Value, t types.Type) error {
	switch tt := t.(type) {
	case *types.Struct:
		return g.destroyStruct(ptr, tt)
	case *types.Enum:
		return g.destroyEnum(ptr, tt)
	case *types.DynArray:
		return g.destroyDynArray(ptr, tt)
	default:
		return nil
	}
}

func (g *Generator) destroyStruct(ptr value.Value, s *types.Struct) error {
	if s.GenericBase == "Own" {
		return g.destroyOwn(ptr, s)
	}
	structTy := g.structType(s)
	for i, f := range s.Fields {
		if !needsCleanup(f.Type) {
			continue
		}
		fieldPtr := g.fn.block.NewGetElementPtr(structTy, ptr,
			constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(i)))
		fieldTy, err := g.mapType(f.Type)
		if err != nil {
			return err
		}
		fieldVal := g.fn.block.NewLoad(fieldTy, fieldPtr)
		if err := g.destroyValue(fieldVal, f.Type); err != nil {
			return err
		}
	}
	return nil
}

// destroyOwn frees the heap pointee held by an Own<T>, not the Own struct's
// own container slot. Loads the owned pointer, and only when it is non-null
// recursively destructs the pointee (if T itself needs cleanup) before
// freeing the pointer — the load/check/recurse/free sequence a Sushi
// destroy() block emits for Own<T> specifically.
func (g *Generator) destroyOwn(ptr value.Value, s *types.Struct) error {
	structTy := g.structType(s)
	ptrFieldPtr := g.fn.block.NewGetElementPtr(structTy, ptr,
		constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	ptrTy, err := g.mapType(s.Fields[0].Type)
	if err != nil {
		return err
	}
	innerPtr := g.fn.block.NewLoad(ptrTy, ptrFieldPtr)

	namedPtrTy, ok := ptrTy.(*irtypes.PointerType)
	if !ok {
		g.emitFree(innerPtr)
		return nil
	}

	notNull := g.fn.block.NewICmp(enum.IPredNE, innerPtr, constant.NewNull(namedPtrTy))
	freeBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewCondBr(notNull, freeBlock, endBlock)

	g.fn.block = freeBlock
	if len(s.GenericArgs) > 0 && needsCleanup(s.GenericArgs[0]) {
		elemTy, err := g.mapType(s.GenericArgs[0])
		if err != nil {
			return err
		}
		pointee := g.fn.block.NewLoad(elemTy, innerPtr)
		if err := g.destroyValue(pointee, s.GenericArgs[0]); err != nil {
			return err
		}
	}
	g.emitFree(innerPtr)
	if g.fn.block.Term == nil {
		g.fn.block.NewBr(endBlock)
	}
	g.fn.block = endBlock
	return nil
}

func (g *Generator) destroyDynArray(ptr value.Value, d *types.DynArray) error {
	st := g.dynArrayStructFor(d)
	dataPtr := g.fn.block.NewGetElementPtr(st, ptr,
		constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
	elemTy, err := g.mapType(d.Base)
	if err != nil {
		return err
	}
	data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
	if needsCleanup(d.Base) {
		lenPtr := g.fn.block.NewGetElementPtr(st, ptr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
		if err := g.destroyDynArrayElems(data, elemTy, length, d.Base); err != nil {
			return err
		}
	}
	g.emitFree(data)
	return nil
}

// destroyDynArrayElems loops 0..length destroying every owned element of
// a freed DynArray's backing buffer before the buffer itself is freed.
func (g *Generator) destroyDynArrayElems(data value.Value, elemTy irtypes.Type, length value.Value, elemSushiTy types.Type) error {
	fc := g.fn
	idxAlloca := fc.block.NewAlloca(irtypes.I64)
	fc.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)

	condBlock := fc.llvmFn.NewBlock("")
	bodyBlock := fc.llvmFn.NewBlock("")
	endBlock := fc.llvmFn.NewBlock("")
	fc.block.NewBr(condBlock)

	fc.block = condBlock
	idx := condBlock.NewLoad(irtypes.I64, idxAlloca)
	cond := condBlock.NewICmp(enum.IPredSLT, idx, length)
	condBlock.NewCondBr(cond, bodyBlock, endBlock)

	fc.block = bodyBlock
	idx2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	elemPtr := bodyBlock.NewGetElementPtr(elemTy, data, idx2)
	elemVal := bodyBlock.NewLoad(elemTy, elemPtr)
	if err := g.destroyValue(elemVal, elemSushiTy); err != nil {
		return err
	}
	next := g.fn.block.NewAdd(idx2, constant.NewInt(irtypes.I64, 1))
	g.fn.block.NewStore(next, idxAlloca)
	g.fn.block.NewBr(condBlock)

	fc.block = endBlock
	return nil
}

// destroyEnum switches on the live tag and descends into that variant's
// associated values. Built the same way emitMatch lowers arms: a chain of
// tag comparisons rather than an LLVM switch instruction, since variant
// count is usually small. The enum's own alloca is never freed here — only
// owned payloads (e.g. an Own<T> or DynArray carried in a variant) are.
func (g *Generator) destroyEnum(ptr value.Value, e *types.Enum) error {
	st := g.enumType(e)
	tagPtr := g.fn.block.NewGetElementPtr(st, ptr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	tag := g.fn.block.NewLoad(irtypes.I64, tagPtr)

	endBlock := g.fn.llvmFn.NewBlock("")
	next := g.fn.block
	for i, v := range e.Variants {
		if len(v.Associated) == 0 {
			continue
		}
		hasOwned := false
		for _, a := range v.Associated {
			if needsCleanup(a) {
				hasOwned = true
			}
		}
		if !hasOwned {
			continue
		}
		matchBlock := g.fn.llvmFn.NewBlock("")
		contBlock := g.fn.llvmFn.NewBlock("")
		cmp := next.NewICmp(enum.IPredEQ, tag, constant.NewInt(irtypes.I64, int64(i)))
		next.NewCondBr(cmp, matchBlock, contBlock)

		g.fn.block = matchBlock
		payloadPtr := g.fn.block.NewGetElementPtr(st, ptr, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		offset := 0
		for _, a := range v.Associated {
			if needsCleanup(a) {
				fieldTy, err := g.mapType(a)
				if err != nil {
					return err
				}
				slotPtr := g.fn.block.NewGetElementPtr(irtypes.I8, payloadPtr, constant.NewInt(irtypes.I64, int64(offset)))
				castPtr := g.fn.block.NewBitCast(slotPtr, irtypes.NewPointer(fieldTy))
				val := g.fn.block.NewLoad(fieldTy, castPtr)
				if err := g.destroyValue(val, a); err != nil {
					return err
				}
			}
			offset += g.byteSizeOf(a)
		}
		if g.fn.block.Term == nil {
			g.fn.block.NewBr(endBlock)
		}
		next = contBlock
		g.fn.block = next
	}
	if next.Term == nil {
		next.NewBr(endBlock)
	}
	g.fn.block = endBlock
	return nil
}

func (g *Generator) dynArrayStructFor(d *types.DynArray) *irtypes.StructType {
	elemTy, err := g.mapType(d.Base)
	if err != nil {
		elemTy = irtypes.I8
	}
	return g.dynArrayStruct(d.Base.String(), elemTy)
}

func (g *Generator) emitFree(ptr value.Value) {
	i8ptr := irtypes.NewPointer(irtypes.I8)
	cast := g.fn.block.NewBitCast(ptr, i8ptr)
	g.fn.block.NewCall(g.externs.free, cast)
}
