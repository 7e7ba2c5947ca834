package llvm

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// FNV-1a 64-bit offset/prime, the standard published constants.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// emitHashBytes inlines an FNV-1a loop over the n bytes starting at ptr
// directly into the current block, returning the resulting i64 hash.
// This backs string.hash() and the auto-derived Hashable perk for
// primitives.
func (g *Generator) emitHashBytes(ptr value.Value, n value.Value) value.Value {
	fc := g.fn
	hashAlloca := fc.block.NewAlloca(irtypes.I64)
	fc.block.NewStore(constant.NewInt(irtypes.I64, int64(fnvOffset64)), hashAlloca)
	idxAlloca := fc.block.NewAlloca(irtypes.I64)
	fc.block.NewStore(constant.NewInt(irtypes.I64, 0), idxAlloca)

	condBlock := fc.llvmFn.NewBlock("")
	bodyBlock := fc.llvmFn.NewBlock("")
	endBlock := fc.llvmFn.NewBlock("")

	fc.block.NewBr(condBlock)

	fc.block = condBlock
	idx := condBlock.NewLoad(irtypes.I64, idxAlloca)
	cond := condBlock.NewICmp(enum.IPredSLT, idx, n)
	condBlock.NewCondBr(cond, bodyBlock, endBlock)

	fc.block = bodyBlock
	idx2 := bodyBlock.NewLoad(irtypes.I64, idxAlloca)
	elemPtr := bodyBlock.NewGetElementPtr(irtypes.I8, ptr, idx2)
	b := bodyBlock.NewLoad(irtypes.I8, elemPtr)
	bExt := bodyBlock.NewZExt(b, irtypes.I64)
	h := bodyBlock.NewLoad(irtypes.I64, hashAlloca)
	xored := bodyBlock.NewXor(h, bExt)
	multed := bodyBlock.NewMul(xored, constant.NewInt(irtypes.I64, int64(fnvPrime64)))
	bodyBlock.NewStore(multed, hashAlloca)
	next := bodyBlock.NewAdd(idx2, constant.NewInt(irtypes.I64, 1))
	bodyBlock.NewStore(next, idxAlloca)
	bodyBlock.NewBr(condBlock)

	fc.block = endBlock
	return endBlock.NewLoad(irtypes.I64, hashAlloca)
}

// emitHashCombine folds one field's already-computed i64 hash into an
// aggregate struct/enum hash using the same xor-then-multiply combinator
// as emitHashBytes (confirmed against hash_utils.py, SPEC_FULL.md
// SUPPLEMENTED FEATURES #5 — not addition).
func (g *Generator) emitHashCombine(acc, fieldHash value.Value) value.Value {
	b := g.fn.block
	xored := b.NewXor(acc, fieldHash)
	return b.NewMul(xored, constant.NewInt(irtypes.I64, int64(fnvPrime64)))
}
