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

// emitForeach lowers `foreach item in iterable: body` over a fixed Array,
// a DynArray, or a range Iterator by reducing every source to a
// cursor/end pointer pair and walking it with pointer comparison, the way
// a for-loop over a raw buffer is written in C.
func (g *Generator) emitForeach(n *ast.ForeachStmt) error {
	iterVal, err := g.emitExpr(n.Iterable)
	if err != nil {
		return err
	}
	cursor, end, elemTy, err := g.iterableBounds(iterVal, n.Iterable.Type())
	if err != nil {
		return err
	}

	curAlloca := g.fn.block.NewAlloca(irtypes.NewPointer(elemTy))
	g.fn.block.NewStore(cursor, curAlloca)

	condBlock := g.fn.llvmFn.NewBlock("")
	bodyBlock := g.fn.llvmFn.NewBlock("")
	endBlock := g.fn.llvmFn.NewBlock("")
	g.fn.block.NewBr(condBlock)

	g.fn.block = condBlock
	cur := condBlock.NewLoad(irtypes.NewPointer(elemTy), curAlloca)
	cond := condBlock.NewICmp(enum.IPredNE, cur, end)
	condBlock.NewCondBr(cond, bodyBlock, endBlock)

	g.fn.block = bodyBlock
	cur2 := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), curAlloca)
	item := g.fn.block.NewLoad(elemTy, cur2)
	itemAlloca := g.fn.block.NewAlloca(elemTy)
	g.fn.block.NewStore(item, itemAlloca)

	g.fn.loopCond = append(g.fn.loopCond, condBlock)
	g.fn.loopEnd = append(g.fn.loopEnd, endBlock)
	g.pushScope()
	g.fn.locals[n.Item] = &localVar{alloca: itemAlloca, typ: n.ItemType, llvmTyp: elemTy}
	frame := g.fn.scopes[len(g.fn.scopes)-1]
	frame.names = append(frame.names, n.Item)

	if err := g.emitBlock(n.Body); err != nil {
		return err
	}
	if err := g.popScope(nil); err != nil {
		return err
	}
	g.fn.loopCond = g.fn.loopCond[:len(g.fn.loopCond)-1]
	g.fn.loopEnd = g.fn.loopEnd[:len(g.fn.loopEnd)-1]

	if g.fn.block.Term == nil {
		next := g.fn.block.NewGetElementPtr(elemTy, cur2, constant.NewInt(irtypes.I64, 1))
		g.fn.block.NewStore(next, curAlloca)
		g.fn.block.NewBr(condBlock)
	}

	g.fn.block = endBlock
	return nil
}

// iterableBounds reduces an Array/DynArray/Iterator value to a
// [cursor, end) pointer pair over its element type.
func (g *Generator) iterableBounds(val value.Value, t types.Type) (cursor, end value.Value, elemTy irtypes.Type, err error) {
	switch tt := t.(type) {
	case *types.Array:
		elemTy, err = g.mapType(tt.Base)
		if err != nil {
			return nil, nil, nil, err
		}
		arrTy := irtypes.NewArray(uint64(tt.Size), elemTy)
		cursor = g.fn.block.NewGetElementPtr(arrTy, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		end = g.fn.block.NewGetElementPtr(arrTy, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(tt.Size)))
		return cursor, end, elemTy, nil
	case *types.DynArray:
		elemTy, err = g.mapType(tt.Base)
		if err != nil {
			return nil, nil, nil, err
		}
		st := g.dynArrayStruct(tt.Base.String(), elemTy)
		dataPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 2))
		data := g.fn.block.NewLoad(irtypes.NewPointer(elemTy), dataPtr)
		lenPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		length := g.fn.block.NewLoad(irtypes.I64, lenPtr)
		endPtr := g.fn.block.NewGetElementPtr(elemTy, data, length)
		return data, endPtr, elemTy, nil
	case *types.Iterator:
		elemTy, err = g.mapType(tt.Element)
		if err != nil {
			return nil, nil, nil, err
		}
		st := g.iteratorStruct(tt.Element)
		curPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		endFieldPtr := g.fn.block.NewGetElementPtr(st, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		cursor = g.fn.block.NewLoad(irtypes.NewPointer(elemTy), curPtr)
		end = g.fn.block.NewLoad(irtypes.NewPointer(elemTy), endFieldPtr)
		return cursor, end, elemTy, nil
	default:
		return nil, nil, nil, fmt.Errorf("codegen: type %s is not iterable", t.String())
	}
}

// emitMatch lowers `match scrutinee: arm*` to a chain of tag comparisons
// against the enum's i64 discriminant, binding each arm's
// captures by GEP'ing into the tagged-union payload at the byte offset
// its variant's associated values accumulate to, the same offsets
// emitEnumConstructor/destroyEnum use to write/read them.
func (g *Generator) emitMatch(n *ast.MatchStmt) error {
	scrutVal, err := g.emitExpr(n.Scrutinee)
	if err != nil {
		return err
	}
	enumTy, ok := n.Scrutinee.Type().(*types.Enum)
	if !ok {
		return fmt.Errorf("codegen: match scrutinee is not an enum")
	}
	st := g.enumType(enumTy)
	tagPtr := g.fn.block.NewGetElementPtr(st, scrutVal, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	tag := g.fn.block.NewLoad(irtypes.I64, tagPtr)

	endBlock := g.fn.llvmFn.NewBlock("")
	cur := g.fn.block
	done := false

	for _, arm := range n.Arms {
		if done {
			break // unreachable arm after a wildcard (the checker rejects this; defensive only)
		}
		switch pat := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			g.fn.block = cur
			if err := g.emitArmBody(arm.Body); err != nil {
				return err
			}
			if g.fn.block.Term == nil {
				g.fn.block.NewBr(endBlock)
			}
			done = true
		case *ast.EnumPattern:
			matchBlock := g.fn.llvmFn.NewBlock("")
			contBlock := g.fn.llvmFn.NewBlock("")
			variantIdx := pat.Resolved.VariantIndex(pat.Variant)
			cmp := cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(irtypes.I64, int64(variantIdx)))
			cur.NewCondBr(cmp, matchBlock, contBlock)

			g.fn.block = matchBlock
			g.pushScope()
			variant, _ := pat.Resolved.Variant(pat.Variant)
			if len(pat.Bindings) > 0 {
				payloadPtr := g.fn.block.NewGetElementPtr(st, scrutVal, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
				offset := 0
				for i, b := range pat.Bindings {
					assocTy := variant.Associated[i]
					if err := g.bindPattern(b, assocTy, payloadPtr, offset); err != nil {
						return err
					}
					offset += g.byteSizeOf(assocTy)
				}
			}
			if err := g.emitArmBody(arm.Body); err != nil {
				return err
			}
			if err := g.popScope(nil); err != nil {
				return err
			}
			if g.fn.block.Term == nil {
				g.fn.block.NewBr(endBlock)
			}
			cur = contBlock
			g.fn.block = cur
		default:
			return fmt.Errorf("codegen: unsupported match pattern %T", arm.Pattern)
		}
	}
	if !done && cur.Term == nil {
		cur.NewBr(endBlock)
	}
	g.fn.block = endBlock
	return nil
}

func (g *Generator) emitArmBody(body []ast.Stmt) error {
	g.pushScope()
	if err := g.emitBlock(body); err != nil {
		return err
	}
	return g.popScope(nil)
}

// bindPattern materializes one enum-payload binding into a fresh local,
// unwrapping a single level of Own(...) when the binding nests one
//.
func (g *Generator) bindPattern(b ast.Binding, assocTy types.Type, payloadPtr value.Value, offset int) error {
	if b.Discard {
		return nil
	}
	fieldTy, err := g.mapType(assocTy)
	if err != nil {
		return err
	}
	slotPtr := g.fn.block.NewGetElementPtr(irtypes.I8, payloadPtr, constant.NewInt(irtypes.I64, int64(offset)))
	castPtr := g.fn.block.NewBitCast(slotPtr, irtypes.NewPointer(fieldTy))
	val := g.fn.block.NewLoad(fieldTy, castPtr)

	if b.Nested != nil {
		own, ok := b.Nested.(*ast.OwnPattern)
		if !ok {
			return fmt.Errorf("codegen: unsupported nested binding pattern %T", b.Nested)
		}
		ownStruct, ok := assocTy.(*types.Struct)
		if !ok || ownStruct.GenericBase != "Own" {
			return fmt.Errorf("codegen: Own(...) binding against non-Own type %s", assocTy.String())
		}
		ownStructTy := g.structType(ownStruct)
		ptrFieldPtr := g.fn.block.NewGetElementPtr(ownStructTy, val, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
		innerPtrTy, err := g.mapType(ownStruct.Fields[0].Type)
		if err != nil {
			return err
		}
		innerPtr := g.fn.block.NewLoad(innerPtrTy, ptrFieldPtr)
		innerElemTy, err := g.mapType(ownStruct.GenericArgs[0])
		if err != nil {
			return err
		}
		innerVal := g.fn.block.NewLoad(innerElemTy, innerPtr)
		return g.declareBinding(inner(own), innerVal, ownStruct.GenericArgs[0], innerElemTy)
	}
	return g.declareBinding(b.Name, val, b.ResolvedType, fieldTy)
}

func inner(own *ast.OwnPattern) string {
	if cap, ok := own.Inner.(*ast.CapturePattern); ok {
		return cap.Name
	}
	return "_"
}

func (g *Generator) declareBinding(name string, val value.Value, t types.Type, llvmTy irtypes.Type) error {
	if name == "" || name == "_" {
		return nil
	}
	alloca := g.fn.block.NewAlloca(llvmTy)
	g.fn.block.NewStore(val, alloca)
	g.fn.locals[name] = &localVar{alloca: alloca, typ: t, llvmTyp: llvmTy}
	frame := g.fn.scopes[len(g.fn.scopes)-1]
	frame.names = append(frame.names, name)
	return nil
}
