package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/types"
)

// emitMain exports a C-ABI `int main(void)` wrapping the source-level
// `main() Result<T,E>`: calls the Sushi entry point,
// extracts its Ok payload as an exit code when that payload is integral
// (or 0 for a blank return), and turns an Err result into a non-zero
// exit code.
func (g *Generator) emitMain(file *ast.File) error {
	sushiMain, ok := g.funcs["main"]
	if !ok {
		return nil // a library compilation unit may have no entry point
	}
	sig, hasSig := g.tables.Functions["main"]

	cMain := g.module.NewFunc("main", irtypes.I32)
	entry := cMain.NewBlock("entry")

	result := entry.NewCall(sushiMain)

	var retTy types.Type = types.TypeString
	if hasSig {
		retTy = sig.Return
	}
	resultEnum := (&types.Result{Ok: retTy, Err: types.TypeString}).AsEnum()
	st := g.enumType(resultEnum)

	tagPtr := entry.NewGetElementPtr(st, result, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 0))
	tag := entry.NewLoad(irtypes.I64, tagPtr)
	isErr := entry.NewICmp(enum.IPredEQ, tag, constant.NewInt(irtypes.I64, 1))

	errBlock := cMain.NewBlock("")
	okBlock := cMain.NewBlock("")
	entry.NewCondBr(isErr, errBlock, okBlock)

	errBlock.NewRet(constant.NewInt(irtypes.I32, 1))

	if b, isBuiltin := retTy.(*types.Builtin); isBuiltin && b.Kind != types.Blank && b.Kind != types.String && !b.Kind.IsFloat() {
		payloadPtr := okBlock.NewGetElementPtr(st, result, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, 1))
		okTy, err := g.mapType(retTy)
		if err != nil {
			return fmt.Errorf("main wrapper: %w", err)
		}
		castPtr := okBlock.NewBitCast(payloadPtr, irtypes.NewPointer(okTy))
		payload := okBlock.NewLoad(okTy, castPtr)
		code := okBlock.NewTrunc(payload, irtypes.I32)
		okBlock.NewRet(code)
	} else {
		okBlock.NewRet(constant.NewInt(irtypes.I32, 0))
	}

	return nil
}
