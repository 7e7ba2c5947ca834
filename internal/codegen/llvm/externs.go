package llvm

import (
	"github.com/llir/llvm/ir"
	irtypes "github.com/llir/llvm/ir/types"
)

// externs holds every libc/platform function declared once per module
// (C14). Declared eagerly, whether or not the compilation unit ends up
// calling each one: malloc/free/memcpy (runtime allocation), sys/env's
// getenv/setenv, and sys/process's getpid/exit/sleep.
type externs struct {
	malloc  *ir.Func
	free    *ir.Func
	realloc *ir.Func
	memcpy  *ir.Func
	memset  *ir.Func

	getenv *ir.Func
	setenv *ir.Func

	getpid *ir.Func
	exit   *ir.Func
	abort  *ir.Func
	sleep  *ir.Func

	putchar  *ir.Func
	printf   *ir.Func
	snprintf *ir.Func
	fopen    *ir.Func
	fclose   *ir.Func
	fread    *ir.Func
	fwrite   *ir.Func
	fgets    *ir.Func
	fseek    *ir.Func
}

func declareExterns(g *Generator) *externs {
	m := g.module
	i8ptr := irtypes.NewPointer(irtypes.I8)

	ex := &externs{
		malloc:  m.NewFunc("malloc", i8ptr, ir.NewParam("size", irtypes.I64)),
		free:    m.NewFunc("free", irtypes.Void, ir.NewParam("ptr", i8ptr)),
		realloc: m.NewFunc("realloc", i8ptr, ir.NewParam("ptr", i8ptr), ir.NewParam("size", irtypes.I64)),
		memcpy:  m.NewFunc("memcpy", i8ptr, ir.NewParam("dst", i8ptr), ir.NewParam("src", i8ptr), ir.NewParam("n", irtypes.I64)),
		memset:  m.NewFunc("memset", i8ptr, ir.NewParam("dst", i8ptr), ir.NewParam("val", irtypes.I32), ir.NewParam("n", irtypes.I64)),

		getenv: m.NewFunc("getenv", i8ptr, ir.NewParam("name", i8ptr)),
		setenv: m.NewFunc("setenv", irtypes.I32, ir.NewParam("name", i8ptr), ir.NewParam("value", i8ptr), ir.NewParam("overwrite", irtypes.I32)),

		getpid: m.NewFunc("getpid", irtypes.I32),
		exit:   m.NewFunc("exit", irtypes.Void, ir.NewParam("code", irtypes.I32)),
		abort:  m.NewFunc("abort", irtypes.Void),
		sleep:  m.NewFunc("sleep", irtypes.I32, ir.NewParam("seconds", irtypes.I32)),

		putchar:  m.NewFunc("putchar", irtypes.I32, ir.NewParam("c", irtypes.I32)),
		printf:   m.NewFunc("printf", irtypes.I32, ir.NewParam("fmt", i8ptr)),
		snprintf: m.NewFunc("snprintf", irtypes.I32, ir.NewParam("buf", i8ptr), ir.NewParam("n", irtypes.I64), ir.NewParam("fmt", i8ptr)),
		fopen:   m.NewFunc("fopen", i8ptr, ir.NewParam("path", i8ptr), ir.NewParam("mode", i8ptr)),
		fclose:  m.NewFunc("fclose", irtypes.I32, ir.NewParam("f", i8ptr)),
		fread:   m.NewFunc("fread", irtypes.I64, ir.NewParam("buf", i8ptr), ir.NewParam("size", irtypes.I64), ir.NewParam("n", irtypes.I64), ir.NewParam("f", i8ptr)),
		fwrite:  m.NewFunc("fwrite", irtypes.I64, ir.NewParam("buf", i8ptr), ir.NewParam("size", irtypes.I64), ir.NewParam("n", irtypes.I64), ir.NewParam("f", i8ptr)),
		fgets:   m.NewFunc("fgets", i8ptr, ir.NewParam("buf", i8ptr), ir.NewParam("n", irtypes.I32), ir.NewParam("f", i8ptr)),
		fseek:   m.NewFunc("fseek", irtypes.I32, ir.NewParam("f", i8ptr), ir.NewParam("offset", irtypes.I64), ir.NewParam("whence", irtypes.I32)),
	}
	ex.printf.Sig.Variadic = true
	ex.snprintf.Sig.Variadic = true
	return ex
}
