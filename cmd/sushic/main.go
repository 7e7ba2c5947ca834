package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/codegen/llvm"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/parser"
	"github.com/sushi-lang/sushi/internal/sema"
)

// findLLC finds the llc executable, checking PATH first, then common
// Homebrew installation locations.
func findLLC() (string, error) {
	if path, err := exec.LookPath("llc"); err == nil {
		return path, nil
	}
	if brewPrefix := os.Getenv("HOMEBREW_PREFIX"); brewPrefix != "" {
		if p := filepath.Join(brewPrefix, "opt/llvm/bin/llc"); fileExists(p) {
			return p, nil
		}
	} else {
		for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
			if p := filepath.Join(prefix, "opt/llvm/bin/llc"); fileExists(p) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("llc not found in PATH or common installation locations")
}

// findOpt finds the opt executable (LLVM optimizer), checking PATH first,
// then common Homebrew installation locations.
func findOpt() (string, error) {
	if path, err := exec.LookPath("opt"); err == nil {
		return path, nil
	}
	if brewPrefix := os.Getenv("HOMEBREW_PREFIX"); brewPrefix != "" {
		if p := filepath.Join(brewPrefix, "opt/llvm/bin/opt"); fileExists(p) {
			return p, nil
		}
	} else {
		for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
			if p := filepath.Join(prefix, "opt/llvm/bin/opt"); fileExists(p) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("opt not found in PATH or common installation locations")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// optimizeLLVM applies LLVM optimization passes to the IR file, returning
// the path to the optimized file or the original one if opt is missing or
// the pass pipeline fails. Optimization is never load-bearing: a failure
// here falls back to the unoptimized IR rather than aborting the build.
func optimizeLLVM(irFile string, level string) (string, error) {
	debugLog("starting LLVM optimization for %s (level %s)\n", irFile, level)
	optPath, err := findOpt()
	if err != nil {
		debugLog("opt not found, skipping optimization\n")
		return irFile, nil
	}

	var pipeline string
	switch level {
	case "0", "none":
		return irFile, nil
	case "1", "s":
		pipeline = "default<O1>"
	case "3", "z":
		pipeline = "default<O3>"
	default:
		pipeline = "default<O2>"
	}

	optFile := irFile + ".opt"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	args := []string{"-S", "-o", optFile, "-passes=" + pipeline, irFile}
	debugLog("running opt: %s %v\n", optPath, args)
	cmd := exec.CommandContext(ctx, optPath, args...)
	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf
	if err := cmd.Run(); err != nil {
		if os.Getenv("SUSHI_DEBUG_OPT") != "" {
			fmt.Fprintf(os.Stderr, "warning: LLVM optimization failed: %v\n", err)
			if stderrBuf.Len() > 0 {
				fmt.Fprintf(os.Stderr, "opt error output: %s\n", stderrBuf.String())
			}
		}
		return irFile, nil
	}
	debugLog("optimization successful: %s\n", optFile)
	return optFile, nil
}

func formatDiagnostic(d diag.Diagnostic) {
	fmt.Fprintf(os.Stderr, "%s\n", d.String())
	if len(d.Notes) > 0 {
		for _, n := range d.Notes {
			fmt.Fprintf(os.Stderr, "  note: %s\n", n)
		}
	}
	if d.Help != "" {
		fmt.Fprintf(os.Stderr, "  help: %s\n", d.Help)
	}
}

func debugLog(format string, a ...interface{}) {
	if os.Getenv("SUSHI_DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format, a...)
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sushic [flags] <command> [arguments]\n")
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  build <file>    Compile a Sushi source file\n")
		fmt.Fprintf(os.Stderr, "  run <file>      Compile and run a Sushi source file\n")
		fmt.Fprintf(os.Stderr, "  fmt <file>      Format a Sushi source file\n")
		fmt.Fprintf(os.Stderr, "  version         Show version information\n")
	}
	flag.Parse()

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "build":
		runBuild(args)
	case "run":
		runRun(args)
	case "fmt":
		runFmt(args)
	case "version", "-v", "--version":
		runVersion()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

// compileToTemp runs the full front end (parse -> collect -> check) and
// then C10-C14 codegen, writing the generated module to a temp .ll file.
func compileToTemp(filename string) (string, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("error reading file: %v", err)
	}

	rep := diag.NewReporter(filename)
	p := parser.New(filename, string(src), rep)
	file := p.ParseFile()

	if rep.HasErrors() {
		for _, d := range rep.Sorted() {
			formatDiagnostic(d)
		}
		return "", fmt.Errorf("parse failed")
	}

	tables := sema.NewTables()
	collector := sema.NewCollector(tables, rep)
	collector.Collect(file)
	if rep.HasErrors() {
		for _, d := range rep.Sorted() {
			formatDiagnostic(d)
		}
		return "", fmt.Errorf("collection failed")
	}

	checker := sema.NewChecker(tables, rep)
	checker.CheckFile(file)
	if rep.HasErrors() {
		for _, d := range rep.Sorted() {
			formatDiagnostic(d)
		}
		return "", fmt.Errorf("type check failed")
	}
	tables.Sealed = true

	return compileToLLVM(tables, file)
}

// compileToLLVM runs C10-C14: AST + sealed tables straight to an LLVM
// module, no MIR stage in between.
func compileToLLVM(tables *sema.Tables, file *ast.File) (string, error) {
	debugLog("generating LLVM IR directly from the checked AST\n")

	gen := llvm.NewGenerator(tables)
	mod, err := gen.Generate(file)
	if err != nil {
		return "", fmt.Errorf("codegen error: %v", err)
	}

	irText := mod.String()

	tmpFile, err := os.CreateTemp("", "sushi_*.ll")
	if err != nil {
		return "", fmt.Errorf("error creating temp file: %v", err)
	}
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(irText); err != nil {
		return "", fmt.Errorf("error writing LLVM IR: %v", err)
	}

	if os.Getenv("SUSHI_DEBUG_IR") != "" {
		fmt.Fprintf(os.Stderr, "generated LLVM IR:\n%s\n", irText)
	}

	return tmpFile.Name(), nil
}

// compileToObject turns a .ll file (optionally optimized) into a native
// object file via llc, honoring SUSHI_OPT for the optimization level.
func compileToObject(llcPath, tmpFile string) (objFile string, cleanup func(), err error) {
	optimizationLevel := os.Getenv("SUSHI_OPT")
	if optimizationLevel == "" {
		optimizationLevel = "2"
	}
	optimizedFile, oerr := optimizeLLVM(tmpFile, optimizationLevel)
	cleanupFns := []func(){}
	if oerr == nil && optimizedFile != tmpFile {
		cleanupFns = append(cleanupFns, func() { os.Remove(optimizedFile) })
		tmpFile = optimizedFile
	}

	objFile = tmpFile + ".o"
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	debugLog("compiling LLVM IR to object file: %s -> %s\n", tmpFile, objFile)
	cmd := exec.CommandContext(ctx, llcPath, "-filetype=obj", "-o", objFile, tmpFile)
	var stderrBuf strings.Builder
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderrBuf
	if err := cmd.Run(); err != nil {
		for _, f := range cleanupFns {
			f()
		}
		if ctx.Err() == context.DeadlineExceeded {
			return "", nil, fmt.Errorf("LLVM compilation timed out after 60s")
		}
		msg := fmt.Sprintf("LLVM compilation failed: %v", err)
		if stderrBuf.Len() > 0 {
			msg += "\nllc error output:\n" + stderrBuf.String()
		}
		return "", nil, fmt.Errorf("%s", msg)
	}
	debugLog("LLVM compilation successful\n")

	cleanup = func() {
		os.Remove(objFile)
		for _, f := range cleanupFns {
			f()
		}
	}
	return objFile, cleanup, nil
}

// link produces outName from objFile, linking against libc only: the
// backend calls malloc/free directly ('s Own<T> destructor
// chain) rather than through a garbage collector, so there is no runtime
// support library to compile or link in.
func link(objFile, outName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	debugLog("linking binary: %s\n", outName)
	cmd := exec.CommandContext(ctx, "clang", "-o", outName, objFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("linking timed out")
		}
		return fmt.Errorf("linking failed: %v", err)
	}
	debugLog("linking successful\n")
	return nil
}

func runBuild(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: sushic build <file>\n")
		os.Exit(1)
	}
	filename := args[0]
	fmt.Printf("Building %s...\n", filename)

	tmpFile, err := compileToTemp(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer os.Remove(tmpFile)

	llcPath, err := findLLC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "note: the LLVM backend requires 'llc' to be installed (brew install llvm, or put llc on PATH)\n")
		os.Exit(1)
	}

	objFile, cleanup, err := compileToObject(llcPath, tmpFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	base := filepath.Base(filename)
	outName := strings.TrimSuffix(base, filepath.Ext(base))
	if err := link(objFile, outName); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Build successful: %s\n", outName)
}

func runRun(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: sushic run <file>\n")
		os.Exit(1)
	}
	filename := args[0]

	llcPath, err := findLLC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "note: the LLVM backend requires 'llc' to be installed (brew install llvm, or put llc on PATH)\n")
		os.Exit(1)
	}

	tmpFile, err := compileToTemp(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer os.Remove(tmpFile)

	objFile, cleanup, err := compileToObject(llcPath, tmpFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	tmpBinary, err := os.CreateTemp("", "sushi_bin_*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp binary: %v\n", err)
		os.Exit(1)
	}
	tmpBinary.Close()
	defer os.Remove(tmpBinary.Name())

	if err := link(objFile, tmpBinary.Name()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	runCtx, runCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer runCancel()

	debugLog("running binary: %s\n", tmpBinary.Name())
	cmd := exec.CommandContext(runCtx, tmpBinary.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			fmt.Fprintf(os.Stderr, "execution timed out after 60s\n")
			os.Exit(1)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func runFmt(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: sushic fmt <file>\n")
		os.Exit(1)
	}
	fmt.Printf("Formatting %s... (not implemented)\n", args[0])
}

func runVersion() {
	version := "dev"
	if v := os.Getenv("SUSHI_VERSION"); v != "" {
		version = v
	}
	fmt.Printf("sushic version %s\n", version)
}
