package sema

import (
	"testing"

	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/parser"
	"github.com/sushi-lang/sushi/internal/types"
)

// checkSource parses, collects, and checks src, returning the reporter so
// tests can inspect diagnostics.
func checkSource(t *testing.T, src string) (*diag.Reporter, *Tables) {
	t.Helper()
	rep := diag.NewReporter("test.sushi")
	p := parser.New("test.sushi", src, rep)
	file := p.ParseFile()
	if rep.HasErrors() {
		t.Fatalf("parse errors: %v", rep.Diagnostics)
	}
	tables := NewTables()
	NewCollector(tables, rep).Collect(file)
	NewChecker(tables, rep).CheckFile(file)
	return rep, tables
}

func TestCheckSimpleFunctionOK(t *testing.T) {
	src := "fn add(i32 a, i32 b) i32:\n    return Result.Ok(a + b)\n"
	rep, _ := checkSource(t, src)
	if rep.HasErrors() {
		t.Fatalf("unexpected errors: %v", rep.Diagnostics)
	}
}

func TestCheckMixedNumericTypesRejected(t *testing.T) {
	src := "fn add(i32 a, i64 b) i32:\n    return Result.Ok(a + b)\n"
	rep, _ := checkSource(t, src)
	if !rep.HasErrors() {
		t.Fatalf("expected an error for mixed i32/i64 addition")
	}
	found := false
	for _, d := range rep.Diagnostics {
		if d.Code == diag.CE2510 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CE2510, got %v", rep.Diagnostics)
	}
}

func TestCheckBareReturnRejected(t *testing.T) {
	src := "fn get() i32:\n    return 5\n"
	rep, _ := checkSource(t, src)
	if !rep.HasErrors() {
		t.Fatalf("expected an error for a bare return value")
	}
}

func TestCheckUndefinedNameReported(t *testing.T) {
	src := "fn f() ~:\n    let i32 x = y\n"
	rep, _ := checkSource(t, src)
	found := false
	for _, d := range rep.Diagnostics {
		if d.Code == diag.CE2008 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CE2008 undefined name, got %v", rep.Diagnostics)
	}
}

func TestCheckMatchNonExhaustive(t *testing.T) {
	src := "enum Light:\n    Red\n    Yellow\n    Green\n\nfn describe(Light l) string:\n    match l:\n        Light.Red():\n            return Result.Ok(\"stop\")\n"
	rep, _ := checkSource(t, src)
	found := false
	for _, d := range rep.Diagnostics {
		if d.Code == diag.CE2040 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CE2040 non-exhaustive match, got %v", rep.Diagnostics)
	}
}

func TestCheckMatchExhaustiveWithWildcard(t *testing.T) {
	src := "enum Light:\n    Red\n    Yellow\n    Green\n\nfn describe(Light l) string:\n    match l:\n        Light.Red():\n            return Result.Ok(\"stop\")\n        _:\n            return Result.Ok(\"go\")\n"
	rep, _ := checkSource(t, src)
	if rep.HasErrors() {
		t.Fatalf("unexpected errors: %v", rep.Diagnostics)
	}
}

func TestCheckBorrowRejectsMutateWhilePoked(t *testing.T) {
	src := "fn f() ~:\n    let i32 x = 1\n    r := &poke x\n    x := 2\n"
	rep, _ := checkSource(t, src)
	found := false
	for _, d := range rep.Diagnostics {
		if d.Stage == diag.StageBorrow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a borrow-stage diagnostic while x is poke-borrowed, got %v", rep.Diagnostics)
	}
}

func TestMonomorphizeMaybeIsMemoized(t *testing.T) {
	tables := NewTables()
	a, err := tables.Monomorphize("Maybe", []types.Type{types.TypeI32})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := tables.Monomorphize("Maybe", []types.Type{types.TypeI32})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected memoized Maybe<i32> to return the identical pointer")
	}
	en := a.(*types.Enum)
	if _, ok := en.Variant("Some"); !ok {
		t.Fatalf("expected Maybe<i32> to have a Some variant")
	}
}

func TestConstEvalIntegerFolds(t *testing.T) {
	tables := NewTables()
	src := "const i32 X = 2 + 3 * 4\n\nfn f() ~:\n    let i32 y = 0\n"
	rep := diag.NewReporter("test.sushi")
	p := parser.New("test.sushi", src, rep)
	file := p.ParseFile()
	if rep.HasErrors() {
		t.Fatalf("parse errors: %v", rep.Diagnostics)
	}
	NewCollector(tables, rep).Collect(file)
	ce := tables.Constants["X"]
	v, err := tables.EvalConst(ce.Init)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != 14 {
		t.Fatalf("expected 2 + 3*4 == 14, got %d", v.Int)
	}
}

func TestConstEvalFloatArithmeticRejected(t *testing.T) {
	tables := NewTables()
	rep := diag.NewReporter("test.sushi")
	p := parser.New("test.sushi", "const f64 X = 1.0 + 2.0\n", rep)
	file := p.ParseFile()
	if rep.HasErrors() {
		t.Fatalf("parse errors: %v", rep.Diagnostics)
	}
	NewCollector(tables, rep).Collect(file)
	ce := tables.Constants["X"]
	if _, err := tables.EvalConst(ce.Init); err == nil {
		t.Fatalf("expected float arithmetic to be rejected at compile time")
	}
}
