package llvm

import (
	"strings"
	"testing"

	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/parser"
	"github.com/sushi-lang/sushi/internal/sema"
)

// generateSource runs the full front end (parse -> collect -> check) over
// src and then lowers the checked AST straight to an LLVM module, failing
// the test on any diagnostic or codegen error.
func generateSource(t *testing.T, src string) string {
	t.Helper()
	rep := diag.NewReporter("test.sushi")
	p := parser.New("test.sushi", src, rep)
	file := p.ParseFile()
	if rep.HasErrors() {
		t.Fatalf("parse errors: %v", rep.Sorted())
	}

	tables := sema.NewTables()
	sema.NewCollector(tables, rep).Collect(file)
	if rep.HasErrors() {
		t.Fatalf("collection errors: %v", rep.Sorted())
	}

	sema.NewChecker(tables, rep).CheckFile(file)
	if rep.HasErrors() {
		t.Fatalf("check errors: %v", rep.Sorted())
	}
	tables.Sealed = true

	mod, err := NewGenerator(tables).Generate(file)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return mod.String()
}

func TestGenerateSimpleFunctionAndMain(t *testing.T) {
	src := "fn add(i32 a, i32 b) i32:\n" +
		"    return Result.Ok(a + b)\n" +
		"\n" +
		"fn main() i32:\n" +
		"    return Result.Ok(add(2, 3))\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "define") {
		t.Fatalf("expected at least one function definition, got:\n%s", ir)
	}
	if !strings.Contains(ir, "@add") {
		t.Fatalf("expected a definition for add, got:\n%s", ir)
	}
	if !strings.Contains(ir, "add ") && !strings.Contains(ir, "= add ") {
		t.Fatalf("expected an add instruction for a + b, got:\n%s", ir)
	}
	// emitMain wraps the Sushi entry point in a C-ABI int main(void).
	if !strings.Contains(ir, `define i32 @main()`) {
		t.Fatalf("expected a C-ABI int main(void) wrapper, got:\n%s", ir)
	}
}

func TestGenerateStructConstructorAndDestroy(t *testing.T) {
	src := "struct Point:\n" +
		"    i32 x\n" +
		"    i32 y\n" +
		"\n" +
		"fn f() ~:\n" +
		"    let p = Point(x: 1, y: 2)\n" +
		"    destroy(p)\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "%Point") {
		t.Fatalf("expected a named %%Point struct type, got:\n%s", ir)
	}
	// destroy(p) on a plain-int struct owns no heap memory, and its stack
	// slot is never freed, so no call to free is emitted.
	if strings.Contains(ir, "call void @free") {
		t.Fatalf("expected destroy(p) on a scalar-only struct to emit no call to free, got:\n%s", ir)
	}
}

func TestGenerateMatchLowersToTagComparisons(t *testing.T) {
	src := "enum Light:\n" +
		"    Red\n" +
		"    Yellow\n" +
		"    Green\n" +
		"\n" +
		"fn describe(Light l) string:\n" +
		"    match l:\n" +
		"        Light.Red():\n" +
		"            return Result.Ok(\"stop\")\n" +
		"        _:\n" +
		"            return Result.Ok(\"go\")\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "%Light") {
		t.Fatalf("expected a named %%Light enum type, got:\n%s", ir)
	}
	// emitMatch compares the i64 discriminant, not an LLVM switch.
	if !strings.Contains(ir, "icmp eq i64") {
		t.Fatalf("expected the match to lower to an i64 tag comparison, got:\n%s", ir)
	}
}

func TestGenerateForeachOverRange(t *testing.T) {
	src := "fn sum(i32 n) i32:\n" +
		"    let i32 total = 0\n" +
		"    foreach(i in 0..n):\n" +
		"        total := total + i\n" +
		"    return Result.Ok(total)\n"
	ir := generateSource(t, src)

	// emitForeach walks a [cursor, end) pointer pair with pointer
	// inequality, not a counted i64 loop.
	if !strings.Contains(ir, "icmp ne") {
		t.Fatalf("expected the foreach loop to use a cursor/end pointer comparison, got:\n%s", ir)
	}
}

func TestGeneratePrintInterpolatedString(t *testing.T) {
	src := "fn f() ~:\n" +
		"    let i32 n = 5\n" +
		"    println \"n is {n}\"\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "@printf") {
		t.Fatalf("expected an interpolated print to call printf, got:\n%s", ir)
	}
}

func TestGenerateDynArrayPushPop(t *testing.T) {
	src := "fn f() ~:\n" +
		"    let xs = new(i32, 0)\n" +
		"    xs.push(1)\n" +
		"    xs.pop()\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "@malloc") {
		t.Fatalf("expected DynArray growth to allocate via malloc, got:\n%s", ir)
	}
}

func TestGenerateDynArrayPushGrowsViaRealloc(t *testing.T) {
	src := "fn f() ~:\n" +
		"    let xs = new(i32, 0)\n" +
		"    xs.push(1)\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "@realloc") {
		t.Fatalf("expected push past capacity to call realloc, got:\n%s", ir)
	}
}

func TestGenerateArrayIndexEmitsBoundsCheck(t *testing.T) {
	src := "fn f(i32[4] xs, i32 i) i32:\n" +
		"    return Result.Ok(xs[i])\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "call void @exit(i32 2020)") {
		t.Fatalf("expected out-of-bounds indexing to trap via exit(2020), got:\n%s", ir)
	}
	if !strings.Contains(ir, "out of bounds") {
		t.Fatalf("expected the RE2020 trap message in the emitted IR, got:\n%s", ir)
	}
}

func TestGenerateArrayGetReturnsMaybe(t *testing.T) {
	src := "fn f(i32[4] xs, i32 i) ~:\n" +
		"    xs.get(i)\n"
	ir := generateSource(t, src)

	// methodArrayGet builds its Some/None result the same way hashMapGet
	// does: an enum alloca with a branch joining the Some and None arms.
	if !strings.Contains(ir, "enum.Maybe") {
		t.Fatalf("expected xs.get(i) to produce a Maybe<i32> enum value, got:\n%s", ir)
	}
}

func TestGenerateHashMapInsertGetRemove(t *testing.T) {
	src := "fn use_map(HashMap<string, i32> m, string k, i32 v) ~:\n" +
		"    m.insert(k, v)\n" +
		"    m.get(k)\n" +
		"    m.remove(k)\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "@malloc") {
		t.Fatalf("expected HashMap growth/entry allocation to call malloc, got:\n%s", ir)
	}
	if !strings.Contains(ir, "urem") {
		t.Fatalf("expected bucket index computation via hash %% capacity (urem), got:\n%s", ir)
	}
	if !strings.Contains(ir, "enum.Maybe") {
		t.Fatalf("expected m.get(k) to produce a Maybe<i32> enum value, got:\n%s", ir)
	}
}

func TestGenerateHashMapSizeReadsField(t *testing.T) {
	src := "fn count(HashMap<string, i32> m) i32:\n" +
		"    return Result.Ok(m.size())\n"
	ir := generateSource(t, src)

	if !strings.Contains(ir, "getelementptr") {
		t.Fatalf("expected m.size() to read the size field via getelementptr, got:\n%s", ir)
	}
}
