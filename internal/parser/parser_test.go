package parser_test

import (
	"testing"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/parser"
)

func parseOK(t *testing.T, src string) *ast.File {
	t.Helper()
	rep := diag.NewReporter("t.sushi")
	p := parser.New("t.sushi", src, rep)
	f := p.ParseFile()
	if rep.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", rep.Sorted())
	}
	return f
}

func TestParseFuncDecl(t *testing.T) {
	src := "fn sum_squares(i32 n) i32:\n    let i32 total = 0\n    return total\n"
	f := parseOK(t, src)
	if len(f.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(f.Decls))
	}
	fd, ok := f.Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected *ast.FuncDecl, got %T", f.Decls[0])
	}
	if fd.Name != "sum_squares" {
		t.Fatalf("expected name sum_squares, got %q", fd.Name)
	}
	if len(fd.Params) != 1 || fd.Params[0].Name != "n" {
		t.Fatalf("unexpected params: %+v", fd.Params)
	}
	if len(fd.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(fd.Body))
	}
	if _, ok := fd.Body[0].(*ast.LetStmt); !ok {
		t.Fatalf("expected LetStmt, got %T", fd.Body[0])
	}
	if _, ok := fd.Body[1].(*ast.ReturnStmt); !ok {
		t.Fatalf("expected ReturnStmt, got %T", fd.Body[1])
	}
}

func TestParseStructWithInlineField(t *testing.T) {
	src := "struct Bag: string[] items\n"
	f := parseOK(t, src)
	sd, ok := f.Decls[0].(*ast.StructDecl)
	if !ok {
		t.Fatalf("expected *ast.StructDecl, got %T", f.Decls[0])
	}
	if len(sd.Fields) != 1 || sd.Fields[0].Name != "items" {
		t.Fatalf("unexpected fields: %+v", sd.Fields)
	}
	if _, ok := sd.Fields[0].Type.(*ast.DynArrayTypeExpr); !ok {
		t.Fatalf("expected DynArrayTypeExpr, got %T", sd.Fields[0].Type)
	}
}

func TestParseEnumDecl(t *testing.T) {
	src := "enum Shape:\n    Circle(f64)\n    Square(f64)\n    Empty\n"
	f := parseOK(t, src)
	ed, ok := f.Decls[0].(*ast.EnumDecl)
	if !ok {
		t.Fatalf("expected *ast.EnumDecl, got %T", f.Decls[0])
	}
	if len(ed.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(ed.Variants))
	}
	if len(ed.Variants[0].Associated) != 1 {
		t.Fatalf("expected Circle to carry 1 associated type, got %d", len(ed.Variants[0].Associated))
	}
	if len(ed.Variants[2].Associated) != 0 {
		t.Fatalf("expected Empty to carry 0 associated types, got %d", len(ed.Variants[2].Associated))
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	src := "fn f() ~:\n    if true:\n        println \"yes\"\n    else:\n        println \"no\"\n    while false:\n        break\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ifs, ok := fd.Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", fd.Body[0])
	}
	if len(ifs.Then) != 1 || len(ifs.Else) != 1 {
		t.Fatalf("expected 1 stmt in each branch, got then=%d else=%d", len(ifs.Then), len(ifs.Else))
	}
	if _, ok := fd.Body[1].(*ast.WhileStmt); !ok {
		t.Fatalf("expected WhileStmt, got %T", fd.Body[1])
	}
}

func TestParseForeachOverRange(t *testing.T) {
	src := "fn f() ~:\n    foreach(i in 0..n):\n        println i\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	fs, ok := fd.Body[0].(*ast.ForeachStmt)
	if !ok {
		t.Fatalf("expected ForeachStmt, got %T", fd.Body[0])
	}
	if fs.Item != "i" {
		t.Fatalf("expected item name i, got %q", fs.Item)
	}
	rng, ok := fs.Iterable.(*ast.RangeExpr)
	if !ok {
		t.Fatalf("expected RangeExpr iterable, got %T", fs.Iterable)
	}
	if rng.Inclusive {
		t.Fatalf("expected exclusive range")
	}
}

func TestParseMatchStmtWithOwnPattern(t *testing.T) {
	src := "fn f() ~:\n    match r:\n        Result.Ok(Own(v)):\n            println v\n        Result.Err(e):\n            println e\n        _:\n            println \"?\"\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ms, ok := fd.Body[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected MatchStmt, got %T", fd.Body[0])
	}
	if len(ms.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(ms.Arms))
	}
	ep, ok := ms.Arms[0].Pattern.(*ast.EnumPattern)
	if !ok {
		t.Fatalf("expected EnumPattern, got %T", ms.Arms[0].Pattern)
	}
	if ep.EnumName != "Result" || ep.Variant != "Ok" {
		t.Fatalf("unexpected enum pattern: %+v", ep)
	}
	if len(ep.Bindings) != 1 || ep.Bindings[0].Nested == nil {
		t.Fatalf("expected a nested Own(v) binding, got %+v", ep.Bindings)
	}
	if _, ok := ms.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Fatalf("expected final arm to be wildcard, got %T", ms.Arms[2].Pattern)
	}
}

func TestParseStructConstructorNamedArgs(t *testing.T) {
	src := "fn f() ~:\n    let b = Bag(items: from([\"x\", \"y\"]))\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ls := fd.Body[0].(*ast.LetStmt)
	sc, ok := ls.Init.(*ast.StructConstructor)
	if !ok {
		t.Fatalf("expected StructConstructor, got %T", ls.Init)
	}
	if len(sc.Args) != 1 || sc.Args[0].Name != "items" {
		t.Fatalf("unexpected constructor args: %+v", sc.Args)
	}
	if _, ok := sc.Args[0].Value.(*ast.DynamicArrayFrom); !ok {
		t.Fatalf("expected DynamicArrayFrom value, got %T", sc.Args[0].Value)
	}
}

func TestParseTryOperatorAndCast(t *testing.T) {
	src := "fn f() i32:\n    let x = g() ?? as i32\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ls := fd.Body[0].(*ast.LetStmt)
	cast, ok := ls.Init.(*ast.CastExpr)
	if !ok {
		t.Fatalf("expected CastExpr, got %T", ls.Init)
	}
	if _, ok := cast.Value.(*ast.TryExpr); !ok {
		t.Fatalf("expected TryExpr inside cast, got %T", cast.Value)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	src := "fn f() ~:\n    let x = 1 + 2 * 3\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ls := fd.Body[0].(*ast.LetStmt)
	top, ok := ls.Init.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected BinaryOp, got %T", ls.Init)
	}
	if top.Op != ast.OpAdd {
		t.Fatalf("expected top-level op to be +, got %s", top.Op)
	}
	if _, ok := top.Right.(*ast.BinaryOp); !ok {
		t.Fatalf("expected right operand to be the nested * expression, got %T", top.Right)
	}
}

func TestParseInterpolatedString(t *testing.T) {
	src := "fn f() ~:\n    println \"got {x + 1}\"\n"
	f := parseOK(t, src)
	fd := f.Decls[0].(*ast.FuncDecl)
	ps := fd.Body[0].(*ast.PrintStmt)
	is, ok := ps.Value.(*ast.InterpolatedString)
	if !ok {
		t.Fatalf("expected InterpolatedString, got %T", ps.Value)
	}
	if len(is.Pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d (%+v)", len(is.Pieces), is.Pieces)
	}
	if is.Pieces[0].Literal != "got " {
		t.Fatalf("unexpected literal piece: %q", is.Pieces[0].Literal)
	}
	if is.Pieces[1].Expr == nil {
		t.Fatalf("expected second piece to carry a parsed expression")
	}
}

func TestParseUseDecl(t *testing.T) {
	src := "use io/stdio\n\nfn f() ~:\n    return\n"
	f := parseOK(t, src)
	if len(f.Uses) != 1 {
		t.Fatalf("expected 1 use decl, got %d", len(f.Uses))
	}
	want := []string{"io", "stdio"}
	got := f.Uses[0].Path
	if len(got) != len(want) {
		t.Fatalf("expected path %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, got)
		}
	}
}
