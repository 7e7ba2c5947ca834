package lexer_test

import (
	"testing"

	"github.com/sushi-lang/sushi/internal/lexer"
)

func typesOf(toks []lexer.Token) []lexer.TokenType {
	out := make([]lexer.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeFunctionHeader(t *testing.T) {
	src := "fn sum_squares(i32 n) i32:\n    let i32 total = 0\n"
	toks, errs := lexer.Tokenize("t.sushi", src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
	types := typesOf(toks)
	want := []lexer.TokenType{
		lexer.FN, lexer.IDENT, lexer.LPAREN, lexer.IDENT, lexer.IDENT, lexer.RPAREN,
		lexer.IDENT, lexer.COLON, lexer.NEWLINE, lexer.INDENT,
		lexer.LET, lexer.IDENT, lexer.IDENT, lexer.ASSIGN, lexer.INT,
	}
	if len(types) < len(want) {
		t.Fatalf("expected at least %d tokens, got %d (%v)", len(want), len(types), types)
	}
	for i, w := range want {
		if types[i] != w {
			t.Fatalf("token %d: expected %s, got %s", i, w, types[i])
		}
	}
}

func TestIndentDedentBalances(t *testing.T) {
	src := "if true:\n    println \"a\"\nprintln \"b\"\n"
	toks, _ := lexer.Tokenize("t.sushi", src)
	indent, dedent := 0, 0
	for _, tok := range toks {
		if tok.Type == lexer.INDENT {
			indent++
		}
		if tok.Type == lexer.DEDENT {
			dedent++
		}
	}
	if indent != dedent {
		t.Fatalf("unbalanced indent/dedent: %d indents, %d dedents", indent, dedent)
	}
}

func TestInterpolatedStringDetected(t *testing.T) {
	toks, _ := lexer.Tokenize("t.sushi", `println "got {x}"` + "\n")
	found := false
	for _, tok := range toks {
		if tok.Type == lexer.INTERP_STRING {
			found = true
			if tok.Value != "got {x}" {
				t.Fatalf("unexpected interpolated value: %q", tok.Value)
			}
		}
	}
	if !found {
		t.Fatalf("expected an INTERP_STRING token")
	}
}

func TestRangeOperators(t *testing.T) {
	toks, _ := lexer.Tokenize("t.sushi", "0..n\n0..=n\n")
	var got []lexer.TokenType
	for _, tok := range toks {
		if tok.Type == lexer.RANGE || tok.Type == lexer.RANGEQ {
			got = append(got, tok.Type)
		}
	}
	if len(got) != 2 || got[0] != lexer.RANGE || got[1] != lexer.RANGEQ {
		t.Fatalf("expected [RANGE RANGEQ], got %v", got)
	}
}
