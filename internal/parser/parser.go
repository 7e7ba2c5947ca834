// Package parser implements the Sushi recursive-descent parser. The
// parser is an external collaborator to the core (it only has to
// produce a conforming AST); this implementation is deliberately
// straightforward rather than exhaustively hardened, covering the full
// surface grammar.
package parser

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/diag"
	"github.com/sushi-lang/sushi/internal/lexer"
)

// Parser holds the token buffer and cursor for one compilation unit.
type Parser struct {
	filename string
	toks     []lexer.Token
	pos      int
	rep      *diag.Reporter
}

// New creates a parser over the full token stream for filename/src.
func New(filename, src string, rep *diag.Reporter) *Parser {
	toks, lexErrs := lexer.Tokenize(filename, src)
	for _, e := range lexErrs {
		d := e.ToDiagnostic()
		rep.Error(d.Code, diag.StageLexer, diag.Span(d.Span), "%s", d.Message)
	}
	return &Parser{filename: filename, toks: toks, rep: rep}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) peekNext() lexer.Token { return p.peekAt(1) }

func (p *Parser) at(t lexer.TokenType) bool { return p.cur().Type == t }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	if !p.at(t) {
		p.errorf("expected %s, got %s %q", t, p.cur().Type, p.cur().Raw)
		return p.cur()
	}
	return p.advance()
}

// skipNewlines consumes any run of NEWLINE tokens (blank logical lines).
func (p *Parser) skipNewlines() {
	for p.at(lexer.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) toSpan(s lexer.Span) diag.Span {
	return diag.Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

func (p *Parser) errorf(format string, args ...any) {
	p.rep.Error(diag.CodeParserUnexpectedToken, diag.StageParser, p.toSpan(p.cur().Span), format, args...)
}

// ParseFile parses an entire compilation unit.
func (p *Parser) ParseFile() *ast.File {
	f := &ast.File{Name: p.filename, Sp: p.cur().Span}
	p.skipNewlines()
	for !p.at(lexer.EOF) {
		if p.at(lexer.USE) {
			f.Uses = append(f.Uses, p.parseUse())
		} else if d := p.parseDecl(); d != nil {
			f.Decls = append(f.Decls, d)
		} else {
			p.advance() // error recovery: skip the offending token
		}
		p.skipNewlines()
	}
	return f
}

// parseUse parses `use io/stdio` — a slash-separated stdlib/library
// module path.
func (p *Parser) parseUse() *ast.UseDecl {
	sp := p.cur().Span
	p.expect(lexer.USE)
	var path []string
	path = append(path, p.expect(lexer.IDENT).Raw)
	for p.at(lexer.SLASH) {
		p.advance()
		path = append(path, p.expect(lexer.IDENT).Raw)
	}
	return &ast.UseDecl{Path: path, Sp: sp}
}
