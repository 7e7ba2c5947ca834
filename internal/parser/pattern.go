package parser

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/lexer"
)

// parsePattern parses one match-arm pattern: `_`, `Own(pattern)`, or
// `Enum.Variant(bindings...)`.
func (p *Parser) parsePattern() ast.Pattern {
	sp := p.cur().Span

	if p.at(lexer.IDENT) && p.cur().Raw == "_" {
		p.advance()
		wp := &ast.WildcardPattern{}
		wp.Sp = sp
		return wp
	}

	if p.at(lexer.IDENT) && p.cur().Raw == "Own" && p.peekNext().Type == lexer.LPAREN {
		p.advance()
		p.expect(lexer.LPAREN)
		inner := p.parseOwnInner()
		p.expect(lexer.RPAREN)
		op := &ast.OwnPattern{Inner: inner}
		op.Sp = sp
		return op
	}

	enumName := p.expect(lexer.IDENT).Raw
	p.expect(lexer.DOT)
	variant := p.expect(lexer.IDENT).Raw

	var bindings []ast.Binding
	if p.at(lexer.LPAREN) {
		p.advance()
		for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
			bindings = append(bindings, p.parseBinding())
			if p.at(lexer.COMMA) {
				p.advance()
			}
		}
		p.expect(lexer.RPAREN)
	}

	ep := &ast.EnumPattern{EnumName: enumName, Variant: variant, Bindings: bindings}
	ep.Sp = sp
	return ep
}

// parseOwnInner parses the contents of `Own(...)`: another nested
// pattern (`_`, `Own(...)`, `Enum.Variant(...)`), or — the common case —
// a bare identifier that captures the unwrapped payload directly.
func (p *Parser) parseOwnInner() ast.Pattern {
	sp := p.cur().Span
	if p.at(lexer.IDENT) && p.peekNext().Type != lexer.DOT && p.cur().Raw != "Own" && p.cur().Raw != "_" {
		name := p.expect(lexer.IDENT).Raw
		cp := &ast.CapturePattern{Name: name}
		cp.Sp = sp
		return cp
	}
	return p.parsePattern()
}

// parseBinding parses one element inside an EnumPattern's argument
// list: a discard, a capturing name, or a nested pattern.
func (p *Parser) parseBinding() ast.Binding {
	if p.at(lexer.IDENT) && p.cur().Raw == "_" {
		p.advance()
		return ast.Binding{Discard: true}
	}
	if p.at(lexer.IDENT) && p.cur().Raw == "Own" && p.peekNext().Type == lexer.LPAREN {
		return ast.Binding{Nested: p.parsePattern()}
	}
	if p.at(lexer.IDENT) && p.peekNext().Type == lexer.DOT {
		return ast.Binding{Nested: p.parsePattern()}
	}
	name := p.expect(lexer.IDENT).Raw
	return ast.Binding{Name: name}
}
