package parser

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/lexer"
)

var primitiveNames = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"f32": true, "f64": true, "bool": true, "string": true,
}

// parseReturnType parses a function's declared return type, including the
// `T | E` implicit-error-type sugar. A missing return type
// means blank (`~`).
func (p *Parser) parseReturnType() ast.TypeExpr {
	sp := p.cur().Span
	if p.at(lexer.COLON) || p.at(lexer.NEWLINE) {
		bt := &ast.BuiltinTypeExpr{Name: "~"}
		bt.Sp = sp
		return bt
	}
	ok := p.parseType()
	if p.at(lexer.PIPE) {
		p.advance()
		errT := p.parseType()
		rt := &ast.ResultTypeExpr{Ok: ok, Err: errT}
		rt.Sp = sp
		return rt
	}
	return ok
}

// parseType parses one type expression (no top-level `|` sugar; that is
// only legal in a return-type position, handled by parseReturnType).
func (p *Parser) parseType() ast.TypeExpr {
	sp := p.cur().Span

	if p.at(lexer.AMP) {
		p.advance()
		poke := false
		if p.at(lexer.IDENT) && (p.cur().Raw == "poke" || p.cur().Raw == "peek") {
			poke = p.cur().Raw == "poke"
			p.advance()
		}
		inner := p.parseType()
		rt := &ast.RefTypeExpr{Inner: inner, Poke: poke}
		rt.Sp = sp
		return rt
	}

	if p.at(lexer.TILDE) {
		p.advance()
		bt := &ast.BuiltinTypeExpr{Name: "~"}
		bt.Sp = sp
		return bt
	}

	name := p.expect(lexer.IDENT).Raw
	var base ast.TypeExpr
	if p.at(lexer.LT) {
		p.advance()
		var args []ast.TypeExpr
		args = append(args, p.parseType())
		for p.at(lexer.COMMA) {
			p.advance()
			args = append(args, p.parseType())
		}
		p.expect(lexer.GT)
		gt := &ast.GenericTypeExpr{Base: name, Args: args}
		gt.Sp = sp
		base = gt
	} else if primitiveNames[name] {
		bt := &ast.BuiltinTypeExpr{Name: name}
		bt.Sp = sp
		base = bt
	} else {
		nt := &ast.NamedTypeExpr{Name: name}
		nt.Sp = sp
		base = nt
	}

	for p.at(lexer.LBRACKET) {
		p.advance()
		if p.at(lexer.RBRACKET) {
			p.advance()
			dt := &ast.DynArrayTypeExpr{Elem: base}
			dt.Sp = sp
			base = dt
			continue
		}
		sizeTok := p.expect(lexer.INT)
		p.expect(lexer.RBRACKET)
		at := &ast.ArrayTypeExpr{Elem: base, Size: parseUintLiteral(sizeTok.Raw)}
		at.Sp = sp
		base = at
	}
	return base
}
