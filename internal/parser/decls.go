package parser

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/lexer"
)

func (p *Parser) parseDecl() ast.Decl {
	switch p.cur().Type {
	case lexer.FN:
		return p.parseFuncDecl(nil)
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.ENUM:
		return p.parseEnumDecl()
	case lexer.CONST:
		return p.parseConstDecl()
	case lexer.PERK:
		return p.parsePerkDecl()
	case lexer.EXTEND:
		return p.parseExtendDecl()
	default:
		p.errorf("expected a top-level declaration, got %s", p.cur().Type)
		return nil
	}
}

// parseTypeParams parses an optional `<T, U>` list of generic parameter
// names following a declaration's name.
func (p *Parser) parseTypeParams() []string {
	if !p.at(lexer.LT) {
		return nil
	}
	p.advance()
	var names []string
	names = append(names, p.expect(lexer.IDENT).Raw)
	for p.at(lexer.COMMA) {
		p.advance()
		names = append(names, p.expect(lexer.IDENT).Raw)
	}
	p.expect(lexer.GT)
	return names
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(lexer.LPAREN)
	var params []ast.Param
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		typ := p.parseType()
		name := p.expect(lexer.IDENT).Raw
		params = append(params, ast.Param{Type: typ, Name: name})
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RPAREN)
	return params
}

// parseBlock parses `:` NEWLINE INDENT stmt* DEDENT.
func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(lexer.COLON)
	p.skipNewlines()
	if !p.at(lexer.INDENT) {
		// single-statement inline block: `if c: x := 1`
		return []ast.Stmt{p.parseStmt()}
	}
	p.advance() // INDENT
	var stmts []ast.Stmt
	for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
		p.skipNewlines()
		if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
			break
		}
		stmts = append(stmts, p.parseStmt())
		p.skipNewlines()
	}
	if p.at(lexer.DEDENT) {
		p.advance()
	}
	return stmts
}

// parseFuncDecl parses `fn name[<T,...>](params) [RetType]:` + body.
// receiver is non-nil when parsed inside an `extend` block.
func (p *Parser) parseFuncDecl(receiver ast.TypeExpr) *ast.FuncDecl {
	sp := p.cur().Span
	p.expect(lexer.FN)
	name := p.expect(lexer.IDENT).Raw
	typeParams := p.parseTypeParams()
	params := p.parseParams()
	ret := p.parseReturnType()
	body := p.parseBlock()
	fd := &ast.FuncDecl{
		Name: name, TypeParams: typeParams, Params: params,
		ReturnType: ret, Body: body, ReceiverType: receiver,
	}
	fd.Sp = sp
	return fd
}

// parseFieldList parses either an indented block of `Type name` lines, or
// a single inline `Type name` field on the declaration line (
// scenario 6 writes `struct Bag: string[] items` on one line).
func (p *Parser) parseFieldList() []ast.StructFieldDecl {
	p.expect(lexer.COLON)
	if !p.at(lexer.NEWLINE) {
		typ := p.parseType()
		name := p.expect(lexer.IDENT).Raw
		return []ast.StructFieldDecl{{Name: name, Type: typ}}
	}
	p.skipNewlines()
	var fields []ast.StructFieldDecl
	if !p.at(lexer.INDENT) {
		return fields
	}
	p.advance()
	for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
		p.skipNewlines()
		if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
			break
		}
		typ := p.parseType()
		name := p.expect(lexer.IDENT).Raw
		fields = append(fields, ast.StructFieldDecl{Name: name, Type: typ})
		p.skipNewlines()
	}
	if p.at(lexer.DEDENT) {
		p.advance()
	}
	return fields
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	sp := p.cur().Span
	p.expect(lexer.STRUCT)
	name := p.expect(lexer.IDENT).Raw
	typeParams := p.parseTypeParams()
	fields := p.parseFieldList()
	sd := &ast.StructDecl{Name: name, TypeParams: typeParams, Fields: fields}
	sd.Sp = sp
	return sd
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	sp := p.cur().Span
	p.expect(lexer.ENUM)
	name := p.expect(lexer.IDENT).Raw
	typeParams := p.parseTypeParams()
	p.expect(lexer.COLON)
	p.skipNewlines()
	var variants []ast.EnumVariantDecl
	if p.at(lexer.INDENT) {
		p.advance()
		for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
			p.skipNewlines()
			if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
				break
			}
			vname := p.expect(lexer.IDENT).Raw
			var assoc []ast.TypeExpr
			if p.at(lexer.LPAREN) {
				p.advance()
				for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
					assoc = append(assoc, p.parseType())
					if p.at(lexer.COMMA) {
						p.advance()
					}
				}
				p.expect(lexer.RPAREN)
			}
			variants = append(variants, ast.EnumVariantDecl{Name: vname, Associated: assoc})
			p.skipNewlines()
		}
		if p.at(lexer.DEDENT) {
			p.advance()
		}
	}
	ed := &ast.EnumDecl{Name: name, TypeParams: typeParams, Variants: variants}
	ed.Sp = sp
	return ed
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	sp := p.cur().Span
	p.expect(lexer.CONST)
	typ := p.parseType()
	name := p.expect(lexer.IDENT).Raw
	p.expect(lexer.ASSIGN)
	init := p.parseExpr()
	cd := &ast.ConstDecl{Name: name, Type: typ, Init: init}
	cd.Sp = sp
	return cd
}

func (p *Parser) parsePerkDecl() *ast.PerkDecl {
	sp := p.cur().Span
	p.expect(lexer.PERK)
	name := p.expect(lexer.IDENT).Raw
	p.expect(lexer.COLON)
	p.skipNewlines()
	var methods []ast.FuncDecl
	if p.at(lexer.INDENT) {
		p.advance()
		for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
			p.skipNewlines()
			if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
				break
			}
			p.expect(lexer.FN)
			mname := p.expect(lexer.IDENT).Raw
			params := p.parseParams()
			ret := p.parseReturnType()
			methods = append(methods, ast.FuncDecl{Name: mname, Params: params, ReturnType: ret})
			p.skipNewlines()
		}
		if p.at(lexer.DEDENT) {
			p.advance()
		}
	}
	pd := &ast.PerkDecl{Name: name, Methods: methods}
	pd.Sp = sp
	return pd
}

func (p *Parser) parseExtendDecl() *ast.ExtendDecl {
	sp := p.cur().Span
	p.expect(lexer.EXTEND)
	target := p.parseType()
	perk := ""
	if p.at(lexer.WITH) {
		p.advance()
		perk = p.expect(lexer.IDENT).Raw
	}
	p.expect(lexer.COLON)
	p.skipNewlines()
	var methods []*ast.FuncDecl
	if p.at(lexer.INDENT) {
		p.advance()
		for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
			p.skipNewlines()
			if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
				break
			}
			methods = append(methods, p.parseFuncDecl(target))
			p.skipNewlines()
		}
		if p.at(lexer.DEDENT) {
			p.advance()
		}
	}
	ed := &ast.ExtendDecl{Target: target, Perk: perk, Methods: methods}
	ed.Sp = sp
	return ed
}
