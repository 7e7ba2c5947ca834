package parser

import (
	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/lexer"
)

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Type {
	case lexer.LET:
		return p.parseLetStmt()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.FOREACH:
		return p.parseForeachStmt()
	case lexer.MATCH:
		return p.parseMatchStmt()
	case lexer.PRINT:
		return p.parsePrintStmt(false)
	case lexer.PRINTLN:
		return p.parsePrintStmt(true)
	case lexer.BREAK:
		sp := p.advance().Span
		b := &ast.BreakStmt{}
		b.Sp = sp
		return b
	case lexer.CONTINUE:
		sp := p.advance().Span
		c := &ast.ContinueStmt{}
		c.Sp = sp
		return c
	case lexer.DESTROY:
		return p.parseDestroyStmt()
	default:
		return p.parseExprOrRebindStmt()
	}
}

// parseLetStmt parses `let [Type] name = init`. When the token right
// after `let` is an identifier immediately followed by `=`, the type is
// taken to be inferred from the initializer and omitted.
func (p *Parser) parseLetStmt() *ast.LetStmt {
	sp := p.cur().Span
	p.expect(lexer.LET)
	var declType ast.TypeExpr
	var name string
	if p.at(lexer.IDENT) && p.peekNext().Type == lexer.ASSIGN {
		name = p.advance().Raw
	} else {
		declType = p.parseType()
		name = p.expect(lexer.IDENT).Raw
	}
	p.expect(lexer.ASSIGN)
	init := p.parseExpr()
	ls := &ast.LetStmt{DeclaredType: declType, Name: name, Init: init}
	ls.Sp = sp
	return ls
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	sp := p.cur().Span
	p.expect(lexer.RETURN)
	var val ast.Expr
	if !p.at(lexer.NEWLINE) && !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
		val = p.parseExpr()
	}
	rs := &ast.ReturnStmt{Value: val}
	rs.Sp = sp
	return rs
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	sp := p.cur().Span
	p.expect(lexer.IF)
	cond := p.parseExpr()
	then := p.parseBlock()
	ifs := &ast.IfStmt{Cond: cond, Then: then}
	ifs.Sp = sp
	if p.at(lexer.ELSE) {
		p.advance()
		if p.at(lexer.IF) {
			ifs.Else = []ast.Stmt{p.parseIfStmt()}
		} else {
			ifs.Else = p.parseBlock()
		}
	}
	return ifs
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	sp := p.cur().Span
	p.expect(lexer.WHILE)
	cond := p.parseExpr()
	body := p.parseBlock()
	ws := &ast.WhileStmt{Cond: cond, Body: body}
	ws.Sp = sp
	return ws
}

// parseForeachStmt parses `foreach(item in iterable): body` — an
// optional explicit item type may precede the name, as in `let`.
func (p *Parser) parseForeachStmt() *ast.ForeachStmt {
	sp := p.cur().Span
	p.expect(lexer.FOREACH)
	p.expect(lexer.LPAREN)
	var declType ast.TypeExpr
	var item string
	if p.at(lexer.IDENT) && p.peekNext().Type == lexer.IN {
		item = p.advance().Raw
	} else {
		declType = p.parseType()
		item = p.expect(lexer.IDENT).Raw
	}
	p.expect(lexer.IN)
	iterable := p.parseExpr()
	p.expect(lexer.RPAREN)
	body := p.parseBlock()
	fs := &ast.ForeachStmt{Item: item, DeclaredType: declType, Iterable: iterable, Body: body}
	fs.Sp = sp
	return fs
}

func (p *Parser) parsePrintStmt(newline bool) *ast.PrintStmt {
	sp := p.cur().Span
	p.advance() // PRINT or PRINTLN
	val := p.parseExpr()
	ps := &ast.PrintStmt{Value: val, Newline: newline}
	ps.Sp = sp
	return ps
}

func (p *Parser) parseDestroyStmt() *ast.ExprStmt {
	sp := p.cur().Span
	p.expect(lexer.DESTROY)
	p.expect(lexer.LPAREN)
	target := p.parseExpr()
	p.expect(lexer.RPAREN)
	call := &ast.Call{Callee: "destroy", Args: []ast.Expr{target}}
	call.Sp = sp
	es := &ast.ExprStmt{Expr: call}
	es.Sp = sp
	return es
}

// parseExprOrRebindStmt parses either a bare expression statement or a
// `target := value` rebind, since both start with an arbitrary expr.
func (p *Parser) parseExprOrRebindStmt() ast.Stmt {
	sp := p.cur().Span
	expr := p.parseExpr()
	if p.at(lexer.REBIND) {
		p.advance()
		value := p.parseExpr()
		rs := &ast.RebindStmt{Target: expr, Value: value}
		rs.Sp = sp
		return rs
	}
	es := &ast.ExprStmt{Expr: expr}
	es.Sp = sp
	return es
}

// parseMatchStmt parses `match scrutinee:` followed by an indented block
// of `pattern:` arms, each followed by its own indented block.
func (p *Parser) parseMatchStmt() *ast.MatchStmt {
	sp := p.cur().Span
	p.expect(lexer.MATCH)
	scrutinee := p.parseExpr()
	p.expect(lexer.COLON)
	p.skipNewlines()
	var arms []ast.MatchArm
	if p.at(lexer.INDENT) {
		p.advance()
		for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
			p.skipNewlines()
			if p.at(lexer.DEDENT) || p.at(lexer.EOF) {
				break
			}
			arms = append(arms, p.parseMatchArm())
			p.skipNewlines()
		}
		if p.at(lexer.DEDENT) {
			p.advance()
		}
	}
	ms := &ast.MatchStmt{Scrutinee: scrutinee, Arms: arms}
	ms.Sp = sp
	return ms
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	sp := p.cur().Span
	pat := p.parsePattern()
	body := p.parseBlock()
	return ast.MatchArm{Pattern: pat, Body: body, Sp: sp}
}
