package parser

import (
	"strings"

	"github.com/sushi-lang/sushi/internal/ast"
	"github.com/sushi-lang/sushi/internal/lexer"
)

// parseExpr is the entry point for expression parsing. Precedence climbs,
// from loosest to tightest:
//
//	range < or < and < xor < equality < comparison < bitor < bitand <
//	shift < additive < multiplicative < unary < postfix (??, as, call,
//	index, member/dot) < primary
func (p *Parser) parseExpr() ast.Expr {
	return p.parseRange()
}

func (p *Parser) parseRange() ast.Expr {
	left := p.parseOr()
	if p.at(lexer.RANGE) || p.at(lexer.RANGEQ) {
		sp := p.cur().Span
		inclusive := p.at(lexer.RANGEQ)
		p.advance()
		right := p.parseOr()
		re := &ast.RangeExpr{Start: left, End: right, Inclusive: inclusive}
		re.Sp = sp
		return re
	}
	return left
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(lexer.OR) {
		sp := p.cur().Span
		p.advance()
		right := p.parseAnd()
		left = binOp(ast.OpOr, left, right, sp)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseXor()
	for p.at(lexer.AND) {
		sp := p.cur().Span
		p.advance()
		right := p.parseXor()
		left = binOp(ast.OpAnd, left, right, sp)
	}
	return left
}

func (p *Parser) parseXor() ast.Expr {
	left := p.parseEquality()
	for p.at(lexer.XOR) {
		sp := p.cur().Span
		p.advance()
		right := p.parseEquality()
		left = binOp(ast.OpXor, left, right, sp)
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.at(lexer.EQ) || p.at(lexer.NEQ) {
		sp := p.cur().Span
		op := ast.OpEq
		if p.at(lexer.NEQ) {
			op = ast.OpNeq
		}
		p.advance()
		right := p.parseComparison()
		left = binOp(op, left, right, sp)
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseBitOr()
	for p.at(lexer.LT) || p.at(lexer.LE) || p.at(lexer.GT) || p.at(lexer.GE) {
		sp := p.cur().Span
		op := map[lexer.TokenType]ast.BinOp{
			lexer.LT: ast.OpLt, lexer.LE: ast.OpLe,
			lexer.GT: ast.OpGt, lexer.GE: ast.OpGe,
		}[p.cur().Type]
		p.advance()
		right := p.parseBitOr()
		left = binOp(op, left, right, sp)
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitAnd()
	for p.at(lexer.PIPE) {
		sp := p.cur().Span
		p.advance()
		right := p.parseBitAnd()
		left = binOp(ast.OpBitOr, left, right, sp)
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseShift()
	for p.at(lexer.AMP) {
		sp := p.cur().Span
		p.advance()
		right := p.parseShift()
		left = binOp(ast.OpBitAnd, left, right, sp)
	}
	return left
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.at(lexer.SHL) || p.at(lexer.SHR) {
		sp := p.cur().Span
		op := ast.OpShl
		if p.at(lexer.SHR) {
			op = ast.OpShr
		}
		p.advance()
		right := p.parseAdditive()
		left = binOp(op, left, right, sp)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		sp := p.cur().Span
		op := ast.OpAdd
		if p.at(lexer.MINUS) {
			op = ast.OpSub
		}
		p.advance()
		right := p.parseMultiplicative()
		left = binOp(op, left, right, sp)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(lexer.STAR) || p.at(lexer.SLASH) || p.at(lexer.PERCENT) {
		sp := p.cur().Span
		op := ast.OpMul
		switch p.cur().Type {
		case lexer.SLASH:
			op = ast.OpDiv
		case lexer.PERCENT:
			op = ast.OpMod
		}
		p.advance()
		right := p.parseUnary()
		left = binOp(op, left, right, sp)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	sp := p.cur().Span
	switch {
	case p.at(lexer.MINUS):
		p.advance()
		u := &ast.UnaryOp{Op: "-", Expr: p.parseUnary()}
		u.Sp = sp
		return u
	case p.at(lexer.NOT):
		p.advance()
		u := &ast.UnaryOp{Op: "not", Expr: p.parseUnary()}
		u.Sp = sp
		return u
	case p.at(lexer.AMP):
		p.advance()
		poke := false
		if p.at(lexer.IDENT) && (p.cur().Raw == "poke" || p.cur().Raw == "peek") {
			poke = p.cur().Raw == "poke"
			p.advance()
		}
		b := &ast.Borrow{Value: p.parseUnary(), Poke: poke}
		b.Sp = sp
		return b
	default:
		return p.parsePostfix()
	}
}

// parsePostfix handles the tight postfix operators: `??`, `as T`, `.name`,
// `.name(args)`, `[index]`.
func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		sp := p.cur().Span
		switch {
		case p.at(lexer.QUESTION2):
			p.advance()
			t := &ast.TryExpr{Inner: expr}
			t.Sp = sp
			expr = t
		case p.at(lexer.AS):
			p.advance()
			target := p.parseType()
			c := &ast.CastExpr{Value: expr, Target: target}
			c.Sp = sp
			expr = c
		case p.at(lexer.DOT):
			p.advance()
			name := p.expect(lexer.IDENT).Raw
			if p.at(lexer.LPAREN) {
				args := p.parseArgExprs()
				dc := &ast.DotCall{Base: expr, Name: name, Args: args}
				dc.Sp = sp
				expr = dc
			} else {
				ma := &ast.MemberAccess{Base: expr, Field: name}
				ma.Sp = sp
				expr = ma
			}
		case p.at(lexer.LBRACKET):
			p.advance()
			idx := p.parseExpr()
			p.expect(lexer.RBRACKET)
			ia := &ast.IndexAccess{Base: expr, Index: idx}
			ia.Sp = sp
			expr = ia
		default:
			return expr
		}
	}
}

// parseArgExprs parses a parenthesized, comma-separated positional
// argument list. Callers assume p.cur() is LPAREN.
func (p *Parser) parseArgExprs() []ast.Expr {
	p.expect(lexer.LPAREN)
	var args []ast.Expr
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		args = append(args, p.parseExpr())
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RPAREN)
	return args
}

// looksLikeNamedArgs reports whether the token stream starting at an
// opening paren is a `name: value` constructor argument list
// (e.g. `Bag(items: from(["x"]))`), as opposed to a plain positional call.
func (p *Parser) looksLikeNamedArgs() bool {
	return p.at(lexer.LPAREN) && p.peekAt(1).Type == lexer.IDENT && p.peekAt(2).Type == lexer.COLON
}

func (p *Parser) parseNamedArgs() []ast.NamedArg {
	p.expect(lexer.LPAREN)
	var args []ast.NamedArg
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		name := p.expect(lexer.IDENT).Raw
		p.expect(lexer.COLON)
		val := p.parseExpr()
		args = append(args, ast.NamedArg{Name: name, Value: val})
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RPAREN)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	sp := p.cur().Span
	switch p.cur().Type {
	case lexer.INT:
		tok := p.advance()
		il := &ast.IntLit{Value: parseIntLiteral(tok.Raw), Raw: tok.Raw}
		il.Sp = sp
		return il
	case lexer.FLOAT:
		tok := p.advance()
		fl := &ast.FloatLit{Value: parseFloatLiteral(tok.Raw)}
		fl.Sp = sp
		return fl
	case lexer.TRUE, lexer.FALSE:
		tok := p.advance()
		bl := &ast.BoolLit{Value: tok.Type == lexer.TRUE}
		bl.Sp = sp
		return bl
	case lexer.STRING:
		tok := p.advance()
		sl := &ast.StringLit{Value: tok.Value}
		sl.Sp = sp
		return sl
	case lexer.INTERP_STRING:
		tok := p.advance()
		return p.parseInterpolated(tok, sp)
	case lexer.LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RPAREN)
		return e
	case lexer.LBRACKET:
		return p.parseArrayLiteral()
	case lexer.IDENT:
		return p.parseIdentLed()
	default:
		p.errorf("unexpected token %s %q in expression", p.cur().Type, p.cur().Raw)
		tok := p.advance()
		il := &ast.IntLit{Value: 0, Raw: tok.Raw}
		il.Sp = sp
		return il
	}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	sp := p.cur().Span
	p.expect(lexer.LBRACKET)
	var elems []ast.Expr
	for !p.at(lexer.RBRACKET) && !p.at(lexer.EOF) {
		elems = append(elems, p.parseExpr())
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.expect(lexer.RBRACKET)
	al := &ast.ArrayLiteral{Elems: elems}
	al.Sp = sp
	return al
}

// parseIdentLed parses everything that starts with a bare identifier:
// plain name references, calls, struct constructors, and the `new`/
// `from` array-builtin forms.
func (p *Parser) parseIdentLed() ast.Expr {
	sp := p.cur().Span
	name := p.advance().Raw

	if name == "new" && p.at(lexer.LPAREN) {
		p.advance()
		elemType := p.parseType()
		p.expect(lexer.COMMA)
		size := p.parseExpr()
		p.expect(lexer.RPAREN)
		dn := &ast.DynamicArrayNew{ElemType: elemType, Size: size}
		dn.Sp = sp
		return dn
	}
	if name == "from" && p.at(lexer.LPAREN) {
		args := p.parseArgExprs()
		var elems []ast.Expr
		if len(args) == 1 {
			if lit, ok := args[0].(*ast.ArrayLiteral); ok {
				elems = lit.Elems
			} else {
				elems = args
			}
		} else {
			elems = args
		}
		df := &ast.DynamicArrayFrom{Elems: elems}
		df.Sp = sp
		return df
	}

	if p.at(lexer.LPAREN) {
		if p.looksLikeNamedArgs() {
			args := p.parseNamedArgs()
			sc := &ast.StructConstructor{Name: name, Args: args}
			sc.Sp = sp
			return sc
		}
		args := p.parseArgExprs()
		call := &ast.Call{Callee: name, Args: args}
		call.Sp = sp
		return call
	}

	return ast.NewName(name, sp)
}

// parseInterpolated splits an INTERP_STRING token's decoded value into
// literal-text and `{expr}` pieces, re-lexing each embedded expression.
func (p *Parser) parseInterpolated(tok lexer.Token, sp lexer.Span) *ast.InterpolatedString {
	raw := tok.Value
	var pieces []ast.InterpPiece
	var lit strings.Builder
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '{' {
			if lit.Len() > 0 {
				pieces = append(pieces, ast.InterpPiece{Literal: lit.String()})
				lit.Reset()
			}
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			sub := raw[i+1 : j]
			subToks, _ := lexer.Tokenize(tok.Span.Filename, sub+"\n")
			sp2 := &Parser{filename: tok.Span.Filename, toks: subToks, rep: p.rep}
			pieces = append(pieces, ast.InterpPiece{Expr: sp2.parseExpr()})
			i = j + 1
			continue
		}
		lit.WriteByte(c)
		i++
	}
	if lit.Len() > 0 {
		pieces = append(pieces, ast.InterpPiece{Literal: lit.String()})
	}
	is := &ast.InterpolatedString{Pieces: pieces}
	is.Sp = sp
	return is
}

func binOp(op ast.BinOp, left, right ast.Expr, sp lexer.Span) *ast.BinaryOp {
	b := &ast.BinaryOp{Op: op, Left: left, Right: right}
	b.Sp = sp
	return b
}
