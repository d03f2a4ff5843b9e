package parser

import (
	"lumen/internal/ast"
	"lumen/internal/lexer"
	"lumen/internal/span"
)

// parseExpr is the entry point of the precedence chain (spec.md §4.3,
// low to high): or, and, not, comparisons, + -, * / %, unary, postfix, atom.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.check(lexer.KwOr) {
		start := left.Span()
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinOp(span.Merge(start, right.Span()), "or", left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.check(lexer.KwAnd) {
		start := left.Span()
		p.advance()
		right := p.parseNot()
		left = ast.NewBinOp(span.Merge(start, right.Span()), "and", left, right)
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.check(lexer.KwNot) {
		start := p.here()
		p.advance()
		operand := p.parseNot()
		return ast.NewUnaryOp(span.Merge(start, operand.Span()), "not", operand)
	}
	return p.parseComparison()
}

var comparisonOps = map[lexer.Kind]string{
	lexer.EqEq:  "==",
	lexer.NotEq: "!=",
	lexer.Lt:    "<",
	lexer.LtEq:  "<=",
	lexer.Gt:    ">",
	lexer.GtEq:  ">=",
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	if op, ok := comparisonOps[p.peekKind()]; ok {
		p.advance()
		right := p.parseAdditive()
		return ast.NewBinOp(span.Merge(left.Span(), right.Span()), op, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(lexer.Plus) || p.check(lexer.Minus) {
		op := "+"
		if p.peekKind() == lexer.Minus {
			op = "-"
		}
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinOp(span.Merge(left.Span(), right.Span()), op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(lexer.Star) || p.check(lexer.Slash) || p.check(lexer.Percent) {
		op := map[lexer.Kind]string{lexer.Star: "*", lexer.Slash: "/", lexer.Percent: "%"}[p.peekKind()]
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinOp(span.Merge(left.Span(), right.Span()), op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(lexer.Minus) {
		start := p.here()
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryOp(span.Merge(start, operand.Span()), "-", operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parseAtom()
	for {
		start := e.Span()
		switch p.peekKind() {
		case lexer.Dot:
			p.advance()
			field, _ := p.expect(lexer.Ident, "field name")
			e = ast.NewDotAccess(span.Merge(start, p.prevSpan()), e, field.Text, false)
		case lexer.QuestionDot:
			p.advance()
			field, _ := p.expect(lexer.Ident, "field name")
			e = ast.NewDotAccess(span.Merge(start, p.prevSpan()), e, field.Text, true)
		case lexer.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(lexer.RBracket, "']'")
			e = ast.NewIndexAccess(span.Merge(start, p.prevSpan()), e, idx, false)
		case lexer.QuestionBrack:
			p.advance()
			idx := p.parseExpr()
			p.expect(lexer.RBracket, "']'")
			e = ast.NewIndexAccess(span.Merge(start, p.prevSpan()), e, idx, true)
		case lexer.LParen:
			e = p.parseCallArgs(e)
		case lexer.QuestionQuest:
			p.advance()
			right := p.parseUnary()
			e = ast.NewNullCoalesce(span.Merge(start, right.Span()), e, right)
		case lexer.Bang:
			p.advance()
			e = ast.NewForceUnwrap(span.Merge(start, p.prevSpan()), e)
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs(callee ast.Expr) ast.Expr {
	start := callee.Span()
	p.advance() // '('
	var args []ast.Arg
	for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
		args = append(args, p.parseArg())
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	sp := span.Merge(start, p.prevSpan())
	if ident, ok := callee.(*ast.Ident); ok {
		return ast.NewCall(sp, ident, args)
	}
	return ast.NewCall(sp, callee, args)
}

func (p *Parser) parseArg() ast.Arg {
	if p.check(lexer.KwRole) {
		p.advance()
		name, _ := p.expect(lexer.Ident, "role name")
		p.expect(lexer.Colon, "':'")
		value := p.parseExpr()
		return ast.Arg{Kind: ast.ArgRole, Name: name.Text, Value: value}
	}
	if p.check(lexer.Ident) && p.toks[p.pos+1].Kind == lexer.Colon {
		name := p.advance().Text
		p.advance() // ':'
		value := p.parseExpr()
		return ast.Arg{Kind: ast.ArgNamed, Name: name, Value: value}
	}
	return ast.Arg{Kind: ast.ArgPositional, Value: p.parseExpr()}
}

func (p *Parser) parseAtom() ast.Expr {
	start := p.here()
	switch p.peekKind() {
	case lexer.Int:
		tok := p.advance()
		return ast.NewIntLit(start, parseIntLiteral(tok.Text))
	case lexer.Float:
		tok := p.advance()
		return ast.NewFloatLit(start, parseFloatLiteral(tok.Text))
	case lexer.String:
		tok := p.advance()
		return ast.NewStringLit(start, p.translateSegments(tok))
	case lexer.KwTrue:
		p.advance()
		return ast.NewBoolLit(start, true)
	case lexer.KwFalse:
		p.advance()
		return ast.NewBoolLit(start, false)
	case lexer.KwNull:
		p.advance()
		return ast.NewNullLit(start)
	case lexer.KwTry:
		p.advance()
		value := p.parseExpr()
		return ast.NewTryExpr(span.Merge(start, p.prevSpan()), value)
	case lexer.KwRole:
		return p.parseRoleBlock(start)
	case lexer.LParen:
		p.advance()
		first := p.parseExpr()
		if p.match(lexer.Comma) {
			elems := []ast.Expr{first}
			for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
				elems = append(elems, p.parseExpr())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen, "')'")
			return ast.NewTupleLit(span.Merge(start, p.prevSpan()), elems)
		}
		p.expect(lexer.RParen, "')'")
		return first
	case lexer.LBracket:
		return p.parseListLit(start)
	case lexer.LBrace:
		return p.parseMapOrSetLit(start)
	case lexer.Ident:
		name := p.advance().Text
		if p.check(lexer.LParen) && isUpper(name) {
			return p.parseRecordLit(start, name)
		}
		return ast.NewIdent(span.Merge(start, p.prevSpan()), name)
	default:
		p.errorf("expected an expression, found %q", p.peek().Text)
		p.recover()
		return ast.NewNullLit(start)
	}
}

func isUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func (p *Parser) parseRoleBlock(start span.Span) ast.Expr {
	p.advance() // 'role'
	name, _ := p.expect(lexer.Ident, "role name")
	p.expect(lexer.Colon, "':'")
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewRoleBlock(span.Merge(start, p.prevSpan()), name.Text, body)
}

func (p *Parser) parseListLit(start span.Span) ast.Expr {
	p.advance() // '['
	var elems []ast.Expr
	for !p.check(lexer.RBracket) && !p.check(lexer.Eof) {
		elems = append(elems, p.parseExpr())
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBracket, "']'")
	return ast.NewListLit(span.Merge(start, p.prevSpan()), elems)
}

// parseMapOrSetLit disambiguates `{k: v, ...}` (map) from `{e1, e2, ...}`
// (set) by checking for a colon after the first element.
func (p *Parser) parseMapOrSetLit(start span.Span) ast.Expr {
	p.advance() // '{'
	if p.check(lexer.RBrace) {
		p.advance()
		return ast.NewMapLit(span.Merge(start, p.prevSpan()), nil)
	}
	first := p.parseExpr()
	if p.match(lexer.Colon) {
		firstVal := p.parseExpr()
		entries := []ast.MapEntry{{Key: first, Value: firstVal}}
		for p.match(lexer.Comma) {
			if p.check(lexer.RBrace) {
				break
			}
			k := p.parseExpr()
			p.expect(lexer.Colon, "':'")
			v := p.parseExpr()
			entries = append(entries, ast.MapEntry{Key: k, Value: v})
		}
		p.expect(lexer.RBrace, "'}'")
		return ast.NewMapLit(span.Merge(start, p.prevSpan()), entries)
	}
	elems := []ast.Expr{first}
	for p.match(lexer.Comma) {
		if p.check(lexer.RBrace) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(lexer.RBrace, "'}'")
	return ast.NewSetLit(span.Merge(start, p.prevSpan()), elems)
}

func (p *Parser) parseRecordLit(start span.Span, name string) ast.Expr {
	p.advance() // '('
	var fields []ast.FieldInit
	for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
		fname, _ := p.expect(lexer.Ident, "field name")
		p.expect(lexer.Colon, "':'")
		value := p.parseExpr()
		fields = append(fields, ast.FieldInit{Name: fname.Text, Value: value})
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	return ast.NewRecordLit(span.Merge(start, p.prevSpan()), name, fields)
}

// translateSegments converts a lexer.Token's interpolation Segments into
// ast.StringSegment, recursively parsing each embedded expression.
func (p *Parser) translateSegments(tok lexer.Token) []ast.StringSegment {
	if len(tok.Segments) == 0 {
		return []ast.StringSegment{{Literal: tok.Text}}
	}
	var out []ast.StringSegment
	for _, seg := range tok.Segments {
		if !seg.IsExpr {
			out = append(out, ast.StringSegment{Literal: seg.Literal})
			continue
		}
		subToks, err := lexer.New(seg.Expr+"\n", tok.Span.Line, tok.Span.Start).Lex()
		if err != nil {
			p.errorf("invalid interpolation expression: %v", err)
			out = append(out, ast.StringSegment{Expr: ast.NewNullLit(tok.Span)})
			continue
		}
		sub := &Parser{toks: subToks}
		expr := sub.parseExpr()
		p.errs = append(p.errs, sub.errs...)
		out = append(out, ast.StringSegment{Expr: expr})
	}
	return out
}
