package parser

import (
	"lumen/internal/ast"
	"lumen/internal/lexer"
	"lumen/internal/span"
)

// parseBlockBody parses statements until the next Dedent or `end`,
// whichever the enclosing construct expects.
func (p *Parser) parseBlockBody() []ast.Stmt {
	var body []ast.Stmt
	for {
		p.skipNewlines()
		if p.check(lexer.KwEnd) || p.check(lexer.Eof) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			body = append(body, stmt)
		}
		if p.pos == before {
			// Guarantee forward progress on a malformed statement.
			p.recover()
		}
	}
	return body
}

func (p *Parser) parseStmt() ast.Stmt {
	start := p.here()
	switch p.peekKind() {
	case lexer.KwLet:
		return p.parseLet(start)
	case lexer.KwIf:
		return p.parseIf(start)
	case lexer.KwFor:
		return p.parseFor(start)
	case lexer.KwWhile:
		return p.parseWhile(start)
	case lexer.KwMatch:
		return p.parseMatch(start)
	case lexer.KwReturn:
		return p.parseReturn(start)
	case lexer.KwHalt:
		return p.parseHalt(start)
	case lexer.KwBreak:
		p.advance()
		p.skipNewlines()
		return ast.NewBreakStmt(span.Merge(start, p.prevSpan()))
	case lexer.KwContinue:
		p.advance()
		p.skipNewlines()
		return ast.NewContinueStmt(span.Merge(start, p.prevSpan()))
	default:
		return p.parseExprOrAssign(start)
	}
}

func (p *Parser) parseLet(start span.Span) ast.Stmt {
	p.advance() // 'let'
	name, _ := p.expect(lexer.Ident, "variable name")
	var typ ast.TypeExpr
	if p.match(lexer.Colon) {
		typ = p.parseTypeExpr()
	}
	p.expect(lexer.Eq, "'='")
	value := p.parseExpr()
	p.skipNewlines()
	return ast.NewLetStmt(span.Merge(start, p.prevSpan()), name.Text, typ, value)
}

func (p *Parser) parseIf(start span.Span) ast.Stmt {
	p.advance() // 'if'
	cond := p.parseExpr()
	p.skipNewlines()
	p.consumeBlockOpen()
	then := p.parseIfBody()

	var els []ast.Stmt
	if p.check(lexer.KwElse) {
		p.advance()
		if p.check(lexer.KwIf) {
			elseStart := p.here()
			els = []ast.Stmt{p.parseIf(elseStart)}
			return ast.NewIfStmt(span.Merge(start, p.prevSpan()), cond, then, els)
		}
		p.skipNewlines()
		p.consumeBlockOpen()
		els = p.parseIfBody()
	}
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewIfStmt(span.Merge(start, p.prevSpan()), cond, then, els)
}

// parseIfBody parses statements until `else`, `end`, or a Dedent that
// closes this branch, leaving the terminator unconsumed.
func (p *Parser) parseIfBody() []ast.Stmt {
	var body []ast.Stmt
	for {
		p.skipNewlines()
		if p.check(lexer.KwEnd) || p.check(lexer.KwElse) || p.check(lexer.Eof) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			body = append(body, stmt)
		}
		if p.pos == before {
			p.recover()
		}
	}
	return body
}

func (p *Parser) parseFor(start span.Span) ast.Stmt {
	p.advance() // 'for'
	v, _ := p.expect(lexer.Ident, "loop variable")
	p.expect(lexer.KwIn, "'in'")
	seq := p.parseExpr()
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewForStmt(span.Merge(start, p.prevSpan()), v.Text, seq, body)
}

func (p *Parser) parseWhile(start span.Span) ast.Stmt {
	p.advance() // 'while'
	cond := p.parseExpr()
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewWhileStmt(span.Merge(start, p.prevSpan()), cond, body)
}

func (p *Parser) parseMatch(start span.Span) ast.Stmt {
	p.advance() // 'match'
	subject := p.parseExpr()
	p.skipNewlines()
	p.consumeBlockOpen()

	var arms []ast.MatchArm
	for !p.check(lexer.KwEnd) && !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.KwEnd) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		arms = append(arms, p.parseMatchArm())
	}
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewMatchStmt(span.Merge(start, p.prevSpan()), subject, arms)
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	astart := p.here()
	pat := p.parsePattern()
	p.expect(lexer.Arrow, "'->'")
	p.skipNewlines()
	opened := p.match(lexer.Indent)
	body := p.parseArmBody()
	if opened && p.check(lexer.Dedent) {
		p.advance()
	}
	return ast.MatchArm{Pattern: pat, Body: body, Span: span.Merge(astart, p.prevSpan())}
}

// parseArmBody parses the statements of a single match arm, stopping
// (without consuming) at the Dedent that returns to the arm-pattern
// indent level, or at `end`/Eof for a body with no nested indent at all.
func (p *Parser) parseArmBody() []ast.Stmt {
	var body []ast.Stmt
	for {
		p.skipNewlines()
		if p.check(lexer.KwEnd) || p.check(lexer.Dedent) || p.check(lexer.Eof) {
			break
		}
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			body = append(body, stmt)
		}
		if p.pos == before {
			p.recover()
		}
	}
	return body
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.here()
	if p.check(lexer.Ident) && p.peek().Text == "_" {
		p.advance()
		return ast.NewWildcardPattern(start)
	}
	switch p.peekKind() {
	case lexer.Int, lexer.Float, lexer.String, lexer.KwTrue, lexer.KwFalse, lexer.KwNull:
		return ast.NewLiteralPattern(start, p.parseAtom())
	case lexer.Ident:
		name := p.advance().Text
		if p.check(lexer.Dot) {
			p.advance()
			variant, _ := p.expect(lexer.Ident, "variant name")
			bind := ""
			if p.match(lexer.LParen) {
				if tok, ok := p.expect(lexer.Ident, "binding name"); ok {
					bind = tok.Text
				}
				p.expect(lexer.RParen, "')'")
			}
			return ast.NewVariantPattern(span.Merge(start, p.prevSpan()), name, variant.Text, bind)
		}
		if p.check(lexer.LParen) {
			p.advance()
			bind := ""
			if tok, ok := p.expect(lexer.Ident, "binding name"); ok {
				bind = tok.Text
			}
			p.expect(lexer.RParen, "')'")
			return ast.NewVariantPattern(span.Merge(start, p.prevSpan()), "", name, bind)
		}
		return ast.NewBindPattern(span.Merge(start, p.prevSpan()), name)
	default:
		p.errorf("expected a pattern, found %q", p.peek().Text)
		p.recover()
		return ast.NewWildcardPattern(start)
	}
}

func (p *Parser) parseReturn(start span.Span) ast.Stmt {
	p.advance() // 'return'
	var value ast.Expr
	if !p.check(lexer.Newline) && !p.check(lexer.KwEnd) && !p.check(lexer.Eof) && !p.check(lexer.Dedent) {
		value = p.parseExpr()
	}
	p.skipNewlines()
	return ast.NewReturnStmt(span.Merge(start, p.prevSpan()), value)
}

func (p *Parser) parseHalt(start span.Span) ast.Stmt {
	p.advance() // 'halt'
	value := p.parseExpr()
	p.skipNewlines()
	return ast.NewHaltStmt(span.Merge(start, p.prevSpan()), value)
}

func (p *Parser) parseExprOrAssign(start span.Span) ast.Stmt {
	e := p.parseExpr()
	if p.match(lexer.Eq) {
		value := p.parseExpr()
		p.skipNewlines()
		return ast.NewAssignStmt(span.Merge(start, p.prevSpan()), e, value)
	}
	p.skipNewlines()
	return ast.NewExprStmt(span.Merge(start, p.prevSpan()), e)
}
