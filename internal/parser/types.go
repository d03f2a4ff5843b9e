package parser

import (
	"lumen/internal/ast"
	"lumen/internal/lexer"
	"lumen/internal/span"
)

// parseTypeExpr parses a single TypeExpr, applying the postfix `?`
// nullable marker and `|` union combinator.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	first := p.parseTypeAtom()
	if !p.check(lexer.Pipe) {
		return first
	}
	alts := []ast.TypeExpr{first}
	for p.match(lexer.Pipe) {
		alts = append(alts, p.parseTypeAtom())
	}
	return ast.NewUnionType(span.Merge(first.Span(), p.prevSpan()), alts)
}

func (p *Parser) parseTypeAtom() ast.TypeExpr {
	start := p.here()
	var t ast.TypeExpr

	switch p.peekKind() {
	case lexer.KwList:
		p.advance()
		elem := p.parseTypeAtom()
		t = ast.NewListType(span.Merge(start, p.prevSpan()), elem)
	case lexer.KwMap:
		p.advance()
		key := p.parseTypeAtom()
		value := p.parseTypeAtom()
		t = ast.NewMapType(span.Merge(start, p.prevSpan()), key, value)
	case lexer.KwResult:
		p.advance()
		ok := p.parseTypeAtom()
		errT := p.parseTypeAtom()
		t = ast.NewResultType(span.Merge(start, p.prevSpan()), ok, errT)
	case lexer.LParen:
		p.advance()
		var elems []ast.TypeExpr
		for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
			elems = append(elems, p.parseTypeExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
		p.expect(lexer.RParen, "')'")
		t = ast.NewTupleType(span.Merge(start, p.prevSpan()), elems)
	case lexer.LBrace:
		p.advance()
		elem := p.parseTypeExpr()
		p.expect(lexer.RBrace, "'}'")
		t = ast.NewSetType(span.Merge(start, p.prevSpan()), elem)
	case lexer.Ident:
		name := p.advance().Text
		if p.check(lexer.LBracket) {
			p.advance()
			var args []ast.TypeExpr
			for !p.check(lexer.RBracket) && !p.check(lexer.Eof) {
				args = append(args, p.parseTypeExpr())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RBracket, "']'")
			t = ast.NewGenericType(span.Merge(start, p.prevSpan()), name, args)
		} else {
			t = ast.NewNamedType(span.Merge(start, p.prevSpan()), name)
		}
	default:
		p.errorf("expected a type, found %q", p.peek().Text)
		p.recover()
		t = ast.NewNamedType(start, "Any")
	}

	if p.match(lexer.Question) {
		t = ast.NewNullType(span.Merge(start, p.prevSpan()), t)
	}
	return t
}
