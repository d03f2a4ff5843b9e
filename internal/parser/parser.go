// Package parser implements the recursive-descent parser of spec.md §4.3:
// token stream in, ast.Program out, collecting every syntax error found
// rather than stopping at the first one.
package parser

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/lexer"
	"lumen/internal/span"
)

// Error is one parse diagnostic.
type Error struct {
	Span span.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// Parser turns a flat token slice into an ast.Program, collecting errors
// and performing one-token recovery so parsing can continue past a
// malformed construct.
type Parser struct {
	toks []lexer.Token
	pos  int
	errs []error
}

// Parse runs the parser to completion, returning the program built from
// whatever could be recovered and every error encountered along the way.
func Parse(toks []lexer.Token) (*ast.Program, []error) {
	p := &Parser{toks: toks}
	prog := p.parseProgram()
	return prog, p.errs
}

func (p *Parser) parseProgram() *ast.Program {
	start := p.here()
	prog := &ast.Program{}
	for !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.Eof) {
			break
		}
		item := p.parseItem()
		if item != nil {
			prog.Items = append(prog.Items, item)
		}
	}
	prog.Span = span.Merge(start, p.here())
	return prog
}

// --- token stream helpers ---

func (p *Parser) here() span.Span { return p.toks[p.pos].Span }
func (p *Parser) peek() lexer.Token { return p.toks[p.pos] }
func (p *Parser) peekKind() lexer.Kind { return p.toks[p.pos].Kind }
func (p *Parser) check(k lexer.Kind) bool { return p.peekKind() == k }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) match(k lexer.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	p.errorf("expected %s, found %q", what, p.peek().Text)
	return lexer.Token{}, false
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, &Error{Span: p.here(), Msg: fmt.Sprintf(format, args...)})
}

// recover advances one token to resynchronize after an error, unless
// already at Eof.
func (p *Parser) recover() {
	if !p.check(lexer.Eof) {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.Newline) {
		p.advance()
	}
}

// prevSpan is the span of the most recently consumed token.
func (p *Parser) prevSpan() span.Span {
	if p.pos == 0 {
		return p.toks[0].Span
	}
	return p.toks[p.pos-1].Span
}

// consumeBlockOpen accepts the Indent token that normally follows a block
// opener's Newline. A one-line body with no Indent at all is tolerated.
func (p *Parser) consumeBlockOpen() {
	p.match(lexer.Indent)
}

// --- items ---

func (p *Parser) parseItem() ast.Item {
	start := p.here()
	switch p.peekKind() {
	case lexer.KwRecord:
		return p.parseRecord(start)
	case lexer.KwEnum:
		return p.parseEnum(start)
	case lexer.KwCell:
		return p.parseCell(start)
	case lexer.KwUse:
		return p.parseUseTool(start)
	case lexer.KwGrant:
		return p.parseGrant(start)
	case lexer.KwProcess:
		return p.parseProcess(start)
	case lexer.KwEffect:
		return p.parseEffect(start)
	case lexer.KwHandler:
		return p.parseHandler(start)
	case lexer.KwTrait:
		return p.parseTrait(start)
	case lexer.KwImpl:
		return p.parseImpl(start)
	case lexer.KwConst:
		return p.parseConst(start)
	case lexer.KwMacro:
		return p.parseMacro(start)
	default:
		p.errorf("expected a top-level item, found %q", p.peek().Text)
		p.recover()
		return nil
	}
}

func (p *Parser) parseTypeParams() []string {
	if !p.match(lexer.LBracket) {
		return nil
	}
	var params []string
	for !p.check(lexer.RBracket) && !p.check(lexer.Eof) {
		if tok, ok := p.expect(lexer.Ident, "type parameter name"); ok {
			params = append(params, tok.Text)
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBracket, "']'")
	return params
}

func (p *Parser) parseRecord(start span.Span) ast.Item {
	p.advance() // 'record'
	name, _ := p.expect(lexer.Ident, "record name")
	typeParams := p.parseTypeParams()
	p.skipNewlines()
	p.consumeBlockOpen()

	var fields []ast.Field
	for !p.check(lexer.KwEnd) && !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.KwEnd) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		fields = append(fields, p.parseField())
		p.skipNewlines()
	}
	p.expect(lexer.KwEnd, "'end'")

	return ast.NewRecordDef(span.Merge(start, p.prevSpan()), name.Text, typeParams, fields)
}

func (p *Parser) parseField() ast.Field {
	fstart := p.here()
	name, _ := p.expect(lexer.Ident, "field name")
	p.expect(lexer.Colon, "':'")
	typ := p.parseTypeExpr()
	var where ast.Expr
	if p.match(lexer.KwWhere) {
		where = p.parseExpr()
	}
	return ast.Field{Name: name.Text, Type: typ, Where: where, Span: span.Merge(fstart, p.prevSpan())}
}

func (p *Parser) parseEnum(start span.Span) ast.Item {
	p.advance() // 'enum'
	name, _ := p.expect(lexer.Ident, "enum name")
	typeParams := p.parseTypeParams()
	p.skipNewlines()
	p.consumeBlockOpen()

	var variants []ast.EnumVariant
	for !p.check(lexer.KwEnd) && !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.KwEnd) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		variants = append(variants, p.parseEnumVariant())
		p.skipNewlines()
	}
	p.expect(lexer.KwEnd, "'end'")

	return ast.NewEnumDef(span.Merge(start, p.prevSpan()), name.Text, typeParams, variants)
}

func (p *Parser) parseEnumVariant() ast.EnumVariant {
	vstart := p.here()
	name, _ := p.expect(lexer.Ident, "variant name")
	v := ast.EnumVariant{Name: name.Text}
	if p.match(lexer.LParen) {
		v.Payload = p.parseTypeExpr()
		p.expect(lexer.RParen, "')'")
	}
	if p.match(lexer.Arrow) {
		p.expect(lexer.Ident, "GADT enum name")
		p.expect(lexer.LBracket, "'['")
		for !p.check(lexer.RBracket) && !p.check(lexer.Eof) {
			v.GADTArgs = append(v.GADTArgs, p.parseTypeExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
		p.expect(lexer.RBracket, "']'")
	}
	v.Span = span.Merge(vstart, p.prevSpan())
	return v
}

func (p *Parser) parseEffectRow() []string {
	if !p.match(lexer.Slash) {
		return nil
	}
	p.expect(lexer.LBrace, "'{'")
	effects := []string{}
	for !p.check(lexer.RBrace) && !p.check(lexer.Eof) {
		tok, _ := p.expect(lexer.Ident, "effect name")
		effects = append(effects, tok.Text)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBrace, "'}'")
	return effects
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(lexer.LParen, "'('")
	var params []ast.Param
	for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
		pstart := p.here()
		name, _ := p.expect(lexer.Ident, "parameter name")
		p.expect(lexer.Colon, "':'")
		typ := p.parseTypeExpr()
		params = append(params, ast.Param{Name: name.Text, Type: typ, Span: span.Merge(pstart, p.prevSpan())})
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	return params
}

func (p *Parser) parseCell(start span.Span) ast.Item {
	p.advance() // 'cell'
	name, _ := p.expect(lexer.Ident, "cell name")
	typeParams := p.parseTypeParams()
	params := p.parseParams()
	var ret ast.TypeExpr
	if p.match(lexer.Arrow) {
		ret = p.parseTypeExpr()
	}
	effects := p.parseEffectRow()
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")

	return ast.NewCellDef(span.Merge(start, p.prevSpan()), name.Text, typeParams, params, ret, effects, body)
}

func (p *Parser) parseUseTool(start span.Span) ast.Item {
	p.advance() // 'use'
	p.expect(lexer.KwTool, "'tool'")
	tool, _ := p.expect(lexer.Ident, "tool name")
	alias := tool.Text
	if p.match(lexer.KwAs) {
		aliasTok, _ := p.expect(lexer.Ident, "alias name")
		alias = aliasTok.Text
	}
	return ast.NewUseToolDef(span.Merge(start, p.prevSpan()), tool.Text, alias)
}

func (p *Parser) parseGrant(start span.Span) ast.Item {
	p.advance() // 'grant'
	name, _ := p.expect(lexer.Ident, "capability name")
	return ast.NewGrantDef(span.Merge(start, p.prevSpan()), name.Text)
}

func (p *Parser) parseProcess(start span.Span) ast.Item {
	p.advance() // 'process'
	name, _ := p.expect(lexer.Ident, "process name")
	params := p.parseParams()
	effects := p.parseEffectRow()
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewProcessDef(span.Merge(start, p.prevSpan()), name.Text, params, effects, body)
}

func (p *Parser) parseEffect(start span.Span) ast.Item {
	p.advance() // 'effect'
	name, _ := p.expect(lexer.Ident, "effect name")
	params := p.parseParams()
	var ret ast.TypeExpr
	if p.match(lexer.Arrow) {
		ret = p.parseTypeExpr()
	}
	return ast.NewEffectDef(span.Merge(start, p.prevSpan()), name.Text, params, ret)
}

func (p *Parser) parseHandler(start span.Span) ast.Item {
	p.advance() // 'handler'
	name, _ := p.expect(lexer.Ident, "effect name")
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewHandlerDef(span.Merge(start, p.prevSpan()), name.Text, body)
}

func (p *Parser) parseTrait(start span.Span) ast.Item {
	p.advance() // 'trait'
	name, _ := p.expect(lexer.Ident, "trait name")
	p.skipNewlines()
	p.consumeBlockOpen()

	var methods []ast.TraitMethod
	for !p.check(lexer.KwEnd) && !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.KwEnd) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		methods = append(methods, p.parseTraitMethod())
		p.skipNewlines()
	}
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewTraitDef(span.Merge(start, p.prevSpan()), name.Text, methods)
}

func (p *Parser) parseTraitMethod() ast.TraitMethod {
	mstart := p.here()
	p.expect(lexer.KwCell, "'cell'")
	name, _ := p.expect(lexer.Ident, "method name")
	params := p.parseParams()
	var ret ast.TypeExpr
	if p.match(lexer.Arrow) {
		ret = p.parseTypeExpr()
	}
	p.skipNewlines()
	m := ast.TraitMethod{Name: name.Text, Params: params, Return: ret}
	if p.check(lexer.Indent) {
		p.consumeBlockOpen()
		m.DefaultBody = p.parseBlockBody()
		p.expect(lexer.KwEnd, "'end'")
	}
	m.Span = span.Merge(mstart, p.prevSpan())
	return m
}

func (p *Parser) parseImpl(start span.Span) ast.Item {
	p.advance() // 'impl'
	trait, _ := p.expect(lexer.Ident, "trait name")
	p.expect(lexer.KwFor, "'for'")
	typ, _ := p.expect(lexer.Ident, "type name")
	p.skipNewlines()
	p.consumeBlockOpen()

	var methods []ast.CellDef
	for !p.check(lexer.KwEnd) && !p.check(lexer.Eof) {
		p.skipNewlines()
		if p.check(lexer.KwEnd) {
			break
		}
		if p.check(lexer.Dedent) {
			p.advance()
			continue
		}
		if item, ok := p.parseCell(p.here()).(*ast.CellDef); ok {
			methods = append(methods, *item)
		}
		p.skipNewlines()
	}
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewImplDef(span.Merge(start, p.prevSpan()), trait.Text, typ.Text, methods)
}

func (p *Parser) parseConst(start span.Span) ast.Item {
	p.advance() // 'const'
	name, _ := p.expect(lexer.Ident, "const name")
	var typ ast.TypeExpr
	if p.match(lexer.Colon) {
		typ = p.parseTypeExpr()
	}
	p.expect(lexer.Eq, "'='")
	value := p.parseExpr()
	return ast.NewConstDef(span.Merge(start, p.prevSpan()), name.Text, typ, value)
}

func (p *Parser) parseMacro(start span.Span) ast.Item {
	p.advance() // 'macro'
	name, _ := p.expect(lexer.Ident, "macro name")
	p.expect(lexer.LParen, "'('")
	var params []string
	for !p.check(lexer.RParen) && !p.check(lexer.Eof) {
		tok, _ := p.expect(lexer.Ident, "macro parameter")
		params = append(params, tok.Text)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	p.skipNewlines()
	p.consumeBlockOpen()
	body := p.parseBlockBody()
	p.expect(lexer.KwEnd, "'end'")
	return ast.NewMacroDef(span.Merge(start, p.prevSpan()), name.Text, params, body)
}
