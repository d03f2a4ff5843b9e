package lexer

import (
	"fmt"

	"lumen/internal/span"
)

// Kind identifies a token's lexical category (spec.md §3).
type Kind int

const (
	// Structural
	Eof Kind = iota
	Newline
	Indent
	Dedent

	// Literals
	Ident
	Int
	Float
	String

	// Keywords
	KwCell
	KwRecord
	KwEnum
	KwIf
	KwElse
	KwFor
	KwWhile
	KwMatch
	KwReturn
	KwHalt
	KwEnd
	KwUse
	KwTool
	KwGrant
	KwAs
	KwWhere
	KwAnd
	KwOr
	KwNot
	KwResult
	KwOk
	KwErr
	KwList
	KwMap
	KwTrue
	KwFalse
	KwNull
	KwLet
	KwBreak
	KwContinue
	KwIn
	KwRole
	KwTry
	KwTrait
	KwImpl
	KwConst
	KwMacro
	KwProcess
	KwEffect
	KwHandler

	// Operators & punctuation
	Plus
	Minus
	Star
	Slash
	Percent
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	Eq
	Arrow // ->
	Dot
	Comma
	Colon
	Pipe
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Question      // ?
	QuestionDot   // ?.
	QuestionBrack // ?[
	QuestionQuest // ??
	Bang          // !
)

var keywords = map[string]Kind{
	"cell":     KwCell,
	"record":   KwRecord,
	"enum":     KwEnum,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"while":    KwWhile,
	"match":    KwMatch,
	"return":   KwReturn,
	"halt":     KwHalt,
	"end":      KwEnd,
	"use":      KwUse,
	"tool":     KwTool,
	"grant":    KwGrant,
	"as":       KwAs,
	"where":    KwWhere,
	"and":      KwAnd,
	"or":       KwOr,
	"not":      KwNot,
	"result":   KwResult,
	"ok":       KwOk,
	"err":      KwErr,
	"list":     KwList,
	"map":      KwMap,
	"true":     KwTrue,
	"false":    KwFalse,
	"null":     KwNull,
	"let":      KwLet,
	"break":    KwBreak,
	"continue": KwContinue,
	"in":       KwIn,
	"role":     KwRole,
	"try":      KwTry,
	"trait":    KwTrait,
	"impl":     KwImpl,
	"const":    KwConst,
	"macro":    KwMacro,
	"process":  KwProcess,
	"effect":   KwEffect,
	"handler":  KwHandler,
}

// Segment is one piece of an interpolated string literal: either a literal
// run of text or a nested expression source (re-lexed/parsed by the parser).
type Segment struct {
	Literal string
	Expr    string // raw source of the {expr} if this is not a literal segment
	IsExpr  bool
}

// Token is a positioned lexeme.
type Token struct {
	Kind     Kind
	Text     string
	Segments []Segment // String tokens only: literal (escapes processed) and {expr} pieces, at least one
	Span     span.Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", kindName(t.Kind), t.Text, t.Span)
}

func kindName(k Kind) string {
	switch k {
	case Eof:
		return "EOF"
	case Newline:
		return "NEWLINE"
	case Indent:
		return "INDENT"
	case Dedent:
		return "DEDENT"
	case Ident:
		return "IDENT"
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	default:
		for text, kw := range keywords {
			if kw == k {
				return text
			}
		}
		return "OP"
	}
}
