// Package markdown extracts fenced Lumen code blocks and top-level
// directives from a Markdown source document (spec.md §4.1, §6).
package markdown

import (
	"strings"

	"lumen/internal/span"
)

// CodeBlock is a single fenced `lumen`/`lm` block extracted from a
// Markdown document.
type CodeBlock struct {
	Source         string
	Language       string
	Span           span.Span
	CodeOffset     int
	CodeStartLine  int
	FenceDirective string // e.g. "compile-ok", "compile-error(substr)", "run-ok", "skip", "no-test"
}

// Directive is an `@name value` line found outside any fence.
type Directive struct {
	Name  string
	Value string
	Span  span.Span
}

// ExtractResult holds everything pulled out of one Markdown document.
type ExtractResult struct {
	CodeBlocks []CodeBlock
	Directives []Directive
}

// Extract scans source (already normalized or not — CRLF is normalized
// here) and returns every fenced `lumen`/`lm` block plus every top-level
// `@` directive line.
func Extract(source string) ExtractResult {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	var result ExtractResult

	inFence := false
	var fenceLang string
	var fenceDirective string
	var fenceCode strings.Builder
	var fenceStartOffset, fenceStartLine int
	var codeStartLine, codeStartOffset int
	var fenceBacktickCount int

	byteOffset := 0

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if !inFence {
			if count, ok := leadingBackticks(trimmed); ok && count >= 3 {
				rest := strings.TrimSpace(trimmed[count:])
				lang, directive := splitLanguageTag(rest)
				if lang == "lumen" || lang == "lm" {
					inFence = true
					fenceLang = lang
					fenceDirective = directive
					fenceCode.Reset()
					fenceStartOffset = byteOffset
					fenceStartLine = lineNum
					codeStartLine = lineNum + 1
					codeStartOffset = byteOffset + len(line) + 1
					fenceBacktickCount = count
				}
			} else if rest, ok := strings.CutPrefix(trimmed, "@"); ok {
				name, value := parseDirective(rest)
				result.Directives = append(result.Directives, Directive{
					Name:  name,
					Value: value,
					Span:  span.Span{Start: byteOffset, End: byteOffset + len(line), Line: lineNum, Col: 1},
				})
			}
		} else {
			if count, ok := leadingBackticks(trimmed); ok {
				rest := strings.TrimSpace(trimmed[count:])
				if count >= fenceBacktickCount && rest == "" {
					inFence = false
					result.CodeBlocks = append(result.CodeBlocks, CodeBlock{
						Source:         fenceCode.String(),
						Language:       fenceLang,
						Span:           span.Span{Start: fenceStartOffset, End: byteOffset + len(line), Line: fenceStartLine, Col: 1},
						CodeOffset:     codeStartOffset,
						CodeStartLine:  codeStartLine,
						FenceDirective: fenceDirective,
					})
					fenceCode.Reset()
					byteOffset += len(line) + 1
					continue
				}
			}
			if fenceCode.Len() > 0 {
				fenceCode.WriteByte('\n')
			}
			fenceCode.WriteString(line)
		}

		byteOffset += len(line) + 1
	}

	return result
}

// leadingBackticks counts consecutive backticks at the start of a trimmed
// line. ok is false if the line does not start with a backtick.
func leadingBackticks(trimmed string) (count int, ok bool) {
	for _, c := range trimmed {
		if c != '`' {
			break
		}
		count++
	}
	return count, count > 0
}

// splitLanguageTag parses the text following the opening fence's backticks,
// e.g. "lumen compile-error(UnknownType)" -> ("lumen", "compile-error(UnknownType)").
func splitLanguageTag(rest string) (lang, directive string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	lang = strings.ToLower(fields[0])
	if len(fields) > 1 {
		directive = strings.Join(fields[1:], " ")
	}
	return lang, directive
}

// parseDirective splits "name value" into its parts, stripping surrounding
// quotes from the value.
func parseDirective(text string) (name, value string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\t' })
	if idx < 0 {
		return text, ""
	}
	name = text[:idx]
	value = strings.TrimSpace(text[idx:])
	value = strings.Trim(value, `"`)
	return name, value
}
