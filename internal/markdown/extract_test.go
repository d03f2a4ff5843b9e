package markdown

import (
	"strings"
	"testing"
)

func TestExtractSimple(t *testing.T) {
	src := "@lumen 1\n@package \"test\"\n\n# Hello\n\n```lumen\nrecord Foo\n  x: Int\nend\n```\n\nSome prose here.\n\n```lumen\ncell main() -> Int\n  return 42\nend\n```\n"
	result := Extract(src)

	if len(result.Directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(result.Directives))
	}
	if result.Directives[0].Name != "lumen" || result.Directives[0].Value != "1" {
		t.Fatalf("unexpected first directive: %+v", result.Directives[0])
	}
	if result.Directives[1].Name != "package" || result.Directives[1].Value != "test" {
		t.Fatalf("unexpected second directive: %+v", result.Directives[1])
	}

	if len(result.CodeBlocks) != 2 {
		t.Fatalf("expected 2 code blocks, got %d", len(result.CodeBlocks))
	}
	if !strings.Contains(result.CodeBlocks[0].Source, "record Foo") {
		t.Errorf("block 0 missing expected content: %q", result.CodeBlocks[0].Source)
	}
	if !strings.Contains(result.CodeBlocks[1].Source, "cell main") {
		t.Errorf("block 1 missing expected content: %q", result.CodeBlocks[1].Source)
	}
}

func TestExtractNonLumenBlocksIgnored(t *testing.T) {
	src := "\n```python\nprint(\"hello\")\n```\n\n```lumen\ncell greet() -> String\n  return \"hello\"\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 code block, got %d", len(result.CodeBlocks))
	}
	if !strings.Contains(result.CodeBlocks[0].Source, "cell greet") {
		t.Errorf("unexpected block content: %q", result.CodeBlocks[0].Source)
	}
}

func TestNestedCodeFences(t *testing.T) {
	src := "\n````lumen\nrecord Example\n  code: String\nend\n\ncell demo() -> String\n  let x = \"```lumen\\ncell foo()\\nend\\n```\"\n  return x\nend\n````\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 code block, got %d", len(result.CodeBlocks))
	}
	if !strings.Contains(result.CodeBlocks[0].Source, "```lumen") {
		t.Errorf("expected embedded fence text to survive, got %q", result.CodeBlocks[0].Source)
	}
}

func TestLanguageAliasLM(t *testing.T) {
	src := "\n```lm\ncell test() -> Int\n  42\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 || result.CodeBlocks[0].Language != "lm" {
		t.Fatalf("unexpected result: %+v", result.CodeBlocks)
	}
}

func TestCaseInsensitiveLanguage(t *testing.T) {
	src := "\n```Lumen\ncell test() -> Int\n  42\nend\n```\n\n```LUMEN\ncell test2() -> Int\n  84\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.CodeBlocks))
	}
}

func TestEmptyCodeBlock(t *testing.T) {
	src := "\n```lumen\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 || result.CodeBlocks[0].Source != "" {
		t.Fatalf("expected one empty block, got %+v", result.CodeBlocks)
	}
}

func TestWindowsLineEndings(t *testing.T) {
	src := "```lumen\r\ncell test() -> Int\r\n  42\r\nend\r\n```\r\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.CodeBlocks))
	}
	if !strings.Contains(result.CodeBlocks[0].Source, "42") {
		t.Errorf("unexpected content: %q", result.CodeBlocks[0].Source)
	}
}

func TestNoFinalNewline(t *testing.T) {
	src := "```lumen\ncell test() -> Int\n  42\nend\n```"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.CodeBlocks))
	}
}

func TestMultipleBlocksLineTracking(t *testing.T) {
	src := "First line\n\n```lumen\ncell first() -> Int\n  1\nend\n```\n\nMiddle prose here.\n\n```lumen\ncell second() -> Int\n  2\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.CodeBlocks))
	}
	if result.CodeBlocks[0].CodeStartLine != 4 {
		t.Errorf("expected first block to start on line 4, got %d", result.CodeBlocks[0].CodeStartLine)
	}
	if result.CodeBlocks[1].CodeStartLine <= result.CodeBlocks[0].CodeStartLine {
		t.Errorf("expected second block to start later than first")
	}
}

func TestIndentedCodeBlocksIgnored(t *testing.T) {
	src := "\nRegular text.\n\n    This is an indented code block\n    It should be ignored\n\n```lumen\ncell test() -> Int\n  42\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.CodeBlocks))
	}
	if strings.Contains(result.CodeBlocks[0].Source, "indented code block") {
		t.Errorf("indented block leaked into fenced block: %q", result.CodeBlocks[0].Source)
	}
}

func TestBackticksInsideCode(t *testing.T) {
	src := "\n```lumen\ncell demo() -> String\n  let msg = \"Use ``` for code fences\"\n  return msg\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.CodeBlocks))
	}
	if !strings.Contains(result.CodeBlocks[0].Source, "Use ``` for code fences") {
		t.Errorf("unexpected content: %q", result.CodeBlocks[0].Source)
	}
}

func TestFenceDirectiveSuffix(t *testing.T) {
	src := "\n```lumen compile-error(Mismatch)\ncell bad() -> Int\n  return \"s\"\nend\n```\n"
	result := Extract(src)
	if len(result.CodeBlocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.CodeBlocks))
	}
	if result.CodeBlocks[0].FenceDirective != "compile-error(Mismatch)" {
		t.Errorf("unexpected directive: %q", result.CodeBlocks[0].FenceDirective)
	}
}
