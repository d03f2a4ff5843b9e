package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureOutput redirects os.Stdout/os.Stderr for the duration of fn and
// returns everything written to each.
func captureOutput(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()

	oldOut, oldErr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = oldOut, oldErr }()

	fn()

	outW.Close()
	errW.Close()
	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	return string(outBytes), string(errBytes)
}

func TestMainWithNoArgsShowsUsageAndFails(t *testing.T) {
	var code int
	out, _ := captureOutput(t, func() { code = Main(nil) })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("expected usage text, got %q", out)
	}
}

func TestMainWithUnknownCommandFails(t *testing.T) {
	var code int
	_, errOut := captureOutput(t, func() { code = Main([]string{"bogus"}) })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Fatalf("expected unknown-command message, got %q", errOut)
	}
}

func TestMainVersionPrintsVersionAndSucceeds(t *testing.T) {
	var code int
	out, _ := captureOutput(t, func() { code = Main([]string{"version"}) })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out, Version) {
		t.Fatalf("expected version string in output, got %q", out)
	}
}

func TestMainRunMissingFileFails(t *testing.T) {
	var code int
	_, errOut := captureOutput(t, func() { code = Main([]string{"run", "does-not-exist.md"}) })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if errOut == "" {
		t.Fatalf("expected an error message")
	}
}

func TestMainRunExecutesEntryCell(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	doc := "# doc\n\n```lumen\ncell main() -> Int\n  return 40 + 2\nend\n```\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var code int
	out, _ := captureOutput(t, func() { code = Main([]string{"run", file}) })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(out) != "42" {
		t.Fatalf("expected output 42, got %q", out)
	}
}

func TestMainCheckReportsTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	doc := "# doc\n\n```lumen\ncell bad() -> Int\n  return \"oops\"\nend\n```\n"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var code int
	_, errOut := captureOutput(t, func() { code = Main([]string{"check", file}) })
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "type mismatch") {
		t.Fatalf("expected a type mismatch diagnostic, got %q", errOut)
	}
}

func TestRunAndCheckAliasesResolve(t *testing.T) {
	var code int
	_, errOut := captureOutput(t, func() { code = Main([]string{"r"}) })
	if code != 1 || !strings.Contains(errOut, "missing source file") {
		t.Fatalf("expected alias 'r' to resolve to 'run', got code=%d err=%q", code, errOut)
	}
}
