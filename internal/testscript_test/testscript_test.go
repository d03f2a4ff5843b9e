// Package testscript_test runs the `lumen` CLI against golden .txtar
// scripts under testdata/script, exercising the full extractor -> lexer
// -> parser -> resolver -> typecheck -> lower -> vm pipeline through the
// same entry point the real binary uses (spec.md §8's seed scenarios).
package testscript_test

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"lumen/internal/cli"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"lumen": func() int { return cli.Main(os.Args[1:]) },
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
