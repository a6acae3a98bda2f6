// Where: pipegen/cmd/pipegen/cli_test.go
// What: Tests for CLI dependency wiring.
// Why: Ensure buildDependencies is deterministic.
package main

import (
	"os"
	"testing"

	"github.com/poruru-code/pipegen/internal/infra/interaction"
)

func TestBuildDependenciesUsesHuhOnTerminal(t *testing.T) {
	orig := isTerminal
	t.Cleanup(func() { isTerminal = orig })
	isTerminal = func(*os.File) bool { return true }

	deps := buildDependencies()
	if deps.Out != os.Stdout || deps.ErrOut != os.Stderr {
		t.Fatalf("expected standard streams")
	}
	if deps.ReadFile == nil || deps.IsTerminal == nil {
		t.Fatalf("expected file and terminal seams")
	}
	if !deps.IsTerminal() {
		t.Fatalf("expected terminal detection to use the seam")
	}
	if _, ok := deps.Prompter.(interaction.HuhPrompter); !ok {
		t.Fatalf("unexpected prompter %T", deps.Prompter)
	}
}

func TestBuildDependenciesFallsBackToLinePrompter(t *testing.T) {
	orig := isTerminal
	t.Cleanup(func() { isTerminal = orig })
	isTerminal = func(*os.File) bool { return false }

	deps := buildDependencies()
	if deps.IsTerminal() {
		t.Fatalf("expected non-terminal")
	}
	if _, ok := deps.Prompter.(interaction.LinePrompter); !ok {
		t.Fatalf("unexpected prompter %T", deps.Prompter)
	}
}
