// Where: pipegen/cmd/pipegen/cli.go
// What: CLI dependency wiring helpers.
// Why: Centralize construction for testability.
package main

import (
	"os"

	"github.com/poruru-code/pipegen/internal/app"
	"github.com/poruru-code/pipegen/internal/infra/interaction"
)

var isTerminal = interaction.IsTerminal

// buildDependencies constructs the runtime dependencies of the CLI. Stack
// clients are created lazily by the deploy command.
func buildDependencies() app.Dependencies {
	deps := app.Dependencies{
		Out:      os.Stdout,
		ErrOut:   os.Stderr,
		ReadFile: os.ReadFile,
		IsTerminal: func() bool {
			return isTerminal(os.Stdin)
		},
	}
	deps.Prompter = selectPrompter(isTerminal(os.Stdin) && isTerminal(os.Stdout))
	return deps
}

// selectPrompter uses the full-screen prompt when both ends are terminals
// and a plain line prompt when output is redirected.
func selectPrompter(terminal bool) interaction.Prompter {
	if terminal {
		return interaction.HuhPrompter{}
	}
	return interaction.LinePrompter{In: os.Stdin, Out: os.Stderr}
}
