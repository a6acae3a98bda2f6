// Where: pipegen/cmd/pipegen/main.go
// What: CLI entrypoint.
// Why: Execute pipegen commands with configured dependencies.
package main

import (
	"os"

	"github.com/poruru-code/pipegen/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:], buildDependencies()))
}
