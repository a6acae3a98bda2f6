// Where: pipegen/internal/app/dump.go
// What: dump subcommands printing the config, template, or schema.
package app

import (
	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/generator"
)

func runDumpConfig(cli CLI, s session) int {
	cfg, err := s.loadConfig(cli.Dump.Config.ConfigInput)
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	out, err := generator.MarshalYAML(cfg)
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	return s.write(out)
}

func runDumpTemplate(cli CLI, s session) int {
	cmd := cli.Dump.Template
	_, doc, err := s.buildTemplate(cmd.ConfigInput)
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	var out []byte
	if cmd.Format == "json" {
		out, err = doc.JSON()
	} else {
		out, err = doc.YAML()
	}
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	return s.write(out)
}

func runDumpSchema(_ CLI, s session) int {
	out, err := config.JSONSchema()
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	return s.write(append(out, '\n'))
}

func (s session) write(data []byte) int {
	if _, err := s.out.Write(data); err != nil {
		return exitWithError(s.errOut, err)
	}
	return 0
}
