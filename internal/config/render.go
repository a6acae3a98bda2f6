// Where: pipegen/internal/config/render.go
// What: Template rendering of the raw configuration source.
// Why: Let one config file serve several environments through --vars.
package config

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Render executes source as a text/template with sprig functions.
// Variables are available as .vars; referencing a missing key fails.
// The var function returns "" for absent keys so optional values can be
// written as {{ var "name" | default "fallback" }}.
func Render(source string, vars map[string]string) (string, error) {
	if vars == nil {
		vars = map[string]string{}
	}

	funcs := sprig.TxtFuncMap()
	funcs["var"] = func(name string) string {
		return vars[name]
	}

	tmpl, err := template.New("config").
		Option("missingkey=error").
		Funcs(funcs).
		Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"vars": vars}); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return buf.String(), nil
}
