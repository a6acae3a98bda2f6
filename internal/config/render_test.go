// Where: pipegen/internal/config/render_test.go
// What: Tests for config template rendering.
package config

import (
	"strings"
	"testing"
)

func TestRenderPlainDocument(t *testing.T) {
	got, err := Render("key: value\nhello: stuff\n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "key: value\nhello: stuff\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRenderVars(t *testing.T) {
	got, err := Render("hello: {{ .vars.my_var }}", map[string]string{"my_var": "my_value"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello: my_value" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRenderDefault(t *testing.T) {
	got, err := Render(`hello: {{ var "my_var" | default "my default value" }}`, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello: my default value" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRenderSprigFunctions(t *testing.T) {
	got, err := Render(`name: {{ .vars.env | upper }}-{{ "build" | title }}`, map[string]string{"env": "dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "name: DEV-Build" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRenderMissingVarFails(t *testing.T) {
	_, err := Render("hello: {{ .vars.missing }}", map[string]string{"other": "x"})
	if err == nil {
		t.Fatalf("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderSyntaxError(t *testing.T) {
	if _, err := Render("hello: {{ .vars.x ", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
