// Where: pipegen/internal/domain/value/value.go
// What: Value conversion helpers for decoded configuration documents.
// Why: Read loosely typed YAML/JSON trees before they are bound to typed structs.
package value

import (
	"fmt"
	"strings"
)

// AsMap converts a value to map form when possible.
func AsMap(value any) map[string]any {
	if value == nil {
		return nil
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return nil
}

// AsSlice converts a value to slice form. Scalars are not wrapped; a
// non-list value yields nil so callers can iterate safely.
func AsSlice(value any) []any {
	if v, ok := value.([]any); ok {
		return v
	}
	return nil
}

// AsString returns the string representation of a value.
func AsString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// AsStringDefault returns a string representation or the fallback.
func AsStringDefault(value any, fallback string) string {
	if out := AsString(value); out != "" {
		return out
	}
	return fallback
}

// AsBoolDefault returns the boolean value or the fallback when the value is
// absent or not a boolean.
func AsBoolDefault(value any, fallback bool) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}

// SetDefault stores fallback under key unless the key is already present.
func SetDefault(m map[string]any, key string, fallback any) {
	if m == nil {
		return
	}
	if _, ok := m[key]; ok {
		return
	}
	m[key] = fallback
}

// PairsToMap converts KEY=VALUE entries into a map. Later entries win.
func PairsToMap(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, entry := range pairs {
		key, val, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", entry)
		}
		out[key] = val
	}
	return out, nil
}
