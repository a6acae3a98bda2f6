// Where: pipegen/internal/generator/encode.go
// What: YAML and JSON encodings of generated templates.
package generator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML encodes the document with two-space indentation.
func (d Document) YAML() ([]byte, error) {
	return MarshalYAML(d)
}

// JSON encodes the document as indented JSON.
func (d Document) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return append(out, '\n'), nil
}

// MarshalYAML encodes value as YAML with two-space indentation.
func MarshalYAML(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
