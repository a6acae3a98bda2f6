// Where: pipegen/internal/config/export.go
// What: JSON schema export of the typed configuration model.
// Why: Editors can validate pipegen.yml files without running the tool.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const schemaID = "https://github.com/poruru-code/pipegen/pipegen.schema.json"

// JSONSchema reflects the Config model into an indented JSON schema document.
func JSONSchema() ([]byte, error) {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "pipegen configuration"

	dt, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config schema: %w", err)
	}
	return dt, nil
}
