// Where: pipegen/internal/meta/meta.go
// What: CLI-local metadata constants.
// Why: Keep names shared by the CLI, environment lookups, and generated files in one place.
package meta

const (
	// Project Identity
	AppName   = "pipegen"
	EnvPrefix = "PIPEGEN"

	// Files
	DefaultConfigFile = "pipegen.yml"
	DefaultEnvFile    = ".env"

	// TemplateKeyPrefix is the S3 key prefix for uploaded templates.
	TemplateKeyPrefix = "pipegen"
)
