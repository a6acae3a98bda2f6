// Package envutil provides helper functions for pipegen environment variables.
package envutil

import (
	"os"
	"strings"

	"github.com/poruru-code/pipegen/internal/meta"
)

// HostEnvKey constructs a pipegen environment variable name
// by combining the application prefix with the given suffix.
// Example: HostEnvKey("AWS_ACCESS_KEY_ID") returns "PIPEGEN_AWS_ACCESS_KEY_ID".
func HostEnvKey(suffix string) string {
	return meta.EnvPrefix + "_" + suffix
}

// GetHostEnv retrieves a pipegen environment variable with surrounding
// whitespace removed.
// Example: GetHostEnv("CLOUDFORMATION_ENDPOINT") returns the value of PIPEGEN_CLOUDFORMATION_ENDPOINT.
func GetHostEnv(suffix string) string {
	return strings.TrimSpace(os.Getenv(HostEnvKey(suffix)))
}
