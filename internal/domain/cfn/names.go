// Where: pipegen/internal/domain/cfn/names.go
// What: Name normalisation for logical ids and artifact names.
// Why: Config validation and template generation must agree on the emitted names.
package cfn

import "regexp"

var nonAlphanumeric = regexp.MustCompile(`[\W_]+`)

// Sanitize strips every character that is not a letter or digit.
func Sanitize(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "")
}
