// Where: pipegen/internal/config/errors.go
// What: Validation error types.
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrSchema reports a document that violates the configuration schema.
	ErrSchema = errors.New("schema violation")
	// ErrDuplicateName reports two sources or actions sharing a name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrUnknownArtifact reports an input artifact that names no source or action.
	ErrUnknownArtifact = errors.New("unknown input artifact")
)

// ValidationError locates a rejected document value. Path is a JSON pointer
// into the configuration document.
type ValidationError struct {
	Path   string
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path == "" {
		return "invalid configuration: " + msg
	}
	return fmt.Sprintf("invalid configuration at %s: %s", e.Path, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var inputArtifactLocation = regexp.MustCompile(`^/stages/\d+/actions/\d+/input_artifacts/\d+$`)

// schemaError maps a jsonschema failure to a ValidationError. The deepest
// causes carry the useful location; an enum failure on an input artifact is
// reported as ErrUnknownArtifact.
func schemaError(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &ValidationError{Err: ErrSchema, Detail: err.Error()}
	}
	leaves := leafCauses(verr, nil)
	chosen := leaves[0]
	sentinel := ErrSchema
	for _, leaf := range leaves {
		if inputArtifactLocation.MatchString(leaf.InstanceLocation) {
			chosen = leaf
			sentinel = ErrUnknownArtifact
			break
		}
	}
	path := chosen.InstanceLocation
	if path == "" {
		path = "/"
	}
	return &ValidationError{Path: path, Err: sentinel, Detail: chosen.Message}
}

func leafCauses(verr *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return append(out, verr)
	}
	for _, cause := range verr.Causes {
		out = leafCauses(cause, out)
	}
	return out
}
