// Where: pipegen/internal/domain/cfn/value.go
// What: CloudFormation intrinsic shapes and the configured-value resolver.
// Why: Configuration strings may be literals, pseudo parameters, or stack imports.
package cfn

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	pseudoPrefix = "AWS::"
	importPrefix = "import:"

	// NoValuePseudo removes the enclosing property when referenced.
	NoValuePseudo = "AWS::NoValue"
	// RegionPseudo resolves to the deployment region.
	RegionPseudo = "AWS::Region"
)

// ErrMissingValue reports a substitution variable without a value.
var ErrMissingValue = errors.New("missing value")

// Ref builds {"Ref": name}.
func Ref(name string) map[string]any {
	return map[string]any{"Ref": name}
}

// NoValue builds {"Ref": "AWS::NoValue"}.
func NoValue() map[string]any {
	return Ref(NoValuePseudo)
}

// GetAtt builds {"Fn::GetAtt": [logicalID, attribute]}.
func GetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{logicalID, attribute}}
}

// ImportValue builds {"Fn::ImportValue": name}.
func ImportValue(name string) map[string]any {
	return map[string]any{"Fn::ImportValue": name}
}

// SubString builds the short form {"Fn::Sub": template}, which only
// substitutes pseudo parameters and logical ids of the same template.
func SubString(template string) map[string]any {
	return map[string]any{"Fn::Sub": template}
}

// Sub resolves template against vars.
//
// A template that is exactly "${Name}" with one ordinary value collapses to the
// value itself, or to a Ref when the value names a pseudo parameter. Values
// prefixed with "import:" become Fn::ImportValue. Everything else is emitted
// as {"Fn::Sub": [template, vars]}.
func Sub(template string, vars map[string]string) (any, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if vars[name] == "" {
			return nil, fmt.Errorf("%w: %s in %q", ErrMissingValue, name, template)
		}
	}

	if len(names) == 1 && template == placeholder(names[0]) {
		val := vars[names[0]]
		if strings.HasPrefix(val, pseudoPrefix) {
			return Ref(val), nil
		}
		if !strings.HasPrefix(val, importPrefix) {
			return val, nil
		}
	}

	subbed := make(map[string]any, len(vars))
	for _, name := range names {
		val := vars[name]
		if rest, ok := strings.CutPrefix(val, importPrefix); ok {
			subbed[name] = ImportValue(rest)
			continue
		}
		subbed[name] = val
	}
	return map[string]any{"Fn::Sub": []any{template, subbed}}, nil
}

// Value resolves a single named value, shorthand for Sub("${name}", ...).
func Value(name, val string) (any, error) {
	return Sub(placeholder(name), map[string]string{name: val})
}

// OptionalValue resolves val like Value, or yields NoValue when val is empty.
func OptionalValue(name, val string) any {
	if val == "" {
		return NoValue()
	}
	resolved, err := Value(name, val)
	if err != nil {
		return NoValue()
	}
	return resolved
}

func placeholder(name string) string {
	return "${" + name + "}"
}
