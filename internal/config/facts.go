// Where: pipegen/internal/config/facts.go
// What: Facts read from a coarsely validated document.
// Why: Parameterize the strict schema and the defaults with document-wide values.
package config

import "github.com/poruru-code/pipegen/internal/domain/value"

// Facts are the document-wide values the strict pass depends on.
type Facts struct {
	// ArtifactNames lists every source and action name in declaration order.
	ArtifactNames      []string
	DefaultComputeType string
	DefaultImage       string
	LogGroup           LogGroupFacts
}

type LogGroupFacts struct {
	Enabled bool
	Create  bool
}

// DeriveFacts reads facts from doc. Missing sections fall back to the
// built-in defaults; doc is not modified.
func DeriveFacts(doc map[string]any) Facts {
	settings := value.AsMap(doc["config"])
	build := value.AsMap(settings["codebuild"])
	logGroup := value.AsMap(build["log_group"])

	facts := Facts{
		DefaultComputeType: value.AsStringDefault(build["compute_type"], DefaultComputeType),
		DefaultImage:       value.AsStringDefault(build["image"], DefaultImage),
		LogGroup: LogGroupFacts{
			Enabled: value.AsBoolDefault(logGroup["enabled"], false),
			Create:  value.AsBoolDefault(logGroup["create"], true),
		},
	}

	seen := map[string]struct{}{}
	addName := func(entry any) {
		name := value.AsString(value.AsMap(entry)["name"])
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		facts.ArtifactNames = append(facts.ArtifactNames, name)
	}
	for _, source := range value.AsSlice(doc["sources"]) {
		addName(source)
	}
	for _, stage := range value.AsSlice(doc["stages"]) {
		for _, action := range value.AsSlice(value.AsMap(stage)["actions"]) {
			addName(action)
		}
	}
	return facts
}
