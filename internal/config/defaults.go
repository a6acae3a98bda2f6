// Where: pipegen/internal/config/defaults.go
// What: Default values and value canonicalization for configuration documents.
// Why: Defaults are applied once, on the validated document, before typed decoding.
package config

import (
	"fmt"

	"github.com/poruru-code/pipegen/internal/domain/value"
)

func applyDefaults(doc map[string]any, facts Facts) {
	settings := value.AsMap(doc["config"])

	pipeline := ensureMap(settings, "codepipeline")
	value.SetDefault(pipeline, "restart_execution_on_update", false)

	build := ensureMap(settings, "codebuild")
	value.SetDefault(build, "compute_type", facts.DefaultComputeType)
	value.SetDefault(build, "image", facts.DefaultImage)
	logGroup := ensureMap(build, "log_group")
	value.SetDefault(logGroup, "enabled", facts.LogGroup.Enabled)
	value.SetDefault(logGroup, "create", facts.LogGroup.Create)

	value.SetDefault(settings, "iam", []any{})
	for _, statement := range value.AsSlice(settings["iam"]) {
		value.SetDefault(value.AsMap(statement), "Effect", EffectAllow)
	}

	for _, entry := range value.AsSlice(doc["sources"]) {
		source := value.AsMap(entry)
		value.SetDefault(source, "poll_for_source_changes", false)
		value.SetDefault(source, "event_for_source_changes", true)
	}

	for _, entry := range value.AsSlice(doc["stages"]) {
		stage := value.AsMap(entry)
		value.SetDefault(stage, "enabled", true)
		for _, item := range value.AsSlice(stage["actions"]) {
			action := value.AsMap(item)
			value.SetDefault(action, "category", CategoryBuild)
			value.SetDefault(action, "provider", ProviderCodeBuild)
			value.SetDefault(action, "compute_type", facts.DefaultComputeType)
			value.SetDefault(action, "image", facts.DefaultImage)
			value.SetDefault(action, "environment", map[string]any{})
			value.SetDefault(action, "input_artifacts", []any{})
		}
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return nil
	}
	if existing := value.AsMap(parent[key]); existing != nil {
		return existing
	}
	created := map[string]any{}
	parent[key] = created
	return created
}

// canonicalizeEnvironment turns YAML scalars such as 8080 or true into
// strings so build environments always validate as string maps.
func canonicalizeEnvironment(doc map[string]any) {
	for _, entry := range value.AsSlice(doc["stages"]) {
		for _, item := range value.AsSlice(value.AsMap(entry)["actions"]) {
			action := value.AsMap(item)
			variables := value.AsMap(action["environment"])
			if variables == nil {
				continue
			}
			canonical := make(map[string]any, len(variables))
			for key, val := range variables {
				if val == nil {
					canonical[key] = ""
					continue
				}
				canonical[key] = fmt.Sprint(val)
			}
			action["environment"] = canonical
		}
	}
}
