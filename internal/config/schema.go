// Where: pipegen/internal/config/schema.go
// What: JSON schemas for the two validation passes.
// Why: The strict schema depends on facts only known after a coarse read of the document.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is an uncompiled JSON schema document.
type Schema struct {
	name string
	doc  map[string]any
}

// Document returns the schema as a JSON-compatible tree.
func (s Schema) Document() map[string]any {
	return s.doc
}

// Validate compiles the schema and validates instance against it.
func (s Schema) Validate(instance any) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	return compiled.Validate(instance)
}

func (s Schema) compile() (*jsonschema.Schema, error) {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", s.name, err)
	}
	resource := s.name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load %s schema: %w", s.name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", s.name, err)
	}
	return compiled, nil
}

// CoarseSchema only checks the sections that DeriveFacts reads.
func CoarseSchema() Schema {
	logGroup := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"enabled": boolean(),
			"create":  boolean(),
		},
	}
	codebuild := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"compute_type": str(),
			"image":        str(),
			"log_group":    logGroup,
		},
	}
	named := map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": str()},
	}
	return Schema{name: "coarse", doc: map[string]any{
		"type":     "object",
		"required": []string{"config", "sources", "stages"},
		"properties": map[string]any{
			"config": map[string]any{
				"type":     "object",
				"required": []string{"s3_bucket"},
				"properties": map[string]any{
					"codebuild": codebuild,
				},
			},
			"sources": map[string]any{"type": "array", "items": named},
			"stages": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"actions": map[string]any{"type": "array", "items": named},
					},
				},
			},
		},
	}}
}

// DeriveStrictSchema builds the full schema for a document described by facts.
func DeriveStrictSchema(facts Facts) Schema {
	logGroupRequired := []string{}
	if facts.LogGroup.Enabled && !facts.LogGroup.Create {
		logGroupRequired = append(logGroupRequired, "name")
	}

	artifactRef := str()
	if len(facts.ArtifactNames) > 0 {
		artifactRef = map[string]any{"type": "string", "enum": facts.ArtifactNames}
	}

	settings := object(map[string]any{
		"s3_bucket":   nonEmpty(),
		"kms_key_arn": nonEmpty(),
		"codepipeline": object(map[string]any{
			"restart_execution_on_update": boolean(),
		}),
		"codebuild": object(map[string]any{
			"compute_type": nonEmpty(),
			"image":        nonEmpty(),
			"log_group": object(map[string]any{
				"enabled":   boolean(),
				"create":    boolean(),
				"name":      nonEmpty(),
				"retention": map[string]any{"type": "integer", "minimum": 1},
			}, logGroupRequired...),
		}),
		"iam": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"Effect":   enum(EffectAllow, EffectDeny),
				"Action":   stringList(1),
				"Resource": stringList(1),
			}, "Action", "Resource"),
		},
	}, "s3_bucket")

	source := object(map[string]any{
		"name":                     nonEmpty(),
		"from":                     enum(SourceCodeCommit, SourceCodeStarConnection),
		"repository":               nonEmpty(),
		"branch":                   nonEmpty(),
		"poll_for_source_changes":  boolean(),
		"event_for_source_changes": boolean(),
		"connection_arn":           nonEmpty(),
	}, "name", "from", "repository", "branch")
	source["if"] = map[string]any{
		"required":   []string{"from"},
		"properties": map[string]any{"from": map[string]any{"const": SourceCodeStarConnection}},
	}
	source["then"] = map[string]any{"required": []string{"connection_arn"}}

	action := object(map[string]any{
		"name":         nonEmpty(),
		"category":     enum(CategoryBuild, CategoryTest, CategoryDeploy),
		"provider":     enum(ProviderCodeBuild),
		"buildspec":    nonEmpty(),
		"commands":     stringList(1),
		"artifacts":    stringList(1),
		"compute_type": nonEmpty(),
		"image":        nonEmpty(),
		"environment": map[string]any{
			"type":                 "object",
			"additionalProperties": str(),
		},
		"input_artifacts": map[string]any{"type": "array", "items": artifactRef},
	}, "name")
	action["not"] = map[string]any{"required": []string{"buildspec", "commands"}}
	action["dependentRequired"] = map[string]any{"artifacts": []string{"commands"}}

	stage := object(map[string]any{
		"name":    nonEmpty(),
		"enabled": boolean(),
		"actions": map[string]any{"type": "array", "minItems": 1, "items": action},
	}, "name", "actions")

	return Schema{name: "strict", doc: object(map[string]any{
		"config":  settings,
		"sources": map[string]any{"type": "array", "minItems": 1, "items": source},
		"stages":  map[string]any{"type": "array", "minItems": 1, "items": stage},
	}, "config", "sources", "stages")}
}

func object(properties map[string]any, required ...string) map[string]any {
	out := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func str() map[string]any {
	return map[string]any{"type": "string"}
}

func nonEmpty() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func boolean() map[string]any {
	return map[string]any{"type": "boolean"}
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func stringList(minItems int) map[string]any {
	return map[string]any{"type": "array", "minItems": minItems, "items": nonEmpty()}
}
