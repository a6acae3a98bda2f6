// Where: pipegen/internal/config/load.go
// What: Configuration loading: render, validate in two passes, default, decode.
// Why: Generators must only ever see a complete and consistent configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

// Load renders source with vars and parses the result.
func Load(source string, vars map[string]string) (*Config, error) {
	rendered, err := Render(source, vars)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(rendered))
}

// Parse validates a rendered YAML document and returns the defaulted configuration.
func Parse(content []byte) (*Config, error) {
	jsonData, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(jsonData, &decoded); err != nil {
		return nil, fmt.Errorf("decode config document: %w", err)
	}
	doc, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ValidationError{Path: "/", Err: ErrSchema, Detail: "document must be a mapping"}
	}

	canonicalizeEnvironment(doc)

	if err := CoarseSchema().Validate(doc); err != nil {
		return nil, schemaError(err)
	}
	facts := DeriveFacts(doc)
	if err := DeriveStrictSchema(facts).Validate(doc); err != nil {
		return nil, schemaError(err)
	}

	applyDefaults(doc, facts)

	cfg, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if err := checkNames(cfg); err != nil {
		return nil, err
	}
	if err := checkInputArtifacts(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(doc map[string]any) (*Config, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode config document: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &ValidationError{Err: ErrSchema, Detail: err.Error()}
	}
	return &cfg, nil
}

// checkNames enforces that source and action names are unique across the
// whole document once sanitised, since both become artifact names and
// output keys in that form. Stage names are unique among stages.
func checkNames(cfg *Config) error {
	artifacts := map[string]claimedName{}
	claim := func(name, path string) error {
		key := cfn.Sanitize(name)
		if key == "" {
			return &ValidationError{
				Path:   path,
				Err:    ErrSchema,
				Detail: fmt.Sprintf("name %q must contain a letter or digit", name),
			}
		}
		if first, ok := artifacts[key]; ok {
			detail := fmt.Sprintf("%q already used at %s", name, first.path)
			if first.name != name {
				detail = fmt.Sprintf("%q collides with %q at %s as %q", name, first.name, first.path, key)
			}
			return &ValidationError{Path: path, Err: ErrDuplicateName, Detail: detail}
		}
		artifacts[key] = claimedName{name: name, path: path}
		return nil
	}
	for i, source := range cfg.Sources {
		if err := claim(source.Name, fmt.Sprintf("/sources/%d/name", i)); err != nil {
			return err
		}
	}
	stages := map[string]int{}
	for i, stage := range cfg.Stages {
		if first, ok := stages[stage.Name]; ok {
			return &ValidationError{
				Path:   fmt.Sprintf("/stages/%d/name", i),
				Err:    ErrDuplicateName,
				Detail: fmt.Sprintf("stage %q already declared at /stages/%d", stage.Name, first),
			}
		}
		stages[stage.Name] = i
		for j, action := range stage.Actions {
			if err := claim(action.Name, fmt.Sprintf("/stages/%d/actions/%d/name", i, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

type claimedName struct {
	name string
	path string
}

// checkInputArtifacts narrows the document-wide artifact enum per action:
// an enabled action may consume sources and the outputs of other enabled
// actions, never its own output.
func checkInputArtifacts(cfg *Config) error {
	produced := map[string]bool{}
	for _, source := range cfg.Sources {
		produced[source.Name] = true
	}
	for _, stage := range cfg.Stages {
		if !stage.Enabled {
			continue
		}
		for _, action := range stage.Actions {
			produced[action.Name] = true
		}
	}
	for i, stage := range cfg.Stages {
		if !stage.Enabled {
			continue
		}
		for j, action := range stage.Actions {
			for k, input := range action.InputArtifacts {
				var detail string
				switch {
				case input == action.Name:
					detail = fmt.Sprintf("action %q cannot consume its own output", action.Name)
				case !produced[input]:
					detail = fmt.Sprintf("%q is not produced by a source or an enabled action", input)
				default:
					continue
				}
				return &ValidationError{
					Path:   fmt.Sprintf("/stages/%d/actions/%d/input_artifacts/%d", i, j, k),
					Err:    ErrUnknownArtifact,
					Detail: detail,
				}
			}
		}
	}
	return nil
}
