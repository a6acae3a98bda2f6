// Where: pipegen/internal/generator/helpers_test.go
// What: Shared fixtures for generator tests.
package generator

import (
	"testing"

	"github.com/poruru-code/pipegen/internal/config"
)

// baseConfig mirrors what config.Parse returns for a one-source, one-action document.
func baseConfig() *config.Config {
	return &config.Config{
		Settings: config.GlobalSettings{
			ArtifactBucket: "my-bucket",
			Build: config.BuildSettings{
				ComputeType: config.DefaultComputeType,
				Image:       config.DefaultImage,
				LogGroup:    config.LogGroupSettings{Create: true},
			},
		},
		Sources: []config.Source{{
			Name:       "Source",
			Kind:       config.SourceCodeCommit,
			Repository: "my-repo",
			Branch:     "main",
		}},
		Stages: []config.Stage{{
			Name:    "Build",
			Enabled: true,
			Actions: []config.Action{newAction("Build")},
		}},
	}
}

func newAction(name string) config.Action {
	return config.Action{
		Name:           name,
		Category:       config.CategoryBuild,
		Provider:       config.ProviderCodeBuild,
		BuildSpec:      "buildspecs/build.yml",
		ComputeType:    config.DefaultComputeType,
		Image:          config.DefaultImage,
		Environment:    map[string]string{},
		InputArtifacts: []string{},
	}
}

func mustParse(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(content))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func policyStatements(t *testing.T, resources Resources, policyID string) []Statement {
	t.Helper()
	policy, ok := resources[policyID]
	if !ok {
		t.Fatalf("policy %s missing", policyID)
	}
	doc, ok := policy.Properties["PolicyDocument"].(PolicyDocument)
	if !ok {
		t.Fatalf("unexpected policy document type %T", policy.Properties["PolicyDocument"])
	}
	return doc.Statement
}
