// Where: pipegen/internal/app/pipeline.go
// What: Shared load and generate steps for dump and deploy.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/value"
	"github.com/poruru-code/pipegen/internal/generator"
)

// loadConfig reads, renders, and validates the configuration selected by input.
func (s session) loadConfig(input ConfigInput) (*config.Config, error) {
	vars, err := value.PairsToMap(input.Vars)
	if err != nil {
		return nil, fmt.Errorf("--vars: %w", err)
	}
	readFile := s.deps.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	content, err := readFile(input.Config)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Load(string(content), vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input.Config, err)
	}
	s.logger.Debug().
		Str("config", input.Config).
		Int("sources", len(cfg.Sources)).
		Int("stages", len(cfg.EnabledStages())).
		Int("actions", len(cfg.BuildActions())).
		Msg("config loaded")
	return cfg, nil
}

// buildTemplate loads the configuration and generates its template document.
func (s session) buildTemplate(input ConfigInput) (*config.Config, generator.Document, error) {
	cfg, err := s.loadConfig(input)
	if err != nil {
		return nil, generator.Document{}, err
	}
	resources, err := generator.Generate(cfg)
	if err != nil {
		return nil, generator.Document{}, fmt.Errorf("generate template: %w", err)
	}
	doc, err := generator.Template(cfg, resources)
	if err != nil {
		return nil, generator.Document{}, fmt.Errorf("generate template: %w", err)
	}
	s.logger.Debug().Int("resources", len(resources)).Msg("template generated")
	return cfg, doc, nil
}

// literalBucket returns the artifact bucket when it names a bucket directly
// rather than through an import or a pseudo parameter.
func literalBucket(cfg *config.Config) string {
	bucket := cfg.Settings.ArtifactBucket
	if strings.HasPrefix(bucket, "import:") || strings.HasPrefix(bucket, "AWS::") || strings.Contains(bucket, "${") {
		return ""
	}
	return bucket
}
