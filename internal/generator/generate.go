// Where: pipegen/internal/generator/generate.go
// What: Generator entrypoint assembling the full pipeline template.
// Why: Resources reference each other by fixed logical ids, so they are built in dependency order.
package generator

import (
	"fmt"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

const (
	templateFormatVersion = "2010-09-09"
	templateDescription   = "CodePipeline and CodeBuild resources generated by pipegen"
)

// Generate builds every resource for cfg: log group, build role, build
// projects, pipeline role, pipeline, and the event role and rules when a
// CodeCommit source is event driven.
func Generate(cfg *config.Config) (Resources, error) {
	builder := NewBuilder()

	if logGroup := LogGroup(cfg); logGroup != nil {
		if err := builder.Add(logGroup); err != nil {
			return nil, err
		}
	}

	buildRole, err := BuildRole(cfg)
	if err != nil {
		return nil, err
	}
	if err := builder.Add(buildRole); err != nil {
		return nil, err
	}

	projects, projectIDs, err := Projects(cfg)
	if err != nil {
		return nil, err
	}
	if err := builder.Add(projects); err != nil {
		return nil, err
	}

	pipelineRole, err := PipelineRole(cfg, projectIDs)
	if err != nil {
		return nil, err
	}
	if err := builder.Add(pipelineRole); err != nil {
		return nil, err
	}

	pipeline, err := Pipeline(cfg)
	if err != nil {
		return nil, err
	}
	if err := builder.Add(pipeline); err != nil {
		return nil, err
	}

	if len(EventSources(cfg)) > 0 {
		if err := builder.Add(EventRole()); err != nil {
			return nil, err
		}
		rules, err := EventRules(cfg)
		if err != nil {
			return nil, err
		}
		if err := builder.Add(rules); err != nil {
			return nil, err
		}
	}

	return builder.Resources(), nil
}

// Output is one entry of a template's Outputs section.
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

// Document is a complete CloudFormation template.
type Document struct {
	AWSTemplateFormatVersion string            `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string            `json:"Description" yaml:"Description"`
	Resources                Resources         `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// Template wraps resources into a template with the pipeline name and the
// clone URL of every CodeCommit source as outputs.
func Template(cfg *config.Config, resources Resources) (Document, error) {
	outputs := map[string]Output{}
	if _, ok := resources[PipelineLogicalID]; ok {
		outputs["PipelineName"] = Output{
			Description: "Name of the generated pipeline",
			Value:       cfn.Ref(PipelineLogicalID),
		}
	}
	for _, source := range cfg.Sources {
		if source.Kind != config.SourceCodeCommit {
			continue
		}
		url, err := CodeCommitCloneURL(source)
		if err != nil {
			return Document{}, fmt.Errorf("source %s: %w", source.Name, err)
		}
		outputs[Sanitize(source.Name)+"CloneUrlHttp"] = Output{
			Description: fmt.Sprintf("HTTPS clone URL of the %s repository", source.Name),
			Value:       url,
		}
	}

	return Document{
		AWSTemplateFormatVersion: templateFormatVersion,
		Description:              templateDescription,
		Resources:                resources,
		Outputs:                  outputs,
	}, nil
}

// CodeCommitCloneURL returns the HTTPS git URL of a CodeCommit source.
func CodeCommitCloneURL(source config.Source) (any, error) {
	return cfn.Sub(
		"https://git-codecommit.${AWS::Region}.amazonaws.com/v1/repos/${RepositoryName}",
		map[string]string{"RepositoryName": source.Repository},
	)
}
