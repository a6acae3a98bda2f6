// Where: pipegen/internal/generator/codepipeline.go
// What: The CodePipeline resource with its source and build stages.
package generator

import (
	"fmt"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

const (
	sourceStageName = "Source"
	actionVersion   = "1"
)

// Pipeline builds the pipeline: a Source stage with one action per source,
// then one stage per enabled configuration stage.
func Pipeline(cfg *config.Config) (Resources, error) {
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}
	sourceArtifacts := make([]string, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		if source.Name == "" {
			return nil, ErrUnnamedSource
		}
		sourceArtifacts = append(sourceArtifacts, Sanitize(source.Name))
	}

	sourceActions := make([]any, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		action, err := sourceAction(source)
		if err != nil {
			return nil, err
		}
		sourceActions = append(sourceActions, action)
	}
	stages := []any{map[string]any{"Name": sourceStageName, "Actions": sourceActions}}

	for _, stage := range cfg.EnabledStages() {
		actions := make([]any, 0, len(stage.Actions))
		for _, action := range stage.Actions {
			actions = append(actions, buildAction(action, sourceArtifacts))
		}
		stages = append(stages, map[string]any{"Name": stage.Name, "Actions": actions})
	}

	bucket, err := cfn.Value("BucketName", cfg.Settings.ArtifactBucket)
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	var encryption any = cfn.NoValue()
	if cfg.Settings.EncryptionKeyArn != "" {
		encryption = map[string]any{
			"Id":   cfn.OptionalValue("KmsKeyArn", cfg.Settings.EncryptionKeyArn),
			"Type": "KMS",
		}
	}

	return Resources{
		PipelineLogicalID: {
			Type: "AWS::CodePipeline::Pipeline",
			Properties: map[string]any{
				"ArtifactStore": map[string]any{
					"EncryptionKey": encryption,
					"Location":      bucket,
					"Type":          "S3",
				},
				"RestartExecutionOnUpdate": cfg.Settings.Pipeline.RestartOnUpdate,
				"RoleArn":                  cfn.GetAtt(PipelineRoleLogicalID, "Arn"),
				"Stages":                   stages,
			},
		},
	}, nil
}

func sourceAction(source config.Source) (map[string]any, error) {
	output := []any{map[string]any{"Name": Sanitize(source.Name)}}
	branch, err := cfn.Value("BranchName", source.Branch)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	switch source.Kind {
	case config.SourceCodeCommit:
		repository, err := cfn.Value("RepositoryName", source.Repository)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		return map[string]any{
			"Name":         source.Name,
			"ActionTypeId": actionType("Source", "CodeCommit"),
			"Configuration": map[string]any{
				"RepositoryName":       repository,
				"BranchName":           branch,
				"PollForSourceChanges": source.PollForChanges,
			},
			"OutputArtifacts": output,
		}, nil
	case config.SourceCodeStarConnection:
		if source.ConnectionArn == "" {
			return nil, fmt.Errorf("source %s: connection_arn: %w", source.Name, cfn.ErrMissingValue)
		}
		connection, err := cfn.Value("ConnectionArn", source.ConnectionArn)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		repository, err := cfn.Value("FullRepositoryId", source.Repository)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		return map[string]any{
			"Name":         source.Name,
			"ActionTypeId": actionType("Source", "CodeStarSourceConnection"),
			"Configuration": map[string]any{
				"ConnectionArn":    connection,
				"FullRepositoryId": repository,
				"BranchName":       branch,
				"DetectChanges":    source.DetectChangesViaEvent,
			},
			"OutputArtifacts": output,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source.Kind)
	}
}

func buildAction(action config.Action, sourceArtifacts []string) map[string]any {
	inputs := make([]any, 0, len(sourceArtifacts)+len(action.InputArtifacts))
	for _, name := range sourceArtifacts {
		inputs = append(inputs, map[string]any{"Name": name})
	}
	for _, name := range action.InputArtifacts {
		inputs = append(inputs, map[string]any{"Name": Sanitize(name)})
	}

	return map[string]any{
		"Name":         action.Name,
		"ActionTypeId": actionType(action.Category, config.ProviderCodeBuild),
		"Configuration": map[string]any{
			"ProjectName":   cfn.Ref(ProjectLogicalID(action.Name)),
			"PrimarySource": sourceArtifacts[0],
		},
		"InputArtifacts":  inputs,
		"OutputArtifacts": []any{map[string]any{"Name": Sanitize(action.Name)}},
		"RunOrder":        1,
	}
}

func actionType(category, provider string) map[string]any {
	return map[string]any{
		"Category": category,
		"Owner":    "AWS",
		"Provider": provider,
		"Version":  actionVersion,
	}
}
