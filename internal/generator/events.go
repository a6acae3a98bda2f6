// Where: pipegen/internal/generator/events.go
// What: EventBridge rules that start the pipeline on CodeCommit pushes.
package generator

import (
	"fmt"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

// EventSources returns the CodeCommit sources that trigger the pipeline
// through events rather than polling.
func EventSources(cfg *config.Config) []config.Source {
	var out []config.Source
	for _, source := range cfg.Sources {
		if source.Kind == config.SourceCodeCommit && source.DetectChangesViaEvent {
			out = append(out, source)
		}
	}
	return out
}

// EventRules returns one push rule per event-driven CodeCommit source.
func EventRules(cfg *config.Config) (Resources, error) {
	out := Resources{}
	for _, source := range EventSources(cfg) {
		id := PushEventRuleLogicalID(source.Name)
		if _, ok := out[id]; ok {
			return nil, fmt.Errorf("%w: %s (source %s)", ErrDuplicateLogicalID, id, source.Name)
		}
		rule, err := pushEventRule(source)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		out[id] = rule
	}
	return out, nil
}

func pushEventRule(source config.Source) (Resource, error) {
	repository, err := cfn.Sub(
		"arn:aws:codecommit:${AWS::Region}:${AWS::AccountId}:${RepositoryName}",
		map[string]string{"RepositoryName": source.Repository},
	)
	if err != nil {
		return Resource{}, err
	}
	branch, err := cfn.Value("BranchName", source.Branch)
	if err != nil {
		return Resource{}, err
	}

	return Resource{
		Type: "AWS::Events::Rule",
		Properties: map[string]any{
			"EventPattern": map[string]any{
				"source":      []any{"aws.codecommit"},
				"detail-type": []any{"CodeCommit Repository State Change"},
				"resources":   []any{repository},
				"detail": map[string]any{
					"event":         []any{"referenceCreated", "referenceUpdated"},
					"referenceType": []any{"branch"},
					"referenceName": []any{branch},
				},
			},
			"State": "ENABLED",
			"Targets": []any{
				map[string]any{
					"Arn":     cfn.SubString("arn:aws:codepipeline:${AWS::Region}:${AWS::AccountId}:${" + PipelineLogicalID + "}"),
					"Id":      PipelineLogicalID,
					"RoleArn": cfn.GetAtt(EventsRoleLogicalID, "Arn"),
				},
			},
		},
	}, nil
}
