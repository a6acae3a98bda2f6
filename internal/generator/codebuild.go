// Where: pipegen/internal/generator/codebuild.go
// What: CodeBuild projects, one per build action of an enabled stage.
package generator

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
	"github.com/poruru-code/pipegen/internal/domain/ecr"
)

var regionVariables = []string{"AWS_DEFAULT_REGION", "AWS_REGION"}

// Projects returns a build project for every action of every enabled stage,
// along with their logical ids in declaration order.
func Projects(cfg *config.Config) (Resources, []string, error) {
	out := Resources{}
	var ids []string
	for _, action := range cfg.BuildActions() {
		id := ProjectLogicalID(action.Name)
		if _, ok := out[id]; ok {
			return nil, nil, fmt.Errorf("%w: %s (action %s)", ErrDuplicateLogicalID, id, action.Name)
		}
		project, err := Project(action, cfg.Settings)
		if err != nil {
			return nil, nil, fmt.Errorf("action %s: %w", action.Name, err)
		}
		out[id] = project
		ids = append(ids, id)
	}
	return out, ids, nil
}

// Project builds the AWS::CodeBuild::Project resource for one action.
func Project(action config.Action, settings config.GlobalSettings) (Resource, error) {
	computeType, err := cfn.Value("ComputeType", action.ComputeType)
	if err != nil {
		return Resource{}, err
	}
	image, err := cfn.Value("Image", action.Image)
	if err != nil {
		return Resource{}, err
	}
	variables, err := environmentVariables(action.Environment)
	if err != nil {
		return Resource{}, err
	}
	source, err := projectSource(action)
	if err != nil {
		return Resource{}, err
	}
	logs, err := logsConfig(settings.Build.LogGroup)
	if err != nil {
		return Resource{}, err
	}

	credentials := "CODEBUILD"
	if ecr.IsECR(action.Image) {
		credentials = "SERVICE_ROLE"
	}

	return Resource{
		Type: "AWS::CodeBuild::Project",
		Properties: map[string]any{
			"Artifacts": map[string]any{"Type": "CODEPIPELINE"},
			"Environment": map[string]any{
				"ComputeType":              computeType,
				"Image":                    image,
				"ImagePullCredentialsType": credentials,
				"EnvironmentVariables":     variables,
				"PrivilegedMode":           false,
				"Type":                     "LINUX_CONTAINER",
			},
			"ServiceRole":   cfn.GetAtt(BuildRoleLogicalID, "Arn"),
			"Source":        source,
			"EncryptionKey": cfn.OptionalValue("KmsKeyArn", settings.EncryptionKeyArn),
			"LogsConfig":    logs,
		},
	}, nil
}

func environmentVariables(environment map[string]string) ([]any, error) {
	merged := make(map[string]string, len(environment)+len(regionVariables))
	for name, val := range environment {
		merged[name] = val
	}
	for _, name := range regionVariables {
		if _, ok := merged[name]; !ok {
			merged[name] = cfn.RegionPseudo
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		var resolved any = ""
		if val := merged[name]; val != "" {
			v, err := cfn.Value("Value", val)
			if err != nil {
				return nil, fmt.Errorf("environment %s: %w", name, err)
			}
			resolved = v
		}
		out = append(out, map[string]any{"Name": name, "Value": resolved})
	}
	return out, nil
}

func projectSource(action config.Action) (map[string]any, error) {
	source := map[string]any{"Type": "CODEPIPELINE"}
	switch {
	case action.BuildSpec != "":
		spec, err := cfn.Value("BuildSpec", action.BuildSpec)
		if err != nil {
			return nil, err
		}
		source["BuildSpec"] = spec
	case len(action.Commands) > 0:
		spec, err := InlineBuildSpec(action.Commands, action.Artifacts)
		if err != nil {
			return nil, err
		}
		source["BuildSpec"] = spec
	}
	return source, nil
}

type buildSpecDocument struct {
	Version   float64            `yaml:"version"`
	Phases    buildSpecPhases    `yaml:"phases"`
	Artifacts *buildSpecArtifact `yaml:"artifacts,omitempty"`
}

type buildSpecPhases struct {
	Build buildSpecCommands `yaml:"build"`
}

type buildSpecCommands struct {
	Commands []string `yaml:"commands"`
}

type buildSpecArtifact struct {
	Files []string `yaml:"files"`
}

// InlineBuildSpec renders a version 0.2 buildspec that runs commands in the
// build phase and, when files are given, publishes them as artifacts.
func InlineBuildSpec(commands, files []string) (string, error) {
	doc := buildSpecDocument{
		Version: 0.2,
		Phases:  buildSpecPhases{Build: buildSpecCommands{Commands: commands}},
	}
	if len(files) > 0 {
		doc.Artifacts = &buildSpecArtifact{Files: files}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		_ = encoder.Close()
		return "", fmt.Errorf("render buildspec: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("render buildspec: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func logsConfig(settings config.LogGroupSettings) (map[string]any, error) {
	if !settings.Enabled {
		return map[string]any{
			"CloudWatchLogs": map[string]any{"Status": "DISABLED"},
		}, nil
	}

	var group any = cfn.Ref(LogGroupLogicalID)
	if !settings.Create {
		resolved, err := cfn.Value("GroupName", settings.Name)
		if err != nil {
			return nil, fmt.Errorf("log group: %w", err)
		}
		group = resolved
	}
	return map[string]any{
		"CloudWatchLogs": map[string]any{
			"GroupName": group,
			"Status":    "ENABLED",
		},
	}, nil
}
