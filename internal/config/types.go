// Where: pipegen/internal/config/types.go
// What: Typed pipeline configuration model.
// Why: Generators read a validated, fully defaulted tree instead of raw maps.
package config

const (
	// SourceCodeCommit is a CodeCommit repository source.
	SourceCodeCommit = "CodeCommit"
	// SourceCodeStarConnection is a repository reached through a CodeStar connection.
	SourceCodeStarConnection = "CodeStarConnection"

	ProviderCodeBuild = "CodeBuild"

	CategoryBuild  = "Build"
	CategoryTest   = "Test"
	CategoryDeploy = "Deploy"

	EffectAllow = "Allow"
	EffectDeny  = "Deny"

	DefaultComputeType = "BUILD_GENERAL1_SMALL"
	DefaultImage       = "aws/codebuild/amazonlinux2-x86_64-standard:3.0"
)

// Config is the root of a pipeline configuration. It is immutable once
// returned by Parse.
type Config struct {
	Settings GlobalSettings `json:"config" yaml:"config" jsonschema:"required"`
	Sources  []Source       `json:"sources" yaml:"sources" jsonschema:"required,minItems=1"`
	Stages   []Stage        `json:"stages" yaml:"stages" jsonschema:"required,minItems=1"`
}

// GlobalSettings holds values shared by every generated resource.
type GlobalSettings struct {
	ArtifactBucket   string                `json:"s3_bucket" yaml:"s3_bucket" jsonschema:"required,description=Artifact bucket name; import:<Export> and AWS:: values are resolved"`
	EncryptionKeyArn string                `json:"kms_key_arn,omitempty" yaml:"kms_key_arn,omitempty"`
	Pipeline         PipelineSettings      `json:"codepipeline" yaml:"codepipeline"`
	Build            BuildSettings         `json:"codebuild" yaml:"codebuild"`
	ExtraPermissions []PermissionStatement `json:"iam" yaml:"iam"`
}

type PipelineSettings struct {
	RestartOnUpdate bool `json:"restart_execution_on_update" yaml:"restart_execution_on_update" jsonschema:"default=false"`
}

// BuildSettings carries CodeBuild defaults applied to every action.
type BuildSettings struct {
	ComputeType string           `json:"compute_type" yaml:"compute_type" jsonschema:"default=BUILD_GENERAL1_SMALL"`
	Image       string           `json:"image" yaml:"image" jsonschema:"default=aws/codebuild/amazonlinux2-x86_64-standard:3.0"`
	LogGroup    LogGroupSettings `json:"log_group" yaml:"log_group"`
}

// LogGroupSettings controls CloudWatch Logs for build projects. Name is
// required when the group is enabled but managed outside the stack.
type LogGroupSettings struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" jsonschema:"default=false"`
	Create        bool   `json:"create" yaml:"create" jsonschema:"default=true"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	RetentionDays *int   `json:"retention,omitempty" yaml:"retention,omitempty" jsonschema:"minimum=1"`
}

type Source struct {
	Name                  string `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Kind                  string `json:"from" yaml:"from" jsonschema:"required,enum=CodeCommit,enum=CodeStarConnection"`
	Repository            string `json:"repository" yaml:"repository" jsonschema:"required"`
	Branch                string `json:"branch" yaml:"branch" jsonschema:"required"`
	PollForChanges        bool   `json:"poll_for_source_changes" yaml:"poll_for_source_changes" jsonschema:"default=false"`
	DetectChangesViaEvent bool   `json:"event_for_source_changes" yaml:"event_for_source_changes" jsonschema:"default=true"`
	ConnectionArn         string `json:"connection_arn,omitempty" yaml:"connection_arn,omitempty"`
}

type Stage struct {
	Name    string   `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Enabled bool     `json:"enabled" yaml:"enabled" jsonschema:"default=true"`
	Actions []Action `json:"actions" yaml:"actions" jsonschema:"required,minItems=1"`
}

// Action is one CodeBuild action. Its name doubles as the output artifact
// name and the build project logical id suffix.
type Action struct {
	Name           string            `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Category       string            `json:"category" yaml:"category" jsonschema:"enum=Build,enum=Test,enum=Deploy,default=Build"`
	Provider       string            `json:"provider" yaml:"provider" jsonschema:"enum=CodeBuild,default=CodeBuild"`
	BuildSpec      string            `json:"buildspec,omitempty" yaml:"buildspec,omitempty"`
	Commands       []string          `json:"commands,omitempty" yaml:"commands,omitempty"`
	Artifacts      []string          `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	ComputeType    string            `json:"compute_type" yaml:"compute_type"`
	Image          string            `json:"image" yaml:"image"`
	Environment    map[string]string `json:"environment" yaml:"environment"`
	InputArtifacts []string          `json:"input_artifacts" yaml:"input_artifacts"`
}

// PermissionStatement is an extra IAM statement appended to the build role.
type PermissionStatement struct {
	Effect   string   `json:"Effect" yaml:"Effect" jsonschema:"enum=Allow,enum=Deny,default=Allow"`
	Action   []string `json:"Action" yaml:"Action" jsonschema:"required,minItems=1"`
	Resource []string `json:"Resource" yaml:"Resource" jsonschema:"required,minItems=1"`
}

// BuildActions returns the actions of enabled stages in declaration order.
func (c *Config) BuildActions() []Action {
	var out []Action
	for _, stage := range c.Stages {
		if !stage.Enabled {
			continue
		}
		out = append(out, stage.Actions...)
	}
	return out
}

// EnabledStages returns the stages that appear in the pipeline.
func (c *Config) EnabledStages() []Stage {
	var out []Stage
	for _, stage := range c.Stages {
		if stage.Enabled {
			out = append(out, stage)
		}
	}
	return out
}

// Images returns the distinct images used by enabled actions, in first-use order.
func (c *Config) Images() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, action := range c.BuildActions() {
		if _, ok := seen[action.Image]; ok {
			continue
		}
		seen[action.Image] = struct{}{}
		out = append(out, action.Image)
	}
	return out
}
