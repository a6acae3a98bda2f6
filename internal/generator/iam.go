// Where: pipegen/internal/generator/iam.go
// What: IAM roles and managed policies for CodeBuild, CodePipeline, and event rules.
// Why: Each service gets a least-privilege role derived from the configuration.
package generator

import (
	"fmt"
	"sort"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
	"github.com/poruru-code/pipegen/internal/domain/ecr"
)

const policyVersion = "2012-10-17"

var (
	s3BucketActions = []string{
		"s3:GetObject*",
		"s3:GetBucket*",
		"s3:List*",
		"s3:DeleteObject*",
		"s3:PutObject*",
		"s3:Abort*",
	}
	kmsKeyActions = []string{
		"kms:Decrypt",
		"kms:DescribeKey",
		"kms:Encrypt",
		"kms:GenerateDataKey*",
		"kms:ReEncrypt*",
	}
	pipelineBuildActions = []string{
		"codebuild:BatchGetBuilds",
		"codebuild:StartBuild",
		"codebuild:StopBuild",
	}
	codeCommitActions = []string{
		"codecommit:GetBranch",
		"codecommit:GetCommit",
		"codecommit:GetUploadArchiveStatus",
		"codecommit:UploadArchive",
		"codecommit:GitPull",
	}
)

// Statement is one IAM policy statement.
type Statement struct {
	Effect   string   `json:"Effect" yaml:"Effect"`
	Action   []string `json:"Action" yaml:"Action"`
	Resource []any    `json:"Resource" yaml:"Resource"`
}

// PolicyDocument is the body of a managed policy.
type PolicyDocument struct {
	Version   string      `json:"Version" yaml:"Version"`
	Statement []Statement `json:"Statement" yaml:"Statement"`
}

func allow(actions []string, resources ...any) Statement {
	return Statement{
		Effect:   config.EffectAllow,
		Action:   append([]string(nil), actions...),
		Resource: resources,
	}
}

// BuildRole returns the CodeBuild service role and its policy.
func BuildRole(cfg *config.Config) (Resources, error) {
	settings := cfg.Settings
	var statements []Statement

	if settings.Build.LogGroup.Enabled {
		arn, err := logGroupArn(cfg)
		if err != nil {
			return nil, fmt.Errorf("build role log group: %w", err)
		}
		statements = append(statements, allow([]string{"logs:CreateLogStream", "logs:PutLogEvents"}, arn))
	}

	if imageArns := ecr.ARNs(cfg.Images()); len(imageArns) > 0 {
		resources := make([]any, 0, len(imageArns))
		for _, arn := range imageArns {
			resources = append(resources, arn)
		}
		statements = append(statements,
			allow([]string{"ecr:GetAuthorizationToken"}, "*"),
			allow([]string{"ecr:BatchGetImage", "ecr:GetDownloadUrlForLayer"}, resources...),
		)
	}

	storage, err := storageStatements(settings)
	if err != nil {
		return nil, fmt.Errorf("build role: %w", err)
	}
	statements = append(statements, storage...)

	for _, extra := range settings.ExtraPermissions {
		resources := make([]any, 0, len(extra.Resource))
		for _, resource := range extra.Resource {
			resources = append(resources, resource)
		}
		statements = append(statements, Statement{
			Effect:   extra.Effect,
			Action:   append([]string(nil), extra.Action...),
			Resource: resources,
		})
	}

	return roleWithPolicy(BuildRoleLogicalID, BuildPolicyLogicalID, "codebuild.amazonaws.com", statements), nil
}

// PipelineRole returns the CodePipeline service role and its policy.
// projectIDs are the logical ids of the build projects the pipeline starts.
func PipelineRole(cfg *config.Config, projectIDs []string) (Resources, error) {
	statements, err := storageStatements(cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("pipeline role: %w", err)
	}

	if len(projectIDs) > 0 {
		projects := make([]any, 0, len(projectIDs))
		for _, id := range projectIDs {
			projects = append(projects, cfn.GetAtt(id, "Arn"))
		}
		statements = append(statements, allow(pipelineBuildActions, projects...))
	}

	var repositories []any
	connections := map[string]struct{}{}
	for _, source := range cfg.Sources {
		switch source.Kind {
		case config.SourceCodeCommit:
			arn, err := cfn.Sub(
				"arn:aws:codecommit:${AWS::Region}:${AWS::AccountId}:${RepositoryName}",
				map[string]string{"RepositoryName": source.Repository},
			)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", source.Name, err)
			}
			repositories = append(repositories, arn)
		case config.SourceCodeStarConnection:
			if source.ConnectionArn == "" {
				return nil, fmt.Errorf("source %s uses a CodeStar connection without connection_arn: %w",
					source.Name, cfn.ErrMissingValue)
			}
			connections[source.ConnectionArn] = struct{}{}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source.Kind)
		}
	}

	if len(repositories) > 0 {
		statements = append(statements, allow(codeCommitActions, repositories...))
	}
	if len(connections) > 0 {
		arns := make([]string, 0, len(connections))
		for arn := range connections {
			arns = append(arns, arn)
		}
		sort.Strings(arns)
		resources := make([]any, 0, len(arns))
		for _, arn := range arns {
			resolved, err := cfn.Value("ConnectionArn", arn)
			if err != nil {
				return nil, err
			}
			resources = append(resources, resolved)
		}
		statements = append(statements, allow([]string{"codestar-connections:UseConnection"}, resources...))
	}

	return roleWithPolicy(PipelineRoleLogicalID, PipelinePolicyLogicalID, "codepipeline.amazonaws.com", statements), nil
}

// EventRole returns the role assumed by event rules to start the pipeline.
func EventRole() Resources {
	pipelineArn := cfn.SubString("arn:aws:codepipeline:${AWS::Region}:${AWS::AccountId}:${" + PipelineLogicalID + "}")
	statements := []Statement{allow([]string{"codepipeline:StartPipelineExecution"}, pipelineArn)}
	return roleWithPolicy(EventsRoleLogicalID, EventsPolicyLogicalID, "events.amazonaws.com", statements)
}

// storageStatements grant access to the artifact bucket and, when
// configured, the artifact encryption key.
func storageStatements(settings config.GlobalSettings) ([]Statement, error) {
	vars := map[string]string{"BucketName": settings.ArtifactBucket}
	bucket, err := cfn.Sub("arn:aws:s3:::${BucketName}", vars)
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	objects, err := cfn.Sub("arn:aws:s3:::${BucketName}/*", vars)
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	statements := []Statement{allow(s3BucketActions, bucket, objects)}

	if settings.EncryptionKeyArn != "" {
		key, err := cfn.Value("KmsKeyArn", settings.EncryptionKeyArn)
		if err != nil {
			return nil, err
		}
		statements = append(statements, allow(kmsKeyActions, key))
	}
	return statements, nil
}

func roleWithPolicy(roleID, policyID, service string, statements []Statement) Resources {
	return Resources{
		roleID: {
			Type: "AWS::IAM::Role",
			Properties: map[string]any{
				"AssumeRolePolicyDocument": map[string]any{
					"Version": policyVersion,
					"Statement": []any{
						map[string]any{
							"Effect":    config.EffectAllow,
							"Principal": map[string]any{"Service": service},
							"Action":    "sts:AssumeRole",
						},
					},
				},
				"ManagedPolicyArns": []any{cfn.Ref(policyID)},
			},
		},
		policyID: {
			Type: "AWS::IAM::ManagedPolicy",
			Properties: map[string]any{
				"PolicyDocument": PolicyDocument{Version: policyVersion, Statement: statements},
			},
		},
	}
}
