// Where: pipegen/internal/generator/iam_test.go
// What: Tests for IAM role and policy generation.
package generator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

func bucketResources(bucket string) []any {
	return []any{
		map[string]any{"Fn::Sub": []any{"arn:aws:s3:::${BucketName}", map[string]any{"BucketName": bucket}}},
		map[string]any{"Fn::Sub": []any{"arn:aws:s3:::${BucketName}/*", map[string]any{"BucketName": bucket}}},
	}
}

func TestBuildRoleMinimal(t *testing.T) {
	resources, err := BuildRole(baseConfig())
	if err != nil {
		t.Fatalf("build role: %v", err)
	}
	want := []Statement{{Effect: "Allow", Action: s3BucketActions, Resource: bucketResources("my-bucket")}}
	if diff := cmp.Diff(want, policyStatements(t, resources, BuildPolicyLogicalID)); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}

	role := resources[BuildRoleLogicalID]
	if role.Type != "AWS::IAM::Role" {
		t.Fatalf("unexpected role type %s", role.Type)
	}
	if diff := cmp.Diff([]any{cfn.Ref(BuildPolicyLogicalID)}, role.Properties["ManagedPolicyArns"]); diff != "" {
		t.Fatalf("managed policies mismatch (-want +got):\n%s", diff)
	}
	assume := role.Properties["AssumeRolePolicyDocument"].(map[string]any)
	statement := assume["Statement"].([]any)[0].(map[string]any)
	if diff := cmp.Diff(map[string]any{"Service": "codebuild.amazonaws.com"}, statement["Principal"]); diff != "" {
		t.Fatalf("principal mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRoleStatementOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.Settings.EncryptionKeyArn = "arn:aws:kms:eu-west-1:123456789012:key/abc"
	cfg.Settings.Build.LogGroup = config.LogGroupSettings{Enabled: true, Name: "/builds"}
	cfg.Settings.ExtraPermissions = []config.PermissionStatement{{
		Effect:   "Deny",
		Action:   []string{"s3:DeleteBucket"},
		Resource: []string{"*"},
	}}
	second := newAction("Second")
	second.Image = "123456789012.dkr.ecr.eu-west-1.amazonaws.com/b:1"
	third := newAction("Third")
	third.Image = "123456789012.dkr.ecr.eu-west-1.amazonaws.com/a@sha256:" +
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	cfg.Stages[0].Actions = append(cfg.Stages[0].Actions, second, third)

	resources, err := BuildRole(cfg)
	if err != nil {
		t.Fatalf("build role: %v", err)
	}
	logArn := map[string]any{"Fn::Sub": []any{
		"arn:aws:logs:${AWS::Region}:${AWS::AccountId}:log-group:${LogGroupName}:*",
		map[string]any{"LogGroupName": "/builds"},
	}}
	want := []Statement{
		{Effect: "Allow", Action: []string{"logs:CreateLogStream", "logs:PutLogEvents"}, Resource: []any{logArn}},
		{Effect: "Allow", Action: []string{"ecr:GetAuthorizationToken"}, Resource: []any{"*"}},
		{Effect: "Allow", Action: []string{"ecr:BatchGetImage", "ecr:GetDownloadUrlForLayer"}, Resource: []any{
			"arn:aws:ecr:eu-west-1:123456789012:repository/a",
			"arn:aws:ecr:eu-west-1:123456789012:repository/b",
		}},
		{Effect: "Allow", Action: s3BucketActions, Resource: bucketResources("my-bucket")},
		{Effect: "Allow", Action: kmsKeyActions, Resource: []any{"arn:aws:kms:eu-west-1:123456789012:key/abc"}},
		{Effect: "Deny", Action: []string{"s3:DeleteBucket"}, Resource: []any{"*"}},
	}
	if diff := cmp.Diff(want, policyStatements(t, resources, BuildPolicyLogicalID)); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineRoleSources(t *testing.T) {
	cfg := baseConfig()
	cfg.Sources = append(cfg.Sources,
		config.Source{Name: "B", Kind: config.SourceCodeStarConnection, Repository: "org/b", Branch: "main",
			ConnectionArn: "arn:aws:codestar-connections:eu-west-1:123456789012:connection/zz"},
		config.Source{Name: "A", Kind: config.SourceCodeStarConnection, Repository: "org/a", Branch: "main",
			ConnectionArn: "arn:aws:codestar-connections:eu-west-1:123456789012:connection/aa"},
		config.Source{Name: "C", Kind: config.SourceCodeStarConnection, Repository: "org/c", Branch: "main",
			ConnectionArn: "arn:aws:codestar-connections:eu-west-1:123456789012:connection/aa"},
	)

	resources, err := PipelineRole(cfg, []string{"CodeBuildBuild"})
	if err != nil {
		t.Fatalf("pipeline role: %v", err)
	}
	want := []Statement{
		{Effect: "Allow", Action: s3BucketActions, Resource: bucketResources("my-bucket")},
		{Effect: "Allow", Action: pipelineBuildActions, Resource: []any{cfn.GetAtt("CodeBuildBuild", "Arn")}},
		{Effect: "Allow", Action: codeCommitActions, Resource: []any{map[string]any{"Fn::Sub": []any{
			"arn:aws:codecommit:${AWS::Region}:${AWS::AccountId}:${RepositoryName}",
			map[string]any{"RepositoryName": "my-repo"},
		}}}},
		{Effect: "Allow", Action: []string{"codestar-connections:UseConnection"}, Resource: []any{
			"arn:aws:codestar-connections:eu-west-1:123456789012:connection/aa",
			"arn:aws:codestar-connections:eu-west-1:123456789012:connection/zz",
		}},
	}
	if diff := cmp.Diff(want, policyStatements(t, resources, PipelinePolicyLogicalID)); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineRoleErrors(t *testing.T) {
	t.Run("unsupported source", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Sources[0].Kind = "GitHub"
		if _, err := PipelineRole(cfg, nil); !errors.Is(err, ErrUnsupportedSource) {
			t.Fatalf("expected ErrUnsupportedSource, got %v", err)
		}
	})
	t.Run("connection without arn", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Sources[0].Kind = config.SourceCodeStarConnection
		if _, err := PipelineRole(cfg, nil); !errors.Is(err, cfn.ErrMissingValue) {
			t.Fatalf("expected ErrMissingValue, got %v", err)
		}
	})
}

func TestEventRole(t *testing.T) {
	resources := EventRole()
	want := []Statement{{
		Effect: "Allow",
		Action: []string{"codepipeline:StartPipelineExecution"},
		Resource: []any{cfn.SubString(
			"arn:aws:codepipeline:${AWS::Region}:${AWS::AccountId}:${CodePipeline}",
		)},
	}}
	if diff := cmp.Diff(want, policyStatements(t, resources, EventsPolicyLogicalID)); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}
}
