// Where: pipegen/internal/infra/stack/stack_test.go
// What: Tests for stack deployment against a scripted CloudFormation fake.
package stack

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type fakeCloudFormation struct {
	// stacks scripts successive DescribeStacks results; nil means "does not exist".
	// The last entry repeats.
	stacks        []*types.Stack
	describeCalls int
	createErr     error
	updateErr     error
	created       []*cloudformation.CreateStackInput
	updated       []*cloudformation.UpdateStackInput
	deleted       []string
	events        []types.StackEvent
}

func (f *fakeCloudFormation) DescribeStacks(_ context.Context, _ *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	idx := f.describeCalls
	if idx >= len(f.stacks) {
		idx = len(f.stacks) - 1
	}
	f.describeCalls++
	current := f.stacks[idx]
	if current == nil {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id pipeline does not exist"}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{*current}}, nil
}

func (f *fakeCloudFormation) CreateStack(_ context.Context, in *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cloudformation.CreateStackOutput{StackId: aws.String("arn:stack/new")}, nil
}

func (f *fakeCloudFormation) UpdateStack(_ context.Context, in *cloudformation.UpdateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	f.updated = append(f.updated, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &cloudformation.UpdateStackOutput{StackId: aws.String("arn:stack/existing")}, nil
}

func (f *fakeCloudFormation) DeleteStack(_ context.Context, in *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.StackName))
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeCloudFormation) DescribeStackEvents(_ context.Context, _ *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	return &cloudformation.DescribeStackEventsOutput{StackEvents: f.events}, nil
}

type fakeS3 struct {
	bucket string
	key    string
	body   string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func stackIn(status types.StackStatus) *types.Stack {
	return &types.Stack{
		StackName:   aws.String("pipeline"),
		StackId:     aws.String("arn:stack/existing"),
		StackStatus: status,
	}
}

func newTestDeployer(api CloudFormationAPI) *Deployer {
	return &Deployer{
		API:    api,
		Logger: zerolog.Nop(),
		sleep:  func(context.Context, time.Duration) error { return nil },
	}
}

func deployOptions() DeployOptions {
	return DeployOptions{StackName: "pipeline", TemplateBody: "Resources: {}\n"}
}

func TestDeployCreatesMissingStack(t *testing.T) {
	api := &fakeCloudFormation{stacks: []*types.Stack{
		nil,
		stackIn(types.StackStatusCreateInProgress),
		stackIn(types.StackStatusCreateComplete),
	}}
	result, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := Result{StackName: "pipeline", StackID: "arn:stack/new", Operation: OperationCreate, Status: "CREATE_COMPLETE"}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if len(api.created) != 1 {
		t.Fatalf("expected one CreateStack call, got %d", len(api.created))
	}
	in := api.created[0]
	if aws.ToString(in.TemplateBody) != "Resources: {}\n" || in.TemplateURL != nil {
		t.Fatalf("unexpected template source: body=%v url=%v", in.TemplateBody, in.TemplateURL)
	}
	wantCaps := []types.Capability{types.CapabilityCapabilityIam, types.CapabilityCapabilityNamedIam}
	if diff := cmp.Diff(wantCaps, in.Capabilities); diff != "" {
		t.Fatalf("capabilities mismatch (-want +got):\n%s", diff)
	}
}

func TestDeployUpdatesExistingStack(t *testing.T) {
	api := &fakeCloudFormation{stacks: []*types.Stack{
		stackIn(types.StackStatusCreateComplete),
		stackIn(types.StackStatusUpdateInProgress),
		stackIn(types.StackStatusUpdateCompleteCleanupInProgress),
		stackIn(types.StackStatusUpdateComplete),
	}}
	result, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if result.Operation != OperationUpdate || result.Status != "UPDATE_COMPLETE" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(api.updated) != 1 || len(api.created) != 0 {
		t.Fatalf("unexpected calls: updated=%d created=%d", len(api.updated), len(api.created))
	}
}

func TestDeployTreatsNoUpdatesAsUnchanged(t *testing.T) {
	api := &fakeCloudFormation{
		stacks:    []*types.Stack{stackIn(types.StackStatusUpdateComplete)},
		updateErr: &smithy.GenericAPIError{Code: "ValidationError", Message: "No updates are to be performed."},
	}
	result, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	want := Result{StackName: "pipeline", StackID: "arn:stack/existing", Operation: OperationUnchanged, Status: "UPDATE_COMPLETE"}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestDeployRecreatesRolledBackStack(t *testing.T) {
	api := &fakeCloudFormation{stacks: []*types.Stack{
		stackIn(types.StackStatusRollbackComplete),
		stackIn(types.StackStatusDeleteInProgress),
		nil,
		stackIn(types.StackStatusCreateComplete),
	}}
	result, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if result.Operation != OperationRecreate {
		t.Fatalf("operation = %s", result.Operation)
	}
	if diff := cmp.Diff([]string{"pipeline"}, api.deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}
	if len(api.created) != 1 {
		t.Fatalf("expected CreateStack after delete, got %d calls", len(api.created))
	}
}

func TestDeployRejectsBusyStack(t *testing.T) {
	api := &fakeCloudFormation{stacks: []*types.Stack{stackIn(types.StackStatusUpdateInProgress)}}
	_, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if !errors.Is(err, ErrStackBusy) {
		t.Fatalf("expected ErrStackBusy, got %v", err)
	}
}

func TestDeployReportsFailedStatus(t *testing.T) {
	failed := stackIn(types.StackStatusRollbackComplete)
	failed.StackStatusReason = aws.String("The following resource(s) failed to create: [CodePipeline].")
	api := &fakeCloudFormation{stacks: []*types.Stack{
		nil,
		stackIn(types.StackStatusRollbackInProgress),
		failed,
	}}
	result, err := newTestDeployer(api).Deploy(context.Background(), deployOptions())
	if !errors.Is(err, ErrStackFailed) {
		t.Fatalf("expected ErrStackFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "CodePipeline") {
		t.Fatalf("status reason missing from error: %v", err)
	}
	if result.Status != "ROLLBACK_COMPLETE" {
		t.Fatalf("status = %s", result.Status)
	}
}

func TestDeployNoWait(t *testing.T) {
	api := &fakeCloudFormation{stacks: []*types.Stack{nil}}
	opts := deployOptions()
	opts.NoWait = true
	result, err := newTestDeployer(api).Deploy(context.Background(), opts)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if result.Status != "" || api.describeCalls != 1 {
		t.Fatalf("expected no polling: status=%q describes=%d", result.Status, api.describeCalls)
	}
}

func TestDeployUploadsLargeTemplates(t *testing.T) {
	body := "Resources:\n" + strings.Repeat("#", MaxTemplateBodySize)
	api := &fakeCloudFormation{stacks: []*types.Stack{nil, stackIn(types.StackStatusCreateComplete)}}
	store := &fakeS3{}
	deployer := newTestDeployer(api)
	deployer.Uploader = &TemplateUploader{Client: store, Region: "eu-west-1"}

	opts := DeployOptions{StackName: "pipeline", TemplateBody: body, TemplateBucket: "artifacts"}
	if _, err := deployer.Deploy(context.Background(), opts); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if store.bucket != "artifacts" || store.body != body {
		t.Fatalf("unexpected upload: bucket=%s size=%d", store.bucket, len(store.body))
	}
	if !strings.HasPrefix(store.key, "pipegen/pipeline/template-") || !strings.HasSuffix(store.key, ".yaml") {
		t.Fatalf("unexpected key: %s", store.key)
	}
	in := api.created[0]
	if in.TemplateBody != nil {
		t.Fatalf("template body sent inline")
	}
	wantURL := "https://artifacts.s3.eu-west-1.amazonaws.com/" + store.key
	if got := aws.ToString(in.TemplateURL); got != wantURL {
		t.Fatalf("template url = %s, want %s", got, wantURL)
	}

	opts.TemplateBucket = ""
	if _, err := deployer.Deploy(context.Background(), opts); !errors.Is(err, ErrTemplateTooLarge) {
		t.Fatalf("expected ErrTemplateTooLarge, got %v", err)
	}
}

func TestEventTrackerFresh(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := func(id string, offset time.Duration) types.StackEvent {
		ts := start.Add(offset)
		return types.StackEvent{EventId: aws.String(id), Timestamp: &ts}
	}
	tracker := newEventTracker(start)

	// newest first, as returned by DescribeStackEvents
	first := tracker.fresh([]types.StackEvent{event("b", 2*time.Second), event("a", time.Second), event("old", -time.Minute)})
	if got := eventIDs(first); !cmp.Equal(got, []string{"a", "b"}) {
		t.Fatalf("first batch = %v", got)
	}
	second := tracker.fresh([]types.StackEvent{event("c", 3*time.Second), event("b", 2*time.Second), event("a", time.Second)})
	if got := eventIDs(second); !cmp.Equal(got, []string{"c"}) {
		t.Fatalf("second batch = %v", got)
	}
}

func eventIDs(events []types.StackEvent) []string {
	var out []string
	for _, event := range events {
		out = append(out, aws.ToString(event.EventId))
	}
	return out
}

func TestTemplateURL(t *testing.T) {
	if got := TemplateURL("b", "", "k"); got != "https://b.s3.amazonaws.com/k" {
		t.Fatalf("TemplateURL() = %s", got)
	}
	if got := TemplateURL("b", "ap-northeast-1", "k"); got != "https://b.s3.ap-northeast-1.amazonaws.com/k" {
		t.Fatalf("TemplateURL() = %s", got)
	}
}
