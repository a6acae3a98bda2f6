// Where: pipegen/internal/infra/stack/stack.go
// What: CloudFormation stack deployment: create, update, or recreate, then wait.
// Why: Deploy generated templates the same way regardless of the stack's current state.
package stack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

const (
	defaultPollInterval = 5 * time.Second

	statusRollbackComplete = "ROLLBACK_COMPLETE"
	statusDeleteComplete   = "DELETE_COMPLETE"
	statusCreateComplete   = "CREATE_COMPLETE"
	statusUpdateComplete   = "UPDATE_COMPLETE"
)

var (
	// ErrStackBusy reports a stack with an operation already in progress.
	ErrStackBusy = errors.New("stack operation in progress")
	// ErrStackFailed reports a stack operation that ended in a failure state.
	ErrStackFailed = errors.New("stack operation failed")
)

// CloudFormationAPI is the subset of the CloudFormation client used for deploys.
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, in *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	DescribeStackEvents(ctx context.Context, in *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
}

// Operation names what Deploy did to the stack.
type Operation string

const (
	OperationCreate    Operation = "create"
	OperationUpdate    Operation = "update"
	OperationRecreate  Operation = "recreate"
	OperationUnchanged Operation = "unchanged"
)

// DeployOptions configures one deployment.
type DeployOptions struct {
	StackName    string
	TemplateBody string
	// TemplateBucket receives templates too large to send inline.
	TemplateBucket string
	NoWait         bool
}

// Result describes a finished (or, with NoWait, started) deployment.
type Result struct {
	StackName string
	StackID   string
	Operation Operation
	Status    string
}

// Deployer creates and updates stacks.
type Deployer struct {
	API          CloudFormationAPI
	Uploader     *TemplateUploader
	Logger       zerolog.Logger
	PollInterval time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// Deploy brings the stack to the given template. A stack left in
// ROLLBACK_COMPLETE by a failed creation is deleted and created again.
func (d *Deployer) Deploy(ctx context.Context, opts DeployOptions) (Result, error) {
	if d.API == nil {
		return Result{}, fmt.Errorf("cloudformation client is nil")
	}
	name := opts.StackName
	if name == "" {
		return Result{}, fmt.Errorf("stack name is required")
	}

	source, err := d.templateSource(ctx, opts)
	if err != nil {
		return Result{}, err
	}

	current, err := d.describe(ctx, name)
	if err != nil {
		return Result{}, err
	}

	operation := OperationCreate
	if current != nil {
		status := string(current.StackStatus)
		switch {
		case strings.HasSuffix(status, "_IN_PROGRESS"):
			return Result{}, fmt.Errorf("%w: %s is %s", ErrStackBusy, name, status)
		case status == statusRollbackComplete:
			d.Logger.Info().Str("stack", name).Str("status", status).Msg("deleting stack before recreation")
			if err := d.delete(ctx, name); err != nil {
				return Result{}, err
			}
			operation = OperationRecreate
		case status == statusDeleteComplete:
			// Deleted stacks are still listed by id; the name is free to create again.
		default:
			operation = OperationUpdate
		}
	}

	d.Logger.Info().Str("stack", name).Str("operation", string(operation)).Msg("deploying stack")
	started := time.Now()

	var stackID string
	if operation == OperationUpdate {
		out, err := d.API.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(name),
			TemplateBody: source.body,
			TemplateURL:  source.url,
			Capabilities: capabilities(),
		})
		if err != nil {
			if isNoUpdates(err) {
				d.Logger.Info().Str("stack", name).Msg("stack is up to date")
				return Result{
					StackName: name,
					StackID:   aws.ToString(current.StackId),
					Operation: OperationUnchanged,
					Status:    string(current.StackStatus),
				}, nil
			}
			return Result{}, fmt.Errorf("update stack %s: %w", name, err)
		}
		stackID = aws.ToString(out.StackId)
	} else {
		out, err := d.API.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(name),
			TemplateBody: source.body,
			TemplateURL:  source.url,
			Capabilities: capabilities(),
		})
		if err != nil {
			return Result{}, fmt.Errorf("create stack %s: %w", name, err)
		}
		stackID = aws.ToString(out.StackId)
	}

	result := Result{StackName: name, StackID: stackID, Operation: operation}
	if opts.NoWait {
		return result, nil
	}

	want := statusCreateComplete
	if operation == OperationUpdate {
		want = statusUpdateComplete
	}
	status, err := d.wait(ctx, name, want, started)
	result.Status = status
	return result, err
}

type templateSource struct {
	body *string
	url  *string
}

func (d *Deployer) templateSource(ctx context.Context, opts DeployOptions) (templateSource, error) {
	if len(opts.TemplateBody) <= MaxTemplateBodySize {
		return templateSource{body: aws.String(opts.TemplateBody)}, nil
	}
	if d.Uploader == nil || opts.TemplateBucket == "" {
		return templateSource{}, fmt.Errorf("%w: %d bytes; set a template bucket", ErrTemplateTooLarge, len(opts.TemplateBody))
	}
	url, err := d.Uploader.Upload(ctx, opts.TemplateBucket, opts.StackName, opts.TemplateBody)
	if err != nil {
		return templateSource{}, err
	}
	d.Logger.Info().Str("url", url).Msg("uploaded template")
	return templateSource{url: aws.String(url)}, nil
}

func capabilities() []types.Capability {
	return []types.Capability{types.CapabilityCapabilityIam, types.CapabilityCapabilityNamedIam}
}

// describe returns the stack, or nil when it does not exist.
func (d *Deployer) describe(ctx context.Context, name string) (*types.Stack, error) {
	out, err := d.API.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("describe stack %s: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

func (d *Deployer) delete(ctx context.Context, name string) error {
	started := time.Now()
	if _, err := d.API.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(name)}); err != nil {
		return fmt.Errorf("delete stack %s: %w", name, err)
	}
	_, err := d.wait(ctx, name, statusDeleteComplete, started)
	return err
}

// wait polls the stack until it leaves every *_IN_PROGRESS state. Reaching
// want succeeds; any other terminal state is ErrStackFailed. A stack that
// disappears counts as DELETE_COMPLETE.
func (d *Deployer) wait(ctx context.Context, name, want string, since time.Time) (string, error) {
	events := newEventTracker(since)
	for {
		current, err := d.describe(ctx, name)
		if err != nil {
			return "", err
		}
		if err := d.logEvents(ctx, name, events); err != nil {
			d.Logger.Debug().Err(err).Str("stack", name).Msg("describe stack events")
		}

		status := statusDeleteComplete
		reason := ""
		if current != nil {
			status = string(current.StackStatus)
			reason = aws.ToString(current.StackStatusReason)
		}
		switch {
		case strings.HasSuffix(status, "_IN_PROGRESS"):
		case status == want:
			return status, nil
		default:
			if reason != "" {
				return status, fmt.Errorf("%w: %s is %s: %s", ErrStackFailed, name, status, reason)
			}
			return status, fmt.Errorf("%w: %s is %s", ErrStackFailed, name, status)
		}

		if err := d.pause(ctx); err != nil {
			return status, err
		}
	}
}

func (d *Deployer) pause(ctx context.Context) error {
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if d.sleep != nil {
		return d.sleep(ctx, interval)
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

func isNoUpdates(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}
