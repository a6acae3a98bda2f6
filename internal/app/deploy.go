// Where: pipegen/internal/app/deploy.go
// What: deploy command: generate the template, confirm, and apply it as a stack.
// Why: Keep AWS interaction behind the stack package and out of generation.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/poruru-code/pipegen/internal/infra/interaction"
	"github.com/poruru-code/pipegen/internal/infra/stack"
	"github.com/poruru-code/pipegen/internal/infra/ui"
)

var errConfirmationRequired = errors.New("confirmation required in non-interactive mode; rerun with --yes")

func runDeploy(cli CLI, s session) int {
	cmd := cli.Deploy
	cfg, doc, err := s.buildTemplate(cmd.ConfigInput)
	if err != nil {
		return exitWithError(s.errOut, err)
	}
	body, err := doc.YAML()
	if err != nil {
		return exitWithError(s.errOut, err)
	}

	bucket := cmd.TemplateBucket
	if bucket == "" {
		bucket = literalBucket(cfg)
	}

	region := cmd.Region
	if region == "" {
		region = "(default)"
	}
	s.ui.Block("🚀", "Deploy", []ui.KeyValue{
		{Key: "Stack", Value: cmd.StackName},
		{Key: "Config", Value: cmd.Config},
		{Key: "Region", Value: region},
		{Key: "Resources", Value: len(doc.Resources)},
		{Key: "Template size", Value: fmt.Sprintf("%d bytes", len(body))},
	})

	if !cmd.Yes {
		confirmed, err := s.confirm(cmd.StackName, len(doc.Resources))
		if err != nil {
			return exitWithError(s.errOut, err)
		}
		if !confirmed {
			s.ui.Info("Deployment cancelled.")
			return 0
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	newDeployer := s.deps.NewDeployer
	if newDeployer == nil {
		newDeployer = defaultDeployerFactory
	}
	deployer, err := newDeployer(ctx, stack.ClientOptions{Region: cmd.Region}, s.logger)
	if err != nil {
		return exitWithError(s.errOut, err)
	}

	result, err := deployer.Deploy(ctx, stack.DeployOptions{
		StackName:      cmd.StackName,
		TemplateBody:   string(body),
		TemplateBucket: bucket,
		NoWait:         cmd.NoWait,
	})
	if err != nil {
		return exitWithError(s.errOut, err)
	}

	rows := []ui.KeyValue{
		{Key: "Stack", Value: result.StackName},
		{Key: "Operation", Value: string(result.Operation)},
	}
	if result.StackID != "" {
		rows = append(rows, ui.KeyValue{Key: "Stack ID", Value: result.StackID})
	}
	if result.Status != "" {
		rows = append(rows, ui.KeyValue{Key: "Status", Value: result.Status})
	}
	s.ui.Block("📦", "Result", rows)

	switch {
	case result.Operation == stack.OperationUnchanged:
		s.ui.Success("Stack is already up to date")
	case cmd.NoWait:
		s.ui.Success(fmt.Sprintf("Stack %s started", result.Operation))
	default:
		s.ui.Success("Deploy complete")
	}
	return 0
}

// confirm asks before touching the stack. Without a terminal the user
// must pass --yes.
func (s session) confirm(stackName string, resourceCount int) (bool, error) {
	isTerminal := s.deps.IsTerminal
	if isTerminal == nil {
		isTerminal = func() bool {
			return interaction.IsTerminal(os.Stdin)
		}
	}
	if !isTerminal() {
		return false, errConfirmationRequired
	}
	prompter := s.deps.Prompter
	if prompter == nil {
		prompter = interaction.HuhPrompter{}
	}
	return prompter.Confirm(
		fmt.Sprintf("Deploy stack %s?", stackName),
		fmt.Sprintf("%d resources will be created or updated", resourceCount),
	)
}

func defaultDeployerFactory(ctx context.Context, opts stack.ClientOptions, logger zerolog.Logger) (StackDeployer, error) {
	deployer, err := stack.NewDeployer(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	return deployer, nil
}
