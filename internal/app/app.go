// Where: pipegen/internal/app/app.go
// What: CLI entrypoint logic.
// Why: Provide a testable command dispatcher.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/poruru-code/pipegen/internal/infra/envutil"
	"github.com/poruru-code/pipegen/internal/infra/interaction"
	"github.com/poruru-code/pipegen/internal/infra/logging"
	"github.com/poruru-code/pipegen/internal/infra/stack"
	"github.com/poruru-code/pipegen/internal/infra/ui"
	"github.com/poruru-code/pipegen/internal/meta"
	"github.com/poruru-code/pipegen/internal/version"
)

// StackDeployer deploys a rendered template to a CloudFormation stack.
type StackDeployer interface {
	Deploy(ctx context.Context, opts stack.DeployOptions) (stack.Result, error)
}

// DeployerFactory builds a StackDeployer for the selected region.
type DeployerFactory func(ctx context.Context, opts stack.ClientOptions, logger zerolog.Logger) (StackDeployer, error)

// Dependencies holds all injected dependencies required for CLI command execution.
// Nil fields fall back to the real implementations.
type Dependencies struct {
	Out         io.Writer
	ErrOut      io.Writer
	ReadFile    func(string) ([]byte, error)
	Prompter    interaction.Prompter
	IsTerminal  func() bool
	NewDeployer DeployerFactory
}

// CLI defines the command-line interface structure parsed by Kong.
// It contains global flags and all subcommand definitions.
type CLI struct {
	EnvFile  string     `name:"env-file" help:"Path to .env file (default: ${env_file} when present)"`
	LogLevel string     `name:"log-level" help:"Diagnostic log level (trace/debug/info/warn/error)"`
	NoEmoji  bool       `name:"no-emoji" help:"Disable emoji output"`
	Dump     DumpCmd    `cmd:"" help:"Print the configuration, template, or schema"`
	Deploy   DeployCmd  `cmd:"" help:"Generate the template and deploy it as a stack"`
	Version  VersionCmd `cmd:"" help:"Show version information"`
}

type (
	// ConfigInput selects the configuration file and its template variables.
	ConfigInput struct {
		Config string   `short:"c" default:"${config_file}" help:"Path to the pipeline configuration file"`
		Vars   []string `name:"vars" sep:"none" help:"Template variable KEY=VALUE (repeatable)"`
	}

	DumpCmd struct {
		Config   DumpConfigCmd   `cmd:"" help:"Print the validated configuration with defaults applied"`
		Template DumpTemplateCmd `cmd:"" help:"Print the generated CloudFormation template"`
		Schema   DumpSchemaCmd   `cmd:"" help:"Print the JSON schema of the configuration file"`
	}

	DumpConfigCmd struct {
		ConfigInput `embed:""`
	}

	DumpTemplateCmd struct {
		ConfigInput `embed:""`
		Format      string `short:"f" enum:"yaml,json" default:"yaml" help:"Output format (yaml/json)"`
	}

	DumpSchemaCmd struct{}

	// DeployCmd defines the deploy command flags.
	DeployCmd struct {
		ConfigInput    `embed:""`
		StackName      string `name:"stack-name" short:"s" required:"" help:"CloudFormation stack name"`
		TemplateBucket string `name:"template-bucket" help:"S3 bucket for templates over the inline size limit (default: the literal artifact bucket)"`
		Region         string `help:"AWS region (default: SDK configuration)"`
		Yes            bool   `short:"y" help:"Deploy without confirmation"`
		NoWait         bool   `name:"no-wait" help:"Return once the stack operation has started"`
	}

	VersionCmd struct{}
)

// session is the per-invocation state shared by command handlers.
type session struct {
	deps   Dependencies
	out    io.Writer
	errOut io.Writer
	ui     ui.UserInterface
	logger zerolog.Logger
}

// Run is the main entry point for CLI command execution.
// It parses the command-line arguments, identifies the requested command,
// and dispatches to the appropriate handler. Returns 0 on success, 1 on error.
func Run(args []string, deps Dependencies) int {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := deps.ErrOut
	if errOut == nil {
		errOut = os.Stderr
	}

	if wantsVersion(args) {
		fmt.Fprintln(out, version.GetVersion())
		return 0
	}
	if len(args) == 0 {
		return runNoArgs(out)
	}

	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name(meta.AppName),
		kong.Description("Generate and deploy CodePipeline/CodeBuild stacks from a YAML configuration."),
		kong.Vars{
			"config_file": meta.DefaultConfigFile,
			"env_file":    meta.DefaultEnvFile,
		},
		kong.Writers(out, errOut),
		kong.Exit(func(code int) { panic(parserExit(code)) }),
	)
	if err != nil {
		return exitWithError(errOut, err)
	}

	ctx, code, err := parse(parser, args)
	if err != nil {
		return exitWithError(errOut, err)
	}
	if ctx == nil {
		return code
	}

	console := ui.NewWithEmoji(out, !cli.NoEmoji)
	loadEnvFile(cli.EnvFile, ui.NewWithEmoji(errOut, !cli.NoEmoji))

	level := cli.LogLevel
	if level == "" {
		level = envutil.GetHostEnv("LOG_LEVEL")
	}
	logger, err := logging.New(errOut, level)
	if err != nil {
		return exitWithError(errOut, err)
	}

	s := session{deps: deps, out: out, errOut: errOut, ui: console, logger: logger}
	if exitCode, handled := dispatchCommand(ctx.Command(), cli, s); handled {
		return exitCode
	}

	return exitWithError(errOut, fmt.Errorf("unknown command %q", ctx.Command()))
}

type commandHandler func(CLI, session) int

func dispatchCommand(command string, cli CLI, s session) (int, bool) {
	handlers := map[string]commandHandler{
		"dump config":   runDumpConfig,
		"dump template": runDumpTemplate,
		"dump schema":   runDumpSchema,
		"deploy":        runDeploy,
		"version": func(_ CLI, s session) int {
			fmt.Fprintln(s.out, version.GetVersion())
			return 0
		},
	}
	if handler, ok := handlers[command]; ok {
		return handler(cli, s), true
	}
	return 1, false
}

// parserExit carries the exit code kong requests after printing help.
type parserExit int

// parse runs the parser and converts kong's exit requests into a nil
// context and the requested code.
func parse(parser *kong.Kong, args []string) (ctx *kong.Context, code int, err error) {
	defer func() {
		if r := recover(); r != nil {
			exit, ok := r.(parserExit)
			if !ok {
				panic(r)
			}
			ctx, code, err = nil, int(exit), nil
		}
	}()
	ctx, err = parser.Parse(args)
	return ctx, 0, err
}

// globalValueFlags are the global flags that consume the next argument.
var globalValueFlags = map[string]bool{
	"--env-file":  true,
	"--log-level": true,
}

// wantsVersion reports whether --version appears before any command.
func wantsVersion(args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--version":
			return true
		case globalValueFlags[arg]:
			i++
		case !strings.HasPrefix(arg, "-"):
			return false
		}
	}
	return false
}

// loadEnvFile loads the given env file, or the default one when it exists.
// Variables already set in the environment win.
func loadEnvFile(path string, console *ui.Console) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			console.Warn(fmt.Sprintf("failed to load env file %s: %v", path, err))
		}
		return
	}
	if _, err := os.Stat(meta.DefaultEnvFile); err != nil {
		return
	}
	if err := godotenv.Load(meta.DefaultEnvFile); err != nil {
		console.Warn(fmt.Sprintf("failed to load %s: %v", meta.DefaultEnvFile, err))
	}
}

// runNoArgs prints a short usage summary.
func runNoArgs(out io.Writer) int {
	console := ui.New(out)
	cmd := meta.AppName
	console.Info("Usage:")
	console.Info(fmt.Sprintf("  %s dump template --config %s [--vars KEY=VALUE]", cmd, meta.DefaultConfigFile))
	console.Info(fmt.Sprintf("  %s deploy --config %s --stack-name <name> [flags]", cmd, meta.DefaultConfigFile))
	console.Info("")
	console.Info(fmt.Sprintf("Try: %s --help", cmd))
	return 0
}

// exitWithError prints an error message to the output writer and returns
// exit code 1 for CLI error handling.
func exitWithError(out io.Writer, err error) int {
	fmt.Fprintf(out, "✗ %v\n", err)
	return 1
}
