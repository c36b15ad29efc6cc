// Package cli wires aistack's commands together with cobra. Every command's
// work lives in a run*WithIO function that takes its writers explicitly so
// tests can drive it with buffers.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aistack/internal/config"
	"aistack/internal/errcode"
	"aistack/internal/logging"
	"aistack/internal/template"
	"aistack/templates"
)

var version, commit, date = "dev", "", ""

// SetVersionInfo sets version information from ldflags.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *logging.AppLogger
}

// load reads the configuration and sets up logging. It runs before every command.
func (a *app) load() error {
	if a.logger == nil {
		a.logger = logging.New(a.debug || os.Getenv("DEBUG") != "")
		logging.SetDefault(a.logger)
	}
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("Configuration loaded", "templates_dir", cfg.TemplatesDir, "registry", cfg.RegistryURL)
	return nil
}

// engine returns a template engine over the configured store, or the
// built-in templates when none is configured.
func (a *app) engine() (*template.Engine, error) {
	opts := []template.Option{template.WithLogger(a.logger), template.WithMarkerFile(a.cfg.MarkerFile)}
	if a.cfg.TemplatesDir == "" {
		return template.New(templates.FS, opts...), nil
	}
	return template.NewFromDir(a.cfg.TemplatesDir, opts...)
}

// NewRootCmd builds the command tree. a may be pre-populated by tests.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "aistack",
		Short: "Generate and check MCP launch configurations for AI-assisted editors",
		Long: `aistack writes .cursor/mcp.json for a workspace, either from a template or
from one of the two fixed topologies, and checks that the result is sound.

Templates resolve ${workspaceFolder} and the orchestration root so the same
template works on every machine. The registry commands add community servers
to an existing configuration.`,
		Example: `  aistack build --single --workspace .        # One repository
  aistack build --multi --repos ../api ../web  # Orchestration root serving two repos
  aistack template apply standard --workspace .
  aistack validate --strict
  aistack doctor`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetVersionTemplate(versionTemplate())
	root.CompletionOptions.HiddenDefaultCmd = true

	root.PersistentFlags().StringVar(&a.configPath, "config", a.configPath, "config file (default "+config.ConfigPath()+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "write debug logs to "+logging.LogFileName)

	root.AddGroup(
		&cobra.Group{ID: "generate", Title: "Generate Commands:"},
		&cobra.Group{ID: "check", Title: "Check Commands:"},
		&cobra.Group{ID: "manage", Title: "Manage Commands:"},
	)

	root.AddCommand(
		newBuildCmd(a),
		newTemplateCmd(a),
		newValidateCmd(a),
		newDoctorCmd(a),
		newRegistryCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
	)
	return root
}

func versionTemplate() string {
	if commit != "" {
		return fmt.Sprintf("aistack %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("aistack %s\n", version)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(stderr, "Error: "+errcode.Message(exit.err))
		}
		return exit.code
	}
	fmt.Fprintln(stderr, "Error: "+errcode.Message(err))
	return 1
}
