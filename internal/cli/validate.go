package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"aistack/internal/mcpconfig"
	"aistack/internal/tui/styles"
	"aistack/internal/validation"
)

type validateOptions struct {
	path           string
	workspace      string
	strict         bool
	verbose        bool
	testGeneration bool
}

func newValidateCmd(a *app) *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:     "validate",
		GroupID: "check",
		Short:   "Check an mcp.json for structural and portability problems",
		Long: `Check an mcp.json for structural and portability problems.

Exit status is 0 when the file passes, 1 when it has errors (or warnings
with --strict) and 2 when the file does not exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runValidateWithIO(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if code != validation.ExitPassed {
				return &exitError{code: code}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.path, "file", "f", "", "configuration to check (default <workspace>/.cursor/mcp.json)")
	f.StringVarP(&opts.workspace, "workspace", "w", ".", "workspace whose configuration is checked")
	f.BoolVar(&opts.strict, "strict", false, "treat warnings as failures")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "also print info findings")
	f.BoolVar(&opts.testGeneration, "test-generation", false, "generate both topologies in a scratch directory and validate them")
	return cmd
}

// runValidateWithIO returns the exit code of the run. A non-nil error means
// the check itself could not run.
func runValidateWithIO(out io.Writer, opts validateOptions) (int, error) {
	if opts.testGeneration {
		return runTestGeneration(out)
	}

	path := opts.path
	if path == "" {
		abs, err := filepath.Abs(opts.workspace)
		if err != nil {
			return validation.ExitFailed, err
		}
		path = mcpconfig.PathFor(abs)
	}

	fmt.Fprintf(out, "Validating: %s\n\n", path)
	report, err := validation.ValidateFile(path)
	code := validation.ExitCode(report, err, opts.strict)
	if err != nil {
		if code == validation.ExitMissing {
			fmt.Fprintln(out, styles.Status("FAIL")+" Config file not found: "+path)
			return code, nil
		}
		return code, err
	}

	for _, level := range []validation.Level{validation.LevelError, validation.LevelWarning, validation.LevelInfo} {
		if level == validation.LevelInfo && !opts.verbose {
			continue
		}
		for _, f := range report.Filter(level) {
			fmt.Fprintln(out, f.String())
		}
	}

	fmt.Fprintf(out, "\nErrors: %d, Warnings: %d, Info: %d\n",
		report.Count(validation.LevelError), report.Count(validation.LevelWarning), report.Count(validation.LevelInfo))
	if code == validation.ExitPassed {
		fmt.Fprintln(out, "Result: "+styles.Status("PASSED"))
	} else {
		fmt.Fprintln(out, "Result: "+styles.Status("FAILED"))
	}
	return code, nil
}

func runTestGeneration(out io.Writer) (int, error) {
	res, err := validation.TestGeneration("")
	if err != nil {
		return validation.ExitFailed, err
	}
	for _, step := range res.Steps {
		fmt.Fprintln(out, step.String())
		if step.Err != nil {
			fmt.Fprintf(out, "  %v\n", step.Err)
		}
		for _, f := range step.Errors {
			fmt.Fprintf(out, "  %s\n", f.String())
		}
	}
	if !res.Passed() {
		return validation.ExitFailed, nil
	}
	return validation.ExitPassed, nil
}
