package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"aistack/internal/tui/styles"
	"aistack/internal/workspace"
)

func newDoctorCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "doctor",
		GroupID: "check",
		Short:   "Check a workspace, its mcp.json and the local services",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := workspace.Options{
				Workspace: dir,
				OllamaURL: a.cfg.OllamaURL,
				QdrantURL: a.cfg.QdrantURL,
				Logger:    a.logger,
			}
			passed, err := runDoctorWithIO(cmd.Context(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if !passed {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "workspace", "w", ".", "workspace to check")
	return cmd
}

func runDoctorWithIO(ctx context.Context, out io.Writer, opts workspace.Options) (bool, error) {
	abs, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return false, err
	}
	opts.Workspace = abs
	if ctx == nil {
		ctx = context.Background()
	}

	report := workspace.NewDoctor(opts).Run(ctx)

	fmt.Fprintf(out, "Workspace: %s\n\n", report.Workspace)
	for _, c := range report.Checks {
		fmt.Fprintf(out, "[%s] %-28s %s\n", styles.Status(string(c.Status)), c.Name, c.Message)
		for _, d := range c.Details {
			fmt.Fprintf(out, "       %s\n", d)
		}
	}
	fmt.Fprintf(out, "\n%d passed, %d warnings, %d failed, %d skipped\n",
		report.Count(workspace.StatusPass), report.Count(workspace.StatusWarn),
		report.Count(workspace.StatusFail), report.Count(workspace.StatusSkip))
	return report.Passed(), nil
}
