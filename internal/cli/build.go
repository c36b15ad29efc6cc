package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"aistack/internal/builder"
	"aistack/internal/errcode"
	"aistack/internal/mcpconfig"
	"aistack/internal/repository"
	"aistack/internal/tui"
	"aistack/internal/tui/buildwizard"
	"aistack/internal/tui/helpers"
)

type buildOptions struct {
	single    bool
	multi     bool
	workspace string
	core      string
	repos     []string
	absolute  bool
	noBackup  bool
	link      bool
}

// runWizard is swapped out in tests.
var runWizard = func(a *app) (buildwizard.Result, error) {
	wd, _ := os.Getwd()
	ctx := helpers.NewUIContext(0, 0, a.cfg, a.logger)
	ctx.Workdir = wd
	return tui.RunBuildWizard(ctx)
}

var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newBuildCmd(a *app) *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:     "build",
		GroupID: "generate",
		Short:   "Generate mcp.json for one workspace or an orchestration root",
		Long: `Generate .cursor/mcp.json for one of the two fixed topologies.

--single writes a configuration where every path is ${workspaceFolder}.
--multi writes it into the orchestration root (--core) and serves every
repository given with --repos, either through workspaces/<name> links or by
absolute path. Without either flag an interactive wizard asks.`,
		Example: `  aistack build --single --workspace ~/src/api
  aistack build --multi --core ~/AIStack-MCP --repos ~/src/api ~/src/web
  aistack build --multi --repos ../api ../web --link`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.single && opts.multi {
				return fmt.Errorf("--single and --multi are mutually exclusive")
			}
			// Paths after --repos that pflag did not consume arrive as arguments.
			if len(args) > 0 {
				if !opts.multi {
					return fmt.Errorf("unexpected arguments %v; repository paths are only accepted with --multi", args)
				}
				opts.repos = append(opts.repos, args...)
			}
			if !opts.single && !opts.multi {
				if !stdinIsTerminal() {
					return fmt.Errorf("choose --single or --multi when not running in a terminal")
				}
				res, err := runWizard(a)
				if err != nil {
					return err
				}
				if res.Cancelled {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				opts = optionsFromWizard(res, opts)
			}
			return runBuildWithIO(cmd.OutOrStdout(), a, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.single, "single", false, "generate for a single workspace")
	f.BoolVar(&opts.multi, "multi", false, "generate for an orchestration root serving several repos")
	f.StringVarP(&opts.workspace, "workspace", "w", ".", "workspace directory (single mode)")
	f.StringVar(&opts.core, "core", ".", "orchestration root directory (multi mode)")
	f.StringSliceVar(&opts.repos, "repos", nil, "repository directories (multi mode), separated by spaces or commas")
	f.BoolVar(&opts.absolute, "absolute", false, "address repositories by absolute path instead of workspaces/<name>")
	addNoBackupFlag(f, &opts.noBackup)
	f.BoolVar(&opts.link, "link", false, "create missing workspaces/<name> links (multi mode)")
	return cmd
}

func addNoBackupFlag(f *pflag.FlagSet, dst *bool) {
	f.BoolVar(dst, "no-backup", false, "do not back up an existing mcp.json")
}

func optionsFromWizard(res buildwizard.Result, base buildOptions) buildOptions {
	base.single = res.Mode == buildwizard.ModeSingle
	base.multi = res.Mode == buildwizard.ModeMulti
	base.workspace = res.Workspace
	base.core = res.Core
	base.repos = res.Repos
	base.absolute = res.Absolute
	return base
}

func runBuildWithIO(out io.Writer, a *app, opts buildOptions) error {
	if opts.multi {
		return runBuildMulti(out, a, opts)
	}

	workspace, err := filepath.Abs(opts.workspace)
	if err != nil {
		return err
	}
	if _, err := repository.Inspect(workspace); err != nil {
		return err
	}

	doc := builder.BuildSingle(workspace)
	res, err := builder.Write(doc, mcpconfig.PathFor(workspace), builder.WriteOptions{
		Backup: !opts.noBackup,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	printWritten(out, res, doc)
	return nil
}

func runBuildMulti(out io.Writer, a *app, opts buildOptions) error {
	if len(opts.repos) == 0 {
		return failure.New(errcode.InvalidFormat, failure.Message("--multi needs at least one repository in --repos"))
	}
	core, err := filepath.Abs(opts.core)
	if err != nil {
		return err
	}

	repos := make([]string, 0, len(opts.repos))
	for _, r := range opts.repos {
		info, err := repository.ValidateRepoPath(r)
		if err != nil {
			return err
		}
		if !info.IsGit {
			fmt.Fprintf(out, "Note: %s is not a git repository\n", info.Path)
		}
		repos = append(repos, info.Path)
	}

	doc, err := builder.BuildMulti(core, repos, builder.Options{Absolute: opts.absolute})
	if err != nil {
		return err
	}
	res, err := builder.Write(doc, mcpconfig.PathFor(core), builder.WriteOptions{
		Backup: !opts.noBackup,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	printWritten(out, res, doc)

	if opts.absolute {
		return nil
	}
	links, err := builder.PrepareWorkspaces(core, repos, builder.PrepareOptions{CreateLinks: opts.link})
	if err != nil {
		return err
	}
	printLinks(out, links)
	return nil
}

func printWritten(out io.Writer, res mcpconfig.WriteResult, doc mcpconfig.Document) {
	if res.BackupPath != "" {
		fmt.Fprintf(out, "Backed up previous config to %s\n", res.BackupPath)
	}
	fmt.Fprintf(out, "Wrote %s (%d servers)\n", res.Path, len(doc.MCPServers))
	for _, name := range doc.Names() {
		fmt.Fprintf(out, "  - %s\n", name)
	}
}

func printLinks(out io.Writer, links []builder.LinkStatus) {
	var missing []builder.LinkStatus
	for _, l := range links {
		switch {
		case l.Created:
			fmt.Fprintf(out, "Linked %s -> %s\n", l.LinkPath, l.Repo)
		case l.Linked && !l.Symlink:
			fmt.Fprintf(out, "Note: %s is a directory, not a link to %s\n", l.LinkPath, l.Repo)
		case !l.Linked:
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(out, "\nThese repositories are not linked under workspaces/ yet. Run:")
	for _, l := range missing {
		fmt.Fprintf(out, "  %s\n", l.Command)
	}
	fmt.Fprintln(out, "or rerun with --link.")
}
