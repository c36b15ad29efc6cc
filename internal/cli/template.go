package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"

	tmpl "aistack/internal/template"
)

var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newTemplateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		GroupID: "generate",
		Short:   "List, inspect and apply server templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := a.engine()
				if err != nil {
					return err
				}
				return runTemplateListWithIO(cmd.OutOrStdout(), engine)
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show a template and its servers",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := a.engine()
				if err != nil {
					return err
				}
				return runTemplateShowWithIO(cmd.OutOrStdout(), engine, args[0], stdoutIsTerminal())
			},
		},
		&cobra.Command{
			Use:   "validate <name>",
			Short: "Check the structure of a template",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				engine, err := a.engine()
				if err != nil {
					return err
				}
				return runTemplateValidateWithIO(cmd.OutOrStdout(), engine, args[0])
			},
		},
		newTemplateApplyCmd(a),
	)
	return cmd
}

type applyOptions struct {
	workspace string
	root      string
	overrides string
	dryRun    bool
	noBackup  bool
}

func newTemplateApplyCmd(a *app) *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply <name>",
		Short: "Resolve a template and write .cursor/mcp.json",
		Example: `  aistack template apply standard --workspace .
  aistack template apply full --root ~/AIStack-MCP --overrides team.json --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			return runTemplateApplyWithIO(cmd.OutOrStdout(), engine, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.workspace, "workspace", "w", ".", "workspace to configure")
	f.StringVar(&opts.root, "root", "", "orchestration root (detected when empty)")
	f.StringVar(&opts.overrides, "overrides", "", "JSON file of per-server overrides")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the result without writing")
	addNoBackupFlag(f, &opts.noBackup)
	return cmd
}

func runTemplateListWithIO(out io.Writer, engine *tmpl.Engine) error {
	summaries, err := engine.ListTemplates()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No templates found.")
		return nil
	}

	width := 0
	for _, s := range summaries {
		width = max(width, len(s.ID))
	}
	for _, s := range summaries {
		fmt.Fprintf(out, "%-*s  %s (v%s)\n", width, s.ID, s.Description, s.Version)
	}
	return nil
}

func runTemplateShowWithIO(out io.Writer, engine *tmpl.Engine, name string, styled bool) error {
	t, err := engine.LoadTemplate(name)
	if err != nil {
		return err
	}

	doc := templateMarkdown(t)
	if !styled {
		_, err := io.WriteString(out, doc)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return failure.Wrap(err)
	}
	rendered, err := renderer.Render(doc)
	if err != nil {
		return failure.Wrap(err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func templateMarkdown(t *tmpl.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", t.Name, t.Description)
	if t.Version != "" || t.Author != "" {
		fmt.Fprintf(&b, "Version %s by %s\n\n", orUnknown(t.Version), orUnknown(t.Author))
	}

	b.WriteString("| Server | Type | Enabled | Description |\n|---|---|---|---|\n")
	for _, s := range t.Servers {
		enabled := "yes"
		if !s.IsEnabled() {
			enabled = "no"
		}
		typ := string(s.Type)
		if typ == "" {
			typ = string(tmpl.Community)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", s.Name, typ, enabled, s.Description)
	}

	var env []string
	for _, s := range t.Servers {
		for _, v := range s.RequiresEnv {
			env = append(env, fmt.Sprintf("`%s` (%s)", v, s.Name))
		}
	}
	if len(env) > 0 {
		b.WriteString("\nRequired environment: " + strings.Join(env, ", ") + "\n")
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func runTemplateValidateWithIO(out io.Writer, engine *tmpl.Engine, name string) error {
	if err := engine.ValidateTemplate(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Template '%s' is valid\n", name)
	return nil
}

func runTemplateApplyWithIO(out io.Writer, engine *tmpl.Engine, name string, opts applyOptions) error {
	apply := tmpl.ApplyOptions{
		Template:  name,
		Workspace: opts.workspace,
		Root:      opts.root,
		DryRun:    opts.dryRun,
		NoBackup:  opts.noBackup,
	}
	if opts.overrides != "" {
		ov, err := tmpl.LoadOverrides(opts.overrides)
		if err != nil {
			return err
		}
		apply.Overrides = ov
	}

	res, err := engine.Apply(apply)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	if opts.dryRun {
		_, err := out.Write(res.Content)
		return err
	}
	if res.BackupPath != "" {
		fmt.Fprintf(out, "Backed up previous config to %s\n", res.BackupPath)
	}
	fmt.Fprintf(out, "Applied template '%s' to %s (%d servers)\n", name, res.Path, len(res.Document.MCPServers))
	return nil
}
