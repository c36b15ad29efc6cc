package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"

	"aistack/internal/errcode"
	"aistack/internal/registry"
)

func (a *app) registryClient() (*registry.Client, error) {
	return registry.NewClient(registry.Options{
		BaseURL:  a.cfg.RegistryURL,
		Timeout:  a.cfg.HTTPTimeout,
		CacheDir: a.cfg.CacheDir,
		CacheTTL: a.cfg.CacheTTL,
		Logger:   a.logger,
	})
}

func newRegistryCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "registry",
		GroupID: "manage",
		Short:   "Find community servers and add them to a workspace",
	}
	cmd.PersistentFlags().StringVarP(&dir, "workspace", "w", ".", "workspace whose mcp.json is edited")

	installer := func() (*registry.Installer, error) {
		client, err := a.registryClient()
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		return &registry.Installer{Source: client, Workspace: abs, Backup: true, Logger: a.logger}, nil
	}

	var limit int
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registryClient()
			if err != nil {
				return err
			}
			q := registry.Query{Limit: limit}
			if len(args) == 1 {
				q.Search = args[0]
			}
			return runRegistrySearchWithIO(cmd.Context(), cmd.OutOrStdout(), client, q)
		},
	}
	search.Flags().IntVar(&limit, "limit", 20, "maximum number of servers to show")

	info := &cobra.Command{
		Use:   "info <id>",
		Short: "Show registry metadata for a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registryClient()
			if err != nil {
				return err
			}
			return runRegistryInfoWithIO(cmd.Context(), cmd.OutOrStdout(), client, args[0])
		},
	}

	var (
		envPairs []string
		disabled bool
	)
	install := &cobra.Command{
		Use:     "install <id>",
		Short:   "Add a registry server to mcp.json",
		Example: `  aistack registry install io.github.example/weather --env API_KEY=${WEATHER_KEY}`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvPairs(envPairs)
			if err != nil {
				return err
			}
			inst, err := installer()
			if err != nil {
				return err
			}
			return runRegistryInstallWithIO(cmd.Context(), cmd.OutOrStdout(), inst, args[0],
				registry.InstallOptions{Env: env, Disabled: disabled})
		},
	}
	install.Flags().StringArrayVarP(&envPairs, "env", "e", nil, "environment variable for the server (KEY=VALUE, repeatable)")
	install.Flags().BoolVar(&disabled, "disabled", false, "add the server disabled")

	uninstall := &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove a server from mcp.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := installer()
			if err != nil {
				return err
			}
			if err := inst.Uninstall(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s'\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List servers installed in mcp.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := installer()
			if err != nil {
				return err
			}
			return runRegistryListWithIO(cmd.OutOrStdout(), inst)
		},
	}

	clearCache := &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete the cached registry responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registryClient()
			if err != nil {
				return err
			}
			if err := client.ClearCache(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registry cache cleared")
			return nil
		},
	}

	cmd.AddCommand(search, info, install, uninstall, list, clearCache)
	return cmd
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, failure.New(errcode.InvalidFormat,
				failure.Message(fmt.Sprintf("invalid --env value %q, expected KEY=VALUE", p)))
		}
		env[key] = value
	}
	return env, nil
}

func degradedNote(out io.Writer, cause error) {
	fmt.Fprintf(out, "Note: registry unreachable, showing cached data (%s)\n", errcode.Message(cause))
}

func runRegistrySearchWithIO(ctx context.Context, out io.Writer, client *registry.Client, q registry.Query) error {
	res, err := client.ListServers(ctx, q)
	if err != nil {
		return err
	}
	if res.IsDegraded() {
		degradedNote(out, res.Cause)
	}
	if len(res.Value) == 0 {
		fmt.Fprintln(out, "No servers found.")
		return nil
	}
	for _, s := range res.Value {
		fmt.Fprintf(out, "%s  [%s]\n", s.ID, s.RuntimeOrDefault())
		if s.Description != "" {
			fmt.Fprintf(out, "    %s\n", s.Description)
		}
	}
	fmt.Fprintf(out, "\n%d servers\n", len(res.Value))
	return nil
}

func runRegistryInfoWithIO(ctx context.Context, out io.Writer, client *registry.Client, id string) error {
	res, err := client.GetServer(ctx, id)
	if err != nil {
		return err
	}
	if res.IsDegraded() {
		degradedNote(out, res.Cause)
	}
	s := res.Value
	fmt.Fprintf(out, "ID:          %s\n", s.ID)
	fmt.Fprintf(out, "Name:        %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", s.Description)
	}
	if s.Version != "" {
		fmt.Fprintf(out, "Version:     %s\n", s.Version)
	}
	fmt.Fprintf(out, "Runtime:     %s\n", s.RuntimeOrDefault())
	if s.Repository != "" {
		fmt.Fprintf(out, "Repository:  %s\n", s.Repository)
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(out, "Tags:        %s\n", strings.Join(s.Tags, ", "))
	}

	entry, _, err := registry.LaunchEntry(*s, nil)
	if err != nil {
		fmt.Fprintf(out, "Launch:      unavailable (%s)\n", errcode.Message(err))
		return nil
	}
	fmt.Fprintf(out, "Launch:      %s %s\n", entry.Command, strings.Join(entry.Args, " "))
	return nil
}

func runRegistryInstallWithIO(ctx context.Context, out io.Writer, inst *registry.Installer, id string, opts registry.InstallOptions) error {
	res, err := inst.Install(ctx, id, opts)
	if err != nil {
		return err
	}
	if res.Degraded {
		fmt.Fprintln(out, "Note: registry unreachable, installed from cached metadata")
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	fmt.Fprintf(out, "Installed '%s' into %s\n", res.Name, res.Path)
	return nil
}

func runRegistryListWithIO(out io.Writer, inst *registry.Installer) error {
	names, err := inst.Installed()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No servers installed.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}
