package cli

import (
	"github.com/spf13/cobra"

	"aistack/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "mcp",
		GroupID: "generate",
		Short:   "Serve the template and validation tools over MCP stdio",
		Long: `Run aistack as an MCP server on stdin/stdout so an assistant can list and
apply templates, build configurations and validate them. Logs go to the
debug log file, never to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			mcp.Version = version
			return mcp.NewServer(engine, a.logger).Start()
		},
	}
}
