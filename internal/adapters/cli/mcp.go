package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/adapters/mcp"
)

func newMCPCmd(e *env) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve search tools to AI assistants over MCP",
		Long: `Starts a Model Context Protocol server exposing search_documents,
build_context and list_documents. It speaks JSON-RPC over stdio unless
--port is given, in which case it serves the streamable HTTP transport.
Tool calls without a tenant_id use --tenant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.services(cmd)
			if err != nil {
				return err
			}
			server, err := mcp.NewServer(mcp.Ports{
				Search:        svc.Search,
				Documents:     svc.Documents,
				DefaultTenant: e.tenant,
			})
			if err != nil {
				return err
			}
			if port > 0 {
				addr := fmt.Sprintf(":%d", port)
				cmd.PrintErrf("MCP server listening on http://localhost%s/mcp\n", addr)
				return server.RunHTTP(cmd.Context(), addr)
			}
			return server.Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 serves stdio)")
	return cmd
}
