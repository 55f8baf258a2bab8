package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/pkg/adapters/mcp"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/observability"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [schema]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts rowflow as an MCP Server so AI agents can validate rows and draw
flows as tools. The optional schema becomes the default for tool calls that do
not carry their own schema document.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")

		val := newValidator(rowflow.WithLifecycleHooks(observability.LogHooks(logger)))

		var schema *domain.Schema
		if len(args) > 0 {
			var err error
			if schema, err = val.LoadSchema(args[0]); err != nil {
				return err
			}
		}

		srv := mcp.NewServer(val, schema, logger)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting rowflow MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting rowflow MCP Server (SSE)", "port", cfg.Port)
			err := srv.ServeSSE(cmd.Context(), cfg.Port)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
