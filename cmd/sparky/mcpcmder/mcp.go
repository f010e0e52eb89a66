package mcpcmder

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/cmd/sparky/wiring"
	"github.com/papercomputeco/sparky/pkg/config"
	"github.com/papercomputeco/sparky/pkg/logger"
	"github.com/papercomputeco/sparky/pkg/mcpserver"
	"github.com/papercomputeco/sparky/pkg/tools"
)

const mcpLongDesc string = `Serve the ChillSpace tools over MCP on stdio.

Exposes get_users, get_files and get_messages to any Model Context Protocol
client (editors, agents, desktop assistants). No model backend is needed;
only the store is opened. Logs are written as JSON to stderr since stdout
carries the protocol.

Example client configuration:
  {"command": "sparky", "args": ["mcp", "--db-driver", "sqlite", "--db", "./chillspace.db"]}`

const mcpShortDesc string = "Serve the tools over MCP on stdio"

type mcpCommander struct {
	flags   wiring.Flags
	version string
}

func NewMCPCmd(version string) *cobra.Command {
	cmder := &mcpCommander{version: version}

	cmd := &cobra.Command{
		Use:          "mcp",
		Short:        mcpShortDesc,
		Long:         mcpLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmder.flags.Load()
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}

			log := logger.NewJSONLogger(cmd.ErrOrStderr(), cmder.flags.Debug)
			defer log.Sync()

			return cmder.serve(cmd.Context(), cfg, &mcp.StdioTransport{}, log)
		},
	}

	cmder.flags.Register(cmd)

	return cmd
}

func (c *mcpCommander) serve(ctx context.Context, cfg *config.Config, transport mcp.Transport, log *zap.Logger) error {
	collab, closeStore, err := wiring.OpenStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := tools.NewRegistry(collab, log)
	server := mcpserver.New(registry, c.version)

	log.Info("serving mcp", zap.String("store", cfg.Store.Driver), zap.String("version", c.version))
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}
