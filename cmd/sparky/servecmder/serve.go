package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/api"
	"github.com/papercomputeco/sparky/cmd/sparky/wiring"
	"github.com/papercomputeco/sparky/pkg/logger"
)

const serveLongDesc string = `Run the Sparky HTTP API.

Serves the assistant query endpoint at POST /api/ai/chat together with
backend diagnostics, the advertised tool schema, the cached knowledge
documents and an MCP endpoint at /mcp.

Requires GEMINI_API_KEY. Configuration is read from sparky.toml when
present; flags override the file.

Examples:
  sparky serve
  sparky serve --listen :9090 --db-driver sqlite --db ./chillspace.db
  sparky serve --config /etc/sparky/sparky.toml --json-logs`

const serveShortDesc string = "Run the assistant HTTP API"

type serveCommander struct {
	flags      wiring.Flags
	listenAddr string
	jsonLogs   bool
	version    string
}

func NewServeCmd(version string) *cobra.Command {
	cmder := &serveCommander{version: version}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        serveShortDesc,
		Long:         serveLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write JSON logs")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if c.listenAddr != "" {
		cfg.Server.ListenAddr = c.listenAddr
	}

	var log *zap.Logger
	if c.jsonLogs || cfg.Server.JSONLogs {
		log = logger.NewJSONLogger(os.Stdout, c.flags.Debug)
	} else {
		log = logger.NewLogger(c.flags.Debug)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistant, err := wiring.NewAssistant(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer assistant.Close()

	if cfg.Knowledge.Watch {
		go func() {
			if err := assistant.Knowledge.Watch(ctx); err != nil {
				log.Warn("knowledge watch stopped", zap.Error(err))
			}
		}()
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Version:    c.version,
	}, api.Deps{
		Assistant: assistant.Orchestrator,
		Tools:     assistant.Tools,
		Backend:   assistant.Backend,
		Knowledge: assistant.Knowledge,
	}, log)
	if err != nil {
		return fmt.Errorf("could not create api server: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down api server")
		if err := server.Shutdown(); err != nil {
			log.Error("api server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("sparky starting",
		zap.String("version", c.version),
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("model", assistant.Backend.Model()),
		zap.String("store", cfg.Store.Driver),
		zap.Int("max_iterations", assistant.Orchestrator.MaxIterations()),
	)

	return server.Run()
}
