// Package api provides the HTTP surface of the assistant: the query endpoint,
// backend and tool introspection, and the MCP endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/knowledge"
	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/mcpserver"
	"github.com/papercomputeco/sparky/pkg/orchestrator"
	"github.com/papercomputeco/sparky/pkg/tools"
)

const (
	msgEmptyQuery   = "Query cannot be empty"
	msgBadBody      = "invalid request body"
	troublePrefix   = "Sorry, I'm having trouble: "
	msgNoBackend    = llm.ErrorTextPrefix + "No backend configured"
	timestampLayout = time.RFC3339
)

// Assistant answers a query given the caller's conversation history.
type Assistant interface {
	Run(ctx context.Context, query string, history []llm.HistoryEntry) (orchestrator.Result, error)
}

// Pinger checks that the model backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// KnowledgeLister reports the cached knowledge documents.
type KnowledgeLister interface {
	Entries(ctx context.Context) []knowledge.Entry
}

// Deps are the collaborators served by the API. Backend and Knowledge may be
// nil.
type Deps struct {
	Assistant Assistant
	Tools     *tools.Registry
	Backend   Pinger
	Knowledge KnowledgeLister
}

// Server is the assistant's HTTP server. It holds no per-conversation state;
// callers send their history with every query.
type Server struct {
	config Config
	deps   Deps
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new Server and registers its routes.
func NewServer(config Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Assistant == nil {
		return nil, errors.New("api server requires an assistant")
	}
	if deps.Tools == nil {
		return nil, errors.New("api server requires a tool registry")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	app.Use(recover.New())

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		app:    app,
	}

	app.Post("/api/ai/chat", s.handleChat)
	app.Get("/api/ai/test", s.handleTest)
	app.Get("/api/ai/tools", s.handleListTools)
	app.Get("/api/ai/knowledge", s.handleKnowledge)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok", "version": config.Version})
	})

	mcpServer := mcpserver.New(deps.Tools, config.Version)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, &mcp.StreamableHTTPOptions{Stateless: true})
	app.All("/mcp", adaptor.HTTPHandler(mcpHandler))

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting api server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server on an existing listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting api server", zap.String("listen", listener.Addr().String()))
	return s.app.Listener(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleChat runs one orchestration. Only validation failures produce a
// non-200 status; backend trouble is reported in the body.
func (s *Server) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(ChatResponse{Error: msgBadBody})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ChatResponse{Error: msgEmptyQuery})
	}

	s.logger.Debug("received chat request",
		zap.String("query_preview", truncate(req.Query, 100)),
		zap.Int("history", len(req.History)),
	)

	res, err := s.deps.Assistant.Run(c.UserContext(), req.Query, req.History)
	if errors.Is(err, orchestrator.ErrEmptyQuery) {
		return c.Status(fiber.StatusBadRequest).JSON(ChatResponse{Error: msgEmptyQuery})
	}
	if err != nil {
		s.logger.Error("orchestration failed", zap.Error(err))
		return c.JSON(ChatResponse{Response: troublePrefix + err.Error()})
	}

	duration := time.Since(startTime)
	s.logger.Info("chat answered",
		zap.Bool("success", res.Succeeded),
		zap.Int("iterations", res.IterationsUsed),
		zap.Duration("duration", duration),
	)

	return c.JSON(ChatResponse{
		Success:        res.Succeeded,
		Response:       res.FinalText,
		Timestamp:      time.Now().Format(timestampLayout),
		ProcessingTime: fmt.Sprintf("%dms", duration.Milliseconds()),
		Iterations:     res.IterationsUsed,
	})
}

// handleTest sends a fixed prompt to the backend.
func (s *Server) handleTest(c *fiber.Ctx) error {
	if s.deps.Backend == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(TestResponse{Response: msgNoBackend})
	}

	text, err := s.deps.Backend.Ping(c.UserContext())
	if err != nil {
		s.logger.Error("backend ping failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(TestResponse{Response: troublePrefix + err.Error()})
	}

	if llm.IsErrorText(text) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(TestResponse{Response: text})
	}
	return c.JSON(TestResponse{Success: true, Response: text})
}

// handleListTools returns the tool declarations advertised to the model.
func (s *Server) handleListTools(c *fiber.Ctx) error {
	return c.JSON(s.deps.Tools.Specs())
}

// handleKnowledge lists the cached knowledge documents without their text.
func (s *Server) handleKnowledge(c *fiber.Ctx) error {
	docs := []KnowledgeDocument{}
	if s.deps.Knowledge != nil {
		for _, e := range s.deps.Knowledge.Entries(c.UserContext()) {
			docs = append(docs, KnowledgeDocument{
				Filename:    e.Filename,
				Chars:       utf8.RuneCountInString(e.Text),
				RefreshedAt: e.RefreshedAt,
			})
		}
	}
	return c.JSON(KnowledgeResponse{Documents: docs})
}

// errorHandler renders unmatched routes and recovered panics as
// llm.ErrorResponse bodies.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(llm.ErrorResponse{Error: err.Error()})
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
