// Package tools implements the fixed set of read-only lookups the model may
// call: get_users, get_files and get_messages. Each tool queries one data
// collaborator and renders a bounded, human-readable summary.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/store"
)

// Tool names advertised to the model.
const (
	GetUsers    = "get_users"
	GetFiles    = "get_files"
	GetMessages = "get_messages"
)

const (
	// ErrorPrefix starts every rendered tool failure.
	ErrorPrefix = "Error executing tool: "

	// UnknownToolPrefix starts the result for a tool name not in the registry.
	UnknownToolPrefix = "Unknown tool: "

	// MaxResultChars caps every rendered tool result.
	MaxResultChars = 4000

	// MaxLimit caps the limit argument of get_files and get_messages.
	MaxLimit = 50
)

// ErrUnknownTool is wrapped by the ToolError returned for unregistered names.
var ErrUnknownTool = errors.New("unknown tool")

// ToolError is a failure inside a tool handler.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return e.Tool + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

type handler func(ctx context.Context, args map[string]any) (string, error)

type tool struct {
	decl llm.ToolDeclaration
	run  handler
}

// Registry declares the available tools and dispatches calls to them.
// It is constructed once and safe for concurrent use.
type Registry struct {
	collab store.Collaborators
	logger *zap.Logger
	tools  []tool
	index  map[string]int
}

// NewRegistry creates a Registry whose tools read from collab.
func NewRegistry(collab store.Collaborators, logger *zap.Logger) *Registry {
	r := &Registry{
		collab: collab,
		logger: logger,
	}

	r.tools = []tool{
		{decl: usersDeclaration, run: decoded(r.Users)},
		{decl: filesDeclaration, run: decoded(r.Files)},
		{decl: messagesDeclaration, run: decoded(r.Messages)},
	}

	r.index = make(map[string]int, len(r.tools))
	for i, t := range r.tools {
		r.index[t.decl.Name] = i
	}

	return r
}

// Specs returns the tool declarations in a stable order.
func (r *Registry) Specs() []llm.ToolDeclaration {
	specs := make([]llm.ToolDeclaration, len(r.tools))
	for i, t := range r.tools {
		specs[i] = t.decl
	}
	return specs
}

// Execute runs the named tool and always returns text for the model. Failures
// are rendered with RenderError.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	result, err := r.Run(ctx, name, args)
	if err != nil {
		return RenderError(name, err)
	}
	return result
}

// RenderError converts a Run failure into the text fed back to the model:
// UnknownToolPrefix for unregistered names, ErrorPrefix otherwise.
func RenderError(name string, err error) string {
	if errors.Is(err, ErrUnknownTool) {
		return UnknownToolPrefix + name
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return ErrorPrefix + toolErr.Err.Error()
	}
	return ErrorPrefix + err.Error()
}

// Run runs the named tool and returns its rendered result or a *ToolError.
// A panicking handler is recovered into a ToolError.
func (r *Registry) Run(ctx context.Context, name string, args map[string]any) (result string, err error) {
	i, ok := r.index[name]
	if !ok {
		r.logger.Warn("unknown tool requested", zap.String("tool", name))
		return "", &ToolError{Tool: name, Err: ErrUnknownTool}
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = &ToolError{Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
		if err != nil {
			r.logger.Error("tool execution failed", zap.String("tool", name), zap.Error(err))
			return
		}
		r.logger.Debug("tool executed",
			zap.String("tool", name),
			zap.Int("result_len", len(result)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	result, err = r.tools[i].run(ctx, args)
	if err != nil {
		return "", &ToolError{Tool: name, Err: err}
	}
	return capOutput(result), nil
}

// decoded adapts a typed handler to the raw argument map sent by the model.
func decoded[A any](fn func(context.Context, A) (string, error)) handler {
	return func(ctx context.Context, raw map[string]any) (string, error) {
		var args A
		if len(raw) > 0 {
			data, err := json.Marshal(raw)
			if err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if err := json.Unmarshal(data, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
		}
		return fn(ctx, args)
	}
}

const truncationMarker = "\n... [truncated]"

func capOutput(s string) string {
	if len(s) <= MaxResultChars {
		return s
	}
	cut := MaxResultChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

// clampLimit applies the default for missing or non-positive limits and caps
// the rest at MaxLimit.
func clampLimit(limit, def int) int {
	switch {
	case limit < 1:
		return def
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
