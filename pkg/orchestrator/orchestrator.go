// Package orchestrator runs the function-calling loop: it sends the
// conversation to the model, executes the tools the model asks for, feeds the
// results back and stops at the first text answer or when the iteration
// budget is spent.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/llm"
)

const (
	// DefaultMaxIterations bounds the model round-trips of one run.
	DefaultMaxIterations = 5

	// FallbackMessage is returned when the budget runs out without a text answer.
	FallbackMessage = "I had trouble formulating a response. Can you rephrase that?"
)

// ErrEmptyQuery is returned by Run for a blank query. No model call is made.
var ErrEmptyQuery = errors.New("query cannot be empty")

// ToolExecutor advertises tools to the model and runs them. Execute never
// fails: problems are rendered into the returned text.
type ToolExecutor interface {
	Specs() []llm.ToolDeclaration
	Execute(ctx context.Context, name string, args map[string]any) string
}

// KnowledgeSource supplies reference text for the system instruction.
type KnowledgeSource interface {
	Content(ctx context.Context) string
}

// Config configures an Orchestrator.
type Config struct {
	// MaxIterations is the number of model round-trips allowed per run.
	MaxIterations int

	// Persona replaces DefaultPersona when set.
	Persona string
}

// Result is the outcome of one run.
type Result struct {
	FinalText      string `json:"final_text"`
	Succeeded      bool   `json:"succeeded"`
	IterationsUsed int    `json:"iterations_used"`
}

// Orchestrator is safe for concurrent use; each Run owns its transcript.
type Orchestrator struct {
	client    llm.Client
	tools     ToolExecutor
	knowledge KnowledgeSource
	config    Config
	observer  Observer
	logger    *zap.Logger
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithObserver registers fn to receive every state transition.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// New creates an Orchestrator. knowledge may be nil.
func New(client llm.Client, tools ToolExecutor, knowledge KnowledgeSource, config Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if config.MaxIterations < 1 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.Persona == "" {
		config.Persona = DefaultPersona
	}

	o := &Orchestrator{
		client:    client,
		tools:     tools,
		knowledge: knowledge,
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxIterations returns the configured iteration budget.
func (o *Orchestrator) MaxIterations() int {
	return o.config.MaxIterations
}

// Run answers query in the context of history. Every model round-trip
// counts as one iteration, whether it produced a tool call or text. When
// the budget is exhausted Run returns FallbackMessage with Succeeded false
// and a nil error. The only errors are ErrEmptyQuery and ctx cancellation.
func (o *Orchestrator) Run(ctx context.Context, query string, history []llm.HistoryEntry) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	start := time.Now()
	specs := o.tools.Specs()

	var knowledge string
	if o.knowledge != nil {
		knowledge = o.knowledge.Content(ctx)
	}
	sys := systemInstruction(o.config.Persona, specs, knowledge)
	turns := transcript(history, query)

	o.logger.Info("orchestration started",
		zap.String("query_preview", truncate(query, 100)),
		zap.Int("history", len(history)),
		zap.Int("knowledge_chars", len(knowledge)),
	)

	for i := 1; i <= o.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		o.emit(Event{Iteration: i, State: AwaitingModel})

		o.logger.Debug("calling model",
			zap.Int("iteration", i),
			zap.Int("max_iterations", o.config.MaxIterations),
			zap.Int("turns", len(turns)),
		)

		res, err := o.client.Generate(ctx, turns, sys, specs)
		if err != nil {
			o.logger.Warn("model call aborted", zap.Int("iteration", i), zap.Error(err))
			return Result{}, err
		}

		switch r := res.(type) {
		case llm.CallResult:
			o.emit(Event{Iteration: i, State: ExecutingTool, Tool: r.Call.Name})
			o.logger.Info("executing tool",
				zap.Int("iteration", i),
				zap.String("tool", r.Call.Name),
				zap.Any("args", r.Call.Args),
			)

			turns = append(turns, llm.ModelCall(r.Call))
			output := o.tools.Execute(ctx, r.Call.Name, r.Call.Args)
			turns = append(turns, llm.ToolResult(r.Call.Name, output))

			o.logger.Debug("tool result",
				zap.String("tool", r.Call.Name),
				zap.String("result_preview", truncate(output, 100)),
			)

		case llm.TextResult:
			o.emit(Event{Iteration: i, State: Done})
			result := Result{
				FinalText:      r.Text,
				Succeeded:      !llm.IsErrorText(r.Text),
				IterationsUsed: i,
			}
			o.logger.Info("orchestration completed",
				zap.Int("iterations", i),
				zap.Bool("succeeded", result.Succeeded),
				zap.Duration("duration", time.Since(start)),
			)
			return result, nil

		default:
			o.emit(Event{Iteration: i, State: Done})
			o.logger.Error("unrecognized model result", zap.Int("iteration", i))
			return Result{
				FinalText:      llm.ErrorTextPrefix + "Unexpected response format",
				IterationsUsed: i,
			}, nil
		}
	}

	o.emit(Event{Iteration: o.config.MaxIterations, State: Done})
	o.logger.Warn("iteration budget exhausted",
		zap.Int("max_iterations", o.config.MaxIterations),
		zap.Duration("duration", time.Since(start)),
	)
	return Result{
		FinalText:      FallbackMessage,
		Succeeded:      false,
		IterationsUsed: o.config.MaxIterations,
	}, nil
}

func (o *Orchestrator) emit(e Event) {
	if o.observer != nil {
		o.observer(e)
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
