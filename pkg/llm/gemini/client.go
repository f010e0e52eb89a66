// Package gemini implements llm.Client on top of the Gemini API using
// google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/papercomputeco/sparky/pkg/llm"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second

	pingPrompt = "Hello, are you working?"
)

// Normalized failure messages. Each starts with llm.ErrorTextPrefix.
const (
	ErrTextModelNotFound   = llm.ErrorTextPrefix + "Model not found"
	ErrTextRateLimited     = llm.ErrorTextPrefix + "Rate limit exceeded"
	ErrTextTimedOut        = llm.ErrorTextPrefix + "Request timed out"
	ErrTextRequestFailed   = llm.ErrorTextPrefix + "Request failed"
	ErrTextNoResponse      = llm.ErrorTextPrefix + "No response generated"
	ErrTextUnexpectedShape = llm.ErrorTextPrefix + "Unexpected response format"
)

// Config configures a Client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API endpoint.
	BaseURL string

	// Timeout bounds a single backend round-trip.
	Timeout time.Duration

	Options llm.Options
}

// Client is an llm.Client backed by the Gemini generateContent API.
type Client struct {
	config Config
	models *genai.Models
	logger *zap.Logger
}

var _ llm.Client = (*Client)(nil)

// New creates a Client. Zero-valued Model, Timeout and Options fall back to
// their defaults.
func New(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Options == (llm.Options{}) {
		config.Options = llm.DefaultOptions()
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		config: config,
		models: client.Models,
		logger: logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Generate sends one generateContent request. The call is bounded by the
// configured timeout; cancellation of ctx is the only error returned.
func (c *Client) Generate(ctx context.Context, transcript []llm.Turn, systemInstruction string, tools []llm.ToolDeclaration) (llm.Result, error) {
	contents, err := toContents(transcript)
	if err != nil {
		c.logger.Error("invalid transcript", zap.Error(err))
		return llm.TextResult{Text: ErrTextRequestFailed}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	c.logger.Debug("sending generate request",
		zap.String("model", c.config.Model),
		zap.Int("turns", len(contents)),
		zap.Int("tools", len(tools)),
	)

	resp, err := c.models.GenerateContent(callCtx, c.config.Model, contents, c.generateConfig(systemInstruction, tools))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text := MapError(err)
		c.logger.Warn("generate request failed",
			zap.String("model", c.config.Model),
			zap.String("normalized", text),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return llm.TextResult{Text: text}, nil
	}

	result := fromResponse(resp)
	c.logger.Debug("received generate response",
		zap.String("kind", kindOf(result)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Ping sends a fixed prompt without tools and returns the backend's answer,
// which may be a normalized failure message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	res, err := c.Generate(ctx, []llm.Turn{llm.UserText(pingPrompt)}, "", nil)
	if err != nil {
		return "", err
	}

	switch r := res.(type) {
	case llm.TextResult:
		return r.Text, nil
	case llm.CallResult:
		return "", fmt.Errorf("unexpected function call %q", r.Call.Name)
	default:
		return ErrTextUnexpectedShape, nil
	}
}

func (c *Client) generateConfig(systemInstruction string, tools []llm.ToolDeclaration) *genai.GenerateContentConfig {
	opts := c.config.Options
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		TopP:            genai.Ptr(opts.TopP),
		MaxOutputTokens: opts.MaxOutputTokens,
	}

	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	if tools != nil {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, toFunctionDeclaration(t))
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}

// MapError converts a backend failure into a short, stable message.
func MapError(err error) string {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			apiErr = *apiErrPtr
		}
	}

	switch {
	case apiErr.Code == 404:
		return ErrTextModelNotFound
	case apiErr.Code == 429:
		return ErrTextRateLimited
	case apiErr.Code != 0:
		return fmt.Sprintf("%s%d", llm.ErrorTextPrefix, apiErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTextTimedOut
	default:
		return ErrTextRequestFailed
	}
}

func kindOf(r llm.Result) string {
	switch r.(type) {
	case llm.CallResult:
		return "function_call"
	case llm.TextResult:
		return "text"
	default:
		return "unknown"
	}
}
