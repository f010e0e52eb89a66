package llm

import "context"

// Client sends a transcript to a model backend and returns its normalized
// response.
//
// Backend failures (transport errors, rate limiting, unknown model, malformed
// responses) are reported as a TextResult whose text starts with
// ErrorTextPrefix. The returned error is reserved for cancellation of ctx.
// A nil tools slice disables function calling for the request.
type Client interface {
	Generate(ctx context.Context, transcript []Turn, systemInstruction string, tools []ToolDeclaration) (Result, error)
}
