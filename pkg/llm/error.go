// Package llm provides the backend-agnostic representation of an LLM exchange:
// transcript turns, tool declarations, generation options and the normalized
// result a backend returns for a single round-trip.
package llm

import "strings"

// ErrorResponse represents an error body returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorTextPrefix marks a TextResult that carries a normalized backend failure
// rather than a model answer.
const ErrorTextPrefix = "Error: "

// IsErrorText reports whether text is a normalized backend failure message.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorTextPrefix)
}
