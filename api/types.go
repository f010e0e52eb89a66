package api

import (
	"time"

	"github.com/papercomputeco/sparky/pkg/llm"
)

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Query   string             `json:"query"`
	History []llm.HistoryEntry `json:"history,omitempty"`
}

// ChatResponse is returned by POST /api/ai/chat. Validation failures set
// Error; every other outcome sets Response.
type ChatResponse struct {
	Success        bool   `json:"success"`
	Response       string `json:"response,omitempty"`
	Error          string `json:"error,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	ProcessingTime string `json:"processingTime,omitempty"`
	Iterations     int    `json:"iterations,omitempty"`
}

// TestResponse is returned by GET /api/ai/test.
type TestResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// KnowledgeDocument summarizes one cached knowledge document.
type KnowledgeDocument struct {
	Filename    string    `json:"filename"`
	Chars       int       `json:"chars"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// KnowledgeResponse is returned by GET /api/ai/knowledge.
type KnowledgeResponse struct {
	Documents []KnowledgeDocument `json:"documents"`
}
