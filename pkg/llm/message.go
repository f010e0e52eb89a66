package llm

// HistoryEntry is a caller-supplied prior exchange replayed into a new run.
type HistoryEntry struct {
	Role string `json:"role"` // "user" or anything else, which is treated as the model
	Text string `json:"text"`
}
