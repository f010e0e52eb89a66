package llm

// Result is the normalized outcome of one backend round-trip. It is either a
// TextResult or a CallResult.
type Result interface {
	isResult()
}

// TextResult is a final natural-language answer, or a normalized backend
// failure message (see IsErrorText).
type TextResult struct {
	Text string
}

// CallResult is a request from the model to invoke a tool.
type CallResult struct {
	Call FunctionCall
}

func (TextResult) isResult() {}
func (CallResult) isResult() {}
