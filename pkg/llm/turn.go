package llm

import "fmt"

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// FunctionCall is a structured tool invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`

	// Signature is the opaque thought signature some backends attach to a
	// call. It must be sent back unchanged with the call on later turns.
	Signature []byte `json:"signature,omitempty"`
}

// FunctionResult is the rendered output of a tool invocation fed back to the model.
type FunctionResult struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// Turn represents one entry in a transcript. Exactly one of Text, FunctionCall
// or FunctionResult is set; use the constructors to build well-formed turns.
type Turn struct {
	Role           Role            `json:"role"`
	Text           string          `json:"text,omitempty"`
	FunctionCall   *FunctionCall   `json:"function_call,omitempty"`
	FunctionResult *FunctionResult `json:"function_result,omitempty"`
}

// UserText builds a user turn carrying text.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelText builds a model turn carrying text.
func ModelText(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// ModelCall builds a model turn carrying a function call.
func ModelCall(call FunctionCall) Turn {
	return Turn{Role: RoleModel, FunctionCall: &call}
}

// ToolResult builds a tool turn answering the function call named name.
func ToolResult(name, result string) Turn {
	return Turn{Role: RoleTool, FunctionResult: &FunctionResult{Name: name, Result: result}}
}

// Transcript is the ordered turn sequence of a single orchestration run.
type Transcript []Turn

// Validate checks that every tool turn directly follows a model function call
// with the same name, and that each turn carries exactly one payload.
func (t Transcript) Validate() error {
	for i, turn := range t {
		payloads := 0
		if turn.Text != "" {
			payloads++
		}
		if turn.FunctionCall != nil {
			payloads++
		}
		if turn.FunctionResult != nil {
			payloads++
		}
		if payloads != 1 {
			return fmt.Errorf("turn %d: expected exactly one payload, got %d", i, payloads)
		}

		if turn.Role != RoleTool {
			continue
		}
		if turn.FunctionResult == nil {
			return fmt.Errorf("turn %d: tool turn without function result", i)
		}
		if i == 0 {
			return fmt.Errorf("turn %d: tool turn without preceding call", i)
		}
		prev := t[i-1]
		if prev.Role != RoleModel || prev.FunctionCall == nil {
			return fmt.Errorf("turn %d: tool turn must follow a model function call", i)
		}
		if prev.FunctionCall.Name != turn.FunctionResult.Name {
			return fmt.Errorf("turn %d: tool result %q does not answer call %q",
				i, turn.FunctionResult.Name, prev.FunctionCall.Name)
		}
	}
	return nil
}
