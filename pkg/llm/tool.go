package llm

import (
	"maps"
	"slices"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

// ParameterSpec declares a single tool parameter.
type ParameterSpec struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required,omitempty"`
}

// ToolDeclaration is the schema of a tool advertised to the model.
type ToolDeclaration struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
}

// ParamNames returns the parameter names in sorted order.
func (d ToolDeclaration) ParamNames() []string {
	return slices.Sorted(maps.Keys(d.Parameters))
}

// Required returns the names of required parameters in sorted order.
func (d ToolDeclaration) Required() []string {
	var required []string
	for _, name := range d.ParamNames() {
		if d.Parameters[name].Required {
			required = append(required, name)
		}
	}
	return required
}
