package gemini

import (
	"google.golang.org/genai"

	"github.com/papercomputeco/sparky/pkg/llm"
)

// toContents maps transcript turns onto Gemini contents. Tool results are
// sent back as user-role function responses.
func toContents(transcript []llm.Turn) ([]*genai.Content, error) {
	if err := llm.Transcript(transcript).Validate(); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(transcript))
	for _, t := range transcript {
		switch {
		case t.FunctionCall != nil:
			contents = append(contents, &genai.Content{
				Role: string(llm.RoleModel),
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{
						Name: t.FunctionCall.Name,
						Args: t.FunctionCall.Args,
					},
					ThoughtSignature: t.FunctionCall.Signature,
				}},
			})
		case t.FunctionResult != nil:
			contents = append(contents, &genai.Content{
				Role: string(llm.RoleUser),
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     t.FunctionResult.Name,
						Response: map[string]any{"result": t.FunctionResult.Result},
					},
				}},
			})
		default:
			role := llm.RoleUser
			if t.Role == llm.RoleModel {
				role = llm.RoleModel
			}
			contents = append(contents, &genai.Content{
				Role:  string(role),
				Parts: []*genai.Part{{Text: t.Text}},
			})
		}
	}
	return contents, nil
}

func toFunctionDeclaration(t llm.ToolDeclaration) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(t.Parameters))
	for _, name := range t.ParamNames() {
		p := t.Parameters[name]
		props[name] = &genai.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
		}
	}

	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   t.Required(),
		},
	}
}

func schemaType(p llm.ParamType) genai.Type {
	switch p {
	case llm.ParamInteger:
		return genai.TypeInteger
	default:
		return genai.TypeString
	}
}

// fromResponse disambiguates on the first part of the first candidate.
func fromResponse(resp *genai.GenerateContentResponse) llm.Result {
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.TextResult{Text: ErrTextNoResponse}
	}

	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return llm.TextResult{Text: ErrTextUnexpectedShape}
	}

	part := cand.Content.Parts[0]
	switch {
	case part.FunctionCall != nil:
		args := part.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return llm.CallResult{Call: llm.FunctionCall{
			Name:      part.FunctionCall.Name,
			Args:      args,
			Signature: part.ThoughtSignature,
		}}
	case part.Text != "":
		return llm.TextResult{Text: part.Text}
	default:
		return llm.TextResult{Text: ErrTextUnexpectedShape}
	}
}
