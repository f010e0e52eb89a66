package orchestrator

import (
	"strings"

	"github.com/papercomputeco/sparky/pkg/llm"
)

// DefaultPersona is the behavior preamble of the system instruction.
const DefaultPersona = `You're Sparky ⚡ - a warm, friendly, and helpful AI assistant!

YOUR PERSONALITY:
- Be conversational, friendly, and helpful like a supportive friend.
- Use casual language and emojis sparingly to add warmth 😊
- Answer ANY question the user asks - you're a general-purpose assistant.
- For general knowledge questions (science, history, celebrities, etc.), answer directly!
- Be enthusiastic and positive.`

// systemInstruction joins the persona, tool guidance and knowledge base text.
func systemInstruction(persona string, specs []llm.ToolDeclaration, knowledge string) string {
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\n")

	if len(specs) > 0 {
		sb.WriteString("CHILLSPACE FEATURES (use tools when asked about these):\n")
		sb.WriteString("You have access to tools to query the ChillSpace database:\n")
		for _, s := range specs {
			sb.WriteString("- " + s.Name + ": " + s.Description + "\n")
		}
		sb.WriteString("\nWhen users ask about ChillSpace members, users, files, or chat history, USE THE TOOLS!\n")
		sb.WriteString("After getting tool results, give a friendly, natural response.\n\n")
	}

	sb.WriteString("KNOWLEDGE BASE (if available):\n")
	sb.WriteString(knowledge)
	return sb.String()
}

// transcript seeds a run from caller history followed by the query. Entries
// with an empty role or text are dropped; any role other than "user" is
// treated as the model.
func transcript(history []llm.HistoryEntry, query string) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history)+1)
	for _, h := range history {
		if h.Role == "" || strings.TrimSpace(h.Text) == "" {
			continue
		}
		if h.Role == string(llm.RoleUser) {
			turns = append(turns, llm.UserText(h.Text))
		} else {
			turns = append(turns, llm.ModelText(h.Text))
		}
	}
	return append(turns, llm.UserText(query))
}
