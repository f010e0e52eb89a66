package llm

// Options contains model inference parameters.
type Options struct {
	// Sampling parameters
	Temperature float32 `json:"temperature" toml:"temperature"` // Creativity (0.0-2.0)
	TopP        float32 `json:"top_p" toml:"top_p"`             // Nucleus sampling threshold

	// Length parameters
	MaxOutputTokens int32 `json:"max_output_tokens" toml:"max_output_tokens"` // Max tokens to generate
}

// DefaultOptions returns the generation parameters used for assistant replies.
func DefaultOptions() Options {
	return Options{
		Temperature:     0.7,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	}
}
