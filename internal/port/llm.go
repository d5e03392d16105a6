package port

import "context"

// LLM generates natural-language answers from retrieved context.
type LLM interface {
	// Generate produces a completion for the prompt. system may be empty.
	Generate(ctx context.Context, system, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
