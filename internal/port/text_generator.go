package port

import (
	"context"

	"docextract/internal/domain"
)

// GenerateInput carries the data needed for one text-generation call.
type GenerateInput struct {
	Prompt          domain.Prompt
	Model           string // overrides the provider's default model when set
	MaxOutputTokens int    // overrides the provider's default budget when > 0
}

// GenerateOutput contains the raw text returned by a provider.
type GenerateOutput struct {
	Text         string
	Model        string
	Provider     string
	FinishReason string
	Truncated    bool // output hit the token budget; Text holds what was produced
}

// TextGenerator abstracts LLM text generation.
type TextGenerator interface {
	Generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error)
}
