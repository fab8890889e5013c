package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/llm"
	"docextract/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
	defaultMax   = 5000
)

// Generator implements port.TextGenerator using the OpenAI Chat Completions API.
type Generator struct {
	apiKey       string
	organization string
	project      string
	model        string
	maxTokens    int
	endpoint     string
	client       *http.Client
}

// NewGenerator creates an OpenAI-backed generator from a provider config.
func NewGenerator(cfg *config.ParserProviderConfig) *Generator {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = apiURL
	}
	return newGenerator(cfg, endpoint)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API endpoint (for testing).
func NewGeneratorWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Generator {
	return newGenerator(cfg, endpoint)
}

func newGenerator(cfg *config.ParserProviderConfig, endpoint string) *Generator {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMax
	}
	return &Generator{
		apiKey:       cfg.APIKey,
		organization: cfg.Organization,
		project:      cfg.Project,
		model:        model,
		maxTokens:    maxTokens,
		endpoint:     endpoint,
		client:       &http.Client{Timeout: cfg.Timeout()},
	}
}

func (g *Generator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	model := g.model
	if input.Model != "" {
		model = input.Model
	}
	maxTokens := g.maxTokens
	if input.MaxOutputTokens > 0 {
		maxTokens = input.MaxOutputTokens
	}

	// The whole prompt travels as a single system message.
	reqBody := map[string]interface{}{
		"model":      model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "system",
				"content": input.Prompt.Body,
			},
		},
	}

	headers := map[string]string{
		"Authorization":       "Bearer " + g.apiKey,
		"OpenAI-Organization": g.organization,
		"OpenAI-Project":      g.project,
	}
	body, err := llm.PostJSON(ctx, g.client, providerName, g.endpoint, headers, reqBody)
	if err != nil {
		return nil, err
	}

	return parseResponse(ctx, body, model)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(ctx context.Context, body []byte, model string) (*port.GenerateOutput, error) {
	var resp apiResponse
	if err := llm.DecodeResponse(providerName, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrNoChoices)
	}

	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrBlankText)
	}

	if resp.Model != "" {
		model = resp.Model
	}
	out := &port.GenerateOutput{
		Text:         choice.Message.Content,
		Model:        model,
		Provider:     providerName,
		FinishReason: choice.FinishReason,
		Truncated:    choice.FinishReason == "length",
	}
	if out.Truncated {
		slog.WarnContext(ctx, "openai.Generate: output truncated at token limit", "model", model)
	}
	return out, nil
}
