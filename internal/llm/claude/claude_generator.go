package claude

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
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
)

// Generator implements port.TextGenerator using the Anthropic Messages API.
type Generator struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
}

// NewGenerator creates a Claude-backed generator from a provider config.
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
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 5000
	}
	return &Generator{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: cfg.Timeout()},
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

	reqBody := map[string]interface{}{
		"model":      model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt.Body,
			},
		},
	}

	headers := map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": apiVersion,
	}
	body, err := llm.PostJSON(ctx, g.client, providerName, g.endpoint, headers, reqBody)
	if err != nil {
		return nil, err
	}

	return parseResponse(ctx, body, model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(ctx context.Context, body []byte, model string) (*port.GenerateOutput, error) {
	var resp apiResponse
	if err := llm.DecodeResponse(providerName, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrNoChoices)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrBlankText)
	}

	if resp.Model != "" {
		model = resp.Model
	}
	out := &port.GenerateOutput{
		Text:         text,
		Model:        model,
		Provider:     providerName,
		FinishReason: resp.StopReason,
		Truncated:    resp.StopReason == "max_tokens",
	}
	if out.Truncated {
		slog.WarnContext(ctx, "claude.Generate: output truncated at token limit", "model", model)
	}
	return out, nil
}
