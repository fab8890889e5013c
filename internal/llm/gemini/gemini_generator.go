package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/llm"
	"docextract/internal/port"
)

const (
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	providerName = "gemini"
)

// Generator implements port.TextGenerator using the Gemini generateContent API.
type Generator struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// NewGenerator creates a Gemini-backed generator from a provider config.
func NewGenerator(cfg *config.ParserProviderConfig) *Generator {
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURL
	}
	return newGenerator(cfg, base)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API base (for testing).
// The model name and ":generateContent" are appended to it.
func NewGeneratorWithEndpoint(cfg *config.ParserProviderConfig, baseURL string) *Generator {
	return newGenerator(cfg, baseURL)
}

func newGenerator(cfg *config.ParserProviderConfig, baseURL string) *Generator {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 5000
	}
	return &Generator{
		apiKey:    cfg.APIKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
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
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": input.Prompt.Body},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": maxTokens,
		},
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
	headers := map[string]string{"x-goog-api-key": g.apiKey}
	body, err := llm.PostJSON(ctx, g.client, providerName, endpoint, headers, reqBody)
	if err != nil {
		return nil, err
	}

	return parseResponse(ctx, body, model)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(ctx context.Context, body []byte, model string) (*port.GenerateOutput, error) {
	var resp geminiResponse
	if err := llm.DecodeResponse(providerName, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrNoChoices)
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, providerName, llm.ErrBlankText)
	}

	out := &port.GenerateOutput{
		Text:         text,
		Model:        model,
		Provider:     providerName,
		FinishReason: cand.FinishReason,
		Truncated:    cand.FinishReason == "MAX_TOKENS",
	}
	if out.Truncated {
		slog.WarnContext(ctx, "gemini.Generate: output truncated at token limit", "model", model)
	}
	return out, nil
}
