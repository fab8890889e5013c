package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docextract/internal/domain"
)

// PostJSON sends body to endpoint and returns the raw 200 response. Every
// failure is a *domain.GenerationError tagged with provider.
func PostJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewGenerationError(domain.GenerationInvalidResponse, provider, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, domain.NewGenerationError(domain.GenerationNetwork, provider, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, TransportError(provider, fmt.Errorf("calling %s API: %w", provider, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError(provider, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, StatusError(provider, resp, respBody)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, domain.NewGenerationError(domain.GenerationEmptyResponse, provider, fmt.Errorf("empty response body"))
	}
	return respBody, nil
}

// DecodeResponse unmarshals a provider body into v.
func DecodeResponse(provider string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewGenerationError(domain.GenerationInvalidResponse, provider,
			fmt.Errorf("unmarshaling response: %w (raw: %s)", err, truncate(string(body), 500)))
	}
	return nil
}
