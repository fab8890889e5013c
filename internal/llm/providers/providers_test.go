package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/llm"
	"docextract/internal/llm/providers"
	"docextract/internal/port"
)

func TestBuild_SingleProvider(t *testing.T) {
	cfg := &config.ParserConfig{Provider: "openai", APIKey: "k", MaxRetries: 2, RetryBaseDelay: time.Second}

	g, names, err := providers.Build(cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, names)
	assert.IsType(t, &llm.RetryGenerator{}, g)
}

func TestBuild_FallbackChain(t *testing.T) {
	cfg := &config.ParserConfig{
		Primary:   config.ParserProviderConfig{Provider: "openai", APIKey: "a"},
		Secondary: config.ParserProviderConfig{Provider: "claude", APIKey: "b"},
		Tertiary:  config.ParserProviderConfig{Provider: "gemini", APIKey: "c"},
	}

	g, names, err := providers.Build(cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "claude", "gemini"}, names)
	fg, ok := g.(*llm.FallbackGenerator)
	require.True(t, ok)
	assert.Equal(t, names, fg.Names())
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := &config.ParserConfig{Provider: "mystery"}

	_, _, err := providers.Build(cfg)

	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestRegister_Idempotent(t *testing.T) {
	providers.Register()
	providers.Register()

	assert.Subset(t, llm.RegisteredProviders(), []string{"claude", "gemini", "openai"})
}

func TestBuild_RateLimitedPrimaryFallsThroughWithoutRetry(t *testing.T) {
	var primaryHits, secondaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondaryHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "Nome = Acme"}, "finish_reason": "stop"},
			},
		})
	}))
	defer secondary.Close()

	cfg := &config.ParserConfig{
		Primary:        config.ParserProviderConfig{Provider: "openai", APIKey: "a", BaseURL: primary.URL},
		Secondary:      config.ParserProviderConfig{Provider: "openai", APIKey: "b", BaseURL: secondary.URL},
		MaxRetries:     2,
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  2 * time.Second,
	}
	g, _, err := providers.Build(cfg)
	require.NoError(t, err)

	start := time.Now()
	out, err := g.Generate(context.Background(), port.GenerateInput{
		Prompt: domain.Prompt{DocumentType: "recibo", Body: "extraia"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Nome = Acme", out.Text)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), secondaryHits.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestBuild_SingleProviderRetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "A = 1"}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		Provider: "openai", APIKey: "k", BaseURL: server.URL,
		MaxRetries: 1, RetryBaseDelay: time.Millisecond, RetryMaxDelay: 10 * time.Millisecond,
	}
	g, _, err := providers.Build(cfg)
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), port.GenerateInput{
		Prompt: domain.Prompt{DocumentType: "recibo", Body: "extraia"},
	})

	require.NoError(t, err)
	assert.Equal(t, "A = 1", out.Text)
	assert.Equal(t, int32(2), hits.Load())
}
