// Package providers wires the concrete LLM backends into the llm factory and
// assembles the configured retry and fallback chain.
package providers

import (
	"fmt"
	"log/slog"
	"sync"

	"docextract/internal/config"
	"docextract/internal/llm"
	"docextract/internal/llm/claude"
	"docextract/internal/llm/gemini"
	"docextract/internal/llm/openai"
	"docextract/internal/port"
)

var registerOnce sync.Once

// Register adds the openai, claude and gemini factories. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		llm.RegisterProvider("openai", func(cfg *config.ParserProviderConfig) (port.TextGenerator, error) {
			return openai.NewGenerator(cfg), nil
		})
		llm.RegisterProvider("claude", func(cfg *config.ParserProviderConfig) (port.TextGenerator, error) {
			return claude.NewGenerator(cfg), nil
		})
		llm.RegisterProvider("gemini", func(cfg *config.ParserProviderConfig) (port.TextGenerator, error) {
			return gemini.NewGenerator(cfg), nil
		})
	})
}

// Build creates one retrying generator per configured provider. With more
// than one provider they are chained in a FallbackGenerator and a rate limit
// moves on to the next provider instead of being retried. It returns the
// provider names in order.
func Build(cfg *config.ParserConfig) (port.TextGenerator, []string, error) {
	Register()

	configs := cfg.Providers()
	policy := llm.PolicyFromConfig(cfg)
	policy.PassRateLimits = len(configs) > 1
	var (
		generators []port.TextGenerator
		names      []string
	)
	for _, pc := range configs {
		if pc.APIKey == "" {
			slog.Warn("providers.Build: provider has no API key", "provider", pc.Provider)
		}
		g, err := llm.NewGenerator(pc)
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s generator: %w", pc.Provider, err)
		}
		generators = append(generators, llm.NewRetryGenerator(g, policy))
		names = append(names, pc.Provider)
	}

	if len(generators) == 1 {
		return generators[0], names, nil
	}
	return llm.NewFallbackGenerator(generators, names), names, nil
}
