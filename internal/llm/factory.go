package llm

import (
	"fmt"
	"sort"

	"docextract/internal/config"
	"docextract/internal/port"
)

// ProviderFactory creates a TextGenerator from a provider config.
type ProviderFactory func(cfg *config.ParserProviderConfig) (port.TextGenerator, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewGenerator creates a TextGenerator from a provider config using the registered factory.
func NewGenerator(cfg *config.ParserProviderConfig) (port.TextGenerator, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// RegisteredProviders lists the registered provider names, sorted.
func RegisteredProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
