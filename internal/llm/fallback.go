package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docextract/internal/domain"
	"docextract/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackGenerator tries generators in order, skipping those with open
// circuits. It implements port.TextGenerator.
type FallbackGenerator struct {
	generators []port.TextGenerator
	circuits   []*circuitState
	names      []string
	now        func() time.Time
}

// NewFallbackGenerator creates a FallbackGenerator from an ordered list of generators and their names.
func NewFallbackGenerator(generators []port.TextGenerator, names []string) *FallbackGenerator {
	circuits := make([]*circuitState, len(generators))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackGenerator{
		generators: generators,
		circuits:   circuits,
		names:      names,
		now:        time.Now,
	}
}

// Names returns the provider names in fallback order.
func (f *FallbackGenerator) Names() []string {
	return append([]string(nil), f.names...)
}

func (f *FallbackGenerator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, g := range f.generators {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			slog.WarnContext(ctx, "llm.FallbackGenerator: skipping provider",
				"provider", f.names[i], "circuit_open_until", resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := g.Generate(ctx, input)
		if err == nil {
			return out, nil
		}

		slog.WarnContext(ctx, "llm.FallbackGenerator: provider failed", "provider", f.names[i], "error", err)
		lastErr = err

		var genErr *domain.GenerationError
		if errors.As(err, &genErr) && genErr.Kind == domain.GenerationRateLimited {
			resetAt := now.Add(genErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}

		if ctx.Err() != nil {
			break
		}
	}

	// Either every provider was skipped or every attempt was rate limited.
	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(f.now())
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
