package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/port"
)

// RetryPolicy bounds the exponential backoff applied by RetryGenerator.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// PassRateLimits returns rate-limit errors without retrying so an
	// enclosing FallbackGenerator can move to the next provider.
	PassRateLimits bool
}

// PolicyFromConfig reads the retry settings of the parser config.
func PolicyFromConfig(cfg *config.ParserConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}
}

// Delay returns the wait before the given retry (1-based). A rate-limit
// error raises it to the server's Retry-After, still capped by MaxDelay.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	d := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) && genErr.Kind == domain.GenerationRateLimited && genErr.RetryAfter > d {
		d = genErr.RetryAfter
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// RetryGenerator repeats transient failures of the wrapped generator.
// Empty, undecodable and 4xx responses are returned at once.
type RetryGenerator struct {
	next   port.TextGenerator
	policy RetryPolicy
	after  func(time.Duration) <-chan time.Time
}

// NewRetryGenerator wraps next with policy.
func NewRetryGenerator(next port.TextGenerator, policy RetryPolicy) *RetryGenerator {
	return &RetryGenerator{next: next, policy: policy, after: time.After}
}

func (r *RetryGenerator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.policy.Delay(attempt, lastErr)
			slog.WarnContext(ctx, "llm.RetryGenerator: retrying",
				"attempt", attempt+1, "backoff", backoff.String(), "error", lastErr)
			select {
			case <-r.after(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("retry aborted: %w", lastErr)
			}
		}

		out, err := r.next.Generate(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if r.policy.PassRateLimits && IsRateLimited(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", r.policy.MaxRetries+1, lastErr)
}
