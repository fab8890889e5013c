package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"docextract/internal/domain"
)

var (
	ErrNoChoices = errors.New("empty response from API: no choices")
	ErrBlankText = errors.New("empty response from API: blank text")
)

// NewRateLimitError creates a rate-limited GenerationError. If retryAfterSecs
// is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *domain.GenerationError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &domain.GenerationError{
		Kind:       domain.GenerationRateLimited,
		Provider:   provider,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Err:        err,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// StatusError classifies a non-2xx response. 429 becomes a rate limit with
// the server's Retry-After.
func StatusError(provider string, resp *http.Response, body []byte) *domain.GenerationError {
	baseErr := fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, truncate(string(body), 500))
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return NewRateLimitError(provider, baseErr, retryAfter)
	}
	genErr := domain.NewGenerationError(domain.GenerationStatus, provider, baseErr)
	genErr.StatusCode = resp.StatusCode
	return genErr
}

// TransportError classifies a failed round trip as a timeout or a network error.
func TransportError(provider string, err error) *domain.GenerationError {
	if isTimeout(err) {
		return domain.NewGenerationError(domain.GenerationTimeout, provider, err)
	}
	return domain.NewGenerationError(domain.GenerationNetwork, provider, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRateLimited reports whether err is a provider rate limit.
func IsRateLimited(err error) bool {
	var genErr *domain.GenerationError
	return errors.As(err, &genErr) && genErr.Kind == domain.GenerationRateLimited
}

// Retryable reports whether a failed call may succeed if repeated.
func Retryable(err error) bool {
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		return false
	}
	switch genErr.Kind {
	case domain.GenerationNetwork, domain.GenerationTimeout, domain.GenerationRateLimited:
		return true
	case domain.GenerationStatus:
		return genErr.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
