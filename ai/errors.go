package ai

import (
	"context"
	"errors"
	"net"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrMalformedResponse indicates the model output could not be parsed
	// into the expected JSON document.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrRateLimited indicates a call could not obtain a slot in the shared
	// call budget before its deadline. Backend refusals (HTTP 429) surface as
	// *llms.Error with the rate limit code instead.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrUnknownProvider indicates Config.Provider names no supported backend.
	ErrUnknownProvider = errors.New("unknown ai provider")
)

// IsTransient reports whether err is worth one more attempt: timeouts, local
// or backend rate limiting, an unavailable backend and unparseable output.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if llms.IsRateLimitError(err) ||
		llms.IsTimeoutError(err) ||
		llms.IsProviderUnavailableError(err) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
