package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrTimeout indicates the hard per-call deadline elapsed.
var ErrTimeout = errors.New("llm request timed out")

// ErrRateLimited indicates the provider rejected the call with a
// rate-limit or temporary-unavailability status.
var ErrRateLimited = errors.New("llm rate limited")

// isRetryable reports whether the error is a transient transport
// condition: rate limit (429), service unavailable (503), or a timeout.
func isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 503
	}
	return errors.Is(err, context.DeadlineExceeded)
}
