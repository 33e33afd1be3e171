package ai

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrRateLimited indicates the provider throttled the request (HTTP 429).
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrInsufficientCredits indicates the provider account has no credits left (HTTP 402).
	ErrInsufficientCredits = errors.New("ai provider credits exhausted")
	// ErrSaturated is matched by SaturatedError.
	ErrSaturated = errors.New("all candidate models are saturated")
)

// ProviderError is a failed call to the model provider.
// StatusCode is 0 when the request never got an HTTP response.
type ProviderError struct {
	Model      string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("model %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s: status %d: %v", e.Model, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps provider statuses onto the sentinel errors.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrInsufficientCredits:
		return e.StatusCode == http.StatusPaymentRequired
	}
	return false
}

// SaturatedError is returned when every candidate model was tried without success.
type SaturatedError struct {
	RetryAfter time.Duration
	Last       error
}

func (e *SaturatedError) Error() string {
	if e.Last == nil {
		return ErrSaturated.Error()
	}
	return fmt.Sprintf("%s (last error: %v)", ErrSaturated, e.Last)
}

func (e *SaturatedError) Unwrap() error { return ErrSaturated }
