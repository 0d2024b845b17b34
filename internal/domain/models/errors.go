package models

import "errors"

// Fetch failure taxonomy. Every provider error is classified into one of
// these before it reaches the fallback chain; nothing else escapes a
// per-symbol operation.
var (
	// ErrUnavailable covers provider-down, circuit-open and timeout cases.
	// Callers degrade to an empty result.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRateLimited is a soft failure: fall through to the next provider
	// without opening the breaker.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrAuthFailure is a hard failure: open the provider's breaker.
	ErrAuthFailure = errors.New("provider auth failure")

	// ErrMalformed marks upstream data failing basic shape checks.
	// Treated as unavailable by the fallback chain.
	ErrMalformed = errors.New("malformed upstream response")

	// ErrInsufficientData marks a series below the minimum length for
	// analysis. Returned as null results, logged, never fatal.
	ErrInsufficientData = errors.New("insufficient data")
)

// IsHardFailure reports whether err should open the provider's breaker.
func IsHardFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure) || errors.Is(err, ErrMalformed)
}
