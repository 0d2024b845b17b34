// Package providers holds thin HTTP clients over the upstream market data
// APIs. Each client normalizes responses into domain models and classifies
// transport failures into the shared error taxonomy so callers can decide
// between falling through to another provider and tripping a breaker.
package providers

import (
	"fmt"
	"net/http"

	"MarketScan/internal/domain/models"
)

// classifyStatus maps an HTTP status to a sentinel error, nil for 2xx.
func classifyStatus(provider string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", provider, status, models.ErrAuthFailure)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status %d: %w", provider, status, models.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("%s: status %d: %w", provider, status, models.ErrUnavailable)
	default:
		return fmt.Errorf("%s: unexpected status %d: %w", provider, status, models.ErrMalformed)
	}
}
