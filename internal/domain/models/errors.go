package models

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is a network failure before any HTTP response was received.
	ErrTransport = errors.New("transport error")
	// ErrRateLimited marks a single rate-limited response.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetriesExhausted is returned once the retry budget for a rate-limited request is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrHTTPStatus is a non-retryable error status (auth failures, not found, server errors).
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrParse is a malformed or unexpected response body.
	ErrParse = errors.New("parse error")

	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidWindow       = errors.New("invalid moving average window")

	ErrEmptyAggregate   = errors.New("empty aggregate")
	ErrMissingPrimary   = errors.New("primary asset unavailable")
	ErrIncompleteBasket = errors.New("basket incomplete")

	// ErrNoData means no basket asset could be loaded at all.
	ErrNoData = errors.New("no market data available")
)

// FetchError describes a failed provider request.
type FetchError struct {
	AssetID  string
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s", e.URL)
	if e.AssetID != "" {
		msg = fmt.Sprintf("fetch %s (%s)", e.AssetID, e.URL)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }
