package upstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for upstream fetches.
var (
	// ErrFetchFailed is matched by every error returned from Fetch.
	ErrFetchFailed = errors.New("failed to fetch product data")

	// ErrCircuitOpen is returned when the circuit breaker rejects a fetch.
	ErrCircuitOpen = errors.New("upstream circuit breaker is open")
)

// FetchError describes why an upstream fetch failed.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	Cause      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("upstream fetch %s failed: %s", e.URL, e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func newFetchError(url, reason string, cause error) *FetchError {
	return &FetchError{URL: url, Reason: reason, Cause: cause}
}
