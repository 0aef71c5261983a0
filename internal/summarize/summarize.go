// Package summarize selects unsummarized message batches, produces summaries
// through a pluggable LLM backend, and marks delivered batches as processed.
package summarize

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyInput rejects empty summarization input before any network call.
var ErrEmptyInput = errors.New("summarization input is empty")

// Summarizer is a single opaque text-in/text-out call. Implementations fail
// with *AuthError or *APIError; both are non-retriable within one cycle.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Sink receives the produced summary. Transport concerns such as chunking
// belong to the sink, not the cycle.
type Sink interface {
	Deliver(ctx context.Context, summary string) error
}

// AuthError means credentials are invalid or missing. It is surfaced
// distinctly so an operator can fix configuration instead of waiting out
// retries.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError covers transient upstream failures: non-2xx responses, malformed
// response bodies, and network errors. Eligible for retry on a later cycle.
type APIError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("api error: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("api error: %s", e.Reason)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// ConsoleSink prints the summary to standard output. Used by CLI runs and as
// the scheduled task fallback when no delivery chat is configured.
type ConsoleSink struct{}

func (ConsoleSink) Deliver(_ context.Context, summary string) error {
	fmt.Println(summary)
	return nil
}
