package agent

import (
	"errors"
	"fmt"
	"net/http"
)

// FatalError marks a backend failure that retrying cannot fix (bad key,
// malformed request, unknown model).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// StatusError is a non-200 response from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// classifyStatus wraps 4xx responses other than 408/429 as fatal.
func classifyStatus(code int, body string) error {
	err := &StatusError{StatusCode: code, Body: body}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return NewFatalError(err)
	}
	return err
}
