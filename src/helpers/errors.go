package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type RelayError struct {
	Message string
	Cause   error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions on the ingestion and storage paths.
// MalformedPayload and Unauthorized map to 4xx responses; Persistence errors
// are logged and never surfaced to the ingesting caller.
type MalformedPayloadError struct{ RelayError }
type UnauthorizedError struct{ RelayError }
type PersistenceError struct{ RelayError }
type ConfigurationError struct{ RelayError }

// -----------------------------------------------------------------------------

func NewMalformedPayload(format string, args ...interface{}) error {
	return &MalformedPayloadError{RelayError{Message: fmt.Sprintf(format, args...)}}
}

func NewUnauthorized(msg string) error {
	return &UnauthorizedError{RelayError{Message: msg}}
}

func NewPersistence(msg string, cause error) error {
	return &PersistenceError{RelayError{Message: msg, Cause: cause}}
}

func NewConfiguration(format string, args ...interface{}) error {
	return &ConfigurationError{RelayError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------

func IsMalformedPayload(err error) bool {
	var target *MalformedPayloadError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff. Used when opening the durable store at boot; a
// transient open failure should not immediately degrade the relay to
// memory-only mode.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
