// File: internal/services/transport/errors.go
package transport

import "fmt"

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeValidation ErrorType = "VALIDATION"
)

type TransportError struct {
	Type    ErrorType
	Code    int
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport %s error: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport %s error: %s", e.Type, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Retryable reports whether sending the same submission again may succeed.
func (e *TransportError) Retryable() bool {
	switch e.Type {
	case ErrTypeConfig, ErrTypeValidation:
		return false
	case ErrTypeProvider:
		// 4xx other than rate limiting will fail the same way again
		return e.Code == 0 || e.Code >= 500
	}
	return true
}
