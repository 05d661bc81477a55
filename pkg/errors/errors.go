package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrNoInput is returned when neither locations nor snap IDs were given.
var ErrNoInput = stderrors.New("no locations or snap IDs given")

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// ParseError reports malformed user input such as a coordinate pair or a
// time filter.
type ParseError struct {
	Kind   string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s [%s]: %s", e.Kind, e.Input, e.Reason)
}

// MissingEpochError is returned when the tile set endpoint yields no HEAT
// epoch. Body holds the raw response for the diagnostic.
type MissingEpochError struct {
	Body string
	Err  error
}

func (e *MissingEpochError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("the API epoch could not be obtained: %v (response: %q)", e.Err, e.Body)
	}
	return fmt.Sprintf("the API epoch could not be obtained (response: %q)", e.Body)
}

func (e *MissingEpochError) Unwrap() error {
	return e.Err
}
