// Package apperr defines the error taxonomy shared by every stage of the
// price pipeline. Stages wrap these sentinels with context; callers classify
// with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means the provider does not know the symbol. Terminal.
	ErrNotFound = errors.New("symbol not found")
	// ErrProvider is a transient upstream failure (network, timeout, 5xx).
	ErrProvider = errors.New("provider error")
	// ErrMalformedData means the provider returned data that failed sanity checks.
	ErrMalformedData = errors.New("malformed price data")
	// ErrInsufficientData means the series is valid but too sparse for the computation.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput is a caller error caught at ingress.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with the offending symbol.
func NotFound(symbol string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, symbol)
}

// Provider wraps ErrProvider around the underlying cause.
func Provider(source string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, source, cause)
}

// Malformed wraps ErrMalformedData with a description.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...))
}

// Insufficient wraps ErrInsufficientData with the required and available sample counts.
func Insufficient(what string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d samples, have %d", ErrInsufficientData, what, need, have)
}

// HTTPStatus maps an error to the status code the boundary reports.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMalformedData):
		return http.StatusBadGateway
	case errors.Is(err, ErrProvider):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable error code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrMalformedData):
		return "malformed_data"
	case errors.Is(err, ErrProvider):
		return "provider_error"
	default:
		return "internal_error"
	}
}
