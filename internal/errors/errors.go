// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrPositionNotFound = errors.New("position not found")
	ErrMarketNotFound   = errors.New("market not found")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrLiveKeyMissing   = errors.New("private key required for live trading")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// MarketError represents an error from the market-data API.
type MarketError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *MarketError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("market api error [%s] status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("market api error [%s]: %v", e.Endpoint, e.Err)
}

func (e *MarketError) Unwrap() error {
	return e.Err
}

// NewMarketError creates a new MarketError.
func NewMarketError(endpoint string, status int, err error) *MarketError {
	return &MarketError{
		Endpoint: endpoint,
		Status:   status,
		Err:      err,
	}
}

// ExecutionError represents a failure while submitting an order.
type ExecutionError struct {
	MarketID string
	TokenID  string
	Side     string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [%s] %s %s: %v", e.MarketID, e.Side, e.TokenID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(marketID, tokenID, side string, err error) *ExecutionError {
	return &ExecutionError{
		MarketID: marketID,
		TokenID:  tokenID,
		Side:     side,
		Err:      err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
