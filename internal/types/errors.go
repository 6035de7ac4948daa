package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError covers malformed input: non-positive or oversized
// quantities, unknown symbols, non-positive amounts. Rejected before any lock
// is taken and before any row is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InsufficientFundsError is a business-rule failure carrying the shortfall so
// callers can report exactly how much was missing.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s (short %s)",
		e.Required.StringFixed(2), e.Available.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// InsufficientSharesError carries owned-vs-requested counts.
type InsufficientSharesError struct {
	Symbol    string
	Owned     int64
	Requested int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: requested %d, owned %d",
		e.Symbol, e.Requested, e.Owned)
}

// ExternalError marks a price or instrument lookup failure. Surfaced to the
// caller distinctly from validation errors so the client can retry.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
