package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCancellable is returned when a cancel target is absent, already
	// terminal, or owned by someone else. The three cases are deliberately
	// indistinguishable to the caller.
	ErrNotCancellable = errors.New("order not found or not cancellable")

	// ErrInsufficientLiquidity is returned when a FOK order cannot be fully
	// filled by the book. The order is rejected atomically: no trades, no
	// book mutation.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for fill-or-kill order")

	// ErrInstrumentHalted is returned for any operation on an instrument
	// whose processor was halted by an invariant violation.
	ErrInstrumentHalted = errors.New("instrument halted")

	// ErrMarketClosed is returned when the target market is paused or settled.
	ErrMarketClosed = errors.New("market is not open for trading")
)

// ValidationError describes a malformed or out-of-bounds order request,
// rejected before it reaches the book.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvariantError indicates book corruption: a state that must never occur.
// It halts the affected instrument's processor and is surfaced to operators
// rather than silently swallowed.
type InvariantError struct {
	Instrument string
	Detail     string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Instrument, e.Detail)
}

// Unwrap lets callers treat the halting call like any later call on the
// poisoned instrument: errors.Is(err, ErrInstrumentHalted) holds for both.
func (e *InvariantError) Unwrap() error { return ErrInstrumentHalted }
