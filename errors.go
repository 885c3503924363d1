package capgains

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced portfolio, holding, asset, lot or summary does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned before any store access when a request is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientLots is returned when open lots cannot cover a sale.
	ErrInsufficientLots = errors.New("insufficient lots")
	// ErrConflict is returned by stores when a lot changed since it was read.
	ErrConflict = errors.New("lot version conflict")
	// ErrConcurrentModification is returned when conflicts persist after all retries.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// InsufficientLotsError reports a sale that open lots cannot fully satisfy.
// Partial holds the breakdown of what could be matched.
type InsufficientLotsError struct {
	HoldingID string
	Requested Quantity
	Available Quantity
	Partial   SaleEvent
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("cannot fully satisfy sale of %s on holding %s: only %s available in open lots", e.Requested, e.HoldingID, e.Available)
}

func (e *InsufficientLotsError) Unwrap() error { return ErrInsufficientLots }

// ErrorKind returns a stable identifier of the error class, for structured error results.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientLots):
		return "insufficient_lots"
	case errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrConflict):
		return "concurrent_modification"
	default:
		return "internal"
	}
}
