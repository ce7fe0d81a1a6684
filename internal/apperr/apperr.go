// Package apperr defines the error taxonomy shared by the session
// manager, the checkout engine and the backend client. Handlers match
// on these with errors.Is / errors.As to pick a status code; nothing
// here is ever fatal to the process.
package apperr

import "errors"

// ErrAuthentication - bad credentials or an expired/invalid token.
// Whoever sees this tears the session down and forces a re-login.
var ErrAuthentication = errors.New("authentication failed")

// ErrNetwork - the backend could not be reached. Deliberately
// indistinguishable from ErrAuthentication at the session layer (both
// force a re-login), but handlers report it as a retryable condition.
var ErrNetwork = errors.New("backend unreachable")

// ErrStockLimit - a cart mutation would push a line past the known
// available stock. Raised locally, never reaches the network.
var ErrStockLimit = errors.New("requested quantity exceeds available stock")

// ErrCartEmpty - checkout was invoked on an empty cart.
var ErrCartEmpty = errors.New("cart is empty")

// ErrInsufficientTender - cash payment with amount tendered below the
// total.
var ErrInsufficientTender = errors.New("amount tendered is less than the total")

// ErrInFlight - a second invocation of a mutating operation (sign-in,
// sale submission) while the first is still outstanding.
var ErrInFlight = errors.New("operation already in progress")

// ErrBadState - a cart operation invoked from the wrong state, e.g.
// submitting a sale when no checkout is open.
var ErrBadState = errors.New("operation not valid in current state")

// ValidationError - the backend rejected a field. Message is the
// backend's own text so the UI can show it next to the control.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError - the backend refused a sale at submit time, usually
// because another terminal drained the stock first. The cart is kept
// intact so the operator can retry.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "sale rejected by the server"
	}
	return e.Message
}
