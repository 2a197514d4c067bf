package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers.
var (
	// ErrNotFound signals a missing order or payment record.
	ErrNotFound = errors.New("not found")

	// ErrRetriesExhausted signals that the payment gateway stayed
	// unreachable for every allowed attempt. Distinct from a gateway
	// rejection: the caller may safely retry the whole operation.
	ErrRetriesExhausted = errors.New("gateway unreachable: retries exhausted")

	// ErrInsufficientStock is returned by the stock adjuster when the
	// conditional decrement would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotApplied is returned by the order store when a conditional
	// update matched zero rows.
	ErrNotApplied = errors.New("conditional update not applied")

	// ErrForbidden signals a caller without the required admin role.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed caller input, rejected before any store
// or gateway call.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// AmountMismatchError reports a confirmation amount that does not equal the
// stored order total. The gateway is never called in this case.
type AmountMismatchError struct {
	OrderNumber     string
	StoredAmount    int64
	RequestedAmount int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch for order %s: stored %d, requested %d",
		e.OrderNumber, e.StoredAmount, e.RequestedAmount)
}

// StateConflictError reports a confirmation attempted against an order that
// is not pending, including replayed confirmations of an already-confirmed
// order.
type StateConflictError struct {
	OrderNumber string
	Status      string
}

func (e *StateConflictError) Error() string {
	if e.Status == "confirmed" {
		return fmt.Sprintf("order %s is already confirmed", e.OrderNumber)
	}
	return fmt.Sprintf("order %s is not confirmable in status %q", e.OrderNumber, e.Status)
}

// GatewayError reports a non-2xx response from the payment gateway. 4xx
// responses are never retried.
type GatewayError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s returned status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Retriable reports whether the gateway failure was server-side.
func (e *GatewayError) Retriable() bool {
	return e.StatusCode >= 500
}

// ResponseIntegrityError reports a gateway response whose fields do not match
// the request. Always fatal, never retried automatically.
type ResponseIntegrityError struct {
	Field     string
	Requested string
	Received  string
}

func (e *ResponseIntegrityError) Error() string {
	return fmt.Sprintf("gateway response integrity: %s mismatch (requested %s, received %s)",
		e.Field, e.Requested, e.Received)
}

// ReconciliationRequiredError reports the one unrecoverable split-brain case:
// the gateway settled the charge but the guarded store transition did not
// apply. It must reach an operator and must never be retried automatically.
type ReconciliationRequiredError struct {
	OrderNumber string
	PaymentKey  string
}

func (e *ReconciliationRequiredError) Error() string {
	return fmt.Sprintf(
		"payment settled but order %s could not be confirmed; manual reconciliation required (payment key %s)",
		e.OrderNumber, e.PaymentKey)
}

// ItemInsertError wraps a line-item insertion failure during order creation,
// after the compensating delete of the order row has run.
type ItemInsertError struct {
	OrderNumber string
	Err         error
}

func (e *ItemInsertError) Error() string {
	return fmt.Sprintf("storing items for order %s failed: %v", e.OrderNumber, e.Err)
}

func (e *ItemInsertError) Unwrap() error { return e.Err }
