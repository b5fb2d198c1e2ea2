package services

import "errors"

// Sentinel errors shared by the reconciliation engine, checkout initiation and the
// manual override. Handlers map them to HTTP status codes with errors.Is.
var (
	// ErrUnknownCheckout is returned when no payment transaction references a checkout id
	ErrUnknownCheckout = errors.New("unknown checkout")

	// ErrUnknownReservation is returned when a reservation or group id matches nothing
	ErrUnknownReservation = errors.New("unknown reservation")

	// ErrGatewayUnavailable wraps any failure talking to the payment provider.
	// Nothing has been written when it is returned, so the caller may retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrConflictingActiveCheckout refuses a manual PAID while a provider checkout is in flight
	ErrConflictingActiveCheckout = errors.New("reservation has an active gateway checkout")

	// ErrMalformedPayload is returned when a webhook body carries no recognizable checkout id
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrAlreadyPaid refuses a new checkout for a group that is (partly) paid
	ErrAlreadyPaid = errors.New("reservation already paid")

	// ErrInvalidTransition refuses a payment status change the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrConcurrentUpdate is returned when a guarded write lost the race against another writer
	ErrConcurrentUpdate = errors.New("reservation was modified concurrently")

	// ErrNotPaid refuses to confirm a checkout whose group is not fully paid
	ErrNotPaid = errors.New("checkout is not paid")

	// ErrInvalidReference is returned when a group/reservation reference is missing or not a UUID
	ErrInvalidReference = errors.New("invalid reservation reference")
)
