package models

import "errors"

// Lifecycle errors. Services return these (possibly wrapped); handlers map
// them to HTTP status codes with errors.Is.
var (
	// ErrInvalidTransition - the requested status change is not reachable
	// from the current state for any actor.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized - the transition exists but the acting role may not
	// perform it.
	ErrUnauthorized = errors.New("actor not allowed to perform this transition")

	// ErrInsufficientSeats - booking creation asked for more seats than the
	// trip currently has available.
	ErrInsufficientSeats = errors.New("not enough available seats")

	// ErrAccountSuspended - the acting account carries the suspension flag.
	ErrAccountSuspended = errors.New("account is suspended")

	// ErrMissingReason - a rejection or cancellation was submitted without
	// a non-empty reason.
	ErrMissingReason = errors.New("a reason is required for this action")

	// ErrProfileIncomplete - the passenger profile is missing required
	// fields (full name, phone, wilaya, commune).
	ErrProfileIncomplete = errors.New("profile is incomplete")

	// ErrDriverNotVerified - trip creation requires a verified driver.
	ErrDriverNotVerified = errors.New("driver is not verified")

	// ErrNoActiveVehicle - trip creation requires at least one active
	// vehicle owned by the driver.
	ErrNoActiveVehicle = errors.New("driver has no active vehicle")

	// ErrTripNotBookable - the trip is not in a state that accepts new
	// bookings.
	ErrTripNotBookable = errors.New("trip is not open for booking")

	// ErrActionInProgress - the same actor submitted the same mutation
	// again inside the cooldown window.
	ErrActionInProgress = errors.New("a previous identical action is still being processed")

	ErrNotFound = errors.New("not found")
)
