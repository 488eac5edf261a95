package services

import (
	"abride/internal/models"
	"abride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SeatLedger derives a trip's availability from its bookings. The stored
// available_seats column is only a cache for indexed queries; every
// correctness-sensitive decision (booking eligibility, the fully-booked
// badge) goes through this derivation.
type SeatLedger struct {
	logger *logger.Logger
}

func NewSeatLedger(log *logger.Logger) *SeatLedger {
	return &SeatLedger{logger: log}
}

// ActiveSeats sums the seats held by bookings that still consume
// inventory. Rejected and cancelled bookings have released theirs.
func (l *SeatLedger) ActiveSeats(tripID primitive.ObjectID, bookings []*models.Booking) int {
	booked := 0
	for _, b := range bookings {
		if b.TripID == tripID && b.Status.ConsumesSeat() {
			booked += b.SeatsBooked
		}
	}
	return booked
}

// AvailableSeats recomputes availability for the trip. The computation is
// idempotent and order-independent over the booking set. A derived value
// below zero means a concurrency guard was missed upstream; the ledger
// clamps to zero and logs it for operator follow-up rather than surfacing
// a negative count.
func (l *SeatLedger) AvailableSeats(trip *models.Trip, bookings []*models.Booking) int {
	available := trip.TotalSeats - l.ActiveSeats(trip.ID, bookings)

	if available < 0 {
		l.logger.WithTripID(trip.ID).
			WithFields(map[string]interface{}{
				"total_seats":  trip.TotalSeats,
				"active_seats": trip.TotalSeats - available,
			}).
			Warn("stale read: active bookings exceed total seats, clamping availability to 0")
		return 0
	}

	return available
}

// DeriveStatus resolves the scheduled/fully_booked pair from availability.
// Trips that have departed, completed or been cancelled keep their status
// whatever the ledger says.
func (l *SeatLedger) DeriveStatus(trip *models.Trip, available int) models.TripStatus {
	if !trip.Status.IsOpen() {
		return trip.Status
	}
	if available == 0 {
		return models.TripStatusFullyBooked
	}
	return models.TripStatusScheduled
}
