package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string

const (
	TripStatusScheduled   TripStatus = "scheduled"
	TripStatusFullyBooked TripStatus = "fully_booked"
	TripStatusInProgress  TripStatus = "in_progress"
	TripStatusCompleted   TripStatus = "completed"
	TripStatusCancelled   TripStatus = "cancelled"
)

// tripTransitions lists the driver-initiated moves. The scheduled and
// fully_booked pair is deliberately absent on both sides of that flip:
// it is derived from the seat ledger, never requested directly.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusScheduled:   {TripStatusInProgress, TripStatusCancelled},
	TripStatusFullyBooked: {TripStatusInProgress, TripStatusCancelled},
	TripStatusInProgress:  {TripStatusCompleted},
	TripStatusCompleted:   {},
	TripStatusCancelled:   {},
}

func (s TripStatus) IsValid() bool {
	_, ok := tripTransitions[s]
	return ok
}

func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

func (s TripStatus) CanTransitionTo(target TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsOpen reports whether the trip still accepts booking activity and seat
// ledger re-derivation.
func (s TripStatus) IsOpen() bool {
	return s == TripStatusScheduled || s == TripStatusFullyBooked
}

type Trip struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID  primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	VehicleID primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`

	FromWilaya int    `json:"from_wilaya" bson:"from_wilaya"`
	FromKsar   string `json:"from_ksar,omitempty" bson:"from_ksar,omitempty"`
	ToWilaya   int    `json:"to_wilaya" bson:"to_wilaya"`
	ToKsar     string `json:"to_ksar,omitempty" bson:"to_ksar,omitempty"`

	DepartureDate time.Time `json:"departure_date" bson:"departure_date"`
	DepartureTime string    `json:"departure_time" bson:"departure_time"`
	PricePerSeat  float64   `json:"price_per_seat" bson:"price_per_seat"`
	TotalSeats    int       `json:"total_seats" bson:"total_seats"`
	// AvailableSeats is a cache for indexed listing queries. The seat
	// ledger rewrites it on every reconcile; nothing reads it for a
	// correctness decision except the conditional reservation filter.
	AvailableSeats int        `json:"available_seats" bson:"available_seats"`
	Status         TripStatus `json:"status" bson:"status"`

	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}
