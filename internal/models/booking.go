package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Actor is who is asking for a booking transition. The same target status
// can be legal for one actor and forbidden for another, so the transition
// table is keyed by both.
type Actor string

const (
	ActorPassenger Actor = "passenger"
	ActorDriver    Actor = "driver"
	ActorAdmin     Actor = "admin"
)

var bookingTransitions = map[BookingStatus]map[Actor][]BookingStatus{
	BookingStatusPending: {
		ActorPassenger: {BookingStatusCancelled},
		ActorDriver:    {BookingStatusConfirmed, BookingStatusRejected},
		ActorAdmin:     {BookingStatusConfirmed, BookingStatusRejected, BookingStatusCancelled, BookingStatusCompleted},
	},
	BookingStatusConfirmed: {
		ActorPassenger: {BookingStatusCancelled, BookingStatusCompleted},
		ActorDriver:    {BookingStatusCompleted},
		ActorAdmin:     {BookingStatusRejected, BookingStatusCancelled, BookingStatusCompleted},
	},
	BookingStatusRejected:  {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled || s == BookingStatusCompleted
}

// CanTransition reports whether the actor may move a booking from s to
// target.
func (s BookingStatus) CanTransition(actor Actor, target BookingStatus) bool {
	for _, allowed := range bookingTransitions[s][actor] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Reachable reports whether ANY actor may move a booking from s to target.
// It separates "this move does not exist" from "this move exists but not
// for you", so callers can return the right error.
func (s BookingStatus) Reachable(target BookingStatus) bool {
	for _, targets := range bookingTransitions[s] {
		for _, allowed := range targets {
			if allowed == target {
				return true
			}
		}
	}
	return false
}

// ConsumesSeat reports whether a booking in this status still holds its
// seats against the trip's inventory.
func (s BookingStatus) ConsumesSeat() bool {
	return s != BookingStatusRejected && s != BookingStatusCancelled
}

// RequiresReason reports whether entering this status needs a non-empty
// reason from the actor.
func (s BookingStatus) RequiresReason() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled
}

type Booking struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TripID      primitive.ObjectID `json:"trip_id" bson:"trip_id"`
	PassengerID primitive.ObjectID `json:"passenger_id" bson:"passenger_id"`
	DriverID    primitive.ObjectID `json:"driver_id" bson:"driver_id"`

	// SeatsBooked is immutable after creation. Changing seat counts means
	// cancelling and rebooking.
	SeatsBooked int `json:"seats_booked" bson:"seats_booked"`
	// TotalAmount is frozen at creation from the trip's price at that
	// moment. Later price edits never reprice existing bookings.
	TotalAmount float64       `json:"total_amount" bson:"total_amount"`
	Status      BookingStatus `json:"status" bson:"status"`

	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

// ActorFor resolves which role userID plays on this booking. Admins act as
// admin regardless of ownership; otherwise the passenger and driver on the
// booking are the only parties.
func (b *Booking) ActorFor(userID primitive.ObjectID, role UserRole) (Actor, bool) {
	if role == RoleAdmin {
		return ActorAdmin, true
	}
	if b.PassengerID == userID {
		return ActorPassenger, true
	}
	if b.DriverID == userID {
		return ActorDriver, true
	}
	return "", false
}
