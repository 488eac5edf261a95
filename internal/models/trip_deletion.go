package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripDeletion is an audit row written whenever a driver hard-deletes a
// trip. The rolling 24-hour deletion counter behind the auto-suspension
// rule is a count over these rows, keyed by driver, so it survives client
// resets and concurrent sessions.
type TripDeletion struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID   primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	TripID     primitive.ObjectID `json:"trip_id" bson:"trip_id"`
	FromWilaya int                `json:"from_wilaya" bson:"from_wilaya"`
	ToWilaya   int                `json:"to_wilaya" bson:"to_wilaya"`
	DeletedAt  time.Time          `json:"deleted_at" bson:"deleted_at"`
}
