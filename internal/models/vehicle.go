package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Vehicle struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID     primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	Make         string             `json:"make" bson:"make" validate:"required"`
	Model        string             `json:"model" bson:"model" validate:"required"`
	Year         int                `json:"year" bson:"year" validate:"required"`
	Color        string             `json:"color" bson:"color"`
	LicensePlate string             `json:"license_plate" bson:"license_plate" validate:"required"`
	Seats        int                `json:"seats" bson:"seats" validate:"required,min=1"`
	// IsActive gates whether the vehicle is selectable when publishing a
	// trip. Deactivated vehicles keep their history.
	IsActive  bool      `json:"is_active" bson:"is_active" default:"true"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
