package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RolePassenger UserRole = "passenger"
	RoleDriver    UserRole = "driver"
	RoleAdmin     UserRole = "admin"
)

// SuspensionSource records what set the suspension flag, so an admin
// reviewing the account can tell abuse auto-suspension from manual action.
type SuspensionSource string

const (
	SuspensionSourceAdmin     SuspensionSource = "admin"
	SuspensionSourceRateLimit SuspensionSource = "deletion_rate_limit"
)

type Profile struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FullName         string             `json:"full_name" bson:"full_name" validate:"required,min=2,max=100"`
	Phone            string             `json:"phone" bson:"phone" validate:"required"`
	Email            string             `json:"email" bson:"email" validate:"omitempty,email"`
	Role             UserRole           `json:"role" bson:"role" validate:"required"`
	Wilaya           int                `json:"wilaya" bson:"wilaya"`
	Commune          string             `json:"commune" bson:"commune"`
	Language         string             `json:"language" bson:"language" default:"fr"`
	IsVerified       bool               `json:"is_verified" bson:"is_verified" default:"false"`
	IsSuspended      bool               `json:"is_suspended" bson:"is_suspended" default:"false"`
	SuspensionReason string             `json:"suspension_reason,omitempty" bson:"suspension_reason,omitempty"`
	SuspendedBy      SuspensionSource   `json:"suspended_by,omitempty" bson:"suspended_by,omitempty"`
	SuspendedAt      *time.Time         `json:"suspended_at" bson:"suspended_at"`
	DeviceTokens     []DeviceToken      `json:"device_tokens,omitempty" bson:"device_tokens,omitempty"`
	LastActiveAt     *time.Time         `json:"last_active_at" bson:"last_active_at"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

type DeviceToken struct {
	Token    string `json:"token" bson:"token"`
	Platform string `json:"platform" bson:"platform"` // android, ios
}

// IsComplete reports whether the profile carries the fields a passenger
// must have before holding a booking: full name, phone, wilaya, commune.
func (p *Profile) IsComplete() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.Phone) != "" &&
		p.Wilaya != 0 &&
		strings.TrimSpace(p.Commune) != ""
}
