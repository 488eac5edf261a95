package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string
type NotificationStatus string

const (
	NotificationTypeBookingRequested NotificationType = "booking_requested"
	NotificationTypeBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTypeBookingRejected  NotificationType = "booking_rejected"
	NotificationTypeBookingCancelled NotificationType = "booking_cancelled"
	NotificationTypeBookingCompleted NotificationType = "booking_completed"
	NotificationTypeTripCancelled    NotificationType = "trip_cancelled"
	NotificationTypeTripCompleted    NotificationType = "trip_completed"
	NotificationTypeAccountSuspended NotificationType = "account_suspended"
	NotificationTypeAccountRestored  NotificationType = "account_restored"
	NotificationTypeGeneral          NotificationType = "general"

	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// critical notification types are additionally delivered over SMS.
var criticalNotificationTypes = map[NotificationType]bool{
	NotificationTypeAccountSuspended: true,
	NotificationTypeAccountRestored:  true,
}

func (t NotificationType) IsCritical() bool {
	return criticalNotificationTypes[t]
}

type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Type      NotificationType   `json:"type" bson:"type" validate:"required"`
	Status    NotificationStatus `json:"status" bson:"status" default:"unread"`
	Title     string             `json:"title" bson:"title" validate:"required"`
	Message   string             `json:"message" bson:"message" validate:"required"`
	RelatedID primitive.ObjectID `json:"related_id,omitempty" bson:"related_id,omitempty"`
	ReadAt    *time.Time         `json:"read_at" bson:"read_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
