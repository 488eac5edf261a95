package interfaces

import (
	"context"

	"abride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error)
	GetByPhone(ctx context.Context, phone string) (*models.Profile, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Moderation
	Suspend(ctx context.Context, id primitive.ObjectID, reason string, source models.SuspensionSource) error
	Reactivate(ctx context.Context, id primitive.ObjectID) error
	SetVerified(ctx context.Context, id primitive.ObjectID, verified bool) error

	// Push delivery
	AddDeviceToken(ctx context.Context, id primitive.ObjectID, token models.DeviceToken) error
	RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
}
