package interfaces

import (
	"context"

	"abride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Vehicle, error)
	CountActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error)
}
