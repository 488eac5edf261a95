package interfaces

import (
	"context"
	"time"

	"abride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripDeletionRepository persists the audit rows behind the rolling
// deletion counter. The count is always a server-side query over these
// rows, never an in-memory number.
type TripDeletionRepository interface {
	Record(ctx context.Context, deletion *models.TripDeletion) error
	CountByDriverSince(ctx context.Context, driverID primitive.ObjectID, since time.Time) (int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, since time.Time) ([]*models.TripDeletion, error)
}
