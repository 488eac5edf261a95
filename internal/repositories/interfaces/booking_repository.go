package interfaces

import (
	"context"

	"abride/internal/models"
	"abride/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Status operations
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus, reason string) error
	// BulkUpdateStatusByTrip moves every booking on the trip whose status is
	// in from into to, in one write. Returns the number of bookings moved.
	BulkUpdateStatusByTrip(ctx context.Context, tripID primitive.ObjectID, from []models.BookingStatus, to models.BookingStatus, reason string) (int64, error)

	// Search and filtering
	GetByTrip(ctx context.Context, tripID primitive.ObjectID) ([]*models.Booking, error)
	GetActiveByTrip(ctx context.Context, tripID primitive.ObjectID) ([]*models.Booking, error)
	GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
}
