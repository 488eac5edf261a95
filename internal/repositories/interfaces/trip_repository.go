package interfaces

import (
	"context"
	"time"

	"abride/internal/models"
	"abride/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripSearchFilter narrows the public trip listing.
type TripSearchFilter struct {
	FromWilaya    int
	ToWilaya      int
	DepartureDate *time.Time
	Statuses      []models.TripStatus
}

type TripRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Status operations
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TripStatus) error
	Cancel(ctx context.Context, id primitive.ObjectID, reason string) error

	// Seat operations. ReserveSeats is the server-side overbooking guard:
	// it decrements the stored counter only when the trip is still open and
	// holds at least seats places, atomically, and reports
	// ErrInsufficientSeats otherwise.
	ReserveSeats(ctx context.Context, id primitive.ObjectID, seats int) error
	ReleaseSeats(ctx context.Context, id primitive.ObjectID, seats int) error
	// SetDerivedState overwrites the cached availability and the
	// scheduled/fully_booked pair from the seat ledger's recomputation.
	SetDerivedState(ctx context.Context, id primitive.ObjectID, availableSeats int, status models.TripStatus) error

	// Search and filtering
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetByVehicle(ctx context.Context, vehicleID primitive.ObjectID) ([]*models.Trip, error)
	Search(ctx context.Context, filter *TripSearchFilter, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	GetOpenTrips(ctx context.Context) ([]*models.Trip, error)
}
