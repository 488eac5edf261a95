package mongodb

import (
	"context"
	"fmt"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type tripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) interfaces.TripRepository {
	return &tripRepository{
		collection: db.Collection("trips"),
	}
}

// Basic CRUD operations
func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusScheduled
	trip.AvailableSeats = trip.TotalSeats
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	_, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	return nil
}

func (r *tripRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	return nil
}

// Status operations
func (r *tripRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.TripStatus) error {
	updates := map[string]interface{}{
		"status": status,
	}

	switch status {
	case models.TripStatusInProgress:
		updates["started_at"] = time.Now()
	case models.TripStatusCompleted:
		updates["completed_at"] = time.Now()
	case models.TripStatusCancelled:
		updates["cancelled_at"] = time.Now()
	}

	return r.Update(ctx, id, updates)
}

func (r *tripRepository) Cancel(ctx context.Context, id primitive.ObjectID, reason string) error {
	updates := map[string]interface{}{
		"status":              models.TripStatusCancelled,
		"cancellation_reason": reason,
		"cancelled_at":        time.Now(),
	}

	return r.Update(ctx, id, updates)
}

// Seat operations

// ReserveSeats performs the conditional decrement that keeps two sessions
// from both taking the last seat: the filter requires the trip to still be
// open with at least the requested seats, so under concurrent writers at
// most one decrement can match.
func (r *tripRepository) ReserveSeats(ctx context.Context, id primitive.ObjectID, seats int) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":             id,
			"status":          bson.M{"$in": []models.TripStatus{models.TripStatusScheduled, models.TripStatusFullyBooked}},
			"available_seats": bson.M{"$gte": seats},
		},
		bson.M{
			"$inc": bson.M{"available_seats": -seats},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrInsufficientSeats
	}

	return nil
}

func (r *tripRepository) ReleaseSeats(ctx context.Context, id primitive.ObjectID, seats int) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"available_seats": seats},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}

	return nil
}

// SetDerivedState writes the ledger's recomputed availability and the
// scheduled/fully_booked flip in one update, guarded so it never overrides
// a terminal or in-progress trip.
func (r *tripRepository) SetDerivedState(ctx context.Context, id primitive.ObjectID, availableSeats int, status models.TripStatus) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$in": []models.TripStatus{models.TripStatusScheduled, models.TripStatusFullyBooked}},
		},
		bson.M{"$set": bson.M{
			"available_seats": availableSeats,
			"status":          status,
			"updated_at":      time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set derived trip state: %w", err)
	}

	return nil
}

// Search and filtering
func (r *tripRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	filter := bson.M{"driver_id": driverID}
	return r.findPage(ctx, filter, params)
}

func (r *tripRepository) GetByVehicle(ctx context.Context, vehicleID primitive.ObjectID) ([]*models.Trip, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("failed to get trips by vehicle: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, nil
}

func (r *tripRepository) Search(ctx context.Context, searchFilter *interfaces.TripSearchFilter, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	filter := bson.M{}

	if searchFilter != nil {
		if searchFilter.FromWilaya != 0 {
			filter["from_wilaya"] = searchFilter.FromWilaya
		}
		if searchFilter.ToWilaya != 0 {
			filter["to_wilaya"] = searchFilter.ToWilaya
		}
		if searchFilter.DepartureDate != nil {
			dayStart := utils.StartOfDay(*searchFilter.DepartureDate)
			filter["departure_date"] = bson.M{
				"$gte": dayStart,
				"$lt":  dayStart.Add(24 * time.Hour),
			}
		}
		if len(searchFilter.Statuses) > 0 {
			filter["status"] = bson.M{"$in": searchFilter.Statuses}
		}
	}

	return r.findPage(ctx, filter, params)
}

func (r *tripRepository) GetOpenTrips(ctx context.Context) ([]*models.Trip, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status": bson.M{"$in": []models.TripStatus{models.TripStatusScheduled, models.TripStatusFullyBooked}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get open trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, nil
}

func (r *tripRepository) findPage(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, 0, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, total, nil
}
