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

type bookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) interfaces.BookingRepository {
	return &bookingRepository{
		collection: db.Collection("bookings"),
	}
}

// Basic CRUD operations
func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = primitive.NewObjectID()
	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("booking %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	return nil
}

// Status operations
func (r *bookingRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus, reason string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
	}

	switch status {
	case models.BookingStatusConfirmed:
		updates["confirmed_at"] = time.Now()
	case models.BookingStatusCompleted:
		updates["completed_at"] = time.Now()
	case models.BookingStatusCancelled, models.BookingStatusRejected:
		updates["cancelled_at"] = time.Now()
	}

	return r.Update(ctx, id, updates)
}

func (r *bookingRepository) BulkUpdateStatusByTrip(ctx context.Context, tripID primitive.ObjectID, from []models.BookingStatus, to models.BookingStatus, reason string) (int64, error) {
	now := time.Now()

	updates := bson.M{
		"status":     to,
		"updated_at": now,
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
	}
	switch to {
	case models.BookingStatusCompleted:
		updates["completed_at"] = now
	case models.BookingStatusCancelled, models.BookingStatusRejected:
		updates["cancelled_at"] = now
	}

	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"trip_id": tripID,
			"status":  bson.M{"$in": from},
		},
		bson.M{"$set": updates},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update bookings: %w", err)
	}

	return result.ModifiedCount, nil
}

// Search and filtering
func (r *bookingRepository) GetByTrip(ctx context.Context, tripID primitive.ObjectID) ([]*models.Booking, error) {
	return r.findAll(ctx, bson.M{"trip_id": tripID})
}

func (r *bookingRepository) GetActiveByTrip(ctx context.Context, tripID primitive.ObjectID) ([]*models.Booking, error) {
	return r.findAll(ctx, bson.M{
		"trip_id": tripID,
		"status":  bson.M{"$nin": []models.BookingStatus{models.BookingStatusRejected, models.BookingStatusCancelled}},
	})
}

func (r *bookingRepository) GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findPage(ctx, bson.M{"passenger_id": passengerID}, params)
}

func (r *bookingRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findPage(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *bookingRepository) findAll(ctx context.Context, filter bson.M) ([]*models.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) findPage(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, total, nil
}
