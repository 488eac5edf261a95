package mongodb

import (
	"context"
	"fmt"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tripDeletionRepository struct {
	collection *mongo.Collection
}

func NewTripDeletionRepository(db *mongo.Database) interfaces.TripDeletionRepository {
	return &tripDeletionRepository{
		collection: db.Collection("trip_deletions"),
	}
}

func (r *tripDeletionRepository) Record(ctx context.Context, deletion *models.TripDeletion) error {
	deletion.ID = primitive.NewObjectID()
	if deletion.DeletedAt.IsZero() {
		deletion.DeletedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, deletion)
	if err != nil {
		return fmt.Errorf("failed to record trip deletion: %w", err)
	}

	return nil
}

func (r *tripDeletionRepository) CountByDriverSince(ctx context.Context, driverID primitive.ObjectID, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"driver_id":  driverID,
		"deleted_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count trip deletions: %w", err)
	}

	return count, nil
}

func (r *tripDeletionRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, since time.Time) ([]*models.TripDeletion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{
		"driver_id":  driverID,
		"deleted_at": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip deletions: %w", err)
	}
	defer cursor.Close(ctx)

	var deletions []*models.TripDeletion
	if err := cursor.All(ctx, &deletions); err != nil {
		return nil, fmt.Errorf("failed to decode trip deletions: %w", err)
	}

	return deletions, nil
}
