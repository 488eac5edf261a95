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
)

type vehicleRepository struct {
	collection *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) interfaces.VehicleRepository {
	return &vehicleRepository{
		collection: db.Collection("vehicles"),
	}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt

	_, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("vehicle %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &vehicle, nil
}

func (r *vehicleRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}

	return nil
}

func (r *vehicleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	return nil
}

func (r *vehicleRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Vehicle, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"driver_id": driverID})
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles by driver: %w", err)
	}
	defer cursor.Close(ctx)

	var vehicles []*models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return vehicles, nil
}

func (r *vehicleRepository) CountActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"driver_id": driverID,
		"is_active": true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active vehicles: %w", err)
	}

	return count, nil
}
