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

type profileRepository struct {
	collection *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) interfaces.ProfileRepository {
	return &profileRepository{
		collection: db.Collection("profiles"),
	}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.ID = primitive.NewObjectID()
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt

	_, err := r.collection.InsertOne(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error) {
	var profile models.Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("profile %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) GetByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	var profile models.Profile
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("profile with phone %s: %w", phone, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile by phone: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// Moderation
func (r *profileRepository) Suspend(ctx context.Context, id primitive.ObjectID, reason string, source models.SuspensionSource) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_suspended":      true,
		"suspension_reason": reason,
		"suspended_by":      source,
		"suspended_at":      time.Now(),
	})
}

func (r *profileRepository) Reactivate(ctx context.Context, id primitive.ObjectID) error {
	updates := map[string]interface{}{
		"is_suspended": false,
		"updated_at":   time.Now(),
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":   updates,
			"$unset": bson.M{"suspension_reason": "", "suspended_by": "", "suspended_at": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to reactivate profile: %w", err)
	}

	return nil
}

func (r *profileRepository) SetVerified(ctx context.Context, id primitive.ObjectID, verified bool) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_verified": verified,
	})
}

// Push delivery
func (r *profileRepository) AddDeviceToken(ctx context.Context, id primitive.ObjectID, token models.DeviceToken) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"device_tokens": token},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add device token: %w", err)
	}

	return nil
}

func (r *profileRepository) RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{"device_tokens": bson.M{"token": token}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}

	return nil
}
