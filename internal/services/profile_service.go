package services

import (
	"context"
	"fmt"
	"strings"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileService covers profile maintenance plus the admin moderation
// actions that feed the lifecycle: driver verification, suspension and
// reactivation.
type ProfileService interface {
	GetByID(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error)
	Update(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*models.Profile, error)

	RegisterDeviceToken(ctx context.Context, userID primitive.ObjectID, token models.DeviceToken) error
	RemoveDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error

	// Admin moderation
	VerifyDriver(ctx context.Context, driverID primitive.ObjectID) error
	Suspend(ctx context.Context, userID primitive.ObjectID, reason string) error
	Reactivate(ctx context.Context, userID primitive.ObjectID) error
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Wilaya   *int    `json:"wilaya,omitempty" validate:"omitempty,wilaya_code"`
	Commune  *string `json:"commune,omitempty"`
	Language *string `json:"language,omitempty" validate:"omitempty,oneof=fr ar en"`
}

type profileService struct {
	profileRepo   interfaces.ProfileRepository
	notifications NotificationService
	logger        *logger.Logger
}

func NewProfileService(
	profileRepo interfaces.ProfileRepository,
	notifications NotificationService,
	log *logger.Logger,
) ProfileService {
	return &profileService{
		profileRepo:   profileRepo,
		notifications: notifications,
		logger:        log,
	}
}

func (s *profileService) GetByID(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

func (s *profileService) Update(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Wilaya != nil {
		if !models.IsValidWilaya(*req.Wilaya) {
			return nil, fmt.Errorf("invalid wilaya code %d", *req.Wilaya)
		}
		updates["wilaya"] = *req.Wilaya
	}
	if req.Commune != nil {
		updates["commune"] = strings.TrimSpace(*req.Commune)
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}

	if len(updates) > 0 {
		if err := s.profileRepo.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}

	return s.profileRepo.GetByID(ctx, userID)
}

func (s *profileService) RegisterDeviceToken(ctx context.Context, userID primitive.ObjectID, token models.DeviceToken) error {
	return s.profileRepo.AddDeviceToken(ctx, userID, token)
}

func (s *profileService) RemoveDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	return s.profileRepo.RemoveDeviceToken(ctx, userID, token)
}

func (s *profileService) VerifyDriver(ctx context.Context, driverID primitive.ObjectID) error {
	if err := s.profileRepo.SetVerified(ctx, driverID, true); err != nil {
		return err
	}

	s.logger.WithUserID(driverID).Info("driver verified")
	s.notifications.Dispatch(driverID, models.NotificationTypeGeneral,
		"Compte vérifié", "Votre compte conducteur est vérifié. Vous pouvez publier des trajets.", driverID)
	return nil
}

func (s *profileService) Suspend(ctx context.Context, userID primitive.ObjectID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ErrMissingReason
	}

	if err := s.profileRepo.Suspend(ctx, userID, reason, models.SuspensionSourceAdmin); err != nil {
		return err
	}

	s.logger.WithUserID(userID).WithField("reason", reason).Warn("account suspended by admin")
	s.notifications.Dispatch(userID, models.NotificationTypeAccountSuspended,
		"Compte suspendu", "Votre compte a été suspendu : "+reason, userID)
	return nil
}

// Reactivate clears the suspension whatever set it, including the trip
// deletion rate limit.
func (s *profileService) Reactivate(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.profileRepo.Reactivate(ctx, userID); err != nil {
		return err
	}

	s.logger.WithUserID(userID).Info("account reactivated")
	s.notifications.Dispatch(userID, models.NotificationTypeAccountRestored,
		"Compte réactivé", "Votre compte a été réactivé. Bon voyage avec abride.", userID)
	return nil
}
