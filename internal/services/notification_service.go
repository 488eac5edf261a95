package services

import (
	"context"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/internal/utils"
	"abride/pkg/logger"
	"abride/pkg/push"
	"abride/pkg/sms"
	"abride/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService delivers user-facing messages for lifecycle
// transitions. Dispatch is fire-and-forget: a delivery failure is logged
// and never propagates to the state change that triggered it.
type NotificationService interface {
	Dispatch(userID primitive.ObjectID, notificationType models.NotificationType, title, message string, relatedID primitive.ObjectID)

	GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
}

type notificationService struct {
	notificationRepo interfaces.NotificationRepository
	profileRepo      interfaces.ProfileRepository
	pushProviders    []push.PushProvider
	smsProvider      sms.SMSProvider
	wsHandler        *websocket.Handler
	logger           *logger.Logger
	dispatchTimeout  time.Duration
}

func NewNotificationService(
	notificationRepo interfaces.NotificationRepository,
	profileRepo interfaces.ProfileRepository,
	pushProviders []push.PushProvider,
	smsProvider sms.SMSProvider,
	wsHandler *websocket.Handler,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
		pushProviders:    pushProviders,
		smsProvider:      smsProvider,
		wsHandler:        wsHandler,
		logger:           log,
		dispatchTimeout:  10 * time.Second,
	}
}

// Dispatch persists the inbox row and fans the message out over every
// configured channel from a background goroutine. Callers return
// immediately; the triggering transition has already committed.
func (s *notificationService) Dispatch(userID primitive.ObjectID, notificationType models.NotificationType, title, message string, relatedID primitive.ObjectID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		log := s.logger.WithUserID(userID).WithField("notification_type", string(notificationType))

		notification := &models.Notification{
			UserID:    userID,
			Type:      notificationType,
			Title:     title,
			Message:   message,
			RelatedID: relatedID,
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			log.WithError(err).Error("failed to persist notification")
			// Delivery still proceeds; the inbox row is best effort too.
		}

		if s.wsHandler != nil {
			s.wsHandler.SendUserNotification(userID, string(notificationType), map[string]interface{}{
				"title":      title,
				"message":    message,
				"related_id": relatedID.Hex(),
			})
		}

		profile, err := s.profileRepo.GetByID(ctx, userID)
		if err != nil {
			log.WithError(err).Warn("failed to load profile for notification delivery")
			return
		}

		s.sendPush(ctx, profile, notification, log)

		if notificationType.IsCritical() && s.smsProvider != nil {
			s.sendSMS(ctx, profile, message, log)
		}
	}()
}

func (s *notificationService) sendPush(ctx context.Context, profile *models.Profile, notification *models.Notification, log *logger.Logger) {
	if len(s.pushProviders) == 0 || len(profile.DeviceTokens) == 0 {
		return
	}

	for _, device := range profile.DeviceTokens {
		request := &push.NotificationRequest{
			Token: device.Token,
			Title: notification.Title,
			Body:  notification.Message,
			Data: map[string]string{
				"type":       string(notification.Type),
				"related_id": notification.RelatedID.Hex(),
			},
		}

		for _, provider := range s.pushProviders {
			if _, err := provider.SendNotification(ctx, request); err != nil {
				log.WithError(err).WithField("platform", device.Platform).Warn("push delivery failed")
			}
		}
	}
}

func (s *notificationService) sendSMS(ctx context.Context, profile *models.Profile, message string, log *logger.Logger) {
	if profile.Phone == "" {
		return
	}

	_, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      profile.Phone,
		Message: message,
		Type:    "transactional",
	})
	if err != nil {
		log.WithError(err).Warn("sms delivery failed")
	}
}

func (s *notificationService) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return s.notificationRepo.GetByUser(ctx, userID, params)
}

func (s *notificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	notification, err := s.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return models.ErrUnauthorized
	}

	return s.notificationRepo.MarkRead(ctx, notificationID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
