package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/internal/utils"
	"abride/pkg/cache"
	"abride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingService owns the booking state machine. Every transition goes
// through requestTransition so the actor/target table, reason validation
// and seat release behave identically no matter which endpoint asked.
type BookingService interface {
	Create(ctx context.Context, passengerID primitive.ObjectID, req *CreateBookingRequest) (*models.Booking, error)
	Confirm(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error)
	Reject(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (*models.Booking, error)
	Complete(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error)

	GetByID(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error)
	GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetByTrip(ctx context.Context, userID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) ([]*models.Booking, error)
}

type CreateBookingRequest struct {
	TripID primitive.ObjectID `json:"trip_id" validate:"required"`
	Seats  int                `json:"seats" validate:"required,min=1,max=4"`
}

type bookingService struct {
	bookingRepo    interfaces.BookingRepository
	tripRepo       interfaces.TripRepository
	profileRepo    interfaces.ProfileRepository
	ledger         *SeatLedger
	db             TransactionRunner
	notifications  NotificationService
	reconciler     ReconcileService
	cache          *cache.RedisCache
	logger         *logger.Logger
	actionCooldown time.Duration
}

func NewBookingService(
	bookingRepo interfaces.BookingRepository,
	tripRepo interfaces.TripRepository,
	profileRepo interfaces.ProfileRepository,
	ledger *SeatLedger,
	db TransactionRunner,
	notifications NotificationService,
	reconciler ReconcileService,
	redisCache *cache.RedisCache,
	log *logger.Logger,
	actionCooldown time.Duration,
) BookingService {
	return &bookingService{
		bookingRepo:    bookingRepo,
		tripRepo:       tripRepo,
		profileRepo:    profileRepo,
		ledger:         ledger,
		db:             db,
		notifications:  notifications,
		reconciler:     reconciler,
		cache:          redisCache,
		logger:         log,
		actionCooldown: actionCooldown,
	}
}

// Create reserves seats for a passenger on a scheduled trip. The derived
// ledger check is an advisory pre-flight; the authoritative guard against
// two sessions taking the last seat is the conditional decrement inside
// tripRepo.ReserveSeats.
func (s *bookingService) Create(ctx context.Context, passengerID primitive.ObjectID, req *CreateBookingRequest) (*models.Booking, error) {
	if err := s.acquireCooldown(ctx, passengerID, "booking_create", req.TripID); err != nil {
		return nil, err
	}

	if req.Seats < 1 {
		return nil, models.ErrInsufficientSeats
	}

	passenger, err := s.profileRepo.GetByID(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if passenger.IsSuspended {
		return nil, models.ErrAccountSuspended
	}
	if !passenger.IsComplete() {
		return nil, models.ErrProfileIncomplete
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	// fully_booked is just the zero-availability case of an open trip: it
	// falls through to the ledger check below and reports seat shortage,
	// not unbookability. Only started and terminal trips are unbookable.
	if !trip.Status.IsOpen() {
		return nil, models.ErrTripNotBookable
	}

	driver, err := s.profileRepo.GetByID(ctx, trip.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.IsSuspended {
		return nil, models.ErrAccountSuspended
	}

	// Advisory availability check over the derived ledger. Pending
	// bookings already consume seats here, so a passenger is told "full"
	// as soon as requests cover the trip even before confirmation.
	bookings, err := s.bookingRepo.GetByTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if s.ledger.AvailableSeats(trip, bookings) < req.Seats {
		return nil, models.ErrInsufficientSeats
	}

	booking := &models.Booking{
		TripID:      req.TripID,
		PassengerID: passengerID,
		DriverID:    trip.DriverID,
		SeatsBooked: req.Seats,
		// Frozen at creation. Later price edits never reprice this booking.
		TotalAmount: float64(req.Seats) * trip.PricePerSeat,
	}

	// Authoritative guard: the conditional decrement and the booking insert
	// commit together. A concurrent reconcile sees either both or neither,
	// never a decremented counter without its booking row, and an insert
	// failure aborts the reservation with it.
	err = s.db.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tripRepo.ReserveSeats(txCtx, req.TripID, req.Seats); err != nil {
			return err
		}
		return s.bookingRepo.Create(txCtx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithBookingID(booking.ID).WithTripID(req.TripID).WithUserID(passengerID).
		WithField("seats", req.Seats).Info("booking created")

	s.notifications.Dispatch(trip.DriverID, models.NotificationTypeBookingRequested,
		"Nouvelle demande de réservation",
		fmt.Sprintf("%s a demandé %d place(s) sur votre trajet", passenger.FullName, req.Seats),
		booking.ID)

	s.reconciler.Reconcile(ctx, req.TripID)
	return booking, nil
}

func (s *bookingService) Confirm(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error) {
	return s.requestTransition(ctx, userID, role, bookingID, models.BookingStatusConfirmed, "")
}

func (s *bookingService) Reject(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (*models.Booking, error) {
	return s.requestTransition(ctx, userID, role, bookingID, models.BookingStatusRejected, reason)
}

func (s *bookingService) Cancel(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (*models.Booking, error) {
	return s.requestTransition(ctx, userID, role, bookingID, models.BookingStatusCancelled, reason)
}

// Complete behaves differently by actor. A driver (or admin) completing a
// booking closes out the whole trip: every active booking moves to
// completed and the trip itself is marked completed. A passenger completes
// only their own booking.
func (s *bookingService) Complete(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	actor, ok := booking.ActorFor(userID, role)
	if !ok {
		return nil, models.ErrUnauthorized
	}

	if actor == models.ActorDriver || actor == models.ActorAdmin {
		if err := s.ensureActorNotSuspended(ctx, actor, userID); err != nil {
			return nil, err
		}
		if err := s.validateTransition(booking, actor, models.BookingStatusCompleted, ""); err != nil {
			return nil, err
		}
		if err := s.completeTrip(ctx, booking.TripID); err != nil {
			return nil, err
		}
		return s.bookingRepo.GetByID(ctx, bookingID)
	}

	return s.requestTransition(ctx, userID, role, bookingID, models.BookingStatusCompleted, "")
}

// completeTrip bulk-completes the trip's active bookings and closes the
// trip record.
func (s *bookingService) completeTrip(ctx context.Context, tripID primitive.ObjectID) error {
	moved, err := s.bookingRepo.BulkUpdateStatusByTrip(ctx, tripID,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
		models.BookingStatusCompleted, "")
	if err != nil {
		return err
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if !trip.Status.IsTerminal() {
		if err := s.tripRepo.UpdateStatus(ctx, tripID, models.TripStatusCompleted); err != nil {
			return err
		}
	}

	s.logger.WithTripID(tripID).WithField("bookings_completed", moved).Info("trip completed")

	bookings, err := s.bookingRepo.GetByTrip(ctx, tripID)
	if err == nil {
		for _, b := range bookings {
			if b.Status == models.BookingStatusCompleted {
				s.notifications.Dispatch(b.PassengerID, models.NotificationTypeBookingCompleted,
					"Trajet terminé", "Votre trajet est terminé. Merci d'avoir voyagé avec abride.", b.ID)
			}
		}
	}

	s.reconciler.Reconcile(ctx, tripID)
	return nil
}

// requestTransition is the single write path for booking status changes.
func (s *bookingService) requestTransition(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, target models.BookingStatus, reason string) (*models.Booking, error) {
	if err := s.acquireCooldown(ctx, userID, "booking_"+string(target), bookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	actor, ok := booking.ActorFor(userID, role)
	if !ok {
		return nil, models.ErrUnauthorized
	}
	if err := s.ensureActorNotSuspended(ctx, actor, userID); err != nil {
		return nil, err
	}

	if err := s.validateTransition(booking, actor, target, reason); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, target, reason); err != nil {
		return nil, err
	}

	// Rejection and cancellation hand the seats back to the trip.
	if booking.Status.ConsumesSeat() && !target.ConsumesSeat() {
		if err := s.tripRepo.ReleaseSeats(ctx, booking.TripID, booking.SeatsBooked); err != nil {
			s.logger.WithBookingID(bookingID).WithError(err).Error("failed to release seats, reconcile will correct")
		}
	}

	s.logger.WithBookingID(bookingID).WithTripID(booking.TripID).
		WithFields(map[string]interface{}{
			"from":  string(booking.Status),
			"to":    string(target),
			"actor": string(actor),
		}).
		Info("booking status changed")

	s.notifyTransition(booking, actor, target, reason)
	s.reconciler.Reconcile(ctx, booking.TripID)

	return s.bookingRepo.GetByID(ctx, bookingID)
}

// ensureActorNotSuspended blocks suspended passengers and drivers from
// acting on bookings. Admin moderation actions are not gated.
func (s *bookingService) ensureActorNotSuspended(ctx context.Context, actor models.Actor, userID primitive.ObjectID) error {
	if actor == models.ActorAdmin {
		return nil
	}
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if profile.IsSuspended {
		return models.ErrAccountSuspended
	}
	return nil
}

// validateTransition distinguishes the three refusal modes: the move does
// not exist from this state, it exists but not for this actor, or it needs
// a reason that was not given.
func (s *bookingService) validateTransition(booking *models.Booking, actor models.Actor, target models.BookingStatus, reason string) error {
	if !booking.Status.Reachable(target) {
		return fmt.Errorf("booking %s is %s: %w", booking.ID.Hex(), booking.Status, models.ErrInvalidTransition)
	}
	if !booking.Status.CanTransition(actor, target) {
		return fmt.Errorf("%s may not move booking to %s: %w", actor, target, models.ErrUnauthorized)
	}
	if target.RequiresReason() && strings.TrimSpace(reason) == "" {
		return models.ErrMissingReason
	}
	return nil
}

func (s *bookingService) notifyTransition(booking *models.Booking, actor models.Actor, target models.BookingStatus, reason string) {
	switch target {
	case models.BookingStatusConfirmed:
		s.notifications.Dispatch(booking.PassengerID, models.NotificationTypeBookingConfirmed,
			"Réservation confirmée", "Le conducteur a confirmé votre réservation.", booking.ID)
	case models.BookingStatusRejected:
		s.notifications.Dispatch(booking.PassengerID, models.NotificationTypeBookingRejected,
			"Réservation refusée", fmt.Sprintf("Le conducteur a refusé votre réservation : %s", reason), booking.ID)
	case models.BookingStatusCancelled:
		// The counterparty gets told, whoever cancelled.
		if actor == models.ActorPassenger {
			s.notifications.Dispatch(booking.DriverID, models.NotificationTypeBookingCancelled,
				"Réservation annulée", fmt.Sprintf("Le passager a annulé sa réservation : %s", reason), booking.ID)
		} else {
			s.notifications.Dispatch(booking.PassengerID, models.NotificationTypeBookingCancelled,
				"Réservation annulée", fmt.Sprintf("Votre réservation a été annulée : %s", reason), booking.ID)
		}
	case models.BookingStatusCompleted:
		s.notifications.Dispatch(booking.PassengerID, models.NotificationTypeBookingCompleted,
			"Trajet terminé", "Votre trajet est terminé. Merci d'avoir voyagé avec abride.", booking.ID)
	}
}

// GetByID lets the booking's passenger, its driver and admins read it.
func (s *bookingService) GetByID(ctx context.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := booking.ActorFor(userID, role); !ok {
		return nil, models.ErrUnauthorized
	}
	return booking, nil
}

func (s *bookingService) GetByPassenger(ctx context.Context, passengerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetByPassenger(ctx, passengerID, params)
}

func (s *bookingService) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetByDriver(ctx, driverID, params)
}

// GetByTrip is restricted to the trip's driver and admins.
func (s *bookingService) GetByTrip(ctx context.Context, userID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) ([]*models.Booking, error) {
	if role != models.RoleAdmin {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if trip.DriverID != userID {
			return nil, models.ErrUnauthorized
		}
	}
	return s.bookingRepo.GetByTrip(ctx, tripID)
}

// acquireCooldown takes a short-lived exclusive marker for the
// user+action+entity triple. A second identical submission inside the
// window is refused instead of racing the first.
func (s *bookingService) acquireCooldown(ctx context.Context, userID primitive.ObjectID, action string, entityID primitive.ObjectID) error {
	if s.cache == nil || s.actionCooldown <= 0 {
		return nil
	}

	key := fmt.Sprintf("cooldown:%s:%s:%s", userID.Hex(), action, entityID.Hex())
	acquired, err := s.cache.SetNX(ctx, key, 1, s.actionCooldown)
	if err != nil {
		// Redis being down must not block bookings.
		s.logger.WithError(err).Warn("cooldown check unavailable, allowing action")
		return nil
	}
	if !acquired {
		return models.ErrActionInProgress
	}
	return nil
}
