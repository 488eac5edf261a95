package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/internal/utils"
	"abride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionRunner runs fn atomically. Satisfied by database.MongoDB.
type TransactionRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripService owns the trip lifecycle: publication, the driver-initiated
// status moves, cancellation cascades and the rate-limited hard delete.
// The scheduled/fully_booked flip is never set here; it belongs to the
// reconciler.
type TripService interface {
	Create(ctx context.Context, driverID primitive.ObjectID, req *CreateTripRequest) (*models.Trip, error)
	Start(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) (*models.Trip, error)
	Complete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) (*models.Trip, error)
	Cancel(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID, reason string) (*models.Trip, error)
	Delete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) error

	GetByID(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Trip, int64, error)
	Search(ctx context.Context, filter *interfaces.TripSearchFilter, params *utils.PaginationParams) ([]*models.Trip, int64, error)

	// CancelByVehicle cancels every open trip using the vehicle. Called by
	// the vehicle service when a vehicle is deleted or deactivated.
	CancelByVehicle(ctx context.Context, vehicleID primitive.ObjectID, reason string) error
}

type CreateTripRequest struct {
	VehicleID     primitive.ObjectID `json:"vehicle_id" validate:"required"`
	FromWilaya    int                `json:"from_wilaya" validate:"required,wilaya_code"`
	FromKsar      string             `json:"from_ksar,omitempty"`
	ToWilaya      int                `json:"to_wilaya" validate:"required,wilaya_code"`
	ToKsar        string             `json:"to_ksar,omitempty"`
	DepartureDate string             `json:"departure_date" validate:"required"`
	DepartureTime string             `json:"departure_time" validate:"required"`
	PricePerSeat  float64            `json:"price_per_seat" validate:"required,gt=0"`
	TotalSeats    int                `json:"total_seats" validate:"required,min=1,max=8"`
}

type TripServiceConfig struct {
	Timezone       string
	DeletionWindow time.Duration
	DeletionLimit  int
}

type tripService struct {
	tripRepo      interfaces.TripRepository
	bookingRepo   interfaces.BookingRepository
	vehicleRepo   interfaces.VehicleRepository
	profileRepo   interfaces.ProfileRepository
	deletionRepo  interfaces.TripDeletionRepository
	db            TransactionRunner
	notifications NotificationService
	reconciler    ReconcileService
	logger        *logger.Logger
	config        TripServiceConfig
}

func NewTripService(
	tripRepo interfaces.TripRepository,
	bookingRepo interfaces.BookingRepository,
	vehicleRepo interfaces.VehicleRepository,
	profileRepo interfaces.ProfileRepository,
	deletionRepo interfaces.TripDeletionRepository,
	db TransactionRunner,
	notifications NotificationService,
	reconciler ReconcileService,
	log *logger.Logger,
	config TripServiceConfig,
) TripService {
	if config.Timezone == "" {
		config.Timezone = utils.DefaultTimeZone
	}
	if config.DeletionWindow <= 0 {
		config.DeletionWindow = utils.TripDeletionWindow
	}
	if config.DeletionLimit <= 0 {
		config.DeletionLimit = utils.TripDeletionLimit
	}

	return &tripService{
		tripRepo:      tripRepo,
		bookingRepo:   bookingRepo,
		vehicleRepo:   vehicleRepo,
		profileRepo:   profileRepo,
		deletionRepo:  deletionRepo,
		db:            db,
		notifications: notifications,
		reconciler:    reconciler,
		logger:        log,
		config:        config,
	}
}

func (s *tripService) Create(ctx context.Context, driverID primitive.ObjectID, req *CreateTripRequest) (*models.Trip, error) {
	driver, err := s.profileRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.IsSuspended {
		return nil, models.ErrAccountSuspended
	}
	if !driver.IsVerified {
		return nil, models.ErrDriverNotVerified
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.DriverID != driverID || !vehicle.IsActive {
		return nil, models.ErrNoActiveVehicle
	}

	if err := s.validateRoute(req); err != nil {
		return nil, err
	}

	departureDate, err := utils.ParseDateOnly(req.DepartureDate, s.config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid departure date %q: %w", req.DepartureDate, err)
	}
	// Date-only comparison: a trip later today is still publishable.
	if utils.IsPastDate(departureDate, s.config.Timezone) {
		return nil, fmt.Errorf("departure date %s is in the past: %w", req.DepartureDate, models.ErrInvalidTransition)
	}

	if req.PricePerSeat <= 0 {
		return nil, fmt.Errorf("price per seat must be positive")
	}
	if req.TotalSeats < 1 || req.TotalSeats > utils.MaxSeatsPerTrip {
		return nil, fmt.Errorf("total seats must be between 1 and %d", utils.MaxSeatsPerTrip)
	}

	trip := &models.Trip{
		DriverID:      driverID,
		VehicleID:     req.VehicleID,
		FromWilaya:    req.FromWilaya,
		FromKsar:      req.FromKsar,
		ToWilaya:      req.ToWilaya,
		ToKsar:        req.ToKsar,
		DepartureDate: departureDate,
		DepartureTime: req.DepartureTime,
		PricePerSeat:  req.PricePerSeat,
		TotalSeats:    req.TotalSeats,
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.WithTripID(trip.ID).WithUserID(driverID).
		WithFields(map[string]interface{}{
			"from_wilaya": req.FromWilaya,
			"to_wilaya":   req.ToWilaya,
			"seats":       req.TotalSeats,
		}).
		Info("trip published")

	return trip, nil
}

// validateRoute enforces the route rules: distinct endpoints, valid wilaya
// codes, and a mandatory ksar whenever an endpoint is in Ghardaïa.
func (s *tripService) validateRoute(req *CreateTripRequest) error {
	if !models.IsValidWilaya(req.FromWilaya) || !models.IsValidWilaya(req.ToWilaya) {
		return fmt.Errorf("invalid wilaya code")
	}
	if req.FromWilaya == req.ToWilaya && req.FromKsar == req.ToKsar {
		return fmt.Errorf("departure and destination must differ")
	}
	if req.FromWilaya == models.WilayaGhardaia {
		if strings.TrimSpace(req.FromKsar) == "" || !models.IsValidKsar(req.FromKsar) {
			return fmt.Errorf("a valid ksar is required for a Ghardaïa departure")
		}
	}
	if req.ToWilaya == models.WilayaGhardaia {
		if strings.TrimSpace(req.ToKsar) == "" || !models.IsValidKsar(req.ToKsar) {
			return fmt.Errorf("a valid ksar is required for a Ghardaïa destination")
		}
	}
	return nil
}

func (s *tripService) Start(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) (*models.Trip, error) {
	return s.requestTransition(ctx, driverID, role, tripID, models.TripStatusInProgress, "")
}

// Complete marks the trip completed and bulk-completes its active
// bookings, whether or not the driver ever pressed start.
func (s *tripService) Complete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.authorizeDriverAction(ctx, driverID, role, tripID)
	if err != nil {
		return nil, err
	}

	// scheduled and fully_booked may complete directly; start is optional.
	if trip.Status != models.TripStatusInProgress && !trip.Status.IsOpen() {
		return nil, fmt.Errorf("trip is %s: %w", trip.Status, models.ErrInvalidTransition)
	}

	if err := s.tripRepo.UpdateStatus(ctx, tripID, models.TripStatusCompleted); err != nil {
		return nil, err
	}

	moved, err := s.bookingRepo.BulkUpdateStatusByTrip(ctx, tripID,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
		models.BookingStatusCompleted, "")
	if err != nil {
		return nil, err
	}

	s.logger.WithTripID(tripID).WithField("bookings_completed", moved).Info("trip completed")
	s.notifyPassengers(ctx, tripID, models.BookingStatusCompleted, models.NotificationTypeTripCompleted,
		"Trajet terminé", "Votre trajet est terminé. Merci d'avoir voyagé avec abride.")

	s.reconciler.Reconcile(ctx, tripID)
	return s.tripRepo.GetByID(ctx, tripID)
}

// Cancel cancels the trip and cascades every non-terminal booking to
// cancelled with the driver's reason, notifying each passenger.
func (s *tripService) Cancel(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID, reason string) (*models.Trip, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.ErrMissingReason
	}

	trip, err := s.authorizeDriverAction(ctx, driverID, role, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status.IsTerminal() {
		return nil, fmt.Errorf("trip is %s: %w", trip.Status, models.ErrInvalidTransition)
	}

	if err := s.tripRepo.Cancel(ctx, tripID, reason); err != nil {
		return nil, err
	}

	moved, err := s.bookingRepo.BulkUpdateStatusByTrip(ctx, tripID,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
		models.BookingStatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	s.logger.WithTripID(tripID).WithField("bookings_cancelled", moved).Info("trip cancelled")
	s.notifyPassengers(ctx, tripID, models.BookingStatusCancelled, models.NotificationTypeTripCancelled,
		"Trajet annulé", fmt.Sprintf("Le conducteur a annulé le trajet : %s", reason))

	s.reconciler.Reconcile(ctx, tripID)
	return s.tripRepo.GetByID(ctx, tripID)
}

// Delete hard-deletes a trip. The delete, its audit row and the possible
// auto-suspension commit in one Mongo transaction: a driver cannot dodge
// the rolling counter by racing deletions across sessions.
func (s *tripService) Delete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) error {
	trip, err := s.authorizeDriverAction(ctx, driverID, role, tripID)
	if err != nil {
		return err
	}
	if !trip.Status.IsOpen() {
		return fmt.Errorf("only open trips can be deleted: %w", models.ErrInvalidTransition)
	}

	suspended := false
	err = s.db.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tripRepo.Delete(txCtx, tripID); err != nil {
			return err
		}

		deletion := &models.TripDeletion{
			DriverID:   trip.DriverID,
			TripID:     tripID,
			FromWilaya: trip.FromWilaya,
			ToWilaya:   trip.ToWilaya,
		}
		if err := s.deletionRepo.Record(txCtx, deletion); err != nil {
			return err
		}

		since := time.Now().Add(-s.config.DeletionWindow)
		count, err := s.deletionRepo.CountByDriverSince(txCtx, trip.DriverID, since)
		if err != nil {
			return err
		}
		if count >= int64(s.config.DeletionLimit) {
			reason := fmt.Sprintf("%d trips deleted within %s", count, s.config.DeletionWindow)
			if err := s.profileRepo.Suspend(txCtx, trip.DriverID, reason, models.SuspensionSourceRateLimit); err != nil {
				return err
			}
			suspended = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	// Cascade outside the transaction: bookings on a deleted trip are
	// cancelled, not orphaned.
	if _, err := s.bookingRepo.BulkUpdateStatusByTrip(ctx, tripID,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
		models.BookingStatusCancelled, "Trajet supprimé par le conducteur"); err != nil {
		s.logger.WithTripID(tripID).WithError(err).Error("failed to cancel bookings of deleted trip")
	}
	s.notifyPassengers(ctx, tripID, models.BookingStatusCancelled, models.NotificationTypeTripCancelled,
		"Trajet annulé", "Le conducteur a supprimé le trajet.")

	s.logger.WithTripID(tripID).WithUserID(trip.DriverID).Info("trip deleted")

	if suspended {
		s.notifications.Dispatch(trip.DriverID, models.NotificationTypeAccountSuspended,
			"Compte suspendu",
			"Votre compte a été suspendu suite à des suppressions répétées de trajets. Contactez le support.",
			tripID)
		s.logger.WithUserID(trip.DriverID).Warn("driver auto-suspended by deletion rate limit")
	}

	return nil
}

func (s *tripService) GetByID(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	return s.tripRepo.GetByID(ctx, tripID)
}

func (s *tripService) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	return s.tripRepo.GetByDriver(ctx, driverID, params)
}

func (s *tripService) Search(ctx context.Context, filter *interfaces.TripSearchFilter, params *utils.PaginationParams) ([]*models.Trip, int64, error) {
	if filter != nil && len(filter.Statuses) == 0 {
		// The public listing only shows trips that can still be joined.
		filter.Statuses = []models.TripStatus{models.TripStatusScheduled, models.TripStatusFullyBooked}
	}
	return s.tripRepo.Search(ctx, filter, params)
}

func (s *tripService) CancelByVehicle(ctx context.Context, vehicleID primitive.ObjectID, reason string) error {
	trips, err := s.tripRepo.GetByVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}

	for _, trip := range trips {
		if trip.Status.IsTerminal() || trip.Status == models.TripStatusInProgress {
			continue
		}
		if _, err := s.Cancel(ctx, trip.DriverID, models.RoleDriver, trip.ID, reason); err != nil {
			s.logger.WithTripID(trip.ID).WithError(err).Error("failed to cancel trip for removed vehicle")
		}
	}
	return nil
}

// requestTransition handles the simple driver-initiated moves that have no
// cascade of their own.
func (s *tripService) requestTransition(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID, target models.TripStatus, reason string) (*models.Trip, error) {
	trip, err := s.authorizeDriverAction(ctx, driverID, role, tripID)
	if err != nil {
		return nil, err
	}

	if !trip.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("trip is %s, cannot move to %s: %w", trip.Status, target, models.ErrInvalidTransition)
	}

	if err := s.tripRepo.UpdateStatus(ctx, tripID, target); err != nil {
		return nil, err
	}

	s.logger.WithTripID(tripID).
		WithFields(map[string]interface{}{
			"from": string(trip.Status),
			"to":   string(target),
		}).
		Info("trip status changed")

	s.reconciler.Reconcile(ctx, tripID)
	return s.tripRepo.GetByID(ctx, tripID)
}

// authorizeDriverAction loads the trip and checks that the caller is its
// driver (or an admin) and, for drivers, that the account is not
// suspended. Suspension blocks new mutating actions only; it does not
// rewrite history.
func (s *tripService) authorizeDriverAction(ctx context.Context, userID primitive.ObjectID, role models.UserRole, tripID primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if role == models.RoleAdmin {
		return trip, nil
	}
	if trip.DriverID != userID {
		return nil, models.ErrUnauthorized
	}

	driver, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if driver.IsSuspended {
		return nil, models.ErrAccountSuspended
	}

	return trip, nil
}

// notifyPassengers dispatches to every passenger whose booking is now in
// status, after a bulk cascade.
func (s *tripService) notifyPassengers(ctx context.Context, tripID primitive.ObjectID, status models.BookingStatus, notificationType models.NotificationType, title, message string) {
	bookings, err := s.bookingRepo.GetByTrip(ctx, tripID)
	if err != nil {
		s.logger.WithTripID(tripID).WithError(err).Error("failed to load bookings for passenger notification")
		return
	}

	for _, b := range bookings {
		if b.Status == status {
			s.notifications.Dispatch(b.PassengerID, notificationType, title, message, b.ID)
		}
	}
}
