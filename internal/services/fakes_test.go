package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories mirroring the Mongo implementations closely
// enough to exercise the services, including the conditional seat
// decrement that guards against overbooking.

type memTripRepo struct {
	mu    sync.Mutex
	trips map[primitive.ObjectID]*models.Trip
}

func newMemTripRepo() *memTripRepo {
	return &memTripRepo{trips: make(map[primitive.ObjectID]*models.Trip)}
}

func (r *memTripRepo) Create(_ context.Context, trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusScheduled
	trip.AvailableSeats = trip.TotalSeats
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	copy := *trip
	r.trips[trip.ID] = &copy
	return nil
}

// force overwrites the stored trip, bypassing repository invariants.
// Tests use it to fabricate drifted or closed-out states.
func (r *memTripRepo) force(trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[trip.ID]; !ok {
		return models.ErrNotFound
	}
	copy := *trip
	r.trips[trip.ID] = &copy
	return nil
}

func (r *memTripRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", id.Hex(), models.ErrNotFound)
	}
	copy := *trip
	return &copy, nil
}

func (r *memTripRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return models.ErrNotFound
	}
	applyTripUpdates(trip, updates)
	return nil
}

func applyTripUpdates(trip *models.Trip, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "status":
			trip.Status = value.(models.TripStatus)
		case "available_seats":
			trip.AvailableSeats = value.(int)
		case "cancellation_reason":
			trip.CancellationReason = value.(string)
		}
	}
	trip.UpdatedAt = time.Now()
}

func (r *memTripRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.trips, id)
	return nil
}

func (r *memTripRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.TripStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return models.ErrNotFound
	}
	trip.Status = status
	now := time.Now()
	switch status {
	case models.TripStatusInProgress:
		trip.StartedAt = &now
	case models.TripStatusCompleted:
		trip.CompletedAt = &now
	case models.TripStatusCancelled:
		trip.CancelledAt = &now
	}
	return nil
}

func (r *memTripRepo) Cancel(_ context.Context, id primitive.ObjectID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	trip.Status = models.TripStatusCancelled
	trip.CancellationReason = reason
	trip.CancelledAt = &now
	return nil
}

// ReserveSeats mirrors the Mongo conditional decrement: check and
// decrement happen under one lock, so concurrent callers cannot both take
// the last seat.
func (r *memTripRepo) ReserveSeats(_ context.Context, id primitive.ObjectID, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok || !trip.Status.IsOpen() || trip.AvailableSeats < seats {
		return models.ErrInsufficientSeats
	}
	trip.AvailableSeats -= seats
	return nil
}

func (r *memTripRepo) ReleaseSeats(_ context.Context, id primitive.ObjectID, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return models.ErrNotFound
	}
	trip.AvailableSeats += seats
	return nil
}

func (r *memTripRepo) SetDerivedState(_ context.Context, id primitive.ObjectID, availableSeats int, status models.TripStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return models.ErrNotFound
	}
	if !trip.Status.IsOpen() {
		return nil
	}
	trip.AvailableSeats = availableSeats
	trip.Status = status
	return nil
}

func (r *memTripRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Trip, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.DriverID == driverID {
			copy := *trip
			out = append(out, &copy)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTripRepo) GetByVehicle(_ context.Context, vehicleID primitive.ObjectID) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.VehicleID == vehicleID {
			copy := *trip
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memTripRepo) Search(_ context.Context, filter *interfaces.TripSearchFilter, _ *utils.PaginationParams) ([]*models.Trip, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Trip
	for _, trip := range r.trips {
		if filter != nil {
			if filter.FromWilaya != 0 && trip.FromWilaya != filter.FromWilaya {
				continue
			}
			if filter.ToWilaya != 0 && trip.ToWilaya != filter.ToWilaya {
				continue
			}
			if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, trip.Status) {
				continue
			}
		}
		copy := *trip
		out = append(out, &copy)
	}
	return out, int64(len(out)), nil
}

func containsStatus(statuses []models.TripStatus, status models.TripStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *memTripRepo) GetOpenTrips(_ context.Context) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Trip
	for _, trip := range r.trips {
		if trip.Status.IsOpen() {
			copy := *trip
			out = append(out, &copy)
		}
	}
	return out, nil
}

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
	// createErr makes the next Create fail, for abort-path tests.
	createErr error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[primitive.ObjectID]*models.Booking)}
}

func (r *memBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}

	booking.ID = primitive.NewObjectID()
	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	copy := *booking
	r.bookings[booking.ID] = &copy
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id.Hex(), models.ErrNotFound)
	}
	copy := *booking
	return &copy, nil
}

func (r *memBookingRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if status, ok := updates["status"]; ok {
		booking.Status = status.(models.BookingStatus)
	}
	if reason, ok := updates["cancellation_reason"]; ok {
		booking.CancellationReason = reason.(string)
	}
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.BookingStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	booking.Status = status
	if reason != "" {
		booking.CancellationReason = reason
	}
	now := time.Now()
	switch status {
	case models.BookingStatusConfirmed:
		booking.ConfirmedAt = &now
	case models.BookingStatusCompleted:
		booking.CompletedAt = &now
	case models.BookingStatusCancelled, models.BookingStatusRejected:
		booking.CancelledAt = &now
	}
	return nil
}

func (r *memBookingRepo) BulkUpdateStatusByTrip(_ context.Context, tripID primitive.ObjectID, from []models.BookingStatus, to models.BookingStatus, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var moved int64
	for _, booking := range r.bookings {
		if booking.TripID != tripID {
			continue
		}
		match := false
		for _, f := range from {
			if booking.Status == f {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		booking.Status = to
		if reason != "" {
			booking.CancellationReason = reason
		}
		moved++
	}
	return moved, nil
}

func (r *memBookingRepo) GetByTrip(_ context.Context, tripID primitive.ObjectID) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Booking
	for _, booking := range r.bookings {
		if booking.TripID == tripID {
			copy := *booking
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memBookingRepo) GetActiveByTrip(_ context.Context, tripID primitive.ObjectID) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Booking
	for _, booking := range r.bookings {
		if booking.TripID == tripID && booking.Status.ConsumesSeat() {
			copy := *booking
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memBookingRepo) GetByPassenger(_ context.Context, passengerID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Booking
	for _, booking := range r.bookings {
		if booking.PassengerID == passengerID {
			copy := *booking
			out = append(out, &copy)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Booking
	for _, booking := range r.bookings {
		if booking.DriverID == driverID {
			copy := *booking
			out = append(out, &copy)
		}
	}
	return out, int64(len(out)), nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[primitive.ObjectID]*models.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[primitive.ObjectID]*models.Profile)}
}

func (r *memProfileRepo) put(profile *models.Profile) *models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID.IsZero() {
		profile.ID = primitive.NewObjectID()
	}
	copy := *profile
	r.profiles[profile.ID] = &copy
	return profile
}

func (r *memProfileRepo) Create(_ context.Context, profile *models.Profile) error {
	r.put(profile)
	return nil
}

func (r *memProfileRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id.Hex(), models.ErrNotFound)
	}
	copy := *profile
	return &copy, nil
}

func (r *memProfileRepo) GetByPhone(_ context.Context, phone string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, profile := range r.profiles {
		if profile.Phone == phone {
			copy := *profile
			return &copy, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memProfileRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	for key, value := range updates {
		switch key {
		case "full_name":
			profile.FullName = value.(string)
		case "wilaya":
			profile.Wilaya = value.(int)
		case "commune":
			profile.Commune = value.(string)
		case "language":
			profile.Language = value.(string)
		}
	}
	return nil
}

func (r *memProfileRepo) Suspend(_ context.Context, id primitive.ObjectID, reason string, source models.SuspensionSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	profile.IsSuspended = true
	profile.SuspensionReason = reason
	profile.SuspendedBy = source
	profile.SuspendedAt = &now
	return nil
}

func (r *memProfileRepo) Reactivate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	profile.IsSuspended = false
	profile.SuspensionReason = ""
	profile.SuspendedBy = ""
	profile.SuspendedAt = nil
	return nil
}

func (r *memProfileRepo) SetVerified(_ context.Context, id primitive.ObjectID, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	profile.IsVerified = verified
	return nil
}

func (r *memProfileRepo) AddDeviceToken(_ context.Context, id primitive.ObjectID, token models.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	profile.DeviceTokens = append(profile.DeviceTokens, token)
	return nil
}

func (r *memProfileRepo) RemoveDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return models.ErrNotFound
	}
	kept := profile.DeviceTokens[:0]
	for _, t := range profile.DeviceTokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	profile.DeviceTokens = kept
	return nil
}

type memVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[primitive.ObjectID]*models.Vehicle
}

func newMemVehicleRepo() *memVehicleRepo {
	return &memVehicleRepo{vehicles: make(map[primitive.ObjectID]*models.Vehicle)}
}

func (r *memVehicleRepo) Create(_ context.Context, vehicle *models.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	copy := *vehicle
	r.vehicles[vehicle.ID] = &copy
	return nil
}

func (r *memVehicleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vehicle, ok := r.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id.Hex(), models.ErrNotFound)
	}
	copy := *vehicle
	return &copy, nil
}

func (r *memVehicleRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vehicle, ok := r.vehicles[id]
	if !ok {
		return models.ErrNotFound
	}
	if active, ok := updates["is_active"]; ok {
		vehicle.IsActive = active.(bool)
	}
	return nil
}

func (r *memVehicleRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.vehicles, id)
	return nil
}

func (r *memVehicleRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID) ([]*models.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Vehicle
	for _, vehicle := range r.vehicles {
		if vehicle.DriverID == driverID {
			copy := *vehicle
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memVehicleRepo) CountActiveByDriver(_ context.Context, driverID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, vehicle := range r.vehicles {
		if vehicle.DriverID == driverID && vehicle.IsActive {
			count++
		}
	}
	return count, nil
}

type memDeletionRepo struct {
	mu        sync.Mutex
	deletions []*models.TripDeletion
}

func newMemDeletionRepo() *memDeletionRepo {
	return &memDeletionRepo{}
}

func (r *memDeletionRepo) Record(_ context.Context, deletion *models.TripDeletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deletion.ID = primitive.NewObjectID()
	if deletion.DeletedAt.IsZero() {
		deletion.DeletedAt = time.Now()
	}
	copy := *deletion
	r.deletions = append(r.deletions, &copy)
	return nil
}

func (r *memDeletionRepo) CountByDriverSince(_ context.Context, driverID primitive.ObjectID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, d := range r.deletions {
		if d.DriverID == driverID && !d.DeletedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memDeletionRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID, since time.Time) ([]*models.TripDeletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.TripDeletion
	for _, d := range r.deletions {
		if d.DriverID == driverID && !d.DeletedAt.Before(since) {
			copy := *d
			out = append(out, &copy)
		}
	}
	return out, nil
}

// recordingNotifier captures Dispatch calls instead of delivering.
type recordingNotifier struct {
	mu         sync.Mutex
	dispatched []dispatchedNotification
}

type dispatchedNotification struct {
	UserID    primitive.ObjectID
	Type      models.NotificationType
	RelatedID primitive.ObjectID
}

func (n *recordingNotifier) Dispatch(userID primitive.ObjectID, notificationType models.NotificationType, _, _ string, relatedID primitive.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatched = append(n.dispatched, dispatchedNotification{UserID: userID, Type: notificationType, RelatedID: relatedID})
}

func (n *recordingNotifier) byType(notificationType models.NotificationType) []dispatchedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []dispatchedNotification
	for _, d := range n.dispatched {
		if d.Type == notificationType {
			out = append(out, d)
		}
	}
	return out
}

func (n *recordingNotifier) GetByUser(context.Context, primitive.ObjectID, *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return nil, 0, nil
}
func (n *recordingNotifier) CountUnread(context.Context, primitive.ObjectID) (int64, error) {
	return 0, nil
}
func (n *recordingNotifier) MarkRead(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}
func (n *recordingNotifier) MarkAllRead(context.Context, primitive.ObjectID) error {
	return nil
}

// directTxRunner runs the function inline; the in-memory repos have no
// transactions to join.
type directTxRunner struct{}

func (directTxRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// rollbackTxRunner emulates an aborted session for the trip collection:
// when fn errors, trips are restored to their pre-transaction state.
type rollbackTxRunner struct {
	trips *memTripRepo
}

func (r rollbackTxRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.trips.mu.Lock()
	snapshot := make(map[primitive.ObjectID]*models.Trip, len(r.trips.trips))
	for id, trip := range r.trips.trips {
		copy := *trip
		snapshot[id] = &copy
	}
	r.trips.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.trips.mu.Lock()
		r.trips.trips = snapshot
		r.trips.mu.Unlock()
		return err
	}
	return nil
}
