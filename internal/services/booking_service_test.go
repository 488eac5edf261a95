package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"abride/internal/models"
	"abride/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type bookingFixture struct {
	trips     *memTripRepo
	bookings  *memBookingRepo
	profiles  *memProfileRepo
	notifier  *recordingNotifier
	service   BookingService
	passenger *models.Profile
	driver    *models.Profile
	trip      *models.Trip
}

func newBookingFixture(t *testing.T, totalSeats int) *bookingFixture {
	t.Helper()

	trips := newMemTripRepo()
	bookings := newMemBookingRepo()
	profiles := newMemProfileRepo()
	notifier := &recordingNotifier{}
	ledger := NewSeatLedger(logger.NewNop())
	reconciler := NewReconcileService(trips, bookings, ledger, nil, nil, logger.NewNop(), ReconcileOptions{})

	service := NewBookingService(bookings, trips, profiles, ledger, directTxRunner{}, notifier, reconciler, nil, logger.NewNop(), 0)

	passenger := &models.Profile{
		FullName: "Amina Cherif",
		Phone:    "+213550000001",
		Role:     models.RolePassenger,
		Wilaya:   16,
		Commune:  "Bab El Oued",
	}
	profiles.put(passenger)

	driver := &models.Profile{
		FullName:   "Karim Benali",
		Phone:      "+213550000002",
		Role:       models.RoleDriver,
		Wilaya:     47,
		Commune:    "Ghardaïa",
		IsVerified: true,
	}
	profiles.put(driver)

	trip := &models.Trip{
		DriverID:     driver.ID,
		FromWilaya:   16,
		ToWilaya:     47,
		ToKsar:       "Beni Isguen",
		PricePerSeat: 1500,
		TotalSeats:   totalSeats,
	}
	require.NoError(t, trips.Create(context.Background(), trip))

	return &bookingFixture{
		trips:     trips,
		bookings:  bookings,
		profiles:  profiles,
		notifier:  notifier,
		service:   service,
		passenger: passenger,
		driver:    driver,
		trip:      trip,
	}
}

func (f *bookingFixture) book(t *testing.T, seats int) *models.Booking {
	t.Helper()
	booking, err := f.service.Create(context.Background(), f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: seats})
	require.NoError(t, err)
	return booking
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t, 4)

	booking := f.book(t, 2)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, 2, booking.SeatsBooked)
	assert.Equal(t, float64(3000), booking.TotalAmount)
	assert.Equal(t, f.driver.ID, booking.DriverID)

	trip, err := f.trips.GetByID(context.Background(), f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, trip.AvailableSeats)

	// The driver hears about the request.
	requested := f.notifier.byType(models.NotificationTypeBookingRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, f.driver.ID, requested[0].UserID)
}

func TestCreateBookingFreezesPrice(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 1)

	// A later price change must not reprice existing bookings.
	f.trips.mu.Lock()
	f.trips.trips[f.trip.ID].PricePerSeat = 9000
	f.trips.mu.Unlock()

	stored, err := f.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1500), stored.TotalAmount)
}

func TestCreateBookingPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete profile", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		f.passenger.Commune = ""
		f.profiles.put(f.passenger)

		_, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
		assert.ErrorIs(t, err, models.ErrProfileIncomplete)
	})

	t.Run("suspended passenger", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		require.NoError(t, f.profiles.Suspend(ctx, f.passenger.ID, "abuse", models.SuspensionSourceAdmin))

		_, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
		assert.ErrorIs(t, err, models.ErrAccountSuspended)
	})

	t.Run("suspended driver", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		require.NoError(t, f.profiles.Suspend(ctx, f.driver.ID, "rate limit", models.SuspensionSourceRateLimit))

		_, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
		assert.ErrorIs(t, err, models.ErrAccountSuspended)
	})

	t.Run("trip not scheduled", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		require.NoError(t, f.trips.UpdateStatus(ctx, f.trip.ID, models.TripStatusInProgress))

		_, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
		assert.ErrorIs(t, err, models.ErrTripNotBookable)
	})

	t.Run("too many seats", func(t *testing.T) {
		f := newBookingFixture(t, 2)

		_, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 3})
		assert.ErrorIs(t, err, models.ErrInsufficientSeats)
	})
}

// A fully booked trip is still an open trip: asking for seats on it is a
// seat shortage, not an unbookable trip.
func TestFullyBookedTripReportsSeatShortage(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.book(t, 2)

	trip, err := f.trips.GetByID(context.Background(), f.trip.ID)
	require.NoError(t, err)
	require.Equal(t, models.TripStatusFullyBooked, trip.Status)

	_, err = f.service.Create(context.Background(), f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
	assert.NotErrorIs(t, err, models.ErrTripNotBookable)
}

// Pending bookings hold seats: once requests cover the trip, the next
// passenger is refused even though nothing is confirmed yet.
func TestPendingBookingsConsumeSeats(t *testing.T) {
	f := newBookingFixture(t, 3)
	f.book(t, 2)
	f.book(t, 1)

	_, err := f.service.Create(context.Background(), f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
}

// Concurrent passengers racing for the last seats: the conditional
// decrement admits at most capacity seats in total.
func TestConcurrentBookingNeverOverbooks(t *testing.T) {
	f := newBookingFixture(t, 4)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	successes := make(chan *models.Booking, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			booking, err := f.service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 1})
			if err == nil {
				successes <- booking
			}
		}()
	}
	wg.Wait()
	close(successes)

	booked := 0
	for booking := range successes {
		booked += booking.SeatsBooked
	}
	assert.LessOrEqual(t, booked, 4)

	bookings, err := f.bookings.GetActiveByTrip(ctx, f.trip.ID)
	require.NoError(t, err)
	total := 0
	for _, b := range bookings {
		total += b.SeatsBooked
	}
	assert.LessOrEqual(t, total, 4)
}

func TestConfirmBooking(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 2)
	ctx := context.Background()

	confirmed, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	// The passenger is told.
	assert.Len(t, f.notifier.byType(models.NotificationTypeBookingConfirmed), 1)

	// Confirmation does not change seat accounting.
	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, trip.AvailableSeats)
}

func TestPassengerCannotConfirm(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 1)

	_, err := f.service.Confirm(context.Background(), f.passenger.ID, models.RolePassenger, booking.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 1)
	ctx := context.Background()

	_, err := f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "")
	assert.ErrorIs(t, err, models.ErrMissingReason)

	// Whitespace-only reasons count as missing.
	_, err = f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "   \t")
	assert.ErrorIs(t, err, models.ErrMissingReason)

	rejected, err := f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "voiture pleine")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)
}

func TestRejectionReleasesSeats(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 3)
	ctx := context.Background()

	_, err := f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "changement de programme")
	require.NoError(t, err)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, trip.AvailableSeats)
}

func TestCancelConfirmedBookingReleasesSeats(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 2)
	ctx := context.Background()

	_, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, booking.ID)
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(ctx, f.passenger.ID, models.RolePassenger, booking.ID, "empêchement")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, trip.AvailableSeats)

	// The driver hears about the cancellation.
	assert.Len(t, f.notifier.byType(models.NotificationTypeBookingCancelled), 1)
}

// Suspension blocks booking transitions, not just creation: a suspended
// driver cannot confirm or reject and a suspended passenger cannot cancel.
func TestSuspendedActorsCannotTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("suspended driver cannot confirm", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		booking := f.book(t, 1)
		require.NoError(t, f.profiles.Suspend(ctx, f.driver.ID, "abuse", models.SuspensionSourceAdmin))

		_, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, booking.ID)
		assert.ErrorIs(t, err, models.ErrAccountSuspended)

		stored, err := f.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, stored.Status)
	})

	t.Run("suspended driver cannot reject", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		booking := f.book(t, 1)
		require.NoError(t, f.profiles.Suspend(ctx, f.driver.ID, "abuse", models.SuspensionSourceAdmin))

		_, err := f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "complet")
		assert.ErrorIs(t, err, models.ErrAccountSuspended)
	})

	t.Run("suspended driver cannot complete", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		booking := f.book(t, 1)
		_, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, booking.ID)
		require.NoError(t, err)
		require.NoError(t, f.profiles.Suspend(ctx, f.driver.ID, "abuse", models.SuspensionSourceAdmin))

		_, err = f.service.Complete(ctx, f.driver.ID, models.RoleDriver, booking.ID)
		assert.ErrorIs(t, err, models.ErrAccountSuspended)
	})

	t.Run("suspended passenger cannot cancel", func(t *testing.T) {
		f := newBookingFixture(t, 4)
		booking := f.book(t, 1)
		require.NoError(t, f.profiles.Suspend(ctx, f.passenger.ID, "abuse", models.SuspensionSourceAdmin))

		_, err := f.service.Cancel(ctx, f.passenger.ID, models.RolePassenger, booking.ID, "imprévu")
		assert.ErrorIs(t, err, models.ErrAccountSuspended)

		stored, err := f.bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, stored.Status)
	})
}

// A failed booking insert aborts the seat reservation with it: the trip
// counter never drops without a matching booking row.
func TestAbortedBookingInsertKeepsSeatCounter(t *testing.T) {
	f := newBookingFixture(t, 4)
	ctx := context.Background()

	ledger := NewSeatLedger(logger.NewNop())
	reconciler := NewReconcileService(f.trips, f.bookings, ledger, nil, nil, logger.NewNop(), ReconcileOptions{})
	service := NewBookingService(f.bookings, f.trips, f.profiles, ledger,
		rollbackTxRunner{trips: f.trips}, f.notifier, reconciler, nil, logger.NewNop(), 0)

	f.bookings.createErr = errors.New("insert failed")
	_, err := service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 2})
	require.Error(t, err)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, trip.AvailableSeats)
	assert.Equal(t, models.TripStatusScheduled, trip.Status)

	// The next passenger is unaffected.
	f.bookings.createErr = nil
	_, err = service.Create(ctx, f.passenger.ID, &CreateBookingRequest{TripID: f.trip.ID, Seats: 4})
	assert.NoError(t, err)
}

func TestTerminalBookingIsImmutable(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 1)
	ctx := context.Background()

	_, err := f.service.Reject(ctx, f.driver.ID, models.RoleDriver, booking.ID, "complet")
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, booking.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.service.Cancel(ctx, f.passenger.ID, models.RolePassenger, booking.ID, "tant pis")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// Even admins cannot rewrite terminal history.
	_, err = f.service.Complete(ctx, primitive.NewObjectID(), models.RoleAdmin, booking.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDriverCompleteClosesTrip(t *testing.T) {
	f := newBookingFixture(t, 4)
	ctx := context.Background()

	first := f.book(t, 1)
	second := f.book(t, 2)
	_, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, first.ID)
	require.NoError(t, err)

	completed, err := f.service.Complete(ctx, f.driver.ID, models.RoleDriver, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.Status)

	// The other active booking moved too.
	other, err := f.bookings.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, other.Status)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, trip.Status)
}

func TestPassengerCompleteIsScopedToOwnBooking(t *testing.T) {
	f := newBookingFixture(t, 4)
	ctx := context.Background()

	mine := f.book(t, 1)
	other := f.book(t, 1)
	_, err := f.service.Confirm(ctx, f.driver.ID, models.RoleDriver, mine.ID)
	require.NoError(t, err)

	completed, err := f.service.Complete(ctx, f.passenger.ID, models.RolePassenger, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.Status)

	// The sibling booking and the trip are untouched.
	sibling, err := f.bookings.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, sibling.Status)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.TripStatusCompleted, trip.Status)
}

func TestStrangerCannotTouchBooking(t *testing.T) {
	f := newBookingFixture(t, 4)
	booking := f.book(t, 1)
	stranger := primitive.NewObjectID()

	_, err := f.service.Cancel(context.Background(), stranger, models.RolePassenger, booking.ID, "pas le mien")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.service.GetByID(context.Background(), stranger, models.RoleDriver, booking.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestFullyBookedFlipAndBack(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()

	booking := f.book(t, 2)

	trip, err := f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusFullyBooked, trip.Status)
	assert.Equal(t, 0, trip.AvailableSeats)

	// Cancelling reopens the trip.
	_, err = f.service.Cancel(ctx, f.passenger.ID, models.RolePassenger, booking.ID, "imprévu")
	require.NoError(t, err)

	trip, err = f.trips.GetByID(ctx, f.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusScheduled, trip.Status)
	assert.Equal(t, 2, trip.AvailableSeats)
}
