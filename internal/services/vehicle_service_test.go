package services

import (
	"context"
	"testing"
	"time"

	"abride/internal/models"
	"abride/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type vehicleFixture struct {
	trips    *memTripRepo
	vehicles *memVehicleRepo
	profiles *memProfileRepo
	service  VehicleService
	tripSvc  TripService
	driver   *models.Profile
}

func newVehicleFixture(t *testing.T) *vehicleFixture {
	t.Helper()

	trips := newMemTripRepo()
	bookings := newMemBookingRepo()
	vehicles := newMemVehicleRepo()
	profiles := newMemProfileRepo()
	deletions := newMemDeletionRepo()
	notifier := &recordingNotifier{}
	ledger := NewSeatLedger(logger.NewNop())
	reconciler := NewReconcileService(trips, bookings, ledger, nil, nil, logger.NewNop(), ReconcileOptions{})

	tripSvc := NewTripService(trips, bookings, vehicles, profiles, deletions, directTxRunner{}, notifier, reconciler, logger.NewNop(), TripServiceConfig{})
	service := NewVehicleService(vehicles, profiles, tripSvc, logger.NewNop())

	driver := &models.Profile{
		FullName:   "Karim Benali",
		Phone:      "+213550000002",
		Role:       models.RoleDriver,
		Wilaya:     16,
		Commune:    "Hydra",
		IsVerified: true,
	}
	profiles.put(driver)

	return &vehicleFixture{
		trips:    trips,
		vehicles: vehicles,
		profiles: profiles,
		service:  service,
		tripSvc:  tripSvc,
		driver:   driver,
	}
}

func (f *vehicleFixture) register(t *testing.T) *models.Vehicle {
	t.Helper()
	vehicle, err := f.service.Create(context.Background(), f.driver.ID, &CreateVehicleRequest{
		Make:         "Peugeot",
		Model:        "301",
		Year:         2019,
		Color:        "gris",
		LicensePlate: "00456-119-16",
		Seats:        4,
	})
	require.NoError(t, err)
	return vehicle
}

func (f *vehicleFixture) openTrip(t *testing.T, vehicleID primitive.ObjectID) *models.Trip {
	t.Helper()
	trip, err := f.tripSvc.Create(context.Background(), f.driver.ID, &CreateTripRequest{
		VehicleID:     vehicleID,
		FromWilaya:    16,
		ToWilaya:      31,
		DepartureDate: time.Now().AddDate(0, 0, 2).Format("2006-01-02"),
		DepartureTime: "10:00",
		PricePerSeat:  900,
		TotalSeats:    3,
	})
	require.NoError(t, err)
	return trip
}

func TestRegisterVehicle(t *testing.T) {
	f := newVehicleFixture(t)

	vehicle := f.register(t)

	assert.True(t, vehicle.IsActive)
	assert.Equal(t, f.driver.ID, vehicle.DriverID)
}

func TestRegisterVehicleSuspendedDriver(t *testing.T) {
	f := newVehicleFixture(t)
	require.NoError(t, f.profiles.Suspend(context.Background(), f.driver.ID, "abuse", models.SuspensionSourceAdmin))

	_, err := f.service.Create(context.Background(), f.driver.ID, &CreateVehicleRequest{
		Make: "Dacia", Model: "Logan", Year: 2020, Color: "blanc", LicensePlate: "00789-120-16", Seats: 4,
	})
	assert.ErrorIs(t, err, models.ErrAccountSuspended)
}

func TestDeactivatingVehicleCancelsOpenTrips(t *testing.T) {
	f := newVehicleFixture(t)
	ctx := context.Background()

	vehicle := f.register(t)
	trip := f.openTrip(t, vehicle.ID)

	inactive := false
	_, err := f.service.Update(ctx, f.driver.ID, models.RoleDriver, vehicle.ID, &UpdateVehicleRequest{IsActive: &inactive})
	require.NoError(t, err)

	reloaded, err := f.trips.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, reloaded.Status)
}

func TestColorUpdateLeavesTripsAlone(t *testing.T) {
	f := newVehicleFixture(t)
	ctx := context.Background()

	vehicle := f.register(t)
	trip := f.openTrip(t, vehicle.ID)

	color := "rouge"
	_, err := f.service.Update(ctx, f.driver.ID, models.RoleDriver, vehicle.ID, &UpdateVehicleRequest{Color: &color})
	require.NoError(t, err)

	reloaded, err := f.trips.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusScheduled, reloaded.Status)
}

func TestDeleteVehicleCancelsOpenTrips(t *testing.T) {
	f := newVehicleFixture(t)
	ctx := context.Background()

	vehicle := f.register(t)
	trip := f.openTrip(t, vehicle.ID)

	require.NoError(t, f.service.Delete(ctx, f.driver.ID, models.RoleDriver, vehicle.ID))

	_, err := f.vehicles.GetByID(ctx, vehicle.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	reloaded, err := f.trips.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, reloaded.Status)
}

func TestVehicleOwnershipEnforced(t *testing.T) {
	f := newVehicleFixture(t)
	ctx := context.Background()

	vehicle := f.register(t)
	stranger := primitive.NewObjectID()

	color := "noir"
	_, err := f.service.Update(ctx, stranger, models.RoleDriver, vehicle.ID, &UpdateVehicleRequest{Color: &color})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = f.service.Delete(ctx, stranger, models.RoleDriver, vehicle.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Admins bypass ownership.
	err = f.service.Delete(ctx, stranger, models.RoleAdmin, vehicle.ID)
	assert.NoError(t, err)
}
