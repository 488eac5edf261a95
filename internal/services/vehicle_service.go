package services

import (
	"context"

	"abride/internal/models"
	"abride/internal/repositories/interfaces"
	"abride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleService interface {
	Create(ctx context.Context, driverID primitive.ObjectID, req *CreateVehicleRequest) (*models.Vehicle, error)
	GetByID(ctx context.Context, vehicleID primitive.ObjectID) (*models.Vehicle, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Vehicle, error)
	Update(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, vehicleID primitive.ObjectID, req *UpdateVehicleRequest) (*models.Vehicle, error)
	Delete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, vehicleID primitive.ObjectID) error
}

type CreateVehicleRequest struct {
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Year         int    `json:"year" validate:"required,min=1980"`
	Color        string `json:"color" validate:"required"`
	LicensePlate string `json:"license_plate" validate:"required"`
	Seats        int    `json:"seats" validate:"required,min=1,max=8"`
}

type UpdateVehicleRequest struct {
	Color    *string `json:"color,omitempty"`
	Seats    *int    `json:"seats,omitempty" validate:"omitempty,min=1,max=8"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type vehicleService struct {
	vehicleRepo interfaces.VehicleRepository
	profileRepo interfaces.ProfileRepository
	trips       TripService
	logger      *logger.Logger
}

func NewVehicleService(
	vehicleRepo interfaces.VehicleRepository,
	profileRepo interfaces.ProfileRepository,
	trips TripService,
	log *logger.Logger,
) VehicleService {
	return &vehicleService{
		vehicleRepo: vehicleRepo,
		profileRepo: profileRepo,
		trips:       trips,
		logger:      log,
	}
}

func (s *vehicleService) Create(ctx context.Context, driverID primitive.ObjectID, req *CreateVehicleRequest) (*models.Vehicle, error) {
	driver, err := s.profileRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.IsSuspended {
		return nil, models.ErrAccountSuspended
	}

	vehicle := &models.Vehicle{
		DriverID:     driverID,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		LicensePlate: req.LicensePlate,
		Seats:        req.Seats,
		IsActive:     true,
	}
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.WithUserID(driverID).WithField("vehicle_id", vehicle.ID.Hex()).Info("vehicle registered")
	return vehicle, nil
}

func (s *vehicleService) GetByID(ctx context.Context, vehicleID primitive.ObjectID) (*models.Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, vehicleID)
}

func (s *vehicleService) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Vehicle, error) {
	return s.vehicleRepo.GetByDriver(ctx, driverID)
}

func (s *vehicleService) Update(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, vehicleID primitive.ObjectID, req *UpdateVehicleRequest) (*models.Vehicle, error) {
	vehicle, err := s.authorize(ctx, driverID, role, vehicleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Seats != nil {
		updates["seats"] = *req.Seats
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return vehicle, nil
	}

	if err := s.vehicleRepo.Update(ctx, vehicleID, updates); err != nil {
		return nil, err
	}

	// Deactivating a vehicle pulls its open trips off the board.
	if req.IsActive != nil && !*req.IsActive {
		if err := s.trips.CancelByVehicle(ctx, vehicleID, "Véhicule désactivé"); err != nil {
			s.logger.WithField("vehicle_id", vehicleID.Hex()).WithError(err).Error("failed to cancel trips for deactivated vehicle")
		}
	}

	return s.vehicleRepo.GetByID(ctx, vehicleID)
}

// Delete removes the vehicle and cancels every open trip that used it.
func (s *vehicleService) Delete(ctx context.Context, driverID primitive.ObjectID, role models.UserRole, vehicleID primitive.ObjectID) error {
	if _, err := s.authorize(ctx, driverID, role, vehicleID); err != nil {
		return err
	}

	if err := s.trips.CancelByVehicle(ctx, vehicleID, "Véhicule retiré"); err != nil {
		s.logger.WithField("vehicle_id", vehicleID.Hex()).WithError(err).Error("failed to cancel trips for removed vehicle")
	}

	if err := s.vehicleRepo.Delete(ctx, vehicleID); err != nil {
		return err
	}

	s.logger.WithUserID(driverID).WithField("vehicle_id", vehicleID.Hex()).Info("vehicle removed")
	return nil
}

func (s *vehicleService) authorize(ctx context.Context, userID primitive.ObjectID, role models.UserRole, vehicleID primitive.ObjectID) (*models.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && vehicle.DriverID != userID {
		return nil, models.ErrUnauthorized
	}
	return vehicle, nil
}
