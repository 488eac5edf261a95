package handlers

import (
	"abride/internal/middleware"
	"abride/internal/services"
	"abride/internal/utils"
	"abride/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleHandler struct {
	vehicleService services.VehicleService
}

func NewVehicleHandler(vehicleService services.VehicleService) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
	}
}

// CreateVehicle registers a vehicle for the authenticated driver
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.CreateVehicleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		details := make(map[string]string, len(errs))
		for _, e := range errs {
			details[e.Field] = e.Message
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), userID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Vehicle registered successfully", vehicle)
}

// GetMyVehicles lists the authenticated driver's vehicles
func (h *VehicleHandler) GetMyVehicles(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	vehicles, err := h.vehicleService.GetByDriver(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicles retrieved successfully", vehicles)
}

// UpdateVehicle updates mutable vehicle fields, including is_active
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	vehicleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid vehicle ID")
		return
	}

	var request services.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	vehicle, err := h.vehicleService.Update(c.Request.Context(), userID, role, vehicleID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicle updated successfully", vehicle)
}

// DeleteVehicle removes a vehicle and cancels its open trips
func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	vehicleID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid vehicle ID")
		return
	}

	if err := h.vehicleService.Delete(c.Request.Context(), userID, role, vehicleID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicle removed", nil)
}
