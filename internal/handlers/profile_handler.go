package handlers

import (
	"abride/internal/middleware"
	"abride/internal/models"
	"abride/internal/services"
	"abride/internal/utils"
	"abride/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// GetProfile returns the authenticated user's profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	profile, err := h.profileService.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile retrieved successfully", profile)
}

// UpdateProfile updates the authenticated user's profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.UpdateProfileRequest
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

	profile, err := h.profileService.Update(c.Request.Context(), userID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile updated successfully", profile)
}

type deviceTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=android ios"`
}

// RegisterDeviceToken registers a push token for the authenticated user
func (h *ProfileHandler) RegisterDeviceToken(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request deviceTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		utils.BadRequestResponse(c, errs.Error())
		return
	}

	token := models.DeviceToken{Token: request.Token, Platform: request.Platform}
	if err := h.profileService.RegisterDeviceToken(c.Request.Context(), userID, token); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Device token registered", nil)
}

// RemoveDeviceToken removes a push token from the authenticated user
func (h *ProfileHandler) RemoveDeviceToken(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	token := c.Param("token")
	if token == "" {
		utils.BadRequestResponse(c, "Token is required")
		return
	}

	if err := h.profileService.RemoveDeviceToken(c.Request.Context(), userID, token); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Device token removed", nil)
}

// Admin moderation endpoints

// VerifyDriver marks a driver as verified
func (h *ProfileHandler) VerifyDriver(c *gin.Context) {
	driverID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	if err := h.profileService.VerifyDriver(c.Request.Context(), driverID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver verified", nil)
}

// SuspendUser suspends an account; a reason is required
func (h *ProfileHandler) SuspendUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	var request reasonRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.profileService.Suspend(c.Request.Context(), userID, request.Reason); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Account suspended", nil)
}

// ReactivateUser clears an account suspension, including rate-limit ones
func (h *ProfileHandler) ReactivateUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	if err := h.profileService.Reactivate(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Account reactivated", nil)
}
