package handlers

import (
	"strconv"

	"abride/internal/middleware"
	"abride/internal/repositories/interfaces"
	"abride/internal/services"
	"abride/internal/utils"
	"abride/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	tripService services.TripService
	timezone    string
}

func NewTripHandler(tripService services.TripService, timezone string) *TripHandler {
	if timezone == "" {
		timezone = utils.DefaultTimeZone
	}
	return &TripHandler{
		tripService: tripService,
		timezone:    timezone,
	}
}

// CreateTrip publishes a new trip for the authenticated driver
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.CreateTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateCreateTrip(&request); len(errs) > 0 {
		details := make(map[string]string, len(errs))
		for _, e := range errs {
			details[e.Field] = e.Message
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	trip, err := h.tripService.Create(c.Request.Context(), userID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Trip published successfully", trip)
}

// GetTrip returns a trip by ID
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	trip, err := h.tripService.GetByID(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip retrieved successfully", trip)
}

// SearchTrips lists open trips filtered by route and date
func (h *TripHandler) SearchTrips(c *gin.Context) {
	filter := &interfaces.TripSearchFilter{}

	if from, err := strconv.Atoi(c.Query("from_wilaya")); err == nil {
		filter.FromWilaya = from
	}
	if to, err := strconv.Atoi(c.Query("to_wilaya")); err == nil {
		filter.ToWilaya = to
	}
	if dateStr := c.Query("date"); dateStr != "" {
		date, err := utils.ParseDateOnly(dateStr, h.timezone)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		filter.DepartureDate = &date
	}

	params := utils.GetPaginationParams(c)
	trips, total, err := h.tripService.Search(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Trips retrieved successfully", trips, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetMyTrips lists the authenticated driver's trips
func (h *TripHandler) GetMyTrips(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	trips, total, err := h.tripService.GetByDriver(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Trips retrieved successfully", trips, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// StartTrip moves a trip to in_progress
func (h *TripHandler) StartTrip(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	trip, err := h.tripService.Start(c.Request.Context(), userID, role, tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip started", trip)
}

// CompleteTrip completes the trip and its active bookings
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	trip, err := h.tripService.Complete(c.Request.Context(), userID, role, tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip completed", trip)
}

// CancelTrip cancels the trip and cascades to its bookings
func (h *TripHandler) CancelTrip(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	var request reasonRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	trip, err := h.tripService.Cancel(c.Request.Context(), userID, role, tripID, request.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip cancelled", trip)
}

// DeleteTrip hard-deletes an open trip, subject to the deletion rate limit
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	if err := h.tripService.Delete(c.Request.Context(), userID, role, tripID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip deleted", nil)
}
