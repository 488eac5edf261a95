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

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateBooking reserves seats on a trip for the authenticated passenger
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.CreateBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateCreateBooking(&request); len(errs) > 0 {
		details := make(map[string]string, len(errs))
		for _, e := range errs {
			details[e.Field] = e.Message
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), userID, &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking requested successfully", booking)
}

// GetBooking returns a single booking visible to its parties
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	bookingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.GetByID(c.Request.Context(), userID, role, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// ConfirmBooking moves a pending booking to confirmed
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	h.transition(c, func(c *gin.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, _ string) (interface{}, error) {
		return h.bookingService.Confirm(c.Request.Context(), userID, role, bookingID)
	}, false, "Booking confirmed successfully")
}

// RejectBooking moves a pending booking to rejected; a reason is required
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.transition(c, func(c *gin.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (interface{}, error) {
		return h.bookingService.Reject(c.Request.Context(), userID, role, bookingID, reason)
	}, true, "Booking rejected")
}

// CancelBooking cancels a pending or confirmed booking; a reason is required
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.transition(c, func(c *gin.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (interface{}, error) {
		return h.bookingService.Cancel(c.Request.Context(), userID, role, bookingID, reason)
	}, true, "Booking cancelled")
}

// CompleteBooking completes a booking; for drivers this closes the trip
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	h.transition(c, func(c *gin.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, _ string) (interface{}, error) {
		return h.bookingService.Complete(c.Request.Context(), userID, role, bookingID)
	}, false, "Booking completed")
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type transitionFunc func(c *gin.Context, userID primitive.ObjectID, role models.UserRole, bookingID primitive.ObjectID, reason string) (interface{}, error)

func (h *BookingHandler) transition(c *gin.Context, fn transitionFunc, wantsReason bool, successMessage string) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	bookingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return
	}

	var reason string
	if wantsReason {
		var request reasonRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			utils.BadRequestResponse(c, "Invalid request: "+err.Error())
			return
		}
		reason = request.Reason
	}

	booking, err := fn(c, userID, role, bookingID, reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, successMessage, booking)
}

// GetMyBookings lists the authenticated passenger's bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.GetByPassenger(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetReceivedBookings lists bookings on the authenticated driver's trips
func (h *BookingHandler) GetReceivedBookings(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.GetByDriver(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetTripBookings lists the bookings on a trip for its driver
func (h *BookingHandler) GetTripBookings(c *gin.Context) {
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

	bookings, err := h.bookingService.GetByTrip(c.Request.Context(), userID, role, tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bookings retrieved successfully", bookings)
}
