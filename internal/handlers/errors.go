package handlers

import (
	"errors"
	"net/http"

	"abride/internal/models"
	"abride/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service sentinels to HTTP responses. Every handler
// funnels its service errors through here so a given sentinel always
// produces the same status and code.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, models.ErrInsufficientSeats):
		utils.ErrorResponse(c, http.StatusConflict, "INSUFFICIENT_SEATS", err.Error())
	case errors.Is(err, models.ErrTripNotBookable):
		utils.ErrorResponse(c, http.StatusConflict, "TRIP_NOT_BOOKABLE", err.Error())
	case errors.Is(err, models.ErrAccountSuspended):
		utils.ErrorResponse(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", err.Error())
	case errors.Is(err, models.ErrMissingReason):
		utils.ErrorResponse(c, http.StatusBadRequest, "MISSING_REASON", err.Error())
	case errors.Is(err, models.ErrProfileIncomplete):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PROFILE_INCOMPLETE", err.Error())
	case errors.Is(err, models.ErrDriverNotVerified):
		utils.ErrorResponse(c, http.StatusForbidden, "DRIVER_NOT_VERIFIED", err.Error())
	case errors.Is(err, models.ErrNoActiveVehicle):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "NO_ACTIVE_VEHICLE", err.Error())
	case errors.Is(err, models.ErrActionInProgress):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "ACTION_IN_PROGRESS", err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}
