package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint replies with.
type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Total      int64           `json:"total,omitempty"`
	Count      int             `json:"count,omitempty"`
}

func respond(c *gin.Context, statusCode int, body APIResponse) {
	body.Timestamp = time.Now()
	c.JSON(statusCode, body)
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data, Meta: meta})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, APIResponse{
		Status: StatusError,
		Error:  &APIError{Code: code, Message: message},
	})
}

func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	respond(c, http.StatusBadRequest, APIResponse{
		Status: StatusError,
		Error:  &APIError{Code: "VALIDATION_ERROR", Message: ErrValidationFailed, Details: errors},
	})
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", ErrInternalServer)
}
