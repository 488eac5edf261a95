package handlers

import (
	"abride/internal/middleware"
	"abride/internal/services"
	"abride/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications lists the authenticated user's inbox
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationService.GetByUser(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", notifications, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	count, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved", gin.H{"unread": count})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", nil)
}

// MarkAllRead marks the whole inbox as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "All notifications marked as read", nil)
}
