package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub *Hub
}

func NewHandler() *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub: hub,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	role, exists := c.Get("user_role")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	roleStr, ok := role.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user role"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, uuid.NewString(), userObjectID, roleStr)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SendTripRefresh tells every session watching the trip to re-fetch it.
// The payload deliberately carries no entity data: the contract is
// "refresh", not "patch".
func (h *Handler) SendTripRefresh(tripID primitive.ObjectID) {
	message := Message{
		Type:      "trip_refresh",
		RoomID:    TripRoom(tripID),
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"trip_id": tripID.Hex(),
		},
	}

	h.hub.SendToTrip(tripID, message)
}

func (h *Handler) SendUserNotification(userID primitive.ObjectID, notificationType string, data map[string]interface{}) {
	message := Message{
		Type:      notificationType,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	h.hub.SendToUser(userID, message)
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
