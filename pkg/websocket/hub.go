package websocket

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub fans state-change signals out to open sessions. Dashboards join their
// personal room and the rooms of trips they are watching; a reconcile run
// publishes into those rooms so every open view re-fetches instead of
// trusting its local copy.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	// Every session joins its personal room; drivers also join the shared
	// drivers room so fleet-wide signals reach them.
	h.joinRoom(client, UserRoom(client.UserID))
	if client.Role == "driver" {
		h.joinRoom(client, "drivers")
	}

	welcome := Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: time.Now().Unix(),
		Data: map[string]interface{}{
			"message": "connected",
		},
	}
	data, _ := json.Marshal(welcome)
	h.deliver(client, data)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.dropClient(client)
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("websocket: dropping malformed message: %v", err)
		return
	}

	if msg.RoomID != "" {
		h.sendToRoom(msg.RoomID, msg)
	} else {
		h.sendToAll(msg)
	}
}

// Send paths take the write lock: dropping a stale client mutates the
// client and room maps, so a read lock is not enough.
func (h *Hub) sendToAll(message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, _ := json.Marshal(message)
	for client := range h.clients {
		h.deliver(client, data)
	}
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		h.deliver(client, data)
	}
}

// deliver hands data to the client's send queue, evicting it when the
// queue is full. Caller holds the write lock.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.dropClient(client)
	}
}

// dropClient closes the client out of the hub entirely: its send channel,
// its membership, and every room it joined. Idempotent; caller holds the
// write lock. Removing the client from all rooms keeps the invariant that
// any client reachable from a room has an open send channel.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) {
	h.sendToRoom(UserRoom(userID), message)
}

func (h *Hub) SendToTrip(tripID primitive.ObjectID, message Message) {
	h.sendToRoom(TripRoom(tripID), message)
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(client.rooms, roomID)
}

// WatchedTrips returns the trips that have at least one open session
// watching them right now.
func (h *Hub) WatchedTrips() []primitive.ObjectID {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var tripIDs []primitive.ObjectID
	for roomID := range h.rooms {
		if !strings.HasPrefix(roomID, "trip_") {
			continue
		}
		tripID, err := primitive.ObjectIDFromHex(strings.TrimPrefix(roomID, "trip_"))
		if err != nil {
			continue
		}
		tripIDs = append(tripIDs, tripID)
	}
	return tripIDs
}

func UserRoom(userID primitive.ObjectID) string {
	return "user_" + userID.Hex()
}

func TripRoom(tripID primitive.ObjectID) string {
	return "trip_" + tripID.Hex()
}
