package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(h *Hub, userID primitive.ObjectID, role string) *Client {
	return NewClient(h, nil, uuid.NewString(), userID, role)
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestTripRoomDelivery(t *testing.T) {
	h := NewHub()
	userID := primitive.NewObjectID()
	tripID := primitive.NewObjectID()

	client := newTestClient(h, userID, "passenger")
	h.registerClient(client)
	drain(client) // welcome

	h.mutex.Lock()
	h.joinRoom(client, TripRoom(tripID))
	h.mutex.Unlock()

	h.SendToTrip(tripID, Message{
		Type:      "trip_refresh",
		RoomID:    TripRoom(tripID),
		Timestamp: time.Now().Unix(),
		Data:      map[string]interface{}{"trip_id": tripID.Hex()},
	})

	select {
	case raw := <-client.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "trip_refresh", msg.Type)
		assert.Equal(t, tripID.Hex(), msg.Data["trip_id"])
	default:
		t.Fatal("no message delivered to room member")
	}
}

// A client whose send queue is full gets evicted everywhere at once, so no
// room can later hand data to a closed channel.
func TestSlowClientIsEvictedFromAllRooms(t *testing.T) {
	h := NewHub()
	userID := primitive.NewObjectID()
	tripA := primitive.NewObjectID()
	tripB := primitive.NewObjectID()

	client := newTestClient(h, userID, "passenger")
	h.registerClient(client)
	h.mutex.Lock()
	h.joinRoom(client, TripRoom(tripA))
	h.joinRoom(client, TripRoom(tripB))
	h.mutex.Unlock()

	// Saturate the send queue.
	for i := 0; i < cap(client.send); i++ {
		select {
		case client.send <- []byte("{}"):
		default:
		}
	}

	h.SendToTrip(tripA, Message{Type: "trip_refresh"})

	h.mutex.RLock()
	_, stillMember := h.clients[client]
	_, roomAAlive := h.rooms[TripRoom(tripA)]
	_, roomBAlive := h.rooms[TripRoom(tripB)]
	h.mutex.RUnlock()

	assert.False(t, stillMember)
	assert.False(t, roomAAlive)
	assert.False(t, roomBAlive)

	// Sending to the other room after eviction must be a no-op, not a
	// write to a closed channel.
	assert.NotPanics(t, func() {
		h.SendToTrip(tripB, Message{Type: "trip_refresh"})
	})
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	client := newTestClient(h, primitive.NewObjectID(), "driver")
	h.registerClient(client)

	assert.NotPanics(t, func() {
		h.unregisterClient(client)
		h.unregisterClient(client)
	})
}

// Concurrent senders and disconnects share the hub maps; everything must
// serialize without panics or lost membership accounting.
func TestConcurrentSendAndDisconnect(t *testing.T) {
	h := NewHub()
	userID := primitive.NewObjectID()

	clients := make([]*Client, 8)
	for i := range clients {
		clients[i] = newTestClient(h, userID, "passenger")
		h.registerClient(clients[i])
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.SendToUser(userID, Message{Type: "notification"})
			}
		}()
	}
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			h.unregisterClient(c)
		}(c)
	}
	wg.Wait()

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	assert.Empty(t, h.clients)
	assert.Empty(t, h.rooms)
}

func TestWatchedTrips(t *testing.T) {
	h := NewHub()
	client := newTestClient(h, primitive.NewObjectID(), "passenger")
	h.registerClient(client)

	tripA := primitive.NewObjectID()
	tripB := primitive.NewObjectID()
	h.mutex.Lock()
	h.joinRoom(client, TripRoom(tripA))
	h.joinRoom(client, TripRoom(tripB))
	h.mutex.Unlock()

	watched := h.WatchedTrips()
	assert.ElementsMatch(t, []primitive.ObjectID{tripA, tripB}, watched)
}
