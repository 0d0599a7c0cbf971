package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
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
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID, roleStr)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SendEmergencyUpdate publishes an event into the emergency's room.
func (h *Handler) SendEmergencyUpdate(emergencyID primitive.ObjectID, eventType string, data map[string]interface{}) {
	message := Message{
		Type:      eventType,
		RoomID:    "emergency_" + emergencyID.Hex(),
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.SendEmergencyUpdate(emergencyID, message)
}

// NotifyDrivers publishes an event to the drivers room.
func (h *Handler) NotifyDrivers(eventType string, data map[string]interface{}) {
	message := Message{
		Type:      eventType,
		RoomID:    "drivers",
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.SendToDrivers(message)
}

// BroadcastEvent publishes an event to every connected client.
func (h *Handler) BroadcastEvent(eventType string, data map[string]interface{}) {
	message := Message{
		Type:      eventType,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.BroadcastAll(message)
}

func (h *Handler) SendUserNotification(userID primitive.ObjectID, eventType string, data map[string]interface{}) {
	message := Message{
		Type:      eventType,
		UserID:    userID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.SendToUser(userID, message)
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
