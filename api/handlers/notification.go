package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHub tracks connected residents (residentId -> conn) and pushes
// access events to them over websocket. It implements access.Listener.
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

// NewNotificationHub creates an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]*websocket.Conn),
	}
}

// HandleAccessWebSocket upgrades the connection and registers the resident
// for event delivery
func (h *NotificationHub) HandleAccessWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	residentID := r.URL.Query().Get("residentId")
	if residentID == "" {
		conn.Close()
		return
	}

	h.mutex.Lock()
	h.clients[residentID] = conn
	h.mutex.Unlock()
	zap.S().Debugw("resident connected to access websocket", "residentId", residentID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.mutex.Lock()
		delete(h.clients, residentID)
		h.mutex.Unlock()
		zap.S().Debugw("resident disconnected from access websocket", "residentId", residentID)
		return nil
	})

	// Drain reads to keep the connection alive until the peer goes away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

// HandleAccessEvent delivers an access event to the issuing resident, if
// connected
func (h *NotificationHub) HandleAccessEvent(event models.AccessEvent) {
	h.mutex.Lock()
	conn, exists := h.clients[event.ResidentID]
	h.mutex.Unlock()

	if !exists {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{
		"event": event.Type,
		"data":  event,
	})
	if err != nil {
		zap.S().Warnw("failed to push access event, dropping connection",
			"residentId", event.ResidentID, "error", err)
		h.mutex.Lock()
		delete(h.clients, event.ResidentID)
		h.mutex.Unlock()
		conn.Close()
	}
}
