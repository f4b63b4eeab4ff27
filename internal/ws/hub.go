// Package ws streams slot occupancy transitions to facility display
// clients over WebSocket.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parkwise/internal/models"
)

const (
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 16
)

// SlotEvent is one occupancy transition pushed to displays. The rfid is
// deliberately omitted from the public feed.
type SlotEvent struct {
	SlotNumber int        `json:"slotNumber"`
	Occupied   bool       `json:"occupied"`
	EntryTime  *time.Time `json:"entryTime,omitempty"`
}

// Hub tracks display connections and fans slot events out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub builds the hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// SlotChanged implements the coordinator's notifier: every claim, release,
// and force-release lands here.
func (h *Hub) SlotChanged(slot models.Slot) {
	event := SlotEvent{
		SlotNumber: slot.Number,
		Occupied:   slot.Occupied,
		EntryTime:  slot.EntryTime,
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode slot event", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.send(data)
	}
}

// HandleWS upgrades GET /ws/slots connections.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, h.logger, h.remove)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ClientCount reports connected displays.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
