package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parkwise/internal/models"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func TestHubBroadcastsSlotEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	entryTime := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	hub.SlotChanged(models.Slot{Number: 3, Occupied: true, EntryTime: &entryTime})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event SlotEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.SlotNumber != 3 || !event.Occupied {
		t.Errorf("event = %+v, want occupied slot 3", event)
	}
	if event.EntryTime == nil || !event.EntryTime.Equal(entryTime) {
		t.Errorf("entryTime = %v, want %v", event.EntryTime, entryTime)
	}
}

func TestHubRemovesClosedClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting with no clients must not panic.
	hub.SlotChanged(models.Slot{Number: 1})
}
