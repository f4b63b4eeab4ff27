package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client is one connected display. Displays only listen; inbound frames are
// drained purely to service pings and detect closure.
type client struct {
	conn    *websocket.Conn
	out     chan []byte
	logger  *zap.Logger
	onClose func(*client)
	once    sync.Once
}

func newClient(conn *websocket.Conn, logger *zap.Logger, onClose func(*client)) *client {
	return &client{
		conn:    conn,
		out:     make(chan []byte, sendBufferSize),
		logger:  logger,
		onClose: onClose,
	}
}

func (c *client) send(data []byte) {
	select {
	case c.out <- data:
	default:
		c.logger.Warn("dropping slot event, display buffer full",
			zap.String("remote", c.conn.RemoteAddr().String()),
		)
	}
}

func (c *client) readPump() {
	defer c.cleanup()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case data, ok := <-c.out:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) cleanup() {
	c.once.Do(func() {
		c.onClose(c)
		_ = c.conn.Close()
	})
}
