package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket to the peer.Conn control channel. gorilla/websocket allows a single concurrent writer,
// so writes are serialized here; Close and WriteControl are safe to call from anywhere
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close sends a close frame on a best-effort basis and tears down the connection. Safe to call more than once
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(c.writeTimeout))
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}
