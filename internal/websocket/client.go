package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

func newUpgrader(allowedOrigin func(*http.Request) bool) websocket.Upgrader {
	if allowedOrigin == nil {
		allowedOrigin = func(*http.Request) bool { return true }
	}
	return websocket.Upgrader{CheckOrigin: allowedOrigin}
}

func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, topic string, checkOrigin func(*http.Request) bool) {
	upgrader := newUpgrader(checkOrigin)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	hub.Register(topic, client)
	go client.writePump(hub, topic)
	client.readPump(hub, topic)
}

func (c *Client) readPump(hub *Hub, topic string) {
	defer func() {
		hub.Unregister(topic, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump(hub *Hub, topic string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unregister(topic, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
