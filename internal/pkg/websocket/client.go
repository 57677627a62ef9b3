package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size in bytes
	maxMessageSize = 4096
)

// ReadMarker advances a participant's read watermark in response to an
// inbound read frame. Satisfied by the message service.
type ReadMarker interface {
	MarkConversationRead(ctx context.Context, conversationID, callerID int64) error
}

// inboundFrame is the only client-to-server payload the socket accepts
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversationId"`
}

// Client is a single websocket connection bound to an authenticated user
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound serialized events
	send chan []byte

	userID int64
	connID string

	// Conversation IDs this connection receives events for. Mutated only
	// under the hub's lock.
	subscriptions map[int64]bool

	readMarker ReadMarker
	logger     zerolog.Logger
}

// readPump reads inbound frames until the connection drops. The only
// supported frame marks a conversation read; anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).
					Int64("user_id", c.userID).
					Str("connection_id", c.connID).
					Msg("Unexpected websocket close")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug().Err(err).Msg("Ignoring malformed inbound frame")
			continue
		}

		switch frame.Type {
		case "read":
			if c.readMarker == nil || frame.ConversationID == 0 {
				continue
			}
			if err := c.readMarker.MarkConversationRead(context.Background(), frame.ConversationID, c.userID); err != nil {
				c.logger.Warn().Err(err).
					Int64("user_id", c.userID).
					Int64("conversation_id", frame.ConversationID).
					Msg("Failed to mark conversation read from socket frame")
			}
		default:
			c.logger.Debug().Str("frame_type", frame.Type).Msg("Ignoring unknown inbound frame type")
		}
	}
}

// writePump drains the send queue to the connection and keeps it alive
// with periodic pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
