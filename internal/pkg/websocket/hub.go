package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// broadcastRequest routes an event to clients subscribed to a conversation.
// When onlyUserID is non-zero the event is delivered to that user's
// connections only; excludeUserID skips the originator's own connections.
type broadcastRequest struct {
	event         *Event
	excludeUserID int64
	onlyUserID    int64
}

// subscription attaches every open connection of a user to a conversation
type subscription struct {
	userID         int64
	conversationID int64
}

// Hub maintains the set of active clients, keyed by user ID, and routes
// events to the connections subscribed to the affected conversation.
type Hub struct {
	// Registered clients grouped by user ID. A user may hold several
	// concurrent connections (multiple devices or tabs).
	clients map[int64]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *broadcastRequest
	subscribe   chan *subscription
	unsubscribe chan *subscription

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a hub instance. Run must be started on its own goroutine
// before any clients connect.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[int64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *broadcastRequest, 64),
		subscribe:   make(chan *subscription),
		unsubscribe: make(chan *subscription),
		logger:      logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// Run processes hub operations until the process exits
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case req := <-h.broadcast:
			h.dispatch(req)
		case sub := <-h.subscribe:
			h.subscribeUser(sub.userID, sub.conversationID)
		case sub := <-h.unsubscribe:
			h.unsubscribeUser(sub.userID, sub.conversationID)
		}
	}
}

// BroadcastToConversation pushes an event to every connection subscribed to
// the event's conversation, skipping the excluded user's own connections.
// The push is fire-and-forget; callers must not treat it as delivery.
func (h *Hub) BroadcastToConversation(event *Event, excludeUserID int64) {
	h.broadcast <- &broadcastRequest{event: event, excludeUserID: excludeUserID}
}

// NotifyUser pushes an event to a single user's connections
func (h *Hub) NotifyUser(userID int64, event *Event) {
	h.broadcast <- &broadcastRequest{event: event, onlyUserID: userID}
}

// SubscribeUser adds a conversation to the subscription set of every open
// connection the user currently holds. Called when a user is added to a
// conversation after connecting.
func (h *Hub) SubscribeUser(userID, conversationID int64) {
	h.subscribe <- &subscription{userID: userID, conversationID: conversationID}
}

// UnsubscribeUser detaches the user's connections from a conversation
func (h *Hub) UnsubscribeUser(userID, conversationID int64) {
	h.unsubscribe <- &subscription{userID: userID, conversationID: conversationID}
}

// ConnectionCount reports the number of open connections for a user
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug().
		Int64("user_id", client.userID).
		Str("connection_id", client.connID).
		Int("user_connections", len(h.clients[client.userID])).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Debug().
		Int64("user_id", client.userID).
		Str("connection_id", client.connID).
		Msg("Client unregistered")
}

func (h *Hub) subscribeUser(userID, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[userID] {
		client.subscriptions[conversationID] = true
	}
}

func (h *Hub) unsubscribeUser(userID, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[userID] {
		delete(client.subscriptions, conversationID)
	}
}

// dispatch serializes the event once and queues it on every matching
// connection. Connections whose send queue is full are dropped; a client
// that cannot keep up reconnects and reconciles over REST.
func (h *Hub) dispatch(req *broadcastRequest) {
	data, err := json.Marshal(req.event)
	if err != nil {
		h.logger.Error().Err(err).
			Str("event_type", string(req.event.Type)).
			Msg("Failed to serialize event")
		return
	}

	var slow []*Client

	h.mu.RLock()
	for userID, conns := range h.clients {
		if req.onlyUserID != 0 && userID != req.onlyUserID {
			continue
		}
		if req.excludeUserID != 0 && userID == req.excludeUserID {
			continue
		}
		for client := range conns {
			if req.onlyUserID == 0 && !client.subscriptions[req.event.ConversationID] {
				continue
			}
			select {
			case client.send <- data:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn().
			Int64("user_id", client.userID).
			Str("connection_id", client.connID).
			Msg("Dropping slow client")
		h.unregisterClient(client)
		client.conn.Close()
	}
}
