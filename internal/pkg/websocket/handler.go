package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agrolink/messaging/internal/app/repositories"
	"github.com/agrolink/messaging/internal/config"
)

// Handler upgrades authenticated HTTP requests to websocket connections
// and wires the resulting clients into the hub.
type Handler struct {
	hub             *Hub
	participantRepo repositories.ParticipantRepository
	readMarker      ReadMarker
	upgrader        websocket.Upgrader
	sendQueueSize   int
	logger          zerolog.Logger
}

// NewHandler creates a websocket handler
func NewHandler(
	hub *Hub,
	participantRepo repositories.ParticipantRepository,
	readMarker ReadMarker,
	cfg *config.WebSocketConfig,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		hub:             hub,
		participantRepo: participantRepo,
		readMarker:      readMarker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			HandshakeTimeout: cfg.HandshakeTimeout,
			// Token auth already gates the endpoint; cross-origin browser
			// clients are expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendQueueSize: cfg.SendQueueSize,
		logger:        logger.With().Str("component", "websocket_handler").Logger(),
	}
}

// HandleConnection godoc
// @Summary Open a realtime event stream
// @Description Upgrades the request to a websocket connection subscribed to all of the caller's conversations
// @Tags realtime
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID := c.GetInt64("userID")
	if userID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	// Snapshot memberships before the upgrade so the subscription set is
	// complete by the time events can arrive.
	conversationIDs, err := h.participantRepo.ListConversationIDsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load conversation memberships")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		h.logger.Debug().Err(err).Int64("user_id", userID).Msg("Websocket upgrade failed")
		return
	}

	client := &Client{
		hub:           h.hub,
		conn:          conn,
		send:          make(chan []byte, h.sendQueueSize),
		userID:        userID,
		connID:        uuid.NewString(),
		subscriptions: make(map[int64]bool, len(conversationIDs)),
		readMarker:    h.readMarker,
		logger:        h.logger,
	}
	for _, id := range conversationIDs {
		client.subscriptions[id] = true
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
