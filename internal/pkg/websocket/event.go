package websocket

import "time"

// EventType identifies a server-pushed event
type EventType string

// Events pushed to connected clients
const (
	EventMessageNew          EventType = "message:new"
	EventMessageEdited       EventType = "message:edited"
	EventMessageStatusChange EventType = "message:statusChanged"
	EventMessageReaction     EventType = "message:reaction"
	EventConversationUpdated EventType = "conversation:updated"
)

// Event is the envelope pushed over the socket. Delivery is best-effort and
// at-most-once; the authoritative state always lives in the database, and
// reconnecting clients reconcile by re-fetching over the REST surface.
type Event struct {
	Type           EventType   `json:"type"`
	ConversationID int64       `json:"conversationId"`
	Payload        interface{} `json:"payload,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, conversationID int64, payload interface{}) *Event {
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        payload,
		Timestamp:      time.Now(),
	}
}
