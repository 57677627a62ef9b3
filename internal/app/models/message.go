package models

import "time"

// MessageStatus represents a message's delivery lifecycle state
type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "SENDING"
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// statusRank orders the forward-only lifecycle. FAILED is terminal and
// reachable from any non-terminal state.
var statusRank = map[MessageStatus]int{
	MessageStatusSending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

// IsValid reports whether the status is a known message status
func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageStatusSending, MessageStatusSent, MessageStatusDelivered,
		MessageStatusRead, MessageStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next. The lifecycle
// is SENDING -> SENT -> DELIVERED -> READ, never backwards; any non-terminal
// state may move to FAILED.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == MessageStatusFailed {
		return false
	}
	if next == MessageStatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Message represents a message within a conversation. ReplyToID, when set,
// always references a message in the same conversation.
type Message struct {
	ID             int64         `json:"id" db:"id"`
	ConversationID int64         `json:"conversationId" db:"conversation_id"`
	SenderID       int64         `json:"senderId" db:"sender_id"`
	Content        string        `json:"content" db:"content"`
	Status         MessageStatus `json:"status" db:"status"`
	ReplyToID      *int64        `json:"replyToId,omitempty" db:"reply_to_id"`
	ReplyCount     int           `json:"replyCount" db:"reply_count"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	EditedAt       *time.Time    `json:"editedAt,omitempty" db:"edited_at"`

	// Related entities
	Sender      *User                `json:"sender,omitempty"`
	Attachments []*MessageAttachment `json:"attachments,omitempty"`
	Reactions   []*MessageReaction   `json:"reactions,omitempty"`
}

// ReadBy reports whether the message is considered read by a participant with
// the given lastReadAt watermark. Read state is derived, not stored
// per-message-per-user.
func (m *Message) ReadBy(lastReadAt *time.Time) bool {
	if lastReadAt == nil {
		return false
	}
	return !m.CreatedAt.After(*lastReadAt)
}
