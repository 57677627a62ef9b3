package models

import "time"

// MessageReaction represents an emoji reaction on a message. The
// (messageId, userId, emoji) triple is unique; re-adding an existing triple
// removes it (toggle semantics).
type MessageReaction struct {
	ID        int64     `json:"id" db:"id"`
	MessageID int64     `json:"messageId" db:"message_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
