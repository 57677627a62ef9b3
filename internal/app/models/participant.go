package models

import "time"

// ParticipantRole represents a participant's role within a group conversation.
// Direct conversations implicitly have two MEMBER participants.
type ParticipantRole string

const (
	ParticipantRoleOwner     ParticipantRole = "OWNER"
	ParticipantRoleAdmin     ParticipantRole = "ADMIN"
	ParticipantRoleModerator ParticipantRole = "MODERATOR"
	ParticipantRoleMember    ParticipantRole = "MEMBER"
)

// IsValid reports whether the role is a known participant role
func (r ParticipantRole) IsValid() bool {
	switch r {
	case ParticipantRoleOwner, ParticipantRoleAdmin, ParticipantRoleModerator, ParticipantRoleMember:
		return true
	}
	return false
}

// CanManageMembers reports whether the role may add members to a group
func (r ParticipantRole) CanManageMembers() bool {
	return r == ParticipantRoleOwner || r == ParticipantRoleAdmin
}

// ConversationParticipant represents a user's membership record in a
// conversation, carrying per-user state (archived, pinned, lastReadAt).
// Only the owning user may mutate these flags.
type ConversationParticipant struct {
	ID             int64           `json:"id" db:"id"`
	ConversationID int64           `json:"conversationId" db:"conversation_id"`
	UserID         int64           `json:"userId" db:"user_id"`
	Role           ParticipantRole `json:"role" db:"role"`
	IsArchived     bool            `json:"isArchived" db:"is_archived"`
	IsPinned       bool            `json:"isPinned" db:"is_pinned"`
	LastReadAt     *time.Time      `json:"lastReadAt,omitempty" db:"last_read_at"`
	JoinedAt       time.Time       `json:"joinedAt" db:"joined_at"`

	// Related entities
	User *User `json:"user,omitempty"`
}
