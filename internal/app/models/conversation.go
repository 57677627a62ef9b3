package models

import "time"

// ConversationKind represents the kind of conversation
type ConversationKind string

const (
	ConversationKindDirect ConversationKind = "DIRECT"
	ConversationKindGroup  ConversationKind = "GROUP"
)

// IsValid reports whether the kind is a known conversation kind
func (k ConversationKind) IsValid() bool {
	switch k {
	case ConversationKindDirect, ConversationKindGroup:
		return true
	}
	return false
}

// Conversation represents a direct (buyer/seller) or group conversation.
// Conversations are never hard-deleted; participants archive them on their
// own participant row instead.
type Conversation struct {
	ID            int64            `json:"id" db:"id"`
	Kind          ConversationKind `json:"kind" db:"kind"`
	BuyerID       *int64           `json:"buyerId,omitempty" db:"buyer_id"`
	SellerID      *int64           `json:"sellerId,omitempty" db:"seller_id"`
	ProductID     *int64           `json:"productId,omitempty" db:"product_id"`
	Name          *string          `json:"name,omitempty" db:"name"`
	Description   *string          `json:"description,omitempty" db:"description"`
	AvatarURL     *string          `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatorID     *int64           `json:"creatorId,omitempty" db:"creator_id"`
	LastMessageAt *time.Time       `json:"lastMessageAt,omitempty" db:"last_message_at"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`

	// Related entities
	Participants []*ConversationParticipant `json:"participants,omitempty"`
}

// ConversationSummary is a conversation joined with the viewing participant's
// own state, used for conversation listings.
type ConversationSummary struct {
	Conversation

	IsArchived         bool       `json:"isArchived"`
	IsPinned           bool       `json:"isPinned"`
	LastReadAt         *time.Time `json:"lastReadAt,omitempty"`
	UnreadCount        int        `json:"unreadCount"`
	LastMessagePreview *string    `json:"lastMessagePreview,omitempty"`
}
