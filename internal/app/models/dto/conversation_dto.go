package dto

import (
	"time"

	"github.com/agrolink/messaging/internal/app/models"
)

// --- Request DTOs ---

// CreateDirectConversationRequest represents data for starting (or finding)
// a direct buyer/seller conversation
type CreateDirectConversationRequest struct {
	OtherUserID int64  `json:"otherUserId" binding:"required"`
	ProductID   *int64 `json:"productId,omitempty"`
}

// CreateGroupConversationRequest represents data for creating a group conversation
type CreateGroupConversationRequest struct {
	Name        string  `json:"name" binding:"required"`
	MemberIDs   []int64 `json:"memberIds" binding:"required"`
	Description *string `json:"description,omitempty"`
	GroupAvatar *string `json:"groupAvatar,omitempty"`
}

// AddParticipantRequest represents data for adding a member to a group conversation
type AddParticipantRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

// Conversation actions for PATCH /conversations/{id}
const (
	ConversationActionArchive      = "archive"
	ConversationActionTogglePin    = "togglePin"
	ConversationActionLeave        = "leave"
	ConversationActionRemoveMember = "removeMember"
	ConversationActionUpdateInfo   = "updateInfo"
)

// UpdateConversationRequest represents a per-participant conversation action
type UpdateConversationRequest struct {
	Action string `json:"action" binding:"required"`
}

// --- Response DTOs ---

// ParticipantResponse represents a conversation participant
type ParticipantResponse struct {
	UserID   int64              `json:"userId"`
	Role     string             `json:"role"`
	JoinedAt time.Time          `json:"joinedAt"`
	User     *UserBasicResponse `json:"user,omitempty"`
}

// UserBasicResponse represents minimal user display information
type UserBasicResponse struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// ConversationResponse represents a conversation
type ConversationResponse struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	BuyerID       *int64     `json:"buyerId,omitempty"`
	SellerID      *int64     `json:"sellerId,omitempty"`
	ProductID     *int64     `json:"productId,omitempty"`
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	AvatarURL     *string    `json:"avatarUrl,omitempty"`
	CreatorID     *int64     `json:"creatorId,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	Participants []ParticipantResponse `json:"participants,omitempty"`
}

// ConversationSummaryResponse extends ConversationResponse with the viewing
// participant's own state for conversation listings
type ConversationSummaryResponse struct {
	ConversationResponse

	IsPinned           bool       `json:"isPinned"`
	IsArchived         bool       `json:"isArchived"`
	LastReadAt         *time.Time `json:"lastReadAt,omitempty"`
	UnreadCount        int        `json:"unreadCount"`
	LastMessagePreview *string    `json:"lastMessagePreview,omitempty"`
}

// ToConversationResponse converts a conversation model to its response DTO
func ToConversationResponse(c *models.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            c.ID,
		Kind:          string(c.Kind),
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		ProductID:     c.ProductID,
		Name:          c.Name,
		Description:   c.Description,
		AvatarURL:     c.AvatarURL,
		CreatorID:     c.CreatorID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}

	for _, p := range c.Participants {
		resp.Participants = append(resp.Participants, ToParticipantResponse(p))
	}

	return resp
}

// ToParticipantResponse converts a participant model to its response DTO
func ToParticipantResponse(p *models.ConversationParticipant) ParticipantResponse {
	resp := ParticipantResponse{
		UserID:   p.UserID,
		Role:     string(p.Role),
		JoinedAt: p.JoinedAt,
	}
	if p.User != nil {
		resp.User = ToUserBasicResponse(p.User)
	}
	return resp
}

// ToUserBasicResponse converts a user model to its minimal response DTO
func ToUserBasicResponse(u *models.User) *UserBasicResponse {
	return &UserBasicResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// ToConversationSummaryResponse converts a conversation summary to its response DTO
func ToConversationSummaryResponse(s *models.ConversationSummary) ConversationSummaryResponse {
	return ConversationSummaryResponse{
		ConversationResponse: ToConversationResponse(&s.Conversation),
		IsPinned:             s.IsPinned,
		IsArchived:           s.IsArchived,
		LastReadAt:           s.LastReadAt,
		UnreadCount:          s.UnreadCount,
		LastMessagePreview:   s.LastMessagePreview,
	}
}
