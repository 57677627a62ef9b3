package dto

import (
	"time"

	"github.com/agrolink/messaging/internal/app/models"
)

// --- Request DTOs ---

// AttachmentPayload represents file metadata supplied with a message
type AttachmentPayload struct {
	URL          string  `json:"url" binding:"required"`
	FileName     string  `json:"fileName" binding:"required"`
	FileSize     int64   `json:"fileSize" binding:"min=0"`
	FileType     string  `json:"fileType" binding:"required"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
}

// SendMessageRequest represents data for sending a new message
type SendMessageRequest struct {
	ConversationID int64               `json:"conversationId" binding:"required"`
	Content        string              `json:"content"`
	ReplyToID      *int64              `json:"replyToId,omitempty"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
}

// ReactionRequest represents an emoji reaction toggle
type ReactionRequest struct {
	MessageID int64  `json:"messageId" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

// AddAttachmentRequest represents file metadata appended to an existing message
type AddAttachmentRequest struct {
	MessageID int64 `json:"messageId" binding:"required"`
	AttachmentPayload
}

// UpdateStatusRequest represents a message status transition report
type UpdateStatusRequest struct {
	MessageID int64  `json:"messageId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// MarkReadRequest represents a mark-conversation-read request
type MarkReadRequest struct {
	ConversationID int64 `json:"conversationId" binding:"required"`
}

// EditMessageRequest represents a message content edit
type EditMessageRequest struct {
	MessageID int64  `json:"messageId" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// GetMessagesRequest represents filter parameters for retrieving messages
type GetMessagesRequest struct {
	ConversationID int64      `form:"conversationId"`
	ThreadID       int64      `form:"threadId"`
	Before         *time.Time `form:"before"`
	Limit          int        `form:"limit,default=50"`
}

// SearchMessagesRequest represents full-text search parameters
type SearchMessagesRequest struct {
	Query          string `form:"query" binding:"required"`
	ConversationID *int64 `form:"conversationId"`
	Limit          int    `form:"limit,default=50"`
}

// --- Response DTOs ---

// ReactionSummaryResponse aggregates reactions on a message per emoji
type ReactionSummaryResponse struct {
	Emoji     string  `json:"emoji"`
	Count     int     `json:"count"`
	UserIDs   []int64 `json:"userIds"`
	ReactedBy bool    `json:"reactedByMe"`
}

// AttachmentResponse represents an attachment on a message
type AttachmentResponse struct {
	ID           int64   `json:"id"`
	MessageID    int64   `json:"messageId"`
	URL          string  `json:"url"`
	FileName     string  `json:"fileName"`
	FileSize     int64   `json:"fileSize"`
	FileType     string  `json:"fileType"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
}

// MessageResponse represents a message with sender, attachments and reactions
type MessageResponse struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversationId"`
	SenderID       int64      `json:"senderId"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	ReplyToID      *int64     `json:"replyToId,omitempty"`
	ReplyCount     int        `json:"replyCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`

	Sender      *UserBasicResponse        `json:"sender,omitempty"`
	Attachments []AttachmentResponse      `json:"attachments,omitempty"`
	Reactions   []ReactionSummaryResponse `json:"reactions,omitempty"`
}

// ToggleReactionResponse reports the outcome of a reaction toggle
type ToggleReactionResponse struct {
	MessageID int64  `json:"messageId"`
	Emoji     string `json:"emoji"`
	Added     bool   `json:"added"`
}

// ToAttachmentResponse converts an attachment model to its response DTO
func ToAttachmentResponse(a *models.MessageAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID,
		MessageID:    a.MessageID,
		URL:          a.URL,
		FileName:     a.FileName,
		FileSize:     a.FileSize,
		FileType:     a.FileType,
		ThumbnailURL: a.ThumbnailURL,
	}
}

// ToMessageResponse converts a message model to its response DTO. viewerID is
// used to flag the viewer's own reactions.
func ToMessageResponse(m *models.Message, viewerID int64) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Status:         string(m.Status),
		ReplyToID:      m.ReplyToID,
		ReplyCount:     m.ReplyCount,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
	}

	if m.Sender != nil {
		resp.Sender = ToUserBasicResponse(m.Sender)
	}

	for _, a := range m.Attachments {
		resp.Attachments = append(resp.Attachments, ToAttachmentResponse(a))
	}

	resp.Reactions = summarizeReactions(m.Reactions, viewerID)

	return resp
}

// summarizeReactions groups raw reaction rows per emoji, preserving first-seen
// emoji order.
func summarizeReactions(reactions []*models.MessageReaction, viewerID int64) []ReactionSummaryResponse {
	if len(reactions) == 0 {
		return nil
	}

	var order []string
	byEmoji := make(map[string]*ReactionSummaryResponse)
	for _, r := range reactions {
		summary, ok := byEmoji[r.Emoji]
		if !ok {
			summary = &ReactionSummaryResponse{Emoji: r.Emoji}
			byEmoji[r.Emoji] = summary
			order = append(order, r.Emoji)
		}
		summary.Count++
		summary.UserIDs = append(summary.UserIDs, r.UserID)
		if r.UserID == viewerID {
			summary.ReactedBy = true
		}
	}

	result := make([]ReactionSummaryResponse, 0, len(order))
	for _, emoji := range order {
		result = append(result, *byEmoji[emoji])
	}
	return result
}
