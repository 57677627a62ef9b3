package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/app/repositories"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
	"github.com/agrolink/messaging/internal/pkg/dberrors"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageService defines operations for the message pipeline
type MessageService interface {
	// SendMessage persists a message and pushes it to the other
	// participants. The returned message carries its assigned ID and SENT
	// status.
	SendMessage(ctx context.Context, senderID int64, req *dto.SendMessageRequest) (*models.Message, error)

	// EditMessage replaces a message's content. Only the sender may edit.
	EditMessage(ctx context.Context, messageID, callerID int64, content string) (*models.Message, error)

	// ListMessages returns a conversation page, newest first, and advances
	// the caller's read watermark as a side effect
	ListMessages(ctx context.Context, callerID int64, req *dto.GetMessagesRequest) ([]*models.Message, error)

	// GetThreadReplies returns the direct replies to a message, oldest first
	GetThreadReplies(ctx context.Context, callerID, parentID int64) ([]*models.Message, error)

	// ToggleReaction adds the caller's emoji reaction if absent, removes it
	// if present
	ToggleReaction(ctx context.Context, callerID int64, req *dto.ReactionRequest) (*dto.ToggleReactionResponse, error)

	// AddAttachment appends file metadata to an existing message. Only the
	// sender may attach.
	AddAttachment(ctx context.Context, callerID int64, req *dto.AddAttachmentRequest) (*models.MessageAttachment, error)

	// UpdateMessageStatus reports a recipient-side lifecycle transition.
	// Transitions only move forward.
	UpdateMessageStatus(ctx context.Context, callerID int64, req *dto.UpdateStatusRequest) (*models.Message, error)

	// MarkConversationRead advances the caller's read watermark to now
	MarkConversationRead(ctx context.Context, conversationID, callerID int64) error

	// SearchMessages finds messages by content across the caller's
	// conversations, optionally scoped to one conversation
	SearchMessages(ctx context.Context, callerID int64, req *dto.SearchMessagesRequest) ([]*models.Message, error)

	// DeleteMessage is reserved; retention rules for marketplace disputes
	// are still being settled
	DeleteMessage(ctx context.Context, messageID, callerID int64) error
}

// NewMessageService creates a new MessageService instance
func NewMessageService(
	conversationRepo repositories.ConversationRepository,
	participantRepo repositories.ParticipantRepository,
	messageRepo repositories.MessageRepository,
	attachmentRepo repositories.AttachmentRepository,
	reactionRepo repositories.ReactionRepository,
	userRepo repositories.UserRepository,
	hub EventPusher,
	logger zerolog.Logger,
) MessageService {
	return &messageService{
		conversationRepo: conversationRepo,
		participantRepo:  participantRepo,
		messageRepo:      messageRepo,
		attachmentRepo:   attachmentRepo,
		reactionRepo:     reactionRepo,
		userRepo:         userRepo,
		hub:              hub,
		logger:           logger.With().Str("service", "message").Logger(),
	}
}

type messageService struct {
	conversationRepo repositories.ConversationRepository
	participantRepo  repositories.ParticipantRepository
	messageRepo      repositories.MessageRepository
	attachmentRepo   repositories.AttachmentRepository
	reactionRepo     repositories.ReactionRepository
	userRepo         repositories.UserRepository
	hub              EventPusher
	logger           zerolog.Logger
}

func (s *messageService) SendMessage(ctx context.Context, senderID int64, req *dto.SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Attachments) == 0 {
		return nil, apperrors.NewValidationError("Message must have content or at least one attachment")
	}

	if err := s.requireParticipant(ctx, req.ConversationID, senderID); err != nil {
		return nil, err
	}

	if req.ReplyToID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Reply target does not exist")
		}
		if parent.ConversationID != req.ConversationID {
			return nil, apperrors.NewCustomError(apperrors.ErrCrossConversationReply,
				"Reply target belongs to a different conversation")
		}
	}

	message := &models.Message{
		ConversationID: req.ConversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         models.MessageStatusSending,
		ReplyToID:      req.ReplyToID,
	}

	attachments := make([]*models.MessageAttachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, &models.MessageAttachment{
			URL:          a.URL,
			FileName:     a.FileName,
			FileSize:     a.FileSize,
			FileType:     a.FileType,
			ThumbnailURL: a.ThumbnailURL,
		})
	}

	if err := s.messageRepo.Create(ctx, message, attachments); err != nil {
		message.Status = models.MessageStatusFailed
		s.logger.Error().Err(err).
			Int64("conversation_id", req.ConversationID).
			Int64("sender_id", senderID).
			Msg("Failed to persist message")
		return nil, err
	}
	message.Attachments = attachments

	if sender, err := s.userRepo.FindByID(ctx, senderID); err == nil && sender != nil {
		message.Sender = sender
	}

	// Persisted state is authoritative; the push is best-effort
	if s.hub != nil {
		s.hub.BroadcastToConversation(websocket.NewEvent(
			websocket.EventMessageNew, message.ConversationID, dto.ToMessageResponse(message, 0)), senderID)
	}

	return message, nil
}

func (s *messageService) EditMessage(ctx context.Context, messageID, callerID int64, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Message content cannot be empty")
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Message not found")
	}
	if message.SenderID != callerID {
		return nil, apperrors.NewForbiddenError("Only the sender can edit a message")
	}

	editedAt := time.Now()
	if err := s.messageRepo.UpdateContent(ctx, messageID, content, editedAt); err != nil {
		return nil, err
	}
	message.Content = content
	message.EditedAt = &editedAt

	if s.hub != nil {
		s.hub.BroadcastToConversation(websocket.NewEvent(
			websocket.EventMessageEdited, message.ConversationID, dto.ToMessageResponse(message, 0)), callerID)
	}

	return message, nil
}

func (s *messageService) ListMessages(ctx context.Context, callerID int64, req *dto.GetMessagesRequest) ([]*models.Message, error) {
	if req.ConversationID == 0 {
		return nil, apperrors.NewValidationError("conversationId is required")
	}
	if err := s.requireParticipant(ctx, req.ConversationID, callerID); err != nil {
		return nil, err
	}

	limit := normalizeLimit(req.Limit)
	messages, err := s.messageRepo.ListByConversation(ctx, req.ConversationID, req.Before, limit)
	if err != nil {
		return nil, err
	}

	if err := s.hydrate(ctx, messages); err != nil {
		return nil, err
	}

	// Fetching a page counts as reading it. A watermark failure must not
	// fail the read itself.
	if err := s.markRead(ctx, req.ConversationID, callerID); err != nil {
		s.logger.Warn().Err(err).
			Int64("conversation_id", req.ConversationID).
			Int64("user_id", callerID).
			Msg("Failed to advance read watermark")
	}

	return messages, nil
}

func (s *messageService) GetThreadReplies(ctx context.Context, callerID, parentID int64) ([]*models.Message, error) {
	parent, err := s.messageRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Thread root does not exist")
	}
	if err := s.requireParticipant(ctx, parent.ConversationID, callerID); err != nil {
		return nil, err
	}

	replies, err := s.messageRepo.ListThread(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *messageService) ToggleReaction(ctx context.Context, callerID int64, req *dto.ReactionRequest) (*dto.ToggleReactionResponse, error) {
	emoji := strings.TrimSpace(req.Emoji)
	if emoji == "" {
		return nil, apperrors.NewValidationError("Emoji cannot be empty")
	}

	message, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Message not found")
	}
	if err := s.requireParticipant(ctx, message.ConversationID, callerID); err != nil {
		return nil, err
	}

	removed, err := s.reactionRepo.Remove(ctx, req.MessageID, callerID, emoji)
	if err != nil {
		return nil, err
	}

	added := false
	if !removed {
		reaction := &models.MessageReaction{
			MessageID: req.MessageID,
			UserID:    callerID,
			Emoji:     emoji,
		}
		if err := s.reactionRepo.Add(ctx, reaction); err != nil {
			// A concurrent toggle already added the same triple
			if !dberrors.IsDuplicateConstraintError(err, repositories.ConstraintReactionTriple) {
				return nil, err
			}
		}
		added = true
	}

	result := &dto.ToggleReactionResponse{
		MessageID: req.MessageID,
		Emoji:     emoji,
		Added:     added,
	}

	if s.hub != nil {
		s.hub.BroadcastToConversation(websocket.NewEvent(
			websocket.EventMessageReaction, message.ConversationID, result), callerID)
	}

	return result, nil
}

func (s *messageService) AddAttachment(ctx context.Context, callerID int64, req *dto.AddAttachmentRequest) (*models.MessageAttachment, error) {
	message, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Message not found")
	}
	if message.SenderID != callerID {
		return nil, apperrors.NewForbiddenError("Only the sender can attach files to a message")
	}

	attachment := &models.MessageAttachment{
		MessageID:    req.MessageID,
		URL:          req.URL,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		FileType:     req.FileType,
		ThumbnailURL: req.ThumbnailURL,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, err
	}

	if s.hub != nil {
		message.Attachments = append(message.Attachments, attachment)
		s.hub.BroadcastToConversation(websocket.NewEvent(
			websocket.EventMessageEdited, message.ConversationID, dto.ToMessageResponse(message, 0)), callerID)
	}

	return attachment, nil
}

func (s *messageService) UpdateMessageStatus(ctx context.Context, callerID int64, req *dto.UpdateStatusRequest) (*models.Message, error) {
	next := models.MessageStatus(req.Status)
	if !next.IsValid() {
		return nil, apperrors.NewValidationError("Unknown message status: " + req.Status)
	}

	message, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrMessageNotFound, "Message not found")
	}
	if err := s.requireParticipant(ctx, message.ConversationID, callerID); err != nil {
		return nil, err
	}

	// Delivery and read receipts come from recipients, never the sender
	if message.SenderID == callerID &&
		(next == models.MessageStatusDelivered || next == models.MessageStatusRead) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidStatusChange,
			"Senders cannot mark their own messages as delivered or read")
	}

	if !message.Status.CanTransitionTo(next) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidStatusChange,
			"Cannot move message from "+string(message.Status)+" to "+string(next))
	}

	if err := s.messageRepo.UpdateStatus(ctx, req.MessageID, next); err != nil {
		return nil, err
	}
	message.Status = next

	if s.hub != nil {
		s.hub.NotifyUser(message.SenderID, websocket.NewEvent(
			websocket.EventMessageStatusChange, message.ConversationID, dto.ToMessageResponse(message, 0)))
	}

	return message, nil
}

func (s *messageService) MarkConversationRead(ctx context.Context, conversationID, callerID int64) error {
	if err := s.requireParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	return s.markRead(ctx, conversationID, callerID)
}

func (s *messageService) SearchMessages(ctx context.Context, callerID int64, req *dto.SearchMessagesRequest) ([]*models.Message, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("Search query cannot be empty")
	}

	if req.ConversationID != nil {
		if err := s.requireParticipant(ctx, *req.ConversationID, callerID); err != nil {
			return nil, err
		}
	}

	messages, err := s.messageRepo.Search(ctx, callerID, query, req.ConversationID, normalizeLimit(req.Limit))
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, messageID, callerID int64) error {
	return apperrors.NewNotImplementedError("Message deletion is not supported yet")
}

// requireParticipant verifies the conversation exists and the caller belongs
// to it
func (s *messageService) requireParticipant(ctx context.Context, conversationID, callerID int64) error {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return apperrors.NewCustomError(apperrors.ErrConversationNotFound, "Conversation not found")
	}

	isParticipant, err := s.participantRepo.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return apperrors.NewCustomError(apperrors.ErrNotParticipant,
			"You are not a participant of this conversation")
	}
	return nil
}

func (s *messageService) markRead(ctx context.Context, conversationID, userID int64) error {
	now := time.Now()
	if err := s.participantRepo.UpdateLastRead(ctx, conversationID, userID, now); err != nil {
		return err
	}

	// Sync the reader's other devices
	if s.hub != nil {
		s.hub.NotifyUser(userID, websocket.NewEvent(
			websocket.EventConversationUpdated, conversationID, map[string]interface{}{
				"lastReadAt": now,
			}))
	}
	return nil
}

// hydrate batch-loads senders, attachments and reactions for a message page
func (s *messageService) hydrate(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	messageIDs := make([]int64, 0, len(messages))
	senderIDSet := make(map[int64]bool)
	for _, m := range messages {
		messageIDs = append(messageIDs, m.ID)
		senderIDSet[m.SenderID] = true
	}
	senderIDs := make([]int64, 0, len(senderIDSet))
	for id := range senderIDSet {
		senderIDs = append(senderIDs, id)
	}

	senders, err := s.userRepo.FindByIDs(ctx, senderIDs)
	if err != nil {
		return err
	}
	attachments, err := s.attachmentRepo.ListByMessageIDs(ctx, messageIDs)
	if err != nil {
		return err
	}
	reactions, err := s.reactionRepo.ListByMessageIDs(ctx, messageIDs)
	if err != nil {
		return err
	}

	for _, m := range messages {
		m.Sender = senders[m.SenderID]
		m.Attachments = attachments[m.ID]
		m.Reactions = reactions[m.ID]
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
