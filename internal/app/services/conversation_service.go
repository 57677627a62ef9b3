package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/app/repositories"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
	"github.com/agrolink/messaging/internal/pkg/dberrors"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

// ConversationService defines operations for managing conversations
type ConversationService interface {
	// GetOrCreateDirectConversation finds the existing direct conversation
	// between the caller and the other user for the given product context,
	// creating it if absent. Repeated calls with the same identity return
	// the same conversation.
	GetOrCreateDirectConversation(ctx context.Context, callerID, otherUserID int64, productID *int64) (*models.Conversation, error)

	// CreateGroupConversation creates a group with the caller as owner
	CreateGroupConversation(ctx context.Context, creatorID int64, req *dto.CreateGroupConversationRequest) (*models.Conversation, error)

	// GetConversation returns a conversation with its participants,
	// restricted to members
	GetConversation(ctx context.Context, conversationID, callerID int64) (*models.Conversation, error)

	// ListConversationsForUser returns the caller's non-archived
	// conversations, pinned first, then by recent activity
	ListConversationsForUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error)

	// AddGroupMember adds a user to a group conversation as a MEMBER. The
	// actor must hold a role that can manage members.
	AddGroupMember(ctx context.Context, conversationID, actorID, newUserID int64) (*models.ConversationParticipant, error)

	// ToggleArchive flips the caller's archived flag for a conversation
	ToggleArchive(ctx context.Context, conversationID, callerID int64) error

	// TogglePin flips the caller's pinned flag for a conversation
	TogglePin(ctx context.Context, conversationID, callerID int64) error

	// LeaveConversation is reserved for a later release
	LeaveConversation(ctx context.Context, conversationID, callerID int64) error

	// RemoveMember is reserved for a later release
	RemoveMember(ctx context.Context, conversationID, actorID, memberID int64) error

	// UpdateGroupInfo is reserved for a later release
	UpdateGroupInfo(ctx context.Context, conversationID, actorID int64) error
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(
	conversationRepo repositories.ConversationRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	hub EventPusher,
	logger zerolog.Logger,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		participantRepo:  participantRepo,
		userRepo:         userRepo,
		hub:              hub,
		logger:           logger.With().Str("service", "conversation").Logger(),
	}
}

type conversationService struct {
	conversationRepo repositories.ConversationRepository
	participantRepo  repositories.ParticipantRepository
	userRepo         repositories.UserRepository
	hub              EventPusher
	logger           zerolog.Logger
}

func (s *conversationService) GetOrCreateDirectConversation(ctx context.Context, callerID, otherUserID int64, productID *int64) (*models.Conversation, error) {
	if otherUserID == callerID {
		return nil, apperrors.NewValidationError("Cannot start a conversation with yourself")
	}

	otherUser, err := s.userRepo.FindByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if otherUser == nil {
		return nil, apperrors.NewResourceNotFoundError("User")
	}

	existing, err := s.conversationRepo.FindDirect(ctx, callerID, otherUserID, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.withParticipants(ctx, existing)
	}

	// The caller initiated the conversation and is recorded as the buyer
	created, err := s.conversationRepo.CreateDirect(ctx, callerID, otherUserID, productID)
	if err != nil {
		// A concurrent request for the same pair won the insert race;
		// the unique index guarantees the lookup now succeeds.
		if dberrors.IsDuplicateConstraintError(err, repositories.ConstraintDirectConversationPair) {
			existing, findErr := s.conversationRepo.FindDirect(ctx, callerID, otherUserID, productID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return s.withParticipants(ctx, existing)
			}
		}
		return nil, err
	}

	s.logger.Info().
		Int64("conversation_id", created.ID).
		Int64("buyer_id", callerID).
		Int64("seller_id", otherUserID).
		Msg("Direct conversation created")

	result, err := s.withParticipants(ctx, created)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.SubscribeUser(callerID, created.ID)
		s.hub.SubscribeUser(otherUserID, created.ID)
		s.hub.NotifyUser(otherUserID, websocket.NewEvent(
			websocket.EventConversationUpdated, created.ID, dto.ToConversationResponse(result)))
	}

	return result, nil
}

func (s *conversationService) CreateGroupConversation(ctx context.Context, creatorID int64, req *dto.CreateGroupConversationRequest) (*models.Conversation, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("Group name cannot be empty")
	}

	memberIDs := dedupeMemberIDs(req.MemberIDs, creatorID)
	if len(memberIDs) == 0 {
		return nil, apperrors.NewValidationError("A group needs at least one member besides the creator")
	}

	users, err := s.userRepo.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if _, ok := users[id]; !ok {
			return nil, apperrors.NewResourceNotFoundError("User")
		}
	}

	conversation := &models.Conversation{
		Kind:      models.ConversationKindGroup,
		Name:      &name,
		CreatorID: &creatorID,
	}
	if req.Description != nil {
		conversation.Description = req.Description
	}
	if req.GroupAvatar != nil {
		conversation.AvatarURL = req.GroupAvatar
	}

	participants := make([]*models.ConversationParticipant, 0, len(memberIDs)+1)
	participants = append(participants, &models.ConversationParticipant{
		UserID: creatorID,
		Role:   models.ParticipantRoleOwner,
	})
	for _, id := range memberIDs {
		participants = append(participants, &models.ConversationParticipant{
			UserID: id,
			Role:   models.ParticipantRoleMember,
		})
	}

	if err := s.conversationRepo.CreateGroup(ctx, conversation, participants); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("conversation_id", conversation.ID).
		Int64("creator_id", creatorID).
		Int("member_count", len(participants)).
		Msg("Group conversation created")

	result, err := s.withParticipants(ctx, conversation)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		payload := dto.ToConversationResponse(result)
		for _, p := range participants {
			s.hub.SubscribeUser(p.UserID, conversation.ID)
			if p.UserID != creatorID {
				s.hub.NotifyUser(p.UserID, websocket.NewEvent(
					websocket.EventConversationUpdated, conversation.ID, payload))
			}
		}
	}

	return result, nil
}

func (s *conversationService) GetConversation(ctx context.Context, conversationID, callerID int64) (*models.Conversation, error) {
	conversation, err := s.requireParticipant(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	return s.withParticipants(ctx, conversation)
}

func (s *conversationService) ListConversationsForUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	return s.conversationRepo.ListForUser(ctx, userID)
}

func (s *conversationService) AddGroupMember(ctx context.Context, conversationID, actorID, newUserID int64) (*models.ConversationParticipant, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, apperrors.NewResourceNotFoundError("Conversation")
	}
	if conversation.Kind != models.ConversationKindGroup {
		return nil, apperrors.NewValidationError("Members can only be added to group conversations")
	}

	actor, err := s.participantRepo.GetParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperrors.NewForbiddenError("You are not a participant of this conversation")
	}
	if !actor.Role.CanManageMembers() {
		return nil, apperrors.NewForbiddenError("Only owners and admins can add members")
	}

	newUser, err := s.userRepo.FindByID(ctx, newUserID)
	if err != nil {
		return nil, err
	}
	if newUser == nil {
		return nil, apperrors.NewResourceNotFoundError("User")
	}

	participant := &models.ConversationParticipant{
		ConversationID: conversationID,
		UserID:         newUserID,
		Role:           models.ParticipantRoleMember,
	}
	if err := s.participantRepo.Add(ctx, participant); err != nil {
		if dberrors.IsDuplicateConstraintError(err, repositories.ConstraintParticipantMember) {
			return nil, apperrors.NewConflictError("User is already a participant of this conversation")
		}
		return nil, err
	}
	participant.User = newUser

	s.logger.Info().
		Int64("conversation_id", conversationID).
		Int64("actor_id", actorID).
		Int64("user_id", newUserID).
		Msg("Member added to group conversation")

	if s.hub != nil {
		s.hub.SubscribeUser(newUserID, conversationID)
		s.hub.BroadcastToConversation(websocket.NewEvent(
			websocket.EventConversationUpdated, conversationID, dto.ToParticipantResponse(participant)), actorID)
	}

	return participant, nil
}

func (s *conversationService) ToggleArchive(ctx context.Context, conversationID, callerID int64) error {
	participant, err := s.participantRepo.GetParticipant(ctx, conversationID, callerID)
	if err != nil {
		return err
	}
	if participant == nil {
		return apperrors.NewForbiddenError("You are not a participant of this conversation")
	}

	archived := !participant.IsArchived
	if err := s.participantRepo.SetArchived(ctx, conversationID, callerID, archived); err != nil {
		return err
	}

	// Sync the caller's other devices
	if s.hub != nil {
		s.hub.NotifyUser(callerID, websocket.NewEvent(
			websocket.EventConversationUpdated, conversationID, map[string]interface{}{
				"isArchived": archived,
			}))
	}
	return nil
}

func (s *conversationService) TogglePin(ctx context.Context, conversationID, callerID int64) error {
	participant, err := s.participantRepo.GetParticipant(ctx, conversationID, callerID)
	if err != nil {
		return err
	}
	if participant == nil {
		return apperrors.NewForbiddenError("You are not a participant of this conversation")
	}

	pinned := !participant.IsPinned
	if err := s.participantRepo.SetPinned(ctx, conversationID, callerID, pinned); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.NotifyUser(callerID, websocket.NewEvent(
			websocket.EventConversationUpdated, conversationID, map[string]interface{}{
				"isPinned": pinned,
			}))
	}
	return nil
}

func (s *conversationService) LeaveConversation(ctx context.Context, conversationID, callerID int64) error {
	return apperrors.NewNotImplementedError("Leaving a conversation is not supported yet")
}

func (s *conversationService) RemoveMember(ctx context.Context, conversationID, actorID, memberID int64) error {
	return apperrors.NewNotImplementedError("Removing members is not supported yet")
}

func (s *conversationService) UpdateGroupInfo(ctx context.Context, conversationID, actorID int64) error {
	return apperrors.NewNotImplementedError("Updating group info is not supported yet")
}

// requireParticipant loads a conversation and verifies membership
func (s *conversationService) requireParticipant(ctx context.Context, conversationID, callerID int64) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, apperrors.NewResourceNotFoundError("Conversation")
	}

	isParticipant, err := s.participantRepo.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, apperrors.NewForbiddenError("You are not a participant of this conversation")
	}

	return conversation, nil
}

func (s *conversationService) withParticipants(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	participants, err := s.participantRepo.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}
	conversation.Participants = participants
	return conversation, nil
}

// dedupeMemberIDs removes duplicates and the creator from the member list,
// preserving order
func dedupeMemberIDs(ids []int64, creatorID int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == creatorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
