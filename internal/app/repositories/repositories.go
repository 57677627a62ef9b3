package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
)

// Unique constraint names relied on for conflict detection
const (
	ConstraintDirectConversationPair = "uq_conversations_direct_pair"
	ConstraintParticipantMember      = "uq_conversation_participants_member"
	ConstraintReactionTriple         = "uq_message_reactions_triple"
)

// ConversationRepository handles database operations for conversations.
// Lookup methods return (nil, nil) when no row exists.
type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB int64, productID *int64) (*models.Conversation, error)
	CreateDirect(ctx context.Context, buyerID, sellerID int64, productID *int64) (*models.Conversation, error)
	CreateGroup(ctx context.Context, conversation *models.Conversation, participants []*models.ConversationParticipant) error
	ListForUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error)
}

// ParticipantRepository handles database operations for conversation participants
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, conversationID, userID int64) (*models.ConversationParticipant, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	Add(ctx context.Context, participant *models.ConversationParticipant) error
	ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error)
	ListConversationIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	SetArchived(ctx context.Context, conversationID, userID int64, archived bool) error
	SetPinned(ctx context.Context, conversationID, userID int64, pinned bool) error
	UpdateLastRead(ctx context.Context, conversationID, userID int64, at time.Time) error
}

// MessageRepository handles database operations for messages
type MessageRepository interface {
	// Create persists the message, its attachments, the parent reply_count
	// increment and the conversation's last_message_at bump in one transaction.
	Create(ctx context.Context, message *models.Message, attachments []*models.MessageAttachment) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error)
	ListThread(ctx context.Context, parentID int64) ([]*models.Message, error)
	UpdateStatus(ctx context.Context, id int64, status models.MessageStatus) error
	UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error
	Search(ctx context.Context, userID int64, query string, conversationID *int64, limit int) ([]*models.Message, error)
}

// AttachmentRepository handles database operations for message attachments
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.MessageAttachment) error
	ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageAttachment, error)
}

// ReactionRepository handles database operations for message reactions
type ReactionRepository interface {
	Add(ctx context.Context, reaction *models.MessageReaction) error
	// Remove deletes the (message, user, emoji) triple and reports whether a
	// row existed.
	Remove(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageReaction, error)
}

// UserRepository reads the marketplace user projection
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

// Repositories bundles all repositories for dependency injection
type Repositories struct {
	Conversations ConversationRepository
	Participants  ParticipantRepository
	Messages      MessageRepository
	Attachments   AttachmentRepository
	Reactions     ReactionRepository
	Users         UserRepository
}

// NewRepositories creates all repositories backed by the given pool
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Conversations: NewConversationRepository(db),
		Participants:  NewParticipantRepository(db),
		Messages:      NewMessageRepository(db),
		Attachments:   NewAttachmentRepository(db),
		Reactions:     NewReactionRepository(db),
		Users:         NewUserRepository(db),
	}
}
