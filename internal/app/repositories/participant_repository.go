package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
)

// participantRepository is the pgx-backed ParticipantRepository
type participantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(pool *pgxpool.Pool) ParticipantRepository {
	return &participantRepository{db: pool}
}

// GetParticipant retrieves a user's participant record for a conversation
func (r *participantRepository) GetParticipant(ctx context.Context, conversationID, userID int64) (*models.ConversationParticipant, error) {
	query := `
		SELECT id, conversation_id, user_id, role, is_archived, is_pinned, last_read_at, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`

	var p models.ConversationParticipant
	err := r.db.QueryRow(ctx, query, conversationID, userID).Scan(
		&p.ID,
		&p.ConversationID,
		&p.UserID,
		&p.Role,
		&p.IsArchived,
		&p.IsPinned,
		&p.LastReadAt,
		&p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving participant: %w", err)
	}

	return &p, nil
}

// IsParticipant checks if a user is a participant in a specific conversation
func (r *participantRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := squirrel.Select("1").
		From("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error executing query: %w", err)
	}

	return true, nil
}

// Add inserts a participant row. Unique violations on the membership
// constraint are returned unwrapped for the caller to classify.
func (r *participantRepository) Add(ctx context.Context, participant *models.ConversationParticipant) error {
	query := `
		INSERT INTO conversation_participants (conversation_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`

	err := r.db.QueryRow(ctx, query,
		participant.ConversationID,
		participant.UserID,
		participant.Role,
	).Scan(&participant.ID, &participant.JoinedAt)
	if err != nil {
		return err
	}

	return nil
}

// ListByConversation retrieves all participants of a conversation with their
// user projections
func (r *participantRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error) {
	query := squirrel.Select(
		"p.id", "p.conversation_id", "p.user_id", "p.role",
		"p.is_archived", "p.is_pinned", "p.last_read_at", "p.joined_at",
		"u.display_name", "u.avatar_url", "u.role AS user_role",
	).
		From("conversation_participants p").
		LeftJoin("users u ON p.user_id = u.id").
		Where("p.conversation_id = ?", conversationID).
		OrderBy("p.joined_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var participants []*models.ConversationParticipant
	for rows.Next() {
		var p models.ConversationParticipant
		var displayName, userRole *string
		var avatarURL *string

		err := rows.Scan(
			&p.ID,
			&p.ConversationID,
			&p.UserID,
			&p.Role,
			&p.IsArchived,
			&p.IsPinned,
			&p.LastReadAt,
			&p.JoinedAt,
			&displayName,
			&avatarURL,
			&userRole,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning participant row: %w", err)
		}

		if displayName != nil {
			user := models.User{ID: p.UserID, DisplayName: *displayName, AvatarURL: avatarURL}
			if userRole != nil {
				user.Role = *userRole
			}
			p.User = &user
		}

		participants = append(participants, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	return participants, nil
}

// ListConversationIDsByUser retrieves all conversation ids a user participates in
func (r *participantRepository) ListConversationIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("conversation_id").
		From("conversation_participants").
		Where("user_id = ?", userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var conversationIDs []int64
	for rows.Next() {
		var conversationID int64
		if err := rows.Scan(&conversationID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		conversationIDs = append(conversationIDs, conversationID)
	}

	return conversationIDs, rows.Err()
}

// SetArchived updates the archived flag on the user's own participant row
func (r *participantRepository) SetArchived(ctx context.Context, conversationID, userID int64, archived bool) error {
	return r.setFlag(ctx, "is_archived", conversationID, userID, archived)
}

// SetPinned updates the pinned flag on the user's own participant row
func (r *participantRepository) SetPinned(ctx context.Context, conversationID, userID int64, pinned bool) error {
	return r.setFlag(ctx, "is_pinned", conversationID, userID, pinned)
}

func (r *participantRepository) setFlag(ctx context.Context, column string, conversationID, userID int64, value bool) error {
	query := fmt.Sprintf(`
		UPDATE conversation_participants SET %s = $1
		WHERE conversation_id = $2 AND user_id = $3
	`, column)

	result, err := r.db.Exec(ctx, query, value, conversationID, userID)
	if err != nil {
		return fmt.Errorf("error updating participant %s: %w", column, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no participant found for conversation %d and user %d", conversationID, userID)
	}

	return nil
}

// UpdateLastRead advances the user's read watermark for a conversation
func (r *participantRepository) UpdateLastRead(ctx context.Context, conversationID, userID int64, at time.Time) error {
	query := `
		UPDATE conversation_participants SET last_read_at = $1
		WHERE conversation_id = $2 AND user_id = $3
	`

	result, err := r.db.Exec(ctx, query, at, conversationID, userID)
	if err != nil {
		return fmt.Errorf("error updating last read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no participant found for conversation %d and user %d", conversationID, userID)
	}

	return nil
}
