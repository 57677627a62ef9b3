package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
)

// reactionRepository is the pgx-backed ReactionRepository
type reactionRepository struct {
	db *pgxpool.Pool
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(pool *pgxpool.Pool) ReactionRepository {
	return &reactionRepository{db: pool}
}

// Add inserts a reaction row. Unique violations on the reaction triple are
// returned unwrapped for the caller to classify.
func (r *reactionRepository) Add(ctx context.Context, reaction *models.MessageReaction) error {
	query := `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		reaction.MessageID,
		reaction.UserID,
		reaction.Emoji,
	).Scan(&reaction.ID, &reaction.CreatedAt)
	if err != nil {
		return err
	}

	return nil
}

// Remove deletes the (message, user, emoji) triple and reports whether a row
// existed
func (r *reactionRepository) Remove(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	query := `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`

	result, err := r.db.Exec(ctx, query, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("error removing reaction: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByMessageIDs retrieves reactions for a set of messages, grouped by
// message id
func (r *reactionRepository) ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageReaction, error) {
	result := make(map[int64][]*models.MessageReaction)
	if len(messageIDs) == 0 {
		return result, nil
	}

	query := squirrel.Select("id", "message_id", "user_id", "emoji", "created_at").
		From("message_reactions").
		Where(squirrel.Eq{"message_id": messageIDs}).
		OrderBy("created_at ASC").
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

	for rows.Next() {
		var reaction models.MessageReaction
		err := rows.Scan(
			&reaction.ID,
			&reaction.MessageID,
			&reaction.UserID,
			&reaction.Emoji,
			&reaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning reaction row: %w", err)
		}
		result[reaction.MessageID] = append(result[reaction.MessageID], &reaction)
	}

	return result, rows.Err()
}
