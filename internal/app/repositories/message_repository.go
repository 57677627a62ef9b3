package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/db"
)

// messageRepository is the pgx-backed MessageRepository
type messageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{db: pool}
}

const messageColumns = `
	id, conversation_id, sender_id, content, status, reply_to_id,
	reply_count, created_at, edited_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.Content,
		&m.Status,
		&m.ReplyToID,
		&m.ReplyCount,
		&m.CreatedAt,
		&m.EditedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a message plus its attachments, incrementing the parent's
// reply_count and bumping the conversation's last_message_at, all in one
// transaction. The message is stored SENT: the SENDING state is never
// observable by other participants.
func (r *messageRepository) Create(ctx context.Context, message *models.Message, attachments []*models.MessageAttachment) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO messages (conversation_id, sender_id, content, status, reply_to_id)
			VALUES ($1, $2, $3, 'SENT', $4)
			RETURNING id, status, created_at
		`
		err := tx.QueryRow(ctx, query,
			message.ConversationID,
			message.SenderID,
			message.Content,
			message.ReplyToID,
		).Scan(&message.ID, &message.Status, &message.CreatedAt)
		if err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}

		if message.ReplyToID != nil {
			result, err := tx.Exec(ctx, `
				UPDATE messages SET reply_count = reply_count + 1
				WHERE id = $1 AND conversation_id = $2
			`, *message.ReplyToID, message.ConversationID)
			if err != nil {
				return fmt.Errorf("error incrementing reply count: %w", err)
			}
			if result.RowsAffected() == 0 {
				return fmt.Errorf("reply target %d not found in conversation %d", *message.ReplyToID, message.ConversationID)
			}
		}

		for _, a := range attachments {
			a.MessageID = message.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO message_attachments (message_id, url, file_name, file_size, file_type, thumbnail_url)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at
			`, a.MessageID, a.URL, a.FileName, a.FileSize, a.FileType, a.ThumbnailURL).
				Scan(&a.ID, &a.CreatedAt)
			if err != nil {
				return fmt.Errorf("error creating attachment: %w", err)
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE conversations SET last_message_at = $1, updated_at = NOW()
			WHERE id = $2
		`, message.CreatedAt, message.ConversationID)
		if err != nil {
			return fmt.Errorf("error updating conversation activity: %w", err)
		}

		message.Attachments = attachments
		return nil
	})
}

// GetByID retrieves a message by its ID
func (r *messageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}

	return message, nil
}

// ListByConversation retrieves messages for a conversation newest-first,
// paginated by a before-timestamp cursor
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error) {
	queryBuilder := squirrel.Select(
		"id", "conversation_id", "sender_id", "content", "status",
		"reply_to_id", "reply_count", "created_at", "edited_at",
	).
		From("messages").
		Where("conversation_id = ?", conversationID).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if before != nil {
		queryBuilder = queryBuilder.Where("created_at < ?", *before)
	}

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return r.queryMessages(ctx, sql, args...)
}

// ListThread retrieves all replies to a parent message, oldest-first
func (r *messageRepository) ListThread(ctx context.Context, parentID int64) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE reply_to_id = $1
		ORDER BY created_at ASC
	`

	return r.queryMessages(ctx, query, parentID)
}

// UpdateStatus sets a message's lifecycle status. Transition legality is
// validated by the caller.
func (r *messageRepository) UpdateStatus(ctx context.Context, id int64, status models.MessageStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE messages SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("error updating message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no message found with ID %d", id)
	}

	return nil
}

// UpdateContent replaces a message's content and records the edit time
func (r *messageRepository) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE messages SET content = $1, edited_at = $2 WHERE id = $3
	`, content, editedAt, id)
	if err != nil {
		return fmt.Errorf("error updating message content: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no message found with ID %d", id)
	}

	return nil
}

// likeEscaper neutralizes LIKE metacharacters so user input matches literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// Search performs a case-insensitive substring match over message content,
// scoped to conversations the user participates in
func (r *messageRepository) Search(ctx context.Context, userID int64, query string, conversationID *int64, limit int) ([]*models.Message, error) {
	queryBuilder := squirrel.Select(
		"m.id", "m.conversation_id", "m.sender_id", "m.content", "m.status",
		"m.reply_to_id", "m.reply_count", "m.created_at", "m.edited_at",
	).
		From("messages m").
		Join("conversation_participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?", userID).
		Where("m.content ILIKE ?", "%"+escapeLikePattern(query)+"%").
		OrderBy("m.created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if conversationID != nil {
		queryBuilder = queryBuilder.Where("m.conversation_id = ?", *conversationID)
	}

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return r.queryMessages(ctx, sql, args...)
}

func (r *messageRepository) queryMessages(ctx context.Context, sql string, args ...interface{}) ([]*models.Message, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}
