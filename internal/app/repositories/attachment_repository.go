package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
)

// attachmentRepository is the pgx-backed AttachmentRepository
type attachmentRepository struct {
	db *pgxpool.Pool
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{db: pool}
}

// Create inserts an attachment row for an existing message
func (r *attachmentRepository) Create(ctx context.Context, attachment *models.MessageAttachment) error {
	query := `
		INSERT INTO message_attachments (message_id, url, file_name, file_size, file_type, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		attachment.MessageID,
		attachment.URL,
		attachment.FileName,
		attachment.FileSize,
		attachment.FileType,
		attachment.ThumbnailURL,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating attachment: %w", err)
	}

	return nil
}

// ListByMessageIDs retrieves attachments for a set of messages, grouped by
// message id
func (r *attachmentRepository) ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageAttachment, error) {
	result := make(map[int64][]*models.MessageAttachment)
	if len(messageIDs) == 0 {
		return result, nil
	}

	query := squirrel.Select(
		"id", "message_id", "url", "file_name", "file_size", "file_type", "thumbnail_url", "created_at",
	).
		From("message_attachments").
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
		var a models.MessageAttachment
		err := rows.Scan(
			&a.ID,
			&a.MessageID,
			&a.URL,
			&a.FileName,
			&a.FileSize,
			&a.FileType,
			&a.ThumbnailURL,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning attachment row: %w", err)
		}
		result[a.MessageID] = append(result[a.MessageID], &a)
	}

	return result, rows.Err()
}
