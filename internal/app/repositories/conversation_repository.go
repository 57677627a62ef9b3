package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/db"
)

// conversationRepository is the pgx-backed ConversationRepository
type conversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{db: pool}
}

const conversationColumns = `
	id, kind, buyer_id, seller_id, product_id, name, description,
	avatar_url, creator_id, last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.Kind,
		&c.BuyerID,
		&c.SellerID,
		&c.ProductID,
		&c.Name,
		&c.Description,
		&c.AvatarURL,
		&c.CreatorID,
		&c.LastMessageAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a conversation by its ID
func (r *conversationRepository) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conversation, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return conversation, nil
}

// FindDirect looks up the direct conversation for the unordered user pair and
// optional product reference
func (r *conversationRepository) FindDirect(ctx context.Context, userA, userB int64, productID *int64) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE kind = 'DIRECT'
		  AND ((buyer_id = $1 AND seller_id = $2) OR (buyer_id = $2 AND seller_id = $1))
		  AND COALESCE(product_id, 0) = COALESCE($3::bigint, 0)
	`

	conversation, err := scanConversation(r.db.QueryRow(ctx, query, userA, userB, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding direct conversation: %w", err)
	}

	return conversation, nil
}

// CreateDirect inserts a direct conversation and both participant rows in one
// transaction. A unique violation on the direct-pair index is surfaced to the
// caller, which retries the lookup.
func (r *conversationRepository) CreateDirect(ctx context.Context, buyerID, sellerID int64, productID *int64) (*models.Conversation, error) {
	conversation := &models.Conversation{
		Kind:      models.ConversationKindDirect,
		BuyerID:   &buyerID,
		SellerID:  &sellerID,
		ProductID: productID,
	}

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO conversations (kind, buyer_id, seller_id, product_id)
			VALUES ('DIRECT', $1, $2, $3)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, buyerID, sellerID, productID).
			Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
		if err != nil {
			return err
		}

		for _, userID := range []int64{buyerID, sellerID} {
			_, err = tx.Exec(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, role)
				VALUES ($1, $2, 'MEMBER')
			`, conversation.ID, userID)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

// CreateGroup inserts a group conversation and its participant rows in one
// transaction
func (r *conversationRepository) CreateGroup(ctx context.Context, conversation *models.Conversation, participants []*models.ConversationParticipant) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO conversations (kind, name, description, avatar_url, creator_id)
			VALUES ('GROUP', $1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			conversation.Name,
			conversation.Description,
			conversation.AvatarURL,
			conversation.CreatorID,
		).Scan(&conversation.ID, &conversation.CreatedAt, &conversation.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error creating group conversation: %w", err)
		}

		for _, p := range participants {
			p.ConversationID = conversation.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, role)
				VALUES ($1, $2, $3)
				RETURNING id, joined_at
			`, p.ConversationID, p.UserID, p.Role).Scan(&p.ID, &p.JoinedAt)
			if err != nil {
				return fmt.Errorf("error adding group participant: %w", err)
			}
		}

		conversation.Participants = participants
		return nil
	})
}

// ListForUser retrieves conversation summaries for a user, excluding archived
// ones, ordered pinned-first then by most recent activity
func (r *conversationRepository) ListForUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	queryBuilder := squirrel.Select(
		"c.id", "c.kind", "c.buyer_id", "c.seller_id", "c.product_id",
		"c.name", "c.description", "c.avatar_url", "c.creator_id",
		"c.last_message_at", "c.created_at", "c.updated_at",
		"p.is_archived", "p.is_pinned", "p.last_read_at",
		`(SELECT COUNT(*) FROM messages m
			WHERE m.conversation_id = c.id
			  AND m.sender_id <> p.user_id
			  AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)) AS unread_count`,
		`(SELECT m.content FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC LIMIT 1) AS last_message_preview`,
	).
		From("conversations c").
		Join("conversation_participants p ON p.conversation_id = c.id").
		Where("p.user_id = ?", userID).
		Where("p.is_archived = FALSE").
		OrderBy("p.is_pinned DESC", "COALESCE(c.last_message_at, c.created_at) DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ConversationSummary
	for rows.Next() {
		var s models.ConversationSummary
		err := rows.Scan(
			&s.ID,
			&s.Kind,
			&s.BuyerID,
			&s.SellerID,
			&s.ProductID,
			&s.Name,
			&s.Description,
			&s.AvatarURL,
			&s.CreatorID,
			&s.LastMessageAt,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.IsArchived,
			&s.IsPinned,
			&s.LastReadAt,
			&s.UnreadCount,
			&s.LastMessagePreview,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		summaries = append(summaries, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return summaries, nil
}
