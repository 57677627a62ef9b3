package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/messaging/internal/app/models"
)

func TestToMessageResponseSummarizesReactions(t *testing.T) {
	msg := &models.Message{
		ID:             5,
		ConversationID: 1,
		SenderID:       2,
		Content:        "Hasat başladı",
		Status:         models.MessageStatusSent,
		CreatedAt:      time.Now(),
		Reactions: []*models.MessageReaction{
			{MessageID: 5, UserID: 2, Emoji: "👍"},
			{MessageID: 5, UserID: 3, Emoji: "🌾"},
			{MessageID: 5, UserID: 4, Emoji: "👍"},
		},
	}

	resp := ToMessageResponse(msg, 3)

	require.Len(t, resp.Reactions, 2)

	// First-seen emoji order is preserved
	thumbs := resp.Reactions[0]
	assert.Equal(t, "👍", thumbs.Emoji)
	assert.Equal(t, 2, thumbs.Count)
	assert.ElementsMatch(t, []int64{2, 4}, thumbs.UserIDs)
	assert.False(t, thumbs.ReactedBy)

	wheat := resp.Reactions[1]
	assert.Equal(t, "🌾", wheat.Emoji)
	assert.Equal(t, 1, wheat.Count)
	assert.True(t, wheat.ReactedBy, "the viewer's own reaction is flagged")
}

func TestToMessageResponseWithoutRelations(t *testing.T) {
	now := time.Now()
	msg := &models.Message{
		ID:             5,
		ConversationID: 1,
		SenderID:       2,
		Content:        "selam",
		Status:         models.MessageStatusDelivered,
		ReplyCount:     3,
		CreatedAt:      now,
	}

	resp := ToMessageResponse(msg, 2)
	assert.Equal(t, "DELIVERED", resp.Status)
	assert.Equal(t, 3, resp.ReplyCount)
	assert.Nil(t, resp.Sender)
	assert.Nil(t, resp.Reactions)
	assert.Nil(t, resp.Attachments)
}
