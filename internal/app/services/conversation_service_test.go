package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/app/models/dto"
	"github.com/agrolink/messaging/internal/pkg/apperrors"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

func TestGetOrCreateDirectConversationIdempotent(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	first, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, models.ConversationKindDirect, first.Kind)
	assert.Len(t, first.Participants, 2)

	// Same pair again returns the same conversation
	second, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Reversed caller order still resolves to the same conversation
	reversed, err := f.conversationService.GetOrCreateDirectConversation(ctx, 2, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)
}

func TestGetOrCreateDirectConversationDistinctPerProduct(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	plain, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)

	productID := int64(42)
	withProduct, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, &productID)
	require.NoError(t, err)

	assert.NotEqual(t, plain.ID, withProduct.ID,
		"a product-scoped conversation is distinct from the general one")

	again, err := f.conversationService.GetOrCreateDirectConversation(ctx, 2, 1, &productID)
	require.NoError(t, err)
	assert.Equal(t, withProduct.ID, again.ID)
}

func TestGetOrCreateDirectConversationConcurrent(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	const callers = 8
	ids := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, id := range ids {
		assert.Equal(t, ids[0], id, "concurrent callers must converge on one conversation")
	}
}

func TestGetOrCreateDirectConversationValidation(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	ctx := context.Background()

	_, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.conversationService.GetOrCreateDirectConversation(ctx, 1, 99, nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestCreateGroupConversation(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	f.store.addUser(3, "Fatma")
	ctx := context.Background()

	conv, err := f.conversationService.CreateGroupConversation(ctx, 1, &dto.CreateGroupConversationRequest{
		Name: "Hazelnut growers",
		// Duplicates and the creator are dropped from the member list
		MemberIDs: []int64{2, 3, 2, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationKindGroup, conv.Kind)
	require.Len(t, conv.Participants, 3)

	roles := make(map[int64]models.ParticipantRole)
	for _, p := range conv.Participants {
		roles[p.UserID] = p.Role
	}
	assert.Equal(t, models.ParticipantRoleOwner, roles[1])
	assert.Equal(t, models.ParticipantRoleMember, roles[2])
	assert.Equal(t, models.ParticipantRoleMember, roles[3])
}

func TestCreateGroupConversationValidation(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateGroupConversationRequest
	}{
		{"blank name", dto.CreateGroupConversationRequest{Name: "   ", MemberIDs: []int64{2}}},
		{"no members", dto.CreateGroupConversationRequest{Name: "Growers", MemberIDs: nil}},
		{"only creator in members", dto.CreateGroupConversationRequest{Name: "Growers", MemberIDs: []int64{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.conversationService.CreateGroupConversation(ctx, 1, &tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}

	_, err := f.conversationService.CreateGroupConversation(ctx, 1, &dto.CreateGroupConversationRequest{
		Name: "Growers", MemberIDs: []int64{2, 404},
	})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAddGroupMember(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	f.store.addUser(3, "Fatma")
	f.store.addUser(4, "Ali")
	ctx := context.Background()

	conv, err := f.conversationService.CreateGroupConversation(ctx, 1, &dto.CreateGroupConversationRequest{
		Name: "Growers", MemberIDs: []int64{2},
	})
	require.NoError(t, err)

	participant, err := f.conversationService.AddGroupMember(ctx, conv.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRoleMember, participant.Role)
	assert.Equal(t, int64(3), participant.UserID)

	// Adding the same user again conflicts
	_, err = f.conversationService.AddGroupMember(ctx, conv.ID, 1, 3)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// A plain member cannot add others
	_, err = f.conversationService.AddGroupMember(ctx, conv.ID, 2, 4)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	// A non-participant cannot add others
	_, err = f.conversationService.AddGroupMember(ctx, conv.ID, 4, 3)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	// Unknown conversation
	_, err = f.conversationService.AddGroupMember(ctx, 9999, 1, 3)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAddGroupMemberRejectsDirectConversation(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	f.store.addUser(3, "Fatma")
	ctx := context.Background()

	direct, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)

	_, err = f.conversationService.AddGroupMember(ctx, direct.ID, 1, 3)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestToggleArchiveAndPin(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	conv, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)

	// Archive hides the conversation from the caller's listing only
	require.NoError(t, f.conversationService.ToggleArchive(ctx, conv.ID, 1))

	mine, err := f.conversationService.ListConversationsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := f.conversationService.ListConversationsForUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	// Toggling again restores it
	require.NoError(t, f.conversationService.ToggleArchive(ctx, conv.ID, 1))
	mine, err = f.conversationService.ListConversationsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, f.conversationService.TogglePin(ctx, conv.ID, 1))
	mine, err = f.conversationService.ListConversationsForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].IsPinned)

	// A non-participant may not touch the flags
	err = f.conversationService.TogglePin(ctx, conv.ID, 404)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestToggleFlagsNotifyCallerDevices(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	ctx := context.Background()

	conv, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)

	// Creation already pushed to user 2; the toggles must not add to that
	before := len(f.pusher.notifiedTo(2))

	require.NoError(t, f.conversationService.TogglePin(ctx, conv.ID, 1))
	require.NoError(t, f.conversationService.ToggleArchive(ctx, conv.ID, 1))

	events := f.pusher.notifiedTo(1)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, websocket.EventConversationUpdated, event.Type)
		assert.Equal(t, conv.ID, event.ConversationID)
	}
	assert.Equal(t, map[string]interface{}{"isPinned": true}, events[0].Payload)
	assert.Equal(t, map[string]interface{}{"isArchived": true}, events[1].Payload)

	assert.Len(t, f.pusher.notifiedTo(2), before)

	// Forbidden toggles push nothing
	require.Error(t, f.conversationService.TogglePin(ctx, conv.ID, 404))
	assert.Empty(t, f.pusher.notifiedTo(404))
}

func TestListConversationsOrdering(t *testing.T) {
	f := newFixture()
	f.store.addUser(1, "Ayşe")
	f.store.addUser(2, "Mehmet")
	f.store.addUser(3, "Fatma")
	ctx := context.Background()

	older, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 2, nil)
	require.NoError(t, err)
	newer, err := f.conversationService.GetOrCreateDirectConversation(ctx, 1, 3, nil)
	require.NoError(t, err)

	// Activity in the older conversation moves it to the top
	_, err = f.messageService.SendMessage(ctx, 2, &dto.SendMessageRequest{
		ConversationID: older.ID, Content: "Merhaba",
	})
	require.NoError(t, err)

	list, err := f.conversationService.ListConversationsForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)

	// A pinned conversation sorts first regardless of activity
	require.NoError(t, f.conversationService.TogglePin(ctx, newer.ID, 1))
	list, err = f.conversationService.ListConversationsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestUnsupportedConversationActions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.conversationService.LeaveConversation(ctx, 1, 1), apperrors.ErrNotImplemented)
	assert.ErrorIs(t, f.conversationService.RemoveMember(ctx, 1, 1, 2), apperrors.ErrNotImplemented)
	assert.ErrorIs(t, f.conversationService.UpdateGroupInfo(ctx, 1, 1), apperrors.ErrNotImplemented)
}
