package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationKindIsValid(t *testing.T) {
	assert.True(t, ConversationKindDirect.IsValid())
	assert.True(t, ConversationKindGroup.IsValid())
	assert.False(t, ConversationKind("CHANNEL").IsValid())
	assert.False(t, ConversationKind("direct").IsValid())
	assert.False(t, ConversationKind("").IsValid())
}

func TestParticipantRoleIsValid(t *testing.T) {
	for _, r := range []ParticipantRole{
		ParticipantRoleOwner, ParticipantRoleAdmin, ParticipantRoleModerator, ParticipantRoleMember,
	} {
		assert.True(t, r.IsValid(), "expected %s to be valid", r)
	}
	assert.False(t, ParticipantRole("GUEST").IsValid())
	assert.False(t, ParticipantRole("").IsValid())
}

func TestParticipantRoleCanManageMembers(t *testing.T) {
	assert.True(t, ParticipantRoleOwner.CanManageMembers())
	assert.True(t, ParticipantRoleAdmin.CanManageMembers())
	assert.False(t, ParticipantRoleModerator.CanManageMembers())
	assert.False(t, ParticipantRoleMember.CanManageMembers())
}
