package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSystem.Valid())
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}

func TestConversationAddAndLast(t *testing.T) {
	conv := NewConversation()
	assert.Nil(t, conv.Last())
	assert.Equal(t, 0, conv.Len())

	conv.AddText(RoleSystem, "be brief").
		AddText(RoleUser, "hello")

	require.Equal(t, 2, conv.Len())
	last := conv.Last()
	require.NotNil(t, last)
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "hello", last.Text)
}

func TestConversationValidate(t *testing.T) {
	tests := []struct {
		name    string
		conv    *Conversation
		wantErr bool
	}{
		{
			name:    "nil conversation",
			conv:    nil,
			wantErr: true,
		},
		{
			name:    "empty conversation",
			conv:    NewConversation(),
			wantErr: true,
		},
		{
			name:    "unknown role",
			conv:    NewConversation().AddText(Role("tool"), "x"),
			wantErr: true,
		},
		{
			name:    "single user message",
			conv:    NewConversation().AddText(RoleUser, "hello"),
			wantErr: false,
		},
		{
			name: "multi-turn",
			conv: NewConversation().
				AddText(RoleSystem, "be brief").
				AddText(RoleUser, "hi").
				AddText(RoleAssistant, "hello").
				AddText(RoleUser, "bye"),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conv.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidInput(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
