package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateConversation(t *testing.T) {
	convs := NewConversations(testDB(t))
	ctx := context.Background()

	created, err := convs.GetOrCreate(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.UserID)
	assert.NotZero(t, created.ID)

	same, err := convs.GetOrCreate(ctx, "alice", &created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, same.ID)

	_, err = convs.GetOrCreate(ctx, "bob", &created.ID)
	assert.ErrorIs(t, err, ErrNotFound, "foreign conversation reads as missing")

	missing := created.ID + 100
	_, err = convs.GetOrCreate(ctx, "alice", &missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageRoundTripOrdering(t *testing.T) {
	convs := NewConversations(testDB(t))
	ctx := context.Background()

	conv, err := convs.GetOrCreate(ctx, "alice", nil)
	require.NoError(t, err)

	const n = 10
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		_, err := convs.AppendMessage(ctx, conv.ID, role, fmt.Sprintf("message %d", i), "")
		require.NoError(t, err)
	}

	history, err := convs.LoadHistory(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, history, n)

	for i, m := range history {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Content)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(history[i-1].CreatedAt),
				"created_at must be non-decreasing")
		}
	}
}

func TestAppendMessageStoresToolCallSummary(t *testing.T) {
	convs := NewConversations(testDB(t))
	ctx := context.Background()

	conv, err := convs.GetOrCreate(ctx, "alice", nil)
	require.NoError(t, err)

	summary := `[{"name":"add_task","status":"success"}]`
	_, err = convs.AppendMessage(ctx, conv.ID, RoleAssistant, "Added it.", summary)
	require.NoError(t, err)

	history, err := convs.LoadHistory(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, RoleAssistant, history[0].Role)
	assert.Equal(t, summary, history[0].ToolCalls)
}

func TestLoadHistoryEmptyConversation(t *testing.T) {
	convs := NewConversations(testDB(t))
	ctx := context.Background()

	conv, err := convs.GetOrCreate(ctx, "alice", nil)
	require.NoError(t, err)

	history, err := convs.LoadHistory(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
