package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erenbertr/op3-sub001/internal/database/sqlite"
	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	registry := storage.NewRegistry()
	registry.Register(sqlite.NewAdapter())

	manager := storage.NewManager(storage.WithRegistry(registry))
	require.NoError(t, manager.Configure(storage.Config{Kind: storage.SQLite, FilePath: ":memory:"}))
	t.Cleanup(func() { manager.Close() })

	return NewService(manager, logger.New("chat-test", "dev"))
}

func TestSessionLifecycle(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "ws-1", "u1", "New chat")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "New chat", session.Title)

	require.NoError(t, service.RenameSession(ctx, session.ID, "Planning"))
	got, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Planning", got.Title)

	_, err = service.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, service.RenameSession(ctx, "missing", "x"), ErrSessionNotFound)
}

func TestAppendMessageSequencing(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "ws-1", "u1", "New chat")
	require.NoError(t, err)

	first, err := service.AppendMessage(ctx, session.ID, "user", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)

	second, err := service.AppendMessage(ctx, session.ID, "assistant", "hi there",
		map[string]interface{}{"model": "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	messages, err := service.ListMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, map[string]interface{}{"model": "gpt-4"}, messages[1].Metadata)

	t.Run("append to unknown session", func(t *testing.T) {
		_, err := service.AppendMessage(ctx, "missing", "user", "x", nil)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestAppendMessageBumpsActivity(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	older, err := service.CreateSession(ctx, "ws-1", "u1", "Older")
	require.NoError(t, err)
	newer, err := service.CreateSession(ctx, "ws-1", "u1", "Newer")
	require.NoError(t, err)

	sessions, err := service.ListSessions(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)

	_, err = service.AppendMessage(ctx, older.ID, "user", "ping", nil)
	require.NoError(t, err)

	sessions, err = service.ListSessions(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, sessions[0].ID)
}

func TestListMessagesLimit(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "ws-1", "u1", "New chat")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := service.AppendMessage(ctx, session.ID, "user", content, nil)
		require.NoError(t, err)
	}

	messages, err := service.ListMessages(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "ws-1", "u1", "New chat")
	require.NoError(t, err)
	_, err = service.AppendMessage(ctx, session.ID, "user", "hello", nil)
	require.NoError(t, err)

	require.NoError(t, service.DeleteSession(ctx, session.ID))

	_, err = service.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	messages, err := service.ListMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	assert.ErrorIs(t, service.DeleteSession(ctx, session.ID), ErrSessionNotFound)
}

func TestDeleteMessage(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "ws-1", "u1", "New chat")
	require.NoError(t, err)
	message, err := service.AppendMessage(ctx, session.ID, "user", "hello", nil)
	require.NoError(t, err)

	require.NoError(t, service.DeleteMessage(ctx, message.ID))
	assert.ErrorIs(t, service.DeleteMessage(ctx, message.ID), ErrMessageNotFound)
}
