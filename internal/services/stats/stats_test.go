package stats

import (
	"context"
	"testing"
	"time"

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

	return NewService(manager, logger.New("stats-test", "dev"))
}

func TestRecordAccumulates(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, "openai", "gpt-4", 100, 50))
	require.NoError(t, service.Record(ctx, "openai", "gpt-4", 200, 80))

	usage, err := service.ForProvider(ctx, "openai")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), usage[0].Period)
	assert.Equal(t, int64(2), usage[0].Requests)
	assert.Equal(t, int64(300), usage[0].PromptTokens)
	assert.Equal(t, int64(130), usage[0].CompletionTokens)
}

func TestRecordSeparatesModels(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, "openai", "gpt-4", 100, 50))
	require.NoError(t, service.Record(ctx, "openai", "gpt-4o-mini", 10, 5))
	require.NoError(t, service.Record(ctx, "anthropic", "claude-sonnet", 70, 30))

	openai, err := service.ForProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Len(t, openai, 2)

	anthropic, err := service.ForProvider(ctx, "anthropic")
	require.NoError(t, err)
	require.Len(t, anthropic, 1)
	assert.Equal(t, int64(70), anthropic[0].PromptTokens)
}

func TestSummarize(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, "openai", "gpt-4", 100, 50))
	require.NoError(t, service.Record(ctx, "openai", "gpt-4", 200, 80))
	require.NoError(t, service.Record(ctx, "anthropic", "claude-sonnet", 70, 30))

	summary, err := service.Summarize(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Requests)
	assert.Equal(t, int64(370), summary.PromptTokens)
	assert.Equal(t, int64(160), summary.CompletionTokens)

	require.Len(t, summary.ByModel, 2)
	gpt4 := summary.ByModel["openai/gpt-4"]
	require.NotNil(t, gpt4)
	assert.Equal(t, int64(2), gpt4.Requests)
	assert.Equal(t, int64(300), gpt4.PromptTokens)
}

func TestSummarizeEmpty(t *testing.T) {
	service := newTestService(t)

	summary, err := service.Summarize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Requests)
	assert.Empty(t, summary.ByModel)
}
