package workspace

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

	return NewService(manager, logger.New("workspace-test", "dev"))
}

func TestCreateAndList(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.SortOrder)
	assert.Empty(t, first.GroupID)

	second, err := service.Create(ctx, "u1", "Work")
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.SortOrder)

	workspaces, err := service.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "Personal", workspaces[0].Name)
	assert.Equal(t, "Work", workspaces[1].Name)
}

func TestCreateNameCollision(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)

	_, err = service.Create(ctx, "u1", "Personal")
	assert.ErrorIs(t, err, ErrNameTaken)

	// Another user may reuse the name.
	_, err = service.Create(ctx, "u2", "Personal")
	assert.NoError(t, err)
}

func TestRenameAndSortOrder(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)
	second, err := service.Create(ctx, "u1", "Work")
	require.NoError(t, err)

	require.NoError(t, service.Rename(ctx, first.ID, "Home"))
	assert.ErrorIs(t, service.Rename(ctx, second.ID, "Home"), ErrNameTaken)
	assert.ErrorIs(t, service.Rename(ctx, "missing", "x"), ErrWorkspaceNotFound)

	require.NoError(t, service.SetSortOrder(ctx, first.ID, 5))
	workspaces, err := service.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, workspaces[0].ID)
	assert.Equal(t, first.ID, workspaces[1].ID)
}

func TestGroups(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	workspace, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)

	group, err := service.CreateGroup(ctx, "u1", "Projects")
	require.NoError(t, err)
	assert.Equal(t, int64(0), group.SortOrder)

	_, err = service.CreateGroup(ctx, "u1", "Projects")
	assert.ErrorIs(t, err, ErrNameTaken)

	t.Run("move into group", func(t *testing.T) {
		require.NoError(t, service.MoveToGroup(ctx, workspace.ID, group.ID))
		got, err := service.Get(ctx, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, group.ID, got.GroupID)
	})

	t.Run("unknown group rejected", func(t *testing.T) {
		assert.ErrorIs(t, service.MoveToGroup(ctx, workspace.ID, "missing"), ErrGroupNotFound)
	})

	t.Run("empty group id detaches", func(t *testing.T) {
		require.NoError(t, service.MoveToGroup(ctx, workspace.ID, ""))
		got, err := service.Get(ctx, workspace.ID)
		require.NoError(t, err)
		assert.Empty(t, got.GroupID)
	})
}

func TestDeleteGroupDetachesWorkspaces(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	workspace, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)
	group, err := service.CreateGroup(ctx, "u1", "Projects")
	require.NoError(t, err)
	require.NoError(t, service.MoveToGroup(ctx, workspace.ID, group.ID))

	require.NoError(t, service.DeleteGroup(ctx, group.ID))

	got, err := service.Get(ctx, workspace.ID)
	require.NoError(t, err)
	assert.Empty(t, got.GroupID)

	groups, err := service.ListGroups(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, groups)

	assert.ErrorIs(t, service.DeleteGroup(ctx, group.ID), ErrGroupNotFound)
}

func TestDeleteWorkspace(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	workspace, err := service.Create(ctx, "u1", "Personal")
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, workspace.ID))
	_, err = service.Get(ctx, workspace.ID)
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	assert.ErrorIs(t, service.Delete(ctx, workspace.ID), ErrWorkspaceNotFound)
}
