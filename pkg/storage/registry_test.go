package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	adapter := newFakeAdapter()

	assert.False(t, registry.IsRegistered(SQLite))

	registry.Register(adapter)
	assert.True(t, registry.IsRegistered(SQLite))

	got, err := registry.Get(SQLite)
	require.NoError(t, err)
	assert.Equal(t, SQLite, got.Kind())

	_, err = registry.Get(MongoDB)
	assert.ErrorIs(t, err, ErrAdapterNotFound)

	kinds := registry.ListRegistered()
	assert.Equal(t, []EngineKind{SQLite}, kinds)
}

func TestRegistryGetByName(t *testing.T) {
	registry := NewRegistry()
	registry.Register(newFakeAdapter())

	t.Run("canonical name", func(t *testing.T) {
		adapter, err := registry.GetByName("sqlite")
		require.NoError(t, err)
		assert.Equal(t, SQLite, adapter.Kind())
	})

	t.Run("alias", func(t *testing.T) {
		adapter, err := registry.GetByName("sqlite3")
		require.NoError(t, err)
		assert.Equal(t, SQLite, adapter.Kind())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := registry.GetByName("oracle")
		assert.ErrorIs(t, err, ErrAdapterNotFound)
	})
}
