package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAndUpdate(t *testing.T) {
	config := New()

	assert.Empty(t, config.Get("storage.kind"))

	config.Update(map[string]string{
		"storage.kind":  "sqlite",
		"logging.level": "info",
	})
	assert.Equal(t, "sqlite", config.Get("storage.kind"))
	assert.Equal(t, "info", config.Get("logging.level"))

	config.Update(map[string]string{"logging.level": "debug"})
	assert.Equal(t, "debug", config.Get("logging.level"))
	assert.Equal(t, "sqlite", config.Get("storage.kind"))
}

func TestGetAllReturnsCopy(t *testing.T) {
	config := New()
	config.Update(map[string]string{"server.port": "8080"})

	all := config.GetAll()
	all["server.port"] = "9090"

	assert.Equal(t, "8080", config.Get("server.port"))
}

func TestRequiresRestart(t *testing.T) {
	config := New()
	config.Update(map[string]string{
		"storage.kind":  "sqlite",
		"logging.level": "info",
	})
	before := config.GetAll()

	t.Run("non-restart key change", func(t *testing.T) {
		config.Update(map[string]string{"logging.level": "debug"})
		assert.False(t, config.RequiresRestart(before))
	})

	t.Run("engine selection change", func(t *testing.T) {
		config.Update(map[string]string{"storage.kind": "postgres"})
		assert.True(t, config.RequiresRestart(before))
	})
}

func TestSetRestartKeys(t *testing.T) {
	config := New()
	config.Update(map[string]string{"custom.key": "a"})
	before := config.GetAll()

	config.SetRestartKeys([]string{"custom.key"})
	config.Update(map[string]string{"custom.key": "b"})
	assert.True(t, config.RequiresRestart(before))
}

func TestConcurrentAccess(t *testing.T) {
	config := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			config.Update(map[string]string{"storage.kind": "sqlite"})
		}()
		go func() {
			defer wg.Done()
			_ = config.Get("storage.kind")
			_ = config.GetAll()
		}()
	}
	wg.Wait()

	assert.Equal(t, "sqlite", config.Get("storage.kind"))
}
