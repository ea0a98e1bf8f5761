package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
  shutdown_timeout: 10s
storage:
  kind: postgres
  host: db.internal
  port: 5433
  database: op3
  username: app
  password: secret
logging:
  level: debug
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 10*time.Second, config.Server.ShutdownTimeout)
	assert.Equal(t, storage.PostgreSQL, config.Storage.Kind)
	assert.Equal(t, "db.internal", config.Storage.Host)
	assert.Equal(t, 5433, config.Storage.Port)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  kind: sqlite
  filePath: /var/lib/op3/data.db
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ShutdownTimeout)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [not a mapping"))
		assert.Error(t, err)
	})

	t.Run("invalid storage config", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
storage:
  kind: postgres
`))
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("unknown engine kind", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
storage:
  kind: oracle
  host: db.internal
  database: op3
`))
		assert.ErrorIs(t, err, storage.ErrValidation)
	})
}

func TestFlatten(t *testing.T) {
	config := &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 9090},
		Storage: storage.Config{Kind: storage.SQLite, FilePath: "/tmp/data.db", Password: "secret"},
		Logging: LoggingConfig{Level: "info"},
	}

	flat := config.Flatten()
	assert.Equal(t, "sqlite", flat["storage.kind"])
	assert.Equal(t, "/tmp/data.db", flat["storage.file_path"])
	assert.Equal(t, "9090", flat["server.port"])

	// Credentials never enter the runtime settings store.
	for key, value := range flat {
		assert.NotEqual(t, "secret", value, "key %s leaked a credential", key)
	}
}
