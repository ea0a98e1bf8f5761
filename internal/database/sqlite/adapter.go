// Package sqlite implements the storage adapter for the embedded
// single-file relational engine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// Adapter implements the storage.EngineAdapter interface for SQLite.
type Adapter struct{}

// NewAdapter creates a new SQLite adapter.
func NewAdapter() storage.EngineAdapter {
	return &Adapter{}
}

// Kind returns the engine kind identifier.
func (a *Adapter) Kind() storage.EngineKind {
	return storage.SQLite
}

// Capabilities returns the capability metadata for SQLite.
func (a *Adapter) Capabilities() storage.Capability {
	return storage.MustGet(storage.SQLite)
}

// Connect opens or creates the database file and applies the pragmas the
// layer relies on: WAL for concurrent reads, a busy timeout for lock
// contention, and foreign key enforcement.
func (a *Adapter) Connect(ctx context.Context, config storage.Config) (storage.Connection, error) {
	if dir := filepath.Dir(config.FilePath); dir != "." && !strings.HasPrefix(config.FilePath, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storage.NewConnectionError(storage.SQLite, config.FilePath,
				fmt.Errorf("error creating database directory: %w", err))
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", config.FilePath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storage.NewConnectionError(storage.SQLite, config.FilePath,
			fmt.Errorf("error opening database file: %w", err))
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors and keeps in-memory databases on one handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storage.NewConnectionError(storage.SQLite, config.FilePath,
			fmt.Errorf("error pinging database: %w", err))
	}

	return &Connection{db: db, adapter: a, config: config}, nil
}

// Connection implements storage.Connection for SQLite.
type Connection struct {
	db      *sql.DB
	adapter *Adapter
	config  storage.Config
}

// Kind returns the engine kind.
func (c *Connection) Kind() storage.EngineKind {
	return storage.SQLite
}

// Ping checks if the database file is usable.
func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database handle.
func (c *Connection) Close() error {
	return c.db.Close()
}

// SchemaOperations returns the schema operator for SQLite.
func (c *Connection) SchemaOperations() storage.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for SQLite.
func (c *Connection) DataOperations() storage.DataOperator {
	return &DataOps{conn: c}
}

// Raw returns the underlying *sql.DB.
func (c *Connection) Raw() interface{} {
	return c.db
}
