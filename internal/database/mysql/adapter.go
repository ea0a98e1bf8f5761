// Package mysql implements the storage adapter for MySQL.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// Adapter implements the storage.EngineAdapter interface for MySQL.
type Adapter struct{}

// NewAdapter creates a new MySQL adapter.
func NewAdapter() storage.EngineAdapter {
	return &Adapter{}
}

// Kind returns the engine kind identifier.
func (a *Adapter) Kind() storage.EngineKind {
	return storage.MySQL
}

// Capabilities returns the capability metadata for MySQL.
func (a *Adapter) Capabilities() storage.Capability {
	return storage.MustGet(storage.MySQL)
}

// Connect establishes a connection to a MySQL database. parseTime makes the
// driver return DATETIME columns as time.Time, and clientFoundRows makes
// UPDATE report matched rows rather than changed rows, which the surface's
// NotFound semantics depend on.
func (a *Adapter) Connect(ctx context.Context, config storage.Config) (storage.Connection, error) {
	dsn := config.URI
	if dsn == "" {
		dsn = buildDSN(config)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, storage.NewConnectionError(storage.MySQL, config.Address(),
			fmt.Errorf("failed to open MySQL connection: %w", err))
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storage.NewConnectionError(storage.MySQL, config.Address(),
			fmt.Errorf("error pinging database: %w", err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Connection{db: db, adapter: a, config: config}, nil
}

// buildDSN renders the discrete config fields through the driver's own DSN
// formatter, which handles credential escaping.
func buildDSN(config storage.Config) string {
	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", config.Host, config.EffectivePort())
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	if config.SSL {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

// Connection implements storage.Connection for MySQL.
type Connection struct {
	db      *sql.DB
	adapter *Adapter
	config  storage.Config
}

// Kind returns the engine kind.
func (c *Connection) Kind() storage.EngineKind {
	return storage.MySQL
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Connection) Close() error {
	return c.db.Close()
}

// SchemaOperations returns the schema operator for MySQL.
func (c *Connection) SchemaOperations() storage.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for MySQL.
func (c *Connection) DataOperations() storage.DataOperator {
	return &DataOps{conn: c}
}

// Raw returns the underlying *sql.DB.
func (c *Connection) Raw() interface{} {
	return c.db
}
