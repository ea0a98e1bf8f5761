// Package postgres implements the storage adapter for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// Adapter implements the storage.EngineAdapter interface for PostgreSQL.
type Adapter struct{}

// NewAdapter creates a new PostgreSQL adapter.
func NewAdapter() storage.EngineAdapter {
	return &Adapter{}
}

// Kind returns the engine kind identifier.
func (a *Adapter) Kind() storage.EngineKind {
	return storage.PostgreSQL
}

// Capabilities returns the capability metadata for PostgreSQL.
func (a *Adapter) Capabilities() storage.Capability {
	return storage.MustGet(storage.PostgreSQL)
}

// Connect establishes a connection pool to a PostgreSQL database.
func (a *Adapter) Connect(ctx context.Context, config storage.Config) (storage.Connection, error) {
	connString := config.URI
	if connString == "" {
		connString = buildConnString(config)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, storage.NewConnectionError(storage.PostgreSQL, config.Address(),
			fmt.Errorf("error connecting to database: %w", err))
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storage.NewConnectionError(storage.PostgreSQL, config.Address(),
			fmt.Errorf("error pinging database: %w", err))
	}

	return &Connection{pool: pool, adapter: a, config: config}, nil
}

// buildConnString renders the discrete config fields as a pgx connection
// URI. Credentials go through URL escaping so a password may contain any
// character.
func buildConnString(config storage.Config) string {
	uri := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.Username, config.Password),
		Host:   fmt.Sprintf("%s:%d", config.Host, config.EffectivePort()),
		Path:   "/" + config.Database,
	}
	if config.SSL {
		uri.RawQuery = "sslmode=require"
	} else {
		uri.RawQuery = "sslmode=disable"
	}
	return uri.String()
}

// Connection implements storage.Connection for PostgreSQL.
type Connection struct {
	pool    *pgxpool.Pool
	adapter *Adapter
	config  storage.Config
}

// Kind returns the engine kind.
func (c *Connection) Kind() storage.EngineKind {
	return storage.PostgreSQL
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection pool.
func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

// SchemaOperations returns the schema operator for PostgreSQL.
func (c *Connection) SchemaOperations() storage.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for PostgreSQL.
func (c *Connection) DataOperations() storage.DataOperator {
	return &DataOps{conn: c}
}

// Raw returns the underlying pgxpool.Pool.
func (c *Connection) Raw() interface{} {
	return c.pool
}
