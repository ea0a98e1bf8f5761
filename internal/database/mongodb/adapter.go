// Package mongodb implements the storage adapter for MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// Adapter implements the storage.EngineAdapter interface for MongoDB.
type Adapter struct{}

// NewAdapter creates a new MongoDB adapter.
func NewAdapter() storage.EngineAdapter {
	return &Adapter{}
}

// Kind returns the engine kind identifier.
func (a *Adapter) Kind() storage.EngineKind {
	return storage.MongoDB
}

// Capabilities returns the capability metadata for MongoDB.
func (a *Adapter) Capabilities() storage.Capability {
	return storage.MustGet(storage.MongoDB)
}

// Connect establishes a connection to a MongoDB database.
func (a *Adapter) Connect(ctx context.Context, config storage.Config) (storage.Connection, error) {
	connString := config.URI
	if connString == "" {
		connString = buildConnString(config)
	}

	clientOptions := options.Client().ApplyURI(connString)

	// In v2, Connect handles both creation and connection
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, storage.NewConnectionError(storage.MongoDB, config.Address(),
			fmt.Errorf("error connecting to database: %w", err))
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, storage.NewConnectionError(storage.MongoDB, config.Address(),
			fmt.Errorf("error pinging database: %w", err))
	}

	return &Connection{
		client:  client,
		db:      client.Database(config.Database),
		adapter: a,
		config:  config,
	}, nil
}

// buildConnString renders the discrete config fields as a MongoDB
// connection URI. Credentials go through URL escaping so a password may
// contain any character.
func buildConnString(config storage.Config) string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", config.Host, config.EffectivePort()),
		Path:   "/" + config.Database,
	}
	if config.Username != "" {
		uri.User = url.UserPassword(config.Username, config.Password)
		uri.RawQuery = "authSource=admin"
	} else {
		uri.RawQuery = "directConnection=true"
	}
	if config.SSL {
		uri.RawQuery += "&tls=true"
	}
	return uri.String()
}

// Connection implements storage.Connection for MongoDB.
type Connection struct {
	client  *mongo.Client
	db      *mongo.Database
	adapter *Adapter
	config  storage.Config
}

// Kind returns the engine kind.
func (c *Connection) Kind() storage.EngineKind {
	return storage.MongoDB
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Connection) Close() error {
	return c.client.Disconnect(context.Background())
}

// SchemaOperations returns the schema operator for MongoDB.
func (c *Connection) SchemaOperations() storage.SchemaOperator {
	return &SchemaOps{conn: c}
}

// DataOperations returns the data operator for MongoDB.
func (c *Connection) DataOperations() storage.DataOperator {
	return &DataOps{conn: c}
}

// Raw returns the underlying *mongo.Database.
func (c *Connection) Raw() interface{} {
	return c.db
}
