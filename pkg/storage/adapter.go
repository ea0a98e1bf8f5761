package storage

import "context"

// EngineAdapter translates the logical schema and operations into one
// engine's native calls. Each engine kind has exactly one implementation,
// selected once at Manager construction time and never re-checked per call.
type EngineAdapter interface {
	// Kind returns the canonical engine kind identifier.
	Kind() EngineKind

	// Capabilities returns the capability metadata for this engine kind.
	Capabilities() Capability

	// Connect establishes the engine-specific connection handle. A failed
	// attempt must leave nothing behind; the Manager retries on next use.
	Connect(ctx context.Context, config Config) (Connection, error)
}

// Connection is an active, engine-specific connection handle. It is owned
// exclusively by the Manager: created lazily on first request, shared by all
// requests, released only at process shutdown.
type Connection interface {
	// Kind returns the engine kind of this connection.
	Kind() EngineKind

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the handle. The connection must not be used afterwards.
	Close() error

	// SchemaOperations returns the schema operator for this engine.
	SchemaOperations() SchemaOperator

	// DataOperations returns the data operator for this engine.
	DataOperations() DataOperator

	// Raw returns the underlying driver object. Type assertion is required;
	// use only for operations the standard interfaces do not cover.
	Raw() interface{}
}

// SchemaOperator materializes logical table definitions on one engine.
type SchemaOperator interface {
	// EnsureTable creates the table described by the definition if it does
	// not exist yet. The statement itself is idempotent: executing it
	// redundantly on an existing table must not fail. Schemaless engines
	// implement it as a no-op.
	EnsureTable(ctx context.Context, table *TableDefinition) error

	// ListTables returns the names of all tables or collections currently
	// present in the database.
	ListTables(ctx context.Context) ([]string, error)
}

// DataOperator executes the logical CRUD operations on one engine. Inputs
// are validated by the Manager; implementations translate native driver
// errors into the package taxonomy and normalize values on the way out.
type DataOperator interface {
	// Insert stores a new record and returns it with any engine-applied
	// values included. A broken uniqueness constraint surfaces as a
	// ConstraintError.
	Insert(ctx context.Context, table *TableDefinition, record Record) (Record, error)

	// FindOne returns the first record matching the predicate, or nil when
	// nothing matches.
	FindOne(ctx context.Context, table *TableDefinition, predicate Predicate) (Record, error)

	// FindMany returns all records matching the predicate, honoring the
	// ordering and limit in opts. A nil opts means no ordering and no limit.
	FindMany(ctx context.Context, table *TableDefinition, predicate Predicate, opts *FindOptions) ([]Record, error)

	// Update applies the patch to every record matching the predicate and
	// returns the match count. Zero matches is a NotFoundError.
	Update(ctx context.Context, table *TableDefinition, predicate Predicate, patch Record) (int64, error)

	// Delete removes every record matching the predicate and returns the
	// removal count. Zero matches is a NotFoundError.
	Delete(ctx context.Context, table *TableDefinition, predicate Predicate) (int64, error)

	// Upsert inserts the record if the predicate matches nothing and
	// updates the matching record otherwise, in one logical operation.
	Upsert(ctx context.Context, table *TableDefinition, predicate Predicate, record Record) (Record, error)
}
