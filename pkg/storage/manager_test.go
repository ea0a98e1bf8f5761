package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter counts connection attempts and lets tests inject failures.
type fakeAdapter struct {
	mu           sync.Mutex
	connectErr   error
	connectCount int
	conn         *fakeConnection
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{conn: newFakeConnection()}
}

func (a *fakeAdapter) Kind() EngineKind { return SQLite }

func (a *fakeAdapter) Capabilities() Capability { return MustGet(SQLite) }

func (a *fakeAdapter) Connect(ctx context.Context, config Config) (Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectCount++
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.conn, nil
}

func (a *fakeAdapter) setConnectErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectErr = err
}

func (a *fakeAdapter) connects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectCount
}

type fakeConnection struct {
	schema *fakeSchema
	data   *fakeData
	closed bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{schema: &fakeSchema{}, data: &fakeData{}}
}

func (c *fakeConnection) Kind() EngineKind { return SQLite }

func (c *fakeConnection) Ping(ctx context.Context) error { return nil }

func (c *fakeConnection) Close() error { c.closed = true; return nil }

func (c *fakeConnection) SchemaOperations() SchemaOperator { return c.schema }

func (c *fakeConnection) DataOperations() DataOperator { return c.data }

func (c *fakeConnection) Raw() interface{} { return nil }

type fakeSchema struct {
	mu          sync.Mutex
	ensureCount int
	ensureErr   error
}

func (s *fakeSchema) EnsureTable(ctx context.Context, table *TableDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureCount++
	return s.ensureErr
}

func (s *fakeSchema) ListTables(ctx context.Context) ([]string, error) { return nil, nil }

func (s *fakeSchema) ensures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCount
}

type fakeData struct {
	mu          sync.Mutex
	findResult  []Record
	updateCalls int
}

func (d *fakeData) Insert(ctx context.Context, table *TableDefinition, record Record) (Record, error) {
	return record.Clone(), nil
}

func (d *fakeData) FindOne(ctx context.Context, table *TableDefinition, predicate Predicate) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.findResult) == 0 {
		return nil, nil
	}
	return d.findResult[0], nil
}

func (d *fakeData) FindMany(ctx context.Context, table *TableDefinition, predicate Predicate, opts *FindOptions) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findResult, nil
}

func (d *fakeData) Update(ctx context.Context, table *TableDefinition, predicate Predicate, patch Record) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateCalls++
	return 1, nil
}

func (d *fakeData) Delete(ctx context.Context, table *TableDefinition, predicate Predicate) (int64, error) {
	return 1, nil
}

func (d *fakeData) Upsert(ctx context.Context, table *TableDefinition, predicate Predicate, record Record) (Record, error) {
	return record.Clone(), nil
}

func testTable() *TableDefinition {
	return &TableDefinition{
		Name: "items",
		Columns: []ColumnDef{
			{Name: "id", Type: TypeString, PrimaryKey: true},
			{Name: "name", Type: TypeString},
			{Name: "count", Type: TypeInt, Nullable: true},
		},
		UniqueConstraints: []UniqueConstraint{
			{Name: "items_name_key", Columns: []string{"name"}},
		},
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeAdapter) {
	t.Helper()
	adapter := newFakeAdapter()
	registry := NewRegistry()
	registry.Register(adapter)

	manager := NewManager(WithRegistry(registry))
	return manager, adapter
}

func TestManagerNotConfigured(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Config()
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = manager.Connection(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = manager.Insert(ctx, testTable(), Record{"id": "a", "name": "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestManagerConfigureOnce(t *testing.T) {
	manager, _ := newTestManager(t)

	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))

	err := manager.Configure(Config{Kind: SQLite, FilePath: "other.db"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestManagerConfigureUnknownAdapter(t *testing.T) {
	manager := NewManager(WithRegistry(NewRegistry()))

	err := manager.Configure(Config{Kind: SQLite, FilePath: "test.db"})
	assert.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestManagerLazyConnection(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))
	assert.Equal(t, 0, adapter.connects(), "configure must not connect")

	_, err := manager.FindOne(ctx, testTable(), Predicate{"id": "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.connects())

	_, err = manager.FindOne(ctx, testTable(), Predicate{"id": "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.connects(), "connection must be reused")
}

func TestManagerFailedConnectionNotCached(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))
	adapter.setConnectErr(NewConnectionError(SQLite, "test.db", errors.New("refused")))

	_, err := manager.Connection(ctx)
	require.ErrorIs(t, err, ErrConnectionFailed)

	adapter.setConnectErr(nil)
	conn, err := manager.Connection(ctx)
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, 2, adapter.connects())
}

func TestEnsureProvisionedConcurrent(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))

	table := testTable()
	var wg sync.WaitGroup
	errs := make([]error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = manager.EnsureProvisioned(ctx, table)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, adapter.conn.schema.ensures(), "DDL must run exactly once")
}

func TestEnsureProvisionedFailureSticky(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))

	adapter.conn.schema.ensureErr = errors.New("disk full")
	table := testTable()

	err := manager.EnsureProvisioned(ctx, table)
	require.ErrorIs(t, err, ErrProvisioningFailed)

	// The failure stays even after the underlying cause clears.
	adapter.conn.schema.ensureErr = nil
	err = manager.EnsureProvisioned(ctx, table)
	require.ErrorIs(t, err, ErrProvisioningFailed)
	assert.Equal(t, 1, adapter.conn.schema.ensures(), "failed DDL must not be retried")

	// Data operations on the table report the provisioning failure too.
	_, err = manager.FindOne(ctx, table, Predicate{"id": "a"})
	assert.ErrorIs(t, err, ErrProvisioningFailed)
}

func TestEnsureProvisionedConnectionFailureRetryable(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))

	adapter.setConnectErr(NewConnectionError(SQLite, "test.db", errors.New("refused")))
	table := testTable()

	err := manager.EnsureProvisioned(ctx, table)
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, 0, adapter.conn.schema.ensures())

	// Once the engine is reachable the same table provisions normally.
	adapter.setConnectErr(nil)
	require.NoError(t, manager.EnsureProvisioned(ctx, table))
	assert.Equal(t, 1, adapter.conn.schema.ensures())
}

func TestManagerValidation(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))
	table := testTable()

	t.Run("unknown column in record", func(t *testing.T) {
		_, err := manager.Insert(ctx, table, Record{"id": "a", "bogus": 1})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("nil in non-nullable column", func(t *testing.T) {
		_, err := manager.Insert(ctx, table, Record{"id": "a", "name": nil})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown column in predicate", func(t *testing.T) {
		_, err := manager.FindOne(ctx, table, Predicate{"bogus": 1})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty predicate on update", func(t *testing.T) {
		_, err := manager.Update(ctx, table, Predicate{}, Record{"name": "x"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty predicate on delete", func(t *testing.T) {
		_, err := manager.Delete(ctx, table, Predicate{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown order column", func(t *testing.T) {
		_, err := manager.FindMany(ctx, table, Predicate{}, &FindOptions{
			OrderBy: []Order{{Column: "bogus"}},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestManagerEmptyPatchUpdate(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))
	table := testTable()

	t.Run("matching predicate succeeds without writing", func(t *testing.T) {
		adapter.conn.data.findResult = []Record{{"id": "a", "name": "x"}}

		count, err := manager.Update(ctx, table, Predicate{"id": "a"}, Record{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, 0, adapter.conn.data.updateCalls)
	})

	t.Run("no match is not found", func(t *testing.T) {
		adapter.conn.data.findResult = nil

		_, err := manager.Update(ctx, table, Predicate{"id": "missing"}, Record{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestManagerUpsertPredicate(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))
	table := testTable()

	t.Run("primary key predicate", func(t *testing.T) {
		_, err := manager.Upsert(ctx, table, Predicate{"id": "a"}, Record{"name": "x"})
		assert.NoError(t, err)
	})

	t.Run("unique constraint predicate", func(t *testing.T) {
		_, err := manager.Upsert(ctx, table, Predicate{"name": "x"}, Record{"id": "a"})
		assert.NoError(t, err)
	})

	t.Run("non-unique predicate rejected", func(t *testing.T) {
		_, err := manager.Upsert(ctx, table, Predicate{"count": int64(1)}, Record{"id": "a", "name": "x"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestManagerClose(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, manager.Configure(Config{Kind: SQLite, FilePath: "test.db"}))

	// Close with no connection is a no-op.
	require.NoError(t, manager.Close())

	_, err := manager.Connection(ctx)
	require.NoError(t, err)
	require.NoError(t, manager.Close())
	assert.True(t, adapter.conn.closed)
}

func TestManagerTestConfig(t *testing.T) {
	manager, adapter := newTestManager(t)
	ctx := context.Background()

	// The probe resolves the adapter from the manager's own registry, not
	// the global one.
	result := manager.TestConfig(ctx, Config{Kind: SQLite, FilePath: "probe.db"})
	assert.True(t, result.Success)
	assert.Equal(t, 1, adapter.connects())
	assert.True(t, adapter.conn.closed)

	// Probing never configures the manager.
	_, err := manager.FindOne(ctx, testTable(), Predicate{"id": "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	t.Run("connect failure reported", func(t *testing.T) {
		adapter.setConnectErr(errors.New("connection refused"))
		result := manager.TestConfig(ctx, Config{Kind: SQLite, FilePath: "probe.db"})
		assert.False(t, result.Success)
	})

	t.Run("invalid config reported", func(t *testing.T) {
		result := manager.TestConfig(ctx, Config{Kind: SQLite})
		assert.False(t, result.Success)
	})
}
