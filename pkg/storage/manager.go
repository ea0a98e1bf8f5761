package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erenbertr/op3-sub001/pkg/logger"
)

// Manager owns the process-wide connection handle and the per-table
// provisioning state, and exposes the logical data-access surface. Domain
// services hold a single shared Manager and call it concurrently.
type Manager struct {
	registry *Registry
	log      *logger.Logger

	mu      sync.Mutex
	config  *Config
	adapter EngineAdapter
	conn    Connection

	provMu     sync.Mutex
	provisions map[string]*provisionState
}

// provisionState guards one table's first-touch provisioning. The result is
// recorded so concurrent racers observe exactly one DDL execution, and a DDL
// failure stays until process restart.
type provisionState struct {
	mu   sync.Mutex
	done bool
	err  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry makes the Manager resolve adapters from the given registry
// instead of the global one.
func WithRegistry(registry *Registry) Option {
	return func(m *Manager) {
		m.registry = registry
	}
}

// WithLogger attaches a logger to the Manager.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates an unconfigured Manager. Every operation fails with
// ErrNotConfigured until Configure is called.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		registry:   globalRegistry,
		provisions: make(map[string]*provisionState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure installs the active configuration. It may be called exactly once
// per process; the engine is selected here and never re-checked per call.
func (m *Manager) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	adapter, err := m.registry.Get(config.Kind)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config != nil {
		return NewValidationError("kind", "storage is already configured; the engine cannot be swapped at runtime")
	}

	m.config = &config
	m.adapter = adapter
	m.infof("Storage configured: engine=%s endpoint=%s", config.Kind, config.Address())
	return nil
}

// Config returns the active configuration, or ErrNotConfigured when startup
// configuration was never supplied.
func (m *Manager) Config() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return Config{}, ErrNotConfigured
	}
	return *m.config, nil
}

// Connection returns the live connection handle, creating it on first call.
// A failed attempt is not cached; the next call retries. Connection failures
// are not retried internally, callers decide retry policy.
func (m *Manager) Connection(ctx context.Context) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return nil, ErrNotConfigured
	}
	if m.conn != nil {
		return m.conn, nil
	}

	conn, err := m.adapter.Connect(ctx, *m.config)
	if err != nil {
		m.errorf("Failed to connect to %s at %s: %v", m.config.Kind, m.config.Address(), err)
		if errors.Is(err, ErrConnectionFailed) {
			return nil, err
		}
		return nil, NewConnectionError(m.config.Kind, m.config.Address(), err)
	}

	m.conn = conn
	m.infof("Connected to %s at %s", m.config.Kind, m.config.Address())
	return conn, nil
}

// Close releases the connection handle. Intended for process shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// EnsureProvisioned guarantees the table's native structure exists before
// first use. It is idempotent and safe under concurrent first-touch: the DDL
// runs at most once per process, racers wait for the outcome. A DDL failure
// is recorded and replayed to all subsequent callers until process restart,
// so they can report "storage not ready" rather than "record not found".
func (m *Manager) EnsureProvisioned(ctx context.Context, table *TableDefinition) error {
	if err := table.Validate(); err != nil {
		return err
	}

	m.provMu.Lock()
	state, exists := m.provisions[table.Name]
	if !exists {
		state = &provisionState{}
		m.provisions[table.Name] = state
	}
	m.provMu.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.done {
		return state.err
	}

	conn, err := m.Connection(ctx)
	if err != nil {
		// Connection failures stay retryable; only a DDL failure is final.
		return err
	}

	if err := conn.SchemaOperations().EnsureTable(ctx, table); err != nil {
		kind := conn.Kind()
		provErr := err
		if !errors.Is(err, ErrProvisioningFailed) {
			provErr = NewProvisioningError(kind, table.Name, err)
		}
		state.done = true
		state.err = provErr
		m.errorf("Failed to provision table %q on %s: %v", table.Name, kind, err)
		return provErr
	}

	state.done = true
	m.infof("Table %q provisioned on %s", table.Name, conn.Kind())
	return nil
}

// Insert stores a new record and returns it normalized.
func (m *Manager) Insert(ctx context.Context, table *TableDefinition, record Record) (Record, error) {
	if err := ValidateRecord(table, record); err != nil {
		return nil, err
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return nil, err
	}
	return conn.DataOperations().Insert(ctx, table, record)
}

// FindOne returns the first record matching the predicate, or nil when
// nothing matches.
func (m *Manager) FindOne(ctx context.Context, table *TableDefinition, predicate Predicate) (Record, error) {
	if err := ValidatePredicate(table, predicate); err != nil {
		return nil, err
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return nil, err
	}
	return conn.DataOperations().FindOne(ctx, table, predicate)
}

// FindMany returns all records matching the predicate.
func (m *Manager) FindMany(ctx context.Context, table *TableDefinition, predicate Predicate, opts *FindOptions) ([]Record, error) {
	if err := ValidatePredicate(table, predicate); err != nil {
		return nil, err
	}
	if opts != nil {
		for _, order := range opts.OrderBy {
			if _, ok := table.Column(order.Column); !ok {
				return nil, NewValidationError(order.Column, fmt.Sprintf("table %q has no such column", table.Name))
			}
		}
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return nil, err
	}
	return conn.DataOperations().FindMany(ctx, table, predicate, opts)
}

// Update applies a partial patch to every record matching the predicate.
// Zero matches is a NotFoundError; an empty patch succeeds idempotently
// when the predicate matches.
func (m *Manager) Update(ctx context.Context, table *TableDefinition, predicate Predicate, patch Record) (int64, error) {
	if err := ValidatePredicate(table, predicate); err != nil {
		return 0, err
	}
	if len(predicate) == 0 {
		return 0, NewValidationError("", "update requires a non-empty predicate")
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return 0, err
	}

	if len(patch) == 0 {
		matches, err := conn.DataOperations().FindMany(ctx, table, predicate, nil)
		if err != nil {
			return 0, err
		}
		if len(matches) == 0 {
			return 0, NewNotFoundError(table.Name)
		}
		return int64(len(matches)), nil
	}

	if err := validatePatch(table, patch); err != nil {
		return 0, err
	}
	return conn.DataOperations().Update(ctx, table, predicate, patch)
}

// Delete removes every record matching the predicate. Zero matches is a
// NotFoundError.
func (m *Manager) Delete(ctx context.Context, table *TableDefinition, predicate Predicate) (int64, error) {
	if err := ValidatePredicate(table, predicate); err != nil {
		return 0, err
	}
	if len(predicate) == 0 {
		return 0, NewValidationError("", "delete requires a non-empty predicate")
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return 0, err
	}
	return conn.DataOperations().Delete(ctx, table, predicate)
}

// Upsert inserts the record when the predicate matches nothing and updates
// the matching record otherwise. The predicate must cover the primary key or
// one of the table's unique constraints, which lets every engine execute the
// operation as a single atomic statement.
func (m *Manager) Upsert(ctx context.Context, table *TableDefinition, predicate Predicate, record Record) (Record, error) {
	if err := ValidateRecord(table, record); err != nil {
		return nil, err
	}
	if err := ValidatePredicate(table, predicate); err != nil {
		return nil, err
	}
	if !predicateCoversUniqueSet(table, predicate) {
		return nil, NewValidationError("", "upsert predicate must cover the primary key or a unique constraint")
	}
	conn, err := m.ready(ctx, table)
	if err != nil {
		return nil, err
	}
	return conn.DataOperations().Upsert(ctx, table, predicate, record)
}

// ready provisions the table and hands back the shared connection. Every
// data operation routes through it, so a cold-started service self-heals
// its schema on first real use.
func (m *Manager) ready(ctx context.Context, table *TableDefinition) (Connection, error) {
	if err := m.EnsureProvisioned(ctx, table); err != nil {
		return nil, err
	}
	return m.Connection(ctx)
}

func validatePatch(table *TableDefinition, patch Record) error {
	for key, value := range patch {
		column, ok := table.Column(key)
		if !ok {
			return NewValidationError(key, fmt.Sprintf("table %q has no such column", table.Name))
		}
		if value == nil && !column.Nullable {
			return NewValidationError(key, "column is not nullable")
		}
	}
	return nil
}

// predicateCoversUniqueSet reports whether the predicate's columns are
// exactly the primary key or one declared unique constraint.
func predicateCoversUniqueSet(table *TableDefinition, predicate Predicate) bool {
	if pk, ok := table.PrimaryKey(); ok && len(predicate) == 1 {
		if _, present := predicate[pk.Name]; present {
			return true
		}
	}
	for _, constraint := range table.UniqueConstraints {
		if len(constraint.Columns) != len(predicate) {
			continue
		}
		covered := true
		for _, column := range constraint.Columns {
			if _, present := predicate[column]; !present {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

func (m *Manager) infof(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Infof(format, args...)
	}
}

func (m *Manager) errorf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Errorf(format, args...)
	}
}

// TestResult reports the outcome of a read-only configuration probe.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestConfig attempts to connect with the given configuration, pings the
// engine, and closes the connection again. It never mutates the active
// configuration and is safe to call while a Manager is serving traffic.
func TestConfig(ctx context.Context, config Config) TestResult {
	return testConfig(ctx, globalRegistry, config)
}

// TestConfig probes the configuration against the Manager's own registry.
func (m *Manager) TestConfig(ctx context.Context, config Config) TestResult {
	return testConfig(ctx, m.registry, config)
}

func testConfig(ctx context.Context, registry *Registry, config Config) TestResult {
	if err := config.Validate(); err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}

	adapter, err := registry.Get(config.Kind)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}

	conn, err := adapter.Connect(ctx, config)
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("connected but ping failed: %v", err)}
	}

	return TestResult{Success: true, Message: fmt.Sprintf("successfully connected to %s", adapter.Capabilities().Name)}
}
