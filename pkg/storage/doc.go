// Package storage provides the engine-agnostic data-access layer used by
// every domain service. It defines the logical schema and record types, the
// error taxonomy, the adapter contract that each engine implements, and the
// Manager that owns the process-wide connection and per-table provisioning
// state.
//
// Exactly one engine is active per process. The engine is selected once via
// Config at startup and never swapped at runtime; services call the Manager
// with a TableDefinition and logical records and never see engine-specific
// statements or driver error types.
package storage
