package storage

import "strings"

// EngineKind is the canonical identifier for a storage engine supported by
// the application. Use these constants to look up capability information.
type EngineKind string

const (
	// SQLite is the embedded single-file relational engine.
	SQLite EngineKind = "sqlite"

	// PostgreSQL is the client-server relational engine, dialect A.
	PostgreSQL EngineKind = "postgres"

	// MySQL is the client-server relational engine, dialect B.
	MySQL EngineKind = "mysql"

	// MongoDB is the schemaless document store.
	MongoDB EngineKind = "mongodb"
)

// Capability describes what an engine supports in a way the provisioner and
// the data-access surface can consume uniformly.
type Capability struct {
	// Human-friendly product name, e.g. "PostgreSQL".
	Name string `json:"name"`

	// Canonical kind used across the codebase, e.g. "postgres".
	Kind EngineKind `json:"kind"`

	// Whether the engine runs embedded in-process against a local file
	// rather than over the network.
	Embedded bool `json:"embedded"`

	// Whether the engine enforces a fixed table schema. Schemaless engines
	// treat provisioning as a no-op.
	Schemaless bool `json:"schemaless"`

	// Whether the engine stores JSON values natively. Engines without
	// native JSON hold serialized JSON in a text column.
	NativeJSON bool `json:"nativeJSON"`

	// Default network port, zero for embedded engines.
	DefaultPort int `json:"defaultPort,omitempty"`

	// Common aliases (driver names, env labels) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical engine kind.
var All = map[EngineKind]Capability{
	SQLite: {
		Name:     "SQLite",
		Kind:     SQLite,
		Embedded: true,
		Aliases:  []string{"sqlite3", "file"},
	},
	PostgreSQL: {
		Name:        "PostgreSQL",
		Kind:        PostgreSQL,
		NativeJSON:  true,
		DefaultPort: 5432,
		Aliases:     []string{"postgresql", "pgsql", "pg"},
	},
	MySQL: {
		Name:        "MySQL",
		Kind:        MySQL,
		NativeJSON:  true,
		DefaultPort: 3306,
		Aliases:     []string{"mariadb"},
	},
	MongoDB: {
		Name:        "MongoDB",
		Kind:        MongoDB,
		Schemaless:  true,
		NativeJSON:  true,
		DefaultPort: 27017,
		Aliases:     []string{"mongo"},
	},
}

// Get returns the capability for an engine kind.
func Get(kind EngineKind) (Capability, bool) {
	c, ok := All[kind]
	return c, ok
}

// MustGet returns the capability for an engine kind and panics if the kind
// is unknown. Use only with the package constants.
func MustGet(kind EngineKind) Capability {
	c, ok := All[kind]
	if !ok {
		panic("storage: unknown engine kind: " + string(kind))
	}
	return c
}

// ParseKind resolves a name or alias to a canonical engine kind.
func ParseKind(name string) (EngineKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if _, ok := All[EngineKind(normalized)]; ok {
		return EngineKind(normalized), true
	}
	for kind, capability := range All {
		for _, alias := range capability.Aliases {
			if alias == normalized {
				return kind, true
			}
		}
	}
	return "", false
}
