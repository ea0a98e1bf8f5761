package storage

import "fmt"

// Config is the immutable, process-lifetime description of the selected
// engine and its connection parameters. It is created once at startup from
// operator-supplied configuration and read by every other component; exactly
// one Config is active at a time.
type Config struct {
	// Kind selects the engine.
	Kind EngineKind `json:"kind" yaml:"kind"`

	// FilePath locates the database file for the embedded engine.
	FilePath string `json:"filePath,omitempty" yaml:"filePath,omitempty"`

	// Host, Port, Database, Username and Password describe a client-server
	// engine. Port zero falls back to the engine's default port.
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// SSL enables transport encryption for client-server engines.
	SSL bool `json:"ssl,omitempty" yaml:"ssl,omitempty"`

	// URI, when set, is passed to the driver verbatim and takes precedence
	// over the discrete host fields. Supported by the client-server engines.
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// Validate checks that the configuration is complete for its engine kind.
func (c Config) Validate() error {
	capability, ok := Get(c.Kind)
	if !ok {
		return NewValidationError("kind", fmt.Sprintf("unknown engine kind %q", c.Kind))
	}

	if capability.Embedded {
		if c.FilePath == "" {
			return NewValidationError("filePath", "embedded engine requires a file path")
		}
		return nil
	}

	if c.URI != "" {
		return nil
	}
	if c.Host == "" {
		return NewValidationError("host", "client-server engine requires a host or a connection URI")
	}
	if c.Database == "" {
		return NewValidationError("database", "client-server engine requires a database name")
	}
	return nil
}

// EffectivePort returns the configured port, or the engine's default when
// the operator left it unset.
func (c Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	return MustGet(c.Kind).DefaultPort
}

// Address returns a human-readable endpoint for log and error messages.
// It never contains credentials.
func (c Config) Address() string {
	if MustGet(c.Kind).Embedded {
		return c.FilePath
	}
	if c.URI != "" {
		return "uri"
	}
	return fmt.Sprintf("%s:%d", c.Host, c.EffectivePort())
}
