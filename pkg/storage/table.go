package storage

import "fmt"

// ColumnType enumerates the logical column types the data-access surface
// understands. Each adapter declares an explicit mapping from these to its
// native column types.
type ColumnType string

const (
	// TypeString is a short indexable string, usable in unique constraints.
	TypeString ColumnType = "string"

	// TypeText is unbounded text, not usable in unique constraints on
	// engines that cannot index unbounded columns.
	TypeText ColumnType = "text"

	// TypeInt is a 64-bit integer.
	TypeInt ColumnType = "int"

	// TypeFloat is a 64-bit float.
	TypeFloat ColumnType = "float"

	// TypeBool is a boolean. Engines storing booleans as 0/1 normalize
	// them back on read.
	TypeBool ColumnType = "bool"

	// TypeTimestamp is a point in time with at least second precision.
	TypeTimestamp ColumnType = "timestamp"

	// TypeJSON is an opaque JSON value, stored natively where the engine
	// supports it and as serialized text otherwise.
	TypeJSON ColumnType = "json"
)

// ColumnDef describes one typed column of a logical table.
type ColumnDef struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable,omitempty"`

	// PrimaryKey marks the column as the table's primary key. At most one
	// column may carry it.
	PrimaryKey bool `json:"primaryKey,omitempty"`
}

// UniqueConstraint names a set of columns whose combined values must be
// unique across the table.
type UniqueConstraint struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// TableDefinition is the single source of truth for a logical table: its
// name, typed columns, and uniqueness constraints. The Schema Provisioner
// turns it into engine-specific DDL, or treats it as already satisfied for
// schemaless engines.
type TableDefinition struct {
	Name              string             `json:"name"`
	Columns           []ColumnDef        `json:"columns"`
	UniqueConstraints []UniqueConstraint `json:"uniqueConstraints,omitempty"`
}

// Column returns the definition of a named column.
func (t *TableDefinition) Column(name string) (ColumnDef, bool) {
	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return ColumnDef{}, false
}

// PrimaryKey returns the primary key column, if the table declares one.
func (t *TableDefinition) PrimaryKey() (ColumnDef, bool) {
	for _, column := range t.Columns {
		if column.PrimaryKey {
			return column, true
		}
	}
	return ColumnDef{}, false
}

// Validate checks the definition for internal consistency.
func (t *TableDefinition) Validate() error {
	if t.Name == "" {
		return NewValidationError("name", "table name cannot be empty")
	}
	if len(t.Columns) == 0 {
		return NewValidationError("columns", "table must declare at least one column")
	}

	seen := make(map[string]struct{}, len(t.Columns))
	primaryKeys := 0
	for _, column := range t.Columns {
		if column.Name == "" {
			return NewValidationError("columns", "column name cannot be empty")
		}
		if _, dup := seen[column.Name]; dup {
			return NewValidationError("columns", fmt.Sprintf("duplicate column %q", column.Name))
		}
		seen[column.Name] = struct{}{}

		if _, known := validColumnTypes[column.Type]; !known {
			return NewValidationError(column.Name, fmt.Sprintf("unknown column type %q", column.Type))
		}
		if column.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys > 1 {
		return NewValidationError("columns", "at most one column may be the primary key")
	}

	for _, constraint := range t.UniqueConstraints {
		if len(constraint.Columns) == 0 {
			return NewValidationError(constraint.Name, "unique constraint must name at least one column")
		}
		for _, name := range constraint.Columns {
			column, ok := t.Column(name)
			if !ok {
				return NewValidationError(constraint.Name, fmt.Sprintf("unique constraint references unknown column %q", name))
			}
			if column.Type == TypeText || column.Type == TypeJSON {
				return NewValidationError(constraint.Name, fmt.Sprintf("column %q of type %q cannot be part of a unique constraint", name, column.Type))
			}
		}
	}

	return nil
}

var validColumnTypes = map[ColumnType]struct{}{
	TypeString:    {},
	TypeText:      {},
	TypeInt:       {},
	TypeFloat:     {},
	TypeBool:      {},
	TypeTimestamp: {},
	TypeJSON:      {},
}
