package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// SchemaOps implements storage.SchemaOperator for SQLite.
type SchemaOps struct {
	conn *Connection
}

// Logical-to-native column type mapping for SQLite. JSON has no native
// column type and is held as serialized text; booleans are 0/1 integers.
var columnTypes = map[storage.ColumnType]string{
	storage.TypeString:    "TEXT",
	storage.TypeText:      "TEXT",
	storage.TypeInt:       "INTEGER",
	storage.TypeFloat:     "REAL",
	storage.TypeBool:      "INTEGER",
	storage.TypeTimestamp: "DATETIME",
	storage.TypeJSON:      "TEXT",
}

// EnsureTable creates the table if it does not exist. The generated
// statement uses IF NOT EXISTS, so redundant execution by a racing caller
// is safe.
func (s *SchemaOps) EnsureTable(ctx context.Context, table *storage.TableDefinition) error {
	ddl, err := buildCreateTable(table)
	if err != nil {
		return err
	}

	if _, err := s.conn.db.ExecContext(ctx, ddl); err != nil {
		return storage.NewProvisioningError(storage.SQLite, table.Name, err)
	}
	return nil
}

// ListTables returns the names of all user tables in the database file.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.conn.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, storage.WrapError(storage.SQLite, "list_tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storage.WrapError(storage.SQLite, "list_tables", "", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func buildCreateTable(table *storage.TableDefinition) (string, error) {
	var ddl strings.Builder
	fmt.Fprintf(&ddl, "CREATE TABLE IF NOT EXISTS %s (", common.QuoteIdentifier(table.Name))

	parts := make([]string, 0, len(table.Columns)+len(table.UniqueConstraints))
	for _, column := range table.Columns {
		nativeType, ok := columnTypes[column.Type]
		if !ok {
			return "", storage.NewValidationError(column.Name, fmt.Sprintf("unknown column type %q", column.Type))
		}

		part := fmt.Sprintf("%s %s", common.QuoteIdentifier(column.Name), nativeType)
		if column.PrimaryKey {
			part += " PRIMARY KEY"
		} else if !column.Nullable {
			part += " NOT NULL"
		}
		parts = append(parts, part)
	}

	for _, constraint := range table.UniqueConstraints {
		quoted := make([]string, len(constraint.Columns))
		for i, name := range constraint.Columns {
			quoted[i] = common.QuoteIdentifier(name)
		}
		part := fmt.Sprintf("UNIQUE (%s)", strings.Join(quoted, ", "))
		if constraint.Name != "" {
			part = fmt.Sprintf("CONSTRAINT %s %s", common.QuoteIdentifier(constraint.Name), part)
		}
		parts = append(parts, part)
	}

	ddl.WriteString(strings.Join(parts, ", "))
	ddl.WriteString(")")
	return ddl.String(), nil
}
