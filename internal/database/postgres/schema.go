package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// SchemaOps implements storage.SchemaOperator for PostgreSQL.
type SchemaOps struct {
	conn *Connection
}

// Logical-to-native column type mapping for PostgreSQL. JSON columns use
// native JSONB.
var columnTypes = map[storage.ColumnType]string{
	storage.TypeString:    "TEXT",
	storage.TypeText:      "TEXT",
	storage.TypeInt:       "BIGINT",
	storage.TypeFloat:     "DOUBLE PRECISION",
	storage.TypeBool:      "BOOLEAN",
	storage.TypeTimestamp: "TIMESTAMPTZ",
	storage.TypeJSON:      "JSONB",
}

// EnsureTable creates the table if it does not exist via IF NOT EXISTS, so
// a racing second caller executes a harmless redundant statement.
func (s *SchemaOps) EnsureTable(ctx context.Context, table *storage.TableDefinition) error {
	ddl, err := buildCreateTable(table)
	if err != nil {
		return err
	}

	if _, err := s.conn.pool.Exec(ctx, ddl); err != nil {
		// Two IF NOT EXISTS statements can still race inside the server;
		// the loser sees a duplicate object error for a table that now
		// exists, which is the outcome the caller asked for.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "42P07") {
			return nil
		}
		return storage.NewProvisioningError(storage.PostgreSQL, table.Name, err)
	}
	return nil
}

// ListTables returns the names of all tables in the public schema.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.conn.pool.Query(ctx,
		"SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename")
	if err != nil {
		return nil, storage.WrapError(storage.PostgreSQL, "list_tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storage.WrapError(storage.PostgreSQL, "list_tables", "", err)
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
