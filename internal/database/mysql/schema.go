package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// SchemaOps implements storage.SchemaOperator for MySQL.
type SchemaOps struct {
	conn *Connection
}

// Logical-to-native column type mapping for MySQL. Strings map to
// VARCHAR(255) so they stay usable in unique keys (InnoDB cannot index
// unbounded TEXT without a prefix length); JSON uses the native JSON type.
var columnTypes = map[storage.ColumnType]string{
	storage.TypeString:    "VARCHAR(255)",
	storage.TypeText:      "TEXT",
	storage.TypeInt:       "BIGINT",
	storage.TypeFloat:     "DOUBLE",
	storage.TypeBool:      "TINYINT(1)",
	storage.TypeTimestamp: "DATETIME(6)",
	storage.TypeJSON:      "JSON",
}

// EnsureTable creates the table if it does not exist via IF NOT EXISTS.
func (s *SchemaOps) EnsureTable(ctx context.Context, table *storage.TableDefinition) error {
	ddl, err := buildCreateTable(table)
	if err != nil {
		return err
	}

	if _, err := s.conn.db.ExecContext(ctx, ddl); err != nil {
		// ER_TABLE_EXISTS_ERROR from a racing creator means the table is
		// there, which is what the caller asked for.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1050 {
			return nil
		}
		return storage.NewProvisioningError(storage.MySQL, table.Name, err)
	}
	return nil
}

// ListTables returns the names of all tables in the current database.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.conn.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, storage.WrapError(storage.MySQL, "list_tables", "", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storage.WrapError(storage.MySQL, "list_tables", "", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func buildCreateTable(table *storage.TableDefinition) (string, error) {
	var ddl strings.Builder
	fmt.Fprintf(&ddl, "CREATE TABLE IF NOT EXISTS %s (", common.QuoteIdentifierBacktick(table.Name))

	parts := make([]string, 0, len(table.Columns)+len(table.UniqueConstraints))
	for _, column := range table.Columns {
		nativeType, ok := columnTypes[column.Type]
		if !ok {
			return "", storage.NewValidationError(column.Name, fmt.Sprintf("unknown column type %q", column.Type))
		}

		part := fmt.Sprintf("%s %s", common.QuoteIdentifierBacktick(column.Name), nativeType)
		if column.PrimaryKey {
			part += " PRIMARY KEY"
		} else if !column.Nullable {
			part += " NOT NULL"
		}
		parts = append(parts, part)
	}

	for i, constraint := range table.UniqueConstraints {
		quoted := make([]string, len(constraint.Columns))
		for j, name := range constraint.Columns {
			quoted[j] = common.QuoteIdentifierBacktick(name)
		}
		keyName := constraint.Name
		if keyName == "" {
			keyName = fmt.Sprintf("%s_unique_%d", table.Name, i)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE KEY %s (%s)",
			common.QuoteIdentifierBacktick(keyName), strings.Join(quoted, ", ")))
	}

	ddl.WriteString(strings.Join(parts, ", "))
	ddl.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	return ddl.String(), nil
}
