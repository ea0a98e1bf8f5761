package mongodb

import (
	"context"
	"fmt"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// SchemaOps implements storage.SchemaOperator for MongoDB.
//
// MongoDB creates collections implicitly on first write, so provisioning
// never issues DDL and can never fail once the connection is healthy.
// Uniqueness declared in the table definition is enforced at write time
// by DataOps rather than through server-side indexes, which keeps the
// behavior independent of index build state on shared clusters.
type SchemaOps struct {
	conn *Connection
}

// EnsureTable validates the definition and returns without touching the
// server. Collections materialize on the first insert.
func (s *SchemaOps) EnsureTable(ctx context.Context, table *storage.TableDefinition) error {
	if err := table.Validate(); err != nil {
		return storage.NewProvisioningError(storage.MongoDB, table.Name, err)
	}
	return nil
}

// ListTables returns the names of all collections in the database.
func (s *SchemaOps) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.conn.db.ListCollectionNames(ctx, map[string]interface{}{})
	if err != nil {
		return nil, storage.WrapError(storage.MongoDB, "list_tables", "",
			fmt.Errorf("error listing collections: %w", err))
	}
	return names, nil
}
