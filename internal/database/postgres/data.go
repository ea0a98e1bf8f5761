package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// DataOps implements storage.DataOperator for PostgreSQL.
type DataOps struct {
	conn *Connection
}

// Insert stores a new record and returns the stored row via RETURNING.
func (d *DataOps) Insert(ctx context.Context, table *storage.TableDefinition, record storage.Record) (storage.Record, error) {
	encoded, err := common.EncodeRecord(table, record)
	if err != nil {
		return nil, err
	}

	columns := common.SortedKeys(encoded)
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = common.QuoteIdentifier(column)
		values[i] = encoded[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		common.QuoteIdentifier(table.Name),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		returningList(table))

	rows, err := d.conn.pool.Query(ctx, query, values...)
	if err != nil {
		return nil, translateError(table.Name, "insert", err)
	}
	records, err := scanRecords(table, rows)
	if err != nil {
		return nil, translateError(table.Name, "insert", err)
	}
	if len(records) == 0 {
		return storage.NormalizeRecord(table, record)
	}
	return records[0], nil
}

// FindOne returns the first record matching the predicate, or nil when
// nothing matches.
func (d *DataOps) FindOne(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate) (storage.Record, error) {
	records, err := d.selectRecords(ctx, table, predicate, &storage.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FindMany returns all records matching the predicate.
func (d *DataOps) FindMany(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, opts *storage.FindOptions) ([]storage.Record, error) {
	return d.selectRecords(ctx, table, predicate, opts)
}

// Update applies the patch to every matching record.
func (d *DataOps) Update(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, patch storage.Record) (int64, error) {
	encoded, err := common.EncodeRecord(table, patch)
	if err != nil {
		return 0, err
	}

	setColumns := common.SortedKeys(encoded)
	setParts := make([]string, len(setColumns))
	values := make([]interface{}, 0, len(setColumns)+len(predicate))
	for i, column := range setColumns {
		setParts[i] = fmt.Sprintf("%s = $%d", common.QuoteIdentifier(column), i+1)
		values = append(values, encoded[column])
	}

	whereClause, whereValues, err := buildWhere(table, predicate, len(setColumns))
	if err != nil {
		return 0, err
	}
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s%s",
		common.QuoteIdentifier(table.Name),
		strings.Join(setParts, ", "),
		whereClause)

	tag, err := d.conn.pool.Exec(ctx, query, values...)
	if err != nil {
		return 0, translateError(table.Name, "update", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return tag.RowsAffected(), nil
}

// Delete removes every matching record.
func (d *DataOps) Delete(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate) (int64, error) {
	whereClause, values, err := buildWhere(table, predicate, 0)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s%s", common.QuoteIdentifier(table.Name), whereClause)

	tag, err := d.conn.pool.Exec(ctx, query, values...)
	if err != nil {
		return 0, translateError(table.Name, "delete", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return tag.RowsAffected(), nil
}

// Upsert inserts or updates in one statement via ON CONFLICT.
func (d *DataOps) Upsert(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, record storage.Record) (storage.Record, error) {
	merged := common.MergePredicate(record, predicate)
	encoded, err := common.EncodeRecord(table, merged)
	if err != nil {
		return nil, err
	}

	columns := common.SortedKeys(encoded)
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = common.QuoteIdentifier(column)
		values[i] = encoded[column]
	}

	conflictColumns := common.SortedKeys(map[string]interface{}(predicate))
	quotedConflict := make([]string, len(conflictColumns))
	for i, column := range conflictColumns {
		quotedConflict[i] = common.QuoteIdentifier(column)
	}

	updateParts := make([]string, 0, len(columns))
	for _, column := range columns {
		if _, isConflictKey := predicate[column]; isConflictKey {
			continue
		}
		updateParts = append(updateParts, fmt.Sprintf("%s = EXCLUDED.%s",
			common.QuoteIdentifier(column), common.QuoteIdentifier(column)))
	}

	conflictAction := "DO NOTHING"
	if len(updateParts) > 0 {
		conflictAction = "DO UPDATE SET " + strings.Join(updateParts, ", ")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		common.QuoteIdentifier(table.Name),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(quotedConflict, ", "),
		conflictAction)

	if _, err := d.conn.pool.Exec(ctx, query, values...); err != nil {
		return nil, translateError(table.Name, "upsert", err)
	}

	return d.FindOne(ctx, table, predicate)
}

func (d *DataOps) selectRecords(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, opts *storage.FindOptions) ([]storage.Record, error) {
	whereClause, values, err := buildWhere(table, predicate, 0)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s",
		returningList(table),
		common.QuoteIdentifier(table.Name),
		whereClause)

	if opts != nil {
		if len(opts.OrderBy) > 0 {
			orderParts := make([]string, len(opts.OrderBy))
			for i, order := range opts.OrderBy {
				direction := "ASC"
				if order.Descending {
					direction = "DESC"
				}
				orderParts[i] = fmt.Sprintf("%s %s", common.QuoteIdentifier(order.Column), direction)
			}
			query += " ORDER BY " + strings.Join(orderParts, ", ")
		}
		if opts.Limit > 0 {
			query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		}
	}

	rows, err := d.conn.pool.Query(ctx, query, values...)
	if err != nil {
		return nil, translateError(table.Name, "find", err)
	}
	return scanRecords(table, rows)
}

// scanRecords drains a pgx result set into normalized records. The column
// order matches returningList.
func scanRecords(table *storage.TableDefinition, rows pgx.Rows) ([]storage.Record, error) {
	defer rows.Close()

	columns := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = column.Name
	}

	var records []storage.Record
	for rows.Next() {
		scanned := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range scanned {
			pointers[i] = &scanned[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		raw := make(storage.Record, len(columns))
		for i, column := range columns {
			raw[column] = scanned[i]
		}
		normalized, err := storage.NormalizeRecord(table, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, normalized)
	}

	return records, rows.Err()
}

func returningList(table *storage.TableDefinition) string {
	quoted := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		quoted[i] = common.QuoteIdentifier(column.Name)
	}
	return strings.Join(quoted, ", ")
}

func buildWhere(table *storage.TableDefinition, predicate storage.Predicate, offset int) (string, []interface{}, error) {
	if len(predicate) == 0 {
		return "", nil, nil
	}

	keys := common.SortedKeys(map[string]interface{}(predicate))
	parts := make([]string, len(keys))
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		column, ok := table.Column(key)
		if !ok {
			return "", nil, storage.NewValidationError(key, fmt.Sprintf("table %q has no such column", table.Name))
		}
		encoded, err := common.EncodeWriteValue(column, predicate[key])
		if err != nil {
			return "", nil, err
		}
		parts[i] = fmt.Sprintf("%s = $%d", common.QuoteIdentifier(key), offset+i+1)
		values[i] = encoded
	}

	return " WHERE " + strings.Join(parts, " AND "), values, nil
}

// translateError maps native PostgreSQL errors into the storage taxonomy.
func translateError(tableName, operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503": // unique_violation, foreign_key_violation
			return storage.NewConstraintError(storage.PostgreSQL, tableName, pgErr.ConstraintName, err)
		}
	}
	return storage.WrapError(storage.PostgreSQL, operation, tableName, err)
}
