package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// DataOps implements storage.DataOperator for SQLite.
type DataOps struct {
	conn *Connection
}

// Insert stores a new record.
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
		placeholders[i] = "?"
		quoted[i] = common.QuoteIdentifier(column)
		values[i] = encoded[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		common.QuoteIdentifier(table.Name),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	if _, err := d.conn.db.ExecContext(ctx, query, values...); err != nil {
		return nil, translateError(table.Name, "insert", err)
	}

	return d.readBack(ctx, table, record)
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
		setParts[i] = fmt.Sprintf("%s = ?", common.QuoteIdentifier(column))
		values = append(values, encoded[column])
	}

	whereClause, whereValues, err := buildWhere(table, predicate)
	if err != nil {
		return 0, err
	}
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s%s",
		common.QuoteIdentifier(table.Name),
		strings.Join(setParts, ", "),
		whereClause)

	result, err := d.conn.db.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, translateError(table.Name, "update", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storage.WrapError(storage.SQLite, "update", table.Name, err)
	}
	if affected == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return affected, nil
}

// Delete removes every matching record.
func (d *DataOps) Delete(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate) (int64, error) {
	whereClause, values, err := buildWhere(table, predicate)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s%s", common.QuoteIdentifier(table.Name), whereClause)

	result, err := d.conn.db.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, translateError(table.Name, "delete", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storage.WrapError(storage.SQLite, "delete", table.Name, err)
	}
	if affected == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return affected, nil
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
		placeholders[i] = "?"
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
		updateParts = append(updateParts, fmt.Sprintf("%s = excluded.%s",
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

	if _, err := d.conn.db.ExecContext(ctx, query, values...); err != nil {
		return nil, translateError(table.Name, "upsert", err)
	}

	return d.FindOne(ctx, table, predicate)
}

// selectRecords builds and runs a SELECT over the table's declared columns.
func (d *DataOps) selectRecords(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, opts *storage.FindOptions) ([]storage.Record, error) {
	columns := make([]string, len(table.Columns))
	quoted := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = column.Name
		quoted[i] = common.QuoteIdentifier(column.Name)
	}

	whereClause, values, err := buildWhere(table, predicate)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s",
		strings.Join(quoted, ", "),
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

	rows, err := d.conn.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, translateError(table.Name, "find", err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		scanned := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range scanned {
			pointers[i] = &scanned[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, storage.WrapError(storage.SQLite, "find", table.Name, err)
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

// readBack returns the stored form of a just-written record, preferring a
// primary key lookup when the record carries one.
func (d *DataOps) readBack(ctx context.Context, table *storage.TableDefinition, record storage.Record) (storage.Record, error) {
	if pk, ok := table.PrimaryKey(); ok {
		if id, present := record[pk.Name]; present {
			return d.FindOne(ctx, table, storage.Predicate{pk.Name: id})
		}
	}
	return storage.NormalizeRecord(table, record)
}

func buildWhere(table *storage.TableDefinition, predicate storage.Predicate) (string, []interface{}, error) {
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
		parts[i] = fmt.Sprintf("%s = ?", common.QuoteIdentifier(key))
		values[i] = encoded
	}

	return " WHERE " + strings.Join(parts, " AND "), values, nil
}

// translateError maps native SQLite errors into the storage taxonomy.
func translateError(tableName, operation string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return storage.NewConstraintError(storage.SQLite, tableName, "", err)
		}
	}
	return storage.WrapError(storage.SQLite, operation, tableName, err)
}
