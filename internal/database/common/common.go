// Package common holds the helpers shared by the SQL engine adapters:
// identifier quoting, deterministic column ordering, and the write-side
// encoding of logical values.
package common

import (
	"sort"
	"strings"

	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// QuoteIdentifier quotes an identifier with ANSI double quotes, doubling any
// embedded quote. Used by the PostgreSQL and SQLite adapters.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdentifierBacktick quotes an identifier with backticks for MySQL.
func QuoteIdentifierBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// SortedKeys returns the keys of a record or predicate in deterministic
// order, so generated statements are stable across calls.
func SortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// EncodeWriteValue converts a logical value to what the engine's driver
// expects on the write side. JSON values are serialized to text; engines
// with native JSON columns still accept the serialized form as input.
func EncodeWriteValue(column storage.ColumnDef, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if column.Type == storage.TypeJSON {
		encoded, err := storage.EncodeJSONValue(value)
		if err != nil {
			return nil, storage.NewValidationError(column.Name, err.Error())
		}
		return encoded, nil
	}
	return value, nil
}

// EncodeRecord applies EncodeWriteValue to every entry of a record and
// returns the encoded copy.
func EncodeRecord(table *storage.TableDefinition, record storage.Record) (storage.Record, error) {
	encoded := make(storage.Record, len(record))
	for key, value := range record {
		column, ok := table.Column(key)
		if !ok {
			return nil, storage.NewValidationError(key, "table "+table.Name+" has no such column")
		}
		converted, err := EncodeWriteValue(column, value)
		if err != nil {
			return nil, err
		}
		encoded[key] = converted
	}
	return encoded, nil
}

// MergePredicate folds the predicate values into the record, predicate
// values winning, so an upsert statement always carries its conflict keys.
func MergePredicate(record storage.Record, predicate storage.Predicate) storage.Record {
	merged := record.Clone()
	if merged == nil {
		merged = make(storage.Record, len(predicate))
	}
	for key, value := range predicate {
		merged[key] = value
	}
	return merged
}
