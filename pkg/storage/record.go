package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the logical row or document exchanged between a domain service
// and the data-access surface: a flat mapping of column name to typed value.
// The storage layer never retains a Record beyond a single operation.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	clone := make(Record, len(r))
	for key, value := range r {
		clone[key] = value
	}
	return clone
}

// Predicate selects records by column equality. Multiple entries form a
// conjunction. An empty predicate matches every record on reads and is
// rejected on updates and deletes.
type Predicate map[string]interface{}

// Order describes one ordering term for FindMany.
type Order struct {
	Column     string
	Descending bool
}

// FindOptions carries the optional parameters of FindMany.
type FindOptions struct {
	OrderBy []Order
	Limit   int
}

// ValidateRecord checks a record against a table definition: every key must
// name a declared column and non-nullable columns must not hold nil.
func ValidateRecord(table *TableDefinition, record Record) error {
	if len(record) == 0 {
		return NewValidationError("", "record cannot be empty")
	}
	for key, value := range record {
		column, ok := table.Column(key)
		if !ok {
			return NewValidationError(key, fmt.Sprintf("table %q has no such column", table.Name))
		}
		if value == nil && !column.Nullable {
			return NewValidationError(key, "column is not nullable")
		}
	}
	return nil
}

// ValidatePredicate checks that every predicate key names a declared column.
func ValidatePredicate(table *TableDefinition, predicate Predicate) error {
	for key := range predicate {
		if _, ok := table.Column(key); !ok {
			return NewValidationError(key, fmt.Sprintf("table %q has no such column", table.Name))
		}
	}
	return nil
}

// NormalizeRecord maps a raw engine row back onto the logical types declared
// by the table definition, so calling code never branches on engine kind.
// Unknown keys are passed through untouched.
func NormalizeRecord(table *TableDefinition, raw Record) (Record, error) {
	if raw == nil {
		return nil, nil
	}
	normalized := make(Record, len(raw))
	for key, value := range raw {
		column, ok := table.Column(key)
		if !ok {
			normalized[key] = value
			continue
		}
		converted, err := NormalizeValue(column.Type, value)
		if err != nil {
			return nil, NewValidationError(key, err.Error())
		}
		normalized[key] = converted
	}
	return normalized, nil
}

// NormalizeValue converts an engine-native value to its logical type.
func NormalizeValue(columnType ColumnType, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch columnType {
	case TypeString, TypeText:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return fmt.Sprintf("%v", value), nil

	case TypeInt:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case float64:
			return int64(v), nil
		case []byte:
			var parsed int64
			if _, err := fmt.Sscan(string(v), &parsed); err != nil {
				return nil, fmt.Errorf("cannot read %q as int", string(v))
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("cannot normalize %T to int", value)

	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		case []byte:
			var parsed float64
			if _, err := fmt.Sscan(string(v), &parsed); err != nil {
				return nil, fmt.Errorf("cannot read %q as float", string(v))
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("cannot normalize %T to float", value)

	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case int:
			return v != 0, nil
		case []byte:
			return len(v) > 0 && v[0] == '1', nil
		}
		return nil, fmt.Errorf("cannot normalize %T to bool", value)

	case TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			return parseTimestamp(v)
		case []byte:
			return parseTimestamp(string(v))
		}
		return nil, fmt.Errorf("cannot normalize %T to timestamp", value)

	case TypeJSON:
		switch v := value.(type) {
		case string:
			return decodeJSONValue([]byte(v))
		case []byte:
			return decodeJSONValue(v)
		default:
			// Native JSON engines hand back decoded values already.
			return value, nil
		}
	}

	return value, nil
}

// timestampLayouts covers the textual forms the SQL engines hand back when
// the driver does not decode timestamps itself.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot read %q as timestamp", value)
}

func decodeJSONValue(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("cannot decode stored JSON: %v", err)
	}
	return decoded, nil
}

// EncodeJSONValue serializes a logical JSON value for engines that hold JSON
// as text. Adapters call it at their write boundary.
func EncodeJSONValue(value interface{}) (string, error) {
	if value == nil {
		return "", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("cannot encode JSON value: %v", err)
	}
	return string(data), nil
}
