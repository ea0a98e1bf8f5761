package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	t.Run("bool from engine integers", func(t *testing.T) {
		value, err := NormalizeValue(TypeBool, int64(1))
		require.NoError(t, err)
		assert.Equal(t, true, value)

		value, err = NormalizeValue(TypeBool, int64(0))
		require.NoError(t, err)
		assert.Equal(t, false, value)

		value, err = NormalizeValue(TypeBool, true)
		require.NoError(t, err)
		assert.Equal(t, true, value)
	})

	t.Run("int from driver variants", func(t *testing.T) {
		for _, raw := range []interface{}{int64(42), int(42), int32(42), float64(42), []byte("42")} {
			value, err := NormalizeValue(TypeInt, raw)
			require.NoError(t, err, "input %T", raw)
			assert.Equal(t, int64(42), value, "input %T", raw)
		}
	})

	t.Run("float from driver variants", func(t *testing.T) {
		for _, raw := range []interface{}{float64(2.5), []byte("2.5")} {
			value, err := NormalizeValue(TypeFloat, raw)
			require.NoError(t, err, "input %T", raw)
			assert.Equal(t, 2.5, value, "input %T", raw)
		}
	})

	t.Run("string from bytes", func(t *testing.T) {
		value, err := NormalizeValue(TypeString, []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
	})

	t.Run("timestamp from time and text", func(t *testing.T) {
		instant := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

		value, err := NormalizeValue(TypeTimestamp, instant)
		require.NoError(t, err)
		assert.Equal(t, instant, value)

		value, err = NormalizeValue(TypeTimestamp, "2025-03-14 09:26:53")
		require.NoError(t, err)
		assert.Equal(t, instant, value)

		value, err = NormalizeValue(TypeTimestamp, "2025-03-14T09:26:53Z")
		require.NoError(t, err)
		assert.Equal(t, instant, value)

		_, err = NormalizeValue(TypeTimestamp, "not a time")
		assert.Error(t, err)
	})

	t.Run("json decoded from text", func(t *testing.T) {
		value, err := NormalizeValue(TypeJSON, `{"a":1,"b":["x"]}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"a": float64(1), "b": []interface{}{"x"}}, value)
	})

	t.Run("json passed through when already decoded", func(t *testing.T) {
		native := map[string]interface{}{"a": int64(1)}
		value, err := NormalizeValue(TypeJSON, native)
		require.NoError(t, err)
		assert.Equal(t, native, value)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		for _, columnType := range []ColumnType{TypeString, TypeInt, TypeBool, TypeTimestamp, TypeJSON} {
			value, err := NormalizeValue(columnType, nil)
			require.NoError(t, err)
			assert.Nil(t, value)
		}
	})

	t.Run("unconvertible values error", func(t *testing.T) {
		_, err := NormalizeValue(TypeInt, struct{}{})
		assert.Error(t, err)

		_, err = NormalizeValue(TypeBool, "yes")
		assert.Error(t, err)
	})
}

func TestNormalizeRecord(t *testing.T) {
	table := &TableDefinition{
		Name: "events",
		Columns: []ColumnDef{
			{Name: "id", Type: TypeString, PrimaryKey: true},
			{Name: "done", Type: TypeBool},
			{Name: "payload", Type: TypeJSON, Nullable: true},
		},
	}

	record, err := NormalizeRecord(table, Record{
		"id":      []byte("e1"),
		"done":    int64(1),
		"payload": `{"kind":"created"}`,
		"extra":   "untouched",
	})
	require.NoError(t, err)

	assert.Equal(t, "e1", record["id"])
	assert.Equal(t, true, record["done"])
	assert.Equal(t, map[string]interface{}{"kind": "created"}, record["payload"])
	assert.Equal(t, "untouched", record["extra"])
}

func TestEncodeJSONValue(t *testing.T) {
	encoded, err := EncodeJSONValue(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, encoded)

	encoded, err = EncodeJSONValue(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestRecordClone(t *testing.T) {
	original := Record{"id": "a"}
	clone := original.Clone()
	clone["id"] = "b"
	assert.Equal(t, "a", original["id"])

	assert.Nil(t, Record(nil).Clone())
}
