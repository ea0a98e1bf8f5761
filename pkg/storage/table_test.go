package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableDefinitionValidate(t *testing.T) {
	valid := func() *TableDefinition {
		return &TableDefinition{
			Name: "users",
			Columns: []ColumnDef{
				{Name: "id", Type: TypeString, PrimaryKey: true},
				{Name: "email", Type: TypeString},
				{Name: "bio", Type: TypeText, Nullable: true},
			},
			UniqueConstraints: []UniqueConstraint{
				{Name: "users_email_key", Columns: []string{"email"}},
			},
		}
	}

	t.Run("valid definition", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("empty name", func(t *testing.T) {
		table := valid()
		table.Name = ""
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("no columns", func(t *testing.T) {
		table := valid()
		table.Columns = nil
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("duplicate column", func(t *testing.T) {
		table := valid()
		table.Columns = append(table.Columns, ColumnDef{Name: "email", Type: TypeString})
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("unknown column type", func(t *testing.T) {
		table := valid()
		table.Columns[1].Type = "varchar"
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("two primary keys", func(t *testing.T) {
		table := valid()
		table.Columns[1].PrimaryKey = true
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("constraint on unknown column", func(t *testing.T) {
		table := valid()
		table.UniqueConstraints[0].Columns = []string{"missing"}
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("constraint on unbounded text", func(t *testing.T) {
		table := valid()
		table.UniqueConstraints = append(table.UniqueConstraints,
			UniqueConstraint{Name: "users_bio_key", Columns: []string{"bio"}})
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})

	t.Run("empty constraint", func(t *testing.T) {
		table := valid()
		table.UniqueConstraints = append(table.UniqueConstraints, UniqueConstraint{Name: "empty"})
		assert.ErrorIs(t, table.Validate(), ErrValidation)
	})
}

func TestTableDefinitionLookups(t *testing.T) {
	table := &TableDefinition{
		Name: "items",
		Columns: []ColumnDef{
			{Name: "id", Type: TypeString, PrimaryKey: true},
			{Name: "name", Type: TypeString},
		},
	}

	column, ok := table.Column("name")
	assert.True(t, ok)
	assert.Equal(t, TypeString, column.Type)

	_, ok = table.Column("missing")
	assert.False(t, ok)

	pk, ok := table.PrimaryKey()
	assert.True(t, ok)
	assert.Equal(t, "id", pk.Name)

	noPK := &TableDefinition{Name: "logs", Columns: []ColumnDef{{Name: "line", Type: TypeText}}}
	_, ok = noPK.PrimaryKey()
	assert.False(t, ok)
}
