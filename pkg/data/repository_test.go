package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	general := &Dataset{Name: "general_results", Format: FormatParquet, Table: NewTable([]string{"id_election"}, nil)}
	schema := &Dataset{Name: "schema_general_results", Format: FormatJSON, Raw: `{"fields":[]}`}
	repo := NewMemoryRepository(general, schema, nil)

	t.Run("Names", func(t *testing.T) {
		assert.Equal(t, []string{"general_results", "schema_general_results"}, repo.Names())
	})

	t.Run("Dataset", func(t *testing.T) {
		ds, err := repo.Dataset("schema_general_results")
		require.NoError(t, err)
		assert.Equal(t, `{"fields":[]}`, ds.Raw)
		assert.False(t, ds.IsTabular())
	})

	t.Run("Table", func(t *testing.T) {
		table, err := repo.Table("general_results")
		require.NoError(t, err)
		assert.True(t, table.HasColumn("id_election"))
	})

	t.Run("NotTabular", func(t *testing.T) {
		_, err := repo.Table("schema_general_results")
		assert.ErrorIs(t, err, ErrNotTabular)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.Dataset("nuances")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.Table("nuances")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
