package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return NewTable(
		[]string{"Code de la commune", "Nom", "Voix", "Blancs"},
		[][]Cell{
			{TextCell("226"), TextCell("Dupont"), NumberCell(100), {}},
			{TextCell("227"), TextCell("Martin"), NumberCell(80), {}},
			{NumberCell(226), TextCell("Bernard")},
		},
	)
}

func TestParseCell(t *testing.T) {
	assert.False(t, ParseCell("").Valid)
	assert.False(t, ParseCell("   ").Valid)

	c := ParseCell("42")
	assert.True(t, c.Numeric)
	assert.Equal(t, 42.0, c.Number)

	c = ParseCell("DVD")
	assert.True(t, c.Valid)
	assert.False(t, c.Numeric)
	_, ok := c.Float()
	assert.False(t, ok)
}

func TestTable(t *testing.T) {
	table := sampleTable()

	t.Run("PadsShortRows", func(t *testing.T) {
		require.Len(t, table.Rows[2], 4)
		assert.False(t, table.Cell(2, "Voix").Valid)
	})

	t.Run("Present", func(t *testing.T) {
		assert.True(t, table.Present("Voix"))
		assert.False(t, table.Present("Blancs"))
		assert.False(t, table.Present("Exprimés"))
	})

	t.Run("InMatchesTextAndNumbers", func(t *testing.T) {
		filtered := table.In("Code de la commune", []string{"226"})
		assert.Equal(t, 2, filtered.Len())
		assert.Equal(t, "Bernard", filtered.Cell(1, "Nom").Text)
	})

	t.Run("DropEmptyColumns", func(t *testing.T) {
		dropped := table.DropEmptyColumns()
		assert.Equal(t, []string{"Code de la commune", "Nom", "Voix"}, dropped.Columns)
	})

	t.Run("SelectIgnoresUnknown", func(t *testing.T) {
		sel := table.Select([]string{"Voix", "missing", "Nom"})
		assert.Equal(t, []string{"Voix", "Nom"}, sel.Columns)
		assert.Equal(t, 100.0, sel.Rows[0][0].Number)
	})

	t.Run("Records", func(t *testing.T) {
		recs := table.Records()
		require.Len(t, recs, 3)
		assert.Equal(t, "Dupont", recs[0]["Nom"])
		assert.Nil(t, recs[0]["Blancs"])
	})
}
