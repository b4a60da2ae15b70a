package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election_dashboard/pkg/election"
)

func generalTable() *Table {
	return NewTable(
		[]string{"id_election", "id_brut_miom", "Code de la commune", "Inscrits", "Votants", "Blancs", "Exprimés"},
		[][]Cell{
			{TextCell("2024_legi_t1"), TextCell("x"), TextCell("226"), NumberCell(1000), NumberCell(600), {}, NumberCell(580)},
			{TextCell("2024_legi_t1"), TextCell("y"), TextCell("226"), NumberCell(900), NumberCell(500), {}, NumberCell(490)},
			{TextCell("2024_legi_t2"), TextCell("z"), TextCell("226"), NumberCell(1000), NumberCell(650), NumberCell(12), NumberCell(630)},
		},
	)
}

func TestElectionIDs(t *testing.T) {
	assert.Equal(t, []string{"2024_legi_t2", "2024_legi_t1"}, ElectionIDs(generalTable()))
	assert.Empty(t, ElectionIDs(NewTable([]string{"Nom"}, nil)))
	assert.Empty(t, ElectionIDs(nil))
}

func TestGeneralRows(t *testing.T) {
	rows := GeneralRows(ForElection(generalTable(), "2024_legi_t1"))
	require.Len(t, rows, 2)

	totals := election.ComputeTotals(rows)
	assert.Equal(t, election.Available(1900), totals.Registered)
	assert.Equal(t, election.Available(1070), totals.Expressed)
	assert.False(t, totals.Blank.Valid, "blank column is empty for this election")
	assert.False(t, totals.Abstentions.Valid, "abstentions column is missing")
}

func TestCandidateRows(t *testing.T) {
	table := NewTable(
		[]string{"id_election", "Nom", "Prénom", "Sexe", "Nuance", "Voix"},
		[][]Cell{
			{TextCell("2024_legi_t1"), TextCell("Dupont"), TextCell("Jean"), TextCell("M"), TextCell("DVD"), NumberCell(100)},
			{TextCell("2024_legi_t1"), TextCell("Dupont"), TextCell("Jean"), TextCell("M"), {}, NumberCell(50)},
			{TextCell("2024_legi_t1"), TextCell("Martin"), TextCell("Claire"), {}, {}, {}},
		},
	)

	rows := CandidateRows(table)
	require.Len(t, rows, 3)
	assert.Equal(t, "Dupont Jean", rows[0].Key())
	assert.Equal(t, "", rows[1].Nuance)
	assert.Equal(t, 0.0, rows[2].Votes)

	results := election.AggregateByCandidate(rows, election.SumVotes(rows))
	assert.Equal(t, 150.0, results[0].Votes)
}

func TestNewView(t *testing.T) {
	t.Run("ElectionView", func(t *testing.T) {
		view := NewView("general_results", generalTable(), "2024_legi_t1")
		assert.Equal(t, []string{"Inscrits", "Votants", "Exprimés"}, view.Columns)
		assert.Len(t, view.Rows, 2)
	})

	t.Run("WholeTable", func(t *testing.T) {
		view := NewView("general_results", generalTable(), "")
		assert.Equal(t, []string{"Inscrits", "Votants", "Blancs", "Exprimés"}, view.Columns)
		assert.Len(t, view.Rows, 3)
	})

	t.Run("UnnamedIndexHidden", func(t *testing.T) {
		nuances := NewTable([]string{"", "Code", "Libellé"}, [][]Cell{{NumberCell(0), TextCell("DVD"), TextCell("Divers droite")}})
		view := NewView("nuances", nuances, "2024_legi_t1")
		assert.Equal(t, []string{"Code", "Libellé"}, view.Columns)
		assert.Len(t, view.Rows, 1)
	})
}
