package data

import (
	"encoding/json"
	"sort"

	"election_dashboard/pkg/election"
)

// Column names of the aggregated election result files
const (
	ColumnElectionID = "id_election"
	ColumnSurname    = "Nom"
	ColumnGivenName  = "Prénom"
	ColumnSex        = "Sexe"
	ColumnNuance     = "Nuance"
	ColumnVotes      = "Voix"
)

// HiddenColumns are technical columns never shown in dataset views. The
// empty name covers an unnamed leading index column.
var HiddenColumns = map[string]struct{}{
	"":                       {},
	"Unnamed: 0":             {},
	ColumnElectionID:         {},
	"id_brut_miom":           {},
	"Code du département":    {},
	"Libellé du département": {},
	"Code de la commune":     {},
	"Libellé de la commune":  {},
}

// ElectionIDs returns the distinct identifiers of the table in descending
// order. A table without the identifier column yields none.
func ElectionIDs(t *Table) []string {
	if t == nil {
		return nil
	}
	ids := t.Distinct(ColumnElectionID)
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// ForElection returns the rows of one election with all-empty columns dropped
func ForElection(t *Table, id string) *Table {
	return t.Equal(ColumnElectionID, id).DropEmptyColumns()
}

// GeneralRows extracts the participation rows of a table. A column that is
// missing, or empty in every row, leaves the metric unavailable.
func GeneralRows(t *Table) []election.GeneralResultRow {
	present := make(map[election.Field]bool, len(election.Fields))
	for _, f := range election.Fields {
		present[f] = t.Present(string(f))
	}

	metric := func(i int, f election.Field) election.Metric {
		if !present[f] {
			return election.Metric{}
		}
		v, ok := t.Cell(i, string(f)).Float()
		if !ok {
			return election.Metric{}
		}
		return election.Available(v)
	}

	rows := make([]election.GeneralResultRow, t.Len())
	for i := range rows {
		rows[i] = election.GeneralResultRow{
			Registered:  metric(i, election.FieldRegistered),
			Abstentions: metric(i, election.FieldAbstentions),
			Voters:      metric(i, election.FieldVoters),
			Blank:       metric(i, election.FieldBlank),
			Null:        metric(i, election.FieldNull),
			Expressed:   metric(i, election.FieldExpressed),
		}
	}
	return rows
}

// CandidateRows extracts the per candidate rows of a table. Null vote counts
// count as zero.
func CandidateRows(t *Table) []election.CandidateResultRow {
	rows := make([]election.CandidateResultRow, t.Len())
	for i := range rows {
		votes, _ := t.Cell(i, ColumnVotes).Float()
		rows[i] = election.CandidateResultRow{
			Surname:   t.Cell(i, ColumnSurname).Text,
			GivenName: t.Cell(i, ColumnGivenName).Text,
			Sex:       t.Cell(i, ColumnSex).Text,
			Nuance:    t.Cell(i, ColumnNuance).Text,
			Votes:     votes,
		}
	}
	return rows
}

// View is a display projection of a dataset. Tabular datasets fill Columns
// and Rows, JSON documents fill Document.
type View struct {
	Name     string                   `json:"name"`
	Columns  []string                 `json:"columns,omitempty"`
	Rows     []map[string]interface{} `json:"rows,omitempty"`
	Document json.RawMessage          `json:"document,omitempty"`
}

// NewDocumentView wraps a raw JSON document
func NewDocumentView(name, raw string) View {
	return View{Name: name, Document: json.RawMessage(raw)}
}

// NewView hides technical columns of t. When electionID is set and the
// table carries identifiers, rows are restricted to that election and
// all-empty columns are dropped.
func NewView(name string, t *Table, electionID string) View {
	if electionID != "" && t.HasColumn(ColumnElectionID) {
		t = ForElection(t, electionID)
	}

	visible := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if _, hidden := HiddenColumns[c]; !hidden {
			visible = append(visible, c)
		}
	}
	t = t.Select(visible)

	return View{Name: name, Columns: t.Columns, Rows: t.Records()}
}
