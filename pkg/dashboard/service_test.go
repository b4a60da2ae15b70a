package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/data"
	"election_dashboard/pkg/election"
	"election_dashboard/pkg/loader"
)

type fakeLoader struct {
	mu          sync.Mutex
	datasets    map[string]*data.Dataset
	failures    map[string]error
	invalidated int
}

func (f *fakeLoader) LoadAll(ctx context.Context, names []string, limit int) map[string]loader.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]loader.Result, len(names))
	for _, name := range names {
		if err, ok := f.failures[name]; ok {
			out[name] = loader.Result{Err: err}
			continue
		}
		ds, ok := f.datasets[name]
		if !ok {
			out[name] = loader.Result{Err: errors.New("no fixture")}
			continue
		}
		out[name] = loader.Result{Dataset: ds}
	}
	return out
}

func (f *fakeLoader) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func num(v float64) data.Cell { return data.NumberCell(v) }
func text(s string) data.Cell { return data.TextCell(s) }
func null() data.Cell { return data.Cell{} }

func generalResults() *data.Dataset {
	cols := []string{"id_election", "Code de la commune", "Inscrits", "Abstentions", "Votants", "Blancs", "Nuls", "Exprimés"}
	rows := [][]data.Cell{
		{text("2024_legi_t1"), text("226"), num(1000), num(400), num(600), num(10), num(5), num(585)},
		{text("2024_legi_t1"), text("226"), num(800), num(300), num(500), num(5), num(5), num(490)},
		{text("2024_legi_t2"), text("226"), num(1001), num(350), num(651), num(12), num(4), num(635)},
		{text("2024_legi_t2"), text("226"), num(800), num(280), num(520), num(8), num(2), num(510)},
		{text("2019_euro"), text("226"), num(1700), num(900), num(800), null(), num(20), num(780)},
	}
	return &data.Dataset{Name: catalog.GeneralResults, Format: data.FormatParquet, Table: data.NewTable(cols, rows)}
}

func candidateResults() *data.Dataset {
	cols := []string{"id_election", "Nom", "Prénom", "Sexe", "Nuance", "Voix"}
	rows := [][]data.Cell{
		{text("2024_legi_t1"), text("Dupont"), text("Jean"), text("M"), text("DVD"), num(500)},
		{text("2024_legi_t1"), text("Martin"), text("Claire"), text("F"), text("SOC"), num(400)},
		{text("2024_legi_t1"), text("Bernard"), text("Luc"), text("M"), text("RN"), num(175)},
		{text("2024_legi_t2"), text("Dupont"), text("Jean"), text("M"), text("DVD"), num(600)},
		{text("2024_legi_t2"), text("Martin"), text("Claire"), text("F"), text("SOC"), num(545)},
		{text("2019_euro"), text("Liste"), text("A"), null(), null(), num(500)},
		{text("2019_euro"), text("Liste"), text("B"), null(), null(), num(200)},
		{text("2020_xxxx_t1"), text("Ghost"), text("Casper"), null(), null(), num(1)},
	}
	return &data.Dataset{Name: catalog.CandidateResults, Format: data.FormatParquet, Table: data.NewTable(cols, rows)}
}

func fixtures() map[string]*data.Dataset {
	return map[string]*data.Dataset{
		catalog.GeneralResults:   generalResults(),
		catalog.CandidateResults: candidateResults(),
		catalog.Nuances: {
			Name:   catalog.Nuances,
			Format: data.FormatCSV,
			Table:  data.NewTable([]string{"", "Code"}, [][]data.Cell{{num(0), text("DVD")}}),
		},
		catalog.SchemaGeneralResults:   {Name: catalog.SchemaGeneralResults, Format: data.FormatJSON, Raw: `{"fields":[]}`},
		catalog.SchemaCandidateResults: {Name: catalog.SchemaCandidateResults, Format: data.FormatJSON, Raw: `{"fields":[]}`},
	}
}

func setupTestService(t *testing.T, l *fakeLoader) *Service {
	t.Helper()
	return NewService(l, catalog.Default("57", "226"), Options{Concurrency: 2}, zaptest.NewLogger(t))
}

func readyService(t *testing.T) (*Service, *fakeLoader) {
	t.Helper()
	l := &fakeLoader{
		datasets: fixtures(),
		failures: map[string]error{catalog.PollingStations: errors.New("timeout")},
	}
	svc := setupTestService(t, l)
	require.NoError(t, svc.Refresh(context.Background()))
	return svc, l
}

func TestNotReady(t *testing.T) {
	svc := setupTestService(t, &fakeLoader{})

	assert.Empty(t, svc.ListAvailableIdentifiers())
	_, err := svc.GetTotals("2024_legi_t1")
	assert.ErrorIs(t, err, ErrNotReady)

	st := svc.Status()
	assert.False(t, st.Ready)
	assert.Nil(t, st.LoadedAt)
	assert.Nil(t, st.LastRefresh)

	body, err := json.Marshal(st)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "loaded_at")
	assert.NotContains(t, string(body), "0001-01-01")
}

func TestRefresh(t *testing.T) {
	svc, l := readyService(t)

	t.Run("InvalidatesLoader", func(t *testing.T) {
		assert.Equal(t, 1, l.invalidated)
	})

	t.Run("ListsIdentifiersDescending", func(t *testing.T) {
		assert.Equal(t, []string{"2024_legi_t2", "2024_legi_t1", "2019_euro"}, svc.ListAvailableIdentifiers())
	})

	t.Run("RecordsIssues", func(t *testing.T) {
		st := svc.Status()
		assert.True(t, st.Ready)
		assert.NotEmpty(t, st.SnapshotID)
		assert.Equal(t, 3, st.Elections)
		assert.Equal(t, 2, st.Contests)
		require.Len(t, st.Issues, 1)
		assert.Contains(t, st.Issues[0], "2020_xxxx_t1")
	})

	t.Run("ReportsDatasetErrors", func(t *testing.T) {
		var bv DatasetStatus
		for _, d := range svc.Datasets() {
			if d.Name == catalog.PollingStations {
				bv = d
			}
		}
		assert.False(t, bv.Loaded)
		assert.Contains(t, bv.Error, "timeout")
		assert.Nil(t, bv.FetchedAt)
	})

	t.Run("NewSnapshotEachTime", func(t *testing.T) {
		before := svc.Status().SnapshotID
		require.NoError(t, svc.Refresh(context.Background()))
		assert.NotEqual(t, before, svc.Status().SnapshotID)
	})
}

func TestRefreshKeepsPreviousSnapshot(t *testing.T) {
	svc, l := readyService(t)
	before := svc.Status().SnapshotID

	l.mu.Lock()
	l.failures[catalog.CandidateResults] = errors.New("503")
	l.mu.Unlock()

	err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrDatasetUnavailable)

	st := svc.Status()
	assert.Equal(t, before, st.SnapshotID)
	assert.Contains(t, st.LastError, "503")
	assert.Len(t, svc.ListAvailableIdentifiers(), 3)
}

func TestLookupErrors(t *testing.T) {
	svc, _ := readyService(t)

	_, err := svc.FormatLabel("2024-legi")
	assert.ErrorIs(t, err, election.ErrMalformedIdentifier)

	_, err = svc.FormatLabel("2024_abcd_t1")
	assert.ErrorIs(t, err, election.ErrUnknownElectionType)

	_, err = svc.FormatLabel("2022_pres_t1")
	assert.ErrorIs(t, err, ErrElectionNotFound)
}

func TestFormatLabelAndPairing(t *testing.T) {
	svc, _ := readyService(t)

	label, err := svc.FormatLabel("2024_legi_t2")
	require.NoError(t, err)
	assert.Equal(t, "Législatives 2024 T2", label)

	label, err = svc.FormatLabel("2019_euro")
	require.NoError(t, err)
	assert.Equal(t, "Européennes 2019", label)

	p, err := svc.GetPairing("2024_legi_t1")
	require.NoError(t, err)
	assert.True(t, p.IsFirstRoundWithSecond)
	assert.Equal(t, "2024_legi_t2", p.PairedID())

	d, err := svc.GetElection("2024_legi_t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, d.Rounds)
	assert.Equal(t, "Législatives 2024 T1", d.PairedLabel)
	assert.Equal(t, "Résultats au 1er tour", d.OtherRoundLabel)
}

func TestGetTotals(t *testing.T) {
	svc, _ := readyService(t)

	totals, err := svc.GetTotals("2024_legi_t1")
	require.NoError(t, err)
	assert.Equal(t, election.Available(1800), totals.Registered)
	assert.Equal(t, election.Available(1075), totals.Expressed)
	assert.Equal(t, 1075.0, totals.CandidateVotes)

	euro, err := svc.GetTotals("2019_euro")
	require.NoError(t, err)
	assert.False(t, euro.Blank.Valid)
}

func TestGetParticipation(t *testing.T) {
	svc, _ := readyService(t)

	t.Run("SecondRoundShowsDeltas", func(t *testing.T) {
		p, err := svc.GetParticipation("2024_legi_t2")
		require.NoError(t, err)
		assert.True(t, p.DeltaShown)
		require.Len(t, p.Metrics, len(election.Fields))

		byField := map[string]MetricView{}
		for _, m := range p.Metrics {
			byField[m.Field] = m
		}
		require.NotNil(t, byField["Inscrits"].Delta)
		assert.Equal(t, int64(1), *byField["Inscrits"].Delta)
		assert.Equal(t, int64(71), *byField["Votants"].Delta)
		assert.Equal(t, "Votants = Inscrits - Abstentions", byField["Votants"].Help)

		assert.True(t, p.CrossCheck.Consistent)
		assert.Empty(t, p.CrossCheck.Warning)
	})

	t.Run("FirstRoundHasNoDeltas", func(t *testing.T) {
		p, err := svc.GetParticipation("2024_legi_t1")
		require.NoError(t, err)
		assert.False(t, p.DeltaShown)
		for _, m := range p.Metrics {
			assert.Nil(t, m.Delta)
		}
		assert.Equal(t, "Résultats au 2nd tour", p.OtherRoundLabel)
	})

	t.Run("MismatchWarning", func(t *testing.T) {
		p, err := svc.GetParticipation("2019_euro")
		require.NoError(t, err)
		assert.False(t, p.CrossCheck.Consistent)
		assert.Equal(t, MismatchWarning, p.CrossCheck.Warning)
		assert.Equal(t, 700.0, p.CrossCheck.CandidateVotes)
	})

	t.Run("OmitsUnavailableMetrics", func(t *testing.T) {
		p, err := svc.GetParticipation("2019_euro")
		require.NoError(t, err)
		require.Len(t, p.Metrics, len(election.Fields)-1)
		for _, m := range p.Metrics {
			assert.NotEqual(t, string(election.FieldBlank), m.Field)
			assert.True(t, m.Value.Valid, m.Field)
		}
		assert.False(t, p.Totals.Blank.Valid)
	})
}

func TestParticipationWithoutFirstRoundFigures(t *testing.T) {
	general := data.NewTable(
		[]string{"id_election", "Inscrits", "Abstentions", "Votants", "Blancs", "Nuls", "Exprimés"},
		[][]data.Cell{
			{text("2022_pres_t2"), num(1000), num(300), num(700), num(0), num(10), num(690)},
		},
	)
	candidates := data.NewTable(
		[]string{"id_election", "Nom", "Prénom", "Sexe", "Nuance", "Voix"},
		[][]data.Cell{
			{text("2022_pres_t1"), text("Dupont"), text("Jean"), text("M"), text("DVD"), num(400)},
			{text("2022_pres_t2"), text("Dupont"), text("Jean"), text("M"), text("DVD"), num(690)},
		},
	)
	l := &fakeLoader{datasets: map[string]*data.Dataset{
		catalog.GeneralResults:   {Name: catalog.GeneralResults, Format: data.FormatParquet, Table: general},
		catalog.CandidateResults: {Name: catalog.CandidateResults, Format: data.FormatParquet, Table: candidates},
	}}
	svc := setupTestService(t, l)
	require.NoError(t, svc.Refresh(context.Background()))

	p, err := svc.GetParticipation("2022_pres_t2")
	require.NoError(t, err)
	assert.True(t, p.Pairing.IsSecondRoundWithFirst)
	assert.False(t, p.DeltaShown)

	byField := map[string]MetricView{}
	for _, m := range p.Metrics {
		assert.Nil(t, m.Delta)
		byField[m.Field] = m
	}
	require.Contains(t, byField, string(election.FieldBlank))
	assert.Equal(t, election.Available(0), byField[string(election.FieldBlank)].Value)
}

func TestBreakdowns(t *testing.T) {
	svc, _ := readyService(t)

	t.Run("Candidates", func(t *testing.T) {
		b, err := svc.GetCandidateBreakdown("2024_legi_t1")
		require.NoError(t, err)
		assert.True(t, b.Available)
		assert.Equal(t, 1075.0, b.TotalVotes)
		require.Len(t, b.Candidates, 3)
		assert.Equal(t, "Dupont Jean", b.Candidates[0].Name)
		assert.InDelta(t, 46.51, *b.Candidates[0].Percent, 0.001)
	})

	t.Run("Nuances", func(t *testing.T) {
		b, err := svc.GetNuanceBreakdown("2024_legi_t2")
		require.NoError(t, err)
		assert.True(t, b.Available)
		assert.Equal(t, "Nuance", b.Field)
		require.Len(t, b.Groups, 2)
		assert.Equal(t, "DVD", b.Groups[0].Key)
	})

	t.Run("SexUnavailable", func(t *testing.T) {
		b, err := svc.GetSexBreakdown("2019_euro")
		require.NoError(t, err)
		assert.False(t, b.Available)
		assert.Empty(t, b.Groups)
	})
}

func TestDatasetView(t *testing.T) {
	svc, _ := readyService(t)

	t.Run("ElectionRows", func(t *testing.T) {
		v, err := svc.DatasetView(catalog.GeneralResults, "2019_euro")
		require.NoError(t, err)
		assert.Len(t, v.Rows, 1)
		assert.NotContains(t, v.Columns, "id_election")
		assert.NotContains(t, v.Columns, "Blancs")
	})

	t.Run("Document", func(t *testing.T) {
		v, err := svc.DatasetView(catalog.SchemaGeneralResults, "")
		require.NoError(t, err)
		assert.JSONEq(t, `{"fields":[]}`, string(v.Document))
	})

	t.Run("Unavailable", func(t *testing.T) {
		_, err := svc.DatasetView(catalog.PollingStations, "")
		assert.ErrorIs(t, err, ErrDatasetUnavailable)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := svc.DatasetView("nope", "")
		assert.ErrorIs(t, err, catalog.ErrUnknownDataset)
	})
}
