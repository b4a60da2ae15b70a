package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/data"
	"election_dashboard/pkg/election"
	"election_dashboard/pkg/loader"
)

// Error variables for dashboard queries
var (
	ErrElectionNotFound   = errors.New("election not found")
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrNotReady           = errors.New("no data loaded yet")
	ErrRefreshInProgress  = errors.New("refresh already in progress")
)

// DatasetLoader loads catalog datasets
type DatasetLoader interface {
	LoadAll(ctx context.Context, names []string, limit int) map[string]loader.Result
	Invalidate()
}

// Options configures a Service
type Options struct {
	Concurrency int
}

// Service answers dashboard queries from the latest snapshot. Refresh builds
// a new snapshot off to the side and swaps it in.
type Service struct {
	loader  DatasetLoader
	catalog *catalog.Catalog
	opts    Options
	logger  *zap.Logger

	mu          sync.RWMutex
	snap        *Snapshot
	lastError   error
	lastRefresh time.Time

	refreshMu  sync.Mutex
	refreshing bool
}

// NewService creates a dashboard service. No data is available until the
// first Refresh.
func NewService(l DatasetLoader, cat *catalog.Catalog, opts Options, logger *zap.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Service{
		loader:  l,
		catalog: cat,
		opts:    opts,
		logger:  logger,
	}
}

// Refresh reloads every catalog dataset. When the candidate results cannot
// be loaded and a previous snapshot exists, the previous snapshot is kept.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	if s.refreshing {
		s.refreshMu.Unlock()
		return ErrRefreshInProgress
	}
	s.refreshing = true
	s.refreshMu.Unlock()

	defer func() {
		s.refreshMu.Lock()
		s.refreshing = false
		s.refreshMu.Unlock()
	}()

	start := time.Now()
	names := s.catalog.Names()

	s.loader.Invalidate()
	results := s.loader.LoadAll(ctx, names, s.opts.Concurrency)
	if err := ctx.Err(); err != nil {
		s.recordRefresh(err)
		return err
	}

	snap := buildSnapshot(names, results, s.logger)

	if err, failed := snap.datasetErrors[catalog.CandidateResults]; failed {
		refreshErr := fmt.Errorf("%w: %s: %v", ErrDatasetUnavailable, catalog.CandidateResults, err)
		s.mu.Lock()
		keep := s.snap != nil
		if !keep {
			s.snap = snap
		}
		s.lastError = refreshErr
		s.lastRefresh = time.Now().UTC()
		s.mu.Unlock()

		s.logger.Error("Refresh failed",
			zap.Bool("keptPrevious", keep),
			zap.Error(refreshErr))
		return refreshErr
	}

	s.mu.Lock()
	s.snap = snap
	s.lastError = nil
	s.lastRefresh = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("Snapshot refreshed",
		zap.String("snapshotID", snap.ID),
		zap.Int("elections", len(snap.ids)),
		zap.Int("failedDatasets", len(snap.datasetErrors)),
		zap.Int("issues", len(snap.issues)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (s *Service) recordRefresh(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastRefresh = time.Now().UTC()
}

func (s *Service) snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNotReady
	}
	return s.snap, nil
}

// ListAvailableIdentifiers returns the identifiers found in the candidate
// results, most recent first
func (s *Service) ListAvailableIdentifiers() []string {
	snap, err := s.snapshot()
	if err != nil {
		return nil
	}
	return append([]string(nil), snap.ids...)
}

// ListElections returns the selector entries, most recent first
func (s *Service) ListElections() ([]ElectionSummary, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]ElectionSummary, 0, len(snap.ids))
	for _, raw := range snap.ids {
		out = append(out, summarize(snap.parsed[raw], snap.registry))
	}
	return out, nil
}

func summarize(id election.Identifier, registry election.RoundRegistry) ElectionSummary {
	return ElectionSummary{
		ID:    id.String(),
		Label: election.FormatLabel(id, registry),
		Year:  id.Year,
		Type:  string(id.Type),
		Round: string(id.Round),
	}
}

// FormatLabel returns the display label of an identifier
func (s *Service) FormatLabel(raw string) (string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return "", err
	}
	id, err := snap.lookup(raw)
	if err != nil {
		return "", err
	}
	return election.FormatLabel(id, snap.registry), nil
}

// GetPairing returns the companion round of an identifier
func (s *Service) GetPairing(raw string) (election.RoundPairing, error) {
	snap, err := s.snapshot()
	if err != nil {
		return election.RoundPairing{}, err
	}
	id, err := snap.lookup(raw)
	if err != nil {
		return election.RoundPairing{}, err
	}
	return election.Pair(id, snap.registry), nil
}

// GetElection describes one election
func (s *Service) GetElection(raw string) (ElectionDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return ElectionDetail{}, err
	}
	id, err := snap.lookup(raw)
	if err != nil {
		return ElectionDetail{}, err
	}
	return detail(id, snap.registry), nil
}

func detail(id election.Identifier, registry election.RoundRegistry) ElectionDetail {
	d := ElectionDetail{
		ElectionSummary: summarize(id, registry),
		Pairing:         election.Pair(id, registry),
	}
	for _, r := range registry.Rounds(id.Year, id.Type) {
		d.Rounds = append(d.Rounds, string(r))
	}
	if d.Pairing.HasPair() {
		d.PairedID = d.Pairing.PairedID()
		d.PairedLabel = election.FormatLabel(*d.Pairing.Paired, registry)
		d.OtherRoundLabel = d.Pairing.OtherRoundLabel()
	}
	return d
}

// GetTotals sums the participation figures of an election
func (s *Service) GetTotals(raw string) (election.Totals, error) {
	snap, err := s.snapshot()
	if err != nil {
		return election.Totals{}, err
	}
	if _, err := snap.lookup(raw); err != nil {
		return election.Totals{}, err
	}
	return totals(snap, raw)
}

func totals(snap *Snapshot, raw string) (election.Totals, error) {
	general, err := snap.electionRows(catalog.GeneralResults, raw)
	if err != nil {
		return election.Totals{}, err
	}
	t := election.ComputeTotals(data.GeneralRows(general))

	if candidates, err := snap.electionRows(catalog.CandidateResults, raw); err == nil {
		t.CandidateVotes = election.SumVotes(data.CandidateRows(candidates))
	}
	return t, nil
}

// GetParticipation builds the turnout section: totals, deltas against the
// first round when viewing a second round, and the vote cross check.
func (s *Service) GetParticipation(raw string) (Participation, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Participation{}, err
	}
	id, err := snap.lookup(raw)
	if err != nil {
		return Participation{}, err
	}

	current, err := totals(snap, raw)
	if err != nil {
		return Participation{}, err
	}

	p := Participation{
		ElectionDetail: detail(id, snap.registry),
		Totals:         current,
	}

	var delta map[election.Field]int64
	if p.Pairing.IsSecondRoundWithFirst {
		previous, err := totals(snap, p.PairedID)
		if err != nil {
			return Participation{}, err
		}
		delta = election.ComputeDelta(current, previous)
		p.DeltaShown = len(delta) > 0
	}

	for _, f := range election.Fields {
		value := current.Get(f)
		if !value.Valid {
			continue
		}
		m := MetricView{Field: string(f), Value: value, Help: metricHelp[f]}
		if d, ok := delta[f]; ok {
			d := d
			m.Delta = &d
		}
		p.Metrics = append(p.Metrics, m)
	}

	p.CrossCheck = CrossCheck{
		CandidateVotes: current.CandidateVotes,
		Expressed:      current.Expressed,
		Consistent:     current.Expressed.Valid && election.CrossCheck(current.CandidateVotes, current.Expressed.Value),
	}
	if !p.CrossCheck.Consistent {
		p.CrossCheck.Warning = MismatchWarning
		s.logger.Warn("Candidate votes do not match expressed ballots",
			zap.String("election", raw),
			zap.Float64("candidateVotes", current.CandidateVotes),
			zap.Float64("expressed", current.Expressed.Value),
			zap.Bool("expressedAvailable", current.Expressed.Valid))
	}

	return p, nil
}

func (s *Service) candidateRows(raw string) (*Snapshot, election.Identifier, *data.Table, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, election.Identifier{}, nil, err
	}
	id, err := snap.lookup(raw)
	if err != nil {
		return nil, election.Identifier{}, nil, err
	}
	t, err := snap.electionRows(catalog.CandidateResults, raw)
	if err != nil {
		return nil, election.Identifier{}, nil, err
	}
	return snap, id, t, nil
}

// GetCandidateBreakdown ranks the candidates of an election. Percentages are
// relative to the sum of candidate votes.
func (s *Service) GetCandidateBreakdown(raw string) (CandidateBreakdown, error) {
	snap, id, t, err := s.candidateRows(raw)
	if err != nil {
		return CandidateBreakdown{}, err
	}

	rows := data.CandidateRows(t)
	total := election.SumVotes(rows)
	out := CandidateBreakdown{
		ID:         raw,
		Label:      election.FormatLabel(id, snap.registry),
		TotalVotes: total,
		Note:       RoundingNote,
	}
	if t.Present(data.ColumnSurname) && t.Present(data.ColumnGivenName) {
		out.Available = true
		out.Candidates = election.AggregateByCandidate(rows, total)
	}
	return out, nil
}

// GetNuanceBreakdown totals votes per political nuance
func (s *Service) GetNuanceBreakdown(raw string) (GroupBreakdown, error) {
	return s.groupBreakdown(raw, data.ColumnNuance, election.AggregateByNuance)
}

// GetSexBreakdown totals votes per candidate sex
func (s *Service) GetSexBreakdown(raw string) (GroupBreakdown, error) {
	return s.groupBreakdown(raw, data.ColumnSex, election.AggregateBySex)
}

func (s *Service) groupBreakdown(
	raw, field string,
	aggregate func([]election.CandidateResultRow, float64) ([]election.GroupTotal, bool),
) (GroupBreakdown, error) {
	snap, id, t, err := s.candidateRows(raw)
	if err != nil {
		return GroupBreakdown{}, err
	}

	rows := data.CandidateRows(t)
	total := election.SumVotes(rows)
	groups, ok := aggregate(rows, total)
	return GroupBreakdown{
		ID:         raw,
		Label:      election.FormatLabel(id, snap.registry),
		Field:      field,
		Available:  ok,
		TotalVotes: total,
		Groups:     groups,
		Note:       RoundingNote,
	}, nil
}

// DatasetView returns the display table of a dataset. For result tables an
// identifier restricts the rows to one election.
func (s *Service) DatasetView(name, raw string) (data.View, error) {
	snap, err := s.snapshot()
	if err != nil {
		return data.View{}, err
	}
	if _, err := s.catalog.Get(name); err != nil {
		return data.View{}, err
	}
	if raw != "" {
		if _, err := snap.lookup(raw); err != nil {
			return data.View{}, err
		}
	}

	if err, failed := snap.datasetErrors[name]; failed {
		return data.View{}, fmt.Errorf("%w: %s: %v", ErrDatasetUnavailable, name, err)
	}
	ds, err := snap.repo.Dataset(name)
	if err != nil {
		return data.View{}, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	if !ds.IsTabular() {
		return data.NewDocumentView(name, ds.Raw), nil
	}
	return data.NewView(name, ds.Table, raw), nil
}

// Datasets reports the load outcome of every catalog dataset
func (s *Service) Datasets() []DatasetStatus {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	var out []DatasetStatus
	for _, src := range s.catalog.Sources() {
		st := DatasetStatus{Name: src.Name, Format: src.Format, URL: src.URL}
		if snap != nil {
			if err, failed := snap.datasetErrors[src.Name]; failed {
				st.Error = err.Error()
			} else if ds, err := snap.repo.Dataset(src.Name); err == nil {
				st.Loaded = true
				st.FetchedAt = timeOrNil(ds.FetchedAt)
				if ds.IsTabular() {
					st.Rows = ds.Table.Len()
					st.Columns = len(ds.Table.Columns)
				}
			}
		}
		out = append(out, st)
	}
	return out
}

// Status describes the current snapshot and the last refresh
func (s *Service) Status() Status {
	s.refreshMu.Lock()
	refreshing := s.refreshing
	s.refreshMu.Unlock()

	s.mu.RLock()
	snap := s.snap
	lastErr := s.lastError
	lastRefresh := s.lastRefresh
	s.mu.RUnlock()

	st := Status{
		Ready:       snap != nil,
		Refreshing:  refreshing,
		Datasets:    s.Datasets(),
		LastRefresh: timeOrNil(lastRefresh),
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	if snap != nil {
		st.SnapshotID = snap.ID
		st.LoadedAt = timeOrNil(snap.LoadedAt)
		st.Elections = len(snap.ids)
		st.Contests = snap.registry.Len()
		st.Issues = append([]string(nil), snap.issues...)
	}
	return st
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
