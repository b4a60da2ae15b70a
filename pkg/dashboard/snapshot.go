package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/data"
	"election_dashboard/pkg/election"
	"election_dashboard/pkg/loader"
)

// Snapshot is everything one refresh produced. It is never modified after
// buildSnapshot returns.
type Snapshot struct {
	ID       string
	LoadedAt time.Time

	repo          *data.MemoryRepository
	ids           []string
	parsed        map[string]election.Identifier
	registry      election.RoundRegistry
	datasetErrors map[string]error
	issues        []string
}

func buildSnapshot(names []string, results map[string]loader.Result, logger *zap.Logger) *Snapshot {
	snap := &Snapshot{
		ID:            uuid.NewString(),
		LoadedAt:      time.Now().UTC(),
		parsed:        make(map[string]election.Identifier),
		datasetErrors: make(map[string]error),
	}

	var datasets []*data.Dataset
	for _, name := range names {
		res, ok := results[name]
		switch {
		case !ok:
			snap.datasetErrors[name] = fmt.Errorf("%w: %s was not loaded", ErrDatasetUnavailable, name)
		case res.Err != nil:
			snap.datasetErrors[name] = res.Err
		default:
			datasets = append(datasets, res.Dataset)
		}
	}
	snap.repo = data.NewMemoryRepository(datasets...)

	table, err := snap.repo.Table(catalog.CandidateResults)
	if err != nil {
		return snap
	}

	var parsed []election.Identifier
	for _, raw := range data.ElectionIDs(table) {
		id, err := election.ParseIdentifier(raw)
		if err != nil {
			issue := fmt.Sprintf("skipped identifier %q: %v", raw, err)
			snap.issues = append(snap.issues, issue)
			logger.Warn("Skipping election identifier",
				zap.String("identifier", raw),
				zap.Error(err))
			continue
		}
		snap.ids = append(snap.ids, raw)
		snap.parsed[raw] = id
		parsed = append(parsed, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(snap.ids)))
	snap.registry = election.BuildRegistry(parsed)

	return snap
}

// table returns a loaded table or ErrDatasetUnavailable
func (s *Snapshot) table(name string) (*data.Table, error) {
	if err, failed := s.datasetErrors[name]; failed {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatasetUnavailable, name, err)
	}
	t, err := s.repo.Table(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	return t, nil
}

// lookup validates a raw identifier against the snapshot
func (s *Snapshot) lookup(raw string) (election.Identifier, error) {
	id, err := election.ParseIdentifier(raw)
	if err != nil {
		return election.Identifier{}, err
	}
	if _, ok := s.parsed[raw]; !ok {
		return election.Identifier{}, fmt.Errorf("%w: %s", ErrElectionNotFound, raw)
	}
	return id, nil
}

// electionRows returns the rows of one election in a results table
func (s *Snapshot) electionRows(name, id string) (*data.Table, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return data.ForElection(t, id), nil
}
