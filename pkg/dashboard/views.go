package dashboard

import (
	"time"

	"election_dashboard/pkg/election"
)

// RoundingNote is shown next to percentages
const RoundingNote = "En raison des arrondis à la deuxième décimale, la somme des pourcentages peut ne pas être égale à 100%."

// MismatchWarning is raised when candidate votes and expressed ballots differ
const MismatchWarning = "Attention : le total des voix exprimées n'est pas égal au total des bulletins exprimés !"

var metricHelp = map[election.Field]string{
	election.FieldVoters:    "Votants = Inscrits - Abstentions",
	election.FieldExpressed: "Exprimés = Votants - Blancs - Nuls",
}

// ElectionSummary is one entry of the election selector
type ElectionSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Year  int    `json:"year"`
	Type  string `json:"type"`
	Round string `json:"round,omitempty"`
}

// ElectionDetail describes one election and its companion round
type ElectionDetail struct {
	ElectionSummary
	Rounds          []string              `json:"rounds"`
	Pairing         election.RoundPairing `json:"pairing"`
	PairedID        string                `json:"paired_id,omitempty"`
	PairedLabel     string                `json:"paired_label,omitempty"`
	OtherRoundLabel string                `json:"other_round_label,omitempty"`
}

// MetricView is one participation figure as displayed
type MetricView struct {
	Field string          `json:"field"`
	Value election.Metric `json:"value"`
	Delta *int64          `json:"delta,omitempty"`
	Help  string          `json:"help,omitempty"`
}

// CrossCheck compares candidate votes with expressed ballots
type CrossCheck struct {
	CandidateVotes float64         `json:"candidate_votes"`
	Expressed      election.Metric `json:"expressed"`
	Consistent     bool            `json:"consistent"`
	Warning        string          `json:"warning,omitempty"`
}

// Participation is the turnout section of an election
type Participation struct {
	ElectionDetail
	Totals     election.Totals `json:"totals"`
	Metrics    []MetricView    `json:"metrics"`
	DeltaShown bool            `json:"delta_shown"`
	CrossCheck CrossCheck      `json:"cross_check"`
}

// CandidateBreakdown ranks the candidates of an election
type CandidateBreakdown struct {
	ID         string                     `json:"id"`
	Label      string                     `json:"label"`
	Available  bool                       `json:"available"`
	TotalVotes float64                    `json:"total_votes"`
	Candidates []election.CandidateResult `json:"candidates"`
	Note       string                     `json:"note"`
}

// GroupBreakdown totals votes by nuance or by sex
type GroupBreakdown struct {
	ID         string                `json:"id"`
	Label      string                `json:"label"`
	Field      string                `json:"field"`
	Available  bool                  `json:"available"`
	TotalVotes float64               `json:"total_votes"`
	Groups     []election.GroupTotal `json:"groups"`
	Note       string                `json:"note"`
}

// DatasetStatus reports the outcome of loading one dataset
type DatasetStatus struct {
	Name      string     `json:"name"`
	Format    string     `json:"format"`
	URL       string     `json:"url"`
	Loaded    bool       `json:"loaded"`
	Rows      int        `json:"rows,omitempty"`
	Columns   int        `json:"columns,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Status describes the current snapshot
type Status struct {
	Ready       bool            `json:"ready"`
	Refreshing  bool            `json:"refreshing"`
	SnapshotID  string          `json:"snapshot_id,omitempty"`
	LoadedAt    *time.Time      `json:"loaded_at,omitempty"`
	Elections   int             `json:"elections"`
	Contests    int             `json:"contests"`
	Datasets    []DatasetStatus `json:"datasets"`
	Issues      []string        `json:"issues,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	LastRefresh *time.Time      `json:"last_refresh,omitempty"`
}
