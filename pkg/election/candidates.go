package election

import (
	"math"
	"sort"
)

// CandidateResultRow is one candidate's votes in one polling place
type CandidateResultRow struct {
	Surname   string
	GivenName string
	Sex       string
	Nuance    string
	Votes     float64
}

// Key is the grouping key of the candidate: surname then given name
func (r CandidateResultRow) Key() string {
	return r.Surname + " " + r.GivenName
}

// CandidateResult is a candidate's vote total across polling places
type CandidateResult struct {
	Name    string   `json:"name"`
	Sex     string   `json:"sex,omitempty"`
	Nuance  string   `json:"nuance,omitempty"`
	Votes   float64  `json:"votes"`
	Percent *float64 `json:"percent_of_expressed"`
}

// GroupTotal is a vote total for one value of a grouping column
type GroupTotal struct {
	Key     string   `json:"key"`
	Votes   float64  `json:"votes"`
	Percent *float64 `json:"percent_of_expressed"`
}

// SumVotes returns the total votes of rows
func SumVotes(rows []CandidateResultRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.Votes
	}
	return total
}

// AggregateByCandidate merges rows sharing the exact same name key and ranks
// candidates by votes. Sex and nuance take the first non-empty value seen.
// Percent is nil when totalExpressed is zero.
func AggregateByCandidate(rows []CandidateResultRow, totalExpressed float64) []CandidateResult {
	index := make(map[string]int)
	var results []CandidateResult
	for _, row := range rows {
		key := row.Key()
		i, ok := index[key]
		if !ok {
			i = len(results)
			index[key] = i
			results = append(results, CandidateResult{Name: key})
		}
		res := &results[i]
		res.Votes += row.Votes
		if res.Sex == "" {
			res.Sex = row.Sex
		}
		if res.Nuance == "" {
			res.Nuance = row.Nuance
		}
	}

	for i := range results {
		results[i].Percent = percentOf(results[i].Votes, totalExpressed)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].Name < results[j].Name
	})
	return results
}

// AggregateByNuance sums votes per political nuance. The boolean is false
// when no row carries a nuance.
func AggregateByNuance(rows []CandidateResultRow, totalExpressed float64) ([]GroupTotal, bool) {
	return aggregateBy(rows, totalExpressed, func(r CandidateResultRow) string { return r.Nuance })
}

// AggregateBySex sums votes per candidate sex. The boolean is false when no
// row carries a sex.
func AggregateBySex(rows []CandidateResultRow, totalExpressed float64) ([]GroupTotal, bool) {
	return aggregateBy(rows, totalExpressed, func(r CandidateResultRow) string { return r.Sex })
}

func aggregateBy(rows []CandidateResultRow, totalExpressed float64, keyFn func(CandidateResultRow) string) ([]GroupTotal, bool) {
	sums := make(map[string]float64)
	for _, row := range rows {
		key := keyFn(row)
		if key == "" {
			continue
		}
		sums[key] += row.Votes
	}
	if len(sums) == 0 {
		return nil, false
	}

	groups := make([]GroupTotal, 0, len(sums))
	for key, votes := range sums {
		groups = append(groups, GroupTotal{
			Key:     key,
			Votes:   votes,
			Percent: percentOf(votes, totalExpressed),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Votes != groups[j].Votes {
			return groups[i].Votes > groups[j].Votes
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, true
}

// percentOf rounds votes/total*100 to two decimals
func percentOf(votes, total float64) *float64 {
	if total == 0 {
		return nil
	}
	p := math.Round(votes/total*100*100) / 100
	return &p
}
