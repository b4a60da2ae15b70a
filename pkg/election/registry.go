package election

import "sort"

type contestKey struct {
	year int
	typ  ElectionType
}

// RoundRegistry records, for every (year, type) contest, the set of round
// tokens observed in the loaded candidate results. It is immutable once built.
type RoundRegistry struct {
	rounds map[contestKey]map[Round]struct{}
}

// BuildRegistry builds a registry from every identifier found in the data.
// The result does not depend on the order of ids.
func BuildRegistry(ids []Identifier) RoundRegistry {
	rounds := make(map[contestKey]map[Round]struct{})
	for _, id := range ids {
		key := contestKey{year: id.Year, typ: id.Type}
		set, ok := rounds[key]
		if !ok {
			set = make(map[Round]struct{})
			rounds[key] = set
		}
		set[id.Round] = struct{}{}
	}
	return RoundRegistry{rounds: rounds}
}

// Has reports whether round r was observed for the contest
func (r RoundRegistry) Has(year int, typ ElectionType, round Round) bool {
	set, ok := r.rounds[contestKey{year: year, typ: typ}]
	if !ok {
		return false
	}
	_, ok = set[round]
	return ok
}

// RoundCount returns how many distinct rounds were observed for the contest
func (r RoundRegistry) RoundCount(year int, typ ElectionType) int {
	return len(r.rounds[contestKey{year: year, typ: typ}])
}

// Rounds returns the observed rounds of a contest in ascending order
func (r RoundRegistry) Rounds(year int, typ ElectionType) []Round {
	set := r.rounds[contestKey{year: year, typ: typ}]
	out := make([]Round, 0, len(set))
	for round := range set {
		out = append(out, round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of contests in the registry
func (r RoundRegistry) Len() int {
	return len(r.rounds)
}
