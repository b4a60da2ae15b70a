package election

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error variables for identifier parsing
var (
	ErrMalformedIdentifier = errors.New("malformed election identifier")
	ErrUnknownElectionType = errors.New("unknown election type")
)

// ElectionType is the short code used by the open-data files (e.g. "legi")
type ElectionType string

const (
	TypeCantonal     ElectionType = "cant"
	TypeDepartmental ElectionType = "dpmt"
	TypeEuropean     ElectionType = "euro"
	TypeLegislative  ElectionType = "legi"
	TypeMunicipal    ElectionType = "muni"
	TypePresidential ElectionType = "pres"
	TypeRegional     ElectionType = "regi"
)

var typeLabels = map[ElectionType]string{
	TypeCantonal:     "Cantonales",
	TypeDepartmental: "Départementales",
	TypeEuropean:     "Européennes",
	TypeLegislative:  "Législatives",
	TypeMunicipal:    "Municipales",
	TypePresidential: "Présidentielle",
	TypeRegional:     "Régionales",
}

// Label returns the French display label of the election type
func (t ElectionType) Label() string {
	return typeLabels[t]
}

// Valid reports whether t is one of the known election types
func (t ElectionType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Round is a round token as found in the data. The empty token means the
// contest has a single round.
type Round string

const (
	RoundNone   Round = ""
	RoundFirst  Round = "t1"
	RoundSecond Round = "t2"
)

var roundLabels = map[Round]string{
	RoundFirst:  "T1",
	RoundSecond: "T2",
}

// Label returns the display label of the round, or "" for unknown tokens
func (r Round) Label() string {
	return roundLabels[r]
}

// Identifier is a parsed election identifier such as "2024_legi_t2"
type Identifier struct {
	Year  int
	Type  ElectionType
	Round Round
}

// ParseIdentifier parses "{year}_{type}" or "{year}_{type}_{round}".
// Year and type are strict, the round token is kept verbatim.
func ParseIdentifier(s string) (Identifier, error) {
	parts := strings.Split(s, "_")
	if len(parts) < 2 || len(parts) > 3 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}

	year, err := parseYear(parts[0])
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %q: %v", ErrMalformedIdentifier, s, err)
	}

	electionType := ElectionType(parts[1])
	if !electionType.Valid() {
		return Identifier{}, fmt.Errorf("%w: %q in %q", ErrUnknownElectionType, parts[1], s)
	}

	id := Identifier{Year: year, Type: electionType}
	if len(parts) == 3 {
		if parts[2] == "" {
			return Identifier{}, fmt.Errorf("%w: %q: empty round", ErrMalformedIdentifier, s)
		}
		id.Round = Round(parts[2])
	}

	return id, nil
}

// MustParseIdentifier is like ParseIdentifier but panics on error
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

func parseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("year %q is not 4 digits", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("year %q is not numeric", s)
		}
	}
	return strconv.Atoi(s)
}

// String rebuilds the identifier in its source form
func (id Identifier) String() string {
	if id.Round == RoundNone {
		return fmt.Sprintf("%04d_%s", id.Year, id.Type)
	}
	return fmt.Sprintf("%04d_%s_%s", id.Year, id.Type, id.Round)
}

// WithRound returns a copy of id carrying another round token
func (id Identifier) WithRound(r Round) Identifier {
	id.Round = r
	return id
}

// HasRound reports whether the identifier carries a round token
func (id Identifier) HasRound() bool {
	return id.Round != RoundNone
}
