package election

import (
	"encoding/json"
	"math"
)

// Metric is a summed figure that may be unavailable because the source
// column is absent. An unavailable metric is not the same as zero.
type Metric struct {
	Value float64
	Valid bool
}

// Available wraps v as a valid metric
func Available(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Int returns the value truncated toward zero
func (m Metric) Int() int64 {
	return int64(math.Trunc(m.Value))
}

// MarshalJSON encodes an unavailable metric as null
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as an unavailable metric
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Metric{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Available(v)
	return nil
}

// GeneralResultRow is one polling place's general results for one election.
// Each field is unavailable when the source omits the column.
type GeneralResultRow struct {
	Registered  Metric
	Abstentions Metric
	Voters      Metric
	Blank       Metric
	Null        Metric
	Expressed   Metric
}

// Field names a participation metric, using the source column names
type Field string

const (
	FieldRegistered  Field = "Inscrits"
	FieldAbstentions Field = "Abstentions"
	FieldVoters      Field = "Votants"
	FieldBlank       Field = "Blancs"
	FieldNull        Field = "Nuls"
	FieldExpressed   Field = "Exprimés"
)

// Fields lists the participation metrics in display order
var Fields = []Field{
	FieldRegistered,
	FieldAbstentions,
	FieldVoters,
	FieldBlank,
	FieldNull,
	FieldExpressed,
}

// Totals holds the participation sums of one election over all polling places
type Totals struct {
	Registered     Metric  `json:"registered"`
	Abstentions    Metric  `json:"abstentions"`
	Voters         Metric  `json:"voters"`
	Blank          Metric  `json:"blank"`
	Null           Metric  `json:"null"`
	Expressed      Metric  `json:"expressed"`
	CandidateVotes float64 `json:"candidate_votes"`
}

// Get returns the metric for field f
func (t Totals) Get(f Field) Metric {
	switch f {
	case FieldRegistered:
		return t.Registered
	case FieldAbstentions:
		return t.Abstentions
	case FieldVoters:
		return t.Voters
	case FieldBlank:
		return t.Blank
	case FieldNull:
		return t.Null
	case FieldExpressed:
		return t.Expressed
	}
	return Metric{}
}

func (r GeneralResultRow) get(f Field) Metric {
	return Totals{
		Registered:  r.Registered,
		Abstentions: r.Abstentions,
		Voters:      r.Voters,
		Blank:       r.Blank,
		Null:        r.Null,
		Expressed:   r.Expressed,
	}.Get(f)
}

// ComputeTotals sums each metric over rows. A metric is available when at
// least one row carries it; rows without it contribute nothing.
func ComputeTotals(rows []GeneralResultRow) Totals {
	return Totals{
		Registered:  sumField(rows, FieldRegistered),
		Abstentions: sumField(rows, FieldAbstentions),
		Voters:      sumField(rows, FieldVoters),
		Blank:       sumField(rows, FieldBlank),
		Null:        sumField(rows, FieldNull),
		Expressed:   sumField(rows, FieldExpressed),
	}
}

func sumField(rows []GeneralResultRow, f Field) Metric {
	var total Metric
	for _, row := range rows {
		m := row.get(f)
		if !m.Valid {
			continue
		}
		total.Value += m.Value
		total.Valid = true
	}
	return total
}

// ComputeDelta returns current minus previous for every metric available on
// both sides. Both values are truncated to integers before subtracting.
func ComputeDelta(current, previous Totals) map[Field]int64 {
	delta := make(map[Field]int64, len(Fields))
	for _, f := range Fields {
		cur, prev := current.Get(f), previous.Get(f)
		if !cur.Valid || !prev.Valid {
			continue
		}
		delta[f] = cur.Int() - prev.Int()
	}
	return delta
}

// CrossCheck reports whether the candidate vote sum matches the expressed
// ballots sum. A mismatch is a data-quality warning, never fatal.
func CrossCheck(candidateTotalVotes, generalExpressedTotal float64) bool {
	return candidateTotalVotes == generalExpressedTotal
}
