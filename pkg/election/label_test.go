package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLabel(t *testing.T) {
	t.Run("TwoRounds", func(t *testing.T) {
		registry := BuildRegistry(ids(t, "2024_legi_t1", "2024_legi_t2"))
		assert.Equal(t, "Législatives 2024 T2", FormatLabel(MustParseIdentifier("2024_legi_t2"), registry))
		assert.Equal(t, "Législatives 2024 T1", FormatLabel(MustParseIdentifier("2024_legi_t1"), registry))
	})

	t.Run("SingleRoundOmitsRound", func(t *testing.T) {
		registry := BuildRegistry(ids(t, "2024_legi_t2"))
		assert.Equal(t, "Législatives 2024", FormatLabel(MustParseIdentifier("2024_legi_t2"), registry))
	})

	t.Run("NoRound", func(t *testing.T) {
		registry := BuildRegistry(ids(t, "2019_euro"))
		assert.Equal(t, "Européennes 2019", FormatLabel(MustParseIdentifier("2019_euro"), registry))
	})

	t.Run("UnknownRoundTokenTrimmed", func(t *testing.T) {
		registry := BuildRegistry(ids(t, "2020_muni_t1", "2020_muni_t3"))
		assert.Equal(t, "Municipales 2020", FormatLabel(MustParseIdentifier("2020_muni_t3"), registry))
	})

	t.Run("MissingFromRegistry", func(t *testing.T) {
		assert.Equal(t, "Présidentielle 2022 T1", FormatLabel(MustParseIdentifier("2022_pres_t1"), RoundRegistry{}))
	})
}
