package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair(t *testing.T) {
	registry := BuildRegistry(ids(t, "2024_legi_t1", "2024_legi_t2", "2020_muni_t1", "2019_euro"))

	t.Run("FirstRoundWithSecond", func(t *testing.T) {
		p := Pair(MustParseIdentifier("2024_legi_t1"), registry)
		assert.True(t, p.IsFirstRoundWithSecond)
		assert.False(t, p.IsSecondRoundWithFirst)
		assert.Equal(t, "2024_legi_t2", p.PairedID())
		assert.Equal(t, "Résultats au 2nd tour", p.OtherRoundLabel())
	})

	t.Run("SecondRoundWithFirst", func(t *testing.T) {
		p := Pair(MustParseIdentifier("2024_legi_t2"), registry)
		assert.False(t, p.IsFirstRoundWithSecond)
		assert.True(t, p.IsSecondRoundWithFirst)
		assert.Equal(t, "2024_legi_t1", p.PairedID())
		assert.Equal(t, "Résultats au 1er tour", p.OtherRoundLabel())
	})

	t.Run("FirstRoundDecided", func(t *testing.T) {
		p := Pair(MustParseIdentifier("2020_muni_t1"), registry)
		assert.False(t, p.HasPair())
		assert.Equal(t, RoundPairing{}, p)
		assert.Equal(t, "", p.OtherRoundLabel())
	})

	t.Run("NoRound", func(t *testing.T) {
		p := Pair(MustParseIdentifier("2019_euro"), registry)
		assert.Equal(t, RoundPairing{}, p)
		assert.Equal(t, "", p.PairedID())
	})

	t.Run("UnknownRoundToken", func(t *testing.T) {
		p := Pair(MustParseIdentifier("2024_legi_t3"), registry)
		assert.False(t, p.HasPair())
	})
}

func TestPairIsInvolution(t *testing.T) {
	registry := BuildRegistry(ids(t, "2022_pres_t1", "2022_pres_t2"))
	for _, s := range []string{"2022_pres_t1", "2022_pres_t2"} {
		id := MustParseIdentifier(s)
		first := Pair(id, registry)
		require.True(t, first.HasPair())
		back := Pair(*first.Paired, registry)
		require.True(t, back.HasPair())
		assert.Equal(t, id, *back.Paired)
	}
}
