package election

// RoundPairing links a round of a two-round contest to its other round
type RoundPairing struct {
	IsFirstRoundWithSecond bool        `json:"is_first_round_with_second"`
	IsSecondRoundWithFirst bool        `json:"is_second_round_with_first"`
	Paired                 *Identifier `json:"-"`
}

// PairedID returns the paired identifier string, or "" when unpaired
func (p RoundPairing) PairedID() string {
	if p.Paired == nil {
		return ""
	}
	return p.Paired.String()
}

// HasPair reports whether a companion round exists
func (p RoundPairing) HasPair() bool {
	return p.Paired != nil
}

// Pair finds the companion round of id in the registry. A missing companion
// is not an error: contests decided in the first round have none.
func Pair(id Identifier, registry RoundRegistry) RoundPairing {
	switch id.Round {
	case RoundFirst:
		if registry.Has(id.Year, id.Type, RoundSecond) {
			paired := id.WithRound(RoundSecond)
			return RoundPairing{IsFirstRoundWithSecond: true, Paired: &paired}
		}
	case RoundSecond:
		if registry.Has(id.Year, id.Type, RoundFirst) {
			paired := id.WithRound(RoundFirst)
			return RoundPairing{IsSecondRoundWithFirst: true, Paired: &paired}
		}
	}
	return RoundPairing{}
}

// OtherRoundLabel is the caption of the control jumping to the paired round
func (p RoundPairing) OtherRoundLabel() string {
	switch {
	case p.IsSecondRoundWithFirst:
		return "Résultats au 1er tour"
	case p.IsFirstRoundWithSecond:
		return "Résultats au 2nd tour"
	default:
		return ""
	}
}
