package election

import (
	"fmt"
	"strings"
)

// FormatLabel renders the display label of an election. The round is
// omitted when the registry holds a single round for the contest, whichever
// round that is. Unknown round tokens render as an empty suffix.
func FormatLabel(id Identifier, registry RoundRegistry) string {
	if registry.RoundCount(id.Year, id.Type) == 1 {
		return fmt.Sprintf("%s %d", id.Type.Label(), id.Year)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %d %s", id.Type.Label(), id.Year, id.Round.Label()))
}
