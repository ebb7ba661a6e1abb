package visualization

import (
	"fmt"

	"ledgerviz/internal/models"
)

// Legend returns one entry per account, indexed in series order
func Legend(accts []string) []models.LegendEntry {
	entries := make([]models.LegendEntry, len(accts))
	for i, account := range accts {
		entries[i] = models.LegendEntry{
			Account:   account,
			Index:     i,
			ClassName: fmt.Sprintf("ct-series-%d", i),
		}
	}
	return entries
}
