package autopilot

import "strings"

// Constraints narrow the watch-list before evaluation. Exclusions are the
// operator's call and are applied before any evaluator spends a token.
type Constraints struct {
	ExcludeSymbols []string `json:"exclude_symbols,omitempty"`
	ExcludeSectors []string `json:"exclude_sectors,omitempty"`
}

// Filter returns the watch-list symbols that pass the constraints. sectorOf
// resolves a symbol's sector for sector exclusions.
func (c Constraints) Filter(watchlist []string, sectorOf func(string) string) []string {
	blockedSymbols := toUpperSet(c.ExcludeSymbols)
	blockedSectors := toUpperSet(c.ExcludeSectors)

	out := make([]string, 0, len(watchlist))
	for _, symbol := range watchlist {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || blockedSymbols[symbol] {
			continue
		}
		if len(blockedSectors) > 0 && sectorOf != nil &&
			blockedSectors[strings.ToUpper(sectorOf(symbol))] {
			continue
		}
		out = append(out, symbol)
	}
	return out
}

func toUpperSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			set[item] = true
		}
	}
	return set
}
