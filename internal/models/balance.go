package models

import "sort"

// BalanceMap maps a date key (YYYY-MM-DD) to the balances of every account
// known on that day. Each day is a full snapshot of cumulative balances.
type BalanceMap map[string]map[string]float64

// Dates returns the map's date keys in ascending order
func (m BalanceMap) Dates() []string {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// AccountBalance is a balance tagged with the account and bucket it
// belongs to
type AccountBalance struct {
	Account string  `json:"account"`
	Bucket  string  `json:"bucket"`
	Balance float64 `json:"balance"`
}
