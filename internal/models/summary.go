package models

import "time"

// CategoryTotal is the balance of one category root over a date range
type CategoryTotal struct {
	Category      Category `json:"category"`
	Account       string   `json:"account"`
	EndBalance    float64  `json:"end_balance"`
	Change        float64  `json:"change"`
	PreviousDelta float64  `json:"previous_change"`
	ChangePct     float64  `json:"change_pct"`
}

// Summary contains the headline figures shown above the chart
type Summary struct {
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Totals    []CategoryTotal `json:"totals"`
	NetWorth  float64         `json:"net_worth"`
	NetIncome float64         `json:"net_income"`
	Postings  int             `json:"postings"`
}
