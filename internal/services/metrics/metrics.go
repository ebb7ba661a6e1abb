package metrics

import (
	"math"
	"time"

	"ledgerviz/internal/models"
	"ledgerviz/internal/services/balance"
	"ledgerviz/internal/services/classifier"
)

// Service computes the headline figures shown above the chart
type Service struct {
	classifier *classifier.Classifier
}

// New creates a new metrics service
func New(c *classifier.Classifier) *Service {
	if c == nil {
		c = classifier.Default()
	}
	return &Service{classifier: c}
}

// Summarize reports, for each category root present in the ledger, its
// balance at end, its change over [start, end] and the change over the
// equally long period before start
func (s *Service) Summarize(ledger *models.Ledger, start, end time.Time) *models.Summary {
	summary := &models.Summary{
		StartDate: start,
		EndDate:   end,
		Totals:    []models.CategoryTotal{},
	}
	if ledger == nil {
		return summary
	}

	ix := balance.NewIndex(ledger.Balances, ledger.AllAccounts)

	startDay := start.Format(models.DateFormat)
	endDay := end.Format(models.DateFormat)
	beforeStart := start.AddDate(0, 0, -1).Format(models.DateFormat)
	// the day before a period of the same length that ends at beforeStart
	prevStart := start.Add(-end.Sub(start)).AddDate(0, 0, -2).Format(models.DateFormat)

	known := make(map[string]bool, len(ledger.AllAccounts))
	for _, a := range ledger.AllAccounts {
		known[a] = true
	}

	changes := make(map[models.Category]float64)
	for _, cat := range models.Categories() {
		root := s.classifier.Root(cat)
		if !known[root] {
			continue
		}

		endBalance := ix.At(endDay, root)
		opening := ix.At(beforeStart, root)
		change := endBalance - opening
		previous := opening - ix.At(prevStart, root)

		changes[cat] = change
		summary.Totals = append(summary.Totals, models.CategoryTotal{
			Category:      cat,
			Account:       root,
			EndBalance:    endBalance,
			Change:        change,
			PreviousDelta: previous,
			ChangePct:     s.PercentChange(change, previous),
		})

		if cat == models.Assets || cat == models.Liabilities {
			summary.NetWorth += endBalance
		}
	}

	// income is recorded as a negative balance, expenses as positive
	summary.NetIncome = -(changes[models.Income] + changes[models.Expenses])

	for _, p := range ledger.Postings {
		day := p.Date.Format(models.DateFormat)
		if day >= startDay && day <= endDay {
			summary.Postings++
		}
	}

	return summary
}

// PercentChange calculates the percentage change between two values
func (s *Service) PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}
