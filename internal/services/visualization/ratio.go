package visualization

import (
	"math"
	"strconv"

	"ledgerviz/internal/models"
	"ledgerviz/internal/services/balance"
	"ledgerviz/internal/services/classifier"
)

// RemainderAccount names the slice left over after all outflows
const RemainderAccount = "Remaining"

// ComputeBalanceRatio folds the percent data of each account into pie
// slices. Income and asset accounts add to the baseline; each expense or
// liability account becomes a slice labelled with its share of the
// baseline. A final slice holds baseline minus the outflow total.
//
// A zero baseline is not guarded against: the labels then read
// "Infinity%" or "NaN%".
func ComputeBalanceRatio(accts []string, data [][]models.AccountBalance, c *classifier.Classifier) *models.BalanceRatio {
	ratio := &models.BalanceRatio{
		Labels: []string{},
		Series: []float64{},
		Slices: []models.Slice{},
	}

	var inBalance float64
	for i, account := range accts {
		if c.Classify(account).IsBaseline() {
			inBalance += balance.Magnitude(data[i])
		}
	}

	var outBalance float64
	for i, account := range accts {
		cat := c.Classify(account)
		if !cat.IsOutflow() {
			continue
		}

		magnitude := balance.Magnitude(data[i])
		label := FormatPercent(magnitude / inBalance * 100)

		ratio.Series = append(ratio.Series, magnitude)
		ratio.Labels = append(ratio.Labels, label)
		ratio.Slices = append(ratio.Slices, models.Slice{
			Account:  account,
			Category: string(cat),
			Value:    magnitude,
			Label:    label,
		})
		outBalance += magnitude
	}

	remainder := inBalance - outBalance
	label := FormatPercent(remainder / inBalance * 100)
	ratio.Series = append(ratio.Series, remainder)
	ratio.Labels = append(ratio.Labels, label)
	ratio.Slices = append(ratio.Slices, models.Slice{
		Account:   RemainderAccount,
		Value:     remainder,
		Label:     label,
		Remainder: true,
	})

	ratio.Baseline = inBalance
	ratio.Out = outBalance
	return ratio
}

// FormatPercent renders v with two decimals and a trailing %. Non-finite
// values are spelled out the way a browser would print them.
func FormatPercent(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN%"
	case math.IsInf(v, 1):
		return "Infinity%"
	case math.IsInf(v, -1):
		return "-Infinity%"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
