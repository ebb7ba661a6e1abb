// Package balance turns ledger postings into daily balance snapshots and
// derives per-bucket chart series from them.
package balance

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"ledgerviz/internal/models"
	"ledgerviz/internal/services/accounts"
)

// ChangeMap maps a date key to the net change of every account touched on
// that day. Changes are propagated to all ancestor accounts.
type ChangeMap map[string]map[string]decimal.Decimal

// MakeDailyAccountBalanceChangeMap sums postings per day and account
func MakeDailyAccountBalanceChangeMap(postings []models.Posting) ChangeMap {
	changes := make(ChangeMap)

	for _, p := range postings {
		if p.Account == "" || p.Date.IsZero() {
			continue
		}
		day := p.Date.Format(models.DateFormat)
		if changes[day] == nil {
			changes[day] = make(map[string]decimal.Decimal)
		}

		amount := p.Amount
		changes[day][p.Account] = changes[day][p.Account].Add(amount)
		for _, parent := range accounts.Ancestors(p.Account) {
			changes[day][parent] = changes[day][parent].Add(amount)
		}
	}

	return changes
}

// MakeDailyBalanceMap accumulates daily changes into cumulative snapshots.
// Every day present in changes gets a snapshot containing all accounts seen
// so far.
func MakeDailyBalanceMap(changes ChangeMap) models.BalanceMap {
	days := make([]string, 0, len(changes))
	for d := range changes {
		days = append(days, d)
	}
	sort.Strings(days)

	running := make(map[string]decimal.Decimal)
	result := make(models.BalanceMap, len(days))

	for _, day := range days {
		for account, change := range changes[day] {
			running[account] = running[account].Add(change)
		}

		snapshot := make(map[string]float64, len(running))
		for account, bal := range running {
			snapshot[account] = bal.InexactFloat64()
		}
		result[day] = snapshot
	}

	return result
}

// Index answers balance lookups against a BalanceMap with its dates sorted
// once up front
type Index struct {
	balances    models.BalanceMap
	dates       []string
	allAccounts []string
}

// NewIndex prepares m for repeated lookups
func NewIndex(m models.BalanceMap, allAccounts []string) *Index {
	return &Index{
		balances:    m,
		dates:       m.Dates(),
		allAccounts: allAccounts,
	}
}

// At returns the cumulative balance of account as of date. When the
// snapshot has no entry for the account itself, the balances of its leaf
// descendants from the account list are summed instead.
func (ix *Index) At(date, account string) float64 {
	// first index strictly after date
	i := sort.SearchStrings(ix.dates, date)
	if i < len(ix.dates) && ix.dates[i] == date {
		i++
	}
	if i == 0 {
		return 0
	}
	snapshot := ix.balances[ix.dates[i-1]]

	if bal, ok := snapshot[account]; ok {
		return bal
	}

	var total float64
	for _, leaf := range accounts.LeafDescendants(account, ix.allAccounts) {
		total += snapshot[leaf]
	}
	return total
}

// BalanceAt is a one-off lookup; see Index.At
func BalanceAt(m models.BalanceMap, date, account string, allAccounts []string) float64 {
	return NewIndex(m, allAccounts).At(date, account)
}

// MakeBalanceData returns the balance of account at each bucket
func MakeBalanceData(m models.BalanceMap, buckets []string, account string, allAccounts []string) []float64 {
	return NewIndex(m, allAccounts).BalanceData(buckets, account)
}

// BalanceData returns the balance of account at each bucket
func (ix *Index) BalanceData(buckets []string, account string) []float64 {
	data := make([]float64, len(buckets))
	for i, bucket := range buckets {
		data[i] = ix.At(bucket, account)
	}
	return data
}

// MakeDeltaData returns the change of account's balance over each bucket.
// The first bucket is measured from previous, the label of the bucket
// before the range starts.
func MakeDeltaData(m models.BalanceMap, previous string, buckets []string, account string, allAccounts []string) []float64 {
	return NewIndex(m, allAccounts).DeltaData(previous, buckets, account)
}

// DeltaData returns the change of account's balance over each bucket
func (ix *Index) DeltaData(previous string, buckets []string, account string) []float64 {
	data := make([]float64, len(buckets))
	prevBalance := ix.At(previous, account)

	for i, bucket := range buckets {
		current := ix.At(bucket, account)
		data[i] = current - prevBalance
		prevBalance = current
	}
	return data
}

// MakePercentData returns the per-bucket deltas of account tagged with the
// account and bucket they belong to
func MakePercentData(m models.BalanceMap, previous string, buckets []string, account string, allAccounts []string) []models.AccountBalance {
	return NewIndex(m, allAccounts).PercentData(previous, buckets, account)
}

// PercentData returns account-tagged per-bucket deltas
func (ix *Index) PercentData(previous string, buckets []string, account string) []models.AccountBalance {
	deltas := ix.DeltaData(previous, buckets, account)

	data := make([]models.AccountBalance, len(buckets))
	for i, bucket := range buckets {
		data[i] = models.AccountBalance{
			Account: account,
			Bucket:  bucket,
			Balance: deltas[i],
		}
	}
	return data
}

// Magnitude returns the absolute value of the summed balances
func Magnitude(points []models.AccountBalance) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Balance
	}
	return math.Abs(sum)
}
