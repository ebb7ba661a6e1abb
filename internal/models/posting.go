package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the layout used for balance map keys and bucket labels
const DateFormat = "2006-01-02"

// AccountSeparator separates the segments of an account path
const AccountSeparator = ":"

// Posting is a single account movement exported from the ledger
type Posting struct {
	Date        time.Time       `json:"date"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SourceFile  string          `json:"source_file"`
	Hash        string          `json:"hash"`
}

// ComputeHash generates a unique hash for duplicate detection
func (p *Posting) ComputeHash() string {
	dateStr := p.Date.Format(DateFormat)
	desc := strings.ToLower(strings.TrimSpace(p.Description))
	amount := p.Amount.StringFixed(2)

	input := fmt.Sprintf("%s|%s|%s|%s", dateStr, p.Account, desc, amount)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// Ledger is the loaded data set: raw postings plus the derived balance map
type Ledger struct {
	Postings    []Posting  `json:"-"`
	Balances    BalanceMap `json:"daily_account_balance_map"`
	AllAccounts []string   `json:"all_accounts"`
}

// Len returns the number of postings
func (l *Ledger) Len() int {
	return len(l.Postings)
}

// MinDate returns the earliest posting date
func (l *Ledger) MinDate() time.Time {
	if len(l.Postings) == 0 {
		return time.Time{}
	}
	minDate := l.Postings[0].Date
	for _, p := range l.Postings[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}
	}
	return minDate
}

// MaxDate returns the latest posting date
func (l *Ledger) MaxDate() time.Time {
	if len(l.Postings) == 0 {
		return time.Time{}
	}
	maxDate := l.Postings[0].Date
	for _, p := range l.Postings[1:] {
		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}
	return maxDate
}

// SortByDate orders postings chronologically, keeping file order for ties
func (l *Ledger) SortByDate() {
	sort.SliceStable(l.Postings, func(i, j int) bool {
		return l.Postings[i].Date.Before(l.Postings[j].Date)
	})
}

// FileInfo describes a ledger export in the data directory
type FileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Enabled  bool   `json:"enabled"`
	Postings int    `json:"postings"`
	MinDate  string `json:"min_date"`
	MaxDate  string `json:"max_date"`
}
