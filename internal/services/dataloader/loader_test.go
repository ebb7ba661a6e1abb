package dataloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerviz/internal/services/storage"
)

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Date", "Date"},
		{"date", "Date"},
		{"DATE", "Date"},
		{"Transaction Date", "Date"},
		{"Posting Date", "Date"},

		{"Account", "Account"},
		{"account name", "Account"},
		{"Acct", "Account"},

		{"Description", "Description"},
		{"Memo", "Description"},
		{"Payee", "Description"},
		{"Narration", "Description"},

		{"Amount", "Amount"},
		{"VALUE", "Amount"},
		{"Posting Amount", "Amount"},

		{"Debit", "Debit"},
		{"Withdrawal", "Debit"},
		{"Credit", "Credit"},
		{"Money In", "Credit"},

		{"Balance", "Balance"},
		{"  Commodity ", "Commodity"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeColumnName(tt.input))
		})
	}
}

func TestBuildColumnIndex(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		expected map[string]int
	}{
		{
			name:   "standard columns",
			header: []string{"Date", "Account", "Amount", "Description"},
			expected: map[string]int{
				"Date":        0,
				"Account":     1,
				"Amount":      2,
				"Description": 3,
			},
		},
		{
			name:   "aliases",
			header: []string{"Posting Date", "Account Name", "Value", "Memo"},
			expected: map[string]int{
				"Date":        0,
				"Account":     1,
				"Amount":      2,
				"Description": 3,
			},
		},
		{
			name:   "first match wins",
			header: []string{"Date", "Transaction Date", "Account", "Amount"},
			expected: map[string]int{
				"Date":    0,
				"Account": 2,
				"Amount":  3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildColumnIndex(tt.header)
			for key, idx := range tt.expected {
				assert.Equal(t, idx, result[key], "column %q", key)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"100.00", "100", false},
		{"-42.5", "-42.5", false},
		{"$1,234.56", "1234.56", false},
		{"(75.10)", "-75.1", false},
		{"", "0", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestParseDebitCredit(t *testing.T) {
	colIndex := map[string]int{"Date": 0, "Account": 1, "Debit": 2, "Credit": 3}

	tests := []struct {
		name     string
		record   []string
		expected string
	}{
		{"credit only", []string{"2024-01-01", "Assets:Bank", "", "100.00"}, "100"},
		{"debit only", []string{"2024-01-01", "Assets:Bank", "50.00", ""}, "-50"},
		{"debit with currency symbol", []string{"2024-01-01", "Assets:Bank", "$75.50", ""}, "-75.5"},
		{"both empty", []string{"2024-01-01", "Assets:Bank", "", ""}, "0"},
		{"debit already negative", []string{"2024-01-01", "Assets:Bank", "-50.00", ""}, "-50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDebitCredit(tt.record, colIndex)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestParsePostings(t *testing.T) {
	tests := []struct {
		name           string
		csvContent     string
		expectedCount  int
		expectedAmount string
		errorContains  string
	}{
		{
			name: "standard format",
			csvContent: `Date,Account,Amount,Description
2024-01-15,Expenses:Food,50.00,Grocery Store
2024-01-15,Assets:Checking,-50.00,Grocery Store`,
			expectedCount:  2,
			expectedAmount: "50",
		},
		{
			name: "debit credit format",
			csvContent: `Posted Date,Account,Debit,Credit
2024-01-15,Assets:Checking,50.00,
2024-01-16,Assets:Checking,,3000.00`,
			expectedCount:  2,
			expectedAmount: "-50",
		},
		{
			name: "bad rows skipped",
			csvContent: `date,account,amount
not-a-date,Assets:Checking,1
2024-01-15,,1
2024-01-15,Assets:Checking,xyz
2024-01-15,Assets:Checking,12.34`,
			expectedCount:  1,
			expectedAmount: "12.34",
		},
		{
			name: "missing date column",
			csvContent: `Account,Amount
Assets:Checking,-50.00`,
			errorContains: "Date",
		},
		{
			name: "missing account column",
			csvContent: `Date,Amount
2024-01-15,-50.00`,
			errorContains: "Account",
		},
		{
			name: "missing amount and debit/credit",
			csvContent: `Date,Account
2024-01-15,Assets:Checking`,
			errorContains: "Amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postings, err := parsePostings(strings.NewReader(tt.csvContent), "test.csv")
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			require.Len(t, postings, tt.expectedCount)
			assert.True(t, decimal.RequireFromString(tt.expectedAmount).Equal(postings[0].Amount))
			assert.Equal(t, "test.csv", postings[0].SourceFile)
			assert.NotEmpty(t, postings[0].Hash)
		})
	}
}

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDataBuildsBalances(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2024-01.csv", `Date,Account,Amount,Description
2024-01-05,Income:Salary,-1000,Pay
2024-01-05,Assets:Checking,1000,Pay
2024-01-10,Expenses:Rent,400,Rent
2024-01-10,Assets:Checking,-400,Rent
`)
	// overlaps the previous export by one transaction
	writeExport(t, dir, "2024-01b.csv", `Date,Account,Amount,Description
2024-01-10,Expenses:Rent,400,Rent
2024-01-10,Assets:Checking,-400,Rent
2024-01-20,Expenses:Food,25.5,Lunch
2024-01-20,Assets:Checking,-25.5,Lunch
`)

	store, err := storage.New(dir)
	require.NoError(t, err)
	loader := New(store)

	ledger, err := loader.LoadData()
	require.NoError(t, err)

	assert.Equal(t, 6, ledger.Len())
	assert.Equal(t, 2, loader.DuplicateCount())
	assert.Equal(t, []string{
		"Assets", "Assets:Checking",
		"Expenses", "Expenses:Food", "Expenses:Rent",
		"Income", "Income:Salary",
	}, ledger.AllAccounts)

	assert.Equal(t, []string{"2024-01-05", "2024-01-10", "2024-01-20"}, ledger.Balances.Dates())
	assert.InDelta(t, 574.5, ledger.Balances["2024-01-20"]["Assets:Checking"], 1e-9)
	assert.InDelta(t, 425.5, ledger.Balances["2024-01-20"]["Expenses"], 1e-9)
	assert.InDelta(t, -1000, ledger.Balances["2024-01-10"]["Income"], 1e-9)
}

func TestDisabledFiles(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.csv", "Date,Account,Amount\n2024-01-01,Assets:Cash,1\n")
	writeExport(t, dir, "b.csv", "Date,Account,Amount\n2024-02-01,Assets:Cash,2\n2024-03-01,Assets:Cash,3\n")

	store, err := storage.New(dir)
	require.NoError(t, err)
	loader := New(store)
	loader.SetDisabledFiles([]string{"a.csv"})

	postings, err := loader.LoadPostings()
	require.NoError(t, err)
	assert.Len(t, postings, 2)

	infos, err := loader.GetFileInfo()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a.csv", infos[0].Name)
	assert.False(t, infos[0].Enabled)
	assert.True(t, infos[1].Enabled)
	assert.Equal(t, 2, infos[1].Postings)
	assert.Equal(t, "2024-02-01", infos[1].MinDate)
	assert.Equal(t, "2024-03-01", infos[1].MaxDate)
}

func TestLoadLockedStorage(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.csv", "Date,Account,Amount\n2024-01-01,Assets:Cash,1\n")

	store, err := storage.New(dir)
	require.NoError(t, err)
	require.NoError(t, store.EnableEncryption("testpassword123"))
	store.Lock()

	_, err = New(store).LoadData()
	assert.ErrorIs(t, err, storage.ErrLocked)
}
