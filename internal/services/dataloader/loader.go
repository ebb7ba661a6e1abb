// Package dataloader reads ledger posting exports from the data directory
// and turns them into a daily balance map.
package dataloader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledgerviz/internal/logging"
	"ledgerviz/internal/models"
	"ledgerviz/internal/services/accounts"
	"ledgerviz/internal/services/balance"
	"ledgerviz/internal/services/storage"
)

// DataLoader loads posting exports (*.csv) through the storage layer. It is
// safe for concurrent use.
type DataLoader struct {
	store *storage.Storage

	mu             sync.RWMutex
	disabledFiles  map[string]bool
	duplicateCount int
}

// columnMappings maps export column names, lower-cased, to the standard
// column they feed
var columnMappings = map[string][]string{
	"Date": {
		"date", "transaction date", "posted date", "post date",
		"trans date", "posting date", "value date",
	},
	"Account": {
		"account", "account name", "posting account", "acct", "ledger account",
	},
	"Description": {
		"description", "memo", "details", "payee", "narration",
		"narrative", "transaction description",
	},
	"Amount": {
		"amount", "value", "transaction amount", "posting amount", "sum",
	},
	"Debit": {
		"debit", "withdrawal", "withdrawals", "money out",
	},
	"Credit": {
		"credit", "deposit", "deposits", "money in",
	},
}

// dateFormats are tried in order when parsing the Date column
var dateFormats = []string{
	models.DateFormat,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// New creates a DataLoader reading from store's data directory
func New(store *storage.Storage) *DataLoader {
	return &DataLoader{
		disabledFiles: make(map[string]bool),
		store:         store,
	}
}

// normalizeColumnName maps an export column name to its standard name.
// Unknown columns are returned trimmed but otherwise unchanged.
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	lower := strings.ToLower(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if lower == variant {
				return standard
			}
		}
	}
	return col
}

// buildColumnIndex maps standard column names to header positions; the
// first matching column wins
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(col)
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// SetDisabledFiles excludes the named files from loading; every other
// export, including ones added later, is loaded
func (dl *DataLoader) SetDisabledFiles(files []string) {
	disabled := make(map[string]bool, len(files))
	for _, f := range files {
		disabled[f] = true
	}

	dl.mu.Lock()
	dl.disabledFiles = disabled
	dl.mu.Unlock()
}

func (dl *DataLoader) isEnabled(filename string) bool {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return !dl.disabledFiles[filename]
}

// DuplicateCount returns how many postings the last load dropped as
// duplicates
func (dl *DataLoader) DuplicateCount() int {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.duplicateCount
}

func (dl *DataLoader) files() ([]string, error) {
	files, err := dl.store.Glob("*.csv")
	if err != nil {
		return nil, fmt.Errorf("find ledger exports: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadPostings reads every enabled export. Postings repeated in a later
// file because exports overlap are dropped.
func (dl *DataLoader) LoadPostings() ([]models.Posting, error) {
	files, err := dl.files()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	duplicates := 0
	var all []models.Posting

	for _, file := range files {
		filename := filepath.Base(file)
		if !dl.isEnabled(filename) {
			logging.Log.Debug("skipping disabled file", zap.String("file", filename))
			continue
		}

		postings, err := dl.loadCSVFile(file)
		if errors.Is(err, storage.ErrLocked) {
			return nil, err
		}
		if err != nil {
			logging.Log.Warn("failed to load ledger export", zap.String("file", filename), zap.Error(err))
			continue
		}

		inFile := make(map[string]int)
		for _, p := range postings {
			inFile[p.Hash]++
			if inFile[p.Hash] <= seen[p.Hash] {
				duplicates++
				continue
			}
			all = append(all, p)
		}
		for hash, n := range inFile {
			if n > seen[hash] {
				seen[hash] = n
			}
		}

		logging.Log.Debug("loaded ledger export",
			zap.String("file", filename),
			zap.Int("postings", len(postings)))
	}

	dl.mu.Lock()
	dl.duplicateCount = duplicates
	dl.mu.Unlock()

	if duplicates > 0 {
		logging.Log.Info("removed duplicate postings", zap.Int("count", duplicates))
	}
	return all, nil
}

// LoadData loads all enabled exports and derives the daily balance map and
// the full account list, ancestors included
func (dl *DataLoader) LoadData() (*models.Ledger, error) {
	postings, err := dl.LoadPostings()
	if err != nil {
		return nil, err
	}
	return BuildLedger(postings), nil
}

// BuildLedger derives balances and accounts from postings
func BuildLedger(postings []models.Posting) *models.Ledger {
	ledger := &models.Ledger{Postings: postings}
	ledger.SortByDate()

	names := make([]string, 0, len(postings))
	for _, p := range ledger.Postings {
		names = append(names, p.Account)
	}

	changes := balance.MakeDailyAccountBalanceChangeMap(ledger.Postings)
	ledger.Balances = balance.MakeDailyBalanceMap(changes)
	ledger.AllAccounts = accounts.WithAncestors(names)
	return ledger
}

// loadCSVFile parses a single export
func (dl *DataLoader) loadCSVFile(filePath string) ([]models.Posting, error) {
	file, err := dl.store.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parsePostings(file, filepath.Base(filePath))
}

func parsePostings(r io.Reader, sourceFile string) ([]models.Posting, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIndex := buildColumnIndex(header)

	_, hasAmount := colIndex["Amount"]
	_, hasDebit := colIndex["Debit"]
	_, hasCredit := colIndex["Credit"]
	useDebitCredit := !hasAmount && (hasDebit || hasCredit)

	if _, ok := colIndex["Date"]; !ok {
		return nil, fmt.Errorf("missing required column: Date (tried: %v)", columnMappings["Date"])
	}
	if _, ok := colIndex["Account"]; !ok {
		return nil, fmt.Errorf("missing required column: Account (tried: %v)", columnMappings["Account"])
	}
	if !hasAmount && !useDebitCredit {
		return nil, fmt.Errorf("missing required column: Amount or Debit/Credit (tried: %v)", columnMappings["Amount"])
	}

	var postings []models.Posting
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			logging.Log.Warn("unreadable line", zap.String("file", sourceFile), zap.Int("line", lineNum), zap.Error(err))
			continue
		}

		p := models.Posting{SourceFile: sourceFile}

		dateStr := field(record, colIndex, "Date")
		p.Date = parseDate(dateStr)
		if p.Date.IsZero() {
			logging.Log.Warn("unparseable date", zap.String("file", sourceFile), zap.Int("line", lineNum), zap.String("value", dateStr))
			continue
		}

		p.Account = field(record, colIndex, "Account")
		if p.Account == "" {
			logging.Log.Warn("missing account", zap.String("file", sourceFile), zap.Int("line", lineNum))
			continue
		}

		if useDebitCredit {
			p.Amount = parseDebitCredit(record, colIndex)
		} else {
			amountStr := field(record, colIndex, "Amount")
			p.Amount, err = parseAmount(amountStr)
			if err != nil {
				logging.Log.Warn("unparseable amount", zap.String("file", sourceFile), zap.Int("line", lineNum), zap.String("value", amountStr))
				continue
			}
		}

		p.Description = field(record, colIndex, "Description")
		p.Hash = p.ComputeHash()
		postings = append(postings, p)
	}

	return postings, nil
}

// field returns the trimmed value of the named column, or "" when the
// column is absent or the record is short
func field(record []string, colIndex map[string]int, name string) string {
	idx, ok := colIndex[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseDebitCredit combines Debit and Credit columns into one signed
// amount: credits positive, debits negative
func parseDebitCredit(record []string, colIndex map[string]int) decimal.Decimal {
	amount := decimal.Zero

	if credit, err := parseAmount(field(record, colIndex, "Credit")); err == nil && !credit.IsZero() {
		amount = credit.Abs()
	}
	if debit, err := parseAmount(field(record, colIndex, "Debit")); err == nil && !debit.IsZero() {
		amount = debit.Abs().Neg()
	}

	return amount
}

// parseDate tries each of dateFormats
func parseDate(s string) time.Time {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseAmount parses an amount, accepting currency symbols, thousands
// separators and accounting-style parentheses for negatives. An empty
// string is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	return decimal.NewFromString(s)
}

// GetFileInfo describes every export in the data directory
func (dl *DataLoader) GetFileInfo() ([]models.FileInfo, error) {
	files, err := dl.files()
	if err != nil {
		return nil, err
	}

	var infos []models.FileInfo
	for _, file := range files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}

		filename := filepath.Base(file)
		info := models.FileInfo{
			Name:    filename,
			Path:    file,
			Size:    stat.Size(),
			Enabled: dl.isEnabled(filename),
		}

		if postings, err := dl.loadCSVFile(file); err == nil {
			l := models.Ledger{Postings: postings}
			info.Postings = l.Len()
			if l.Len() > 0 {
				info.MinDate = l.MinDate().Format(models.DateFormat)
				info.MaxDate = l.MaxDate().Format(models.DateFormat)
			}
		}

		infos = append(infos, info)
	}

	return infos, nil
}
