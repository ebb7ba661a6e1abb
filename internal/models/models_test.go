package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChartMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ChartMode
		wantErr bool
	}{
		{"balance", ModeBalance, false},
		{"PnL", ModePnL, false},
		{" percent ", ModePercent, false},
		{"radar", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseChartMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeTitles(t *testing.T) {
	assert.Equal(t, "Account Balance", ModeBalance.Title())
	assert.Equal(t, "Profit and Loss", ModePnL.Title())
	assert.Equal(t, "Pie Chart", ModePercent.Title())
	assert.Equal(t, "other", ChartMode("other").Title())
	assert.Len(t, ModeOptions(), 3)
}

func TestModeSelector(t *testing.T) {
	s := NewModeSelector()
	assert.Equal(t, ModeBalance, s.Current())

	require.NoError(t, s.Select("PERCENT"))
	assert.Equal(t, ModePercent, s.Current())

	assert.ErrorIs(t, s.Select("scatter"), ErrUnknownMode)
	assert.Equal(t, ModePercent, s.Current(), "failed select keeps the mode")
}

func TestParseInterval(t *testing.T) {
	for _, i := range Intervals() {
		got, err := ParseInterval(string(i))
		require.NoError(t, err)
		assert.Equal(t, i, got)
		assert.True(t, i.Valid())
	}

	got, err := ParseInterval(" Month ")
	require.NoError(t, err)
	assert.Equal(t, Month, got)

	_, err = ParseInterval("fortnight")
	assert.ErrorIs(t, err, ErrUnknownInterval)
	assert.False(t, Interval("fortnight").Valid())
}

func TestChartistData(t *testing.T) {
	line := &ChartView{
		Type:   ChartLine,
		Labels: []string{"2024-01-01", "2024-02-01"},
		Series: []Series{
			{Name: "Income", Data: []float64{-1, -2}},
			{Name: "Expenses", Data: []float64{3, 4}},
		},
	}
	data := line.ChartistData()
	assert.Equal(t, []string{"2024-01-01", "2024-02-01"}, data["labels"])
	assert.Equal(t, [][]float64{{-1, -2}, {3, 4}}, data["series"])

	pie := &ChartView{
		Type:  ChartPie,
		Ratio: &BalanceRatio{Labels: []string{"25.00%"}, Series: []float64{25}},
	}
	data = pie.ChartistData()
	assert.Equal(t, []string{"25.00%"}, data["labels"])
	assert.Equal(t, []float64{25}, data["series"])
}

func TestCategories(t *testing.T) {
	assert.True(t, Income.IsBaseline())
	assert.True(t, Assets.IsBaseline())
	assert.True(t, Expenses.IsOutflow())
	assert.True(t, Liabilities.IsOutflow())
	assert.False(t, Uncategorized.IsBaseline())
	assert.False(t, Uncategorized.IsOutflow())

	names := DefaultCategoryNames()
	for _, c := range Categories() {
		assert.Equal(t, string(c), names.Root(c))
	}
	assert.Empty(t, names.Root(Uncategorized))
}

func TestLedgerDates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	empty := &Ledger{}
	assert.True(t, empty.MinDate().IsZero())
	assert.True(t, empty.MaxDate().IsZero())

	l := &Ledger{Postings: []Posting{
		{Date: day(5), Account: "b"},
		{Date: day(2), Account: "a"},
		{Date: day(5), Account: "c"},
	}}
	assert.Equal(t, day(2), l.MinDate())
	assert.Equal(t, day(5), l.MaxDate())

	l.SortByDate()
	assert.Equal(t, "a", l.Postings[0].Account)
	assert.Equal(t, "b", l.Postings[1].Account, "ties keep file order")
	assert.Equal(t, "c", l.Postings[2].Account)
}

func TestComputeHash(t *testing.T) {
	p := Posting{
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Account:     "Expenses:Food",
		Amount:      decimal.RequireFromString("12.5"),
		Description: " Groceries ",
	}
	q := p
	q.Description = "groceries"
	q.Amount = decimal.RequireFromString("12.50")
	assert.Equal(t, p.ComputeHash(), q.ComputeHash())
	assert.Len(t, p.ComputeHash(), 16)

	q.Account = "Expenses:Rent"
	assert.NotEqual(t, p.ComputeHash(), q.ComputeHash())
}

func TestBalanceMapDates(t *testing.T) {
	m := BalanceMap{"2024-02-01": {}, "2023-12-31": {}, "2024-01-15": {}}
	assert.Equal(t, []string{"2023-12-31", "2024-01-15", "2024-02-01"}, m.Dates())
}
