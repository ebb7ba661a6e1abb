// Package visualization builds chart views from a daily account balance map.
//
// Build computes the deduplicated account list and the date buckets once and
// hands them to exactly one renderer, chosen by the chart mode:
//
//   - balance: line chart of each account's balance per bucket
//   - pnl:     bar chart of each account's change per bucket
//   - percent: pie chart of expenses/liabilities as shares of income/assets
//
// Renderers never modify the props they are given.
package visualization

import (
	"fmt"
	"time"

	"ledgerviz/internal/models"
	"ledgerviz/internal/services/accounts"
	"ledgerviz/internal/services/balance"
	"ledgerviz/internal/services/classifier"
	"ledgerviz/internal/services/dates"
)

// Props is the input every renderer works from
type Props struct {
	DailyAccountBalanceMap models.BalanceMap `json:"dailyAccountBalanceMap"`
	AllAccounts            []string          `json:"allAccounts"`
	SelectedAccounts       []string          `json:"selectedAccounts"`
	StartDate              time.Time         `json:"startDate"`
	EndDate                time.Time         `json:"endDate"`
	Interval               models.Interval   `json:"interval"`
}

// Input is what the parent hands to a single renderer
type Input struct {
	Balances    *balance.Index
	AllAccounts []string
	Accounts    []string
	DateBuckets []string
	StartDate   time.Time
	Interval    models.Interval
}

// Builder dispatches props to the renderer for a mode
type Builder struct {
	classifier *classifier.Classifier
	height     string
	width      string
}

// Option configures a Builder
type Option func(*Builder)

// WithClassifier sets the account classifier used by the pie chart
func WithClassifier(c *classifier.Classifier) Option {
	return func(b *Builder) {
		b.classifier = c
	}
}

// WithSize sets the chart dimensions reported in the view options
func WithSize(width, height string) Option {
	return func(b *Builder) {
		if width != "" {
			b.width = width
		}
		if height != "" {
			b.height = height
		}
	}
}

// NewBuilder creates a Builder with the default classifier and a 300px high,
// full width chart
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		classifier: classifier.Default(),
		height:     "300px",
		width:      "100%",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the chart view for mode
func (b *Builder) Build(props Props, mode models.ChartMode) (*models.ChartView, error) {
	filteredAccounts := accounts.RemoveDuplicateAccounts(props.SelectedAccounts)

	dateBuckets, err := dates.MakeBucketNames(props.Interval, props.StartDate, props.EndDate)
	if err != nil {
		return nil, err
	}

	in := Input{
		Balances:    balance.NewIndex(props.DailyAccountBalanceMap, props.AllAccounts),
		AllAccounts: props.AllAccounts,
		Accounts:    filteredAccounts,
		DateBuckets: dateBuckets,
		StartDate:   props.StartDate,
		Interval:    props.Interval,
	}

	var view *models.ChartView
	switch mode {
	case models.ModeBalance:
		view = b.Balance(in)
	case models.ModePnL:
		view, err = b.Delta(in)
	case models.ModePercent:
		view, err = b.Percent(in)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	view.Mode = mode
	view.Legend = Legend(filteredAccounts)
	return view, nil
}

// Balance renders each account's balance per bucket as a line chart
func (b *Builder) Balance(in Input) *models.ChartView {
	series := make([]models.Series, 0, len(in.Accounts))
	for _, account := range in.Accounts {
		series = append(series, models.Series{
			Name: account,
			Data: in.Balances.BalanceData(in.DateBuckets, account),
		})
	}

	showArea, showPoint := false, true
	return &models.ChartView{
		Type:   models.ChartLine,
		Labels: in.DateBuckets,
		Series: series,
		Options: models.ChartOptions{
			Height:    b.height,
			Width:     b.width,
			ShowArea:  &showArea,
			ShowPoint: &showPoint,
		},
		Accounts: in.Accounts,
	}
}

// Delta renders each account's change per bucket as a bar chart
func (b *Builder) Delta(in Input) (*models.ChartView, error) {
	previous, err := dates.PreviousBucket(in.Interval, in.StartDate)
	if err != nil {
		return nil, err
	}

	series := make([]models.Series, 0, len(in.Accounts))
	for _, account := range in.Accounts {
		series = append(series, models.Series{
			Name: account,
			Data: in.Balances.DeltaData(previous, in.DateBuckets, account),
		})
	}

	return &models.ChartView{
		Type:   models.ChartBar,
		Labels: in.DateBuckets,
		Series: series,
		Options: models.ChartOptions{
			Height: b.height,
			Width:  b.width,
		},
		Accounts: in.Accounts,
	}, nil
}

// Percent renders expenses and liabilities as shares of income and assets
func (b *Builder) Percent(in Input) (*models.ChartView, error) {
	previous, err := dates.PreviousBucket(in.Interval, in.StartDate)
	if err != nil {
		return nil, err
	}

	selected := accounts.WithDefaultCategory(in.Accounts, b.classifier)

	data := make([][]models.AccountBalance, 0, len(selected))
	for _, account := range selected {
		data = append(data, in.Balances.PercentData(previous, in.DateBuckets, account))
	}

	ratio := ComputeBalanceRatio(selected, data, b.classifier)

	return &models.ChartView{
		Type:   models.ChartPie,
		Labels: ratio.Labels,
		Ratio:  ratio,
		Options: models.ChartOptions{
			Height: b.height,
			Width:  b.width,
		},
		Accounts: selected,
	}, nil
}
