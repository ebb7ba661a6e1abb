package models

// ChartType is the kind of chart handed to the charting library
type ChartType string

const (
	ChartLine ChartType = "Line"
	ChartBar  ChartType = "Bar"
	ChartPie  ChartType = "Pie"
)

// ChartOptions mirrors the display options of the chart
type ChartOptions struct {
	Height    string `json:"height"`
	Width     string `json:"width"`
	ShowArea  *bool  `json:"showArea,omitempty"`
	ShowPoint *bool  `json:"showPoint,omitempty"`
}

// Series is one account's data points, one per date bucket
type Series struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// Slice is one segment of the pie chart
type Slice struct {
	Account   string  `json:"account"`
	Category  string  `json:"category"`
	Value     float64 `json:"value"`
	Label     string  `json:"label"`
	Remainder bool    `json:"remainder,omitempty"`
}

// BalanceRatio is the pie chart payload: slice magnitudes and their
// percentage labels, parallel slices, plus the baseline they relate to
type BalanceRatio struct {
	Labels   []string  `json:"labels"`
	Series   []float64 `json:"series"`
	Slices   []Slice   `json:"slices"`
	Baseline float64   `json:"baseline"`
	Out      float64   `json:"out"`
}

// LegendEntry is one line of the chart legend
type LegendEntry struct {
	Account   string `json:"account"`
	Index     int    `json:"index"`
	ClassName string `json:"class_name"`
	Color     string `json:"color,omitempty"`
}

// ChartView is everything needed to draw one chart
type ChartView struct {
	Mode     ChartMode     `json:"mode"`
	Type     ChartType     `json:"type"`
	Labels   []string      `json:"labels"`
	Series   []Series      `json:"series,omitempty"`
	Ratio    *BalanceRatio `json:"ratio,omitempty"`
	Options  ChartOptions  `json:"options"`
	Legend   []LegendEntry `json:"legend"`
	Accounts []string      `json:"accounts"`
}

// ChartistData returns the view in the {labels, series} shape Chartist
// expects: nested series for line/bar, flat series for pie
func (v *ChartView) ChartistData() map[string]interface{} {
	if v.Type == ChartPie && v.Ratio != nil {
		return map[string]interface{}{
			"labels": v.Ratio.Labels,
			"series": v.Ratio.Series,
		}
	}

	series := make([][]float64, len(v.Series))
	for i, s := range v.Series {
		series[i] = s.Data
	}
	return map[string]interface{}{
		"labels": v.Labels,
		"series": series,
	}
}
