// Package render draws chart views with go-chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ledgerviz/internal/models"
)

// ErrNothingToRender is returned when a view has no drawable data
var ErrNothingToRender = errors.New("nothing to render")

// ErrUnknownFormat is returned for image formats other than png and svg
var ErrUnknownFormat = errors.New("unknown image format")

// Format is an output image format
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// maxTicks is the most x-axis labels drawn before labels are thinned out
const maxTicks = 12

// ParseFormat parses an image format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// Renderer draws views at a fixed pixel size
type Renderer struct {
	Width  int
	Height int
}

// New creates a renderer; non-positive sizes fall back to 900x300
func New(width, height int) *Renderer {
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 300
	}
	return &Renderer{Width: width, Height: height}
}

// SeriesColor returns the palette colour for series index i
func SeriesColor(i int) drawing.Color {
	return chart.GetDefaultColor(i)
}

// SeriesColorHex returns SeriesColor as a CSS hex colour
func SeriesColorHex(i int) string {
	c := SeriesColor(i)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorLegend fills in the colour of each legend entry
func ColorLegend(view *models.ChartView) {
	for i := range view.Legend {
		view.Legend[i].Color = SeriesColorHex(view.Legend[i].Index)
	}
}

// Render draws view in format to w
func (r *Renderer) Render(view *models.ChartView, format Format, w io.Writer) error {
	switch view.Type {
	case models.ChartLine:
		return r.renderLine(view, format, w)
	case models.ChartBar:
		return r.renderBar(view, format, w)
	case models.ChartPie:
		return r.renderPie(view, format, w)
	}
	return fmt.Errorf("unsupported chart type %q", view.Type)
}

func (r *Renderer) renderLine(view *models.ChartView, format Format, w io.Writer) error {
	if len(view.Series) == 0 || len(view.Labels) < 2 {
		return ErrNothingToRender
	}

	xValues := make([]float64, len(view.Labels))
	for i := range view.Labels {
		xValues[i] = float64(i)
	}

	series := make([]chart.Series, 0, len(view.Series))
	for i, s := range view.Series {
		color := SeriesColor(i)
		series = append(series, chart.ContinuousSeries{
			Name: s.Name,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
			XValues: xValues,
			YValues: s.Data,
		})
	}

	graph := chart.Chart{
		Width:  r.Width,
		Height: r.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Ticks: ticks(view.Labels),
		},
		YAxis: chart.YAxis{
			Range:          flatRange(view.Series),
			ValueFormatter: moneyFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("line chart render failed: %w", err)
	}
	return nil
}

func (r *Renderer) renderBar(view *models.ChartView, format Format, w io.Writer) error {
	if len(view.Series) == 0 || len(view.Labels) == 0 {
		return ErrNothingToRender
	}

	// bucket-major so each bucket's accounts sit side by side
	var bars []chart.Value
	for b, label := range view.Labels {
		for i, s := range view.Series {
			barLabel := ""
			if i == 0 {
				barLabel = label
			}
			bars = append(bars, chart.Value{
				Label: barLabel,
				Value: s.Data[b],
				Style: chart.Style{
					FillColor:   SeriesColor(i),
					StrokeColor: SeriesColor(i),
				},
			})
		}
	}

	graph := chart.BarChart{
		Width:        r.Width,
		Height:       r.Height,
		BarWidth:     barWidth(r.Width, len(bars)),
		Bars:         bars,
		UseBaseValue: true,
		BaseValue:    0,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			Range:          flatRange(view.Series),
			ValueFormatter: moneyFormatter,
		},
	}

	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("bar chart render failed: %w", err)
	}
	return nil
}

func (r *Renderer) renderPie(view *models.ChartView, format Format, w io.Writer) error {
	if view.Ratio == nil {
		return ErrNothingToRender
	}

	var values []chart.Value
	for i, slice := range view.Ratio.Slices {
		// slices cannot be negative; a remainder below zero is drawn empty
		v := slice.Value
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s", slice.Account, slice.Label),
			Value: v,
			Style: chart.Style{FillColor: SeriesColor(i)},
		})
	}
	if len(values) == 0 {
		return ErrNothingToRender
	}

	graph := chart.PieChart{
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}

	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("pie chart render failed: %w", err)
	}
	return nil
}

// ticks labels the x axis, keeping at most maxTicks labels
func ticks(labels []string) []chart.Tick {
	step := int(math.Ceil(float64(len(labels)) / maxTicks))
	if step < 1 {
		step = 1
	}

	var result []chart.Tick
	for i := 0; i < len(labels); i += step {
		result = append(result, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	if last := len(labels) - 1; (last % step) != 0 {
		result = append(result, chart.Tick{Value: float64(last), Label: labels[last]})
	}
	return result
}

// flatRange returns a padded range when every value is the same, which
// go-chart cannot scale on its own. Otherwise it returns nil.
func flatRange(series []models.Series) chart.Range {
	first := true
	var lo, hi float64
	for _, s := range series {
		for _, v := range s.Data {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if first || lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func barWidth(totalWidth, bars int) int {
	if bars == 0 {
		return 0
	}
	w := (totalWidth - 80) / (bars * 2)
	if w < 2 {
		return 2
	}
	if w > 50 {
		return 50
	}
	return w
}

func moneyFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
