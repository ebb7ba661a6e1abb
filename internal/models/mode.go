package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when a chart mode name is not recognised
var ErrUnknownMode = errors.New("unknown chart mode")

// ChartMode selects which visualization is shown
type ChartMode string

const (
	ModeBalance ChartMode = "balance"
	ModePnL     ChartMode = "pnl"
	ModePercent ChartMode = "percent"
)

// DefaultMode is the mode shown before the user picks one
const DefaultMode = ModeBalance

// ModeOption is one entry of the mode dropdown
type ModeOption struct {
	Mode  ChartMode `json:"mode"`
	Title string    `json:"title"`
}

// ModeOptions returns the dropdown entries in display order
func ModeOptions() []ModeOption {
	return []ModeOption{
		{Mode: ModeBalance, Title: "Account Balance"},
		{Mode: ModePnL, Title: "Profit and Loss"},
		{Mode: ModePercent, Title: "Pie Chart"},
	}
}

// ParseChartMode parses a mode name
func ParseChartMode(s string) (ChartMode, error) {
	switch ChartMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBalance:
		return ModeBalance, nil
	case ModePnL:
		return ModePnL, nil
	case ModePercent:
		return ModePercent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Title returns the dropdown label for the mode
func (m ChartMode) Title() string {
	for _, opt := range ModeOptions() {
		if opt.Mode == m {
			return opt.Title
		}
	}
	return string(m)
}

// ModeSelector holds the currently selected chart mode
type ModeSelector struct {
	mode ChartMode
}

// NewModeSelector returns a selector set to DefaultMode
func NewModeSelector() *ModeSelector {
	return &ModeSelector{mode: DefaultMode}
}

// Current returns the selected mode
func (s *ModeSelector) Current() ChartMode {
	return s.mode
}

// Select changes the selected mode. Unknown modes leave the selection as is.
func (s *ModeSelector) Select(mode ChartMode) error {
	parsed, err := ParseChartMode(string(mode))
	if err != nil {
		return err
	}
	s.mode = parsed
	return nil
}
