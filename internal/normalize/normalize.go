// Package normalize turns a raw Timeline into the view-ready structures:
// the latest snapshot, the derived active count and the two chart inputs.
// Everything here is a pure function.
package normalize

import (
	"fmt"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

// Chart labels and colors
const (
	LabelCases     = "Cases"
	LabelRecovered = "Recovered"
	LabelDeaths    = "Deaths"
	LabelActive    = "Active Cases"
	LabelRemaining = "Remaining Population"

	ColorCases     = "blue"
	ColorRecovered = "green"
	ColorDeaths    = "red"
	ColorRemaining = "khaki"
)

// ComputeSnapshot picks the last value of each mapping, 0 for an empty one.
func ComputeSnapshot(tl *models.Timeline) models.Stats {
	var s models.Stats
	if tl == nil {
		return s
	}
	s.Cases, _ = tl.Cases.Last()
	s.Recovered, _ = tl.Recovered.Last()
	s.Deaths, _ = tl.Deaths.Last()
	return s
}

// ComputeActive returns cases - recovered - deaths floored at 0.
func ComputeActive(s models.Stats) int64 {
	active := s.Cases - s.Recovered - s.Deaths
	if active < 0 {
		return 0
	}
	return active
}

// ToLineSeries builds the time-series chart. The cases dates are the shared
// axis; recovered and deaths are assumed to line up with them.
func ToLineSeries(tl *models.Timeline) models.LineChart {
	return models.LineChart{
		Labels: append([]string{}, tl.Cases.Dates...),
		Datasets: []models.LineDataset{
			{Label: LabelCases, Data: append([]int64{}, tl.Cases.Values...), BorderColor: ColorCases},
			{Label: LabelRecovered, Data: append([]int64{}, tl.Recovered.Values...), BorderColor: ColorRecovered},
			{Label: LabelDeaths, Data: append([]int64{}, tl.Deaths.Values...), BorderColor: ColorDeaths},
		},
	}
}

// ToPieSeries builds the population-impact chart. Remaining population is
// population - cases and is not clamped.
func ToPieSeries(s models.Stats, population int64) models.PieChart {
	return models.PieChart{
		Labels: []string{LabelRecovered, LabelDeaths, LabelActive, LabelRemaining},
		Datasets: []models.PieDataset{{
			Data:            []int64{s.Recovered, s.Deaths, ComputeActive(s), population - s.Cases},
			BackgroundColor: []string{ColorRecovered, ColorDeaths, ColorCases, ColorRemaining},
		}},
	}
}

// FormatMillions renders n in millions with one decimal place ("12.3M").
func FormatMillions(n int64) string {
	return fmt.Sprintf("%.1fM", float64(n)/1e6)
}

// Cards returns the three summary counters in display order
func Cards(s models.Stats) []models.SummaryCard {
	return []models.SummaryCard{
		{Title: LabelCases, Color: ColorCases, Value: s.Cases, Text: FormatMillions(s.Cases)},
		{Title: LabelRecovered, Color: ColorRecovered, Value: s.Recovered, Text: FormatMillions(s.Recovered)},
		{Title: LabelDeaths, Color: ColorDeaths, Value: s.Deaths, Text: FormatMillions(s.Deaths)},
	}
}
