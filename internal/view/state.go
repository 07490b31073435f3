// Package view holds the dashboard state of one browser session and the
// controller that wires country selection to fetching and normalization.
package view

import (
	"github.com/pulseboard/covid-dashboard/internal/models"
	"github.com/pulseboard/covid-dashboard/internal/normalize"
)

// State is the whole reactive state of a dashboard session.
// Timeline is nil when the last fetch produced no usable data.
type State struct {
	Countries       []models.Country
	SelectedCountry string
	Timeline        *models.Timeline
	Stats           models.Stats
}

// WithDirectory stores a copy of the directory. The selection is untouched.
func WithDirectory(s State, countries []models.Country) State {
	s.Countries = append([]models.Country(nil), countries...)
	return s
}

// WithSelection records the selected country code
func WithSelection(s State, code string) State {
	s.SelectedCountry = code
	return s
}

// WithTimeline stores a fetched timeline and recomputes the snapshot
func WithTimeline(s State, tl *models.Timeline) State {
	if tl == nil {
		return WithNoData(s)
	}
	s.Timeline = tl
	s.Stats = normalize.ComputeSnapshot(tl)
	return s
}

// WithNoData clears the timeline and resets the counters
func WithNoData(s State) State {
	s.Timeline = nil
	s.Stats = models.Stats{}
	return s
}

// BuildDashboard derives the page model. Charts are only built when a
// timeline is present.
func BuildDashboard(s State, population int64) models.Dashboard {
	d := models.Dashboard{
		Countries:       append([]models.Country{}, s.Countries...),
		SelectedCountry: s.SelectedCountry,
		Stats:           s.Stats,
		Active:          normalize.ComputeActive(s.Stats),
		Cards:           normalize.Cards(s.Stats),
		HasData:         s.Timeline != nil,
	}
	if s.Timeline != nil {
		line := normalize.ToLineSeries(s.Timeline)
		pie := normalize.ToPieSeries(s.Stats, population)
		d.Line = &line
		d.Pie = &pie
	}
	return d
}
