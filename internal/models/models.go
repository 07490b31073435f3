// Package models defines the data structures used across the application.
// Upstream payload shapes, normalized snapshots and the chart-library input
// structures handed to the page and the JSON API all live here.
package models

// Country is one selectable entry of the country directory.
type Country struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Timeline is the date-keyed triple of cumulative counts for one country.
// Each Series keeps the upstream key order.
type Timeline struct {
	Cases     Series `json:"cases"`
	Recovered Series `json:"recovered"`
	Deaths    Series `json:"deaths"`
}

// Stats is the most recent cumulative value per metric
type Stats struct {
	Cases     int64 `json:"cases"`
	Recovered int64 `json:"recovered"`
	Deaths    int64 `json:"deaths"`
}

// LineChart is the line-chart input: one shared date axis, three datasets
type LineChart struct {
	Labels   []string      `json:"labels"`
	Datasets []LineDataset `json:"datasets"`
}

// LineDataset is a single line of the time-series chart
type LineDataset struct {
	Label       string  `json:"label"`
	Data        []int64 `json:"data"`
	BorderColor string  `json:"borderColor"`
	Fill        bool    `json:"fill"`
}

// PieChart is the population-impact chart input
type PieChart struct {
	Labels   []string     `json:"labels"`
	Datasets []PieDataset `json:"datasets"`
}

// PieDataset holds the slice values and their colors
type PieDataset struct {
	Data            []int64  `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
}

// SummaryCard is one of the three counters shown above the charts
type SummaryCard struct {
	Title string `json:"title"`
	Color string `json:"color"`
	Value int64  `json:"value"`
	Text  string `json:"text"` // millions, one decimal ("12.3M")
}

// Dashboard is everything needed to render the page for one session.
// Line and Pie are nil when HasData is false.
type Dashboard struct {
	Countries       []Country     `json:"countries"`
	SelectedCountry string        `json:"selected_country"`
	Stats           Stats         `json:"stats"`
	Active          int64         `json:"active"`
	Cards           []SummaryCard `json:"cards"`
	HasData         bool          `json:"has_data"`
	Line            *LineChart    `json:"line,omitempty"`
	Pie             *PieChart     `json:"pie,omitempty"`
}

// SelectRequest is the request body for changing the selected country
type SelectRequest struct {
	Code string `json:"code"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime,omitempty"`
	Directory string `json:"directory,omitempty"`
	Countries int    `json:"countries,omitempty"`
	Redis     string `json:"redis,omitempty"`
}
