package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

// Image sizes in pixels
const (
	LineWidth  = 720
	LineHeight = 400
	PieSize    = 400

	maxXTicks = 12
)

// ErrNotEnoughData is returned when a chart has nothing to draw
var ErrNotEnoughData = errors.New("not enough data to draw chart")

var palette = map[string]drawing.Color{
	"blue":  drawing.ColorFromHex("0000FF"),
	"green": drawing.ColorFromHex("008000"),
	"red":   drawing.ColorFromHex("FF0000"),
	"khaki": drawing.ColorFromHex("F0E68C"),
}

func colorOf(name string) drawing.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return chart.ColorAlternateGray
}

// LineChartPNG draws the cases/recovered/deaths lines. The x axis is the
// index into the shared date labels.
func LineChartPNG(w io.Writer, lc *models.LineChart) error {
	if lc == nil || len(lc.Labels) == 0 || len(lc.Datasets) == 0 {
		return ErrNotEnoughData
	}

	n := len(lc.Labels)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	minY, maxY := 0.0, 0.0
	series := make([]chart.Series, 0, len(lc.Datasets))
	for _, ds := range lc.Datasets {
		m := len(ds.Data)
		if m > n {
			m = n
		}
		if m == 0 {
			continue
		}
		ys := make([]float64, m)
		for i := 0; i < m; i++ {
			ys[i] = float64(ds.Data[i])
			minY = math.Min(minY, ys[i])
			maxY = math.Max(maxY, ys[i])
		}
		dsX := xs[:m]
		// a single point still needs a non-zero x span
		if m == 1 {
			dsX = []float64{0, 1}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    ds.Label,
			XValues: dsX,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: colorOf(ds.BorderColor),
				StrokeWidth: 2,
			},
		})
	}
	if len(series) == 0 {
		return ErrNotEnoughData
	}
	if maxY <= minY {
		maxY = minY + 1
	}
	maxX := float64(n - 1)
	if maxX < 1 {
		maxX = 1
	}

	graph := chart.Chart{
		Width:      LineWidth,
		Height:     LineHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxX},
			Ticks: dateTicks(lc.Labels, maxXTicks),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return humanize.SIWithDigits(f, 1, "")
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// dateTicks picks at most limit evenly spaced labels, always keeping the last.
func dateTicks(labels []string, limit int) []chart.Tick {
	n := len(labels)
	step := 1
	if n > limit {
		step = int(math.Ceil(float64(n) / float64(limit)))
	}
	ticks := make([]chart.Tick, 0, limit+1)
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	if last := n - 1; last > 0 && int(ticks[len(ticks)-1].Value) != last {
		if last-int(ticks[len(ticks)-1].Value) < step/2 {
			ticks = ticks[:len(ticks)-1]
		}
		ticks = append(ticks, chart.Tick{Value: float64(last), Label: labels[last]})
	}
	return ticks
}

// PieChartPNG draws the population-impact pie. Slices that are zero or
// negative cannot be drawn and are left out of the picture.
func PieChartPNG(w io.Writer, pc *models.PieChart) error {
	if pc == nil || len(pc.Datasets) == 0 {
		return ErrNotEnoughData
	}
	ds := pc.Datasets[0]

	values := make([]chart.Value, 0, len(ds.Data))
	for i, v := range ds.Data {
		if v <= 0 || i >= len(pc.Labels) {
			continue
		}
		color := ""
		if i < len(ds.BackgroundColor) {
			color = ds.BackgroundColor[i]
		}
		values = append(values, chart.Value{
			Value: float64(v),
			Label: pc.Labels[i],
			Style: chart.Style{
				FillColor:   colorOf(color),
				StrokeColor: drawing.ColorWhite,
				FontColor:   drawing.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return ErrNotEnoughData
	}

	pie := chart.PieChart{
		Width:  PieSize,
		Height: PieSize,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}
