package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/models"
	"github.com/pulseboard/covid-dashboard/internal/render"
	"github.com/pulseboard/covid-dashboard/internal/view"
)

// DashboardHandler serves the HTML page and its chart images
type DashboardHandler struct {
	renderer *render.Renderer
	logger   *zap.SugaredLogger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(renderer *render.Renderer, logger *zap.SugaredLogger) *DashboardHandler {
	return &DashboardHandler{renderer: renderer, logger: logger}
}

// Page handles GET /
// An optional ?country= query selects that country before rendering.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := controller(w, r)
	if !ok {
		return
	}

	if code := view.NormalizeCode(r.URL.Query().Get("country")); code != "" && code != ctrl.Selected() {
		if !h.selectCountry(w, r, ctrl, code) {
			return
		}
	}

	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, ctrl.View()); err != nil {
		h.logger.Errorw("Failed to render dashboard", "error", err)
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Select handles POST /select from the page's country form
func (h *DashboardHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := controller(w, r)
	if !ok {
		return
	}
	if !h.selectCountry(w, r, ctrl, r.FormValue("country")) {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *DashboardHandler) selectCountry(w http.ResponseWriter, r *http.Request, ctrl *view.Controller, code string) bool {
	err := ctrl.Select(r.Context(), code)
	if err == nil {
		return true
	}
	if errors.Is(err, view.ErrUnknownCountry) {
		http.Error(w, "Unknown country", http.StatusBadRequest)
		return false
	}
	h.logger.Errorw("Failed to select country", "code", code, "error", err)
	http.Error(w, "Failed to select country", http.StatusInternalServerError)
	return false
}

// LineChart handles GET /charts/line.png
// The optional ?country= must name the selected country; a page rendered
// for an earlier selection gets 409 instead of another country's chart.
func (h *DashboardHandler) LineChart(w http.ResponseWriter, r *http.Request) {
	h.chart(w, r, func(out io.Writer, d models.Dashboard) error {
		return render.LineChartPNG(out, d.Line)
	})
}

// PieChart handles GET /charts/pie.png
func (h *DashboardHandler) PieChart(w http.ResponseWriter, r *http.Request) {
	h.chart(w, r, func(out io.Writer, d models.Dashboard) error {
		return render.PieChartPNG(out, d.Pie)
	})
}

func (h *DashboardHandler) chart(w http.ResponseWriter, r *http.Request, draw func(io.Writer, models.Dashboard) error) {
	ctrl, ok := controller(w, r)
	if !ok {
		return
	}

	d := ctrl.View()
	if code := view.NormalizeCode(r.URL.Query().Get("country")); code != "" && code != d.SelectedCountry {
		http.Error(w, "Selected country has changed", http.StatusConflict)
		return
	}
	if !d.HasData {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := draw(&buf, d); err != nil {
		if errors.Is(err, render.ErrNotEnoughData) {
			http.NotFound(w, r)
			return
		}
		h.logger.Errorw("Failed to render chart", "path", r.URL.Path, "country", d.SelectedCountry, "error", err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
