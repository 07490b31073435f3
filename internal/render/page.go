// Package render turns a dashboard model into the HTML page and the PNG
// chart images served next to it.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders the dashboard page
type Renderer struct {
	page *template.Template
}

// NewRenderer parses the embedded page template
func NewRenderer() (*Renderer, error) {
	page, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"comma":      humanize.Comma,
		"lineWidth":  func() int { return LineWidth },
		"lineHeight": func() int { return LineHeight },
		"pieSize":    func() int { return PieSize },
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Renderer{page: page}, nil
}

// Page writes the dashboard page. The page is rendered into a buffer first
// so a template failure never leaves a half-written response.
func (r *Renderer) Page(w io.Writer, d models.Dashboard) error {
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, d); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
