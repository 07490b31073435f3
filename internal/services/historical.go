package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

// ErrInvalidTimeline marks a payload that arrived but lacks one of the three mappings
var ErrInvalidTimeline = errors.New("invalid timeline data")

// HistoricalService fetches case timelines per country code
type HistoricalService struct {
	upstream Upstream
	baseURL  string
	lastDays string
	logger   *zap.SugaredLogger
}

// NewHistoricalService creates a fetcher. lastDays is a day count or "all".
func NewHistoricalService(up Upstream, baseURL, lastDays string, logger *zap.SugaredLogger) *HistoricalService {
	return &HistoricalService{
		upstream: up,
		baseURL:  strings.TrimRight(baseURL, "/"),
		lastDays: lastDays,
		logger:   logger,
	}
}

// URL returns the request URL for a country code
func (s *HistoricalService) URL(code string) string {
	return fmt.Sprintf("%s/%s?lastdays=%s", s.baseURL, url.PathEscape(code), url.QueryEscape(s.lastDays))
}

// Fetch requests the timeline for code. Transport failures are returned as is;
// shape problems wrap ErrInvalidTimeline.
func (s *HistoricalService) Fetch(ctx context.Context, code string) (*models.Timeline, error) {
	body, err := s.upstream.Get(ctx, s.URL(code))
	if err != nil {
		return nil, fmt.Errorf("fetch historical data for %s: %w", code, err)
	}

	tl, err := ParseTimeline(body)
	if err != nil {
		return nil, fmt.Errorf("country %s: %w", code, err)
	}

	s.logger.Debugw("Historical data fetched",
		"country", code,
		"days", tl.Cases.Len(),
	)
	return tl, nil
}

// ParseTimeline accepts both {"timeline": {...}} and the bare inner object and
// requires cases, recovered and deaths to be present. Empty mappings are fine.
func ParseTimeline(body []byte) (*models.Timeline, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeline, err)
	}

	fields := root
	if raw, ok := root["timeline"]; ok && !isFalsy(raw) {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("%w: timeline: %v", ErrInvalidTimeline, err)
		}
		fields = nested
	}

	var tl models.Timeline
	mappings := []struct {
		name string
		dst  *models.Series
	}{
		{"cases", &tl.Cases},
		{"recovered", &tl.Recovered},
		{"deaths", &tl.Deaths},
	}
	for _, m := range mappings {
		raw, ok := fields[m.name]
		if !ok || isFalsy(raw) {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidTimeline, m.name)
		}
		if err := m.dst.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTimeline, m.name, err)
		}
	}
	return &tl, nil
}

// isFalsy reports JSON values that count as absent: null, false, 0 and "".
func isFalsy(raw []byte) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}
