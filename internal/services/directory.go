// Package services contains the two upstream-facing loaders.
// DirectoryService fetches the selectable countries once per process;
// HistoricalService fetches the case timeline for one country code.
package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

// Upstream is the transport both services read through
type Upstream interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetJSON(ctx context.Context, url string, out interface{}) error
}

// countryRecord is the subset of a geography record we read
type countryRecord struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2 string `json:"cca2"`
	CCA3 string `json:"cca3"`
}

// DirectoryService holds the country directory for the process lifetime
type DirectoryService struct {
	upstream Upstream
	url      string
	locale   language.Tag
	logger   *zap.SugaredLogger

	once sync.Once
	done chan struct{}

	mu        sync.RWMutex
	countries []models.Country
	loaded    bool
	err       error
}

// NewDirectoryService creates a directory loader. An unparsable locale falls
// back to English.
func NewDirectoryService(up Upstream, url, locale string, logger *zap.SugaredLogger) *DirectoryService {
	tag, err := language.Parse(locale)
	if err != nil {
		logger.Warnw("Unknown directory locale, using en", "locale", locale, "error", err)
		tag = language.English
	}
	return &DirectoryService{
		upstream: up,
		url:      url,
		locale:   tag,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Load fetches the directory. Only the first call issues a request; failures
// leave the directory empty and are not retried.
func (s *DirectoryService) Load(ctx context.Context) {
	s.once.Do(func() {
		defer close(s.done)

		var records []countryRecord
		err := s.upstream.GetJSON(ctx, s.url, &records)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.loaded = true
		if err != nil {
			s.err = err
			s.logger.Errorw("Error fetching countries", "url", s.url, "error", err)
			return
		}
		s.countries = toCountries(records, s.locale)
		s.logger.Infow("Country directory loaded", "countries", len(s.countries))
	})
}

// Done is closed once the load attempt finished, successfully or not
func (s *DirectoryService) Done() <-chan struct{} {
	return s.done
}

// Loaded reports whether the load attempt finished
func (s *DirectoryService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the load error, if any
func (s *DirectoryService) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Countries returns a copy of the directory, sorted by name
func (s *DirectoryService) Countries() []models.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Country, len(s.countries))
	copy(out, s.countries)
	return out
}

// Contains reports whether code is a key of the directory
func (s *DirectoryService) Contains(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

// toCountries maps records to Countries and sorts them with the locale's collator.
func toCountries(records []countryRecord, locale language.Tag) []models.Country {
	out := make([]models.Country, 0, len(records))
	for _, r := range records {
		name := strings.TrimSpace(r.Name.Common)
		code := firstNonEmpty(r.CCA2, r.CCA3, name)
		if code == "" {
			continue
		}
		out = append(out, models.Country{Name: name, Code: strings.ToLower(code)})
	}

	col := collate.New(locale)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
