package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulseboard/covid-dashboard/internal/models"
	"github.com/pulseboard/covid-dashboard/internal/services"
)

// ErrUnknownCountry is returned when a selection is not in the loaded directory
var ErrUnknownCountry = errors.New("unknown country")

// Directory is the shared, read-only country directory
type Directory interface {
	Countries() []models.Country
	Contains(code string) bool
	Loaded() bool
	Done() <-chan struct{}
}

// HistoryFetcher fetches the timeline of one country
type HistoryFetcher interface {
	Fetch(ctx context.Context, code string) (*models.Timeline, error)
}

// DefaultDirectoryWait bounds how long Start waits for the directory
const DefaultDirectoryWait = 2 * time.Second

// Options configures a Controller
type Options struct {
	DefaultCountry  string
	TotalPopulation int64
	// DirectoryWait bounds how long Start waits for a directory that is still
	// loading. Zero means DefaultDirectoryWait.
	DirectoryWait time.Duration
}

// Controller owns the State of one session. Fetches run outside the lock;
// each carries a generation number and only the latest issued one is applied.
type Controller struct {
	directory      Directory
	history        HistoryFetcher
	population     int64
	defaultCountry string
	directoryWait  time.Duration
	logger         *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	generation uint64
}

// NewController creates a controller with the default country selected.
func NewController(dir Directory, history HistoryFetcher, opts Options, logger *zap.SugaredLogger) *Controller {
	wait := opts.DirectoryWait
	if wait <= 0 {
		wait = DefaultDirectoryWait
	}
	return &Controller{
		directory:      dir,
		history:        history,
		population:     opts.TotalPopulation,
		defaultCountry: NormalizeCode(opts.DefaultCountry),
		directoryWait:  wait,
		logger:         logger,
		state:          WithSelection(State{}, opts.DefaultCountry),
	}
}

// Start runs the startup fetch for the current selection and, concurrently,
// waits a short while for the directory so the first render can show it.
// Neither waits on the other. A directory that arrives later is picked up by
// the next State or View call.
func (c *Controller) Start(ctx context.Context) {
	code := c.Selected()

	var g errgroup.Group
	g.Go(func() error {
		c.refresh(ctx, code)
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(c.directoryWait)
		defer timer.Stop()
		select {
		case <-c.directory.Done():
			c.mu.Lock()
			c.syncDirectoryLocked()
			c.mu.Unlock()
		case <-timer.C:
		case <-ctx.Done():
		}
		return nil
	})
	_ = g.Wait()
}

// Select changes the selected country and refreshes the timeline.
// Fetch failures are absorbed into the no-data state; only an invalid
// selection is reported back. The fetch belongs to the session, so it
// outlives a caller that goes away; the upstream timeout still bounds it.
func (c *Controller) Select(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrUnknownCountry)
	}
	if !c.acceptable(code) {
		return fmt.Errorf("%w: %s", ErrUnknownCountry, code)
	}
	c.refresh(context.WithoutCancel(ctx), code)
	return nil
}

// NormalizeCode lowercases and trims a country code
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// acceptable rejects codes missing from a loaded, non-empty directory.
// The configured default is always allowed, and while the directory is
// empty any code is.
func (c *Controller) acceptable(code string) bool {
	if code == c.defaultCountry {
		return true
	}
	if !c.directory.Loaded() || len(c.directory.Countries()) == 0 {
		return true
	}
	return c.directory.Contains(code)
}

func (c *Controller) refresh(ctx context.Context, code string) {
	c.mu.Lock()
	previous := c.state.SelectedCountry
	c.state = WithSelection(c.state, code)
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	tl, err := c.history.Fetch(ctx, code)
	if err != nil && ctx.Err() != nil {
		// abandoned, not answered: keep what the session showed before
		c.logger.Debugw("Historical fetch abandoned", "country", code, "error", err)
		c.mu.Lock()
		if gen == c.generation {
			c.state = WithSelection(c.state, previous)
		}
		c.mu.Unlock()
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidTimeline):
		c.logger.Warnw("Invalid timeline data", "country", code, "error", err)
	default:
		c.logger.Errorw("Error fetching historical data", "country", code, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debugw("Discarding stale historical response",
			"country", code,
			"generation", gen,
			"latest", c.generation,
		)
		return
	}
	if err != nil {
		c.state = WithNoData(c.state)
		return
	}
	c.state = WithTimeline(c.state, tl)
}

// syncDirectoryLocked copies the directory into the state once it has loaded.
func (c *Controller) syncDirectoryLocked() {
	if len(c.state.Countries) == 0 && c.directory.Loaded() {
		c.state = WithDirectory(c.state, c.directory.Countries())
	}
}

// Selected returns the selected country code
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SelectedCountry
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncDirectoryLocked()
	return WithDirectory(c.state, c.state.Countries)
}

// View builds the dashboard model for rendering
func (c *Controller) View() models.Dashboard {
	return BuildDashboard(c.State(), c.population)
}
