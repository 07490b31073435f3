// Package session keeps one dashboard controller per browser session.
// Sessions are identified by a random UUID cookie and dropped after a
// period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/view"
)

// CookieName is the session cookie
const CookieName = "covid_dashboard_session"

// ErrFull is returned when the store holds its maximum number of sessions
var ErrFull = errors.New("session store is full")

type ctxKey struct{}

// Factory builds the controller for a new session
type Factory func() *view.Controller

type entry struct {
	ctrl     *view.Controller
	lastSeen time.Time
}

// Store maps session ids to controllers
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry

	factory Factory
	idle    time.Duration
	limit   int
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewStore creates an empty session store holding at most limit live
// sessions. A limit of zero or less means no limit.
func NewStore(factory Factory, idle time.Duration, limit int, logger *zap.SugaredLogger) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*entry),
		factory:  factory,
		idle:     idle,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
	}
}

// Middleware attaches the session controller to the request context. A new
// session runs its startup fetch before the request continues. When the
// store is full the request is refused with 503 and no session is created.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id uuid.UUID
		if c, err := r.Cookie(CookieName); err == nil {
			id, _ = uuid.Parse(c.Value)
		}

		ctrl, id, created, err := s.acquire(id)
		if err != nil {
			s.logger.Warnw("Session refused", "error", err, "limit", s.limit)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(60))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "Too many active sessions"}`))
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id.String(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			// the startup fetch belongs to the session, not to this request
			ctrl.Start(context.WithoutCancel(r.Context()))
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ctrl)))
	})
}

// acquire returns the controller for id, creating a session under a fresh id
// when id is unknown. A full store is swept once before giving up.
func (s *Store) acquire(id uuid.UUID) (*view.Controller, uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok && id != uuid.Nil {
		e.lastSeen = s.now()
		return e.ctrl, id, false, nil
	}

	if s.limit > 0 && len(s.sessions) >= s.limit {
		s.sweepLocked()
		if len(s.sessions) >= s.limit {
			return nil, uuid.Nil, false, ErrFull
		}
	}

	id = uuid.New()
	e := &entry{ctrl: s.factory(), lastSeen: s.now()}
	s.sessions[id] = e
	s.logger.Debugw("Session created", "session", id, "active", len(s.sessions))
	return e.ctrl, id, true, nil
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper schedules Sweep every interval. Stop the returned cron on shutdown.
func (s *Store) StartSweeper(interval time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Infow("Idle sessions swept", "removed", n, "active", s.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session sweeper: %w", err)
	}
	c.Start()
	return c, nil
}

// NewContext returns a context carrying ctrl
func NewContext(ctx context.Context, ctrl *view.Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctrl)
}

// FromContext returns the session controller, or nil outside the middleware
func FromContext(ctx context.Context) *view.Controller {
	ctrl, _ := ctx.Value(ctxKey{}).(*view.Controller)
	return ctrl
}
