package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/models"
	"github.com/pulseboard/covid-dashboard/internal/view"
)

type loadedDirectory struct{ done chan struct{} }

func newLoadedDirectory() loadedDirectory {
	d := loadedDirectory{done: make(chan struct{})}
	close(d.done)
	return d
}

func (loadedDirectory) Countries() []models.Country {
	return []models.Country{{Name: "India", Code: "india"}}
}
func (loadedDirectory) Contains(code string) bool { return code == "india" }
func (loadedDirectory) Loaded() bool              { return true }
func (d loadedDirectory) Done() <-chan struct{}   { return d.done }

type countingFetcher struct{ calls atomic.Int32 }

func (f *countingFetcher) Fetch(ctx context.Context, code string) (*models.Timeline, error) {
	f.calls.Add(1)
	return &models.Timeline{
		Cases:     models.Series{Dates: []string{"d1"}, Values: []int64{10}},
		Recovered: models.Series{Dates: []string{"d1"}, Values: []int64{2}},
		Deaths:    models.Series{Dates: []string{"d1"}, Values: []int64{1}},
	}, nil
}

func newTestStore(idle time.Duration) (*Store, *countingFetcher) {
	return newCappedStore(idle, 0)
}

func newCappedStore(idle time.Duration, limit int) (*Store, *countingFetcher) {
	fetcher := &countingFetcher{}
	dir := newLoadedDirectory()
	factory := func() *view.Controller {
		return view.NewController(dir, fetcher, view.Options{DefaultCountry: "india", TotalPopulation: 100}, zap.NewNop().Sugar())
	}
	return NewStore(factory, idle, limit, zap.NewNop().Sugar()), fetcher
}

func captureHandler(got **view.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareCreatesSessionAndStarts(t *testing.T) {
	store, fetcher := newTestStore(time.Hour)
	var ctrl *view.Controller
	h := store.Middleware(captureHandler(&ctrl))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, ctrl)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.True(t, ctrl.View().HasData)
	assert.Equal(t, 1, store.Len())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestMiddlewareReusesSessionFromCookie(t *testing.T) {
	store, fetcher := newTestStore(time.Hour)
	var first, second *view.Controller

	rec := httptest.NewRecorder()
	store.Middleware(captureHandler(&first)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	store.Middleware(captureHandler(&second)).ServeHTTP(rec, req)

	assert.Same(t, first, second)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, 1, store.Len())
}

func TestMiddlewareReplacesUnknownCookie(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	var ctrl *view.Controller

	for _, value := range []string{"not-a-uuid", "6f1c2d8e-2b7a-4c1e-9a53-1f0d3c4b5a69"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
		rec := httptest.NewRecorder()
		store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, req)

		require.Len(t, rec.Result().Cookies(), 1)
		assert.NotEqual(t, value, rec.Result().Cookies()[0].Value)
	}
	assert.Equal(t, 2, store.Len())
}

func TestSweepDropsIdleSessions(t *testing.T) {
	store, _ := newTestStore(30 * time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var ctrl *view.Controller
	rec := httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	stale := rec.Result().Cookies()[0]

	now = now.Add(20 * time.Minute)
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 2, store.Len())

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	// the swept session gets a new id on its next request
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(stale)
	rec = httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, req)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, stale.Value, rec.Result().Cookies()[0].Value)
}

func TestStartSweeper(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	c, err := store.StartSweeper(time.Minute)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}

func TestFromContextOutsideMiddleware(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestMiddlewareCapsLiveSessions(t *testing.T) {
	store, fetcher := newCappedStore(time.Hour, 5)
	var ctrl *view.Controller
	h := store.Middleware(captureHandler(&ctrl))

	refused := 0
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code == http.StatusServiceUnavailable {
			refused++
			assert.Empty(t, rec.Result().Cookies())
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error": "Too many active sessions"}`, rec.Body.String())
		}
	}

	assert.Equal(t, 95, refused)
	assert.Equal(t, 5, store.Len())
	assert.Equal(t, int32(5), fetcher.calls.Load())
}

func TestFullStoreStillServesExistingSessions(t *testing.T) {
	store, _ := newCappedStore(time.Hour, 1)
	var ctrl *view.Controller

	rec := httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFullStoreSweepsBeforeRefusing(t *testing.T) {
	store, _ := newCappedStore(30*time.Minute, 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	var ctrl *view.Controller

	store.Middleware(captureHandler(&ctrl)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	now = now.Add(time.Hour)
	rec = httptest.NewRecorder()
	store.Middleware(captureHandler(&ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, store.Len())
}
