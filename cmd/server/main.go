// Package main is the entry point for the COVID-19 dashboard server.
// It serves a per-session dashboard for one selected country: a country
// selector fed by the public country directory, three summary cards and
// two charts built from the historical case timeline.
//
// Architecture:
//   - The country directory is fetched once in the background at startup
//   - Every browser session owns a view controller; a new session fetches
//     the default country's timeline before its first render
//   - Only the latest issued fetch of a session is applied
//   - Nothing is persisted; idle sessions are swept on a schedule
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/config"
	"github.com/pulseboard/covid-dashboard/internal/database"
	"github.com/pulseboard/covid-dashboard/internal/handlers"
	"github.com/pulseboard/covid-dashboard/internal/middleware"
	"github.com/pulseboard/covid-dashboard/internal/render"
	"github.com/pulseboard/covid-dashboard/internal/services"
	"github.com/pulseboard/covid-dashboard/internal/session"
	"github.com/pulseboard/covid-dashboard/internal/upstream"
	"github.com/pulseboard/covid-dashboard/internal/view"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Sugar().Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("Starting COVID-19 Dashboard Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"default_country", cfg.Dashboard.DefaultCountry,
		"lookback_days", cfg.Upstream.LookbackDays,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize services
	client := upstream.New(upstream.Options{
		Timeout: cfg.Upstream.Timeout(),
		Retry:   cfg.Upstream.Retry,
	}, sugar.Named("upstream"))
	directory := services.NewDirectoryService(client, cfg.Upstream.CountriesURL, cfg.Dashboard.Locale, sugar)
	history := services.NewHistoricalService(client, cfg.Upstream.HistoricalURL, cfg.Upstream.LookbackDays, sugar)

	// Load the country directory in the background; requests are served
	// with an empty selector until it arrives
	go directory.Load(ctx)

	viewOpts := view.Options{
		DefaultCountry:  cfg.Dashboard.DefaultCountry,
		TotalPopulation: cfg.Dashboard.TotalPopulation,
	}
	sessions := session.NewStore(func() *view.Controller {
		return view.NewController(directory, history, viewOpts, sugar)
	}, cfg.SessionIdle, cfg.SessionMax, sugar)

	// Start background sweeper (drops idle sessions periodically)
	sweeper, err := sessions.StartSweeper(cfg.SessionSweepInterval)
	if err != nil {
		sugar.Fatalf("Failed to start session sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Rate limiting counters live in Redis when configured
	var rdb *redis.Client
	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitRPM, time.Minute)
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitRPM, time.Minute)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		sugar.Fatalf("Failed to load templates: %v", err)
	}

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(renderer, sugar)
	apiHandler := handlers.NewAPIHandler(directory, sugar)
	healthHandler := handlers.NewHealthHandler(directory, rdb, sugar)

	// A first request waits for the session's startup fetch
	requestTimeout := cfg.Upstream.Timeout()*time.Duration(cfg.Upstream.Retry+1) + 10*time.Second

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(limiter, sugar))

	// Dashboard page and charts (session bound)
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Get("/", dashboardHandler.Page)
		r.Post("/select", dashboardHandler.Select)
		r.Get("/charts/line.png", dashboardHandler.LineChart)
		r.Get("/charts/pie.png", dashboardHandler.PieChart)
	})

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		r.Get("/countries", apiHandler.Countries)

		// Session dashboard
		r.Group(func(r chi.Router) {
			r.Use(sessions.Middleware)
			r.Get("/dashboard", apiHandler.Dashboard)
			r.Put("/dashboard/country", apiHandler.SelectCountry)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Forced shutdown: %v", err)
	}

	sugar.Infow("Server stopped", "sessions", sessions.Len())
}

// newLogger builds a production logger, or a development one when running
// locally, at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}
