// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv and an
// optional YAML file for the upstream and dashboard settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"
	LogLevel    string

	// Security
	AllowedOrigins []string
	RateLimitRPM   int

	// Redis (shared rate-limit counters); empty keeps them in memory
	RedisURL string

	Upstream  UpstreamConfig
	Dashboard DashboardConfig

	// Sessions
	SessionIdle          time.Duration
	SessionSweepInterval time.Duration
	SessionMax           int
}

// UpstreamConfig describes the two public data sources
type UpstreamConfig struct {
	CountriesURL   string `yaml:"countries_url"`
	HistoricalURL  string `yaml:"historical_url"`
	LookbackDays   string `yaml:"lookback_days"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retry          int    `yaml:"retry"`
}

// DashboardConfig holds the view defaults
type DashboardConfig struct {
	DefaultCountry  string `yaml:"default_country"`
	TotalPopulation int64  `yaml:"total_population"`
	Locale          string `yaml:"locale"`
}

// Timeout returns the per-request upstream timeout
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	sweep, err := time.ParseDuration(getEnv("SESSION_SWEEP_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_SWEEP_INTERVAL: %w", err)
	}

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),

		RedisURL: getEnv("REDIS_URL", ""),

		Upstream: UpstreamConfig{
			CountriesURL:   getEnv("COUNTRIES_URL", "https://restcountries.com/v3.1/all?fields=name,cca2,cca3"),
			HistoricalURL:  getEnv("HISTORICAL_URL", "https://disease.sh/v3/covid-19/historical"),
			LookbackDays:   getEnv("LOOKBACK_DAYS", "1500"),
			TimeoutSeconds: getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30),
			Retry:          getEnvInt("UPSTREAM_RETRY", 0),
		},
		Dashboard: DashboardConfig{
			DefaultCountry:  strings.ToLower(getEnv("DEFAULT_COUNTRY", "india")),
			TotalPopulation: getEnvInt64("TOTAL_POPULATION", 1_400_000_000),
			Locale:          getEnv("DIRECTORY_LOCALE", "en"),
		},

		SessionIdle:          time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		SessionSweepInterval: sweep,
		SessionMax:           getEnvInt("SESSION_MAX", 1000),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay replaces upstream and dashboard settings with the ones set in the
// YAML file. Keys missing from the file keep their current value.
func (c *Config) overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file struct {
		Upstream  UpstreamConfig  `yaml:"upstream"`
		Dashboard DashboardConfig `yaml:"dashboard"`
	}
	file.Upstream = c.Upstream
	file.Dashboard = c.Dashboard
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.Upstream = file.Upstream
	c.Dashboard = file.Dashboard
	c.Dashboard.DefaultCountry = strings.ToLower(c.Dashboard.DefaultCountry)
	return nil
}

// Validate checks the settings that would otherwise fail at request time
func (c *Config) Validate() error {
	var errs []error
	if c.Upstream.CountriesURL == "" {
		errs = append(errs, errors.New("COUNTRIES_URL is empty"))
	}
	if c.Upstream.HistoricalURL == "" {
		errs = append(errs, errors.New("HISTORICAL_URL is empty"))
	}
	if c.Upstream.LookbackDays != "all" {
		if n, err := strconv.Atoi(c.Upstream.LookbackDays); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("LOOKBACK_DAYS must be \"all\" or a positive integer, got %q", c.Upstream.LookbackDays))
		}
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT_SECONDS must be positive"))
	}
	if c.Upstream.Retry < 0 {
		errs = append(errs, errors.New("UPSTREAM_RETRY must not be negative"))
	}
	if c.Dashboard.TotalPopulation <= 0 {
		errs = append(errs, errors.New("TOTAL_POPULATION must be positive"))
	}
	if c.Dashboard.DefaultCountry == "" {
		errs = append(errs, errors.New("DEFAULT_COUNTRY is empty"))
	}
	if c.SessionIdle <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_MINUTES must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.SessionMax <= 0 {
		errs = append(errs, errors.New("SESSION_MAX must be positive"))
	}
	if c.RateLimitRPM <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPM must be positive"))
	}

	// Validate required fields in production
	if c.Environment == "production" && len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("ALLOWED_ORIGINS is required in production"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
