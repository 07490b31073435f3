package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "ALLOWED_ORIGINS", "RATE_LIMIT_RPM", "REDIS_URL",
	"COUNTRIES_URL", "HISTORICAL_URL", "LOOKBACK_DAYS", "DEFAULT_COUNTRY", "TOTAL_POPULATION",
	"DIRECTORY_LOCALE", "UPSTREAM_TIMEOUT_SECONDS", "UPSTREAM_RETRY", "SESSION_IDLE_MINUTES",
	"SESSION_SWEEP_INTERVAL", "SESSION_MAX", "CONFIG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 120, cfg.RateLimitRPM)
	assert.Empty(t, cfg.RedisURL)

	assert.Equal(t, "https://restcountries.com/v3.1/all?fields=name,cca2,cca3", cfg.Upstream.CountriesURL)
	assert.Equal(t, "https://disease.sh/v3/covid-19/historical", cfg.Upstream.HistoricalURL)
	assert.Equal(t, "1500", cfg.Upstream.LookbackDays)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, 0, cfg.Upstream.Retry)

	assert.Equal(t, "india", cfg.Dashboard.DefaultCountry)
	assert.Equal(t, int64(1_400_000_000), cfg.Dashboard.TotalPopulation)
	assert.Equal(t, "en", cfg.Dashboard.Locale)

	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 5*time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, 1000, cfg.SessionMax)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_COUNTRY", "USA")
	t.Setenv("LOOKBACK_DAYS", "all")
	t.Setenv("UPSTREAM_RETRY", "2")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SESSION_SWEEP_INTERVAL", "90s")
	t.Setenv("SESSION_MAX", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "usa", cfg.Dashboard.DefaultCountry)
	assert.Equal(t, "all", cfg.Upstream.LookbackDays)
	assert.Equal(t, 2, cfg.Upstream.Retry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, 50, cfg.SessionMax)
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  historical_url: http://mirror.local/historical
  lookback_days: "30"
dashboard:
  default_country: Peru
  total_population: 34000000
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://mirror.local/historical", cfg.Upstream.HistoricalURL)
	assert.Equal(t, "30", cfg.Upstream.LookbackDays)
	assert.Equal(t, "peru", cfg.Dashboard.DefaultCountry)
	assert.Equal(t, int64(34_000_000), cfg.Dashboard.TotalPopulation)

	// untouched keys keep the env/default value
	assert.Equal(t, "https://restcountries.com/v3.1/all?fields=name,cca2,cca3", cfg.Upstream.CountriesURL)
	assert.Equal(t, 30, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, "en", cfg.Dashboard.Locale)
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream: [not, a, map"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = Load()
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"zero population":    {"TOTAL_POPULATION": "0"},
		"negative retry":     {"UPSTREAM_RETRY": "-1"},
		"bad lookback":       {"LOOKBACK_DAYS": "forever"},
		"zero lookback":      {"LOOKBACK_DAYS": "0"},
		"bad sweep interval": {"SESSION_SWEEP_INTERVAL": "often"},
		"zero idle":          {"SESSION_IDLE_MINUTES": "0"},
		"zero session cap":   {"SESSION_MAX": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COUNTRIES_URL")
	assert.Contains(t, err.Error(), "TOTAL_POPULATION")
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPM")
}
