package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://query1.finance.yahoo.com", cfg.Yahoo.BaseURL)
	require.Equal(t, "US", cfg.Yahoo.TrendingRegion)
	require.Equal(t, 10, cfg.Yahoo.TrendingLimit)
	require.Equal(t, "https://magnitudebackend.onrender.com", cfg.Prediction.Host)
	require.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)

	start, err := cfg.HistoryStart()
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
yahoo:
  trending_region: GB
  max_concurrency: 4
gemini:
  candidates:
    - {name: MSFT, cap: Large, risk: Low}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "GB", cfg.Yahoo.TrendingRegion)
	require.Equal(t, 4, cfg.Yahoo.MaxConcurrency)
	require.Equal(t, []Candidate{{Name: "MSFT", Cap: "Large", Risk: "Low"}}, cfg.Gemini.Candidates)
	// untouched sections keep their defaults
	require.Equal(t, 30, cfg.Server.RequestTimeoutSec)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"prediction":{"host":"http://localhost:5000"},"log":{"level":"debug"}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", cfg.Prediction.Host)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("REQUEST_TIMEOUT_SEC", "5")
	t.Setenv("TRENDING_LIMIT", "nope")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("TRACING_ENABLED", "yes")
	t.Setenv("HISTORY_START", "2023-06-01")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout())
	require.Equal(t, 10, cfg.Yahoo.TrendingLimit)
	require.Equal(t, "secret", cfg.Gemini.APIKey)
	require.True(t, cfg.Tracing.Enabled)

	start, err := cfg.HistoryStart()
	require.NoError(t, err)
	require.Equal(t, 2023, start.Year())
}

func TestLoad_InvalidHistoryStart(t *testing.T) {
	t.Setenv("HISTORY_START", "01/01/2022")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
