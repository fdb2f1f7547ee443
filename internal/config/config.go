package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `yaml:"port"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes"`
}

type Yahoo struct {
	BaseURL        string `yaml:"base_url"`
	CookieURL      string `yaml:"cookie_url"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	TrendingRegion string `yaml:"trending_region"`
	TrendingLimit  int    `yaml:"trending_limit"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	HistoryStart   string `yaml:"history_start"`
}

type Prediction struct {
	Host       string `yaml:"host"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type Candidate struct {
	Name string `yaml:"name"`
	Cap  string `yaml:"cap"`
	Risk string `yaml:"risk"`
}

type Gemini struct {
	APIKey       string      `yaml:"api_key"`
	Model        string      `yaml:"model"`
	JSONResponse bool        `yaml:"json_response"`
	Candidates   []Candidate `yaml:"candidates"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Yahoo      Yahoo      `yaml:"yahoo"`
	Prediction Prediction `yaml:"prediction"`
	Gemini     Gemini     `yaml:"gemini"`
	Log        Log        `yaml:"log"`
	Tracing    Tracing    `yaml:"tracing"`
}

const historyLayout = "2006-01-02"

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30, MaxBodyBytes: 1 << 20},
		Yahoo: Yahoo{
			BaseURL:        "https://query1.finance.yahoo.com",
			CookieURL:      "https://fc.yahoo.com",
			TimeoutSec:     10,
			TrendingRegion: "US",
			TrendingLimit:  10,
			HistoryStart:   "2022-01-01",
		},
		Prediction: Prediction{
			Host:       "https://magnitudebackend.onrender.com",
			TimeoutSec: 60,
		},
		Gemini: Gemini{Model: "gemini-2.0-flash"},
		Log:    Log{Level: "info", Format: "json"},
	}
}

// Load reads a YAML config from path. JSON files work too since JSON is a
// subset of YAML. If path is empty, config.yaml and then config.json are
// tried; a missing file leaves the defaults. Environment variables override
// file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.json"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if _, err := cfg.HistoryStart(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// HistoryStart is the first day of the stock-compare chart.
func (c Config) HistoryStart() (time.Time, error) {
	t, err := time.Parse(historyLayout, c.Yahoo.HistoryStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse history_start %q: %w", c.Yahoo.HistoryStart, err)
	}
	return t, nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}

	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}
	if v := os.Getenv("YAHOO_COOKIE_URL"); v != "" {
		cfg.Yahoo.CookieURL = v
	}
	if v := os.Getenv("TRENDING_REGION"); v != "" {
		cfg.Yahoo.TrendingRegion = v
	}
	if x, ok := envInt("TRENDING_LIMIT"); ok && x > 0 {
		cfg.Yahoo.TrendingLimit = x
	}
	if x, ok := envInt("FETCH_MAX_CONCURRENCY"); ok && x >= 0 {
		cfg.Yahoo.MaxConcurrency = x
	}
	if v := os.Getenv("HISTORY_START"); v != "" {
		cfg.Yahoo.HistoryStart = v
	}

	if v := os.Getenv("PREDICTION_HOST"); v != "" {
		cfg.Prediction.Host = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Tracing.Enabled = true
		case "0", "false", "no", "n":
			cfg.Tracing.Enabled = false
		}
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return x, true
}
