package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort           string  `yaml:"api_port"`
	LogLevel          string  `yaml:"log_level"`
	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`

	RemoteAPIURL         string        `yaml:"remote_api_url"`
	RemoteAPIToken       string        `yaml:"remote_api_token"`
	HTTPTimeout          time.Duration `yaml:"http_timeout"`
	RemoteRateLimitRPS   float64       `yaml:"remote_rate_limit_rps"`
	RemoteRateLimitBurst int           `yaml:"remote_rate_limit_burst"`
	BreakerEnabled       bool          `yaml:"breaker_enabled"`

	ProjectID string `yaml:"project_id"`
	Parser    string `yaml:"parser"`

	BatchPollInterval    time.Duration `yaml:"batch_poll_interval"`
	HighlightSettleDelay time.Duration `yaml:"highlight_settle_delay"`

	// ParseCacheDSN switches parse lookups to the backend database.
	ParseCacheDSN string `yaml:"parse_cache_dsn"`
	// LocalStoragePath switches documents and parses to a local directory tree.
	LocalStoragePath string `yaml:"local_storage_path"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	MetricsPort string `yaml:"metrics_port"`

	ConfigFile string `yaml:"-"`
}

func Defaults() Config {
	return Config{
		APIPort:              "8080",
		LogLevel:             "info",
		APIRateLimitBurst:    20,
		APIMaxInFlight:       64,
		RemoteAPIURL:         "http://localhost:8000/api",
		HTTPTimeout:          60 * time.Second,
		RemoteRateLimitRPS:   20,
		RemoteRateLimitBurst: 10,
		BreakerEnabled:       true,
		Parser:               "landing_ai",
		BatchPollInterval:    2 * time.Second,
		HighlightSettleDelay: 150 * time.Millisecond,
		NATSSubject:          "docnav.batch.finished",
		MetricsPort:          "9090",
	}
}

// Load applies defaults, then the YAML file named by NAVIGATOR_CONFIG_FILE, then
// the environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("NAVIGATOR_CONFIG_FILE"); path != "" {
		fromFile, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fromFile
		cfg.ConfigFile = path
	}
	return fromEnv(cfg), nil
}

// LoadFile overlays the keys present in a YAML file onto base.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func fromEnv(base Config) Config {
	return Config{
		APIPort:  mustEnv("API_PORT", base.APIPort),
		LogLevel: mustEnv("LOG_LEVEL", base.LogLevel),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", base.APIRateLimitRPS),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", base.APIRateLimitBurst),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", base.APIMaxInFlight),

		RemoteAPIURL:         mustEnv("REMOTE_API_URL", base.RemoteAPIURL),
		RemoteAPIToken:       mustEnv("REMOTE_API_TOKEN", base.RemoteAPIToken),
		HTTPTimeout:          mustEnvDuration("HTTP_TIMEOUT", base.HTTPTimeout),
		RemoteRateLimitRPS:   mustEnvFloat("REMOTE_RATE_LIMIT_RPS", base.RemoteRateLimitRPS),
		RemoteRateLimitBurst: mustEnvInt("REMOTE_RATE_LIMIT_BURST", base.RemoteRateLimitBurst),
		BreakerEnabled:       mustEnvBool("BREAKER_ENABLED", base.BreakerEnabled),

		ProjectID: mustEnv("PROJECT_ID", base.ProjectID),
		Parser:    mustEnv("PARSER", base.Parser),

		BatchPollInterval:    mustEnvDuration("BATCH_POLL_INTERVAL", base.BatchPollInterval),
		HighlightSettleDelay: mustEnvDuration("HIGHLIGHT_SETTLE_DELAY", base.HighlightSettleDelay),

		ParseCacheDSN:    mustEnv("PARSE_CACHE_DSN", base.ParseCacheDSN),
		LocalStoragePath: mustEnv("LOCAL_STORAGE_PATH", base.LocalStoragePath),

		NATSURL:     mustEnv("NATS_URL", base.NATSURL),
		NATSSubject: mustEnv("NATS_SUBJECT", base.NATSSubject),

		MetricsPort: mustEnv("METRICS_PORT", base.MetricsPort),

		ConfigFile: base.ConfigFile,
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("2s") or bare milliseconds ("2000").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
