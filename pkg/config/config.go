package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	Port        string
	Environment string

	APIBaseURL string
	APITimeout time.Duration

	PollInterval         time.Duration
	AlertSyncInterval    time.Duration
	SessionCheckInterval time.Duration
	TokenRefreshWindow   time.Duration
	ReportInterval       time.Duration
	ReportRetention      time.Duration

	LiveSeriesCapacity     int
	SnapshotSeriesCapacity int
	ScanTimeoutSeconds     int

	StorageBackend string
	SQLitePath     string
	RedisURL       string
	RedisKeyPrefix string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ReportsBucket  string
	ReportFormat   string

	RabbitMQURL    string
	NotifyExchange string

	CORSOrigin string
}

// fileConfig mirrors Config for the optional YAML file named by NETMON_CONFIG.
// Environment variables win over file values.
type fileConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	API         struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Intervals struct {
		Poll         string `yaml:"poll"`
		AlertSync    string `yaml:"alert_sync"`
		SessionCheck string `yaml:"session_check"`
		TokenRefresh string `yaml:"token_refresh_window"`
		Report       string `yaml:"report"`
		Retention    string `yaml:"report_retention"`
	} `yaml:"intervals"`
	Series struct {
		Live     int `yaml:"live"`
		Snapshot int `yaml:"snapshot"`
	} `yaml:"series"`
	ScanTimeout int `yaml:"scan_timeout"`
	Storage     struct {
		Backend   string `yaml:"backend"`
		SQLite    string `yaml:"sqlite_path"`
		RedisURL  string `yaml:"redis_url"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"storage"`
	Minio struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
		Bucket    string `yaml:"bucket"`
		Format    string `yaml:"format"`
	} `yaml:"minio"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	CORSOrigin string `yaml:"cors_origin"`
}

func Load() (*Config, error) {
	var file fileConfig
	if path := os.Getenv("NETMON_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	p := &parser{}
	cfg := &Config{
		Port:        getEnv("PORT", or(file.Port, "8090")),
		Environment: getEnv("GO_ENV", or(file.Environment, "development")),

		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", or(file.API.BaseURL, "http://localhost:8000/api")), "/"),
		APITimeout: p.duration("API_TIMEOUT", or(file.API.Timeout, "15s")),

		PollInterval:         p.duration("POLL_INTERVAL", or(file.Intervals.Poll, "5s")),
		AlertSyncInterval:    p.duration("ALERT_SYNC_INTERVAL", or(file.Intervals.AlertSync, "30s")),
		SessionCheckInterval: p.duration("SESSION_CHECK_INTERVAL", or(file.Intervals.SessionCheck, "1m")),
		TokenRefreshWindow:   p.duration("TOKEN_REFRESH_WINDOW", or(file.Intervals.TokenRefresh, "5m")),
		ReportInterval:       p.duration("REPORT_INTERVAL", or(file.Intervals.Report, "24h")),
		ReportRetention:      p.duration("REPORT_RETENTION", or(file.Intervals.Retention, "720h")),

		LiveSeriesCapacity:     p.integer("LIVE_SERIES_CAPACITY", orInt(file.Series.Live, 10)),
		SnapshotSeriesCapacity: p.integer("SNAPSHOT_SERIES_CAPACITY", orInt(file.Series.Snapshot, 7)),
		ScanTimeoutSeconds:     p.integer("SCAN_TIMEOUT", orInt(file.ScanTimeout, 1)),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", or(file.Storage.Backend, StorageSQLite))),
		SQLitePath:     getEnv("SQLITE_PATH", or(file.Storage.SQLite, "data/netmon.db")),
		RedisURL:       getEnv("REDIS_URL", or(file.Storage.RedisURL, "redis://localhost:6379")),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", or(file.Storage.KeyPrefix, "netmon:")),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", file.Minio.Endpoint),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", or(file.Minio.AccessKey, "minioadmin")),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", or(file.Minio.SecretKey, "minioadmin")),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", strconv.FormatBool(file.Minio.UseSSL)) == "true",
		ReportsBucket:  getEnv("REPORTS_BUCKET", or(file.Minio.Bucket, "netmon-reports")),
		ReportFormat:   strings.ToLower(getEnv("REPORT_FORMAT", or(file.Minio.Format, "json"))),

		RabbitMQURL:    getEnv("RABBITMQ_URL", file.RabbitMQ.URL),
		NotifyExchange: getEnv("NOTIFY_EXCHANGE", or(file.RabbitMQ.Exchange, "netmon.events")),

		CORSOrigin: getEnv("CORS_ORIGIN", or(file.CORSOrigin, "*")),
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missingVars []string

	if c.Port == "" {
		missingVars = append(missingVars, "PORT")
	}
	if c.APIBaseURL == "" {
		missingVars = append(missingVars, "API_BASE_URL")
	}
	switch c.StorageBackend {
	case StorageSQLite:
		if c.SQLitePath == "" {
			missingVars = append(missingVars, "SQLITE_PATH")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			missingVars = append(missingVars, "REDIS_URL")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: want %s or %s", c.StorageBackend, StorageSQLite, StorageRedis)
	}
	if c.MinioEnabled() {
		if c.MinioAccessKey == "" {
			missingVars = append(missingVars, "MINIO_ACCESS_KEY")
		}
		if c.MinioSecretKey == "" {
			missingVars = append(missingVars, "MINIO_SECRET_KEY")
		}
		if c.ReportsBucket == "" {
			missingVars = append(missingVars, "REPORTS_BUCKET")
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API_BASE_URL scheme %q", u.Scheme)
	}
	if c.StorageBackend == StorageRedis {
		if _, err := url.Parse(c.RedisURL); err != nil {
			return fmt.Errorf("invalid REDIS_URL format: %w", err)
		}
	}

	for name, d := range map[string]time.Duration{
		"API_TIMEOUT":            c.APITimeout,
		"POLL_INTERVAL":          c.PollInterval,
		"ALERT_SYNC_INTERVAL":    c.AlertSyncInterval,
		"SESSION_CHECK_INTERVAL": c.SessionCheckInterval,
		"REPORT_INTERVAL":        c.ReportInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.LiveSeriesCapacity < 1 || c.SnapshotSeriesCapacity < 1 {
		return fmt.Errorf("series capacities must be at least 1")
	}
	if c.ScanTimeoutSeconds < 1 {
		return fmt.Errorf("SCAN_TIMEOUT must be at least 1 second")
	}
	if c.ReportFormat != "json" && c.ReportFormat != "csv" {
		return fmt.Errorf("invalid REPORT_FORMAT %q", c.ReportFormat)
	}

	return nil
}

// MinioEnabled reports whether report export to object storage is configured
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

// NotifyEnabled reports whether health transitions are published to RabbitMQ
func (c *Config) NotifyEnabled() bool {
	return c.RabbitMQURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

// parser keeps the first conversion error so Load can report it once
type parser struct {
	err error
}

func (p *parser) duration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	raw := getEnv(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n
}
