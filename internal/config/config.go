// -------------------------------------------------------------------------------
// Configuration - Songs API Settings
//
// Project: KCloud / Author: Alex Freidah
//
// Configuration types and loader for the songs API. Supports environment variable
// expansion in YAML values using ${VAR} syntax. Validates required fields before
// returning to catch misconfiguration early.
// -------------------------------------------------------------------------------

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// -------------------------------------------------------------------------
// CONFIGURATION TYPES
// -------------------------------------------------------------------------

// Config holds the complete service configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Auth           AuthConfig           `yaml:"auth"`
	Database       DatabaseConfig       `yaml:"database"`
	Bucket         BucketConfig         `yaml:"bucket"`
	Cache          CacheConfig          `yaml:"cache"`
	Events         EventsConfig         `yaml:"events"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // Max multipart body size in bytes (default: 2GiB)
}

// AuthConfig holds authentication settings. When the token is empty, the API
// is open (suitable behind a trusted gateway only).
type AuthConfig struct {
	Token string `yaml:"token"`
}

// DatabaseConfig holds MongoDB connection settings.
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Database       string        `yaml:"database"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // Startup ping budget (default: 10s)
}

// BucketConfig holds configuration for the S3-compatible object store that
// keeps the audio and cover blobs. Timeouts are tiered by operation cost:
// short for metadata probes and deletes, long for uploads and downloads.
type BucketConfig struct {
	Name            string        `yaml:"name"`
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	ForcePathStyle  bool          `yaml:"force_path_style"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`    // HeadObject budget (default: 12s)
	DeleteTimeout   time.Duration `yaml:"delete_timeout"`   // DeleteObject budget (default: 30s)
	TransferTimeout time.Duration `yaml:"transfer_timeout"` // Put/GetObject budget (default: 5m)
	URLExpiry       time.Duration `yaml:"url_expiry"`       // Pre-signed URL lifetime (default: 4m)
}

// CacheConfig holds Redis settings for the signed-URL cache. Disabled by
// default; the API works identically without it.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EventsConfig holds NATS settings for best-effort lifecycle events.
// Disabled by default.
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
	Insecure   bool    `yaml:"insecure"` // Use insecure connection (no TLS)
}

// RateLimitConfig holds per-IP rate limiting settings. Disabled by default.
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled"`
	RequestsPerSec float64 `yaml:"requests_per_sec"` // Token refill rate (default: 100)
	Burst          int     `yaml:"burst"`            // Max burst size (default: 200)
}

// CircuitBreakerConfig holds settings for the record store circuit breaker.
// When MongoDB becomes unreachable, requests fail fast with 503 instead of
// stacking up on a dead connection.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"` // Consecutive failures before opening (default: 3)
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // Delay before probing recovery (default: 15s)
}

// -------------------------------------------------------------------------
// CONFIGURATION LOADER
// -------------------------------------------------------------------------

// LoadConfig reads and parses the configuration file with environment variable
// expansion. Returns an error if the file cannot be read, parsed, or validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// --- Expand environment variables ---
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.SetDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// -------------------------------------------------------------------------
// VALIDATION
// -------------------------------------------------------------------------

// SetDefaultsAndValidate applies default values for optional fields and checks
// that all required configuration values are present.
func (c *Config) SetDefaultsAndValidate() error {
	var errors []string

	// --- Server validation ---
	if c.Server.ListenAddr == "" {
		errors = append(errors, "server.listen_addr is required")
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = 2 * 1024 * 1024 * 1024 // 2 GiB
	}

	// --- Database validation ---
	if c.Database.Host == "" {
		errors = append(errors, "database.host is required")
	}
	if c.Database.Database == "" {
		c.Database.Database = "songs"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 27017
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = 10 * time.Second
	}

	// --- Bucket validation ---
	if c.Bucket.Name == "" {
		errors = append(errors, "bucket.name is required")
	}
	if c.Bucket.Endpoint == "" {
		errors = append(errors, "bucket.endpoint is required")
	}
	if c.Bucket.AccessKeyID == "" {
		errors = append(errors, "bucket.access_key_id is required")
	}
	if c.Bucket.SecretAccessKey == "" {
		errors = append(errors, "bucket.secret_access_key is required")
	}

	// --- Bucket timeout defaults ---
	if c.Bucket.ProbeTimeout == 0 {
		c.Bucket.ProbeTimeout = 12 * time.Second
	}
	if c.Bucket.DeleteTimeout == 0 {
		c.Bucket.DeleteTimeout = 30 * time.Second
	}
	if c.Bucket.TransferTimeout == 0 {
		c.Bucket.TransferTimeout = 5 * time.Minute
	}
	if c.Bucket.URLExpiry == 0 {
		c.Bucket.URLExpiry = 4 * time.Minute
	}

	// --- Cache validation ---
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errors = append(errors, "cache.addr is required when cache is enabled")
	}

	// --- Events defaults ---
	if c.Events.Enabled {
		if c.Events.URL == "" {
			errors = append(errors, "events.url is required when events are enabled")
		}
		if c.Events.SubjectPrefix == "" {
			c.Events.SubjectPrefix = "songs"
		}
	}

	// --- Telemetry defaults ---
	if c.Telemetry.Metrics.Path == "" {
		c.Telemetry.Metrics.Path = "/metrics"
	}
	if c.Telemetry.Tracing.SampleRate == 0 && c.Telemetry.Tracing.Enabled {
		c.Telemetry.Tracing.SampleRate = 1.0
	}
	if c.Telemetry.Tracing.Enabled && c.Telemetry.Tracing.Endpoint == "" {
		errors = append(errors, "telemetry.tracing.endpoint is required when tracing is enabled")
	}

	// --- Rate limit defaults ---
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSec == 0 {
			c.RateLimit.RequestsPerSec = 100
		}
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 200
		}
		if c.RateLimit.RequestsPerSec <= 0 {
			errors = append(errors, "rate_limit.requests_per_sec must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			errors = append(errors, "rate_limit.burst must be positive")
		}
	}

	// --- Circuit breaker defaults ---
	if c.CircuitBreaker.FailureThreshold == 0 {
		c.CircuitBreaker.FailureThreshold = 3
	}
	if c.CircuitBreaker.OpenTimeout == 0 {
		c.CircuitBreaker.OpenTimeout = 15 * time.Second
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// ConnectionString returns a MongoDB connection URI with properly escaped
// credentials, safe for passwords containing special characters.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" && c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}
