// Package config defines the configuration structures for HyperBlend. Loading
// lives in loader.go and defaults in defaults.go; this file holds plain data
// types and validation only.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sections
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SessionTTL bounds how long an idle UI session keeps its page controllers.
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// PublicURL is where the UI reaches the REST API. Empty means the server's
	// own listen address.
	PublicURL string `mapstructure:"public_url"`
	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimitRPS and RateLimitBurst bound API requests per client IP.
	// A zero rate disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// SecureCookies marks the UI session cookie Secure.
	SecureCookies bool `mapstructure:"secure_cookies"`
}

// Neo4jConfig holds graph database connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables Redis;
// job and layout state then stay in process memory.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	JobTTL       time.Duration `mapstructure:"job_ttl"`
	LayoutTTL    time.Duration `mapstructure:"layout_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// KafkaConfig holds the enrichment queue parameters. Empty Brokers disables
// Kafka; async jobs are then run by an in-process worker.
type KafkaConfig struct {
	Brokers  []string      `mapstructure:"brokers"`
	Topic    string        `mapstructure:"topic"`
	GroupID  string        `mapstructure:"group_id"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
	Retries  int           `mapstructure:"retries"`
	MinBytes int           `mapstructure:"min_bytes"`
	MaxBytes int           `mapstructure:"max_bytes"`
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// MinIOConfig holds object storage parameters for structure images. An empty
// Endpoint disables caching.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// Enabled reports whether an endpoint is configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// ClientConfig tunes the REST API client used by the UI and the CLI.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// InactivityWindow is how long the client may sit idle before
	// WaitForInitialization re-probes the server.
	InactivityWindow time.Duration `mapstructure:"inactivity_window"`
}

// UIConfig tunes the page controllers.
type UIConfig struct {
	InitRetryInterval time.Duration `mapstructure:"init_retry_interval"`
	InitMaxAttempts   int           `mapstructure:"init_max_attempts"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts   int           `mapstructure:"poll_max_attempts"`
	SearchDebounce    time.Duration `mapstructure:"search_debounce"`
	MessageTTL        time.Duration `mapstructure:"message_ttl"`
	HighlightDuration time.Duration `mapstructure:"highlight_duration"`
	GraphWidth        float64       `mapstructure:"graph_width"`
	GraphHeight       float64       `mapstructure:"graph_height"`
	// LayoutTicks is how many simulation steps run before a graph is served.
	LayoutTicks int `mapstructure:"layout_ticks"`
	// PhysicsFile optionally points at a TOML file overriding the layout forces.
	PhysicsFile string `mapstructure:"physics_file"`
}

// EnrichmentConfig configures the enrichment providers.
type EnrichmentConfig struct {
	Mode              string        `mapstructure:"mode"` // "sync" | "async"
	Workers           int           `mapstructure:"workers"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	PubChemURL        string        `mapstructure:"pubchem_url"`
	ChEMBLURL         string        `mapstructure:"chembl_url"`
	UniProtURL        string        `mapstructure:"uniprot_url"`
	TaxonomyURL       string        `mapstructure:"taxonomy_url"`
	// JobDBPath is a SQLite file used for job state when Redis is disabled.
	// Empty keeps jobs in memory.
	JobDBPath string `mapstructure:"job_db_path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Neo4j      Neo4jConfig       `mapstructure:"neo4j"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Client     ClientConfig      `mapstructure:"client"`
	UI         UIConfig          `mapstructure:"ui"`
	Enrichment EnrichmentConfig  `mapstructure:"enrichment"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks cross-field constraints. It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q must be debug, release or test", c.Server.Mode)
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}
	if _, err := url.Parse(c.Neo4j.URI); err != nil {
		return fmt.Errorf("config: neo4j.uri: %w", err)
	}
	if c.Client.BaseURL != "" {
		u, err := url.Parse(c.Client.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: client.base_url %q is not an absolute URL", c.Client.BaseURL)
		}
	}
	if c.Client.InactivityWindow <= 0 {
		return fmt.Errorf("config: client.inactivity_window must be positive")
	}
	if c.UI.InitMaxAttempts < 1 {
		return fmt.Errorf("config: ui.init_max_attempts must be at least 1")
	}
	if c.UI.PollMaxAttempts < 1 {
		return fmt.Errorf("config: ui.poll_max_attempts must be at least 1")
	}
	if c.UI.PollInterval <= 0 || c.UI.InitRetryInterval <= 0 {
		return fmt.Errorf("config: ui intervals must be positive")
	}
	switch c.Enrichment.Mode {
	case "sync", "async":
	default:
		return fmt.Errorf("config: enrichment.mode %q must be sync or async", c.Enrichment.Mode)
	}
	if c.Enrichment.RequestsPerSecond <= 0 {
		return fmt.Errorf("config: enrichment.requests_per_second must be positive")
	}
	if c.MinIO.Enabled() && c.MinIO.Bucket == "" {
		return fmt.Errorf("config: minio.bucket is required when minio.endpoint is set")
	}
	if c.Kafka.Enabled() && strings.TrimSpace(c.Kafka.Topic) == "" {
		return fmt.Errorf("config: kafka.topic is required when kafka.brokers is set")
	}
	return nil
}
