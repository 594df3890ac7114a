package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerPort       = 8080
	DefaultServerMode       = "debug"
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultSessionTTL       = 30 * time.Minute
	DefaultRateLimitRPS     = 20
	DefaultRateLimitBurst   = 40
	DefaultNeo4jURI         = "bolt://localhost:7687"
	DefaultNeo4jUser        = "neo4j"
	DefaultNeo4jDatabase    = "neo4j"
	DefaultNeo4jPoolSize    = 50
	DefaultRedisKeyPrefix   = "hyperblend:"
	DefaultCacheTTL         = 30 * time.Second
	DefaultJobTTL           = 24 * time.Hour
	DefaultLayoutTTL        = 7 * 24 * time.Hour
	DefaultKafkaTopic       = "hyperblend.enrichment"
	DefaultKafkaGroupID     = "hyperblend-enrichment"
	DefaultMinIOBucket      = "hyperblend-structures"
	DefaultClientBaseURL    = "http://localhost:8080/api"
	DefaultClientTimeout    = 30 * time.Second
	DefaultInactivityWindow = 60 * time.Second

	DefaultInitRetryInterval = 500 * time.Millisecond
	DefaultInitMaxAttempts   = 10
	DefaultPollInterval      = time.Second
	DefaultPollMaxAttempts   = 30
	DefaultSearchDebounce    = 300 * time.Millisecond
	DefaultMessageTTL        = 5 * time.Second
	DefaultHighlightDuration = 1500 * time.Millisecond
	DefaultGraphWidth        = 960
	DefaultGraphHeight       = 640
	DefaultLayoutTicks       = 300

	DefaultEnrichmentMode    = "async"
	DefaultEnrichmentWorkers = 4
	DefaultEnrichmentTimeout = 20 * time.Second
	DefaultProviderRPS       = 5
	DefaultProviderBurst     = 1
	DefaultPubChemURL        = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultChEMBLURL         = "https://www.ebi.ac.uk/chembl/api/data"
	DefaultUniProtURL        = "https://rest.uniprot.org/uniprotkb"
	DefaultTaxonomyURL       = "https://api.gbif.org/v1/species"

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
	DefaultNamespace   = "hyperblend"
)

// ApplyDefaults fills zero-value fields of cfg. Explicit values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	setInt(&cfg.Server.Port, DefaultServerPort)
	setString(&cfg.Server.Mode, DefaultServerMode)
	setDuration(&cfg.Server.ReadTimeout, 30*time.Second)
	setDuration(&cfg.Server.WriteTimeout, 30*time.Second)
	setDuration(&cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	setDuration(&cfg.Server.SessionTTL, DefaultSessionTTL)
	setInt(&cfg.Server.RateLimitBurst, DefaultRateLimitBurst)

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	setString(&cfg.Neo4j.URI, DefaultNeo4jURI)
	setString(&cfg.Neo4j.User, DefaultNeo4jUser)
	setString(&cfg.Neo4j.Database, DefaultNeo4jDatabase)
	setInt(&cfg.Neo4j.MaxConnectionPoolSize, DefaultNeo4jPoolSize)
	setDuration(&cfg.Neo4j.ConnectionTimeout, 10*time.Second)

	// ── Redis ─────────────────────────────────────────────────────────────────
	setInt(&cfg.Redis.PoolSize, 10)
	setDuration(&cfg.Redis.DialTimeout, 5*time.Second)
	setDuration(&cfg.Redis.ReadTimeout, 3*time.Second)
	setDuration(&cfg.Redis.WriteTimeout, 3*time.Second)
	setString(&cfg.Redis.KeyPrefix, DefaultRedisKeyPrefix)
	setDuration(&cfg.Redis.CacheTTL, DefaultCacheTTL)
	setDuration(&cfg.Redis.JobTTL, DefaultJobTTL)
	setDuration(&cfg.Redis.LayoutTTL, DefaultLayoutTTL)

	// ── Kafka ─────────────────────────────────────────────────────────────────
	setString(&cfg.Kafka.Topic, DefaultKafkaTopic)
	setString(&cfg.Kafka.GroupID, DefaultKafkaGroupID)
	setDuration(&cfg.Kafka.MaxWait, 500*time.Millisecond)
	setInt(&cfg.Kafka.Retries, 3)
	setInt(&cfg.Kafka.MinBytes, 1)
	setInt(&cfg.Kafka.MaxBytes, 10<<20)

	// ── MinIO ─────────────────────────────────────────────────────────────────
	setString(&cfg.MinIO.Bucket, DefaultMinIOBucket)

	// ── Client ────────────────────────────────────────────────────────────────
	setString(&cfg.Client.BaseURL, DefaultClientBaseURL)
	setDuration(&cfg.Client.Timeout, DefaultClientTimeout)
	setDuration(&cfg.Client.InactivityWindow, DefaultInactivityWindow)

	// ── UI ────────────────────────────────────────────────────────────────────
	setDuration(&cfg.UI.InitRetryInterval, DefaultInitRetryInterval)
	setInt(&cfg.UI.InitMaxAttempts, DefaultInitMaxAttempts)
	setDuration(&cfg.UI.PollInterval, DefaultPollInterval)
	setInt(&cfg.UI.PollMaxAttempts, DefaultPollMaxAttempts)
	setDuration(&cfg.UI.SearchDebounce, DefaultSearchDebounce)
	setDuration(&cfg.UI.MessageTTL, DefaultMessageTTL)
	setDuration(&cfg.UI.HighlightDuration, DefaultHighlightDuration)
	if cfg.UI.GraphWidth == 0 {
		cfg.UI.GraphWidth = DefaultGraphWidth
	}
	if cfg.UI.GraphHeight == 0 {
		cfg.UI.GraphHeight = DefaultGraphHeight
	}
	setInt(&cfg.UI.LayoutTicks, DefaultLayoutTicks)

	// ── Enrichment ────────────────────────────────────────────────────────────
	setString(&cfg.Enrichment.Mode, DefaultEnrichmentMode)
	setInt(&cfg.Enrichment.Workers, DefaultEnrichmentWorkers)
	setDuration(&cfg.Enrichment.Timeout, DefaultEnrichmentTimeout)
	if cfg.Enrichment.RequestsPerSecond == 0 {
		cfg.Enrichment.RequestsPerSecond = DefaultProviderRPS
	}
	setInt(&cfg.Enrichment.Burst, DefaultProviderBurst)
	setString(&cfg.Enrichment.PubChemURL, DefaultPubChemURL)
	setString(&cfg.Enrichment.ChEMBLURL, DefaultChEMBLURL)
	setString(&cfg.Enrichment.UniProtURL, DefaultUniProtURL)
	setString(&cfg.Enrichment.TaxonomyURL, DefaultTaxonomyURL)

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	setString(&cfg.Log.Level, DefaultLogLevel)
	setString(&cfg.Log.Format, DefaultLogFormat)
	setString(&cfg.Metrics.Path, DefaultMetricsPath)
	setString(&cfg.Metrics.Namespace, DefaultNamespace)
}

// registerKeys seeds viper with every key so that AutomaticEnv can resolve
// HYPERBLEND_* overrides even when no config file mentions the key.
func registerKeys(v *viper.Viper) {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Metrics.Enabled = true

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.mode", cfg.Server.Mode)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.session_ttl", cfg.Server.SessionTTL)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit_rps", DefaultRateLimitRPS)
	v.SetDefault("server.rate_limit_burst", cfg.Server.RateLimitBurst)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("neo4j.max_connection_pool_size", cfg.Neo4j.MaxConnectionPoolSize)
	v.SetDefault("neo4j.connection_timeout", cfg.Neo4j.ConnectionTimeout)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", cfg.Redis.KeyPrefix)
	v.SetDefault("redis.cache_ttl", cfg.Redis.CacheTTL)
	v.SetDefault("redis.job_ttl", cfg.Redis.JobTTL)
	v.SetDefault("redis.layout_ttl", cfg.Redis.LayoutTTL)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", cfg.Kafka.Topic)
	v.SetDefault("kafka.group_id", cfg.Kafka.GroupID)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", cfg.MinIO.Bucket)

	v.SetDefault("client.base_url", cfg.Client.BaseURL)
	v.SetDefault("client.timeout", cfg.Client.Timeout)
	v.SetDefault("client.inactivity_window", cfg.Client.InactivityWindow)

	v.SetDefault("ui.init_retry_interval", cfg.UI.InitRetryInterval)
	v.SetDefault("ui.init_max_attempts", cfg.UI.InitMaxAttempts)
	v.SetDefault("ui.poll_interval", cfg.UI.PollInterval)
	v.SetDefault("ui.poll_max_attempts", cfg.UI.PollMaxAttempts)
	v.SetDefault("ui.search_debounce", cfg.UI.SearchDebounce)
	v.SetDefault("ui.message_ttl", cfg.UI.MessageTTL)
	v.SetDefault("ui.highlight_duration", cfg.UI.HighlightDuration)
	v.SetDefault("ui.layout_ticks", cfg.UI.LayoutTicks)
	v.SetDefault("ui.physics_file", "")

	v.SetDefault("enrichment.mode", cfg.Enrichment.Mode)
	v.SetDefault("enrichment.workers", cfg.Enrichment.Workers)
	v.SetDefault("enrichment.timeout", cfg.Enrichment.Timeout)
	v.SetDefault("enrichment.requests_per_second", cfg.Enrichment.RequestsPerSecond)
	v.SetDefault("enrichment.burst", cfg.Enrichment.Burst)
	v.SetDefault("enrichment.pubchem_url", cfg.Enrichment.PubChemURL)
	v.SetDefault("enrichment.chembl_url", cfg.Enrichment.ChEMBLURL)
	v.SetDefault("enrichment.uniprot_url", cfg.Enrichment.UniProtURL)
	v.SetDefault("enrichment.taxonomy_url", cfg.Enrichment.TaxonomyURL)
	v.SetDefault("enrichment.job_db_path", "")

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}

func setString(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func setInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

func setDuration(p *time.Duration, def time.Duration) {
	if *p == 0 {
		*p = def
	}
}
