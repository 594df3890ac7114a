package cli

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/application/enrich"
	"github.com/turtacn/HyperBlend/internal/application/molecule"
	"github.com/turtacn/HyperBlend/internal/config"
	"github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j"
	"github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/HyperBlend/internal/infrastructure/database/redis"
	"github.com/turtacn/HyperBlend/internal/infrastructure/database/sqlite"
	"github.com/turtacn/HyperBlend/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/HyperBlend/internal/interfaces/http"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/handlers"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/middleware"
	"github.com/turtacn/HyperBlend/internal/ui/app"
	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Stack holds the server-side components shared by the serve and worker
// commands.
type Stack struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Driver *neo4j.Driver
	Redis  *redis.Client
	MinIO  *minio.Client

	Catalog    enrich.Catalog
	Graph      catalog.GraphService
	Enrichment enrich.Service
	Molecules  molecule.Service
	Registry   *providers.Registry
	Positions  graphview.PositionStore

	// JobBackend names where job state lives: redis, sqlite or memory.
	JobBackend string
	// QueueBackend names where async jobs go: kafka, local or none.
	QueueBackend string

	closers []func() error
}

// BuildStack connects to every configured backend and assembles the
// application services. Optional backends (Redis, Kafka, MinIO) are skipped
// when unconfigured.
func BuildStack(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}
	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("service stack ready",
		logging.String("jobs", s.JobBackend),
		logging.String("queue", s.QueueBackend),
		logging.Bool("redis", s.Redis != nil),
		logging.Bool("minio", s.MinIO != nil))
	return s, nil
}

func (s *Stack) build(ctx context.Context) (err error) {
	cfg, logger := s.Config, s.Logger

	s.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	s.Metrics = prometheus.NewAppMetrics(s.Collector)

	s.Driver, err = neo4j.NewDriver(cfg.Neo4j, logger, neo4j.WithQueryObserver(s.Metrics))
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	s.closers = append(s.closers, s.Driver.Close)

	var cache catalog.Cache
	var graphOpts []catalog.GraphOption
	if cfg.Redis.Enabled() {
		s.Redis, err = redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, s.Redis.Close)
		cache = redis.NewCache(s.Redis, logger,
			redis.WithCacheName("catalog"),
			redis.WithDefaultTTL(cfg.Redis.CacheTTL),
			redis.WithCacheObserver(s.Metrics))
		graphOpts = append(graphOpts,
			catalog.WithCache(cache, cfg.Redis.CacheTTL),
			catalog.WithLocker(redis.NewLockFactory(s.Redis, logger)))
		s.Positions = redis.NewPositionStore(s.Redis, cfg.Redis.LayoutTTL, logger)
	} else {
		s.Positions = graphview.NewMemoryPositionStore()
	}

	s.Catalog = enrich.Catalog{
		Molecules: catalog.NewService(repositories.NewEntityRepository[entity.Molecule](s.Driver, logger), cache, logger),
		Targets:   catalog.NewService(repositories.NewEntityRepository[entity.Target](s.Driver, logger), cache, logger),
		Organisms: catalog.NewService(repositories.NewEntityRepository[entity.Organism](s.Driver, logger), cache, logger),
		Effects:   catalog.NewService(repositories.NewEntityRepository[entity.Effect](s.Driver, logger), cache, logger),
	}
	s.Graph = catalog.NewGraphService(repositories.NewGraphRepository(s.Driver, logger), logger, graphOpts...)
	s.Registry = providers.NewDefaultRegistry(cfg.Enrichment, logger, providers.WithObserver(s.Metrics))

	jobs, jobBackend, err := s.openJobStore()
	if err != nil {
		return err
	}
	s.JobBackend = jobBackend

	queue, err := s.openQueue()
	if err != nil {
		return err
	}

	s.Enrichment, err = enrich.NewService(enrich.Config{
		Mode:     enrich.Mode(strings.ToLower(cfg.Enrichment.Mode)),
		Timeout:  cfg.Enrichment.Timeout,
		Catalog:  s.Catalog,
		Enricher: s.Registry,
		Jobs:     jobs,
		Queue:    queue,
		Observer: s.Metrics,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}

	var structures minio.StructureStore
	if cfg.MinIO.Enabled() {
		s.MinIO, err = minio.NewClient(cfg.MinIO, logger)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		s.closers = append(s.closers, s.MinIO.Close)
		if err := s.MinIO.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		structures = minio.NewStructureStore(s.MinIO, logger)
	}
	pubchem := s.Registry.PubChem()
	s.Molecules = molecule.NewService(s.Catalog.Molecules, pubchem, pubchem, structures, logger)
	return nil
}

// openJobStore prefers Redis, then a SQLite file, then process memory.
func (s *Stack) openJobStore() (enrich.JobStore, string, error) {
	cfg := s.Config
	switch {
	case s.Redis != nil:
		return redis.NewJobStore(s.Redis, cfg.Redis.JobTTL), "redis", nil
	case cfg.Enrichment.JobDBPath != "":
		store, err := sqlite.Open(cfg.Enrichment.JobDBPath, cfg.Redis.JobTTL, s.Logger)
		if err != nil {
			return nil, "", fmt.Errorf("job store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, "sqlite", nil
	default:
		return enrich.NewMemoryJobStore(), "memory", nil
	}
}

// openQueue returns nil in sync mode. In async mode jobs go to Kafka when
// brokers are configured and to an in-process pool otherwise.
func (s *Stack) openQueue() (enrich.Queue, error) {
	cfg := s.Config
	if !strings.EqualFold(cfg.Enrichment.Mode, string(enrich.ModeAsync)) {
		s.QueueBackend = "none"
		return nil, nil
	}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka, s.Logger)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		s.closers = append(s.closers, producer.Close)
		s.QueueBackend = "kafka"
		return enrich.NewKafkaQueue(producer, cfg.Kafka.Topic, "hyperblend-api"), nil
	}
	local := enrich.NewLocalQueue(cfg.Enrichment.Workers, s.Logger)
	s.closers = append(s.closers, local.Close)
	s.QueueBackend = "local"
	return local, nil
}

// HealthCheckers lists a readiness check per connected backend.
func (s *Stack) HealthCheckers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{handlers.NewChecker("neo4j", s.Driver.HealthCheck)}
	if s.Redis != nil {
		checks = append(checks, handlers.NewChecker("redis", s.Redis.HealthCheck))
	}
	if s.MinIO != nil {
		checks = append(checks, handlers.NewChecker("minio", s.MinIO.HealthCheck))
	}
	return checks
}

// APIRoutes returns the REST handlers in mount order.
func (s *Stack) APIRoutes() []httpserver.APIRoutes {
	return []httpserver.APIRoutes{
		handlers.NewMoleculeHandler(s.Molecules, s.Graph),
		handlers.NewEntityHandler(s.Catalog.Molecules, s.Enrichment),
		handlers.NewEntityHandler(s.Catalog.Targets, s.Enrichment),
		handlers.NewEntityHandler(s.Catalog.Organisms, s.Enrichment),
		handlers.NewEntityHandler(s.Catalog.Effects, s.Enrichment),
		handlers.NewGraphHandler(s.Graph),
		handlers.NewJobHandler(s.Enrichment),
	}
}

// Close releases backends in reverse order of acquisition.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Warn("closing backend failed", logging.Err(err))
		}
	}
	s.closers = nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP surface
// ─────────────────────────────────────────────────────────────────────────────

// apiBaseURL is where the server-rendered UI reaches the REST API.
func apiBaseURL(cfg config.ServerConfig) string {
	base := strings.TrimSuffix(cfg.PublicURL, "/")
	if base == "" {
		base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}
	if !strings.HasSuffix(base, httpserver.APIPrefix) {
		base += httpserver.APIPrefix
	}
	return base
}

// loadPhysics returns the configured layout forces, falling back to the
// defaults when the file cannot be read.
func loadPhysics(path string, logger logging.Logger) graphview.Physics {
	if path == "" {
		return graphview.DefaultPhysics()
	}
	p, err := graphview.LoadPhysics(path)
	if err != nil {
		logger.Warn("using default graph physics", logging.String("file", path), logging.Err(err))
	}
	return p
}

// newUIFactory configures the controllers every UI session gets.
func newUIFactory(cfg *config.Config, s *Stack) (handlers.UIFactory, error) {
	c, err := client.NewClient(apiBaseURL(cfg.Server),
		client.WithTimeout(cfg.Client.Timeout),
		client.WithInactivityWindow(cfg.Client.InactivityWindow),
		client.WithLogger(logging.NewPrintf(s.Logger.Named("client"))),
		client.WithMetrics(s.Metrics),
		client.WithUserAgent("hyperblend-ui/"+Version))
	if err != nil {
		return handlers.UIFactory{}, err
	}

	ui := cfg.UI
	return handlers.UIFactory{
		Client: c,
		AppOptions: []app.Option{
			app.WithDebounce(ui.SearchDebounce),
			app.WithInitRetry(ui.InitRetryInterval, 8*ui.InitRetryInterval, ui.InitMaxAttempts),
			app.WithLogger(s.Logger),
			app.WithMetrics(s.Metrics),
			app.WithViewOptions(
				graphview.WithPhysics(loadPhysics(ui.PhysicsFile, s.Logger)),
				graphview.WithSize(ui.GraphWidth, ui.GraphHeight),
				graphview.WithLayoutTicks(ui.LayoutTicks),
				graphview.WithHighlightDuration(ui.HighlightDuration),
				graphview.WithLogger(s.Logger),
				graphview.WithMetrics(s.Metrics)),
		},
		PageOptions: []browser.Option{
			browser.WithInitRetry(ui.InitRetryInterval, ui.InitMaxAttempts),
			browser.WithPolling(ui.PollInterval, ui.PollMaxAttempts),
			browser.WithMessageTTL(ui.MessageTTL),
			browser.WithLogger(s.Logger),
			browser.WithMetrics(s.Metrics),
		},
		Positions: s.Positions,
	}, nil
}

// buildRouter assembles the gin engine for the serve command.
func buildRouter(ctx context.Context, cfg *config.Config, s *Stack, limiter *middleware.TokenBucketLimiter) (nethttp.Handler, *handlers.SessionStore, error) {
	factory, err := newUIFactory(cfg, s)
	if err != nil {
		return nil, nil, err
	}
	sessions := handlers.NewSessionStore(ctx, factory, cfg.Server.SessionTTL, s.Metrics, s.Logger)

	rc := httpserver.RouterConfig{
		API:           s.APIRoutes(),
		HealthHandler: handlers.NewHealthHandler(Version, s.HealthCheckers()...),
		UIHandler:     handlers.NewUIHandler(sessions, cfg.Server.SecureCookies),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimit:     middleware.DefaultRateLimitConfig(),
		Logger:        s.Logger,
		HTTPMetrics:   s.Metrics,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		rc.CORS = &cors
	}
	if limiter != nil {
		rc.RateLimiter = limiter
	}
	if cfg.Metrics.Enabled {
		rc.MetricsPath = cfg.Metrics.Path
		rc.MetricsProbe = s.Collector.Handler()
	}
	return httpserver.NewRouter(rc), sessions, nil
}
