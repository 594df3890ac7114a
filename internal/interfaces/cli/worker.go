package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/HyperBlend/internal/application/enrich"
	"github.com/turtacn/HyperBlend/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/HyperBlend/internal/interfaces/http"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/handlers"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

const defaultWorkerHealthPort = 9091

func newWorkerCmd() *cobra.Command {
	var (
		healthPort   int
		ensureTopics bool
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume enrichment jobs from Kafka",
		Long:  "Runs queued enrichment jobs announced on the enrichment topic. Job state must\nlive in Redis or SQLite so the API can observe progress.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cliCtx, healthPort, ensureTopics)
		},
	}
	cmd.Flags().IntVar(&healthPort, "health-port", defaultWorkerHealthPort, "port for /healthz, /readyz and metrics (0 disables)")
	cmd.Flags().BoolVar(&ensureTopics, "ensure-topics", true, "create the enrichment topic when missing")
	return cmd
}

func runWorker(parent context.Context, cliCtx *CLIContext, healthPort int, ensureTopics bool) error {
	cfg := cliCtx.Config
	if !cfg.Kafka.Enabled() {
		return errors.New(errors.ErrCodeInvalidConfig, "worker requires kafka.brokers")
	}
	// The worker only consumes; it never enqueues.
	cfg.Enrichment.Mode = string(enrich.ModeSync)

	logger, err := serviceLogger(cfg, "worker")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := BuildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	if stack.JobBackend == "memory" {
		logger.Warn("job store is in-process; API will not see job progress",
			logging.String("hint", "configure redis.addr or enrichment.job_db_path"))
	}

	if ensureTopics {
		if err := ensureEnrichmentTopic(ctx, cliCtx, logger); err != nil {
			logger.Warn("could not ensure enrichment topic", logging.Err(err))
		}
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, enrich.Handler(stack.Enrichment, logger), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("closing consumer failed", logging.Err(err))
		}
	}()

	var srv *httpserver.Server
	if healthPort > 0 {
		gin.SetMode(gin.ReleaseMode)
		rc := httpserver.RouterConfig{
			HealthHandler: handlers.NewHealthHandler(Version, stack.HealthCheckers()...),
			Logger:        logger,
		}
		if cfg.Metrics.Enabled {
			rc.MetricsPath = cfg.Metrics.Path
			rc.MetricsProbe = stack.Collector.Handler()
		}
		serverCfg := cfg.Server
		serverCfg.Port = healthPort
		srv = httpserver.NewServer(serverCfg, httpserver.NewRouter(rc), logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("health server failed", logging.Err(err))
			}
		}()
	}

	watchLogLevel(cliCtx.ConfigPath, logger)

	logger.Info("hyperblend worker started",
		logging.String("version", Version),
		logging.String("topic", cfg.Kafka.Topic),
		logging.String("group", cfg.Kafka.GroupID))

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	logger.Info("worker stopping",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("failed", consumer.Failed()))
	if srv != nil {
		return srv.Stop(context.Background())
	}
	return nil
}

func ensureEnrichmentTopic(ctx context.Context, cliCtx *CLIContext, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cliCtx.Config.Kafka.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopic(ctx, kafka.EnrichmentTopic(cliCtx.Config.Kafka.Topic))
}
