package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/HyperBlend/internal/config"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/HyperBlend/internal/interfaces/http"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/middleware"
)

// limiterIdleTTL is how long an unused per-client bucket is kept.
const limiterIdleTTL = 10 * time.Minute

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the graph browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}
			return runServe(cmd.Context(), cliCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// serviceLogger builds the structured logger long-running processes use.
func serviceLogger(cfg *config.Config, name string) (logging.Logger, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger = logger.Named(name)
	logging.SetDefault(logger)
	return logger, nil
}

// watchLogLevel applies log.level edits to logger while the process runs.
func watchLogLevel(path string, logger logging.Logger) {
	if path == "" {
		return
	}
	err := config.Watch(path,
		func(cfg *config.Config) {
			if logging.SetLevel(logger, cfg.Log.Level) {
				logger.Info("log level reloaded", logging.String("level", cfg.Log.Level))
			}
		},
		func(err error) {
			logger.Warn("ignoring invalid config revision", logging.Err(err))
		})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

func runServe(parent context.Context, cliCtx *CLIContext) error {
	cfg := cliCtx.Config
	logger, err := serviceLogger(cfg, "api")
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

	gin.SetMode(cfg.Server.Mode)

	var limiter *middleware.TokenBucketLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, limiterIdleTTL)
	}

	router, sessions, err := buildRouter(ctx, cfg, stack, limiter)
	if err != nil {
		return err
	}
	defer sessions.Close()

	watchLogLevel(cliCtx.ConfigPath, logger)

	srv := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("hyperblend API started",
		logging.String("version", Version),
		logging.Int("port", cfg.Server.Port),
		logging.String("enrichment_mode", cfg.Enrichment.Mode))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	return srv.Stop(context.Background())
}
