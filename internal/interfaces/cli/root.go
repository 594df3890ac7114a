// Package cli implements the hyperblend command tree: the API and worker
// processes plus client-side commands that talk to a running API.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/HyperBlend/internal/config"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	Client       *client.Client
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "hyperblend",
		Short:   "HyperBlend molecular knowledge graph",
		Long:    "HyperBlend curates molecules, targets, organisms and effects in a graph database,\nenriches them from public chemistry databases and serves an interactive browser.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: HYPERBLEND_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "json", "output format (json, yaml, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-command timeout for API calls")
	pf.StringVar(&opts.ServerAddr, "server", "", "API base URL (default: client.base_url)")

	cmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newWorkerCmd(),
		newEntityCmd(),
		newEnrichCmd(),
		newStatsCmd(),
		newGraphCmd(),
		newMoleculesCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if err := validateOutputFormat(opts.OutputFormat); err != nil {
		return err
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "config initialization failed")
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "logger initialization failed")
	}

	addr := opts.ServerAddr
	if addr == "" {
		addr = cfg.Client.BaseURL
	}
	apiClient, err := client.NewClient(addr,
		client.WithTimeout(opts.Timeout),
		client.WithInactivityWindow(cfg.Client.InactivityWindow),
		client.WithLogger(logging.NewPrintf(logger.Named("client"))),
		client.WithUserAgent("hyperblend-cli/"+Version),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "API client initialization failed")
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   opts.ConfigPath,
		Logger:       logger,
		Client:       apiClient,
		OutputFormat: opts.OutputFormat,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cmd.SetContext(context.WithValue(parent, cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root pre-run hook.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLI context not initialized")
	}
	return cliCtx, nil
}

// callContext bounds a client command by the --timeout flag.
func (c *CLIContext) callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, map[string]string{
				"version":    Version,
				"commit":     GitCommit,
				"build_date": BuildDate,
				"client":     client.Version,
			})
		},
	}
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return ExecuteArgs(nil)
}

// ExecuteArgs runs the command tree with args; nil means os.Args. Errors are
// printed to stderr before being returned.
func ExecuteArgs(args []string) error {
	rootCmd := NewRootCommand()
	if args != nil {
		rootCmd.SetArgs(args)
	}
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}
