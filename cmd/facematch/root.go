package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/config"
	"github.com/kailas-cloud/facematch/internal/domain"
	logpkg "github.com/kailas-cloud/facematch/internal/logger"
	"github.com/kailas-cloud/facematch/internal/metrics"
	"github.com/kailas-cloud/facematch/internal/transport/stdio"
	"github.com/kailas-cloud/facematch/internal/version"
)

const pushTimeout = 5 * time.Second

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type options struct {
	env       string
	configDir string
	logLevel  string
	// bootErr is reported through the normal response path, not as a CLI error.
	bootErr error
}

func newRootCmd(s streams) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "facematch",
		Short: "Face embedding extraction and comparison over stdin/stdout",
		Long: `facematch reads one JSON request from stdin and writes one JSON response to stdout.

Operations:
  extract_embedding   {"type":"extract_embedding","data":{"image":"<base64>"}}
  calculate_distance  {"type":"calculate_distance","data":{"embedding1":[...],"embedding2":[...]}}
  compare_faces       {"type":"compare_faces","data":{"image":"<base64>","embeddings":[{"embedding":[...],"name":"..."}]}}

Logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			boot, err := config.LoadBootstrap()
			if err != nil {
				opts.bootErr = err
				return nil
			}
			if !cmd.Flags().Changed("env") {
				opts.env = boot.Env
			}
			if !cmd.Flags().Changed("config") {
				opts.configDir = boot.ConfigDir
			}
			opts.logLevel = boot.LogLevel
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRequest(ctx, opts, s)
		},
	}

	root.PersistentFlags().StringVar(&opts.env, "env", "local", "environment name, selects <config>/<env>.yaml")
	root.PersistentFlags().StringVar(&opts.configDir, "config", "config", "config directory")
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	root.AddCommand(newCheckCmd(&opts, s), newVersionCmd(s))
	return root
}

// setup loads config and builds the logger. The returned logger is never nil.
func setup(opts options) (config.Config, *zap.Logger, error) {
	if opts.bootErr != nil {
		return config.Config{}, zap.NewNop(), opts.bootErr
	}
	cfg, err := config.Load(opts.configDir, opts.env)
	if err != nil {
		return config.Config{}, zap.NewNop(), err
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logpkg.NewLogger(opts.env, level)
	if err != nil {
		return config.Config{}, zap.NewNop(), err
	}
	return cfg, logger, nil
}

// runRequest serves exactly one request. Only a failed stdout write is returned.
func runRequest(ctx context.Context, opts options, s streams) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		fmt.Fprintln(s.err, "facematch: startup failed:", err)
		return stdio.WriteResponse(s.out, stdio.Failure(fmt.Errorf("%w: %v", domain.ErrUnhandledFault, err)))
	}
	defer func() { _ = logger.Sync() }()

	// Register metrics explicitly (no init())
	metrics.Register()

	logger.Debug("Starting facematch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.env),
		zap.String("backend", cfg.Extractor.Backend),
		zap.String("model", cfg.Model.Name),
		zap.Float64("threshold", cfg.Matching.Threshold),
	)

	svc, err := buildExtraction(cfg, logger)
	if err != nil {
		logger.Error("Failed to build extractor", zap.Error(err))
		return stdio.WriteResponse(s.out, stdio.Failure(fmt.Errorf("%w: %v", domain.ErrUnhandledFault, err)))
	}

	matchCfg := cfg.MatchConfig()
	dispatcher := stdio.NewDispatcher(svc, newEngine(matchCfg, logger), matchCfg, logger)

	writeErr := dispatcher.Serve(ctx, s.in, s.out)

	pushMetrics(cfg, logger)

	return writeErr
}

func pushMetrics(cfg config.Config, logger *zap.Logger) {
	pusher := newPusher(cfg)
	if pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := pusher.Push(ctx); err != nil {
		logger.Warn("Failed to push metrics", zap.Error(err))
	}
}

func newPusher(cfg config.Config) *metrics.Pusher {
	host, _ := os.Hostname()
	return metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, map[string]string{
		"instance": host,
		"backend":  cfg.Extractor.Backend,
	})
}
