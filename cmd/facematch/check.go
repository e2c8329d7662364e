package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facematch/internal/config"
	healthuc "github.com/kailas-cloud/facematch/internal/usecase/health"
)

const checkTimeout = 10 * time.Second

var errDegraded = errors.New("health check failed")

func newCheckCmd(opts *options, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the configured extractor backend and print a JSON health report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*opts)
			if err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			svc, err := buildExtraction(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			report := newHealthService(cfg, svc).Check(ctx)

			enc := json.NewEncoder(s.out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if report.Status != healthuc.Healthy {
				return errDegraded
			}
			return nil
		},
	}
}

func newHealthService(cfg config.Config, extractor healthuc.Checker) *healthuc.Service {
	checkers := map[string]healthuc.Checker{"extractor": extractor}
	// Pass nil interface (not typed nil pointer) when push is disabled.
	if pusher := newPusher(cfg); pusher != nil {
		checkers["pushgateway"] = pusher
	}
	return healthuc.New(checkers)
}
