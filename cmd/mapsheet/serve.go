package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/mapsheet/internal/app"
	"github.com/mohammed-shakir/mapsheet/internal/core/config"
	"github.com/mohammed-shakir/mapsheet/internal/logger"
	"github.com/mohammed-shakir/mapsheet/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured maps over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			zl := logger.Build(logger.Config{
				Level:     cfg.Log.Level,
				Console:   cfg.Log.Console,
				SampleN:   cfg.Log.SampleN,
				Service:   "mapsheet",
				Component: "serve",
			}, cmd.OutOrStdout())
			appLog := logger.NewSlog(&zl)
			appLog.Info("starting mapsheet", "addr", cfg.Addr, "version", Version, "maps", len(cfg.Maps))

			ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, appLog, buildInfo())
			if err != nil {
				appLog.Error("failed to build app", "err", err)
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Serve(ctx); err != nil {
				appLog.Error("server exited", "err", err)
				return err
			}
			appLog.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

func buildInfo() metrics.BuildInfo {
	return metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate}
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
