package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/mapsheet/internal/app"
	"github.com/mohammed-shakir/mapsheet/internal/core/config"
	"github.com/mohammed-shakir/mapsheet/internal/logger"
)

func newRenderCmd() *cobra.Command {
	var (
		mapName string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch one map once and write its HTML page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Refresh.Enabled = false
			if mapName == "" {
				if len(cfg.Maps) != 1 {
					names := make([]string, 0, len(cfg.Maps))
					for _, m := range cfg.Maps {
						names = append(names, m.Name)
					}
					return fmt.Errorf("--map is required (one of: %s)", strings.Join(names, ", "))
				}
				mapName = cfg.Maps[0].Name
			}

			zl := logger.Build(logger.Config{
				Level:     cfg.Log.Level,
				Console:   true,
				Service:   "mapsheet",
				Component: "render",
			}, cmd.ErrOrStderr())
			appLog := logger.NewSlog(&zl)

			ctx := background(cmd)
			a, err := app.Build(ctx, cfg, appLog, buildInfo())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var buf bytes.Buffer
			if err := a.RenderPage(ctx, &buf, mapName); err != nil {
				return fmt.Errorf("render %s: %w", mapName, err)
			}
			if output == "" || output == "-" {
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			appLog.Info("page written", "map", mapName, "path", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&mapName, "map", "", "map to render (required when several are configured)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: stdout)")
	return cmd
}
