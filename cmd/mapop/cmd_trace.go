package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/mapop"
	"github.com/lexcodex/mapop/config"
	"github.com/lexcodex/mapop/internal/fixture"
	"github.com/lexcodex/mapop/internal/traceui"
	"github.com/lexcodex/mapop/observer"
)

func newTraceCmd() *cobra.Command {
	var taskPath string
	var configPath string
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Run the planner with a live trace viewer attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskPath == "" {
				return fmt.Errorf("--task is required")
			}
			t, err := fixture.Load(taskPath)
			if err != nil {
				return err
			}
			cfg, err := loadConfigOrDefault(configPath)
			if err != nil {
				return err
			}

			ch := observer.NewChannelObserver(256)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			done := make(chan error, 1)
			go func() {
				_, _, err := mapop.RunPlanner(ctx, t, nil, cfg, ch)
				done <- err
			}()

			if err := traceui.Run(ctx, ch); err != nil {
				return err
			}
			return <-done
		},
	}
	cmd.Flags().StringVar(&taskPath, "task", "", "Path to a JSON GroundedTask fixture (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML planner config (defaults applied when omitted)")
	return cmd
}
