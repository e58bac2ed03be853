package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/mapop/persistence"
)

func newReplayCmd() *cobra.Command {
	var logPath string
	var runID string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the recorded sequence of base-plan selections for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath == "" {
				return fmt.Errorf("--log is required")
			}
			if runID == "" {
				return fmt.Errorf("--run is required")
			}
			store, err := persistence.Open(logPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Replay(runID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Printf("no replay entries recorded for run %s\n", runID)
				return nil
			}
			for _, e := range entries {
				cmd.Printf("%d\t%s\th_DTG=%d h_LAND=%d\n", e.Iteration, e.BasePlanName, e.HDTG, e.HLand)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "Path to the sqlite replay database (required)")
	cmd.Flags().StringVar(&runID, "run", "", "Run identifier to replay (required)")
	return cmd
}
