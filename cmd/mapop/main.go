// Command mapop drives the cooperative multi-agent planner from the
// shell: mirrors cmd/relurpify/main.go's newRootCmd/RunE structure,
// one cobra subcommand per user-facing action.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mapop",
		Short: "Cooperative multi-agent partial-order planner",
	}
	root.AddCommand(newRunCmd(), newReplayCmd(), newTraceCmd())
	return root
}
