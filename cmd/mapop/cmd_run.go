package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/lexcodex/mapop"
	"github.com/lexcodex/mapop/config"
	"github.com/lexcodex/mapop/internal/fixture"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

func newRunCmd() *cobra.Command {
	var taskPath string
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the planner over a task fixture and print the resulting plan",
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
			return runPlannerGroup(cmd, t, cfg)
		},
	}
	cmd.Flags().StringVar(&taskPath, "task", "", "Path to a JSON GroundedTask fixture (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML planner config (defaults applied when omitted)")
	return cmd
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runPlannerGroup runs RunPlanner once per agent named in t.Agents,
// wiring transport.LocalBus between them when there is more than one
// (testable property 10: search never special-cases the agent count).
func runPlannerGroup(cmd *cobra.Command, t *task.GroundedTask, cfg *config.Config) error {
	agents := t.Agents
	if len(agents) == 0 {
		agents = []task.AgentID{t.Agent}
	}

	if len(agents) == 1 {
		sol, status, err := mapop.RunPlanner(context.Background(), t, nil, cfg, nil)
		if err != nil {
			return err
		}
		printResult(cmd, string(agents[0]), sol, status)
		return nil
	}

	busGroup := transport.NewLocalBusGroup(toTransportAgents(agents))
	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make([]error, 0, len(agents))
	for _, a := range agents {
		a := a
		view := task.New(a, t.Agents, t.Variables, t.Actions, t.InitialState, t.Goals, t.Metric)
		port := busGroup[transport.AgentID(a)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sol, status, err := mapop.RunPlanner(context.Background(), view, port, cfg, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("agent %s: %w", a, err))
				return
			}
			printResult(cmd, string(a), sol, status)
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func toTransportAgents(agents []task.AgentID) []transport.AgentID {
	out := make([]transport.AgentID, len(agents))
	for i, a := range agents {
		out[i] = transport.AgentID(a)
	}
	return out
}

func printResult(cmd *cobra.Command, agent string, sol plan.Plan, status mapop.Result) {
	cmd.Printf("agent %s: %s\n", agent, status)
	if status != mapop.Solved {
		return
	}
	for _, s := range sol.AssignTimeSteps() {
		if s.Kind != plan.Normal {
			continue
		}
		cmd.Printf("  %d: %s (%s)\n", s.TimeStep, s.Action.Name, s.Agent)
	}
}
