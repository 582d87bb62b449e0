package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wakutest"
	"wakutest/cmd/wakutest/ui"
	"wakutest/config"
	"wakutest/internal/convergence"
	"wakutest/internal/infra/docker"
	"wakutest/internal/lifecycle"
	"wakutest/internal/logging"
	"wakutest/internal/scenario"
	"wakutest/internal/topology"
	"wakutest/internal/wakuapi"
)

// daemonWait bounds the initial wait for the Docker daemon to answer.
const daemonWait = 30 * time.Second

// catalog returns every scenario the harness knows, in run order.
func catalog() []scenario.Scenario {
	return []scenario.Scenario{
		scenario.SingleNode(),
		scenario.InterNode(),
	}
}

func runCmd(debug *bool, configPath *string) *cobra.Command {
	var (
		image   string
		names   []string
		keep    bool
		noSweep bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run test scenarios against real node containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if *debug {
				level = "debug"
			}
			if err := logging.Setup(level); err != nil {
				return err
			}
			if image != "" {
				cfg.Image = image
			}
			if keep {
				cfg.Keep = true
			}

			scenarios, err := selectScenarios(names)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd, cfg, scenarios, noSweep)
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "Node image to run (default "+wakutest.DefaultImage+")")
	cmd.Flags().StringSliceVar(&names, "scenario", nil, "Scenario name to run; repeatable (default all)")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep containers and networks after the run")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Skip removing leftovers from earlier runs")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sc := range catalog() {
				fmt.Fprintln(cmd.OutOrStdout(), sc.Name)
			}
			return nil
		},
	}
}

func selectScenarios(names []string) ([]scenario.Scenario, error) {
	all := catalog()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]scenario.Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}

	var out []scenario.Scenario
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, sc)
	}
	return out, nil
}

// pollPolicy maps configured poll settings to a convergence policy. An
// unset attempts count leaves the whole policy zero so the orchestrator's
// defaults apply.
func pollPolicy(p config.Poll) convergence.Policy {
	if p.Attempts <= 0 {
		return convergence.Policy{}
	}
	return convergence.Policy{MaxAttempts: p.Attempts, Interval: p.Interval.Std()}
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, scenarios []scenario.Scenario, noSweep bool) error {
	rt, err := docker.NewRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	waitCtx, cancel := context.WithTimeout(ctx, daemonWait)
	defer cancel()
	if err := rt.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("docker daemon not reachable: %w", err)
	}

	runID := lifecycle.NewRunID()

	var nodeOpts []lifecycle.Option
	if cfg.Timeouts.Provision > 0 {
		nodeOpts = append(nodeOpts, lifecycle.WithStartTimeout(cfg.Timeouts.Provision.Std()))
	}
	nodes := lifecycle.NewManager(rt, runID, nodeOpts...)
	networks := topology.NewManager(rt, runID, cfg.Subnet)

	if !noSweep {
		if err := nodes.Sweep(ctx); err != nil {
			return err
		}
	}

	var clientOpts []wakuapi.Option
	if cfg.Timeouts.Call > 0 {
		clientOpts = append(clientOpts, wakuapi.WithTimeout(cfg.Timeouts.Call.Std()))
	}
	factory := func(node *wakutest.RunningNode) scenario.ControlPlane {
		return wakuapi.ForNode(node, clientOpts...)
	}
	orch := scenario.New(nodes, networks, factory, convergence.New(), scenario.Options{
		Image:           cfg.Image,
		PortBase:        cfg.BasePort,
		ReadyTimeout:    cfg.Timeouts.Ready.Std(),
		PeerPolicy:      pollPolicy(cfg.Poll.Peer),
		MessagePolicy:   pollPolicy(cfg.Poll.Message),
		ScenarioTimeout: cfg.Timeouts.Scenario.Std(),
		Keep:            cfg.Keep,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.InfoMsg("run %s: %d scenario(s), image %s", runID, len(scenarios), cfg.Image))

	results := orch.RunAll(ctx, scenarios)

	var rows [][]string
	firstFailed := ""
	for _, res := range results {
		status := ui.SuccessStyle.Render("pass")
		detail := ""
		if !res.Passed() {
			status = ui.ErrorStyle.Render("fail")
			detail = res.Err.Error()
			if firstFailed == "" {
				firstFailed = res.Name
			}
			fmt.Fprintln(out, ui.ErrorMsg("%s (%s): %v", res.Name, res.Kind, res.Err))
		} else {
			fmt.Fprintln(out, ui.SuccessMsg("%s (%s)", res.Name, res.Duration.Round(time.Millisecond)))
		}
		for _, te := range res.Teardown {
			fmt.Fprintln(out, ui.WarnMsg("teardown %q: %v", te.Step, te.Err))
		}
		rows = append(rows, []string{res.Name, status, ui.Muted(res.Duration.Round(time.Millisecond).String()), detail})
	}
	fmt.Fprintln(out, ui.Table([]string{"SCENARIO", "STATUS", "DURATION", "DETAIL"}, rows))

	if firstFailed != "" {
		return fmt.Errorf("scenario %q failed", firstFailed)
	}
	return nil
}
