package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/otusflow/internal/config"
	"firestige.xyz/otusflow/internal/instance"
	"firestige.xyz/otusflow/internal/log"
	"firestige.xyz/otusflow/internal/metrics"
	"firestige.xyz/otusflow/internal/runtime"
	"firestige.xyz/otusflow/pkg/plugin"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load, instantiate and run a dataflow until interrupted",
	Long: `run loads the global and dataflow configuration from --config,
resolves every node against the registered node factories, starts all
nodes and blocks until SIGINT/SIGTERM, at which point it drains the
dataflow in source -> operator -> sink order (spec.md §4.7).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDataflow(cmd, configFile, plugin.Default)
	},
}

func runDataflow(cmd *cobra.Command, path string, reg *plugin.Registry) error {
	global, dc, err := loadBoth(path)
	if err != nil {
		return err
	}

	if err := log.Init(global.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	d, err := dc.Resolve(reg)
	if err != nil {
		return fmt.Errorf("resolve dataflow: %w", err)
	}

	rtCtx := runtime.NewContext(global.Runtime.Name)
	rtCtx.Registry = reg

	inst, err := instance.TryInstantiate(d, rtCtx)
	if err != nil {
		return fmt.Errorf("instantiate dataflow: %w", err)
	}

	if err := inst.StartAll(); err != nil {
		return fmt.Errorf("start dataflow: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "otusflow: running %d node(s) as %q\n", len(inst.GetNodes()), global.Runtime.Name)

	var metricsSrv *metrics.Server
	if global.Metrics.Enabled {
		metricsSrv = metrics.NewServer(global.Metrics.Listen, global.Metrics.Path, inst)
		if err := metricsSrv.Start(context.Background()); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	fmt.Fprintln(cmd.OutOrStdout(), "otusflow: draining…")
	if metricsSrv != nil {
		_ = metricsSrv.Stop(context.Background())
	}
	return inst.Drain(context.Background())
}

// loadBoth loads both configuration halves from the same file: GlobalConfig
// under its `otusflow:` root key (viper) and DataflowConfig under its
// `dataflow:` root key (direct YAML/JSON), matching the teacher's split
// between static agent config and per-task config.
func loadBoth(path string) (*config.GlobalConfig, *config.DataflowConfig, error) {
	global, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load global config: %w", err)
	}
	dc, err := config.LoadDataflow(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load dataflow config: %w", err)
	}
	return global, dc, nil
}
