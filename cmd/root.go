// Package cmd implements the otusflow CLI using cobra, adapted from the
// teacher's cmd/root.go — same persistent --config flag, same
// Execute()-from-main.main() shape — generalized from a daemon-control CLI
// (start/stop/status/daemon/task) to the dataflow core's run/validate/
// list-nodes surface (spec.md §6's "otusflow run", "otusflow validate",
// "otusflow list-nodes").
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "otusflow",
	Short:   "otusflow — a distributed dataflow engine core runtime",
	Version: "0.1.0",
	Long: `otusflow runs a dataflow of Source, Operator and Sink nodes wired by
typed links, driven by a firing engine (input_rule -> run -> output_rule)
and managed by a start/stop/kill lifecycle manager.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/otusflow/config.yml",
		"config file path (carries both the otusflow: and dataflow: root keys)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listNodesCmd)
}
