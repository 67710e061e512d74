package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/otusflow/pkg/plugin"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file without starting anything",
	Long: `validate loads and validates both the otusflow: and dataflow: root
keys of --config, then resolves every node/link against the registered
node factories — the same checks run builds would fail on, without
starting any node.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, configFile, plugin.Default)
	},
}

func runValidate(cmd *cobra.Command, path string, reg *plugin.Registry) error {
	global, dc, err := loadBoth(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "INVALID: %v\n", err)
		return err
	}

	d, err := dc.Resolve(reg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "INVALID: %v\n", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "VALID: runtime %q — %d source(s), %d operator(s), %d sink(s), %d link(s)\n",
		global.Runtime.Name, len(d.Sources()), len(d.Operators()), len(d.Sinks()), len(d.Links()))
	return nil
}
