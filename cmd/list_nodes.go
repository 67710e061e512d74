package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/otusflow/pkg/plugin"
)

var listNodesCmd = &cobra.Command{
	Use:   "list-nodes",
	Short: "List every node factory registered in the node registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListNodes(cmd, plugin.Default)
	},
}

func runListNodes(cmd *cobra.Command, reg *plugin.Registry) error {
	out := cmd.OutOrStdout()
	printGroup(out, "sources", reg.ListSources())
	printGroup(out, "operators", reg.ListOperators())
	printGroup(out, "sinks", reg.ListSinks())
	return nil
}

func printGroup(w io.Writer, label string, names []string) {
	fmt.Fprintf(w, "%s:\n", label)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none registered)")
		return
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
