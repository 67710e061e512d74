// Package main is the entry point for the otusflow dataflow runtime.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/otusflow/cmd"
	"firestige.xyz/otusflow/examples/kafkasink"
	"firestige.xyz/otusflow/pkg/plugin"
)

func init() {
	plugin.Default.RegisterSink("kafka", kafkasink.New)
}

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
