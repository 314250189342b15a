// conductor deploys SRE incident problems, serves the grading API to an agent and records results.
//
// Usage:
//
//	conductor serve [--config=<path>] [--problem=<id>]... [--filter=<substr>] [--noop]
//	conductor list  [--config=<path>] [--filter=<substr>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/conductor.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Grade an agent against injected SRE incidents",
	Long: "conductor deploys an application, lets an agent diagnose it through a small HTTP API,\n" +
		"injects a fault after a noop control answer and grades detection, localization and mitigation.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
