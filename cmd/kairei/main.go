// Package main is the entry point for the kairei CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	secretsPath string
	apiBaseURL  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kairei",
		Short:         "kairei runs and inspects declarative agent systems",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to system config file")
	root.PersistentFlags().StringVar(&secretsPath, "secrets", "", "path to provider secrets file")
	root.PersistentFlags().StringVar(&apiBaseURL, "api", "http://localhost:8080", "base URL of a running kairei instance")

	root.AddCommand(
		newRunCmd(),
		newVersionCmd(),
		newLoginCmd(),
		newSystemCmd(),
		newAgentCmd(),
		newEventCmd(),
		newCompilerCmd(),
	)
	return root
}
