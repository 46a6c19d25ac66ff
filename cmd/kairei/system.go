package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "inspect a running kairei system",
	}
	cmd.AddCommand(newSystemStatusCmd())
	return cmd
}

func newSystemStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report health, version, providers, and registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health map[string]string
			if err := apiGet("/health", nil, &health); err != nil {
				return err
			}
			var version map[string]string
			if err := apiGet("/v1/version", nil, &version); err != nil {
				return err
			}
			var providers struct {
				Providers []string `json:"providers"`
				Primary   string   `json:"primary"`
			}
			if err := apiGet("/v1/providers", nil, &providers); err != nil {
				return err
			}
			var agents struct {
				Agents []string `json:"agents"`
			}
			if err := apiGet("/v1/agents", nil, &agents); err != nil {
				return err
			}

			fmt.Printf("status:    %s\n", health["status"])
			fmt.Printf("version:   %s\n", version["version"])
			fmt.Printf("providers: %v (primary: %s)\n", providers.Providers, providers.Primary)
			fmt.Printf("agents:    %v\n", agents.Agents)
			return nil
		},
	}
}
