package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "list and manage registered agents",
	}
	cmd.AddCommand(newAgentListCmd(), newAgentKillCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every agent registered with the running system",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body struct {
				Agents []string `json:"agents"`
			}
			if err := apiGet("/v1/agents", nil, &body); err != nil {
				return err
			}
			for _, id := range body.Agents {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newAgentKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <agent-id>",
		Short: "forcibly stop an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body map[string]string
			if err := apiPost("/v1/agents/"+args[0]+"/kill", &body); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", body["agent_id"], body["status"])
			return nil
		},
	}
}
