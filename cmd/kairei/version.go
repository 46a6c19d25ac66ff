package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kairei-run/kairei/internal/api"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the kairei version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("kairei " + api.Version())
			return nil
		},
	}
}
