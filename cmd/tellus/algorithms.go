package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the remote functions the platform offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		algos, err := client.Algorithms(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range algos {
			fmt.Printf("%-36s %s\n", a.Name, a.Description)
		}
		return nil
	},
}
