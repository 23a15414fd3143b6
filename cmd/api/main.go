package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	root := &cobra.Command{
		Use:   "helpdesk",
		Short: "Helpdesk ticketing service.",
		Long: `Helpdesk ticketing service. Users open tickets, specialist agents pick
them up and resolve them, and superusers see everything.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newMigrateCommand(), newSeedUsersCommand())
	return root
}
