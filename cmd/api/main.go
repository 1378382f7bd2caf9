package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthboard/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hearthboard",
		Short: "Hearthboard calendar server",
		Long:  `Hearthboard aggregates a family's remote calendars and chore list into a local store and serves them to a wall-mounted display.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
