package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "Graft is a document mapper with lifecycle hooks",
	Long: `Graft maps Go structs to documents in a document store and runs
registered lifecycle hooks around every save, validate, remove and hydration.
This CLI operates the store side: connectivity checks and a health/metrics
server for the configured backend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "graft.yaml", "Path to the configuration file")
}
