package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the configured store",
	Long:  `Connects to the configured store backend, issues a ping and reports the round trip time.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, err := loadConfig(path)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		store, err := buildStore(ctx, cfg)
		if err != nil {
			fmt.Printf("Error initializing store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close(context.Background())

		start := time.Now()
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("Ping failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s store is up (%s)\n", cfg.Store.Backend, time.Since(start).Round(time.Microsecond))
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Connection timeout")
}
