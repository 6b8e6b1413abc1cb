// Package main is the entry point for the phoenix machine monitor.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "phoenix",
	Short: "CNC machine monitor",
	Long: `Phoenix listens to the machine controller's log stream over MQTT,
tracks the active cutting run, keeps a production ledger and serves the
dashboard API with OEE analysis.`,
}

func main() {
	// Load .env file if it exists.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
