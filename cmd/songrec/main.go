// Package main provides the songrec CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// configPath is the --config flag shared by every command.
var configPath string

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "songrec",
	Short: "Latent-space song recommender",
	Long: `songrec recommends songs by embedding a song description into the
latent space of a catalog and returning the most similar catalog songs.

The catalog (lookup index, normalization parameters and dictionaries) is read
from a local directory, S3 or MinIO. Configuration comes from a YAML file and
SONGREC_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: $SONGREC_CONFIG or ./songrec.yaml)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
