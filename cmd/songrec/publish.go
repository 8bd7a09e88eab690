package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/songrec/artifact"
)

var (
	publishVersion     string
	publishCompression string
)

func init() {
	publishCmd.Flags().StringVar(&publishVersion, "version", "", "Version name to publish under (default: UTC timestamp)")
	publishCmd.Flags().StringVar(&publishCompression, "compression", "zstd", "Index compression: none, zstd or lz4")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish <dir>",
	Short: "Publish a catalog directory to the configured store",
	Long: `Upload the artifacts of a local catalog directory under <version>/ in the
configured store and point CURRENT at the uploaded manifest.

The directory either holds a manifest.json naming its artifacts or uses the
default layout:

  latent-space-lookup.csv
  normalization-params.json
  dictionaries/artist.json
  dictionaries/genre.json
  dictionaries/emotion.json

Running servers pick the new version up on their next reload.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	compression, err := artifact.ParseCompression(publishCompression)
	if err != nil {
		return err
	}
	version := publishVersion
	if version == "" {
		version = time.Now().UTC().Format("20060102T150405Z")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}

	p := artifact.NewPublisher(store)
	p.Compression = compression
	m, err := p.PublishDir(cmd.Context(), args[0], version)
	if err != nil {
		return err
	}

	if humanOutput {
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s (index %s)\n", m.Version, m.Index.Path)
		return nil
	}
	return outputJSON(cmd.OutOrStdout(), m)
}
