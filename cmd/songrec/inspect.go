package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var inspectGenres bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectGenres, "genres", false, "List the catalog genres")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the current catalog and describe it",
	Long: `Load the catalog named by the current manifest exactly as the server
would and print its version, size and dictionary sizes. A non-zero exit code
of 3 means an artifact is missing or malformed.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

type inspectResult struct {
	Version      string         `json:"version"`
	LoadedAt     time.Time      `json:"loaded_at"`
	Entries      int            `json:"entries"`
	Rows         int            `json:"rows"`
	Duplicates   int            `json:"duplicates"`
	Dimension    int            `json:"dimension"`
	Artists      int            `json:"artists"`
	Dictionaries map[string]int `json:"dictionaries"`
	Genres       []string       `json:"genres,omitempty"`
	GenreCount   int            `json:"genre_count"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	c, err := a.loader.Catalog(cmd.Context())
	if err != nil {
		return err
	}

	stats := c.Index.Stats()
	res := inspectResult{
		Version:    c.Version,
		LoadedAt:   c.LoadedAt,
		Entries:    stats.Entries,
		Rows:       stats.Rows,
		Duplicates: stats.Duplicates,
		Dimension:  stats.Dimension,
		Artists:    stats.Artists,
		GenreCount: stats.Genres,
		Dictionaries: map[string]int{
			"artist":  len(c.Dictionaries.Artist),
			"genre":   len(c.Dictionaries.Genre),
			"emotion": len(c.Dictionaries.Emotion),
		},
	}
	if inspectGenres {
		res.Genres = c.Index.Genres()
	}

	out := cmd.OutOrStdout()
	if !humanOutput {
		return outputJSON(out, res)
	}
	fmt.Fprintf(out, "Version:    %s\n", res.Version)
	fmt.Fprintf(out, "Entries:    %d (%d rows, %d duplicates)\n", res.Entries, res.Rows, res.Duplicates)
	fmt.Fprintf(out, "Dimension:  %d\n", res.Dimension)
	fmt.Fprintf(out, "Artists:    %d\n", res.Artists)
	fmt.Fprintf(out, "Genres:     %d\n", res.GenreCount)
	fmt.Fprintf(out, "Dictionaries: artist=%d genre=%d emotion=%d\n",
		res.Dictionaries["artist"], res.Dictionaries["genre"], res.Dictionaries["emotion"])
	for _, g := range res.Genres {
		fmt.Fprintf(out, "  %s\n", g)
	}
	return nil
}
