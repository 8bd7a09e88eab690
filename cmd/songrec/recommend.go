package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/songrec"
	"github.com/hupe1980/songrec/features"
)

var (
	recommendFile    string
	recommendArtist  string
	recommendGenre   string
	recommendEmotion string
	recommendSet     []string
	recommendN       int
	recommendFilter  []string
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendFile, "file", "f", "", "Read the request as JSON from a file (- for stdin)")
	recommendCmd.Flags().StringVar(&recommendArtist, "artist", "", "Artist of the described song")
	recommendCmd.Flags().StringVar(&recommendGenre, "genre", "", "Genre of the described song")
	recommendCmd.Flags().StringVar(&recommendEmotion, "emotion", "", "Emotion of the described song")
	recommendCmd.Flags().StringArrayVar(&recommendSet, "set", nil, "Numeric feature as name=value (can be repeated)")
	recommendCmd.Flags().IntVarP(&recommendN, "n", "n", 0, "Number of results (0 uses ranker.default_k)")
	recommendCmd.Flags().StringArrayVar(&recommendFilter, "filter-genre", nil, "Only return songs of this genre (can be repeated)")
	rootCmd.AddCommand(recommendCmd)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend songs for one song description",
	Long: `Recommend songs without starting the server.

The request is read from --file in the JSON shape accepted by POST /recommend,
or assembled from flags. Flags override fields of the file.

Examples:
  songrec recommend --artist Queen --genre rock --set tempo=72 --set energy=0.4
  songrec recommend -f request.json -n 5
  echo '{"artist":"Muse"}' | songrec recommend -f -`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	req, err := buildRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	results, err := a.service.Recommend(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		if len(results) == 0 {
			fmt.Fprintln(out, "No similar songs found.")
		}
		for _, r := range results {
			fmt.Fprintf(out, "%.3f  %s - %s\n", r.Score, r.Song.Artist, r.Song.Title)
		}
		return nil
	}
	version := ""
	if c := a.loader.Loaded(); c != nil {
		version = c.Version
	}
	return outputJSON(out, map[string]any{
		"version": version,
		"results": results,
	})
}

// buildRequest assembles a request from --file and the field flags.
func buildRequest(stdin io.Reader) (*songrec.Request, error) {
	req := &songrec.Request{}
	if recommendFile != "" {
		var (
			data []byte
			err  error
		)
		if recommendFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(recommendFile)
		}
		if err != nil {
			return nil, fmt.Errorf("reading request: %w", err)
		}
		if err := json.Unmarshal(data, req); err != nil {
			return nil, fmt.Errorf("%w: %w", songrec.ErrInvalidRequest, err)
		}
	}

	if recommendArtist != "" {
		req.Artist = recommendArtist
	}
	if recommendGenre != "" {
		req.Genre = recommendGenre
	}
	if recommendEmotion != "" {
		req.Emotion = recommendEmotion
	}
	if recommendN != 0 {
		req.K = recommendN
	}
	if len(recommendFilter) > 0 {
		req.Genres = recommendFilter
	}
	for _, kv := range recommendSet {
		name, v, err := parseFeature(kv)
		if err != nil {
			return nil, err
		}
		if !req.SetFeature(name, v) {
			return nil, fmt.Errorf("%w: unknown feature %q", songrec.ErrInvalidRequest, name)
		}
	}
	return req, nil
}

// parseFeature parses name=value. Booleans map to 1 and 0.
func parseFeature(kv string) (string, features.Value, error) {
	name, raw, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", features.Value{}, fmt.Errorf("%w: expected name=value, got %q", songrec.ErrInvalidRequest, kv)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return name, features.Of(1), nil
		}
		return name, features.Of(0), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", features.Value{}, fmt.Errorf("%w: feature %s: %w", songrec.ErrInvalidRequest, name, err)
	}
	return name, features.Of(f), nil
}
