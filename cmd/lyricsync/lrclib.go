package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lrclib"
	"karolbroda.com/lyricsync/internal/lyrics"
)

var (
	// flags for lrclib search
	searchAlbum    string
	searchDuration int64
	searchPrint    bool
	// flags for lrclib export
	exportOutput string
)

var lrclibCmd = &cobra.Command{
	Use:   "lrclib",
	Short: "look up lyrics on lrclib",
	Long:  `search lrclib.net for lyrics and save them as text to import into the editor.`,
}

var lrclibSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search for lyrics on lrclib",
	Long:  `search for lyrics on lrclib.net and display availability information.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newLrclibClient(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("searching for: %s - %s\n\n", args[0], args[1])

		resp, err := client.Fetch(context.Background(), lrclib.Params{
			Artist:       args[0],
			Title:        args[1],
			Album:        searchAlbum,
			DurationSecs: searchDuration,
		})
		if err != nil {
			return fmt.Errorf("lyrics not found: %w", err)
		}

		fmt.Printf("found lyrics:\n")
		fmt.Printf("  track:        %s\n", resp.TrackName)
		fmt.Printf("  artist:       %s\n", resp.ArtistName)
		if resp.AlbumName != "" {
			fmt.Printf("  album:        %s\n", resp.AlbumName)
		}
		if resp.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", resp.Duration)
		}
		fmt.Printf("  instrumental: %v\n", resp.Instrumental)
		fmt.Printf("  synced lines: %s\n", lineCount(resp.SyncedLyrics))
		fmt.Printf("  plain lines:  %s\n", lineCount(resp.PlainLyrics))

		if searchPrint {
			fmt.Printf("\n%s\n", lyrics.FormatLRC(resp.Rows()))
		}
		return nil
	},
}

var lrclibExportCmd = &cobra.Command{
	Use:   "export <artist> <title>",
	Short: "save lrclib lyrics to a file",
	Long: `fetch lyrics from lrclib.net and write them as lrc, ready for
'lyricsync edit --import'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newLrclibClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.Fetch(context.Background(), lrclib.Params{
			Artist:       args[0],
			Title:        args[1],
			Album:        searchAlbum,
			DurationSecs: searchDuration,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}

		rows := resp.Rows()
		if len(rows) == 0 {
			return fmt.Errorf("no lyrics available for this song")
		}

		out := exportOutput
		if out == "" {
			out = filepath.Clean(fmt.Sprintf("%s - %s.lrc", resp.ArtistName, resp.TrackName))
		}
		if err := os.WriteFile(out, []byte(lyrics.FormatLRC(rows)+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		fmt.Printf("wrote %d lines to %s\n", len(rows), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lrclibCmd)

	lrclibCmd.AddCommand(lrclibSearchCmd)
	lrclibCmd.AddCommand(lrclibExportCmd)

	for _, c := range []*cobra.Command{lrclibSearchCmd, lrclibExportCmd} {
		c.Flags().StringVar(&searchAlbum, "album", "", "album name to narrow the search")
		c.Flags().Int64Var(&searchDuration, "duration", 0, "track length in seconds")
	}
	lrclibSearchCmd.Flags().BoolVar(&searchPrint, "print", false, "print the lyrics as lrc")
	lrclibExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: \"<artist> - <title>.lrc\")")
}

func newLrclibClient(cmd *cobra.Command) (*lrclib.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var diskCache *cache.DiskCache
	if !cfg.NoCache {
		diskCache = cache.GetGlobalCache()
	}
	return lrclib.NewClient(cfg.LrclibURL, diskCache), nil
}

func lineCount(text string) string {
	if strings.TrimSpace(text) == "" {
		return "none"
	}
	return fmt.Sprintf("%d", len(strings.Split(strings.TrimSpace(text), "\n")))
}
