package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
)

var (
	// global flags
	configPath   string
	mprisService string
	lrclibURL    string
	noCache      bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "terminal editor for timing song lyrics",
	Long: `lyricsync plays an audio file through an mpris player and lets you stamp
each lyric line with the moment it is sung. the timed lyrics are written back
into the file's tags.

when run with a file and no subcommand, it opens the editor.`,
	Version:       "1.0.0",
	Args:          cobra.MaximumNArgs(1),
	RunE:          runEditor,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./lyricsync.yaml or ~/.config/lyricsync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.vlc)")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the lrclib cache and drafts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug messages")

	addEditFlags(rootCmd)
}

// loadConfig reads the config file and environment, then applies the global
// flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mpris-service") {
		cfg.MprisService = mprisService
	}
	if flags.Changed("lrclib-url") {
		cfg.LrclibURL = lrclibURL
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = noCache
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
