package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
)

var (
	// flags for clear commands
	clearConfirm bool
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "manage unsaved marker drafts",
	Long: `the editor keeps markers that were not written to the file as drafts and
offers them again the next time the file is opened.`,
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list files with unsaved markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		drafts, err := cache.GetGlobalCache().ListDrafts()
		if err != nil {
			return fmt.Errorf("failed to list drafts: %w", err)
		}

		if len(drafts) == 0 {
			fmt.Println("no drafts")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tTIMED\tUPDATED")
		for _, d := range drafts {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				filepath.Base(d.Path),
				draftProgress(d),
				time.Unix(d.UpdatedAt, 0).Format("2006-01-02 15:04"))
		}
		w.Flush()

		fmt.Printf("\ntotal: %d drafts\n", len(drafts))
		return nil
	},
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "remove all drafts",
	Long:  `remove all unsaved marker drafts. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm && !confirm("are you sure you want to drop all unsaved markers?") {
			fmt.Println("cancelled")
			return nil
		}

		removed, err := cache.GetGlobalCache().ClearDrafts()
		if err != nil {
			return fmt.Errorf("failed to clear drafts: %w", err)
		}

		fmt.Printf("removed %d drafts\n", removed)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lrclib cache",
	Long:  `lrclib answers are cached on disk so lookups work offline and stay fast.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := cache.GetGlobalCache()

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}
		drafts, err := diskCache.ListDrafts()
		if err != nil {
			return fmt.Errorf("failed to list drafts: %w", err)
		}

		location := diskCache.Dir()
		if location == "" {
			location = "(memory only)"
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", location)
		fmt.Printf("  lyrics:   %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))
		fmt.Printf("  drafts:   %d\n", len(drafts))
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		pruned, err := cache.GetGlobalCache().Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached lyrics",
	Long:  `remove all cached lrclib answers. drafts are kept. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm && !confirm("are you sure you want to clear the lyrics cache?") {
			fmt.Println("cancelled")
			return nil
		}

		if err := cache.GetGlobalCache().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(cacheCmd)

	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsClearCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	draftsClearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "skip confirmation prompt")
	cacheClearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "skip confirmation prompt")
}

func draftProgress(d *cache.Draft) string {
	timed := 0
	for _, m := range d.Markers {
		if strings.TrimSpace(m) != "" {
			timed++
		}
	}
	return fmt.Sprintf("%d/%d", timed, len(d.Markers))
}

func confirm(question string) bool {
	fmt.Print(question + " (y/n): ")
	var response string
	fmt.Scanln(&response)
	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
