package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/timecode"
)

var (
	// flags for show
	showInfoOnly bool
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "print the lyrics stored in an audio file",
	Long:  `print the file's tags and its lyrics as lrc, and report whether they could be saved as they are.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := lyrics.ExtractMetadata(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		fmt.Printf("title:   %s\n", meta.Title)
		fmt.Printf("artist:  %s\n", meta.Artist)
		if meta.Album != "" {
			fmt.Printf("album:   %s\n", meta.Album)
		}
		if meta.LengthMs > 0 {
			fmt.Printf("length:  %s\n", timecode.FormatClock(meta.LengthMs))
		}

		timed := 0
		for _, row := range meta.Rows {
			if row.Timed() {
				timed++
			}
		}
		fmt.Printf("lyrics:  %d lines, %d timed\n", len(meta.Rows), timed)

		if err := session.Validate(meta.Rows); err != nil {
			fmt.Printf("status:  not saveable (%v)\n", err)
		} else {
			fmt.Printf("status:  complete\n")
		}

		if showInfoOnly || len(meta.Rows) == 0 {
			return nil
		}

		fmt.Printf("\n%s\n", lyrics.FormatLRC(meta.Rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showInfoOnly, "info", false, "print only the summary")
}
