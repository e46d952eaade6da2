package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/timecode"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover and test the mpris-compatible players lyricsync can drive.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			if identity := player.Identity(bus, service); identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show what the player is playing",
	Long:  `connect to the configured player and display its current track and position.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		svc, err := player.NewService(bus, cfg.MprisService, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}

		fmt.Printf("player: %s", cfg.MprisService)
		if identity := player.Identity(bus, cfg.MprisService); identity != "" {
			fmt.Printf(" (%s)", identity)
		}
		fmt.Println()

		status, err := svc.PlaybackStatus()
		if err != nil {
			return fmt.Errorf("player does not answer: %w", err)
		}

		t, err := svc.CurrentTrack()
		if err != nil {
			fmt.Println("\nno track currently loaded")
			return nil
		}

		fmt.Println()
		fmt.Printf("title:    %s\n", t.Title)
		fmt.Printf("artist:   %s\n", t.Artist)
		if t.Album != "" {
			fmt.Printf("album:    %s\n", t.Album)
		}
		if t.URL != "" {
			fmt.Printf("url:      %s\n", t.URL)
		}
		if t.LengthMs > 0 {
			fmt.Printf("length:   %s\n", timecode.FormatClock(t.LengthMs))
		}
		fmt.Printf("state:    %s\n", status)
		if status != player.StatusStopped {
			fmt.Printf("position: %s\n", timecode.FormatClock(svc.TimeMs()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}
