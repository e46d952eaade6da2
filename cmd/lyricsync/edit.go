package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/live"
	"karolbroda.com/lyricsync/internal/logger"
	"karolbroda.com/lyricsync/internal/lrclib"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/markers"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/position"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/ui"
)

var (
	// editor flags
	hideHeader bool
	immediate  bool
	liveAddr   string
	importPath string
	volume     int
)

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "open the lyrics editor for an audio file",
	Long: `plays the file through the mpris player and opens the timing editor.
press enter while a line is sung to stamp it, w to write the lyrics into the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runEditor,
}

func init() {
	rootCmd.AddCommand(editCmd)
	addEditFlags(editCmd)
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	cmd.Flags().BoolVarP(&immediate, "immediate", "i", false, "seek while dragging instead of after the bar settles")
	cmd.Flags().StringVar(&liveAddr, "live-addr", "", "serve a websocket lyrics feed on this address (e.g., :7070)")
	cmd.Flags().StringVar(&importPath, "import", "", "replace the file's lyrics with a text or .lrc file")
	cmd.Flags().IntVar(&volume, "volume", 0, "initial volume in percent")
}

func applyEditFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}
	if flags.Changed("immediate") {
		cfg.ImmediateSeek = immediate
	}
	if flags.Changed("live-addr") {
		cfg.LiveAddr = liveAddr
	}
	if flags.Changed("volume") {
		cfg.Volume = volume
	}
}

func runEditor(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", args[0], err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyEditFlags(cmd, cfg)

	log := logger.New(cfg.Verbose)
	defer log.Close()
	if cfg.LogFile != "" {
		if err := log.SetFileLog(cfg.LogFile); err != nil {
			log.Warn("no log file: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer terminal.Reset()

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	svc, err := player.NewService(bus, cfg.MprisService, log)
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}
	defer svc.Close()

	if err := svc.Watch(); err != nil {
		log.Warn("could not set up dbus signals: %v", err)
	}

	bridge := ui.NewBridge()
	ctrl := position.NewController(svc, bridge, log, position.Options{
		SampleInterval: cfg.SampleInterval(),
		SeekDebounce:   cfg.SeekDebounce(),
		Immediate:      cfg.ImmediateSeek,
	})

	opts := session.Options{
		Engine: markers.Engine{PreferForward: cfg.PreferForward},
		Log:    log,
		Volume: cfg.Volume,
	}

	var diskCache *cache.DiskCache
	if !cfg.NoCache {
		diskCache = cache.GetGlobalCache()
		opts.Drafts = diskCache
	}

	if cfg.LiveAddr != "" {
		hub := live.NewHub(log)
		opts.Feed = hub
		go func() {
			if err := hub.Serve(ctx, cfg.LiveAddr); err != nil {
				log.Error("live feed stopped: %v", err)
			}
		}()
	}

	sess := session.New(svc, ctrl, nil, opts)
	sess.OnRowChange(bridge.RowChanged)
	if err := sess.Open(path); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if importPath != "" {
		rows, err := readLyricsFile(importPath)
		if err != nil {
			return err
		}
		sess.ReplaceRows(rows)
	}

	model := ui.NewModel(ui.Config{
		Context:    ctx,
		Session:    sess,
		Bridge:     bridge,
		Events:     svc.Events(),
		Lyrics:     lrclib.NewClient(cfg.LrclibURL, diskCache),
		ArtURL:     artworkURL(svc),
		Log:        log,
		HideHeader: cfg.HideHeader,
		TermCaps:   terminal.DetectCapabilities(),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	log.SetQuiet(true)
	_, err = p.Run()
	log.SetQuiet(false)

	// a signal or a crash of the program skips the quit key; keep the work
	sess.SaveDraft()
	sess.Stop()

	if err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}

func artworkURL(svc *player.Service) func() string {
	return func() string {
		if t := svc.State().Track; t != nil {
			return t.ArtworkURL
		}
		return ""
	}
}

// readLyricsFile loads lyric lines from an .lrc file, keeping its
// timestamps, or from plain text with one line per row.
func readLyricsFile(path string) ([]lyrics.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics: %w", err)
	}

	var rows []lyrics.Row
	if strings.EqualFold(filepath.Ext(path), ".lrc") {
		rows = lyrics.ParseLRC(string(data))
	} else {
		rows = lyrics.ParsePlain(string(data))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no lyric lines", path)
	}
	return rows, nil
}
