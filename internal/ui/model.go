// Package ui is the terminal editor: it renders the lyric table and the
// inverted seek bar and turns keys and mouse gestures into session calls.
package ui

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/logger"
	"karolbroda.com/lyricsync/internal/lrclib"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/terminal"
)

const (
	frameInterval = 80 * time.Millisecond
	seekStepMs    = 5000
	volumeStep    = 5
)

// Fetcher looks up lyrics online. *lrclib.Client is one.
type Fetcher interface {
	Fetch(ctx context.Context, track lrclib.Params) (*lrclib.Response, error)
}

type TickMsg time.Time

// DisplayMsg carries the latest seek bar state from the bridge.
type DisplayMsg DisplayState

type PlayerEventMsg struct {
	Event player.EventData
}

type ArtworkLoadedMsg struct {
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type LyricsFetchedMsg struct {
	Response *lrclib.Response
	Err      error
}

type Config struct {
	Context    context.Context
	Session    *session.Session
	Bridge     *Bridge
	Events     <-chan player.EventData
	Lyrics     Fetcher
	ArtURL     func() string
	Log        *logger.Logger
	HideHeader bool
	TermCaps   *terminal.Capabilities
}

type Model struct {
	ctx        context.Context
	session    *session.Session
	bridge     *Bridge
	events     <-chan player.EventData
	lyrics     Fetcher
	artURL     func() string
	log        *logger.Logger
	hideHeader bool
	termCaps   *terminal.Capabilities

	display  DisplayState
	status   string
	selected int
	follow   bool
	dragging bool

	image   image.Image
	palette *artwork.Palette

	notice     string
	noticeErr  bool
	fetching   bool
	quitArmed  bool
	quitting   bool
	width      int
	height     int
	anim       animState
}

func NewModel(cfg Config) Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Bridge == nil {
		cfg.Bridge = NewBridge()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}

	m := Model{
		ctx:        cfg.Context,
		session:    cfg.Session,
		bridge:     cfg.Bridge,
		events:     cfg.Events,
		lyrics:     cfg.Lyrics,
		artURL:     cfg.ArtURL,
		log:        cfg.Log,
		hideHeader: cfg.HideHeader,
		termCaps:   cfg.TermCaps,
		display:    cfg.Bridge.Snapshot(),
		status:     player.StatusStopped,
		follow:     true,
		palette:    artwork.DefaultPalette(),
	}

	if m.session.RestoredDraft() {
		m.setNotice("restored unsaved markers from the last session", false)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForDisplay(),
		m.listenForPlayerEvents(),
		m.loadArtworkCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForDisplay() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.bridge.Changed():
			return DisplayMsg(m.bridge.Snapshot())
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}

	return func() tea.Msg {
		select {
		case event, ok := <-m.events:
			if !ok {
				return nil
			}
			return PlayerEventMsg{Event: event}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model) Width() int                { return m.width }
func (m Model) Height() int               { return m.height }
func (m Model) Selected() int             { return m.selected }
func (m Model) Following() bool           { return m.follow }
func (m Model) Status() string            { return m.status }
func (m Model) Notice() string            { return m.notice }
func (m Model) Display() DisplayState     { return m.display }
func (m Model) IsQuitting() bool          { return m.quitting }
func (m Model) HideHeader() bool          { return m.hideHeader }
func (m Model) Palette() *artwork.Palette { return m.palette }
