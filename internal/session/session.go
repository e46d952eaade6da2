// Package session is one editing session over one audio file: it plays the
// file, times lyric rows against the playback position and saves the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/highlight"
	"karolbroda.com/lyricsync/internal/logger"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/markers"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/position"
	"karolbroda.com/lyricsync/internal/timecode"
)

var (
	ErrNoFile        = errors.New("no file loaded")
	ErrEmptyTable    = errors.New("lyrics table is empty")
	ErrInvalidRow    = errors.New("invalid row")
	ErrNoEmptyMarker = errors.New("no markers left to fill")
	ErrNoMarker      = errors.New("all markers are empty")
)

// Player is the media player the session drives.
type Player interface {
	position.Player
	Play(path string) bool
	Stop()
	Pause()
	Resume() bool
	IsPaused() bool
	SetVolume(percent int)
}

// DraftStore keeps unsaved markers between runs. *cache.DiskCache is one.
type DraftStore interface {
	GetDraft(audioPath string) (*cache.Draft, error)
	SetDraft(draft *cache.Draft) error
	DeleteDraft(audioPath string) error
}

// Feed receives lyrics and position updates for other displays.
type Feed interface {
	PublishLyrics(title string, lines []string)
	PublishPosition(positionMs, totalMs int64, row int, line string)
}

type Options struct {
	Engine markers.Engine
	Drafts DraftStore
	Feed   Feed
	Log    *logger.Logger
	// Volume is the initial volume in percent; 0 means full volume.
	Volume int

	// ReadMetadata and WriteLyrics default to the taglib implementations.
	ReadMetadata func(path string) (*lyrics.Metadata, error)
	WriteLyrics  func(path string, rows []lyrics.Row) error
}

// RowChange reports that the active row moved.
type RowChange func(row int)

type Session struct {
	player Player
	ctrl   *position.Controller
	store  *lyrics.Store
	engine markers.Engine
	drafts DraftStore
	feed   Feed
	log    *logger.Logger

	readMetadata func(string) (*lyrics.Metadata, error)
	writeLyrics  func(string, []lyrics.Row) error

	mu       sync.Mutex
	path     string
	meta     *lyrics.Metadata
	volume   int
	tracker  *highlight.Tracker
	onRow    []RowChange
	restored bool
}

func New(p Player, ctrl *position.Controller, store *lyrics.Store, opts Options) *Session {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.ReadMetadata == nil {
		opts.ReadMetadata = lyrics.ExtractMetadata
	}
	if opts.WriteLyrics == nil {
		opts.WriteLyrics = lyrics.WriteLyrics
	}
	if store == nil {
		store = lyrics.NewStore(nil)
	}
	if opts.Volume <= 0 {
		opts.Volume = 100
	}

	s := &Session{
		player:       p,
		ctrl:         ctrl,
		store:        store,
		engine:       opts.Engine,
		drafts:       opts.Drafts,
		feed:         opts.Feed,
		log:          opts.Log,
		readMetadata: opts.ReadMetadata,
		writeLyrics:  opts.WriteLyrics,
		volume:       clampVolume(opts.Volume),
		tracker:      highlight.NewTracker(),
	}

	ctrl.AddListener(s.onSample)
	return s
}

func (s *Session) Store() *lyrics.Store { return s.store }

func (s *Session) Controller() *position.Controller { return s.ctrl }

func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Metadata returns the tags read when the file was opened.
func (s *Session) Metadata() lyrics.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return lyrics.Metadata{}
	}
	return *s.meta
}

// RestoredDraft reports whether Open picked up unsaved markers.
func (s *Session) RestoredDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// OnRowChange registers fn to be called from the sampler goroutine whenever
// the active row changes.
func (s *Session) OnRowChange(fn RowChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRow = append(s.onRow, fn)
}

// Open reads the file's tags and lyrics into the store. A draft for the same
// file with the same lines replaces the markers read from the tags.
func (s *Session) Open(path string) error {
	meta, err := s.readMetadata(path)
	if err != nil {
		return err
	}

	s.ctrl.Reset()
	s.store.Load(meta.Rows)

	restored := s.restoreDraft(path, meta.Rows)
	if meta.LengthMs > 0 {
		s.ctrl.OnLengthChanged(meta.LengthMs)
	}

	s.mu.Lock()
	s.path = path
	s.meta = meta
	s.restored = restored
	s.tracker.Reset()
	s.mu.Unlock()

	s.publishLyrics()
	s.log.Debug("opened %s with %d rows", path, len(meta.Rows))
	return nil
}

// ReplaceRows swaps in new lyric lines, e.g. imported text or an lrclib answer.
func (s *Session) ReplaceRows(rows []lyrics.Row) {
	s.store.Load(rows)
	s.mu.Lock()
	s.tracker.Reset()
	s.mu.Unlock()
	s.publishLyrics()
	s.SaveDraft()
}

// Play starts playback of the open file and the position sampler.
func (s *Session) Play(ctx context.Context) bool {
	path := s.Path()
	if path == "" {
		return false
	}

	if !s.player.Play(path) {
		return false
	}
	s.player.SetVolume(s.Volume())
	s.ctrl.Start(ctx)
	return true
}

// TogglePause pauses or resumes and reports whether playback is now paused.
func (s *Session) TogglePause() bool {
	if s.player.IsPaused() {
		if s.player.Resume() {
			return false
		}
		return true
	}
	s.player.Pause()
	return true
}

// Stop stops playback and the sampler and resets the position control.
func (s *Session) Stop() {
	s.player.Stop()
	s.ctrl.Stop()
	s.ctrl.OnExternalStop()
	s.clearHighlight()
}

// clearHighlight forgets the active row and tells the row listeners.
func (s *Session) clearHighlight() {
	s.mu.Lock()
	s.tracker.Reset()
	callbacks := s.onRow
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(-1)
	}
}

// HandlePlayerEvent reacts to changes made outside the editor.
func (s *Session) HandlePlayerEvent(ev player.EventData) {
	switch ev.Type {
	case player.EventPlaybackStateChanged:
		if ev.Status == player.StatusStopped {
			s.log.Debug("playback stopped by the player")
			s.ctrl.OnExternalStop()
			s.clearHighlight()
		}
	case player.EventTrackChanged:
		path := s.Path()
		if path == "" || ev.Track == nil || ev.Track.URL == "" {
			return
		}
		if !ev.Track.IsFile(path) {
			s.log.Warn("player switched to %s", ev.Track.Label())
			return
		}
		if ev.Track.LengthMs > 0 && ev.Track.LengthMs != s.ctrl.State().TotalMs {
			s.ctrl.OnLengthChanged(ev.Track.LengthMs)
		}
	case player.EventSeeked:
		if s.ctrl.Running() {
			s.ctrl.OnSamplerTick(ev.PositionMs)
		}
	}
}

func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume clamps percent to 0..100, applies it and returns it.
func (s *Session) SetVolume(percent int) int {
	percent = clampVolume(percent)
	s.mu.Lock()
	s.volume = percent
	s.mu.Unlock()

	s.player.SetVolume(percent)
	return percent
}

// AssignMarker stamps the current playback time on the empty row nearest to
// refRow (or the first empty row when refRow is negative).
func (s *Session) AssignMarker(refRow int) (markers.Assignment, error) {
	if s.store.Len() == 0 {
		return markers.Assignment{}, ErrEmptyTable
	}

	ms := s.player.TimeMs()
	slots := markers.SlotsFromText(s.store.Markers())

	a, ok := s.engine.AssignNearestEmpty(slots, ms, refRow)
	if !ok {
		return markers.Assignment{}, ErrNoEmptyMarker
	}

	s.store.SetMarker(a.Row, a.Text)
	s.SaveDraft()
	return a, nil
}

// RemoveLastMarker clears the marker of the last timed row.
func (s *Session) RemoveLastMarker() (int, error) {
	if s.store.Len() == 0 {
		return -1, ErrEmptyTable
	}

	row, ok := s.engine.RemoveLastFilled(markers.SlotsFromText(s.store.Markers()))
	if !ok {
		return -1, ErrNoMarker
	}

	s.store.ClearMarker(row)
	s.SaveDraft()
	return row, nil
}

func (s *Session) ClearMarker(row int) bool {
	if !s.store.ClearMarker(row) {
		return false
	}
	s.SaveDraft()
	return true
}

// JumpToRow seeks to the marker of row. Untimed rows report false.
func (s *Session) JumpToRow(row int) bool {
	rows := s.store.Rows()
	if row < 0 || row >= len(rows) {
		return false
	}

	ms, ok := timecode.Parse(rows[row].Marker)
	if !ok {
		return false
	}

	s.ctrl.SeekTo(ms)
	return true
}

// ActiveRow is the row highlighted at the last sample, or -1.
func (s *Session) ActiveRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Current()
}

// Validate checks rows are ready to be written: at least one row, and every
// row with a canonical marker and some text.
func Validate(rows []lyrics.Row) error {
	if len(rows) == 0 {
		return ErrEmptyTable
	}

	for i, row := range rows {
		marker := strings.TrimSpace(row.Marker)
		if marker == "" || strings.TrimSpace(row.Text) == "" {
			return fmt.Errorf("%w: row %d has an empty marker or text", ErrInvalidRow, i+1)
		}
		if !timecode.IsCanonical(marker) {
			return fmt.Errorf("%w: row %d has marker %q, want M:SS.mmm", ErrInvalidRow, i+1, marker)
		}
	}
	return nil
}

// Save validates the table and writes it into the file's tags. The draft is
// dropped once the write succeeded.
func (s *Session) Save() error {
	path := s.Path()
	if path == "" {
		return ErrNoFile
	}

	rows := s.store.Rows()
	if err := Validate(rows); err != nil {
		return err
	}

	clean := make([]lyrics.Row, len(rows))
	for i, row := range rows {
		clean[i] = lyrics.Row{Marker: strings.TrimSpace(row.Marker), Text: strings.TrimSpace(row.Text)}
	}

	if err := s.writeLyrics(path, clean); err != nil {
		return err
	}
	s.store.MarkSaved()

	if s.drafts != nil {
		if err := s.drafts.DeleteDraft(path); err != nil {
			s.log.Warn("failed to remove draft for %s: %v", path, err)
		}
	}
	s.log.Info("saved %d rows to %s", len(clean), path)
	return nil
}

// SaveDraft stores the current markers if anything changed since the last
// save. Failures are logged only.
func (s *Session) SaveDraft() {
	path := s.Path()
	if s.drafts == nil || path == "" || !s.store.Dirty() {
		return
	}

	rows := s.store.Rows()
	draft := &cache.Draft{Path: path, Markers: make([]string, len(rows)), Texts: make([]string, len(rows))}
	for i, row := range rows {
		draft.Markers[i] = row.Marker
		draft.Texts[i] = row.Text
	}

	if err := s.drafts.SetDraft(draft); err != nil {
		s.log.Warn("failed to save draft for %s: %v", path, err)
	}
}

func (s *Session) restoreDraft(path string, rows []lyrics.Row) bool {
	if s.drafts == nil {
		return false
	}

	draft, err := s.drafts.GetDraft(path)
	if err != nil {
		return false
	}

	if len(draft.Texts) != len(rows) {
		s.log.Warn("ignoring draft for %s: the lyrics changed", path)
		return false
	}
	for i, row := range rows {
		if draft.Texts[i] != row.Text {
			s.log.Warn("ignoring draft for %s: the lyrics changed", path)
			return false
		}
	}

	s.store.ApplyMarkers(draft.Markers)
	return true
}

func (s *Session) onSample(sample position.Sample) {
	rows := s.store.Rows()
	cells := make([]string, len(rows))
	for i, row := range rows {
		cells[i] = row.Marker
	}
	starts := highlight.StartsFromText(cells)

	s.mu.Lock()
	row, changed := s.tracker.Update(starts, sample.PositionMs)
	var callbacks []RowChange
	if changed {
		callbacks = s.onRow
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(row)
	}

	if s.feed != nil {
		line := ""
		if row >= 0 && row < len(rows) {
			line = rows[row].Text
		}
		s.feed.PublishPosition(sample.PositionMs, sample.TotalMs, row, line)
	}
}

func (s *Session) publishLyrics() {
	if s.feed == nil {
		return
	}

	rows := s.store.Rows()
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = row.Text
	}

	meta := s.Metadata()
	title := meta.Title
	if meta.Artist != "" && title != "" {
		title = meta.Artist + " - " + title
	}
	s.feed.PublishLyrics(title, lines)
}

func clampVolume(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
