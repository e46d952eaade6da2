package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/markers"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/position"
	"karolbroda.com/lyricsync/internal/track"
)

type fakePlayer struct {
	mu      sync.Mutex
	time    int64
	length  int64
	paused  bool
	played  []string
	seeks   []int64
	volume  int
	stopped int
	playErr bool
}

func (p *fakePlayer) TimeMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

func (p *fakePlayer) LengthMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.length
}

func (p *fakePlayer) SetPositionMs(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, ms)
	p.time = ms
}

func (p *fakePlayer) Play(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr {
		return false
	}
	p.played = append(p.played, path)
	p.paused = false
	return true
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *fakePlayer) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	return true
}

func (p *fakePlayer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *fakePlayer) SetVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
}

func (p *fakePlayer) setTime(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.time = ms
}

type memDrafts struct {
	drafts map[string]*cache.Draft
}

func (d *memDrafts) GetDraft(path string) (*cache.Draft, error) {
	draft, ok := d.drafts[path]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return draft, nil
}

func (d *memDrafts) SetDraft(draft *cache.Draft) error {
	d.drafts[draft.Path] = draft
	return nil
}

func (d *memDrafts) DeleteDraft(path string) error {
	delete(d.drafts, path)
	return nil
}

type recordingFeed struct {
	mu        sync.Mutex
	titles    []string
	positions []int64
	rows      []int
	lines     []string
}

func (f *recordingFeed) PublishLyrics(title string, lines []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *recordingFeed) PublishPosition(positionMs, totalMs int64, row int, line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, positionMs)
	f.rows = append(f.rows, row)
	f.lines = append(f.lines, line)
}

type harness struct {
	session *Session
	player  *fakePlayer
	drafts  *memDrafts
	feed    *recordingFeed
	written map[string][]lyrics.Row
}

const testPath = "/music/song.flac"

func newHarness(t *testing.T, rows []lyrics.Row) *harness {
	t.Helper()

	h := &harness{
		player:  &fakePlayer{length: 180000},
		drafts:  &memDrafts{drafts: map[string]*cache.Draft{}},
		feed:    &recordingFeed{},
		written: map[string][]lyrics.Row{},
	}

	ctrl := position.NewController(h.player, nil, nil, position.Options{})
	h.session = New(h.player, ctrl, nil, Options{
		Engine: markers.New(),
		Drafts: h.drafts,
		Feed:   h.feed,
		ReadMetadata: func(path string) (*lyrics.Metadata, error) {
			if path != testPath {
				return nil, errors.New("no such file")
			}
			return &lyrics.Metadata{
				Title:    "Song",
				Artist:   "Band",
				LengthMs: 180000,
				Rows:     append([]lyrics.Row(nil), rows...),
			}, nil
		},
		WriteLyrics: func(path string, rows []lyrics.Row) error {
			h.written[path] = rows
			return nil
		},
	})
	return h
}

func untimed(texts ...string) []lyrics.Row {
	rows := make([]lyrics.Row, len(texts))
	for i, text := range texts {
		rows[i] = lyrics.Row{Text: text}
	}
	return rows
}

func TestOpen(t *testing.T) {
	h := newHarness(t, untimed("a", "b"))

	if err := h.session.Open("/missing.flac"); err == nil {
		t.Fatal("expected error for unreadable file")
	}

	if err := h.session.Open(testPath); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.session.Store().Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.session.Store().Len())
	}
	if got := h.session.Controller().State().TotalMs; got != 180000 {
		t.Errorf("controller total = %d, want 180000 from the tags", got)
	}
	if len(h.feed.titles) != 1 || h.feed.titles[0] != "Band - Song" {
		t.Errorf("feed titles = %v", h.feed.titles)
	}
	if h.session.RestoredDraft() {
		t.Error("RestoredDraft() = true without a draft")
	}
}

func TestAssignMarkerUsesPlayerTime(t *testing.T) {
	h := newHarness(t, []lyrics.Row{
		{Marker: "0:01.000", Text: "a"},
		{Text: "b"},
		{Text: "c"},
		{Marker: "0:09.000", Text: "d"},
		{Text: "e"},
	})
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	h.player.setTime(65432)
	a, err := h.session.AssignMarker(1)
	if err != nil {
		t.Fatalf("AssignMarker: %v", err)
	}
	if a.Row != 1 || a.Text != "1:05.432" {
		t.Errorf("assignment = %+v", a)
	}
	if got := h.session.Store().Rows()[1].Marker; got != "1:05.432" {
		t.Errorf("row 1 marker = %q", got)
	}

	// without a reference row the first empty row is used
	a, err = h.session.AssignMarker(-1)
	if err != nil || a.Row != 2 {
		t.Errorf("AssignMarker(-1) = %+v, %v", a, err)
	}

	if _, err := h.session.AssignMarker(0); err != nil {
		t.Fatalf("AssignMarker: %v", err)
	}
	if _, err := h.session.AssignMarker(0); !errors.Is(err, ErrNoEmptyMarker) {
		t.Errorf("full table err = %v, want ErrNoEmptyMarker", err)
	}
}

func TestAssignMarkerEmptyTable(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	if _, err := h.session.AssignMarker(0); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("err = %v, want ErrEmptyTable", err)
	}
	if _, err := h.session.RemoveLastMarker(); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("err = %v, want ErrEmptyTable", err)
	}
}

func TestRemoveLastMarker(t *testing.T) {
	h := newHarness(t, []lyrics.Row{
		{Marker: "0:01.000", Text: "a"},
		{Marker: "0:02.000", Text: "b"},
		{Text: "c"},
	})
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	row, err := h.session.RemoveLastMarker()
	if err != nil || row != 1 {
		t.Fatalf("RemoveLastMarker() = %d, %v", row, err)
	}
	if row, _ = h.session.RemoveLastMarker(); row != 0 {
		t.Fatalf("second RemoveLastMarker() = %d", row)
	}
	if _, err := h.session.RemoveLastMarker(); !errors.Is(err, ErrNoMarker) {
		t.Errorf("err = %v, want ErrNoMarker", err)
	}
}

func TestDraftsSurviveReopen(t *testing.T) {
	h := newHarness(t, untimed("a", "b"))
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	h.player.setTime(2000)
	if _, err := h.session.AssignMarker(-1); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.drafts.drafts[testPath]; !ok {
		t.Fatal("no draft stored after assigning a marker")
	}

	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	if !h.session.RestoredDraft() {
		t.Error("draft not restored")
	}
	if got := h.session.Store().Markers(); !reflect.DeepEqual(got, []string{"0:02.000", ""}) {
		t.Errorf("markers = %q", got)
	}
}

func TestDraftIgnoredWhenLyricsChanged(t *testing.T) {
	h := newHarness(t, untimed("a", "b"))
	h.drafts.drafts[testPath] = &cache.Draft{
		Path:    testPath,
		Markers: []string{"0:01.000", "0:02.000"},
		Texts:   []string{"a", "different"},
	}

	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	if h.session.RestoredDraft() {
		t.Error("stale draft restored")
	}
	if got := h.session.Store().Markers(); !reflect.DeepEqual(got, []string{"", ""}) {
		t.Errorf("markers = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		rows []lyrics.Row
		want error
	}{
		{"empty", nil, ErrEmptyTable},
		{"valid", []lyrics.Row{{Marker: "0:01.000", Text: "a"}, {Marker: "10:02.500", Text: "b"}}, nil},
		{"missing marker", []lyrics.Row{{Marker: "0:01.000", Text: "a"}, {Text: "b"}}, ErrInvalidRow},
		{"missing text", []lyrics.Row{{Marker: "0:01.000", Text: "  "}}, ErrInvalidRow},
		{"two digit fraction", []lyrics.Row{{Marker: "0:01.50", Text: "a"}}, ErrInvalidRow},
		{"garbage marker", []lyrics.Row{{Marker: "soon", Text: "a"}}, ErrInvalidRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rows)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if tt.want == nil && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	h := newHarness(t, untimed("a", "b"))

	if err := h.session.Save(); !errors.Is(err, ErrNoFile) {
		t.Errorf("Save before Open err = %v, want ErrNoFile", err)
	}

	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	if err := h.session.Save(); !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("Save with untimed rows err = %v, want ErrInvalidRow", err)
	}
	if len(h.written) != 0 {
		t.Fatal("invalid table was written")
	}

	h.player.setTime(1000)
	h.session.AssignMarker(-1)
	h.player.setTime(2000)
	h.session.AssignMarker(-1)

	if err := h.session.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := []lyrics.Row{{Marker: "0:01.000", Text: "a"}, {Marker: "0:02.000", Text: "b"}}
	if got := h.written[testPath]; !reflect.DeepEqual(got, want) {
		t.Errorf("written = %+v, want %+v", got, want)
	}
	if _, ok := h.drafts.drafts[testPath]; ok {
		t.Error("draft kept after a successful save")
	}
	if h.session.Store().Dirty() {
		t.Error("store dirty after save")
	}
}

func TestPlayPauseStop(t *testing.T) {
	h := newHarness(t, untimed("a"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if h.session.Play(ctx) {
		t.Fatal("Play without a file succeeded")
	}

	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	h.session.SetVolume(40)

	if !h.session.Play(ctx) {
		t.Fatal("Play failed")
	}
	defer h.session.Controller().Stop()

	if !reflect.DeepEqual(h.player.played, []string{testPath}) {
		t.Errorf("played = %v", h.player.played)
	}
	if h.player.volume != 40 {
		t.Errorf("volume = %d, want 40", h.player.volume)
	}
	if !h.session.Controller().Running() {
		t.Error("sampler not running after Play")
	}

	if paused := h.session.TogglePause(); !paused {
		t.Error("TogglePause() = false, want paused")
	}
	if paused := h.session.TogglePause(); paused {
		t.Error("TogglePause() = true, want resumed")
	}

	h.session.Stop()
	if h.player.stopped != 1 {
		t.Errorf("player stopped %d times", h.player.stopped)
	}
	if h.session.Controller().Running() {
		t.Error("sampler still running after Stop")
	}
	state := h.session.Controller().State()
	if state.Value != state.TotalMs {
		t.Errorf("control = %d, want end position %d", state.Value, state.TotalMs)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.session.Volume(); got != 100 {
		t.Errorf("default volume = %d, want 100", got)
	}
	if got := h.session.SetVolume(250); got != 100 {
		t.Errorf("SetVolume(250) = %d", got)
	}
	if got := h.session.SetVolume(-3); got != 0 || h.player.volume != 0 {
		t.Errorf("SetVolume(-3) = %d, player %d", got, h.player.volume)
	}
}

func TestJumpToRowAndHighlight(t *testing.T) {
	h := newHarness(t, []lyrics.Row{
		{Marker: "0:00.000", Text: "intro"},
		{Marker: "0:05.000", Text: "verse"},
		{Marker: "0:12.000", Text: "chorus"},
	})
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	var changes []int
	h.session.OnRowChange(func(row int) { changes = append(changes, row) })

	if !h.session.JumpToRow(1) {
		t.Fatal("JumpToRow(1) = false")
	}
	if h.player.seeks[len(h.player.seeks)-1] != 5000 {
		t.Errorf("seeks = %v", h.player.seeks)
	}
	if got := h.session.ActiveRow(); got != 1 {
		t.Errorf("ActiveRow() = %d, want 1", got)
	}

	if h.session.JumpToRow(10) {
		t.Error("JumpToRow out of range succeeded")
	}

	h.session.Controller().OnSamplerTick(6000)
	h.session.Controller().OnSamplerTick(12500)

	if !reflect.DeepEqual(changes, []int{1, 2}) {
		t.Errorf("row changes = %v, want [1 2]", changes)
	}
	if last := h.feed.lines[len(h.feed.lines)-1]; last != "chorus" {
		t.Errorf("last feed line = %q", last)
	}
}

func TestJumpToUntimedRow(t *testing.T) {
	h := newHarness(t, untimed("a"))
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	if h.session.JumpToRow(0) {
		t.Error("JumpToRow on an untimed row succeeded")
	}
	if len(h.player.seeks) != 0 {
		t.Errorf("seeks = %v", h.player.seeks)
	}
}

func TestExternalStopEvent(t *testing.T) {
	h := newHarness(t, []lyrics.Row{{Marker: "0:00.000", Text: "a"}})
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}
	var changes []int
	h.session.OnRowChange(func(row int) { changes = append(changes, row) })

	h.session.Controller().OnSamplerTick(1000)
	if h.session.ActiveRow() != 0 {
		t.Fatalf("ActiveRow() = %d", h.session.ActiveRow())
	}

	h.session.HandlePlayerEvent(player.EventData{Type: player.EventPlaybackStateChanged, Status: player.StatusStopped})

	if !reflect.DeepEqual(changes, []int{0, -1}) {
		t.Errorf("row changes = %v, want [0 -1]", changes)
	}

	if h.session.ActiveRow() != -1 {
		t.Errorf("ActiveRow() after stop = %d, want -1", h.session.ActiveRow())
	}
	state := h.session.Controller().State()
	if state.Value != state.TotalMs {
		t.Errorf("control = %d, want %d", state.Value, state.TotalMs)
	}
}

func TestStopClearsHighlight(t *testing.T) {
	h := newHarness(t, []lyrics.Row{
		{Marker: "0:00.000", Text: "a"},
		{Marker: "0:02.000", Text: "b"},
	})
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	var changes []int
	h.session.OnRowChange(func(row int) { changes = append(changes, row) })
	h.session.Controller().OnSamplerTick(2500)

	h.session.Stop()

	if !reflect.DeepEqual(changes, []int{1, -1}) {
		t.Errorf("row changes = %v, want [1 -1]", changes)
	}
	if h.session.ActiveRow() != -1 {
		t.Errorf("ActiveRow() after Stop = %d, want -1", h.session.ActiveRow())
	}
}

func TestReplaceRows(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	h.session.ReplaceRows(lyrics.ParsePlain("one\ntwo"))
	if h.session.Store().Len() != 2 {
		t.Errorf("Len() = %d", h.session.Store().Len())
	}
	if len(h.feed.titles) != 2 {
		t.Errorf("lyrics published %d times, want 2", len(h.feed.titles))
	}
}

func TestTrackChangedAdoptsPlayerLength(t *testing.T) {
	h := newHarness(t, untimed("a"))
	if err := h.session.Open(testPath); err != nil {
		t.Fatal(err)
	}

	h.session.HandlePlayerEvent(player.EventData{
		Type:  player.EventTrackChanged,
		Track: &track.Info{URL: "file://" + testPath, LengthMs: 181500},
	})
	if got := h.session.Controller().State().TotalMs; got != 181500 {
		t.Errorf("TotalMs = %d, want 181500", got)
	}

	h.session.HandlePlayerEvent(player.EventData{
		Type:  player.EventTrackChanged,
		Track: &track.Info{URL: "file:///music/other.flac", LengthMs: 1000},
	})
	if got := h.session.Controller().State().TotalMs; got != 181500 {
		t.Errorf("another file changed TotalMs to %d", got)
	}
}
