package ui

import (
	"errors"
	"fmt"
	"image"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/lrclib"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/timecode"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncScroll(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case DisplayMsg:
		return m.handleDisplay(DisplayState(msg))

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case ArtworkLoadedMsg:
		if msg.Err == nil && msg.Image != nil {
			m.image = msg.Image
			m.palette = msg.Palette
		} else if msg.Err != nil && !errors.Is(msg.Err, artwork.ErrNoArtwork) {
			m.log.Debug("artwork: %v", msg.Err)
		}
		if m.palette == nil {
			m.palette = artwork.DefaultPalette()
		}
		return m, nil

	case LyricsFetchedMsg:
		return m.handleLyricsFetched(msg)

	case TickMsg:
		m.anim.step()
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "q" && key != "ctrl+c" && key != "esc" {
		m.quitArmed = false
	}

	switch key {
	case "q", "ctrl+c", "esc":
		return m.quit()

	case " ", "space":
		m.togglePlay()

	case "s":
		m.session.Stop()
		m.status = player.StatusStopped
		m.setNotice("stopped", false)

	case "enter", "m":
		m.assignMarker()

	case "backspace", "u":
		row, err := m.session.RemoveLastMarker()
		if err != nil {
			m.setNotice(err.Error(), true)
			break
		}
		m.setNotice(fmt.Sprintf("cleared marker of row %d", row+1), false)

	case "x", "delete":
		if m.session.ClearMarker(m.selected) {
			m.setNotice(fmt.Sprintf("cleared marker of row %d", m.selected+1), false)
		}

	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "pgup":
		m.moveSelection(-m.layout().bodyHeight)
	case "pgdown":
		m.moveSelection(m.layout().bodyHeight)
	case "home":
		m.moveSelection(-m.session.Store().Len())
	case "end":
		m.moveSelection(m.session.Store().Len())

	case "g":
		m.jumpToSelected()

	case "left", "h":
		m.session.Controller().SeekTo(m.display.ElapsedMs - seekStepMs)
	case "right", "l":
		m.session.Controller().SeekTo(m.display.ElapsedMs + seekStepMs)

	case "ctrl+s", "w":
		m.save()

	case "i":
		ctrl := m.session.Controller()
		ctrl.SetImmediate(!ctrl.Immediate())
		if ctrl.Immediate() {
			m.setNotice("seeking follows the bar immediately", false)
		} else {
			m.setNotice("seeking waits for the bar to settle", false)
		}

	case "+", "=":
		m.changeVolume(volumeStep)
	case "-":
		m.changeVolume(-volumeStep)

	case "f":
		m.follow = true
		if m.display.Row >= 0 {
			m.selected = m.display.Row
		}
		m.syncScroll(false)

	case "L":
		return m.startLyricsFetch()

	case "tab":
		m.hideHeader = !m.hideHeader
		m.syncScroll(true)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.session.Store().Dirty() && !m.quitArmed {
		m.quitArmed = true
		m.setNotice("unsaved markers: press q again to quit, they are kept as a draft", true)
		return m, nil
	}

	m.session.SaveDraft()
	m.session.Stop()
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) togglePlay() {
	if m.status == player.StatusStopped {
		if !m.session.Play(m.ctx) {
			m.setNotice("the player could not open the file", true)
			return
		}
		m.status = player.StatusPlaying
		m.setNotice("", false)
		return
	}

	if m.session.TogglePause() {
		m.status = player.StatusPaused
	} else {
		m.status = player.StatusPlaying
	}
}

func (m *Model) assignMarker() {
	a, err := m.session.AssignMarker(m.selected)
	if err != nil {
		m.setNotice(err.Error(), true)
		return
	}

	m.follow = false
	m.selected = min(a.Row+1, m.session.Store().Len()-1)
	m.syncScroll(false)
	m.setNotice(fmt.Sprintf("row %d marked at %s", a.Row+1, a.Text), false)
}

func (m *Model) jumpToSelected() {
	if !m.session.JumpToRow(m.selected) {
		m.setNotice(fmt.Sprintf("row %d has no marker", m.selected+1), true)
		return
	}
	m.follow = true
}

func (m *Model) save() {
	err := m.session.Save()
	switch {
	case err == nil:
		m.setNotice("saved lyrics to "+m.session.Path(), false)
	case errors.Is(err, session.ErrEmptyTable), errors.Is(err, session.ErrInvalidRow):
		m.setNotice("not saved: "+err.Error(), true)
	default:
		m.log.Error("save failed: %v", err)
		m.setNotice("save failed: "+err.Error(), true)
	}
}

func (m *Model) changeVolume(delta int) {
	v := m.session.SetVolume(m.session.Volume() + delta)
	m.setNotice(fmt.Sprintf("volume %d%%", v), false)
}

func (m *Model) moveSelection(delta int) {
	n := m.session.Store().Len()
	if n == 0 {
		return
	}
	m.follow = false
	m.selected = max(0, min(n-1, m.selected+delta))
	m.syncScroll(false)
}

// syncScroll keeps the selected row roughly centred in the lyric list.
func (m *Model) syncScroll(jump bool) {
	l := m.layout()
	m.anim.scrollTo(scrollTop(m.selected, m.session.Store().Len(), l.bodyHeight), jump)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	l := m.layout()
	ctrl := m.session.Controller()

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if l.onBar(msg.X, msg.Y) {
			m.dragging = true
			ctrl.OnUserPressed()
			m.dragTo(msg.Y, l)
			return m, nil
		}
		if row := l.rowAt(msg.Y, m.anim.top(), m.session.Store().Len()); row >= 0 {
			if row == m.selected {
				m.jumpToSelected()
			} else {
				m.follow = false
				m.selected = row
			}
		}

	case msg.Action == tea.MouseActionMotion && m.dragging:
		m.dragTo(msg.Y, l)

	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragTo(msg.Y, l)
		m.dragging = false
		ctrl.OnUserReleased()

	case msg.Button == tea.MouseButtonWheelUp:
		m.moveSelection(-1)
	case msg.Button == tea.MouseButtonWheelDown:
		m.moveSelection(1)
	}

	return m, nil
}

func (m *Model) dragTo(y int, l layout) {
	total := m.session.Controller().State().TotalMs
	if total <= 0 {
		return
	}
	value := barValue(y-l.bodyTop, l.bodyHeight, total)
	m.session.Controller().OnUserDragged(value)
	m.display.Value = value
}

func (m Model) handleDisplay(s DisplayState) (tea.Model, tea.Cmd) {
	prev := m.display.Row
	if m.dragging {
		s.Value = m.display.Value
	}
	m.display = s

	if s.Row != prev {
		m.anim.rowChanged()
		if m.follow && s.Row >= 0 {
			m.selected = s.Row
			m.syncScroll(false)
		}
	}
	return m, m.listenForDisplay()
}

func (m Model) handlePlayerEvent(ev player.EventData) (tea.Model, tea.Cmd) {
	m.session.HandlePlayerEvent(ev)

	switch ev.Type {
	case player.EventPlaybackStateChanged:
		if ev.Status != "" {
			m.status = ev.Status
		}
	case player.EventTrackChanged:
		if ev.Track != nil && ev.Track.URL != "" && !ev.Track.IsFile(m.session.Path()) {
			m.setNotice("the player is now on "+ev.Track.Label(), true)
		}
	}

	return m, m.listenForPlayerEvents()
}

func (m Model) startLyricsFetch() (tea.Model, tea.Cmd) {
	if m.lyrics == nil || m.fetching {
		return m, nil
	}

	meta := m.session.Metadata()
	if meta.Title == "" || meta.Artist == "" {
		m.setNotice("lrclib needs the file's title and artist tags", true)
		return m, nil
	}

	m.fetching = true
	m.setNotice("looking up lyrics on lrclib", false)

	params := lrclib.Params{
		Title:        meta.Title,
		Artist:       meta.Artist,
		Album:        meta.Album,
		DurationSecs: meta.LengthMs / 1000,
	}
	fetcher, ctx := m.lyrics, m.ctx
	return m, func() tea.Msg {
		resp, err := fetcher.Fetch(ctx, params)
		return LyricsFetchedMsg{Response: resp, Err: err}
	}
}

func (m Model) handleLyricsFetched(msg LyricsFetchedMsg) (tea.Model, tea.Cmd) {
	m.fetching = false

	if msg.Err != nil {
		if errors.Is(msg.Err, lrclib.ErrNotFound) {
			m.setNotice("lrclib has no lyrics for this track", true)
		} else {
			m.setNotice("lrclib lookup failed: "+msg.Err.Error(), true)
		}
		return m, nil
	}

	rows := msg.Response.Rows()
	if len(rows) == 0 {
		m.setNotice("lrclib answer has no lyric lines", true)
		return m, nil
	}

	m.session.ReplaceRows(rows)
	m.selected = 0
	m.follow = true
	m.syncScroll(true)
	m.setNotice(fmt.Sprintf("imported %d lines (%d timed) from lrclib", len(rows), timedCount(rows)), false)
	return m, nil
}

func (m Model) loadArtworkCmd() tea.Cmd {
	path := m.session.Path()
	artURL := ""
	if m.artURL != nil {
		artURL = m.artURL()
	}
	ctx := m.ctx

	return func() tea.Msg {
		var img image.Image
		data, err := lyrics.ReadCover(path)
		if err == nil {
			img, err = artwork.Decode(data)
		}
		if img == nil && artURL != "" {
			img, err = artwork.Fetch(ctx, artURL)
		}
		if img == nil {
			return ArtworkLoadedMsg{Err: err}
		}
		return ArtworkLoadedMsg{Image: img, Palette: artwork.ExtractPalette(img)}
	}
}

func timedCount(rows []lyrics.Row) int {
	n := 0
	for _, r := range rows {
		if _, ok := timecode.Parse(r.Marker); ok {
			n++
		}
	}
	return n
}
