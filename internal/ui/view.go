package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/timecode"
)

const (
	infoLines   = 4
	markerWidth = 9
	textColor   = "#D8D8E0"
	errorColor  = "#FF6E6E"

	helpText = "space play/pause · s stop · enter mark · u undo · x clear · g jump · ←/→ seek · w save · L lrclib · i seek mode · q quit"
)

var clockHeight = len(bigClock(0))

func bigClock(ms int64) []string {
	return figure.NewFigure(timecode.FormatClock(ms), "", false).Slicify()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w, h := m.size()
	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	var lines []string
	if !m.hideHeader {
		lines = append(lines, m.renderHeader(w, h)...)
	}
	lines = append(lines, m.renderBody(palette, m.layout())...)
	lines = append(lines, m.renderFooter(palette, w)...)

	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	return strings.Join(lines, "\n")
}

func artSize(width, height int) (int, int) {
	switch {
	case width < 50 || height < 25:
		return 0, 0
	case width < 80:
		return 8, 4
	default:
		return 12, 6
	}
}

func (m Model) useKitty(artHeight int) bool {
	return m.termCaps != nil && m.termCaps.KittyGraphics && artHeight > 0 && m.image != nil
}

func (m Model) showClock(width, height int) bool {
	return width >= 70 && height >= 32
}

func (m Model) headerHeight(width, height int) int {
	_, artH := artSize(width, height)

	block := max(artH, infoLines)
	if m.useKitty(artH) {
		block = artH + infoLines
	}

	n := 1 + block + 1
	if m.showClock(width, height) {
		n += clockHeight
	}
	return n
}

func (m Model) renderHeader(width, height int) []string {
	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	artW, artH := artSize(width, height)
	info := m.renderInfo(palette)
	lines := []string{""}

	if m.useKitty(artH) {
		if out := terminal.EncodeImageForKitty(m.image, artW, artH); out != "" {
			lines = append(lines, "  "+out)
		} else {
			lines = append(lines, "")
		}
		for i := 1; i < artH; i++ {
			lines = append(lines, "")
		}
		for _, l := range info {
			lines = append(lines, "  "+l)
		}
	} else {
		art := artwork.RenderHalfBlockArt(m.image, artW, artH)
		for i := 0; i < max(artH, len(info)); i++ {
			var line strings.Builder
			if artW > 0 {
				line.WriteString("  ")
				if i < len(art) {
					line.WriteString(art[i])
				} else {
					line.WriteString(strings.Repeat(" ", artW))
				}
				line.WriteString("  ")
			} else {
				line.WriteString("  ")
			}
			if i < len(info) {
				line.WriteString(info[i])
			}
			lines = append(lines, line.String())
		}
	}

	lines = append(lines, "")

	if m.showClock(width, height) {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary))
		for _, l := range bigClock(m.display.ElapsedMs) {
			lines = append(lines, centerText(style.Render(l), lipgloss.Width(l), width))
		}
	}

	n := m.headerHeight(width, height)
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines[:n]
}

func (m Model) renderInfo(palette *artwork.Palette) []string {
	meta := m.session.Metadata()

	title := meta.Title
	if title == "" {
		title = filepath.Base(m.session.Path())
	}
	byline := meta.Artist
	if meta.Album != "" {
		if byline != "" {
			byline += " · "
		}
		byline += meta.Album
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent))

	status := "■ stopped"
	switch m.status {
	case player.StatusPlaying:
		status = "▶ playing"
	case player.StatusPaused:
		status = "⏸ paused"
	}

	mode := "debounced"
	if m.session.Controller().Immediate() {
		mode = "immediate"
	}

	playback := fmt.Sprintf("%s  %s / %s  vol %d%%  seek %s",
		accent.Render(status),
		timecode.FormatClock(m.display.ElapsedMs),
		timecode.FormatClock(m.display.TotalMs),
		m.session.Volume(),
		mode)

	rows := m.session.Store().Rows()
	state := "saved"
	if m.session.Store().Dirty() {
		state = "modified"
	}
	progress := fmt.Sprintf("%d/%d rows timed · %s", timedCount(rows), len(rows), state)
	if m.follow {
		progress += " · following"
	}

	return []string{
		colors.RenderGradientText(title, palette.Gradient, true),
		lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary)).Render(byline),
		playback,
		dim.Render(progress),
	}
}

func (m Model) renderBody(palette *artwork.Palette, l layout) []string {
	rows := m.session.Store().Rows()
	lines := make([]string, l.bodyHeight)

	textWidth := max(1, l.width-markerWidth-8)
	top := m.anim.top()
	thumb := barLine(m.display.Value, m.display.TotalMs, l.bodyHeight)

	for i := range lines {
		var cell string
		row := top + i
		switch {
		case len(rows) == 0 && i == l.bodyHeight/2:
			msg := "no lyrics yet: press L to look them up on lrclib"
			cell = centerText(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true).Render(msg), len(msg), l.width-3)
		case row < len(rows):
			cell = m.renderRow(palette, row, rows[row].Marker, rows[row].Text, textWidth)
		}

		pad := max(0, l.barX-lipgloss.Width(cell))
		lines[i] = cell + strings.Repeat(" ", pad) + m.renderBarCell(palette, i, thumb)
	}
	return lines
}

func (m Model) renderRow(palette *artwork.Palette, row int, marker, text string, textWidth int) string {
	cursor := " "
	if row == m.selected {
		cursor = lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Bold(true).Render("›")
	}

	markerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	if strings.TrimSpace(marker) == "" {
		marker = "-:--.---"
		markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true)
	}

	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(textColor)).MaxWidth(textWidth)
	active := m.display.Row
	switch {
	case row == active:
		textStyle = textStyle.Foreground(lipgloss.Color(colors.Glow(palette.Primary, m.anim.glow))).Bold(true)
		markerStyle = markerStyle.Foreground(lipgloss.Color(palette.Primary)).Bold(true)
	case active >= 0 && row < active:
		textStyle = textStyle.Foreground(lipgloss.Color(colors.Dim(textColor, 0.6)))
	}

	return fmt.Sprintf(" %s %s  %s", cursor, markerStyle.Render(fmt.Sprintf("%*s", markerWidth, marker)), textStyle.Render(text))
}

func (m Model) renderBarCell(palette *artwork.Palette, line, thumb int) string {
	if m.display.TotalMs <= 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true).Render("│")
	}

	switch {
	case line < thumb:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary)).Render("┃")
	case line == thumb:
		color := palette.Accent
		if m.dragging {
			color = colors.Glow(palette.Accent, 1)
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render("●")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render("│")
	}
}

func (m Model) renderFooter(palette *artwork.Palette, width int) []string {
	noticeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).MaxWidth(width - 2)
	if m.noticeErr {
		noticeStyle = noticeStyle.Foreground(lipgloss.Color(errorColor))
	}
	help := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true).MaxWidth(width - 2)

	return []string{
		"  " + noticeStyle.Render(m.notice),
		"  " + help.Render(helpText),
	}
}

func centerText(text string, visualWidth int, screenWidth int) string {
	padding := (screenWidth - visualWidth) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat(" ", padding) + text
}
