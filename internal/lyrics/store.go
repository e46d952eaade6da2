package lyrics

import (
	"strings"
	"sync"

	"karolbroda.com/lyricsync/internal/timecode"
)

// Store is the ordered table of rows being edited. Reads return copies and
// each marker write is atomic, so the UI, the session and the sampler
// listeners can share one store.
type Store struct {
	mu   sync.RWMutex
	rows []Row
	// dirty is set by marker edits and cleared by Load and MarkSaved.
	dirty bool
}

func NewStore(rows []Row) *Store {
	s := &Store{}
	s.Load(rows)
	return s
}

// Load replaces the table. Markers are normalised where they parse.
func (s *Store) Load(rows []Row) {
	copied := make([]Row, len(rows))
	for i, row := range rows {
		copied[i] = Row{Marker: normalizeMarker(row.Marker), Text: row.Text}
	}

	s.mu.Lock()
	s.rows = copied
	s.dirty = false
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Row(nil), s.rows...)
}

// Markers returns the marker column in row order.
func (s *Store) Markers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markers := make([]string, len(s.rows))
	for i, row := range s.rows {
		markers[i] = row.Marker
	}
	return markers
}

// SetMarker writes the marker of one row. Out of range rows report false.
func (s *Store) SetMarker(row int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row < 0 || row >= len(s.rows) {
		return false
	}
	s.rows[row].Marker = text
	s.dirty = true
	return true
}

func (s *Store) ClearMarker(row int) bool {
	return s.SetMarker(row, "")
}

// ApplyMarkers overwrites the marker column, e.g. from a saved draft. Extra
// markers are ignored and missing ones leave their rows untouched.
func (s *Store) ApplyMarkers(markers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(markers) && i < len(s.rows); i++ {
		s.rows[i].Marker = markers[i]
	}
	s.dirty = true
}

func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Store) MarkSaved() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// normalizeMarker fixes the fraction of a marker and keeps its minutes as
// written. Other time forms, such as h:mm:ss, are rewritten as M:SS.mmm.
func normalizeMarker(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if normalized, ok := timecode.Normalize(trimmed); ok {
		return normalized
	}
	if ms, err := parseLrcTime(trimmed); err == nil {
		return timecode.Format(ms)
	}
	return text
}
