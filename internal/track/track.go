// Package track describes what a media player reports as now playing.
package track

import "strings"

type Info struct {
	Title      string
	Artist     string
	Album      string
	LengthMs   int64
	ArtworkURL string
	TrackID    string
	// URL is the xesam:url of the track, file:// for local files.
	URL string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" || t.URL != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	if t.URL != "" && other.URL != "" {
		return t.URL == other.URL
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

// IsFile reports whether the track is the local file at path.
func (t *Info) IsFile(path string) bool {
	if t == nil || t.URL == "" {
		return false
	}
	return strings.TrimPrefix(t.URL, "file://") == path
}

// Label is a short human readable name for the track.
func (t *Info) Label() string {
	if t == nil {
		return ""
	}
	switch {
	case t.Title != "" && t.Artist != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.URL
	}
}
