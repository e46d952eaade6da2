package lyrics

import (
	"fmt"
	"strings"

	"go.senan.xyz/taglib"
)

// lyricsKey is the tag lyrics are read from and written to. Lyrics in other
// comment-like tags are only read.
const lyricsKey = "LYRICS"

var fallbackLyricsKeys = []string{"UNSYNCEDLYRICS", "UNSYNCED LYRICS"}

type Metadata struct {
	Title    string
	Artist   string
	Album    string
	LengthMs int64
	Rows     []Row
}

// ExtractMetadata reads the tags and embedded lyrics of the audio file at path.
func ExtractMetadata(path string) (*Metadata, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	meta := &Metadata{
		Title:  firstTag(tags, taglib.Title),
		Artist: firstTag(tags, taglib.Artist),
		Album:  firstTag(tags, taglib.Album),
		Rows:   ParseLRC(lyricsText(tags)),
	}

	props, err := taglib.ReadProperties(path)
	if err == nil {
		meta.LengthMs = props.Length.Milliseconds()
	}

	return meta, nil
}

// WriteLyrics stores rows as LRC text in the file's lyrics tag. Other tags
// are left alone.
func WriteLyrics(path string, rows []Row) error {
	tags := map[string][]string{
		lyricsKey: {FormatLRC(rows)},
	}

	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("failed to write lyrics to %s: %w", path, err)
	}
	return nil
}

// ReadCover returns the embedded cover image bytes, or nil when there is none.
func ReadCover(path string) ([]byte, error) {
	data, err := taglib.ReadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover from %s: %w", path, err)
	}
	return data, nil
}

func lyricsText(tags map[string][]string) string {
	if values := tags[lyricsKey]; len(values) > 0 {
		return strings.Join(values, "\n")
	}
	for _, key := range fallbackLyricsKeys {
		if values := tags[key]; len(values) > 0 {
			return strings.Join(values, "\n")
		}
	}
	return ""
}

func firstTag(tags map[string][]string, key string) string {
	if values := tags[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
