// Package lrclib looks up lyrics on lrclib.net for files that carry none.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
)

const (
	DefaultGetURL  = "https://lrclib.net/api/get"
	DefaultTimeout = 10 * time.Second
	userAgent      = "lyricsync/1.0"
)

var ErrNotFound = errors.New("lyrics not found")

type Response struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Rows converts the answer into editable rows, preferring synced lyrics.
func (r *Response) Rows() []lyrics.Row {
	if r == nil {
		return nil
	}
	if r.SyncedLyrics != "" {
		return lyrics.ParseLRC(r.SyncedLyrics)
	}
	return lyrics.ParsePlain(r.PlainLyrics)
}

type Params struct {
	Title        string
	Artist       string
	Album        string
	DurationSecs int64
}

type Client struct {
	baseURL       string
	httpClient    *http.Client
	cache         *cache.DiskCache
	strategyDelay time.Duration
}

// NewClient creates a client for the lrclib get endpoint at baseURL. A nil
// cache disables caching.
func NewClient(baseURL string, diskCache *cache.DiskCache) *Client {
	if baseURL == "" {
		baseURL = DefaultGetURL
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}

	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Transport: transport, Timeout: DefaultTimeout},
		cache:         diskCache,
		strategyDelay: 100 * time.Millisecond,
	}
}

type strategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

// Fetch tries several spellings of the track until lrclib has lyrics for
// one. Answers are cached under the original artist and title.
func (c *Client) Fetch(ctx context.Context, track Params) (*Response, error) {
	if track.Title == "" || track.Artist == "" {
		return nil, errors.New("track title or artist is empty")
	}

	if c.cache != nil {
		if cached, err := c.cache.GetLyrics(track.Artist, track.Title); err == nil {
			return &Response{
				TrackName:    cached.TrackName,
				ArtistName:   cached.ArtistName,
				AlbumName:    cached.AlbumName,
				Duration:     cached.Duration,
				Instrumental: cached.Instrumental,
				PlainLyrics:  cached.PlainLyrics,
				SyncedLyrics: cached.SyncedLyrics,
			}, nil
		}
	}

	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", c.baseURL, err)
	}

	var lastErr error
	for i, s := range strategies(track) {
		if i > 0 && c.strategyDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.strategyDelay):
			}
		}

		query := url.Values{}
		query.Set("artist_name", s.artist)
		query.Set("track_name", s.title)
		if s.album != "" {
			query.Set("album_name", s.album)
		}
		if s.duration > 0 {
			query.Set("duration", fmt.Sprintf("%d", s.duration))
		}
		parsedURL.RawQuery = query.Encode()

		payload, err := c.get(ctx, parsedURL.String())
		if err != nil {
			lastErr = err
			if isTimeoutError(err) {
				return nil, errors.New("lyrics server took too long to respond")
			}
			continue
		}

		if payload.PlainLyrics == "" && payload.SyncedLyrics == "" && !payload.Instrumental {
			lastErr = ErrNotFound
			continue
		}

		if c.cache != nil {
			_ = c.cache.SetLyrics(track.Artist, track.Title, &cache.LyricEntry{
				TrackName:    payload.TrackName,
				ArtistName:   payload.ArtistName,
				AlbumName:    payload.AlbumName,
				Duration:     payload.Duration,
				Instrumental: payload.Instrumental,
				PlainLyrics:  payload.PlainLyrics,
				SyncedLyrics: payload.SyncedLyrics,
			})
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, fmt.Errorf("no lyrics found for %s - %s: %w", track.Artist, track.Title, lastErr)
}

// strategies lists unique search variants, most specific first.
func strategies(track Params) []strategy {
	normalizedArtist := normalizeString(track.Artist)
	normalizedTitle := normalizeString(track.Title)
	strippedArtist := stripVersionInfo(track.Artist)
	strippedTitle := stripVersionInfo(track.Title)

	candidates := []strategy{
		{normalizedArtist, normalizedTitle, track.Album, track.DurationSecs},
		{normalizedArtist, normalizedTitle, "", track.DurationSecs},
		{normalizedArtist, normalizedTitle, "", 0},
		{strippedArtist, strippedTitle, "", 0},
		{strings.ToLower(normalizedArtist), strings.ToLower(normalizedTitle), "", 0},
		{track.Artist, track.Title, "", 0},
	}

	seen := make(map[strategy]bool)
	var unique []strategy
	for _, s := range candidates {
		if s.artist == "" || s.title == "" || seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
	}
	return unique
}

func (c *Client) get(ctx context.Context, requestURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode lrclib json: %w", err)
	}
	return &payload, nil
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes parenthesised and bracketed parts such as
// "(Remastered)" or "[Live]".
func stripVersionInfo(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
			b.WriteRune(' ')
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return normalizeString(b.String())
}
