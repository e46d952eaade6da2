package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	cacheVersion    = 1
	defaultTTLDays  = 30
	cacheDirName    = "lyricsync"
	lyricsCacheName = "lyrics"
	draftsCacheName = "drafts"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// LyricEntry is a remembered lrclib answer.
type LyricEntry struct {
	Version      uint8
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	CreatedAt    int64
	ExpiresAt    int64
}

// Draft is unsaved marker work for one audio file. Drafts never expire; they
// are removed when the file is saved or by hand.
type Draft struct {
	Version   uint8
	Path      string
	Markers   []string
	Texts     []string
	UpdatedAt int64
}

type DiskCache struct {
	basePath string
	mu       sync.RWMutex
	memCache map[string]*LyricEntry
}

var (
	globalCache     *DiskCache
	globalCacheOnce sync.Once
)

// GetGlobalCache returns the process wide cache. When the cache directory
// cannot be created it degrades to memory only.
func GetGlobalCache() *DiskCache {
	globalCacheOnce.Do(func() {
		cache, err := NewDiskCache()
		if err != nil {
			cache = &DiskCache{
				basePath: "",
				memCache: make(map[string]*LyricEntry),
			}
		}
		globalCache = cache
	})
	return globalCache
}

func NewDiskCache() (*DiskCache, error) {
	cacheDir, err := getCacheDirectory()
	if err != nil {
		return nil, err
	}
	return NewDiskCacheAt(cacheDir)
}

func NewDiskCacheAt(dir string) (*DiskCache, error) {
	for _, sub := range []string{lyricsCacheName, draftsCacheName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, err
		}
	}

	return &DiskCache{
		basePath: dir,
		memCache: make(map[string]*LyricEntry),
	}, nil
}

func getCacheDirectory() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

func generateKey(parts ...string) string {
	normalized := strings.ToLower(strings.Join(parts, "|"))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

// Dir is the cache directory, or "" when the cache lives in memory only.
func (c *DiskCache) Dir() string { return c.basePath }

func (c *DiskCache) filePath(dir, key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, dir, key+".bin")
}

func (c *DiskCache) GetLyrics(artist, title string) (*LyricEntry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > time.Now().Unix() {
			return entry, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	path := c.filePath(lyricsCacheName, key)
	var stored LyricEntry
	if err := readGob(path, &stored); err != nil {
		return nil, err
	}
	if stored.Version != cacheVersion {
		_ = os.Remove(path)
		return nil, ErrCacheCorrupt
	}
	if stored.ExpiresAt <= time.Now().Unix() {
		_ = os.Remove(path)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = &stored
	c.mu.Unlock()

	return &stored, nil
}

func (c *DiskCache) SetLyrics(artist, title string, entry *LyricEntry) error {
	if artist == "" || title == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(artist, title)

	now := time.Now().Unix()
	entry.Version = cacheVersion
	entry.CreatedAt = now
	entry.ExpiresAt = now + int64(defaultTTLDays*24*60*60)

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}
	return writeGob(c.filePath(lyricsCacheName, key), entry)
}

func (c *DiskCache) GetDraft(audioPath string) (*Draft, error) {
	if c.basePath == "" || audioPath == "" {
		return nil, ErrCacheMiss
	}

	path := c.filePath(draftsCacheName, generateKey(audioPath))
	var draft Draft
	if err := readGob(path, &draft); err != nil {
		return nil, err
	}
	if draft.Version != cacheVersion || draft.Path != audioPath {
		return nil, ErrCacheCorrupt
	}
	return &draft, nil
}

func (c *DiskCache) SetDraft(draft *Draft) error {
	if draft == nil || draft.Path == "" {
		return errors.New("invalid draft")
	}
	if c.basePath == "" {
		return nil
	}

	draft.Version = cacheVersion
	draft.UpdatedAt = time.Now().Unix()
	return writeGob(c.filePath(draftsCacheName, generateKey(draft.Path)), draft)
}

func (c *DiskCache) DeleteDraft(audioPath string) error {
	if c.basePath == "" || audioPath == "" {
		return nil
	}

	err := os.Remove(c.filePath(draftsCacheName, generateKey(audioPath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListDrafts returns every readable draft, most recently updated first.
func (c *DiskCache) ListDrafts() ([]*Draft, error) {
	if c.basePath == "" {
		return nil, nil
	}

	var drafts []*Draft
	err := c.eachFile(draftsCacheName, func(path string) {
		var draft Draft
		if readGob(path, &draft) == nil && draft.Version == cacheVersion {
			drafts = append(drafts, &draft)
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt > drafts[j].UpdatedAt
	})
	return drafts, nil
}

// ClearDrafts removes all drafts and returns how many there were.
func (c *DiskCache) ClearDrafts() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	removed := 0
	err := c.eachFile(draftsCacheName, func(path string) {
		if os.Remove(path) == nil {
			removed++
		}
	})
	return removed, err
}

// Clear drops every cached lrclib answer. Drafts are kept.
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*LyricEntry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return c.eachFile(lyricsCacheName, func(path string) {
		_ = os.Remove(path)
	})
}

// Prune removes expired or unreadable lrclib answers.
func (c *DiskCache) Prune() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	pruned := 0
	now := time.Now().Unix()

	err := c.eachFile(lyricsCacheName, func(path string) {
		var entry LyricEntry
		if err := readGob(path, &entry); err != nil || entry.ExpiresAt <= now {
			_ = os.Remove(path)
			pruned++
		}
	})
	return pruned, err
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		return 0, 0, nil
	}

	err = c.eachFile(lyricsCacheName, func(path string) {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return
		}
		count++
		sizeBytes += info.Size()
	})
	return count, sizeBytes, err
}

func (c *DiskCache) eachFile(dir string, fn func(path string)) error {
	entries, err := os.ReadDir(filepath.Join(c.basePath, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}
		fn(filepath.Join(c.basePath, dir, entry.Name()))
	}
	return nil
}

func readGob(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCacheMiss
		}
		return err
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return ErrCacheCorrupt
	}
	return nil
}

func writeGob(path string, v interface{}) error {
	// write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}
