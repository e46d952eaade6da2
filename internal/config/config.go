package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMprisService     = "org.mpris.MediaPlayer2.vlc"
	DefaultLrclibGetURL     = "https://lrclib.net/api/get"
	DefaultSampleIntervalMs = 100
	DefaultSeekDebounceMs   = 150
	DefaultVolume           = 100
	MinSampleIntervalMs     = 10
)

type Config struct {
	MprisService     string `yaml:"mpris_service"`
	LrclibURL        string `yaml:"lrclib_url"`
	SampleIntervalMs int    `yaml:"sample_interval_ms"`
	SeekDebounceMs   int    `yaml:"seek_debounce_ms"`
	ImmediateSeek    bool   `yaml:"immediate_seek"`
	PreferForward    bool   `yaml:"prefer_forward"`
	Volume           int    `yaml:"volume"`
	LiveAddr         string `yaml:"live_addr"`
	LogFile          string `yaml:"log_file"`
	Verbose          bool   `yaml:"verbose"`
	HideHeader       bool   `yaml:"hide_header"`
	NoCache          bool   `yaml:"no_cache"`
}

func DefaultConfig() Config {
	return Config{
		MprisService:     DefaultMprisService,
		LrclibURL:        DefaultLrclibGetURL,
		SampleIntervalMs: DefaultSampleIntervalMs,
		SeekDebounceMs:   DefaultSeekDebounceMs,
		PreferForward:    true,
		Volume:           DefaultVolume,
		LogFile:          GetDefaultLogPath(),
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first one found in the standard locations), then the environment.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return &cfg, nil
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.LogFile = ExpandHome(cfg.LogFile)

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.MprisService = getEnvOrDefault("MPRIS_SERVICE", c.MprisService)
	c.LrclibURL = getEnvOrDefault("LRCLIB_GET_URL", c.LrclibURL)
	c.LiveAddr = getEnvOrDefault("LYRICSYNC_LIVE_ADDR", c.LiveAddr)
	c.LogFile = ExpandHome(getEnvOrDefault("LYRICSYNC_LOG_FILE", c.LogFile))

	if v, err := strconv.Atoi(os.Getenv("LYRICSYNC_SAMPLE_INTERVAL_MS")); err == nil {
		c.SampleIntervalMs = v
	}
	if v, err := strconv.Atoi(os.Getenv("LYRICSYNC_SEEK_DEBOUNCE_MS")); err == nil {
		c.SeekDebounceMs = v
	}
	if v, ok := envBool("LYRICSYNC_IMMEDIATE_SEEK"); ok {
		c.ImmediateSeek = v
	}
	if v, ok := envBool("HIDE_HEADER"); ok {
		c.HideHeader = v
	}
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

func (c *Config) SeekDebounce() time.Duration {
	return time.Duration(c.SeekDebounceMs) * time.Millisecond
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MprisService == "" {
		return fmt.Errorf("mpris_service cannot be empty")
	}
	if !strings.HasPrefix(c.MprisService, "org.mpris.MediaPlayer2.") {
		return fmt.Errorf("mpris_service must start with org.mpris.MediaPlayer2., got %q", c.MprisService)
	}

	if !strings.HasPrefix(c.LrclibURL, "http://") && !strings.HasPrefix(c.LrclibURL, "https://") {
		return fmt.Errorf("lrclib_url must start with http:// or https://")
	}

	if c.SampleIntervalMs < MinSampleIntervalMs {
		return fmt.Errorf("sample_interval_ms must be at least %d, got %d", MinSampleIntervalMs, c.SampleIntervalMs)
	}
	if c.SeekDebounceMs < 0 {
		return fmt.Errorf("seek_debounce_ms cannot be negative, got %d", c.SeekDebounceMs)
	}

	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Volume)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./lyricsync.yaml",
		"./lyricsync.yml",
		filepath.Join(home, ".config", "lyricsync", "config.yaml"),
		filepath.Join(home, ".config", "lyricsync", "config.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// GetDefaultLogPath returns the default log file path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "lyricsync", "lyricsync.log")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}
