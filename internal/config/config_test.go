package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			modify: func(c *Config) {},
		},
		{
			name:    "empty service",
			modify:  func(c *Config) { c.MprisService = "" },
			wantErr: true,
		},
		{
			name:    "service without mpris prefix",
			modify:  func(c *Config) { c.MprisService = "vlc" },
			wantErr: true,
		},
		{
			name:    "lrclib url without scheme",
			modify:  func(c *Config) { c.LrclibURL = "lrclib.net/api/get" },
			wantErr: true,
		},
		{
			name:   "minimum sample interval",
			modify: func(c *Config) { c.SampleIntervalMs = MinSampleIntervalMs },
		},
		{
			name:    "sample interval too small",
			modify:  func(c *Config) { c.SampleIntervalMs = 5 },
			wantErr: true,
		},
		{
			name:   "zero debounce",
			modify: func(c *Config) { c.SeekDebounceMs = 0 },
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.SeekDebounceMs = -1 },
			wantErr: true,
		},
		{
			name:    "volume above 100",
			modify:  func(c *Config) { c.Volume = 101 },
			wantErr: true,
		},
		{
			name:    "negative volume",
			modify:  func(c *Config) { c.Volume = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `mpris_service: org.mpris.MediaPlayer2.mpv
sample_interval_ms: 50
immediate_seek: true
prefer_forward: false
log_file: ~/logs/lyricsync.log
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	if cfg.MprisService != "org.mpris.MediaPlayer2.mpv" {
		t.Errorf("MprisService = %q", cfg.MprisService)
	}
	if cfg.SampleInterval() != 50*time.Millisecond {
		t.Errorf("SampleInterval() = %v", cfg.SampleInterval())
	}
	if !cfg.ImmediateSeek || cfg.PreferForward {
		t.Errorf("ImmediateSeek = %v, PreferForward = %v", cfg.ImmediateSeek, cfg.PreferForward)
	}
	if cfg.SeekDebounceMs != DefaultSeekDebounceMs {
		t.Errorf("SeekDebounceMs = %d, want default", cfg.SeekDebounceMs)
	}
	if cfg.LogFile != filepath.Join(homeDir(), "logs", "lyricsync.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.SampleIntervalMs != DefaultSampleIntervalMs || !cfg.PreferForward {
		t.Errorf("missing file should give defaults, got %+v", cfg)
	}
}

func TestLoadConfigFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("volume: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mpris_service: org.mpris.MediaPlayer2.mpv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MPRIS_SERVICE", "org.mpris.MediaPlayer2.vlc")
	t.Setenv("LYRICSYNC_SEEK_DEBOUNCE_MS", "300")
	t.Setenv("LYRICSYNC_IMMEDIATE_SEEK", "yes")
	t.Setenv("LYRICSYNC_LIVE_ADDR", "127.0.0.1:7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MprisService != "org.mpris.MediaPlayer2.vlc" {
		t.Errorf("MprisService = %q", cfg.MprisService)
	}
	if cfg.SeekDebounce() != 300*time.Millisecond {
		t.Errorf("SeekDebounce() = %v", cfg.SeekDebounce())
	}
	if !cfg.ImmediateSeek {
		t.Error("ImmediateSeek not set from env")
	}
	if cfg.LiveAddr != "127.0.0.1:7000" {
		t.Errorf("LiveAddr = %q", cfg.LiveAddr)
	}
}

func TestExpandHome(t *testing.T) {
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome(abs) = %q", got)
	}
	if got := ExpandHome("~/x"); got != filepath.Join(homeDir(), "x") {
		t.Errorf("ExpandHome(~/x) = %q", got)
	}
}
