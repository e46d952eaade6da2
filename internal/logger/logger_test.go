package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelsAndQuiet(t *testing.T) {
	var out, errOut bytes.Buffer
	l := &Logger{writer: &out, errWriter: &errOut}

	l.Info("hello %d", 1)
	l.Warn("careful")
	l.Debug("hidden")
	l.Error("boom")

	if got := out.String(); got != "hello 1\n[WARN] careful\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "[ERROR] boom\n" {
		t.Errorf("stderr = %q", got)
	}

	out.Reset()
	errOut.Reset()
	l.SetQuiet(true)
	l.Info("silent")
	l.Error("silent")
	if out.Len() != 0 || errOut.Len() != 0 {
		t.Errorf("quiet logger wrote %q / %q", out.String(), errOut.String())
	}
}

func TestFileLogReceivesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lyricsync.log")

	l := Discard()
	if err := l.SetFileLog(path); err != nil {
		t.Fatalf("SetFileLog: %v", err)
	}
	l.SetQuiet(true)
	l.Debug("seek to %d", 1500)
	l.Error("player gone")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[DEBUG] seek to 1500") {
		t.Errorf("log missing debug line: %q", content)
	}
	if !strings.Contains(content, "[ERROR] player gone") {
		t.Errorf("log missing error line: %q", content)
	}
}
