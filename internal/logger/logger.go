package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes leveled messages to the console and, optionally, a log file.
// While the editor owns the terminal it runs quiet and only the file sink is used.
type Logger struct {
	Verbose   bool
	writer    io.Writer
	errWriter io.Writer
	mu        sync.Mutex
	fileLog   *os.File
	quiet     bool
}

// New creates a logger writing to stdout and stderr.
func New(verbose bool) *Logger {
	return &Logger{
		Verbose:   verbose,
		writer:    os.Stdout,
		errWriter: os.Stderr,
	}
}

// Discard returns a logger that drops everything. Handy for tests.
func Discard() *Logger {
	return &Logger{
		writer:    io.Discard,
		errWriter: io.Discard,
	}
}

// SetFileLog enables appending to the file at path, creating parent directories.
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.fileLog != nil {
		l.fileLog.Close()
	}
	l.fileLog = f
	return nil
}

// SetQuiet stops console output, e.g. while the TUI is on screen.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Debug logs to the console only in verbose mode; the file always gets it.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log("DEBUG", format, args...)
	} else {
		l.logToFile("DEBUG", format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf("[ERROR] "+format+"\n", args...)
	if !l.quiet {
		fmt.Fprint(l.errWriter, msg)
	}
	l.writeFile(msg)
}

func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var msg string
	if level == "INFO" {
		msg = fmt.Sprintf(format+"\n", args...)
	} else {
		msg = fmt.Sprintf("["+level+"] "+format+"\n", args...)
	}

	if !l.quiet {
		fmt.Fprint(l.writer, msg)
	}
	l.writeFile(msg)
}

func (l *Logger) logToFile(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		l.writeFile(fmt.Sprintf("["+level+"] "+format+"\n", args...))
	}
}

// writeFile expects l.mu to be held.
func (l *Logger) writeFile(msg string) {
	if l.fileLog == nil {
		return
	}
	l.fileLog.WriteString(time.Now().Format("2006-01-02 15:04:05.000 ") + msg)
}
