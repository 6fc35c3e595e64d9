package logger

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Output formats accepted by Config.Format.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatColor = "color"
)

// Config describes the application logger.
type Config struct {
	Level  string     // debug, info, warn, error (default info)
	Format string     // text, json, color (default text)
	File   FileConfig // optional rotating destinations
}

// FileConfig describes rotating log files.
// Path is the application log. Dir/StdoutPath/StderrPath describe child
// process streams: if StdoutPath/StderrPath are empty and Dir is set, files
// are Dir/<name>.stdout.log and Dir/<name>.stderr.log.
// Rotation parameters follow lumberjack semantics.
type FileConfig struct {
	Path       string // application log file
	Dir        string // base directory for child process logs
	StdoutPath string // explicit stdout path overrides Dir
	StderrPath string // explicit stderr path overrides Dir
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // Gzip rotated files
}

// ProcessWriters returns io.WriteClosers for stdout and stderr of the named
// child process. Either may be nil when not configured.
func (c FileConfig) ProcessWriters(name string) (io.WriteCloser, io.WriteCloser, error) {
	stdout := c.StdoutPath
	stderr := c.StderrPath
	if stdout == "" && c.Dir != "" {
		stdout = filepath.Join(c.Dir, fmt.Sprintf("%s.stdout.log", name))
	}
	if stderr == "" && c.Dir != "" {
		stderr = filepath.Join(c.Dir, fmt.Sprintf("%s.stderr.log", name))
	}
	var outW io.WriteCloser
	var errW io.WriteCloser
	if stdout != "" {
		outW = c.rotating(stdout)
	}
	if stderr != "" {
		errW = c.rotating(stderr)
	}
	return outW, errW, nil
}

// ProcessWriters is a shorthand for c.File.ProcessWriters.
func (c Config) ProcessWriters(name string) (io.WriteCloser, io.WriteCloser, error) {
	return c.File.ProcessWriters(name)
}

func (c FileConfig) rotating(path string) *lj.Logger {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger writing to w and, when File.Path is set, to a rotating
// file. The returned closer releases the file; it is never nil.
func New(c Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	var closer io.Closer = nopCloser{}
	if c.File.Path != "" {
		f := c.File.rotating(c.File.Path)
		closer = f
		if w == nil {
			w = f
		} else {
			w = io.MultiWriter(w, f)
		}
	}
	if w == nil {
		w = io.Discard
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(c.Format) {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatColor:
		h = NewColorTextHandler(w, opts, true)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
