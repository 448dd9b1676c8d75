// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Entry is a single log line kept in memory for UI streaming.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

// Config holds logger configuration
type Config struct {
	LogDir     string   `mapstructure:"dir"`         // default: ~/.flamesavatar/logs
	Level      LogLevel `mapstructure:"level"`       // default: debug
	MaxHistory int      `mapstructure:"max_history"` // default: 1000
	Console    bool     `mapstructure:"console"`     // default: true
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogDir:     filepath.Join(home, ".flamesavatar", "logs"),
		Level:      LevelDebug,
		MaxHistory: 1000,
		Console:    true,
	}
}

// Logger wraps zerolog with file output and a bounded in-memory history.
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string

	mu      sync.RWMutex
	history []Entry
	maxHist int
	onLog   func(Entry)
}

// New creates a Logger writing to a date-named file and optionally the
// console.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.LogDir, fmt.Sprintf("flamesavatar_%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{file}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	level := zerolog.DebugLevel
	switch cfg.Level {
	case LevelInfo:
		level = zerolog.InfoLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	zlog := zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Str("app", "flamesavatar").
		Logger()

	l := &Logger{
		zlog:    zlog,
		file:    file,
		logPath: logPath,
		history: make([]Entry, 0, cfg.MaxHistory),
		maxHist: cfg.MaxHistory,
	}

	l.zlog.Info().Str("logFile", logPath).Str("level", string(cfg.Level)).Msg("logger initialized")
	return l, nil
}

// Component returns a child logger with the component field set.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// SetOnLog sets a callback for real-time log streaming.
func (l *Logger) SetOnLog(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLog = fn
}

// Record adds an entry to the in-memory history and notifies the stream
// callback. Components call this for lines the UI should surface.
func (l *Logger) Record(level LogLevel, component, msg string) {
	entry := Entry{
		Timestamp: time.Now().Format("15:04:05.000"),
		Level:     string(level),
		Component: component,
		Message:   msg,
	}

	l.mu.Lock()
	l.history = append(l.history, entry)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
	onLog := l.onLog
	l.mu.Unlock()

	if onLog != nil {
		go onLog(entry)
	}
}

// History returns up to limit of the most recent entries.
func (l *Logger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	out := make([]Entry, limit)
	copy(out, l.history[len(l.history)-limit:])
	return out
}

// Path returns the current log file path.
func (l *Logger) Path() string {
	return l.logPath
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.zlog.Info().Msg("logger shutting down")
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
