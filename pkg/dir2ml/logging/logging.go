// Package logging provides component loggers for dir2ml built on
// charmbracelet/log.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info", ConsoleLevel: "warn"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("scanner")
//	logger.Info("run started", "root", "/srv/files")
//
// Loggers obtained before Init discard their output, so library packages
// can hold a package-level logger unconditionally.
package logging

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a charmbracelet/log level.
type Level = log.Level

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(s)); name {
	case "debug", "info", "warn", "error":
		return log.ParseLevel(name)
	case "warning":
		return LevelWarn, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level. Empty means info.
	Level string

	// Path is the log file. Empty disables file logging.
	Path string

	// MaxSize is the size in bytes that triggers rotation; zero uses
	// DefaultMaxSize. MaxBackups is the number of rotated files kept.
	MaxSize    int64
	MaxBackups int

	// Components maps component names to file level overrides.
	Components map[string]string

	// ConsoleLevel enables console output at the given level. Empty
	// disables it.
	ConsoleLevel string

	// Console overrides the console writer. Nil means os.Stderr.
	Console io.Writer
}

// Logger is a component logger. Each record goes to every sink whose level
// admits it.
type Logger struct {
	component string
	sinks     []*log.Logger
}

func (l *Logger) emit(level Level, msg string, args []any) {
	for _, s := range l.sinks {
		s.Log(level, msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(LevelError, msg, args) }

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	nl := &Logger{component: l.component, sinks: make([]*log.Logger, len(l.sinks))}
	for i, s := range l.sinks {
		nl.sinks[i] = s.With(args...)
	}
	return nl
}

// registry owns the configured sinks. Loggers live in package variables
// across the program, so reconfiguring rewrites them in place.
type registry struct {
	mu         sync.Mutex
	file       *RotatingWriter
	fileLevel  Level
	components map[string]Level
	console    io.Writer
	consoleLvl Level
	hasConsole bool
	loggers    map[string]*Logger
}

var reg = &registry{loggers: make(map[string]*Logger)}

// Init configures the logging system. Calling it again reconfigures every
// logger handed out so far.
func Init(cfg Config) error {
	fileLevel, err := ParseLevel(cmp.Or(cfg.Level, "info"))
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var consoleLvl Level
	if cfg.ConsoleLevel != "" {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	var file *RotatingWriter
	if cfg.Path != "" {
		if file, err = NewRotatingWriter(cfg.Path, cfg.MaxSize, cfg.MaxBackups); err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var closeErr error
	if reg.file != nil {
		closeErr = reg.file.Close()
	}
	reg.file = file
	reg.fileLevel = fileLevel
	reg.components = components
	reg.hasConsole = cfg.ConsoleLevel != ""
	reg.consoleLvl = consoleLvl
	reg.console = cfg.Console
	if reg.console == nil {
		reg.console = os.Stderr
	}
	reg.rebuild()

	if closeErr != nil {
		return fmt.Errorf("closing previous log file: %w", closeErr)
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if l, ok := reg.loggers[component]; ok {
		return l
	}
	l := &Logger{component: component, sinks: reg.sinks(component)}
	reg.loggers[component] = l
	return l
}

// sinks must be called with mu held.
func (r *registry) sinks(component string) []*log.Logger {
	var out []*log.Logger
	if r.file != nil {
		level := r.fileLevel
		if lvl, ok := r.components[component]; ok {
			level = lvl
		}
		out = append(out, log.NewWithOptions(r.file, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}))
	}
	if r.hasConsole {
		out = append(out, log.NewWithOptions(r.console, log.Options{
			Level:           r.consoleLvl,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		}))
	}
	return out
}

func (r *registry) rebuild() {
	for component, l := range r.loggers {
		l.sinks = r.sinks(component)
	}
}

// Close closes the log file and silences every logger until the next Init.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var err error
	if reg.file != nil {
		if cerr := reg.file.Close(); cerr != nil {
			err = fmt.Errorf("closing log writer: %w", cerr)
		}
		reg.file = nil
	}
	reg.hasConsole = false
	reg.components = nil
	reg.rebuild()
	return err
}

// DefaultLogPath returns $XDG_STATE_HOME/dir2ml/dir2ml.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "dir2ml", "dir2ml.log")
}

