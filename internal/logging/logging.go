// Package logging wraps charmbracelet/log with the conventions aistack uses
// everywhere: warnings and errors on stderr by default, verbose output to a
// local aistack.log file when DEBUG is set.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// LogFileName is the file written in the working directory in debug mode.
const LogFileName = "aistack.log"

type AppLogger struct {
	logger *log.Logger
	debug  bool
}

var (
	defaultLogger *AppLogger
	mu            sync.Mutex
)

// GetDefault returns the process wide logger, creating it on first use.
func GetDefault() *AppLogger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewAppLogger()
	}
	return defaultLogger
}

// SetDefault replaces the process wide logger. The CLI calls it once flags are parsed.
func SetDefault(l *AppLogger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func Info(msg string, keyvals ...interface{}) {
	GetDefault().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	GetDefault().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	GetDefault().Error(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	GetDefault().Debug(msg, keyvals...)
}

func LogMessage(msg tea.Msg) {
	GetDefault().LogMessage(msg)
}

func LogPerformance(operation string, start time.Time) {
	GetDefault().LogPerformance(operation, start)
}

// NewAppLogger builds a logger from the environment. DEBUG enables debug mode.
func NewAppLogger() *AppLogger {
	return New(os.Getenv("DEBUG") != "")
}

// New builds a logger. In debug mode records go to aistack.log in the
// working directory, truncated on each run; otherwise warnings and errors go
// to stderr. Stdout is never used so the MCP server keeps it for the protocol.
func New(debug bool) *AppLogger {
	if !debug {
		return NewWithWriter(os.Stderr, false)
	}

	var out io.Writer = os.Stderr
	var logPath string
	if cwd, err := os.Getwd(); err == nil {
		logPath = filepath.Join(cwd, LogFileName)
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err == nil {
			out = f
		} else {
			logPath = ""
		}
	}

	al := NewWithWriter(out, true)
	if logPath != "" {
		al.logger.Info("Debug logging enabled", "log_file", logPath)
	}
	return al
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, debug bool) *AppLogger {
	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "aistack",
	}
	if debug {
		opts.ReportCaller = true
		opts.TimeFormat = time.Kitchen
	}

	logger := log.NewWithOptions(w, opts)
	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	return &AppLogger{logger: logger, debug: debug}
}

// IsDebug reports whether debug records are emitted.
func (al *AppLogger) IsDebug() bool {
	return al.debug
}

func (al *AppLogger) Info(msg string, keyvals ...interface{}) {
	al.logger.Info(msg, keyvals...)
}

func (al *AppLogger) Warn(msg string, keyvals ...interface{}) {
	al.logger.Warn(msg, keyvals...)
}

func (al *AppLogger) Error(msg string, keyvals ...interface{}) {
	al.logger.Error(msg, keyvals...)
}

func (al *AppLogger) Debug(msg string, keyvals ...interface{}) {
	if al.debug {
		al.logger.Debug(msg, keyvals...)
	}
}

// With returns a child logger that adds keyvals to every record.
func (al *AppLogger) With(keyvals ...interface{}) *AppLogger {
	return &AppLogger{logger: al.logger.With(keyvals...), debug: al.debug}
}

// LogMessage records a bubbletea message (debug only).
func (al *AppLogger) LogMessage(msg tea.Msg) {
	if !al.debug {
		return
	}

	al.logger.Debug("Message received",
		"type", fmt.Sprintf("%T", msg),
		"content", fmt.Sprintf("%+v", msg),
	)
}

func (al *AppLogger) DebugObject(name string, obj interface{}) {
	if al.debug {
		al.logger.Debug("Object dump", "name", name, "object", fmt.Sprintf("%+v", obj))
	}
}

func (al *AppLogger) LogPerformance(operation string, start time.Time) {
	if al.debug {
		al.logger.Debug("Performance",
			"operation", operation,
			"duration", time.Since(start),
		)
	}
}

// LogStateTransition records wizard state changes.
func (al *AppLogger) LogStateTransition(component, from, to string) {
	if al.debug {
		al.logger.Debug("State transition",
			"component", component,
			"from", from,
			"to", to,
		)
	}
}

func (al *AppLogger) LogUserAction(action, context string) {
	if al.debug {
		al.logger.Debug("User action",
			"action", action,
			"context", context,
		)
	}
}

// NewTestLogger creates a debug logger that writes to a buffer.
func NewTestLogger() (*AppLogger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
		Prefix:          "Test",
	})
	logger.SetLevel(log.DebugLevel)

	return &AppLogger{
		logger: logger,
		debug:  true,
	}, &buf
}
