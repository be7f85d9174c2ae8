package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// DebugLevel for debug messages
	DebugLevel LogLevel = "debug"
	// InfoLevel for informational messages
	InfoLevel LogLevel = "info"
	// WarnLevel for warning messages
	WarnLevel LogLevel = "warn"
	// ErrorLevel for error messages
	ErrorLevel LogLevel = "error"
)

var logLevelPriority = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs logs as JSON
	JSONFormat Format = "json"
	// HumanFormat outputs logs in human-readable format
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // Optional, defaults to stderr
}

// Entry is one collected log record. Warn and error entries surface as the
// Errors output table; they are never raised as exceptions to callers.
type Entry struct {
	Level     LogLevel
	Message   string
	Context   string
	Timestamp string
}

// Logger provides structured logging plus an in-memory collector for the
// warn/error entries that feed the Errors table.
type Logger struct {
	config Config
	writer io.Writer

	mu      sync.Mutex
	entries []Entry
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{
		config: config,
		writer: writer,
	}
}

// NewDiscardLogger creates a logger that writes nowhere but still collects
// entries. Used by tests and library callers.
func NewDiscardLogger() *Logger {
	return NewLogger(Config{Format: HumanFormat, Level: ErrorLevel, Output: io.Discard})
}

type logLine struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return logLevelPriority[level] >= logLevelPriority[l.config.Level]
}

func (l *Logger) log(level LogLevel, message string, fields map[string]any) {
	ts := time.Now().UTC().Format(time.RFC3339)

	if level == WarnLevel || level == ErrorLevel {
		l.mu.Lock()
		l.entries = append(l.entries, Entry{
			Level:     level,
			Message:   message,
			Context:   formatContext(fields),
			Timestamp: ts,
		})
		l.mu.Unlock()
	}

	if !l.shouldLog(level) {
		return
	}

	line := logLine{Timestamp: ts, Level: string(level), Message: message, Fields: fields}
	if l.config.Format == JSONFormat {
		data, err := json.Marshal(line)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
			return
		}
		_, _ = fmt.Fprintln(l.writer, string(data))
		return
	}

	_, _ = fmt.Fprintf(l.writer, "%s [%s] %s", line.Timestamp, line.Level, line.Message)
	if ctx := formatContext(fields); ctx != "" {
		_, _ = fmt.Fprintf(l.writer, " | %s", ctx)
	}
	_, _ = fmt.Fprintln(l.writer)
}

// formatContext renders fields deterministically as k=v pairs sorted by key.
func formatContext(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]any) {
	l.log(DebugLevel, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]any) {
	l.log(InfoLevel, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]any) {
	l.log(WarnLevel, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]any) {
	l.log(ErrorLevel, message, fields)
}

// Entries returns a snapshot of all collected warn/error entries in the
// order they were recorded.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
