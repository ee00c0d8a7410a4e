// Package logging provides the structured JSON logger used across the
// service. JSON output is enabled in production; development gets a
// plain key=value format.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes structured log entries to a single output.
type Logger struct {
	output   io.Writer
	minLevel Level
	json     bool
}

// entry is the wire form of one log line in JSON mode.
type entry struct {
	Level   Level          `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
	Error   string         `json:"error,omitempty"`
	Caller  string         `json:"caller,omitempty"`
}

// New creates a logger writing to stdout.
func New(minLevel Level, jsonFormat bool) *Logger {
	return &Logger{output: os.Stdout, minLevel: minLevel, json: jsonFormat}
}

// NewWithOutput creates a logger writing to w; used by tests.
func NewWithOutput(w io.Writer, minLevel Level, jsonFormat bool) *Logger {
	return &Logger{output: w, minLevel: minLevel, json: jsonFormat}
}

func (l *Logger) shouldLog(level Level) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

// caller returns the file:line of the logging call site.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			file = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (l *Logger) log(level Level, msg string, fields map[string]any, err error) {
	if !l.shouldLog(level) {
		return
	}

	e := entry{
		Level:   level,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: msg,
		Fields:  fields,
		Caller:  caller(3),
	}
	if err != nil {
		e.Error = err.Error()
	}

	if l.json {
		data, _ := json.Marshal(e)
		fmt.Fprintln(l.output, string(data))
		return
	}

	fmt.Fprintf(l.output, "[%s] %s %s", e.Level, e.Time, e.Message)
	for k, v := range e.Fields {
		fmt.Fprintf(l.output, " %s=%v", k, v)
	}
	if e.Error != "" {
		fmt.Fprintf(l.output, " error=%s", e.Error)
	}
	fmt.Fprintln(l.output)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, msg, fields, nil)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, msg, fields, nil)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(LevelWarn, msg, fields, nil)
}

// Error logs an error message with the causing error attached.
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.log(LevelError, msg, fields, err)
}
