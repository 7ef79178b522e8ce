package logx

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// Level controls which messages are emitted
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel atomic.Int32
	std          = log.New(os.Stderr, "", log.LstdFlags)
)

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level that gets logged
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

func enabled(l Level) bool {
	return int32(l) >= currentLevel.Load()
}

func output(l Level, tag, msg string) {
	if !enabled(l) {
		return
	}
	std.Printf("%s %s", tag, msg)
}

func Debug(args ...any) { output(LevelDebug, "DEBUG", fmt.Sprint(args...)) }

func Debugf(format string, args ...any) { output(LevelDebug, "DEBUG", fmt.Sprintf(format, args...)) }

func Info(args ...any) { output(LevelInfo, "INFO", fmt.Sprint(args...)) }

func Infof(format string, args ...any) { output(LevelInfo, "INFO", fmt.Sprintf(format, args...)) }

func Warn(args ...any) { output(LevelWarn, "WARN", fmt.Sprint(args...)) }

func Warnf(format string, args ...any) { output(LevelWarn, "WARN", fmt.Sprintf(format, args...)) }

func Error(args ...any) { output(LevelError, "ERROR", fmt.Sprint(args...)) }

func Errorf(format string, args ...any) { output(LevelError, "ERROR", fmt.Sprintf(format, args...)) }

// Fatalf logs at error level and exits
func Fatalf(format string, args ...any) {
	std.Printf("FATAL %s", fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Fatal logs at error level and exits
func Fatal(args ...any) {
	std.Printf("FATAL %s", fmt.Sprint(args...))
	os.Exit(1)
}

// Fields carries structured context for a log entry
type Fields map[string]any

// Entry is a logger with attached fields
type Entry struct {
	fields Fields
}

// WithFields returns an entry that prefixes messages with the given fields
func WithFields(fields Fields) *Entry {
	return &Entry{fields: fields}
}

func (e *Entry) render() string {
	if len(e.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.fields[k]))
	}
	return "[" + strings.Join(parts, " ") + "] "
}

func (e *Entry) Debug(args ...any) {
	output(LevelDebug, "DEBUG", e.render()+fmt.Sprint(args...))
}

func (e *Entry) Info(args ...any) {
	output(LevelInfo, "INFO", e.render()+fmt.Sprint(args...))
}

func (e *Entry) Warn(args ...any) {
	output(LevelWarn, "WARN", e.render()+fmt.Sprint(args...))
}

func (e *Entry) Error(args ...any) {
	output(LevelError, "ERROR", e.render()+fmt.Sprint(args...))
}

func (e *Entry) Debugf(format string, args ...any) {
	output(LevelDebug, "DEBUG", e.render()+fmt.Sprintf(format, args...))
}

func (e *Entry) Infof(format string, args ...any) {
	output(LevelInfo, "INFO", e.render()+fmt.Sprintf(format, args...))
}

func (e *Entry) Warnf(format string, args ...any) {
	output(LevelWarn, "WARN", e.render()+fmt.Sprintf(format, args...))
}

func (e *Entry) Errorf(format string, args ...any) {
	output(LevelError, "ERROR", e.render()+fmt.Sprintf(format, args...))
}
