package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

type Logger struct {
	mu            sync.Mutex
	out           *log.Logger
	stdout        io.Writer
	level         Level
	includeStdout bool
	prefix        string
}

// New appends to the log file at filePath.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return NewWithWriter(f, level, includeStdout), nil
}

// NewWithWriter logs into w instead of a file.
func NewWithWriter(w io.Writer, level Level, includeStdout bool) *Logger {
	return &Logger{
		out:           log.New(w, "", 0),
		stdout:        os.Stdout,
		level:         level,
		includeStdout: includeStdout,
	}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return NewWithWriter(io.Discard, LevelFatal+1, false)
}

// With returns a logger that prefixes every line with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		out:           l.out,
		stdout:        l.stdout,
		level:         l.level,
		includeStdout: l.includeStdout,
		prefix:        component,
	}
}

func (l *Logger) log(lvl Level, tag string, format string, v ...any) {
	if lvl < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		msg = l.prefix + ": " + msg
	}
	fullMsg := fmt.Sprintf("%s [%s] %s", timestamp, tag, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.out.Println(fullMsg)

	// Debug stays in the file only
	if l.includeStdout && lvl >= LevelInfo {
		fmt.Fprintln(l.stdout, fullMsg)
	}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, "DEBUG", f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, "INFO", f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, "WARN", f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, "ERROR", f, v...) }
func (l *Logger) Fatal(f string, v ...any) { l.log(LevelFatal, "FATAL", f, v...); os.Exit(1) }

// Write lets the logger stand in for an io.Writer (echo, telegram-bot-api).
func (l *Logger) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

// Printf and Println satisfy the telegram-bot-api BotLogger interface.
func (l *Logger) Printf(format string, v ...any) { l.Debug(format, v...) }
func (l *Logger) Println(v ...any)               { l.Debug("%s", strings.TrimSpace(fmt.Sprintln(v...))) }
