package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.Nop()
	debug  bool
)

// Init configures logging. Format "console" writes human readable lines to
// stderr, anything else writes JSONL into <baseDir>/log/app.log.
func Init(baseDir, format string) error {
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	}
	logDir := filepath.Join(baseDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	SetOutput(f)
	return nil
}

// SetOutput switches the sink, keeping the ts/level/msg field names.
func SetOutput(w io.Writer) {
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "msg"
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.999999999Z07:00"

	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Logger()
}

func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

func Debug(msg string, fields map[string]any) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	write(zerolog.DebugLevel, msg, fields)
}

func Info(msg string, fields map[string]any) {
	write(zerolog.InfoLevel, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	write(zerolog.WarnLevel, msg, fields)
}

func Error(msg string, fields map[string]any) {
	write(zerolog.ErrorLevel, msg, fields)
}

func write(level zerolog.Level, msg string, fields map[string]any) {
	mu.Lock()
	l := logger
	mu.Unlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}
