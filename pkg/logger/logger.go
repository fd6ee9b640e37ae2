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

// Leveled process-wide logger for the intake service. Lines look like
//
//	2026-01-02T15:04:05Z [INFO] submission accepted id=... ip=...
//
// Call Init once at startup; SetOutput is for tests.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu     sync.RWMutex
	logger = log.New(os.Stdout, "", 0)
	level  = LevelInfo
)

// Init sets the global level from text (debug, info, warn|warning, error, fatal).
// Anything else falls back to info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// ParseLevel maps a level name to a Level, defaulting to LevelInfo.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// SetOutput redirects log output and returns a func restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := logger
	logger = log.New(w, "", 0)
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

func enabled(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func emit(l Level, msg string) {
	mu.RLock()
	out := logger
	mu.RUnlock()
	out.Printf("%s [%s] %s", time.Now().UTC().Format(time.RFC3339), strings.ToUpper(levelNames[l]), msg)
}

func logf(l Level, format string, v ...interface{}) {
	if !enabled(l) {
		return
	}
	emit(l, fmt.Sprintf(format, v...))
}

// fields renders alternating key/value pairs as "k=v" tokens. A dangling key
// is printed with an empty value.
func fields(msg string, kv []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprint(&b, kv[i])
		b.WriteByte('=')
		if i+1 < len(kv) {
			fmt.Fprint(&b, kv[i+1])
		}
	}
	return b.String()
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

// Fatalf always logs and exits the process.
func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Infow logs msg followed by key=value pairs.
func Infow(msg string, kv ...interface{}) {
	if enabled(LevelInfo) {
		emit(LevelInfo, fields(msg, kv))
	}
}

// Warnw logs msg followed by key=value pairs.
func Warnw(msg string, kv ...interface{}) {
	if enabled(LevelWarn) {
		emit(LevelWarn, fields(msg, kv))
	}
}

// Debugw logs msg followed by key=value pairs.
func Debugw(msg string, kv ...interface{}) {
	if enabled(LevelDebug) {
		emit(LevelDebug, fields(msg, kv))
	}
}

func Info(v string) { Infof("%s", v) }
func Warn(v string) { Warnf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return levelNames[level]
}

// MaskDigits keeps only the last four characters of an identifier visible.
func MaskDigits(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
