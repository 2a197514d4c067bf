package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Fields carries structured key-value context for a log entry.
type Fields map[string]interface{}

// Level names used in the emitted JSON.
const (
	levelDebug = "DEBUG"
	levelInfo  = "INFO"
	levelError = "ERROR"
	levelFatal = "FATAL"
)

// Logger writes one JSON object per entry to stderr.
type Logger struct {
	service string
	debug   bool
}

// New creates a logger tagged with the owning service/component name.
func New(service string) *Logger {
	return &Logger{
		service: service,
		debug:   os.Getenv("LOG_DEBUG") != "",
	}
}

func (l *Logger) emit(level, msg string, fields Fields) {
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"service":   l.service,
		"message":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("{\"service\":%q,\"level\":\"ERROR\",\"message\":\"log marshal failed: %s\"}", l.service, err.Error())
		return
	}
	log.Print(string(data))
}

func (l *Logger) Debug(msg string, fields Fields) {
	if !l.debug {
		return
	}
	l.emit(levelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields Fields) {
	l.emit(levelInfo, msg, fields)
}

func (l *Logger) Error(msg string, fields Fields) {
	l.emit(levelError, msg, fields)
}

func (l *Logger) Fatal(msg string, fields Fields) {
	l.emit(levelFatal, msg, fields)
	os.Exit(1)
}

// Infof is a printf-style helper for call sites that carry no structured
// context.
func Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
