package models

import (
	"log/slog"
	"time"
)

// LogLevel is the level name shared with the UI and the automation engine.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
	LogLevelFatal   LogLevel = "FATAL"
)

// SlogLevel maps the level onto the process logger. FATAL has no slog
// equivalent and is treated as one step above ERROR.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelFatal:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// LogMessage is a log line broadcast to the UI. It is never persisted.
type LogMessage struct {
	Level        LogLevel `json:"level"`
	Message      string   `json:"message"`
	Timestamp    string   `json:"timestamp"`
	ProfileIndex *uint8   `json:"profile_index"`
}

// NewLogMessage creates a log message stamped with the current UTC time.
func NewLogMessage(level LogLevel, message string) LogMessage {
	return newLogMessageAt(level, message, time.Now())
}

func newLogMessageAt(level LogLevel, message string, now time.Time) LogMessage {
	return LogMessage{
		Level:     level,
		Message:   message,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// WithProfileIndex returns a copy of the message scoped to a profile.
func (m LogMessage) WithProfileIndex(index uint8) LogMessage {
	m.ProfileIndex = &index
	return m
}
