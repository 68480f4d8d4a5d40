package arr

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger implements the Logger interface on top of logrus
type StandardLogger struct {
	entry *logrus.Entry
}

// NewStandardLogger creates a new StandardLogger writing to stdout
func NewStandardLogger(levelStr string) Logger {
	return NewLoggerWithOutput(levelStr, os.Stdout)
}

// NewLoggerWithOutput creates a StandardLogger writing to w
func NewLoggerWithOutput(levelStr string, w io.Writer) Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(parseLogLevel(levelStr))

	return &StandardLogger{entry: logrus.NewEntry(logger)}
}

// WithField returns a logger that attaches key=value to every line
func (l *StandardLogger) WithField(key string, value interface{}) Logger {
	return &StandardLogger{entry: l.entry.WithField(key, value)}
}

// withField attaches key=value to every line when the logger supports fields
func withField(logger Logger, key string, value interface{}) Logger {
	if l, ok := logger.(interface {
		WithField(key string, value interface{}) Logger
	}); ok {
		return l.WithField(key, value)
	}
	return logger
}

// Debug logs a debug message
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	l.log(logrus.DebugLevel, msg, args...)
}

// Info logs an info message
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	l.log(logrus.InfoLevel, msg, args...)
}

// Warn logs a warning message
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	l.log(logrus.WarnLevel, msg, args...)
}

// Error logs an error message
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	l.log(logrus.ErrorLevel, msg, args...)
}

func (l *StandardLogger) log(level logrus.Level, msg string, args ...interface{}) {
	if len(args) > 0 {
		l.entry.Logf(level, msg, args...)
		return
	}
	l.entry.Log(level, msg)
}

// parseLogLevel parses a log level string into a logrus level
func parseLogLevel(levelStr string) logrus.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
