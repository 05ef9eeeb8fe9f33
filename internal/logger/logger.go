package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu          sync.RWMutex
	debugLogger *slog.Logger

	DebugEnabled = false

	logFile *os.File
)

// InitLogging sets up logging based on configuration.
// Nothing is logged unless debug mode is on and a log path is given.
func InitLogging(debugMode bool, logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	DebugEnabled = debugMode

	if DebugEnabled && logPath != "" {
		logDir := filepath.Dir(logPath)
		err := os.MkdirAll(logDir, 0o755)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		logFile = f
		debugLogger = newLogger(f)
	}

	return nil
}

// InitWriter routes debug logs to w. Used by tests and by callers that own their sink.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	DebugEnabled = true
	debugLogger = newLogger(w)
}

// Close closes the log file if open.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	debugLogger = nil
	DebugEnabled = false
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !DebugEnabled {
		return nil
	}

	return debugLogger
}

func Infof(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Info(fmt.Sprintf(format, v...))
	}
}

// Errorf logs an error message to the file if debug mode is enabled.
func Errorf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Error(fmt.Sprintf(format, v...))
	}
}

func Debugf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Debug(fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Warn(fmt.Sprintf(format, v...))
	}
}

// LeveledLogger satisfies retryablehttp.LeveledLogger.
type LeveledLogger struct{}

// Leveled returns a key/value logger backed by the debug log.
func Leveled() LeveledLogger {
	return LeveledLogger{}
}

func (LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	if l := current(); l != nil {
		l.Error(msg, keysAndValues...)
	}
}

func (LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	if l := current(); l != nil {
		l.Info(msg, keysAndValues...)
	}
}

func (LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l := current(); l != nil {
		l.Debug(msg, keysAndValues...)
	}
}

func (LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	if l := current(); l != nil {
		l.Warn(msg, keysAndValues...)
	}
}
