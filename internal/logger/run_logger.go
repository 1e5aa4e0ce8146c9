// Package logger writes per-run log files so batch sessions leave an audit
// trail alongside their reports.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel tags log entries by kind.
type LogLevel string

const (
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelResult LogLevel = "RESULT"
)

// RunLogger writes one log file per sandbox run, named by strategy,
// timeframe and date.
type RunLogger struct {
	strategy  string
	timeframe string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
}

// NewRunLogger creates the logs directory when missing and opens the
// session file for appending.
func NewRunLogger(logDir, strategy, timeframe string) (*RunLogger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.log", strategy, timeframe, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(logDir, filename)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &RunLogger{
		strategy:  strategy,
		timeframe: timeframe,
		logFile:   file,
		logger:    log.New(file, "", 0),
	}
	l.writeSessionHeader()
	return l, nil
}

func (l *RunLogger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf(`
%s
🧪 SANDBOX SESSION STARTED
%s
Strategy: %s | Timeframe: %s
Started: %s
%s`,
		strings.Repeat("=", 80), strings.Repeat("=", 80),
		l.strategy, l.timeframe,
		time.Now().Format("2006-01-02 15:04:05"),
		strings.Repeat("=", 80))
}

// Log writes one timestamped, level-tagged entry.
func (l *RunLogger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s", timestamp, level, message)
}

func (l *RunLogger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

func (l *RunLogger) Warn(format string, args ...interface{}) {
	l.Log(LogLevelWarn, format, args...)
}

func (l *RunLogger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Result records a run outcome line, e.g. final equity and key ratios.
func (l *RunLogger) Result(format string, args ...interface{}) {
	l.Log(LogLevelResult, format, args...)
}

// Close flushes the session footer and releases the file.
func (l *RunLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf("[%s] [%s] session closed", time.Now().Format("2006-01-02 15:04:05"), LogLevelInfo)
	return l.logFile.Close()
}
