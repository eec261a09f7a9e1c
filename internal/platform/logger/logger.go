// Package logger provides structured logging for the condition server.
// Every condition change made by the engine should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides structured logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger instance.
func NewLogger() *Logger {
	return &Logger{
		infoLogger:  log.New(os.Stdout, "[KAIRO-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(os.Stdout, "[KAIRO-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(os.Stderr, "[KAIRO-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// NewWithWriter sends every level to w. Pass io.Discard for quiet runs.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(w, "[KAIRO-INFO] ", log.Lmsgprefix),
		warnLogger:  log.New(w, "[KAIRO-WARN] ", log.Lmsgprefix),
		errorLogger: log.New(w, "[KAIRO-ERROR] ", log.Lmsgprefix),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.warnLogger.Output(2, fmt.Sprintf(format, args...))
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a condition event for a single athlete.
func (l *Logger) Event(eventType string, athleteID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Athlete:%s | %s", eventType, athleteID, details))
}
