// Package logger provides the leveled logger used by the trading loops.
package logger

import (
	"io"
	"log"
	"os"
)

// Logger is the logging interface consumed by the scheduler and monitor loops.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

type leveledLogger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	fatal *log.Logger
}

// New creates a Logger emitting at the given level.
// Level is one of "debug", "info", "warn", "error", "fatal".
func New(level string) Logger {
	l := &leveledLogger{
		debug: log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
		info:  log.New(os.Stdout, "INFO:  ", log.Ldate|log.Ltime|log.Lshortfile),
		warn:  log.New(os.Stdout, "WARN:  ", log.Ldate|log.Ltime|log.Lshortfile),
		err:   log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		fatal: log.New(os.Stderr, "FATAL: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
	discard := log.New(io.Discard, "", 0)
	switch level {
	case "debug":
	case "warn":
		l.debug, l.info = discard, discard
	case "error":
		l.debug, l.info, l.warn = discard, discard, discard
	case "fatal":
		l.debug, l.info, l.warn, l.err = discard, discard, discard, discard
	default: // info
		l.debug = discard
	}
	return l
}

func (l *leveledLogger) Debugf(format string, args ...interface{}) { l.debug.Printf(format, args...) }
func (l *leveledLogger) Infof(format string, args ...interface{})  { l.info.Printf(format, args...) }
func (l *leveledLogger) Warnf(format string, args ...interface{})  { l.warn.Printf(format, args...) }
func (l *leveledLogger) Errorf(format string, args ...interface{}) { l.err.Printf(format, args...) }
func (l *leveledLogger) Fatalf(format string, args ...interface{}) { l.fatal.Fatalf(format, args...) }

// std is the process-wide logger; reconfigured once at startup.
var std = New("info")

// SetGlobalLogLevel replaces the global logger with one at the given level.
func SetGlobalLogLevel(level string) {
	std = New(level)
}

// Debugf logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Infof logs an informational message using the global logger.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warnf logs a warning using the global logger.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Errorf logs an error message using the global logger.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fatalf logs a fatal error and exits.
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
