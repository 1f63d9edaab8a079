package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the logger used by the package level logging functions
var DefaultLogger *Logger

// LogParams wrapper around key values used for logging
type LogParams map[string]interface{}

// Logger for logging
type Logger struct {
	entry *logrus.Entry

	file *os.File
}

// Config for the logger
type Config struct {
	// Path of the log file, empty to log to stdout
	Path string
	// Format only `json` is currently supported
	Format string
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string
}

// NewLogger instantiates a logger from the config
func NewLogger(c Config) *Logger {
	l := logrus.New()
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	var file *os.File
	if c.Path != "" {
		f, err := os.OpenFile(c.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err == nil {
			l.SetOutput(f)
			file = f
		}
	}
	logger := &Logger{
		entry: logrus.NewEntry(l),
		file:  file,
	}
	logger.SetLevel(c.Level)
	return logger
}

// Debug logs a debug message
func Debug(s string) {
	DefaultLogger.Debug(s)
}

// Fatal logs the message and exits with non-zero exit code
func Fatal(s string) {
	DefaultLogger.Fatal(s)
}

// Info logs a message with level `info`
func Info(s string) {
	DefaultLogger.Info(s)
}

// Warn logs a message with level `warn`
func Warn(s string) {
	DefaultLogger.Warn(s)
}

// Error logs a message with level `error`
func Error(s string) {
	DefaultLogger.Error(s)
}

// With returns a logger with the specified parameters
func With(params LogParams) *Logger {
	return DefaultLogger.With(params)
}

// SetLevel sets the level of the default logger
func SetLevel(l string) {
	DefaultLogger.SetLevel(l)
}

// Debug logs a debug message
func (l *Logger) Debug(s string) {
	l.entry.Debug(s)
}

// Fatal logs the message and exits with non-zero exit code
func (l *Logger) Fatal(s string) {
	l.entry.Fatal(s)
}

// Info logs a message with level `info`
func (l *Logger) Info(s string) {
	l.entry.Info(s)
}

// Warn logs a message with level `warn`
func (l *Logger) Warn(s string) {
	l.entry.Warn(s)
}

// Error logs a message with level `error`
func (l *Logger) Error(s string) {
	l.entry.Error(s)
}

// With returns a logger with the specified parameters
func (l *Logger) With(params LogParams) *Logger {
	entry := l.entry.WithFields(logrus.Fields(params))
	return &Logger{
		entry: entry,
		file:  nil,
	}
}

// SetLevel sets the level of the logger
func (l *Logger) SetLevel(level string) {
	levelL, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	l.entry.Logger.SetLevel(levelL)
}

// Destroy closes the log file if any
func (l *Logger) Destroy() {
	if l.file != nil {
		l.file.Close()
	}
}

// Init initializes the default logger from the config
func Init(c Config) {
	DefaultLogger = NewLogger(c)
}

// Destroy closes the default logger
func Destroy() {
	DefaultLogger.Destroy()
}
