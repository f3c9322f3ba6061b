package logging

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// ParseLevel translates a string representation of a log level back into its enum
func ParseLevel(s string) (int, error) {
	for level := TraceLevel; level <= FatalLevel; level++ {
		if strings.EqualFold(s, LogLevelToString(level)) {
			return level, nil
		}
	}
	return InfoLevel, fmt.Errorf("Unknown log level %q", s)
}

var minLevel int32 = InfoLevel

// SetLevel sets the minimum level of messages which will be written
func SetLevel(level int) {
	atomic.StoreInt32(&minLevel, int32(level))
}

// Level returns the minimum level of messages which will be written
func Level() int {
	return int(atomic.LoadInt32(&minLevel))
}

// Config describes where log messages are sent
type Config struct {
	Logfile string
	Level   string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// Apply sets the level and, if a Logfile is given, sends log messages to a rotating log file
func (c *Config) Apply() error {
	if c == nil {
		return nil
	}
	if c.Level != "" {
		level, err := ParseLevel(c.Level)
		if err != nil {
			return err
		}
		SetLevel(level)
	}
	if c.Logfile == "" {
		return nil
	}
	log.SetOutput(&lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	})
	return nil
}

func logf(level int, format string, args ...interface{}) {
	if level < Level() {
		return
	}
	log.Printf("%s %s", LogLevelToString(level), fmt.Sprintf(format, args...))
}

// Tracef writes a message at TRACE level
func Tracef(format string, args ...interface{}) { logf(TraceLevel, format, args...) }

// Debugf writes a message at DEBUG level
func Debugf(format string, args ...interface{}) { logf(DebugLevel, format, args...) }

// Infof writes a message at INFO level
func Infof(format string, args ...interface{}) { logf(InfoLevel, format, args...) }

// Warnf writes a message at WARN level
func Warnf(format string, args ...interface{}) { logf(WarnLevel, format, args...) }

// Errorf writes a message at ERROR level
func Errorf(format string, args ...interface{}) { logf(ErrorLevel, format, args...) }
