package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/geesthacht-opendata/internal/common/discord"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Logger interface defines the logging methods
type Logger interface {
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

type loggerImpl struct {
	zl      zerolog.Logger
	alerter Alerter
}

// Config holds configuration for the logger
type Config struct {
	Level      zerolog.Level
	Console    bool
	FilePath   string
	DiscordURL string
	TimeFormat string
}

// New creates a new logger instance with the given writers
func New(writers ...io.Writer) Logger {
	multi := io.MultiWriter(writers...)
	zl := zerolog.New(multi).With().Timestamp().Logger()
	return &loggerImpl{zl: zl}
}

// NewWithConfig builds a leveled logger writing to the console and/or a
// rotated file. Error and fatal events are also posted to Discord when a
// webhook URL is configured.
func NewWithConfig(cfg Config) Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, ConsoleWriter(timeFormat))
	}
	if cfg.FilePath != "" {
		writers = append(writers, FileWriter(cfg.FilePath))
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	l := &loggerImpl{
		zl: zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger().Level(cfg.Level),
	}
	if cfg.DiscordURL != "" {
		l.alerter = discord.NewClient(cfg.DiscordURL)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &loggerImpl{zl: zerolog.Nop()}
}

// ConsoleWriter returns a console writer
func ConsoleWriter(timeFormat string) io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
}

// FileWriter returns a file writer with rotation
func FileWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *loggerImpl) Info(msg string, fields ...interface{}) {
	logWithFields(l.zl.Info(), msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...interface{}) {
	logWithFields(l.zl.Warn(), msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...interface{}) {
	logWithFields(l.zl.Error(), msg, fields...)
	l.alert(zerolog.ErrorLevel, msg, fields)
}

func (l *loggerImpl) Debug(msg string, fields ...interface{}) {
	logWithFields(l.zl.Debug(), msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *loggerImpl) Fatal(msg string, fields ...interface{}) {
	// The alert has to go out before zerolog exits the process.
	l.alert(zerolog.FatalLevel, msg, fields)
	logWithFields(l.zl.Fatal(), msg, fields...)
}

// logWithFields adds structured fields to the event
func logWithFields(event *zerolog.Event, msg string, fields ...interface{}) {
	if event == nil {
		return
	}
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]interface{}); ok {
			event.Fields(m).Msg(msg)
			return
		}
	}
	// fallback: treat as key-value pairs
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			if key == "error" {
				if err, ok := fields[i+1].(error); ok && err != nil {
					event = event.Err(err)
					continue
				}
			}
			event = event.Interface(key, fields[i+1])
		}
	}
	event.Msg(msg)
}
