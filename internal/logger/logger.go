package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface
type Logger interface {
	Log() *zerolog.Event
	Fatal() *zerolog.Event
	Err(err error) *zerolog.Event
	Error() *zerolog.Event
	Warn() *zerolog.Event
	Info() *zerolog.Event
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	With() zerolog.Context
	RegisterSSEWriter(sse SSEPublisher)
	SetLogLevel(level string)
}

// DefaultLogger default logging controller
type DefaultLogger struct {
	log           zerolog.Logger
	level         zerolog.Level
	writers       []io.Writer
	logDir        string
	currentDate   string
	lumberjackLog *lumberjack.Logger
	m             sync.Mutex
}

func New(cfg *domain.Config) Logger {
	l := &DefaultLogger{
		writers:     make([]io.Writer, 0),
		level:       zerolog.DebugLevel,
		currentDate: time.Now().Format("2006-01-02"),
	}

	l.SetLogLevel(cfg.Logging.Level)

	// use pretty logging for dev only
	if cfg.Version == "dev" {
		l.writers = append(l.writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l.writers = append(l.writers, os.Stderr)
	}

	if cfg.Logging.Path != "" {
		l.logDir = cfg.Logging.Path
		if _, err := os.Stat(l.logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(l.logDir, 0755); err != nil {
				fmt.Printf("Failed to create log directory: %v\n", err)
			}
		}

		l.lumberjackLog = &lumberjack.Logger{
			Filename:   logFilename(l.logDir, l.currentDate),
			MaxSize:    cfg.Logging.MaxFileSize,
			MaxBackups: cfg.Logging.MaxBackupCount,
		}
		l.writers = append(l.writers, l.lumberjackLog)

		go l.scheduleRotationCheck()
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	l.log = zerolog.New(io.MultiWriter(l.writers...)).Level(l.level).With().Stack().Logger()

	return l
}

func logFilename(dir, date string) string {
	return filepath.Join(dir, fmt.Sprintf("degustation-%s.log", date))
}

// RegisterSSEWriter tees every log line into the "logs" SSE stream.
func (l *DefaultLogger) RegisterSSEWriter(sse SSEPublisher) {
	l.m.Lock()
	l.writers = append(l.writers, NewSSEWriter(sse))
	l.rebuild()
	l.m.Unlock()

	l.Info().Msg("SSE writer registered for logging")
}

func (l *DefaultLogger) rebuild() {
	l.log = zerolog.New(io.MultiWriter(l.writers...)).Level(l.level).With().Stack().Logger()
}

// scheduleRotationCheck switches the log file at midnight.
func (l *DefaultLogger) scheduleRotationCheck() {
	if l.lumberjackLog == nil || l.logDir == "" {
		return
	}

	for {
		now := time.Now()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		time.Sleep(nextMidnight.Sub(now))

		l.checkRotate()
	}
}

// checkRotate moves to a new dated log file when the day changed.
func (l *DefaultLogger) checkRotate() {
	l.m.Lock()
	defer l.m.Unlock()

	if l.lumberjackLog == nil || l.logDir == "" {
		return
	}

	today := time.Now().Format("2006-01-02")
	if today == l.currentDate {
		return
	}

	l.currentDate = today
	_ = l.lumberjackLog.Close()
	l.lumberjackLog.Filename = logFilename(l.logDir, l.currentDate)
	l.rebuild()
}

func (l *DefaultLogger) SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "INFO":
		l.level = zerolog.InfoLevel
	case "DEBUG":
		l.level = zerolog.DebugLevel
	case "ERROR":
		l.level = zerolog.ErrorLevel
	case "WARN":
		l.level = zerolog.WarnLevel
	case "TRACE":
		l.level = zerolog.TraceLevel
	default:
		l.level = zerolog.Disabled
	}
	l.log = l.log.Level(l.level)
}

// Log log something without level.
func (l *DefaultLogger) Log() *zerolog.Event {
	return l.log.Log().Timestamp()
}

// Fatal log something at fatal level. This will exit!
func (l *DefaultLogger) Fatal() *zerolog.Event {
	return l.log.Fatal().Timestamp()
}

// Error log something at Error level
func (l *DefaultLogger) Error() *zerolog.Event {
	return l.log.Error().Timestamp()
}

// Err log something at Err level
func (l *DefaultLogger) Err(err error) *zerolog.Event {
	return l.log.Err(err).Timestamp()
}

// Warn log something at warning level.
func (l *DefaultLogger) Warn() *zerolog.Event {
	return l.log.Warn().Timestamp()
}

// Info log something at info level.
func (l *DefaultLogger) Info() *zerolog.Event {
	return l.log.Info().Timestamp()
}

// Debug log something at debug level.
func (l *DefaultLogger) Debug() *zerolog.Event {
	return l.log.Debug().Timestamp()
}

// Trace log something at trace level.
func (l *DefaultLogger) Trace() *zerolog.Event {
	return l.log.Trace().Timestamp()
}

// With log with context
func (l *DefaultLogger) With() zerolog.Context {
	return l.log.With().Timestamp()
}
