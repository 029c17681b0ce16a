package logger

import (
	"errors"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Builder assembles a zerolog.Logger from a Config.
type Builder struct {
	config Config
	scanID string
}

// NewBuilder creates a Builder with default configuration.
func NewBuilder() *Builder {
	return &Builder{config: NewDefaultConfig()}
}

// WithConfig sets the logger configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithScanID places the log file under a per-scan subdirectory so that
// concurrent or repeated scans do not interleave file output.
func (b *Builder) WithScanID(scanID string) *Builder {
	b.scanID = scanID
	return b
}

// Build creates the logger. Standard library log output is redirected into
// the returned logger so third-party packages using log.Printf are captured.
func (b *Builder) Build() (zerolog.Logger, error) {
	writers := b.createWriters()
	if len(writers) == 0 {
		return zerolog.Logger{}, errors.New("no log output writers configured")
	}

	level := parseLevel(b.config.LogLevel)

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(level)
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)

	return logger, nil
}

func (b *Builder) createWriters() []io.Writer {
	var writers []io.Writer

	if b.config.EnableConsole {
		writers = append(writers, consoleWriter(os.Stderr, false))
	}

	if b.config.LogFile != "" {
		writers = append(writers, b.createFileWriter())
	}

	return writers
}

func (b *Builder) createFileWriter() io.Writer {
	filePath := b.config.LogFile
	if b.scanID != "" {
		dir := filepath.Dir(filePath)
		filePath = filepath.Join(dir, "scans", b.scanID, filepath.Base(filePath))
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		filePath = b.config.LogFile
	}

	maxSize := b.config.MaxLogSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSize,
		MaxBackups: b.config.MaxLogBackups,
		LocalTime:  true,
	}

	if strings.EqualFold(b.config.LogFormat, "console") || strings.EqualFold(b.config.LogFormat, "text") {
		return consoleWriter(rotator, true)
	}
	return rotator
}

func consoleWriter(out io.Writer, noColor bool) io.Writer {
	return zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: "15:04:05"}
}

func parseLevel(levelStr string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil || levelStr == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Bootstrap returns a console logger for startup code that runs before
// the configuration (and with it the real logger) is available.
func Bootstrap() zerolog.Logger {
	return zerolog.New(consoleWriter(os.Stderr, false)).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

// New builds a logger straight from a Config.
func New(cfg Config) (zerolog.Logger, error) {
	return NewBuilder().WithConfig(cfg).Build()
}

// NewWithScanID builds a logger whose file output is grouped by scan.
func NewWithScanID(cfg Config, scanID string) (zerolog.Logger, error) {
	return NewBuilder().WithConfig(cfg).WithScanID(scanID).Build()
}
