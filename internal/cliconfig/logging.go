package cliconfig

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cardlink/cardlink/pkg/log"
)

// Rotation limits for the log file.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger. With LogFile set it writes JSON into a
// rotated file; otherwise it writes to stderr in LogFormat. The returned
// closer releases the file.
func NewLogger(cfg Config) (log.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		return log.NewZerologAdapter(file, level), file, nil
	}

	if cfg.LogFormat == "json" {
		return log.NewZerologAdapter(os.Stderr, level), nopCloser{}, nil
	}
	return log.NewConsoleAdapter(level), nopCloser{}, nil
}
