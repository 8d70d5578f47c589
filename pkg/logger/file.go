package logger

import (
	"io"

	"github.com/natefinch/lumberjack"
)

// FileConfig describes the rotating log file sink.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileSink returns a size-rotated file writer, or nil when no path is configured.
func NewFileSink(cfg FileConfig) io.WriteCloser {
	if cfg.Path == "" {
		return nil
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
