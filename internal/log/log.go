// Package log implements structured logging via slog, fanned out to
// stdout and (optionally) a rotating file, the way the teacher's
// internal/log wires slog handlers through an io.MultiWriter to a
// lumberjack.Logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/otusflow/internal/config"
)

// Init configures the process-wide slog default logger from cfg. The
// engine runners log node faults through slog.Default() afterward, as the
// teacher's pipeline.go does with its own package-level logger.
func Init(cfg config.LogConfig) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	writers := []io.Writer{os.Stdout}
	if cfg.Outputs.File.Enabled {
		if cfg.Outputs.File.Path == "" {
			return fmt.Errorf("log: outputs.file.enabled requires outputs.file.path")
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Outputs.File.Path,
			MaxSize:    cfg.Outputs.File.Rotation.MaxSizeMB,
			MaxAge:     cfg.Outputs.File.Rotation.MaxAgeDays,
			MaxBackups: cfg.Outputs.File.Rotation.MaxBackups,
			Compress:   cfg.Outputs.File.Rotation.Compress,
		})
	}
	dest := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(dest, opts)
	case "text":
		handler = slog.NewTextHandler(dest, opts)
	default:
		return fmt.Errorf("log: unsupported format %q (must be json or text)", cfg.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
	}
}
