package log

import (
	"context"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// LegacyHandler is a logrus.Hook that forwards entries into the slog
// pipeline Init configured, so an embedder's existing logrus-based
// reporter/sink keeps working without its own separate output plumbing —
// generalizing the teacher's logger_adapter.go, which wrapped a
// logrus.Entry to serve as the package's primary logger, into a bridge
// that feeds a foreign logrus logger's entries into this package's own.
type LegacyHandler struct {
	Logger *slog.Logger // nil means slog.Default()
}

func (h *LegacyHandler) Levels() []logrus.Level { return logrus.AllLevels }

func (h *LegacyHandler) Fire(entry *logrus.Entry) error {
	l := h.Logger
	if l == nil {
		l = slog.Default()
	}
	args := make([]any, 0, len(entry.Data)*2)
	for k, v := range entry.Data {
		args = append(args, k, v)
	}
	l.Log(context.Background(), legacyLevel(entry.Level), entry.Message, args...)
	return nil
}

func legacyLevel(l logrus.Level) slog.Level {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return slog.LevelDebug
	case logrus.InfoLevel:
		return slog.LevelInfo
	case logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
