package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel переводит строку из конфига в уровень slog. Неизвестное значение даёт info.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New создает JSON-логгер, пишущий в w. Все записи помечаются именем сервиса.
func New(w io.Writer, level slog.Level, service string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", service))
}

func Setup(level string, service string) *slog.Logger {
	logLevel, ok := ParseLevel(level)

	logger := New(os.Stdout, logLevel, service)
	if !ok {
		logger.Warn("Invalid log level specified, using default level: info", slog.String("invalid_level", level))
	}

	logger.Info("Logger initialized", slog.String("level", logLevel.String()))

	return logger
}

// Discard - логгер для тестов.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
