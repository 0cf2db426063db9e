// Package muselog configures the CLI's operation log: a slog logger
// writing to a size-rotated file under .muse/logs/. Logging is off by
// default; MUSE_LOG=1 enables it and MUSE_LOG_LEVEL picks the level.
package muselog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "muse.log"

// New returns the logger for a repository. When logging is disabled the
// returned logger discards everything.
func New(museDir string) *slog.Logger {
	if os.Getenv("MUSE_LOG") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(museDir, "logs", logFileName),
		MaxSize:    envInt("MUSE_LOG_MAX_SIZE", 10), // megabytes
		MaxBackups: envInt("MUSE_LOG_MAX_BACKUPS", 3),
		MaxAge:     envInt("MUSE_LOG_MAX_AGE", 14), // days
		Compress:   true,
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level(),
	})
	return slog.New(handler)
}

func level() slog.Level {
	switch strings.ToLower(os.Getenv("MUSE_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
