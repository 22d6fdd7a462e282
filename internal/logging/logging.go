package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/1broseidon/framewm/internal/config"
)

// Setup builds the daemon logger from the config. With a log file
// configured, output goes to both stderr and the rotating file; without
// one, stderr only. The returned close func flushes the file writer and
// is safe to call either way.
func Setup(cfg *config.Config) (*slog.Logger, func()) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}

	lc := cfg.GetLoggingConfig()
	if lc.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxFiles,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closeFn = func() { rotating.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, closeFn
}
