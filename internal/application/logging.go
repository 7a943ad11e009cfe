package application

import (
	"io"
	"log/slog"
	"strings"

	"thirdcoast.systems/tubeaudio/internal/config"
)

// ConfigureLogging installs the default slog logger described by conf.
func ConfigureLogging(w io.Writer, conf config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(conf.LogLevel)}

	var h slog.Handler
	if strings.EqualFold(conf.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
