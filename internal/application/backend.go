package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/audio/dlp"
	"thirdcoast.systems/tubeaudio/internal/audio/mp36"
	"thirdcoast.systems/tubeaudio/internal/audio/native"
	"thirdcoast.systems/tubeaudio/internal/config"
	"thirdcoast.systems/tubeaudio/pkg/ytdlp"
)

// NewBackend builds the audio backend selected by AUDIO_BACKEND.
func NewBackend(ctx context.Context, conf config.Config) (audio.Backend, error) {
	switch conf.AudioBackend {
	case config.BackendMP36:
		return mp36.NewBackend(mp36.NewClient(conf.RapidAPIHost, conf.RapidAPIKey)), nil

	case config.BackendYtdlp:
		client, err := NewYtdlpClient(conf)
		if err != nil {
			return nil, err
		}
		logYtdlpVersion(ctx, client)
		return dlp.NewBackend(client, conf.FFmpegPath), nil

	case config.BackendNative:
		// Media streams can run for minutes; the request context bounds them.
		return native.NewBackend(&http.Client{}, conf.FFmpegPath), nil

	default:
		return nil, fmt.Errorf("unsupported AUDIO_BACKEND: %s (must be mp36, ytdlp, or native)", conf.AudioBackend)
	}
}

// NewYtdlpClient configures a yt-dlp client, loading YTDLP_COOKIES_FILE if set.
func NewYtdlpClient(conf config.Config) (*ytdlp.Client, error) {
	client := ytdlp.New()
	client.Path = conf.YtdlpPath
	client.LogCallback = func(stream, line string) {
		slog.Debug("yt-dlp", "stream", stream, "line", line)
	}

	if conf.YtdlpCookiesFile != "" {
		b, err := os.ReadFile(conf.YtdlpCookiesFile)
		if err != nil {
			return nil, fmt.Errorf("read YTDLP_COOKIES_FILE: %w", err)
		}
		client.Cookies = string(b)
		slog.Info("Loaded yt-dlp cookies", "path", conf.YtdlpCookiesFile)
	}

	return client, nil
}

// logYtdlpVersion reports the installed yt-dlp; a missing binary is only a warning
// so the server still starts and answers with per-request errors.
func logYtdlpVersion(ctx context.Context, client *ytdlp.Client) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	v, err := client.Version(ctx)
	if err != nil {
		slog.Warn("yt-dlp is not runnable", "path", client.PathOrDefault(), "error", err)
		return
	}
	slog.Info("Using yt-dlp", "path", client.PathOrDefault(), "version", v)
}
