package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by AUDIO_BACKEND.
const (
	BackendMP36   = "mp36"
	BackendYtdlp  = "ytdlp"
	BackendNative = "native"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int    `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`
	BodyLimit     string `mapstructure:"BODY_LIMIT" validate:"required"`

	// Audio backend
	AudioBackend    string        `mapstructure:"AUDIO_BACKEND" validate:"oneof=mp36 ytdlp native"`
	LookupTimeout   time.Duration `mapstructure:"LOOKUP_TIMEOUT" validate:"gt=0"`
	DownloadTimeout time.Duration `mapstructure:"DOWNLOAD_TIMEOUT" validate:"gt=0"`

	// Hosted conversion API
	RapidAPIKey  string `mapstructure:"RAPID_API_KEY"`
	RapidAPIHost string `mapstructure:"RAPID_API_HOST" validate:"required"`

	// Executables
	YtdlpPath        string `mapstructure:"YTDLP_PATH" validate:"required"`
	YtdlpCookiesFile string `mapstructure:"YTDLP_COOKIES_FILE"`
	FFmpegPath       string `mapstructure:"FFMPEG_PATH" validate:"required"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=text json"`
}

// BodyLimitBytes returns BODY_LIMIT in bytes. The value was checked by LoadConfig.
func (c Config) BodyLimitBytes() uint64 {
	n, _ := humanize.ParseBytes(c.BodyLimit)
	return n
}

// LogValue keeps the API key out of logs.
func (c Config) LogValue() slog.Value {
	key := ""
	if c.RapidAPIKey != "" {
		key = "[redacted]"
	}
	return slog.GroupValue(
		slog.Int("webserver_port", c.WebServerPort),
		slog.String("body_limit", c.BodyLimit),
		slog.String("audio_backend", c.AudioBackend),
		slog.Duration("lookup_timeout", c.LookupTimeout),
		slog.Duration("download_timeout", c.DownloadTimeout),
		slog.String("rapid_api_key", key),
		slog.String("rapid_api_host", c.RapidAPIHost),
		slog.String("ytdlp_path", c.YtdlpPath),
		slog.String("ytdlp_cookies_file", c.YtdlpCookiesFile),
		slog.String("ffmpeg_path", c.FFmpegPath),
		slog.String("log_level", c.LogLevel),
		slog.String("log_format", c.LogFormat),
	)
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

// loadEnvFile reads ENV_FILE (default .env) into the process environment.
// Variables already set take precedence and a missing file is not an error.
func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Info("Loaded environment file", "path", path)
	return nil
}

func LoadConfig(ctx context.Context) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("BODY_LIMIT", "64KiB")
	viper.SetDefault("AUDIO_BACKEND", BackendMP36)
	viper.SetDefault("LOOKUP_TIMEOUT", 45*time.Second)
	viper.SetDefault("DOWNLOAD_TIMEOUT", 10*time.Minute)
	viper.SetDefault("RAPID_API_HOST", "youtube-mp36.p.rapidapi.com")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if n, err := humanize.ParseBytes(cfg.BodyLimit); err != nil {
		return nil, fmt.Errorf("validate config: BODY_LIMIT: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("validate config: BODY_LIMIT must be positive")
	}

	if cfg.AudioBackend == BackendMP36 && cfg.RapidAPIKey == "" {
		slog.Warn("RAPID_API_KEY is empty; conversion API requests will be rejected")
	}

	return &cfg, nil
}
