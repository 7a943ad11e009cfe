package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/tubeaudio/cmd/web/handlers/common"
	"thirdcoast.systems/tubeaudio/cmd/web/handlers/download_api"
	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/config"
)

type Webserver struct {
	*echo.Echo
	backend audio.Backend
	conf    config.Config
}

// requestValidator adapts go-playground/validator to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func NewWebserver(ctx context.Context, conf *config.Config, backend audio.Backend) (*Webserver, error) {
	e := echo.New()
	e.Validator = &requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = common.HTTPErrorHandler

	webserver := &Webserver{
		Echo:    e,
		backend: backend,
		conf:    *conf,
	}

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	if err := webserver.registerRoutes(); err != nil {
		return nil, err
	}

	slog.Info("Webserver configured", "backend", backend.Name())
	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit(strconv.FormatUint(s.conf.BodyLimitBytes(), 10) + "B"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

// downloadPaths are served identically; /api/download is the path the web UI calls.
var downloadPaths = []string{"/download", "/api/download"}

// disallowedMethods get an explicit 405; echo would answer OPTIONS with 204.
var disallowedMethods = []string{
	http.MethodHead,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodTrace,
}

func (s *Webserver) registerRoutes() error {
	for _, p := range downloadPaths {
		s.POST(p, download_api.HandleInfo(s.backend, s.conf.LookupTimeout))
		s.GET(p, download_api.HandleFetch(s.backend, s.conf.DownloadTimeout))
		s.Match(disallowedMethods, p, download_api.HandleMethodNotAllowed())
	}

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})

	return nil
}
