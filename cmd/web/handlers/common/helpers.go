package common

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// Logger returns the default logger tagged with the request id.
func Logger(c echo.Context) *slog.Logger {
	return slog.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
}
