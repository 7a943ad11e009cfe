package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSONError writes an error response.
func JSONError(c echo.Context, status int, msg string, details string) error {
	return c.JSON(status, ErrorBody{Error: msg, Details: details})
}

// ErrMethodNotAllowed returns a 405 Method Not Allowed error.
func ErrMethodNotAllowed() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed")
}

// HTTPErrorHandler renders errors that reach echo as ErrorBody JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	// echo's router reports "Method Not Allowed" for known paths.
	if code == http.StatusMethodNotAllowed {
		msg = "Method not allowed"
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = JSONError(c, code, msg, "")
}
