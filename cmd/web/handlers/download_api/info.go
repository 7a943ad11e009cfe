// Package download_api serves the audio lookup and download endpoints.
package download_api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/tubeaudio/cmd/web/handlers/common"
	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/videoid"
)

// InfoRequest is the body of a lookup request.
type InfoRequest struct {
	URL string `json:"url" validate:"required"`
}

// HandleInfo lists the audio formats available for a video.
func HandleInfo(backend audio.Backend, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req InfoRequest
		if err := c.Bind(&req); err != nil {
			return common.JSONError(c, http.StatusBadRequest, "Invalid request body", "")
		}
		req.URL = strings.TrimSpace(req.URL)
		if err := c.Validate(&req); err != nil {
			return common.JSONError(c, http.StatusBadRequest, "URL is required", "")
		}

		id, err := videoid.ExtractID(req.URL)
		if err != nil {
			return common.JSONError(c, http.StatusBadRequest, "Invalid YouTube URL", "")
		}

		log := common.Logger(c).With(
			"backend", backend.Name(),
			"video_id", id,
			"domain", videoid.Domain(req.URL),
		)

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		info, err := backend.Lookup(ctx, req.URL)
		if err != nil {
			var ie *audio.InputError
			if errors.As(err, &ie) {
				return common.JSONError(c, http.StatusBadRequest, ie.Msg, "")
			}
			log.Error("lookup failed", "error", err)
			return common.JSONError(c, http.StatusInternalServerError, "Failed to process video", err.Error())
		}

		log.Info("lookup complete", "title", info.Title, "formats", len(info.Formats))
		return c.JSON(http.StatusOK, info)
	}
}

// HandleMethodNotAllowed answers methods the download endpoints do not serve.
func HandleMethodNotAllowed() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAllow, "GET, POST")
		return common.ErrMethodNotAllowed()
	}
}
