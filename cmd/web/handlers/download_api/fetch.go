package download_api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/tubeaudio/cmd/web/handlers/common"
	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/videoid"
	"thirdcoast.systems/tubeaudio/pkg/utils/filename"
)

// validSelector bounds what may reach a command line as a format selector.
var validSelector = regexp.MustCompile(`^[A-Za-z0-9,+_-]+$`)

const streamBufferSize = 32 * 1024

// HandleFetch redirects to, or streams, the selected audio format as MP3.
func HandleFetch(backend audio.Backend, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		rawURL := strings.TrimSpace(c.QueryParam("url"))
		selector := strings.TrimSpace(c.QueryParam("itag"))
		if rawURL == "" || selector == "" {
			return common.JSONError(c, http.StatusBadRequest, "URL and itag are required", "")
		}

		id, err := videoid.ExtractID(rawURL)
		if err != nil {
			return common.JSONError(c, http.StatusBadRequest, "Invalid YouTube URL", "")
		}
		if !validSelector.MatchString(selector) {
			return common.JSONError(c, http.StatusBadRequest, "Invalid itag", "")
		}

		log := common.Logger(c).With(
			"backend", backend.Name(),
			"video_id", id,
			"itag", selector,
		)

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		f, err := backend.FetchAudio(ctx, rawURL, selector)
		if err != nil {
			return fetchFailed(c, log, err)
		}

		if f.Stream == nil {
			if f.RedirectURL == "" {
				return fetchFailed(c, log, errors.New("backend returned neither a link nor a stream"))
			}
			log.Info("redirecting to converted file")
			return c.Redirect(http.StatusFound, f.RedirectURL)
		}

		return relay(c, log, f)
	}
}

// relay writes headers only once the first audio byte exists so a failure to
// start still gets a JSON error response.
func relay(c echo.Context, log *slog.Logger, f *audio.Fetch) error {
	br := bufio.NewReaderSize(f.Stream, streamBufferSize)
	if _, err := br.Peek(1); err != nil {
		if closeErr := f.Stream.Close(); closeErr != nil {
			err = closeErr
		} else if errors.Is(err, io.EOF) {
			err = errors.New("audio stream ended before any data")
		}
		return fetchFailed(c, log, err)
	}

	name := filename.Sanitize(f.Title)
	if name == "" {
		name = "audio"
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "audio/mpeg")
	h.Set(echo.HeaderContentDisposition, filename.AttachmentDisposition(name+".mp3"))
	h.Set(echo.HeaderCacheControl, "no-store")
	c.Response().WriteHeader(http.StatusOK)

	start := time.Now()
	n, copyErr := io.Copy(c.Response(), br)
	closeErr := f.Stream.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		log.Error("audio transfer aborted",
			"bytes", humanize.Bytes(uint64(n)),
			"elapsed", time.Since(start),
			"error", err,
		)
		// Headers are gone; dropping the connection is the only way to tell
		// the client the file is incomplete.
		panic(http.ErrAbortHandler)
	}

	log.Info("audio transfer complete", "title", f.Title, "bytes", humanize.Bytes(uint64(n)), "elapsed", time.Since(start))
	return nil
}

func fetchFailed(c echo.Context, log *slog.Logger, err error) error {
	var ie *audio.InputError
	if errors.As(err, &ie) {
		return common.JSONError(c, http.StatusBadRequest, ie.Msg, "")
	}
	log.Error("download failed", "error", err)
	return common.JSONError(c, http.StatusInternalServerError, "Failed to download audio", err.Error())
}
