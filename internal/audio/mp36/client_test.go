package mp36

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"thirdcoast.systems/tubeaudio/internal/audio"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewBackend(NewClient("", "secret").WithBaseURL(srv.URL))
}

func TestConvert_SendsRapidAPIHeaders(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dl", r.URL.Path)
		require.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		require.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		require.Equal(t, DefaultHost, r.Header.Get("X-RapidAPI-Host"))
		_, _ = w.Write([]byte(`{"status":"ok","title":"Never Gonna","link":"https://cdn.example/a.mp3","duration":213.1,"filesize":3412345}`))
	})

	conv, err := b.client.Convert(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Equal(t, "Never Gonna", conv.Title)
	require.Equal(t, "https://cdn.example/a.mp3", conv.Link)
	require.EqualValues(t, 3412345, conv.Filesize)
}

func TestLookup_ReturnsCatalog(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","title":"Song","link":"https://cdn.example/a.mp3"}`))
	})

	info, err := b.Lookup(context.Background(), testURL)
	require.NoError(t, err)
	require.Equal(t, "Song", info.Title)
	require.Equal(t, audio.Catalog(), info.Formats)
	require.Equal(t, "mp3_320", info.Formats[0].ID)
}

func TestFetchAudio_Redirects(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","title":"Song","link":"https://cdn.example/a.mp3"}`))
	})

	f, err := b.FetchAudio(context.Background(), testURL, "mp3_192")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/a.mp3", f.RedirectURL)
	require.Nil(t, f.Stream)
}

func TestBackend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		fetch  bool
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-success status",
			status: http.StatusForbidden,
			body:   `{"message":"You are not subscribed to this API."}`,
			check: func(t *testing.T, err error) {
				var pe *audio.ProtocolError
				require.ErrorAs(t, err, &pe)
				require.Equal(t, http.StatusForbidden, pe.Status)
				require.Contains(t, pe.Body, "not subscribed")
			},
		},
		{
			name:   "api reports failure",
			status: http.StatusOK,
			body:   `{"status":"fail","msg":"Long audio of more than 2 hours is not allowed"}`,
			check: func(t *testing.T, err error) {
				var pe *audio.ProtocolError
				require.ErrorAs(t, err, &pe)
				require.Equal(t, "Long audio of more than 2 hours is not allowed", pe.Body)
			},
		},
		{
			name:   "missing title",
			status: http.StatusOK,
			body:   `{"status":"ok","link":"https://cdn.example/a.mp3"}`,
			check: func(t *testing.T, err error) {
				var de *audio.DataError
				require.ErrorAs(t, err, &de)
				require.Equal(t, "title", de.Field)
			},
		},
		{
			name:   "missing link",
			status: http.StatusOK,
			body:   `{"status":"ok","title":"Song"}`,
			fetch:  true,
			check: func(t *testing.T, err error) {
				var de *audio.DataError
				require.ErrorAs(t, err, &de)
				require.Equal(t, "link", de.Field)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				var pe *audio.ProtocolError
				require.ErrorAs(t, err, &pe)
				require.ErrorContains(t, err, "decode response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			var err error
			if tt.fetch {
				_, err = b.FetchAudio(context.Background(), testURL, "mp3_320")
			} else {
				_, err = b.Lookup(context.Background(), testURL)
			}
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestProtocolError_TruncatesBody(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	})

	_, err := b.Lookup(context.Background(), testURL)
	var pe *audio.ProtocolError
	require.ErrorAs(t, err, &pe)
	require.LessOrEqual(t, len(pe.Body), 512)
}

func TestLookup_InvalidURLNeverCallsAPI(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := b.Lookup(context.Background(), "https://example.com/nope")
	var ie *audio.InputError
	require.ErrorAs(t, err, &ie)
	require.Zero(t, calls.Load())
}

func TestConvert_BoundedByContextDeadline(t *testing.T) {
	require.Zero(t, NewClient("", "").http.Timeout)

	release := make(chan struct{})
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.client.Convert(ctx, "dQw4w9WgXcQ")
	var pe *audio.ProtocolError
	require.ErrorAs(t, err, &pe)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
