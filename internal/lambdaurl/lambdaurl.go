// Package lambdaurl serves an http.Handler behind an AWS Lambda Function URL
// configured for response streaming.
package lambdaurl

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
)

// ErrAborted is the stream error seen by the runtime when a handler aborts
// mid-response with http.ErrAbortHandler.
var ErrAborted = errors.New("lambdaurl: handler aborted response")

// HandlerFunc is the signature lambda.Start expects for streaming Function URLs.
type HandlerFunc func(ctx context.Context, req events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error)

// Wrap adapts h. The handler runs in its own goroutine; the response is
// returned as soon as it commits its status, and the body streams from a pipe.
func Wrap(h http.Handler) HandlerFunc {
	return func(ctx context.Context, event events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error) {
		req, err := NewRequest(ctx, event)
		if err != nil {
			return nil, err
		}

		pr, pw := io.Pipe()
		w := newResponseWriter(pw)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					w.WriteHeader(http.StatusInternalServerError)
					if r == http.ErrAbortHandler {
						pw.CloseWithError(ErrAborted)
						return
					}
					pw.CloseWithError(fmt.Errorf("lambdaurl: handler panic: %v", r))
					return
				}
				w.WriteHeader(http.StatusOK)
				pw.Close()
			}()
			h.ServeHTTP(w, req)
		}()

		select {
		case <-w.committed:
		case <-ctx.Done():
			pr.CloseWithError(ctx.Err())
			return nil, ctx.Err()
		}

		return &events.LambdaFunctionURLStreamingResponse{
			StatusCode: w.status,
			Headers:    w.headers,
			Cookies:    w.cookies,
			Body:       pr,
		}, nil
	}
}

// NewRequest converts a Function URL event into an *http.Request bound to ctx.
func NewRequest(ctx context.Context, event events.LambdaFunctionURLRequest) (*http.Request, error) {
	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	path := event.RawPath
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: event.RawQueryString}

	body := event.Body
	if event.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("lambdaurl: decode body: %w", err)
		}
		body = string(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lambdaurl: build request: %w", err)
	}

	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	req.Host = event.RequestContext.DomainName
	if req.Host == "" {
		req.Host = req.Header.Get("Host")
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.RequestURI = u.RequestURI()

	return req, nil
}

// responseWriter captures status and headers at commit and streams the body.
type responseWriter struct {
	header    http.Header
	body      *io.PipeWriter
	committed chan struct{}
	once      sync.Once

	status  int
	headers map[string]string
	cookies []string
}

func newResponseWriter(body *io.PipeWriter) *responseWriter {
	return &responseWriter{
		header:    http.Header{},
		body:      body,
		committed: make(chan struct{}),
	}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(status int) {
	w.once.Do(func() {
		w.status = status
		w.headers = make(map[string]string, len(w.header))
		for k, v := range w.header {
			if k == "Set-Cookie" {
				w.cookies = append(w.cookies, v...)
				continue
			}
			w.headers[k] = strings.Join(v, ",")
		}
		close(w.committed)
	})
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.body.Write(p)
}

// Flush is a no-op; every Write is handed to the runtime unbuffered.
func (w *responseWriter) Flush() {
	w.WriteHeader(http.StatusOK)
}
