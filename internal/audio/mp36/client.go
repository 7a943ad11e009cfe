// Package mp36 is the redirect-mode backend backed by the hosted
// youtube-mp36 conversion API. The API converts to MP3 server-side and
// answers with a link to the finished file.
package mp36

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/videoid"
)

const (
	// DefaultHost is the RapidAPI host serving the conversion API.
	DefaultHost = "youtube-mp36.p.rapidapi.com"

	source = "mp36"
)

type Client struct {
	baseURL string
	host    string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client for host authenticating with apiKey. An empty key
// is accepted; the API rejects such requests per call. Calls are bounded by
// the caller's context only.
func NewClient(host, apiKey string) *Client {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimRight(host, "/")

	return &Client{
		baseURL: "https://" + host,
		host:    host,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// WithBaseURL points the client at another origin, keeping the RapidAPI host header.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return c
}

// Conversion is the API response for one video.
type Conversion struct {
	Status   string  `json:"status"`
	Msg      string  `json:"msg"`
	Title    string  `json:"title"`
	Link     string  `json:"link"`
	Duration float64 `json:"duration"`
	Filesize int64   `json:"filesize"`
}

// Convert asks the API for the MP3 conversion of videoID.
func (c *Client) Convert(ctx context.Context, videoID string) (*Conversion, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("videoID is required")
	}

	u, err := url.Parse(c.baseURL + "/dl")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("id", videoID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, audio.NewProtocolError(source, 0, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, audio.NewProtocolError(source, resp.StatusCode, 0, strings.TrimSpace(string(body)), nil)
	}

	var out Conversion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, audio.NewProtocolError(source, 0, 0, "", fmt.Errorf("decode response: %w", err))
	}

	if strings.EqualFold(out.Status, "fail") {
		msg := strings.TrimSpace(out.Msg)
		if msg == "" {
			msg = "conversion failed"
		}
		return nil, audio.NewProtocolError(source, 0, 0, msg, nil)
	}

	return &out, nil
}

// Backend adapts Client to audio.Backend.
type Backend struct {
	client *Client
}

func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Name() string { return source }

// Lookup returns the title with the static MP3 catalog; the API exposes no
// per-format detail.
func (b *Backend) Lookup(ctx context.Context, rawURL string) (*audio.Info, error) {
	conv, err := b.convert(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(conv.Title) == "" {
		return nil, &audio.DataError{Source: source, Field: "title"}
	}
	return &audio.Info{Title: conv.Title, Formats: audio.Catalog()}, nil
}

// FetchAudio returns the hosted file link. The API has a single output
// quality, so selector only needs to be present.
func (b *Backend) FetchAudio(ctx context.Context, rawURL string, selector string) (*audio.Fetch, error) {
	conv, err := b.convert(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(conv.Link) == "" {
		return nil, &audio.DataError{Source: source, Field: "link"}
	}
	return &audio.Fetch{Title: conv.Title, RedirectURL: conv.Link}, nil
}

func (b *Backend) convert(ctx context.Context, rawURL string) (*Conversion, error) {
	id, err := videoid.ExtractID(rawURL)
	if err != nil {
		return nil, &audio.InputError{Msg: "Invalid YouTube URL"}
	}
	return b.client.Convert(ctx, id)
}
