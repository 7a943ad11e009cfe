// Package audio defines the audio extraction capability shared by every
// backend, the response shapes returned to clients, and the normalization
// applied to raw extractor output.
package audio

import (
	"context"
	"io"
)

// Format describes one downloadable audio variant.
// ID is replayed verbatim by clients as the itag query parameter.
type Format struct {
	ID      string `json:"format_id"`
	Ext     string `json:"ext"`
	Quality string `json:"quality"`
	Size    string `json:"size"`
}

// Info is the result of a lookup: a title and formats ordered best first.
type Info struct {
	Title   string   `json:"title"`
	Formats []Format `json:"formats"`
}

// Fetch is the result of a download request. Exactly one of RedirectURL and
// Stream is set. A non-nil Stream must be closed by the caller; Close reports
// failures of the producing process.
type Fetch struct {
	Title       string
	RedirectURL string
	Stream      io.ReadCloser
}

// Backend resolves a source URL through an external collaborator.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	Lookup(ctx context.Context, url string) (*Info, error)
	FetchAudio(ctx context.Context, url string, selector string) (*Fetch, error)
}
