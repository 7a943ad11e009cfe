// Package dlp is the streaming backend that drives the yt-dlp executable and
// converts its output to MP3 with ffmpeg.
package dlp

import (
	"context"
	"errors"
	"io"
	"strings"

	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/videoid"
	"thirdcoast.systems/tubeaudio/pkg/ffmpeg"
	"thirdcoast.systems/tubeaudio/pkg/ytdlp"
)

const source = "yt-dlp"

// formatUnavailable is printed by yt-dlp when a selector matches nothing.
const formatUnavailable = "Requested format is not available"

type Backend struct {
	getInfo   func(ctx context.Context, url string) (*ytdlp.Info, error)
	stream    func(ctx context.Context, url, format string) (io.ReadCloser, error)
	transcode func(ctx context.Context, src io.Reader) (io.ReadCloser, error)
}

// NewBackend returns a backend running client for extraction and the ffmpeg
// binary at ffmpegPath for conversion.
func NewBackend(client *ytdlp.Client, ffmpegPath string) *Backend {
	return &Backend{
		getInfo: func(ctx context.Context, url string) (*ytdlp.Info, error) {
			return client.GetInfo(ctx, url)
		},
		stream: func(ctx context.Context, url, format string) (io.ReadCloser, error) {
			return client.Stream(ctx, url, format)
		},
		transcode: func(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
			return ffmpeg.TranscodeMP3(ctx, ffmpegPath, src)
		},
	}
}

func (b *Backend) Name() string { return source }

// Lookup lists the audio-only formats yt-dlp reports for url.
func (b *Backend) Lookup(ctx context.Context, rawURL string) (*audio.Info, error) {
	info, err := b.info(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return audio.Normalize(source, info.Title, RawFormats(info.Formats))
}

// FetchAudio streams the selected format converted to MP3. Failures of either
// process surface from the returned stream's Close.
func (b *Backend) FetchAudio(ctx context.Context, rawURL string, selector string) (*audio.Fetch, error) {
	info, err := b.info(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.Title) == "" {
		return nil, &audio.DataError{Source: source, Field: "title"}
	}

	src, err := b.stream(ctx, canonical(rawURL), selector)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := b.transcode(ctx, src)
	if err != nil {
		_ = src.Close()
		return nil, mapError(err)
	}

	return &audio.Fetch{
		Title:  info.Title,
		Stream: &pipeline{out: out, src: src},
	}, nil
}

func (b *Backend) info(ctx context.Context, rawURL string) (*ytdlp.Info, error) {
	if _, err := videoid.ExtractID(rawURL); err != nil {
		return nil, &audio.InputError{Msg: "Invalid YouTube URL"}
	}
	info, err := b.getInfo(ctx, canonical(rawURL))
	if err != nil {
		return nil, mapError(err)
	}
	return info, nil
}

// canonical strips playlist and tracking parameters before the URL reaches
// a command line. rawURL has already been validated.
func canonical(rawURL string) string {
	id, err := videoid.ExtractID(rawURL)
	if err != nil {
		return rawURL
	}
	return videoid.WatchURL(id)
}

// RawFormats reads yt-dlp format entries into the backend-neutral shape.
// Average audio bitrate is preferred over total bitrate, exact size over
// the approximation.
func RawFormats(in []ytdlp.Format) []audio.RawFormat {
	out := make([]audio.RawFormat, 0, len(in))
	for _, f := range in {
		rf := audio.RawFormat{
			ID:         f.FormatID,
			Ext:        f.Ext,
			AudioCodec: f.ACodec,
			VideoCodec: f.VCodec,
			Note:       f.FormatNote,
		}
		switch {
		case f.ABR != nil && *f.ABR > 0:
			rf.Bitrate = *f.ABR
		case f.TBR != nil && *f.TBR > 0:
			rf.Bitrate = *f.TBR
		}
		switch {
		case f.Filesize != nil && *f.Filesize > 0:
			rf.Filesize = *f.Filesize
		case f.FilesizeApprox != nil && *f.FilesizeApprox > 0:
			rf.Filesize = *f.FilesizeApprox
		}
		out = append(out, rf)
	}
	return out
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var ee *ytdlp.ExecError
	if errors.As(err, &ee) {
		if strings.Contains(ee.Stderr, formatUnavailable) {
			return &audio.InputError{Msg: formatUnavailable}
		}
		return audio.NewProtocolError(source, 0, ee.ExitCode, ee.Stderr, err)
	}
	var fe *ffmpeg.Error
	if errors.As(err, &fe) {
		return audio.NewProtocolError("ffmpeg", 0, fe.ExitCode(), fe.Stderr, err)
	}
	return audio.NewProtocolError(source, 0, 0, "", err)
}

// pipeline is the ffmpeg output fed by a yt-dlp download.
type pipeline struct {
	out io.ReadCloser
	src io.ReadCloser
}

func (p *pipeline) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

// Close stops both processes. A download failure is reported in preference
// to the conversion failure it causes.
func (p *pipeline) Close() error {
	outErr := p.out.Close()
	srcErr := p.src.Close()
	if srcErr != nil {
		return mapError(srcErr)
	}
	return mapError(outErr)
}
