// Package native is the streaming backend that talks to YouTube directly
// through github.com/kkdai/youtube and converts the audio stream with ffmpeg.
package native

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"thirdcoast.systems/tubeaudio/internal/audio"
	"thirdcoast.systems/tubeaudio/internal/videoid"
	"thirdcoast.systems/tubeaudio/pkg/ffmpeg"
)

const source = "youtube"

// videoClient is the subset of *youtube.Client the backend uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

type Backend struct {
	client    videoClient
	transcode func(ctx context.Context, src io.Reader) (io.ReadCloser, error)
}

// NewBackend returns a backend using httpClient for YouTube requests and the
// ffmpeg binary at ffmpegPath for conversion.
func NewBackend(httpClient *http.Client, ffmpegPath string) *Backend {
	return &Backend{
		client: &youtube.Client{HTTPClient: httpClient},
		transcode: func(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
			return ffmpeg.TranscodeMP3(ctx, ffmpegPath, src)
		},
	}
}

func (b *Backend) Name() string { return "native" }

func (b *Backend) Lookup(ctx context.Context, rawURL string) (*audio.Info, error) {
	video, err := b.video(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return audio.Normalize(source, video.Title, RawFormats(video.Formats.Type("audio")))
}

// FetchAudio streams the format with the numeric itag selector converted to MP3.
func (b *Backend) FetchAudio(ctx context.Context, rawURL string, selector string) (*audio.Fetch, error) {
	itag, err := strconv.Atoi(strings.TrimSpace(selector))
	if err != nil || itag <= 0 {
		return nil, &audio.InputError{Msg: "Invalid itag"}
	}

	video, err := b.video(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(video.Title) == "" {
		return nil, &audio.DataError{Source: source, Field: "title"}
	}

	format := video.Formats.FindByItag(itag)
	if format == nil {
		return nil, &audio.InputError{Msg: "Requested format is not available"}
	}

	src, _, err := b.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := b.transcode(ctx, src)
	if err != nil {
		_ = src.Close()
		return nil, mapError(err)
	}

	return &audio.Fetch{
		Title:  video.Title,
		Stream: &transcoded{out: out, src: src},
	}, nil
}

func (b *Backend) video(ctx context.Context, rawURL string) (*youtube.Video, error) {
	id, err := videoid.ExtractID(rawURL)
	if err != nil {
		return nil, &audio.InputError{Msg: "Invalid YouTube URL"}
	}
	video, err := b.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return video, nil
}

// RawFormats reads library formats into the backend-neutral shape.
func RawFormats(in youtube.FormatList) []audio.RawFormat {
	out := make([]audio.RawFormat, 0, len(in))
	for _, f := range in {
		ext, acodec, vcodec := parseMimeType(f.MimeType)
		rf := audio.RawFormat{
			ID:         strconv.Itoa(f.ItagNo),
			Ext:        ext,
			AudioCodec: acodec,
			VideoCodec: vcodec,
			Note:       qualityNote(f.AudioQuality),
			Filesize:   f.ContentLength,
		}
		switch {
		case f.AverageBitrate > 0:
			rf.Bitrate = float64(f.AverageBitrate) / 1000
		case f.Bitrate > 0:
			rf.Bitrate = float64(f.Bitrate) / 1000
		}
		out = append(out, rf)
	}
	return out
}

// parseMimeType splits `audio/webm; codecs="opus"` into the file extension
// and the audio and video codecs. Audio-only types report no video codec.
func parseMimeType(mt string) (ext, acodec, vcodec string) {
	mediaType, params, err := mime.ParseMediaType(mt)
	if err != nil {
		return "", "", ""
	}

	kind, subtype, _ := strings.Cut(mediaType, "/")
	ext = subtype
	if mediaType == "audio/mp4" {
		ext = "m4a"
	}

	var codecs []string
	for _, c := range strings.Split(params["codecs"], ",") {
		if c = strings.TrimSpace(c); c != "" {
			codecs = append(codecs, c)
		}
	}

	switch kind {
	case "audio":
		if len(codecs) > 0 {
			acodec = codecs[0]
		}
	case "video":
		if len(codecs) > 0 {
			vcodec = codecs[0]
		}
		if len(codecs) > 1 {
			acodec = codecs[1]
		}
	}
	return ext, acodec, vcodec
}

// qualityNote turns AUDIO_QUALITY_MEDIUM into "medium".
func qualityNote(q string) string {
	return strings.ToLower(strings.TrimPrefix(q, "AUDIO_QUALITY_"))
}

func mapError(err error) error {
	var status youtube.ErrUnexpectedStatusCode
	if errors.As(err, &status) {
		return audio.NewProtocolError(source, int(status), 0, "", err)
	}
	var fe *ffmpeg.Error
	if errors.As(err, &fe) {
		return audio.NewProtocolError("ffmpeg", 0, fe.ExitCode(), fe.Stderr, err)
	}
	return audio.NewProtocolError(source, 0, 0, "", err)
}

// transcoded is ffmpeg output fed by a YouTube media stream.
type transcoded struct {
	out io.ReadCloser
	src io.Closer
}

func (t *transcoded) Read(b []byte) (int, error) {
	return t.out.Read(b)
}

func (t *transcoded) Close() error {
	err := t.out.Close()
	_ = t.src.Close()
	if err != nil {
		return mapError(err)
	}
	return nil
}
