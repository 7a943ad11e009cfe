// Package ffmpeg provides a composable API for building and executing ffmpeg commands.
package ffmpeg

import (
	"context"
	"io"
	"strconv"
)

// DefaultPath is used when no ffmpeg path is configured.
const DefaultPath = "ffmpeg"

// Stdin and Stdout are the pipe endpoints used for streaming transcodes.
const (
	Stdin  = "pipe:0"
	Stdout = "pipe:1"
)

// Command represents an ffmpeg command being built.
type Command struct {
	input     string
	output    string
	global    []string // args before any input (like -loglevel)
	postInput []string // args after -i
}

// Option modifies a Command. Options are composable and order-independent
// (ffmpeg will receive args in correct order regardless of option order).
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command with input/output and applies options.
func NewCommand(input, output string, opts ...Option) *Command {
	cmd := &Command{
		input:  input,
		output: output,
	}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the complete ffmpeg argument list.
func (c *Command) Build() []string {
	args := []string{"-hide_banner", "-y"}
	args = append(args, c.global...)
	args = append(args, "-i", c.input)
	args = append(args, c.postInput...)
	args = append(args, c.output)
	return args
}

// Pipe starts the command with stdin as its input stream and returns its
// standard output. path defaults to DefaultPath.
func (c *Command) Pipe(ctx context.Context, path string, stdin io.Reader) (*Pipe, error) {
	if path == "" {
		path = DefaultPath
	}
	return startPipe(ctx, path, c.Build(), stdin)
}

// --- Global Options ---

// LogLevel sets -loglevel.
func LogLevel(level string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.global = append(cmd.global, "-loglevel", level)
	})
}

// --- Audio Options ---

// NoVideo drops any video stream (-vn).
var NoVideo = OptionFunc(func(cmd *Command) {
	cmd.postInput = append(cmd.postInput, "-vn")
})

// AudioCodec sets the audio codec (-c:a).
func AudioCodec(codec string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, "-c:a", codec)
	})
}

// AudioQuality sets variable-bitrate quality (-q:a); for libmp3lame 0 is best.
func AudioQuality(q int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, "-q:a", strconv.Itoa(q))
	})
}

// OutputFormat forces the output container (-f after -i).
func OutputFormat(name string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.postInput = append(cmd.postInput, "-f", name)
	})
}

// PresetMP3Best returns options for best-quality VBR MP3 output.
func PresetMP3Best() []Option {
	return []Option{
		LogLevel("error"),
		NoVideo,
		AudioCodec("libmp3lame"),
		AudioQuality(0),
		OutputFormat("mp3"),
	}
}

// TranscodeMP3 converts the media read from src into MP3 on the returned pipe.
func TranscodeMP3(ctx context.Context, path string, src io.Reader) (*Pipe, error) {
	return NewCommand(Stdin, Stdout, PresetMP3Best()...).Pipe(ctx, path, src)
}
