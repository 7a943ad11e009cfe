package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Stream is a running yt-dlp download writing media to its standard output.
// The caller must call Close.
type Stream struct {
	cmd     *exec.Cmd
	args    []string
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	cleanup func()

	closeOnce sync.Once
	err       error
}

// Stream starts downloading the given format of url to stdout ("-o -").
// format is a yt-dlp format selector such as "251" or "bestaudio".
func (c *Client) Stream(ctx context.Context, url string, format string, extraArgs ...string) (*Stream, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(format) == "" {
		return nil, fmt.Errorf("ytdlp: format is required")
	}

	args := []string{
		"--format", format,
		"--no-playlist",
		"--no-part",
		"--no-progress",
		"--no-warnings",
		"--output", "-",
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	fullArgs, cleanup, err := c.prepare(args)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.PathOrDefault(), fullArgs...)
	cmd.WaitDelay = 5 * time.Second

	s := &Stream{cmd: cmd, args: args, cleanup: cleanup}
	if c.LogCallback != nil {
		cmd.Stderr = &streamWriter{stream: "stderr", callback: c.LogCallback, buffer: &s.stderr}
	} else {
		cmd.Stderr = &s.stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("ytdlp: failed to create stdout pipe: %w", err)
	}
	s.stdout = stdout

	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, wrapExecError(c.PathOrDefault(), args, nil, nil, err)
	}
	return s, nil
}

// Read reads downloaded media bytes.
func (s *Stream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close releases stdout and waits for yt-dlp to exit. A failed download is
// reported as *ExecError carrying stderr.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdout.Close()
		err := s.cmd.Wait()
		s.cleanup()
		if err != nil {
			s.err = wrapExecError(s.cmd.Path, s.args, nil, s.stderr.Bytes(), err)
		}
	})
	return s.err
}
