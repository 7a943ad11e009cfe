package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Close waits for stdin copying and output pipes
// after the process was killed.
const waitDelay = 5 * time.Second

// Pipe is a running ffmpeg process whose standard output is read by the caller.
// The caller must call Close.
type Pipe struct {
	cmd    *exec.Cmd
	args   []string
	stdout io.ReadCloser
	stderr bytes.Buffer

	closeOnce sync.Once
	err       error
}

func startPipe(ctx context.Context, name string, args []string, stdin io.Reader) (*Pipe, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.WaitDelay = waitDelay

	p := &Pipe{cmd: cmd, args: args}
	cmd.Stderr = &p.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: failed to create stdout pipe: %w", err)
	}
	p.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: failed to start: %w", err)
	}
	return p, nil
}

// Read reads transcoded output.
func (p *Pipe) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close releases the output pipe and waits for the process to exit.
// A non-zero exit is reported as *Error.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdout.Close()
		if err := p.cmd.Wait(); err != nil {
			p.err = &Error{
				Args:   p.args,
				Stderr: p.stderr.String(),
				Err:    err,
			}
		}
	})
	return p.err
}

// Error represents an ffmpeg execution error with context.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	// Extract just the last few lines of stderr for the error message
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	var lastLines string
	if len(lines) > 3 {
		lastLines = strings.Join(lines[len(lines)-3:], "\n")
	} else {
		lastLines = strings.Join(lines, "\n")
	}

	if lastLines != "" {
		return fmt.Sprintf("ffmpeg: %v: %s", e.Err, lastLines)
	}
	return fmt.Sprintf("ffmpeg: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code, or -1 if it did not exit normally.
func (e *Error) ExitCode() int {
	var ee *exec.ExitError
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// Command returns the command that was executed.
func (e *Error) Command() string {
	return "ffmpeg " + strings.Join(e.Args, " ")
}
