package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamWriter_SplitsOnCRAndLF(t *testing.T) {
	var buf bytes.Buffer
	var lines []string
	w := &streamWriter{
		stream: "stdout",
		callback: func(stream string, line string) {
			lines = append(lines, stream+":"+line)
		},
		buffer: &buf,
	}

	_, err := w.Write([]byte("a\rb\nc\r\nd"))
	require.NoError(t, err)

	// No delimiter after trailing "d" yet.
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c"}, lines)

	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c", "stdout:d"}, lines)

	require.Equal(t, "a\rb\nc\r\nd\n", buf.String())
}

func TestCreateTempCookiesFile_WritesContent(t *testing.T) {
	path, err := createTempCookiesFile("cookie-data")
	require.NoError(t, err)
	require.NotEmpty(t, path)
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "cookie-data", string(b))
}

func TestPrepare_CookiesFileRemovedAfterExec(t *testing.T) {
	c := New()
	c.Cookies = "# Netscape HTTP Cookie File\n"

	var cookiesPath string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		for i, a := range args {
			if a == "--cookies" {
				cookiesPath = args[i+1]
			}
		}
		b, err := os.ReadFile(cookiesPath)
		require.NoError(t, err)
		require.Equal(t, c.Cookies, string(b))
		return []byte("2025.01.01"), nil, nil
	}

	_, err := c.Version(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cookiesPath)
	_, err = os.Stat(cookiesPath)
	require.True(t, os.IsNotExist(err))
}

func TestWrapExecError_TrimsOutput(t *testing.T) {
	err := wrapExecError("yt-dlp", []string{"--version"}, []byte(" out \n"), []byte(" err \n"), errors.New("boom"))
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "yt-dlp", ee.Cmd)
	require.Equal(t, []string{"--version"}, ee.Args)
	require.Equal(t, 0, ee.ExitCode)
	require.Equal(t, "out", ee.Stdout)
	require.Equal(t, "err", ee.Stderr)
	require.Equal(t, "boom", ee.Cause.Error())
	require.Contains(t, ee.Error(), "yt-dlp")
}

func TestClient_PathOrDefault(t *testing.T) {
	c := &Client{Path: "   "}
	require.Equal(t, "yt-dlp", c.PathOrDefault())

	c.Path = "/usr/local/bin/yt-dlp"
	require.Equal(t, "/usr/local/bin/yt-dlp", c.PathOrDefault())
}

// fakeYtdlp writes an executable shell script standing in for yt-dlp.
func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestStream_RelaysStdout(t *testing.T) {
	c := &Client{Path: fakeYtdlp(t, `printf 'media:%s' "$2"`)}

	s, err := c.Stream(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "251")
	require.NoError(t, err)

	out, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "media:251", string(out))
	require.NoError(t, s.Close())
}

func TestStream_CloseReportsFailure(t *testing.T) {
	var logged []string
	c := &Client{
		Path: fakeYtdlp(t, `echo "ERROR: Requested format is not available" >&2; exit 1`),
		LogCallback: func(stream, line string) {
			logged = append(logged, line)
		},
	}

	s, err := c.Stream(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "999")
	require.NoError(t, err)

	out, _ := io.ReadAll(s)
	require.Empty(t, out)

	err = s.Close()
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 1, ee.ExitCode)
	require.Contains(t, ee.Stderr, "Requested format is not available")
	require.Equal(t, []string{"ERROR: Requested format is not available"}, logged)
}

func TestStream_PassesFormatAndStdoutTarget(t *testing.T) {
	c := &Client{Path: fakeYtdlp(t, `echo "$@"`)}

	s, err := c.Stream(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "bestaudio")
	require.NoError(t, err)
	out, err := io.ReadAll(s)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	args := strings.TrimSpace(string(out))
	require.True(t, strings.HasPrefix(args, "--format bestaudio"))
	require.Contains(t, args, "--output -")
	require.True(t, strings.HasSuffix(args, "https://youtu.be/dQw4w9WgXcQ"))
}

func TestStream_Validates(t *testing.T) {
	c := New()
	_, err := c.Stream(context.Background(), "", "251")
	require.Error(t, err)
	_, err = c.Stream(context.Background(), "https://youtu.be/dQw4w9WgXcQ", " ")
	require.Error(t, err)
}
