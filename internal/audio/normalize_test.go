package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func qualities(formats []Format) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.Quality)
	}
	return out
}

func TestNormalize_SortsByBitrateDescending(t *testing.T) {
	t.Parallel()

	info, err := Normalize("test", "Song", []RawFormat{
		{ID: "a", Ext: "m4a", AudioCodec: "mp4a.40.2", VideoCodec: "none", Bitrate: 128},
		{ID: "b", Ext: "webm", AudioCodec: "opus", VideoCodec: "none", Bitrate: 320},
		{ID: "c", Ext: "webm", AudioCodec: "opus", VideoCodec: "none", Bitrate: 192},
	})
	require.NoError(t, err)
	require.Equal(t, "Song", info.Title)
	require.Equal(t, []string{"320kbps", "192kbps", "128kbps"}, qualities(info.Formats))
	require.Equal(t, "b", info.Formats[0].ID)
}

func TestNormalize_NonNumericQualityLast(t *testing.T) {
	t.Parallel()

	info, err := Normalize("test", "Song", []RawFormat{
		{ID: "n1", AudioCodec: "opus", Note: "low"},
		{ID: "x", AudioCodec: "opus"},
		{ID: "a", AudioCodec: "opus", Bitrate: 48},
		{ID: "n2", AudioCodec: "opus", Note: "medium"},
		{ID: "b", AudioCodec: "opus", Bitrate: 160},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"160kbps", "48kbps", "low", Unknown, "medium"}, qualities(info.Formats))
}

func TestNormalize_FiltersToAudioOnly(t *testing.T) {
	t.Parallel()

	info, err := Normalize("test", "Song", []RawFormat{
		{ID: "18", Ext: "mp4", AudioCodec: "mp4a.40.2", VideoCodec: "avc1.42001E", Bitrate: 96},
		{ID: "137", Ext: "mp4", AudioCodec: "none", VideoCodec: "avc1.640028"},
		{ID: "sb0", Ext: "mhtml", AudioCodec: "none", VideoCodec: "none"},
		{ID: "251", Ext: "webm", AudioCodec: "opus", VideoCodec: "none", Bitrate: 129.5, Filesize: 3565158},
		{ID: "", Ext: "webm", AudioCodec: "opus", VideoCodec: "none", Bitrate: 200},
	})
	require.NoError(t, err)
	require.Equal(t, []Format{{ID: "251", Ext: "webm", Quality: "130kbps", Size: "3.4 MB"}}, info.Formats)
}

func TestNormalize_Labels(t *testing.T) {
	t.Parallel()

	require.Equal(t, "128kbps", qualityLabel(RawFormat{Bitrate: 128, Note: "medium"}))
	require.Equal(t, "medium", qualityLabel(RawFormat{Note: " medium "}))
	require.Equal(t, Unknown, qualityLabel(RawFormat{}))
	require.Equal(t, Unknown, sizeLabel(0))
	require.Equal(t, "10.0 MB", sizeLabel(10*1024*1024))
}

func TestNormalize_DataErrors(t *testing.T) {
	t.Parallel()

	audioOnly := []RawFormat{{ID: "251", AudioCodec: "opus"}}

	tests := []struct {
		name  string
		title string
		raw   []RawFormat
		field string
	}{
		{"missing title", "  ", audioOnly, "title"},
		{"missing formats", "Song", nil, "formats"},
		{"no audio-only formats", "Song", []RawFormat{{ID: "18", AudioCodec: "mp4a", VideoCodec: "avc1"}}, "audio formats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize("ytdlp", tt.title, tt.raw)
			var de *DataError
			require.True(t, errors.As(err, &de))
			require.Equal(t, tt.field, de.Field)
			require.Equal(t, "ytdlp", de.Source)
		})
	}
}

func TestCatalog_IsSortedCopy(t *testing.T) {
	t.Parallel()

	c := Catalog()
	require.Equal(t, []string{"320kbps", "192kbps", "128kbps"}, qualities(c))
	require.Equal(t, "mp3_320", c[0].ID)

	c[0].ID = "mutated"
	require.Equal(t, "mp3_320", Catalog()[0].ID)
}

func TestSortFormats_Stable(t *testing.T) {
	t.Parallel()

	formats := []Format{
		{ID: "1", Quality: "128kbps"},
		{ID: "2", Quality: "128kbps"},
		{ID: "3", Quality: "320kbps"},
	}
	SortFormats(formats)
	require.Equal(t, "3", formats[0].ID)
	require.Equal(t, "1", formats[1].ID)
	require.Equal(t, "2", formats[2].ID)
}

func TestProtocolError_Message(t *testing.T) {
	t.Parallel()

	err := NewProtocolError("mp36", 403, 0, "forbidden", nil)
	require.Equal(t, "mp36: unexpected status 403: forbidden", err.Error())

	cause := errors.New("exit status 1")
	err = NewProtocolError("ytdlp", 0, 1, "ERROR: Video unavailable", cause)
	require.Equal(t, "ytdlp: exited with code 1: ERROR: Video unavailable", err.Error())
	require.ErrorIs(t, err, cause)

	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	err = NewProtocolError("mp36", 500, 0, string(long), nil)
	require.LessOrEqual(t, len(err.Body), maxBodyDetail)
}
