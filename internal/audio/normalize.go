package audio

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"thirdcoast.systems/tubeaudio/pkg/utils/format"
)

// Unknown labels a quality or size the collaborator did not report.
const Unknown = "Unknown"

// RawFormat is the backend-neutral reading of one extractor format entry.
// Zero values mean the field was absent.
type RawFormat struct {
	ID         string
	Ext        string
	AudioCodec string
	VideoCodec string
	// Bitrate is the audio bitrate in kbps.
	Bitrate float64
	// Note is a descriptive quality label such as "medium".
	Note string
	// Filesize is in bytes.
	Filesize int64
}

// AudioOnly reports whether the entry carries audio and no video.
func (f RawFormat) AudioOnly() bool {
	return hasCodec(f.AudioCodec) && !hasCodec(f.VideoCodec)
}

func hasCodec(c string) bool {
	c = strings.TrimSpace(c)
	return c != "" && !strings.EqualFold(c, "none")
}

// catalog is served when the collaborator converts to fixed MP3 bitrates and
// exposes no per-format detail. Sizes are rough estimates for a ~4 minute track.
var catalog = []Format{
	{ID: "mp3_128", Ext: "mp3", Quality: "128kbps", Size: "~5MB"},
	{ID: "mp3_192", Ext: "mp3", Quality: "192kbps", Size: "~7MB"},
	{ID: "mp3_320", Ext: "mp3", Quality: "320kbps", Size: "~10MB"},
}

// Catalog returns the static three-tier MP3 catalog, best first.
func Catalog() []Format {
	out := make([]Format, len(catalog))
	copy(out, catalog)
	SortFormats(out)
	return out
}

// Normalize filters raw to audio-only entries, labels them, and orders them
// best first. source names the collaborator in returned errors.
func Normalize(source, title string, raw []RawFormat) (*Info, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &DataError{Source: source, Field: "title"}
	}
	if len(raw) == 0 {
		return nil, &DataError{Source: source, Field: "formats"}
	}

	formats := make([]Format, 0, len(raw))
	for _, f := range raw {
		if !f.AudioOnly() || strings.TrimSpace(f.ID) == "" {
			continue
		}
		formats = append(formats, Format{
			ID:      f.ID,
			Ext:     f.Ext,
			Quality: qualityLabel(f),
			Size:    sizeLabel(f.Filesize),
		})
	}
	if len(formats) == 0 {
		return nil, &DataError{Source: source, Field: "audio formats"}
	}

	SortFormats(formats)
	return &Info{Title: title, Formats: formats}, nil
}

func qualityLabel(f RawFormat) string {
	if f.Bitrate > 0 {
		return format.Kbps(f.Bitrate)
	}
	if n := strings.TrimSpace(f.Note); n != "" {
		return n
	}
	return Unknown
}

func sizeLabel(size int64) string {
	if size > 0 {
		return format.Megabytes(size)
	}
	return Unknown
}

var leadingNumber = regexp.MustCompile(`^\d+(\.\d+)?`)

// qualityRank is the leading number of a quality label, or 0.
func qualityRank(label string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(label))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// SortFormats orders formats by descending numeric quality. Labels without a
// leading number rank as zero; ties keep their discovery order.
func SortFormats(formats []Format) {
	sort.SliceStable(formats, func(i, j int) bool {
		return qualityRank(formats[i].Quality) > qualityRank(formats[j].Quality)
	})
}
