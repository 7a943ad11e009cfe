package format

import (
	"fmt"
	"unicode/utf8"
)

const mebibyte = 1024 * 1024

// Megabytes renders a byte count as a one-decimal megabyte label (e.g. "3.4 MB").
func Megabytes(b int64) string {
	return fmt.Sprintf("%.1f MB", float64(b)/mebibyte)
}

// Kbps renders an audio bitrate in kilobits per second (e.g. "128kbps").
// Fractional rates are rounded to the nearest integer.
func Kbps(rate float64) string {
	return fmt.Sprintf("%.0fkbps", rate)
}

// Truncate returns s cut to at most max bytes with a "..." suffix,
// never splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
