// Package filename provides utilities for sanitizing strings into safe filenames.
package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLen is the maximum length of a sanitized name, in characters.
const MaxLen = 255

// invalidCharsRe matches characters not safe for filenames across all major OSes.
var invalidCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Sanitize converts an arbitrary title into a name usable as a path
// component and inside a Content-Disposition header.
//
// Illegal characters are removed, each run of whitespace becomes a single
// underscore, and the result is NFC-normalized and cut to MaxLen characters.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	s := invalidCharsRe.ReplaceAllString(name, "")
	s = collapseSpace(s)
	s = norm.NFC.String(s)

	if n := 0; len(s) > MaxLen {
		// Cut on a rune boundary.
		for i := range s {
			if n == MaxLen {
				return s[:i]
			}
			n++
		}
	}
	return s
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// AttachmentDisposition returns a Content-Disposition value that offers name
// as a download, using the RFC 5987 extended filename parameter.
func AttachmentDisposition(name string) string {
	return "attachment; filename*=UTF-8''" + encodeExtValue(name)
}

// encodeExtValue percent-encodes every byte outside the RFC 5987 attr-char set.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
