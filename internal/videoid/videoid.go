package videoid

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// IDLength is the length of a YouTube video identifier.
const IDLength = 11

// ErrInvalidURL is returned when no video identifier can be extracted.
var ErrInvalidURL = errors.New("invalid youtube url")

// idPattern recognizes short links, embedded players, channel-relative links
// and the watch?v= / &v= query forms. The second group is the candidate ID.
var idPattern = regexp.MustCompile(`^.*(youtu.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// Well-known host aliases. Key: input host. Value: canonical domain.
var canonicalDomainByHost = map[string]string{
	"youtube.com":          "youtube.com",
	"www.youtube.com":      "youtube.com",
	"m.youtube.com":        "youtube.com",
	"music.youtube.com":    "youtube.com",
	"youtube-nocookie.com": "youtube.com",
	"youtu.be":             "youtube.com",
}

// ExtractID returns the 11 character video ID contained in raw.
// Anything that does not match one of the known URL shapes, or whose
// captured token has the wrong length, yields ErrInvalidURL.
func ExtractID(raw string) (string, error) {
	m := idPattern.FindStringSubmatch(raw)
	if m == nil || utf8.RuneCountInString(m[2]) != IDLength {
		return "", ErrInvalidURL
	}
	return m[2], nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(strings.TrimSpace(id))
}

// ResolveCanonicalDomain returns the canonical domain for host.
//
// host should be a hostname without port.
func ResolveCanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// Domain best-effort parses raw and returns its canonical domain.
// Returns "" when raw has no recognizable host.
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		// Best effort: treat as https.
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return ResolveCanonicalDomain(u.Host)
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	h = strings.TrimSuffix(h, ".")
	return h
}
