package normalize

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces a URL to origin + path: the query string (where
// utm_*/fbclid/gclid-style tracking parameters live) and the fragment are
// dropped wholesale. Two crawls of the same page then compare equal
// regardless of how the link was shared. Unparseable input falls back to
// splitting on "?" and "#".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// Not a full URL; best effort.
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			raw = raw[:i]
		}
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		return raw
	}

	return u.Scheme + "://" + u.Host + u.Path
}
