package search

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the deduplication key for a result URL: scheme and
// host lower-cased, a leading "www." removed, the fragment dropped and a
// trailing slash trimmed. Strings that do not parse as absolute URLs are
// returned trimmed and lower-cased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	return u.String()
}
