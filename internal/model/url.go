package model

import (
	"net/url"
	"strings"
)

// NormalizeURL trims raw and prefixes https:// unless it already carries an
// http or https scheme. Empty input stays empty.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// FaviconURL returns the favicon service address for the host of rawURL,
// or an empty string when rawURL has no host.
func FaviconURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(parsed.Hostname()) + "&sz=32"
}
