package parser

import (
	"net/url"
	"strings"
)

// NormalizeHref makes href absolute against base. Empty input returns "".
// Absolute http(s) URLs pass through untouched, everything else loses its
// leading slashes and is resolved relative to base.
func NormalizeHref(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if IsAbsolute(href) {
		return href
	}

	rel := strings.TrimLeft(href, "/")
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" {
		return joinFallback(base, rel)
	}
	refURL, err := url.Parse(rel)
	if err != nil {
		return joinFallback(base, rel)
	}
	return baseURL.ResolveReference(refURL).String()
}

func IsAbsolute(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

// PathOnly reduces an absolute URL to its path and query. Relative input is
// returned as is.
func PathOnly(href string) string {
	if !IsAbsolute(href) {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || u.Path == "" {
		return href
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func joinFallback(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimRight(base, "/") + "/" + rel
}
