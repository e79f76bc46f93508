package ssr

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*?:`)

// PathPrefix resolves site-relative asset paths to deployment-correct URLs.
// The zero value serves a site mounted at the domain root.
type PathPrefix string

// NewPathPrefix normalizes a configured prefix. Path prefixes gain a leading
// slash and lose trailing ones; absolute URL prefixes (asset hosts) only lose
// trailing slashes.
func NewPathPrefix(raw string) PathPrefix {
	p := strings.TrimSpace(raw)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !IsAbsoluteURL(p) && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return PathPrefix(p)
}

// WithPrefix resolves path against the prefix. Absolute URLs, protocol
// relative URLs, explicitly relative paths and fragments are returned as-is.
func (p PathPrefix) WithPrefix(path string) string {
	if path == "" || IsAbsoluteURL(path) || strings.HasPrefix(path, "#") ||
		strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(string(p), "/") + path
}

// String returns the normalized prefix.
func (p PathPrefix) String() string {
	return string(p)
}

// IsAbsoluteURL reports whether s carries a scheme or is protocol relative.
func IsAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "//") || schemePattern.MatchString(s)
}
