package ssr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPathPrefix(t *testing.T) {
	tests := []struct {
		raw  string
		want PathPrefix
	}{
		{"", ""},
		{"/", ""},
		{"docs", "/docs"},
		{"/docs/", "/docs"},
		{"  /blog  ", "/blog"},
		{"https://cdn.example.com/", "https://cdn.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPathPrefix(tt.raw))
		})
	}
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix PathPrefix
		path   string
		want   string
	}{
		{"root site", "", "fonts/MonoLisaVariableNormal.woff2", "/fonts/MonoLisaVariableNormal.woff2"},
		{"root site leading slash", "", "/fonts/a.woff2", "/fonts/a.woff2"},
		{"prefixed", "/blog", "fonts/a.woff2", "/blog/fonts/a.woff2"},
		{"prefixed leading slash", "/blog", "/fonts/a.woff2", "/blog/fonts/a.woff2"},
		{"asset host", "https://cdn.example.com", "fonts/a.woff2", "https://cdn.example.com/fonts/a.woff2"},
		{"absolute url untouched", "/blog", "https://example.com/a.css", "https://example.com/a.css"},
		{"protocol relative untouched", "/blog", "//example.com/a.css", "//example.com/a.css"},
		{"relative untouched", "/blog", "./a.css", "./a.css"},
		{"parent relative untouched", "/blog", "../a.css", "../a.css"},
		{"fragment untouched", "/blog", "#top", "#top"},
		{"empty", "/blog", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prefix.WithPrefix(tt.path))
		})
	}
}
