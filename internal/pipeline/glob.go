package pipeline

import "github.com/bmatcuk/doublestar/v4"

// matchGlob reports whether the slash separated name matches pattern, where
// a "**" segment matches any number of path segments, including none.
// Malformed patterns match nothing.
func matchGlob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchGlob(p, name) {
			return true
		}
	}
	return false
}
