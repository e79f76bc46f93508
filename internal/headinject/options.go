package headinject

import "git.home.luguber.info/inful/sitehead/internal/ssr"

// Defaults for Options.
const (
	DefaultStylesheetURL  = "https://cdn.jsdelivr.net/gh/orioncactus/pretendard@v1.3.9/dist/web/variable/pretendardvariable-dynamic-subset.min.css"
	DefaultMonoFamily     = "ml"
	DefaultMonoNormalPath = "fonts/MonoLisaVariableNormal.woff2"
	DefaultMonoItalicPath = "fonts/MonoLisaVariableItalic.woff2"
)

// Options configures the emitted font tags.
type Options struct {
	// Prefix resolves the local font paths.
	Prefix ssr.PathPrefix

	// StylesheetURL is the external font stylesheet.
	StylesheetURL string

	// MonoFamily is the font-family name declared for the local fonts.
	MonoFamily string

	// MonoNormalPath and MonoItalicPath are site-relative woff2 paths.
	MonoNormalPath string
	MonoItalicPath string
}

func (o Options) withDefaults() Options {
	if o.StylesheetURL == "" {
		o.StylesheetURL = DefaultStylesheetURL
	}
	if o.MonoFamily == "" {
		o.MonoFamily = DefaultMonoFamily
	}
	if o.MonoNormalPath == "" {
		o.MonoNormalPath = DefaultMonoNormalPath
	}
	if o.MonoItalicPath == "" {
		o.MonoItalicPath = DefaultMonoItalicPath
	}
	return o
}
