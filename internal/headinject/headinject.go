// Package headinject is the page customization plugin: it places the dark-mode
// flash prevention script before the body and the font and style tags at the
// top of the head.
package headinject

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/sitehead/internal/noflash"
	"git.home.luguber.info/inful/sitehead/internal/plugin"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

const (
	// Name is the plugin's registry name.
	Name = "headinject"

	// Version is bumped whenever the emitted markup changes.
	Version = "v1.0.0"
)

// Component keys, in emission order.
const (
	KeyFontStylesheet = "font-pretendard"
	KeyMonoNormal     = "font-ml"
	KeyMonoItalic     = "font-ml-italic"
	KeyFontFace       = "font-face.ml"
	KeyStrikeThrough  = "strike-through"
)

// Plugin implements both page lifecycle hooks. Its components are built once
// in New and shared, read-only, by every page.
type Plugin struct {
	plugin.BasePlugin

	opts     Options
	preBody  []ssr.Component
	head     []ssr.Component
	fontFace string
}

var (
	_ plugin.RenderBodyHook    = (*Plugin)(nil)
	_ plugin.PreRenderHTMLHook = (*Plugin)(nil)
)

// New builds the plugin for the given options; zero fields take defaults.
func New(opts Options) *Plugin {
	opts = opts.withDefaults()

	normal := opts.Prefix.WithPrefix(opts.MonoNormalPath)
	italic := opts.Prefix.WithPrefix(opts.MonoItalicPath)
	fontFace := FontFaceCSS(opts.MonoFamily, normal, italic)

	p := &Plugin{opts: opts, fontFace: fontFace}
	p.preBody = []ssr.Component{
		ssr.InlineScript(noflash.ScriptKey, noflash.Script),
	}
	p.head = []ssr.Component{
		ssr.Link(KeyFontStylesheet,
			ssr.Attr("rel", "stylesheet"),
			ssr.Attr("href", opts.StylesheetURL),
			ssr.Attr("as", "style"),
			ssr.Attr("crossorigin", "anonymous"),
		),
		fontPreload(KeyMonoNormal, normal),
		fontPreload(KeyMonoItalic, italic),
		ssr.InlineStyle(KeyFontFace, fontFace),
		ssr.InlineStyle(KeyStrikeThrough, StrikeThroughCSS),
	}
	return p
}

func fontPreload(key, href string) ssr.Component {
	return ssr.Link(key,
		ssr.Attr("rel", "preload"),
		ssr.Attr("href", href),
		ssr.Attr("as", "font"),
		ssr.Attr("type", "font/woff2"),
		ssr.Attr("crossorigin", "anonymous"),
	)
}

// Metadata implements plugin.Plugin.
func (p *Plugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        Name,
		Version:     Version,
		Type:        plugin.PluginTypeSSR,
		Description: "Dark-mode flash prevention script, web fonts and inline styles",
		Capabilities: []string{
			plugin.CapabilityPreBody.String(),
			plugin.CapabilityHead.String(),
			plugin.CapabilityDarkMode.String(),
			plugin.CapabilityFonts.String(),
		},
	}
}

// Validate implements plugin.Plugin.
func (p *Plugin) Validate() error {
	var errs []error
	if !ssr.IsAbsoluteURL(p.opts.StylesheetURL) {
		errs = append(errs, fmt.Errorf("stylesheet url %q must be absolute", p.opts.StylesheetURL))
	}
	if p.opts.MonoFamily == "" {
		errs = append(errs, errors.New("mono font family is required"))
	}
	for _, c := range slices.Concat(p.preBody, p.head) {
		if _, err := c.Render(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnRenderBody queues the flash prevention script.
func (p *Plugin) OnRenderBody(args *ssr.RenderBodyArgs) {
	args.SetPreBodyComponents(p.preBody)
}

// OnPreRenderHTML puts the fixed font and style components ahead of the
// components already queued, which keep their relative order. Font and style
// tags left by a run with other options are dropped.
func (p *Plugin) OnPreRenderHTML(args *ssr.PreRenderHTMLArgs) {
	queued := slices.DeleteFunc(slices.Clone(args.GetHeadComponents()), p.outdated)
	args.ReplaceHeadComponents(slices.Concat(p.head, queued))
}

// PreBodyComponents returns the components queued before the body.
func (p *Plugin) PreBodyComponents() []ssr.Component {
	return slices.Clone(p.preBody)
}

// HeadComponents returns the fixed head components in emission order.
func (p *Plugin) HeadComponents() []ssr.Component {
	return slices.Clone(p.head)
}

// Fingerprint hashes the emitted markup so processed pages can be told apart
// from pages processed with different options.
func (p *Plugin) Fingerprint() string {
	h := sha256.New()
	for _, c := range slices.Concat(p.preBody, p.head) {
		markup, _ := c.Render()
		h.Write([]byte(markup))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
