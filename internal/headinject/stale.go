package headinject

import (
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// outdated reports whether a component taken from the page was emitted by an
// earlier run, possibly with a different path prefix or font URL. Such
// components are replaced by the fixed ones instead of kept alongside them.
func (p *Plugin) outdated(c ssr.Component) bool {
	if c.Key != "" || c.IsZero() || c.Node.Type != html.ElementNode {
		return false
	}
	n := c.Node
	switch n.DataAtom {
	case atom.Link:
		attrs := attrMap(n)
		switch {
		case hasAttrs(attrs, "rel", "stylesheet", "as", "style", "crossorigin", "anonymous"):
			return len(attrs) == 4 && attrs["href"] != ""
		case hasAttrs(attrs, "rel", "preload", "as", "font", "type", "font/woff2", "crossorigin", "anonymous"):
			return len(attrs) == 5 && p.isMonoFont(attrs["href"])
		}
	case atom.Style:
		if len(n.Attr) != 0 {
			return false
		}
		css := textContent(n)
		return css == StrikeThroughCSS ||
			strings.HasPrefix(css, "@font-face{font-family:'"+p.opts.MonoFamily+"';")
	}
	return false
}

func (p *Plugin) isMonoFont(href string) bool {
	if href == "" {
		return false
	}
	base := path.Base(href)
	return base == path.Base(p.opts.MonoNormalPath) || base == path.Base(p.opts.MonoItalicPath)
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace == "" {
			m[a.Key] = a.Val
		}
	}
	return m
}

// hasAttrs reports whether attrs holds every key/value pair in kv.
func hasAttrs(attrs map[string]string, kv ...string) bool {
	for i := 0; i+1 < len(kv); i += 2 {
		if v, ok := attrs[kv[i]]; !ok || v != kv[i+1] {
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
