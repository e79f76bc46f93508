package ssr

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Component is one element queued for a document section.
//
// Key identifies plugin-provided components (it is never rendered). Components
// taken from an existing page carry an empty key.
type Component struct {
	Key  string
	Node *html.Node
}

// Element builds an element component. When inner is non-empty it becomes the
// element's raw text content, which is only meaningful for raw-text elements
// such as script and style.
func Element(tag, key string, attrs []html.Attribute, inner string) Component {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	if inner != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: inner})
	}
	return Component{Key: key, Node: n}
}

// InlineScript builds a script element whose body is emitted verbatim.
func InlineScript(key, body string) Component {
	return Element("script", key, nil, body)
}

// InlineStyle builds a style element whose body is emitted verbatim.
func InlineStyle(key, css string) Component {
	return Element("style", key, nil, css)
}

// Link builds a link element with attributes in the given order.
func Link(key string, attrs ...html.Attribute) Component {
	return Element("link", key, attrs, "")
}

// Attr is shorthand for an html.Attribute without namespace.
func Attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// FromNode wraps a node taken from a parsed document.
func FromNode(n *html.Node) Component {
	return Component{Node: n}
}

// IsZero reports whether the component carries no node.
func (c Component) IsZero() bool {
	return c.Node == nil
}

// Clone returns a deep copy detached from any tree, so the same plugin
// component can be spliced into many documents.
func (c Component) Clone() Component {
	return Component{Key: c.Key, Node: cloneNode(c.Node)}
}

// Render returns the component's HTML markup.
func (c Component) Render() (string, error) {
	if c.Node == nil {
		return "", fmt.Errorf("component %q has no node", c.Key)
	}
	var b strings.Builder
	if err := html.Render(&b, c.Node); err != nil {
		return "", fmt.Errorf("render component %q: %w", c.Key, err)
	}
	return b.String(), nil
}

// RenderAll concatenates the markup of components, one per line.
func RenderAll(components []Component) (string, error) {
	var b strings.Builder
	for _, c := range components {
		markup, err := c.Render()
		if err != nil {
			return "", err
		}
		b.WriteString(markup)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func cloneNode(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		out.Attr = make([]html.Attribute, len(n.Attr))
		copy(out.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out.AppendChild(cloneNode(child))
	}
	return out
}
