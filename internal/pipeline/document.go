package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/plugin"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// ProcessDocument runs every pre-body hook and then every head hook over one
// HTML document and returns the rendered result. The outcome is
// OutcomeUnchanged when the rendered document equals the input byte for byte.
//
// Running it over its own output is a no-op: page components whose markup
// equals a component a hook has just queued are dropped.
func (p *Processor) ProcessDocument(ctx context.Context, pathname string, in []byte) ([]byte, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, OutcomeFailed, err
	}

	doc, err := html.Parse(bytes.NewReader(in))
	if err != nil {
		return nil, OutcomeFailed, ferrors.WrapError(err, ferrors.CategoryRender, "parse html").
			WithContext("page", pathname).Build()
	}
	head, body := findSection(doc, atom.Head), findSection(doc, atom.Body)
	if head == nil || body == nil {
		return nil, OutcomeFailed, ferrors.RenderError("document has no head or body").
			WithContext("page", pathname).Build()
	}

	preBody, err := p.runRenderBody(pathname)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	if len(preBody) > 0 {
		spliceBody(body, preBody)
	}

	if err := p.runPreRenderHTML(pathname, head); err != nil {
		return nil, OutcomeFailed, err
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, OutcomeFailed, ferrors.WrapError(err, ferrors.CategoryRender, "render html").
			WithContext("page", pathname).Build()
	}
	if bytes.Equal(out.Bytes(), in) {
		return out.Bytes(), OutcomeUnchanged, nil
	}
	return out.Bytes(), OutcomeUpdated, nil
}

func (p *Processor) runRenderBody(pathname string) (components []ssr.Component, err error) {
	for _, hook := range p.registry.RenderBodyHooks() {
		args := &ssr.RenderBodyArgs{
			Pathname: pathname,
			SetPreBodyComponents: func(cs []ssr.Component) {
				components = append(components, cs...)
			},
		}
		if err := callHook(hook, pathname, func() { hook.OnRenderBody(args) }); err != nil {
			return nil, err
		}
	}
	return components, nil
}

func (p *Processor) runPreRenderHTML(pathname string, head *html.Node) error {
	hooks := p.registry.PreRenderHTMLHooks()
	if len(hooks) == 0 {
		return nil
	}

	fromPage := make(map[*html.Node]bool)
	var queued []ssr.Component
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if isWhitespace(c) {
			continue
		}
		fromPage[c] = true
		queued = append(queued, ssr.FromNode(c))
	}

	queued, err := p.queueHead(hooks, pathname, queued)
	if err != nil {
		return err
	}

	added := make(map[string]bool)
	for _, c := range queued {
		if !c.IsZero() && !fromPage[c.Node] {
			added[markup(c.Node)] = true
		}
	}

	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		head.RemoveChild(c)
		c = next
	}
	for _, c := range queued {
		if c.IsZero() {
			continue
		}
		if fromPage[c.Node] && added[markup(c.Node)] {
			continue
		}
		n := c.Node
		if !fromPage[n] || n.Parent != nil {
			n = c.Clone().Node
		}
		head.AppendChild(newline())
		head.AppendChild(n)
	}
	head.AppendChild(newline())
	return nil
}

func (p *Processor) queueHead(hooks []plugin.PreRenderHTMLHook, pathname string, queued []ssr.Component) ([]ssr.Component, error) {
	for _, hook := range hooks {
		args := &ssr.PreRenderHTMLArgs{
			Pathname:              pathname,
			GetHeadComponents:     func() []ssr.Component { return append([]ssr.Component(nil), queued...) },
			ReplaceHeadComponents: func(cs []ssr.Component) { queued = append([]ssr.Component(nil), cs...) },
		}
		if err := callHook(hook, pathname, func() { hook.OnPreRenderHTML(args) }); err != nil {
			return nil, err
		}
	}
	return queued, nil
}

// PreBodyComponents returns what the registered hooks place before the body
// content of pathname.
func (p *Processor) PreBodyComponents(pathname string) ([]ssr.Component, error) {
	return p.runRenderBody(pathname)
}

// HeadComponents returns what the registered hooks queue for a page of
// pathname whose head starts out empty.
func (p *Processor) HeadComponents(pathname string) ([]ssr.Component, error) {
	queued, err := p.queueHead(p.registry.PreRenderHTMLHooks(), pathname, nil)
	if err != nil {
		return nil, err
	}
	out := queued[:0:0]
	for _, c := range queued {
		if !c.IsZero() {
			out = append(out, c)
		}
	}
	return out, nil
}

// spliceBody makes components the first children of body, replacing a
// leading run of whitespace and of elements identical to one of them.
func spliceBody(body *html.Node, components []ssr.Component) {
	added := make(map[string]bool, len(components))
	for _, c := range components {
		if !c.IsZero() {
			added[markup(c.Node)] = true
		}
	}

	for c := body.FirstChild; c != nil; {
		if !isWhitespace(c) && !added[markup(c)] {
			break
		}
		next := c.NextSibling
		body.RemoveChild(c)
		c = next
	}

	anchor := body.FirstChild
	for _, c := range components {
		if c.IsZero() {
			continue
		}
		body.InsertBefore(c.Clone().Node, anchor)
		body.InsertBefore(newline(), anchor)
	}
}

func callHook(hook any, pathname string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			name := fmt.Sprintf("%T", hook)
			if pl, ok := hook.(plugin.Plugin); ok {
				name = pl.Metadata().Name
			}
			err = ferrors.RenderError("page hook panicked").
				WithContext("page", pathname).
				WithContext("plugin", name).
				WithContext("panic", fmt.Sprint(r)).
				Build()
		}
	}()
	fn()
	return nil
}

func findSection(doc *html.Node, a atom.Atom) *html.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Html {
			continue
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				return c
			}
		}
	}
	return nil
}

func isWhitespace(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}

func markup(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}
