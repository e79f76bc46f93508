package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/sitehead/internal/headinject"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/plugin"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Hello</title>
</head>
<body>
<main><p>content</p></main>
</body>
</html>
`

func newRegistry(t *testing.T, plugins ...plugin.Plugin) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry()
	if len(plugins) == 0 {
		plugins = []plugin.Plugin{headinject.New(headinject.Options{})}
	}
	for _, p := range plugins {
		require.NoError(t, reg.Register(p))
	}
	return reg
}

func writePage(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readPage(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// section returns the non-whitespace children of the document's head or body,
// rendered.
func section(t *testing.T, doc []byte, a atom.Atom) []string {
	t.Helper()
	root, err := html.Parse(bytes.NewReader(doc))
	require.NoError(t, err)
	n := findSection(root, a)
	require.NotNil(t, n)

	var out []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isWhitespace(c) {
			continue
		}
		out = append(out, markup(c))
	}
	return out
}

// panicPlugin panics in its pre-body hook for the configured page.
type panicPlugin struct {
	plugin.BasePlugin
	page string
}

func (p *panicPlugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: "panicky", Version: "v0.0.1", Type: plugin.PluginTypeSSR}
}

func (p *panicPlugin) OnRenderBody(args *ssr.RenderBodyArgs) {
	if args.Pathname == p.page {
		panic("boom")
	}
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []*RunSummary
}

func (n *fakeNotifier) RunCompleted(_ context.Context, s *RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[metrics.ResultLabel]int
	outcomes map[metrics.OutcomeLabel]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{results: map[metrics.ResultLabel]int{}, outcomes: map[metrics.OutcomeLabel]int{}}
}

func (r *countingRecorder) IncPageResult(l metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[l]++
}

func (r *countingRecorder) IncRunOutcome(o metrics.OutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o]++
}

func countOccurrences(s, sub string) int {
	return strings.Count(s, sub)
}
