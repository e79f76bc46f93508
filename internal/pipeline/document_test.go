package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/headinject"
	"git.home.luguber.info/inful/sitehead/internal/noflash"
	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

func expectedHead(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, c := range headinject.New(headinject.Options{}).HeadComponents() {
		m, err := c.Render()
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestProcessDocumentPlacesComponents(t *testing.T) {
	p := New(newRegistry(t))

	out, outcome, err := p.ProcessDocument(t.Context(), "/index.html", []byte(samplePage))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	head := section(t, out, atom.Head)
	fixed := expectedHead(t)
	require.Len(t, head, len(fixed)+2)
	assert.Equal(t, fixed, head[:len(fixed)])
	assert.Equal(t, []string{`<meta charset="utf-8"/>`, `<title>Hello</title>`}, head[len(fixed):])

	body := section(t, out, atom.Body)
	require.NotEmpty(t, body)
	assert.Equal(t, "<script>"+noflash.Script+"</script>", body[0])
	assert.Equal(t, "<main><p>content</p></main>", body[1])
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	p := New(newRegistry(t))

	first, _, err := p.ProcessDocument(t.Context(), "/index.html", []byte(samplePage))
	require.NoError(t, err)
	second, outcome, err := p.ProcessDocument(t.Context(), "/index.html", first)
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, countOccurrences(string(second), noflash.StorageKey))
	assert.Equal(t, 1, countOccurrences(string(second), "pretendardvariable"))
}

func TestProcessDocumentKeepsUnrelatedDuplicates(t *testing.T) {
	page := strings.Replace(samplePage, "<title>Hello</title>",
		`<title>Hello</title><link rel="stylesheet" href="/site.css">`, 1)
	p := New(newRegistry(t))

	out, _, err := p.ProcessDocument(t.Context(), "/index.html", []byte(page))
	require.NoError(t, err)
	head := section(t, out, atom.Head)
	assert.Equal(t, `<link rel="stylesheet" href="/site.css"/>`, head[len(head)-1])
}

func TestProcessDocumentReplacesOutdatedPrefix(t *testing.T) {
	old := New(newRegistry(t))
	first, _, err := old.ProcessDocument(t.Context(), "/index.html", []byte(samplePage))
	require.NoError(t, err)

	prefixed := New(newRegistry(t, headinject.New(headinject.Options{Prefix: ssr.NewPathPrefix("/blog")})))
	out, outcome, err := prefixed.ProcessDocument(t.Context(), "/index.html", first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Contains(t, string(out), `href="/blog/fonts/MonoLisaVariableNormal.woff2"`)
	assert.NotContains(t, string(out), `href="/fonts/`)
	assert.NotContains(t, string(out), `url(/fonts/`)
	assert.Equal(t, 1, countOccurrences(string(out), "<script>"))

	head := section(t, out, atom.Head)
	require.Len(t, head, 7)
	assert.Equal(t, `<meta charset="utf-8"/>`, head[5])
	assert.Equal(t, `<title>Hello</title>`, head[6])
	assert.Equal(t, 2, countOccurrences(string(out), "@font-face"))
	assert.Equal(t, 1, countOccurrences(string(out), "<style>@font-face"))
}

func TestProcessDocumentOnlyRunsRegisteredHooks(t *testing.T) {
	p := New(newRegistry(t, &panicPlugin{page: "/never"}))
	out, _, err := p.ProcessDocument(t.Context(), "/index.html", []byte(samplePage))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestProcessDocumentRecoversHookPanic(t *testing.T) {
	p := New(newRegistry(t, &panicPlugin{page: "/bad.html"}))
	_, outcome, err := p.ProcessDocument(t.Context(), "/bad.html", []byte(samplePage))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryRender, ce.Category())
	assert.Equal(t, "panicky", ce.Context()["plugin"])
}

func TestProcessDocumentFragment(t *testing.T) {
	p := New(newRegistry(t))
	out, outcome, err := p.ProcessDocument(t.Context(), "/frag.html", []byte(`<p>bare</p>`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Len(t, section(t, out, atom.Head), len(expectedHead(t)))
}

func TestProcessDocumentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err := New(newRegistry(t)).ProcessDocument(ctx, "/index.html", []byte(samplePage))
	require.Error(t, err)
}

func TestFragmentComponents(t *testing.T) {
	p := New(newRegistry(t))

	preBody, err := p.PreBodyComponents("/")
	require.NoError(t, err)
	require.Len(t, preBody, 1)
	assert.Equal(t, noflash.ScriptKey, preBody[0].Key)

	head, err := p.HeadComponents("/")
	require.NoError(t, err)
	var rendered []string
	for _, c := range head {
		m, err := c.Render()
		require.NoError(t, err)
		rendered = append(rendered, m)
	}
	assert.Equal(t, expectedHead(t), rendered)
}
