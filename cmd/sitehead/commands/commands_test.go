package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/noflash"
)

const page = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Test</title></head>
<body><main>hello</main></body></html>
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnvironment()
	require.NoError(t, err)
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	return cfg
}

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "post.html"), []byte(page), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))
	return dir
}

func TestRunPrint(t *testing.T) {
	t.Run("body", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunPrint(&out, testConfig(t), "body"))
		assert.Equal(t, "<script>"+noflash.Script+"</script>\n", out.String())
	})

	t.Run("head", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunPrint(&out, testConfig(t), "head"))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[0], `rel="stylesheet"`)
		assert.Contains(t, lines[1], `href="/fonts/MonoLisaVariableNormal.woff2"`)
		assert.Contains(t, lines[2], `href="/fonts/MonoLisaVariableItalic.woff2"`)
		assert.True(t, strings.HasPrefix(lines[3], "<style>"))
	})

	t.Run("path prefix", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Site.PathPrefix = "docs/"
		var out bytes.Buffer
		require.NoError(t, RunPrint(&out, cfg, "head"))
		assert.Contains(t, out.String(), `href="/docs/fonts/MonoLisaVariableNormal.woff2"`)
	})

	t.Run("unknown fragment", func(t *testing.T) {
		err := RunPrint(&bytes.Buffer{}, testConfig(t), "footer")
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})
}

func TestRunInject(t *testing.T) {
	dir := writeSite(t)
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, false))
	assert.Contains(t, out.String(), "Processed 2 pages")
	assert.Contains(t, out.String(), "2 updated")

	data, err := os.ReadFile(filepath.Join(dir, "blog", "post.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), noflash.StorageKey)

	out.Reset()
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, false))
	assert.Contains(t, out.String(), "2 unchanged")
}

func TestRunInjectWithLedger(t *testing.T) {
	dir := writeSite(t)
	cfg := testConfig(t)
	cfg.State.Enabled = true

	var out bytes.Buffer
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, false))
	assert.Contains(t, out.String(), "2 updated")

	out.Reset()
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, false))
	assert.Contains(t, out.String(), "2 skipped")

	out.Reset()
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, true))
	assert.Contains(t, out.String(), "2 unchanged")
}

func TestRunHistory(t *testing.T) {
	cfg := testConfig(t)
	require.Error(t, RunHistory(t.Context(), &bytes.Buffer{}, cfg, 10))

	cfg.State.Enabled = true
	var out bytes.Buffer
	require.NoError(t, RunHistory(t.Context(), &out, cfg, 10))
	assert.Contains(t, out.String(), "No runs recorded")

	dir := writeSite(t)
	require.NoError(t, RunInject(t.Context(), &bytes.Buffer{}, cfg, dir, false))
	require.NoError(t, RunInject(t.Context(), &bytes.Buffer{}, cfg, dir, false))

	out.Reset()
	require.NoError(t, RunHistory(t.Context(), &out, cfg, 10))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "OUTCOME")
	assert.Contains(t, lines[1], "success")
}

func TestRunInjectMissingDir(t *testing.T) {
	err := RunInject(t.Context(), &bytes.Buffer{}, testConfig(t), filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestRunCheck(t *testing.T) {
	t.Run("built-in script", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCheck(t.Context(), &out, nil))
		assert.Contains(t, out.String(), "== built-in")
		assert.NotContains(t, out.String(), "FAIL")
	})

	t.Run("injected page", func(t *testing.T) {
		dir := writeSite(t)
		require.NoError(t, RunInject(t.Context(), &bytes.Buffer{}, testConfig(t), dir, false))

		var out bytes.Buffer
		require.NoError(t, RunCheck(t.Context(), &out, []string{filepath.Join(dir, "index.html")}))
		assert.Contains(t, out.String(), "index.html#1")
	})

	t.Run("broken script", func(t *testing.T) {
		broken := `<html><head></head><body><script>
document.documentElement.classList.add('theme-ui-dark');
localStorage.getItem('theme-ui-color-mode');
</script></body></html>`
		path := filepath.Join(t.TempDir(), "broken.html")
		require.NoError(t, os.WriteFile(path, []byte(broken), 0o600))

		var out bytes.Buffer
		err := RunCheck(t.Context(), &out, []string{path})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryScript))
		assert.Contains(t, out.String(), "FAIL")
	})

	t.Run("page without script", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.html")
		require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

		err := RunCheck(t.Context(), &bytes.Buffer{}, []string{path})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitehead.yaml")

	var out bytes.Buffer
	require.NoError(t, RunInit(&out, path, false))
	assert.Contains(t, out.String(), "initialized successfully")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Site.Workers)

	err = RunInit(&bytes.Buffer{}, path, false)
	require.Error(t, err)
	require.NoError(t, RunInit(&bytes.Buffer{}, path, true))
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Format = config.LogFormatJSON
	cfg.Logging.Level = config.NormalizeLogLevel("warn")

	var buf bytes.Buffer
	logger := NewLogger(&buf, false, cfg)
	logger.Info("hidden")
	logger.Warn("shown", "page", "/index.html")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "/index.html", entry["page"])

	buf.Reset()
	NewLogger(&buf, true, cfg).Debug("debug")
	assert.Contains(t, buf.String(), `"msg":"debug"`)
}

func TestCLIParse(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("sitehead"), kong.Vars{"version": "test"})
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")
	kctx, err := parser.Parse([]string{"-c", cfgPath, "print", "head"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kctx.Command(), "print"))

	var out bytes.Buffer
	require.NoError(t, kctx.Run(&Global{Out: &out}, &cli))
	assert.Contains(t, out.String(), "MonoLisaVariableNormal.woff2")
}

func TestMetricsRouter(t *testing.T) {
	reg := metrics.NewRegistry()
	metrics.NewPrometheusRecorder(reg).IncServedPage(true)
	h := metricsRouter(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "served_pages_total")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunInjectAfterPrefixChange(t *testing.T) {
	dir := writeSite(t)
	cfg := testConfig(t)
	cfg.State.Enabled = true
	require.NoError(t, RunInject(t.Context(), &bytes.Buffer{}, cfg, dir, false))

	cfg.Site.PathPrefix = "/blog"
	var out bytes.Buffer
	require.NoError(t, RunInject(t.Context(), &out, cfg, dir, false))
	assert.Contains(t, out.String(), "2 updated")

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `href="/blog/fonts/MonoLisaVariableNormal.woff2"`)
	assert.NotContains(t, string(data), `href="/fonts/`)
	assert.Equal(t, 1, strings.Count(string(data), "<style>@font-face"))
}
