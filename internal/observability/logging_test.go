package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithCommand(ctx, "inject")
	ctx = WithPage(ctx, "blog/index.html")
	ctx = WithStage(ctx, "parse")

	lc := GetContext(ctx)
	assert.Equal(t, LogContext{RunID: "run-1", Command: "inject", Page: "blog/index.html", Stage: "parse"}, lc)
}

func TestContextValuesAreScoped(t *testing.T) {
	parent := WithRunID(context.Background(), "run-1")
	child := WithPage(parent, "a.html")

	assert.Empty(t, GetContext(parent).Page)
	assert.Equal(t, "run-1", GetContext(child).RunID)
}

func TestInfoContextIncludesAttrs(t *testing.T) {
	buf := captureLogs(t)
	ctx := WithPage(WithRunID(context.Background(), "run-42"), "index.html")

	InfoContext(ctx, "Page processed", slog.Int("bytes", 10))

	out := buf.String()
	assert.Contains(t, out, "run_id=run-42")
	assert.Contains(t, out, "page=index.html")
	assert.Contains(t, out, "bytes=10")
	assert.NotContains(t, out, "stage=")
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t)
	ctx := context.Background()

	DebugContext(ctx, "d")
	WarnContext(ctx, "w")
	ErrorContext(ctx, "e")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}

func TestStageEnd(t *testing.T) {
	buf := captureLogs(t)

	ctx, stage := StartStage(WithRunID(context.Background(), "r"), "walk")
	assert.Equal(t, "walk", GetContext(ctx).Stage)
	assert.Equal(t, "walk", stage.Name())

	base := stage.start
	stage.now = func() time.Time { return base.Add(1500 * time.Microsecond) }
	require.Equal(t, 1500*time.Microsecond, stage.End(nil))
	assert.Contains(t, buf.String(), "Stage completed")
	assert.Contains(t, buf.String(), "duration_ms=1.5")

	stage.End(errors.New("boom"))
	assert.Contains(t, buf.String(), "Stage failed")
	assert.Contains(t, buf.String(), "error=boom")
}
