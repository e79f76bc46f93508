package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
)

type fakeStream struct {
	failures int
	calls    int
	subject  string
	payload  []byte
}

func (f *fakeStream) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("no responders")
	}
	f.subject, f.payload = subject, payload
	return &jetstream.PubAck{Stream: "SITEHEAD", Sequence: uint64(f.calls)}, nil
}

func testConfig() config.NotifyConfig {
	return config.NotifyConfig{
		Subject:      "sitehead.run.completed",
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: "fixed",
		RetryInitial: time.Millisecond,
		RetryMax:     time.Millisecond,
	}
}

func testSummary() *pipeline.RunSummary {
	return &pipeline.RunSummary{
		RunID:     "3f1c",
		Directory: "public",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Processed: 2,
		Failed:    1,
		Pages: []pipeline.PageResult{
			{Page: "a.html", Outcome: pipeline.OutcomeUpdated},
			{Page: "b.html", Outcome: pipeline.OutcomeUpdated},
			{Page: "c.html", Outcome: pipeline.OutcomeFailed},
		},
	}
}

func TestRunCompletedPublishesEvent(t *testing.T) {
	stream := &fakeStream{failures: 1}
	p := newPublisher(stream, testConfig(), "sig")

	require.NoError(t, p.RunCompleted(t.Context(), testSummary()))
	assert.Equal(t, 2, stream.calls)
	assert.Equal(t, "sitehead.run.completed", stream.subject)

	var ev RunCompletedEvent
	require.NoError(t, json.Unmarshal(stream.payload, &ev))
	assert.Equal(t, "3f1c", ev.RunID)
	assert.Equal(t, int64(1500), ev.DurationMS)
	assert.Equal(t, "partial", ev.Outcome)
	assert.Equal(t, "sig", ev.Signature)
	assert.Equal(t, []string{"c.html"}, ev.FailedPages)
}

func TestRunCompletedGivesUp(t *testing.T) {
	stream := &fakeStream{failures: 10}
	p := newPublisher(stream, testConfig(), "")

	err := p.RunCompleted(t.Context(), testSummary())
	require.Error(t, err)
	assert.Equal(t, 3, stream.calls)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newPublisher(&fakeStream{}, testConfig(), "").Close())
}
