package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/sitehead/internal/config"
	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/pipeline"
	"git.home.luguber.info/inful/sitehead/internal/retry"
)

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends RunCompletedEvents to a JetStream subject.
type Publisher struct {
	conn      *nats.Conn
	js        streamPublisher
	subject   string
	timeout   time.Duration
	policy    retry.Policy
	signature string
}

var _ pipeline.Notifier = (*Publisher)(nil)

// Connect dials NATS and makes sure a stream captures the configured subject.
func Connect(ctx context.Context, cfg config.NotifyConfig, signature string) (*Publisher, error) {
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("sitehead"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "connect to NATS").
			WithContext("url", cfg.NATSURL).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "create JetStream context").Build()
	}

	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "sitehead run notifications",
		Subjects:    []string{cfg.Subject},
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "ensure notification stream").
			WithContext("stream", cfg.Stream).Build()
	}

	slog.Info("NATS notifications enabled",
		slog.String("url", cfg.NATSURL),
		logfields.Subject(cfg.Subject),
		slog.String("stream", cfg.Stream))

	p := newPublisher(js, cfg, signature)
	p.conn = conn
	return p, nil
}

func newPublisher(js streamPublisher, cfg config.NotifyConfig, signature string) *Publisher {
	return &Publisher{
		js:        js,
		subject:   cfg.Subject,
		timeout:   cfg.Timeout,
		policy:    retry.NewPolicy(retry.BackoffMode(cfg.RetryBackoff), cfg.RetryInitial, cfg.RetryMax, cfg.MaxRetries),
		signature: signature,
	}
}

// RunCompleted implements pipeline.Notifier.
func (p *Publisher) RunCompleted(ctx context.Context, summary *pipeline.RunSummary) error {
	data, err := json.Marshal(NewRunCompletedEvent(summary, p.signature))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal run event").Build()
	}

	err = retry.Do(ctx, p.policy, func(ctx context.Context) error {
		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if _, err := p.js.Publish(pubCtx, p.subject, data, jetstream.WithMsgID(summary.RunID)); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryNotify, "publish run event").
				WithContext("subject", p.subject).Retryable().Build()
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("Published run event", logfields.RunID(summary.RunID), logfields.Subject(p.subject))
	return nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
