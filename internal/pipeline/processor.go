// Package pipeline runs the registered page hooks over generated HTML: one
// document, one file on disk, or a whole site directory.
package pipeline

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitehead/internal/ledger"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/plugin"
)

// Outcome is the result of processing one page.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) resultLabel() metrics.ResultLabel {
	return metrics.ResultLabel(o)
}

// Notifier is told about every completed site run.
type Notifier interface {
	RunCompleted(ctx context.Context, summary *RunSummary) error
}

// Processor applies a plugin registry to HTML pages. It is safe for
// concurrent use.
type Processor struct {
	registry *plugin.Registry
	ledger   ledger.Store
	recorder metrics.Recorder
	notifier Notifier
	workers  int
	include  []string
	exclude  []string
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithLedger enables skipping pages already processed with the current
// registry signature.
func WithLedger(store ledger.Store) Option {
	return func(p *Processor) { p.ledger = store }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Processor) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithNotifier sets the run completion notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithWorkers bounds the number of pages processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPatterns restricts ProcessSite to pages matching include and not
// matching exclude. Patterns are slash separated and support "**".
func WithPatterns(include, exclude []string) Option {
	return func(p *Processor) {
		if len(include) > 0 {
			p.include = include
		}
		p.exclude = exclude
	}
}

// New creates a Processor for registry.
func New(registry *plugin.Registry, opts ...Option) *Processor {
	p := &Processor{
		registry: registry,
		recorder: metrics.NoopRecorder{},
		workers:  4,
		include:  []string{"**/*.html"},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the processor's plugin registry.
func (p *Processor) Registry() *plugin.Registry {
	return p.registry
}
