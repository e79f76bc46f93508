package metrics

import "time"

// ResultLabel enumerates per-page result categories for counters.
type ResultLabel string

const (
	ResultUpdated   ResultLabel = "updated"
	ResultUnchanged ResultLabel = "unchanged"
	ResultSkipped   ResultLabel = "skipped"
	ResultFailed    ResultLabel = "failed"
)

// OutcomeLabel enumerates whole-run outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomePartial  OutcomeLabel = "partial"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for page and run metrics.
// Implementations must be safe for concurrent use by pipeline workers.
type Recorder interface {
	ObservePageDuration(d time.Duration)
	IncPageResult(result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	IncServedPage(injected bool)
	IncNotification(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePageDuration(time.Duration) {}
func (NoopRecorder) IncPageResult(ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)  {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)        {}
func (NoopRecorder) IncServedPage(bool)                {}
func (NoopRecorder) IncNotification(bool)              {}
