// Package notify publishes run completion events to NATS JetStream.
package notify

import (
	"os"
	"time"

	"git.home.luguber.info/inful/sitehead/internal/pipeline"
)

// RunCompletedEvent is the JSON payload published after every site run.
type RunCompletedEvent struct {
	RunID       string    `json:"run_id"`
	Host        string    `json:"host,omitempty"`
	Directory   string    `json:"directory"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Processed   int       `json:"processed"`
	Unchanged   int       `json:"unchanged"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Outcome     string    `json:"outcome"`
	Signature   string    `json:"signature,omitempty"`
	FailedPages []string  `json:"failed_pages,omitempty"`
}

// NewRunCompletedEvent builds the event for summary.
func NewRunCompletedEvent(summary *pipeline.RunSummary, signature string) RunCompletedEvent {
	host, _ := os.Hostname()
	ev := RunCompletedEvent{
		RunID:      summary.RunID,
		Host:       host,
		Directory:  summary.Directory,
		StartedAt:  summary.StartedAt.UTC(),
		DurationMS: summary.Duration.Milliseconds(),
		Processed:  summary.Processed,
		Unchanged:  summary.Unchanged,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		Outcome:    string(summary.Outcome()),
		Signature:  signature,
	}
	for _, p := range summary.Pages {
		if p.Outcome == pipeline.OutcomeFailed {
			ev.FailedPages = append(ev.FailedPages, p.Page)
		}
	}
	return ev
}
