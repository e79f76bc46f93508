// Package ledger persists which pages sitehead has already injected, and a
// history of runs, so repeated runs can skip untouched pages.
package ledger

import (
	"context"
	"time"
)

// Entry records the last successful injection of one page.
type Entry struct {
	Page        string // Site-relative path with forward slashes
	InputHash   string
	OutputHash  string
	Signature   string // Plugin registry signature the output was produced with
	ProcessedAt time.Time
}

// Current reports whether a page whose content now hashes to hash was last
// written by a registry with signature, so reprocessing it is pointless.
func (e Entry) Current(hash, signature string) bool {
	return e.Signature == signature && e.OutputHash == hash
}

// Run summarizes one completed site run.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Processed int
	Unchanged int
	Skipped   int
	Failed    int
	Outcome   string
}

// Store persists page entries and run history. Implementations are safe for
// concurrent use.
type Store interface {
	Lookup(ctx context.Context, page string) (Entry, bool, error)
	Record(ctx context.Context, e Entry) error
	Forget(ctx context.Context, page string) error
	RecordRun(ctx context.Context, r Run) error
	Runs(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
