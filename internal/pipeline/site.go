package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/ledger"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/metrics"
	"git.home.luguber.info/inful/sitehead/internal/observability"
)

// PageResult is the outcome for one page of a run.
type PageResult struct {
	Page    string
	Outcome Outcome
	Err     error
}

// RunSummary describes a completed site run.
type RunSummary struct {
	RunID     string
	Directory string
	StartedAt time.Time
	Duration  time.Duration
	Processed int // Pages rewritten
	Unchanged int
	Skipped   int
	Failed    int
	Canceled  bool
	Pages     []PageResult
}

// Total returns the number of pages that were considered.
func (s *RunSummary) Total() int {
	return s.Processed + s.Unchanged + s.Skipped + s.Failed
}

// Outcome classifies the run as a whole.
func (s *RunSummary) Outcome() metrics.OutcomeLabel {
	switch {
	case s.Canceled:
		return metrics.OutcomeCanceled
	case s.Failed > 0 && s.Failed == s.Total():
		return metrics.OutcomeFailed
	case s.Failed > 0:
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeSuccess
	}
}

func (s *RunSummary) add(r PageResult) {
	s.Pages = append(s.Pages, r)
	switch r.Outcome {
	case OutcomeUpdated:
		s.Processed++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// ProcessSite processes every matching page under dir with a bounded worker
// pool. A page failure does not stop the others; all page errors are joined
// into the returned error. The summary is returned even when err is non-nil.
func (p *Processor) ProcessSite(ctx context.Context, dir string, force bool) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Directory: dir,
		StartedAt: p.now(),
	}
	ctx = observability.WithRunID(ctx, summary.RunID)
	observability.InfoContext(ctx, "Starting site run", logfields.Path(dir), slog.Bool("force", force))

	walkCtx, stage := observability.StartStage(ctx, "discover")
	pages, err := p.discover(walkCtx, dir)
	stage.End(err)
	if err != nil {
		summary.Canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		p.finish(ctx, summary)
		return summary, err
	}

	injectCtx, stage := observability.StartStage(ctx, "inject")
	errs := p.processPages(injectCtx, dir, pages, force, summary)
	if ctxErr := ctx.Err(); ctxErr != nil {
		summary.Canceled = true
		errs = append(errs, ctxErr)
	}
	runErr := errors.Join(errs...)
	stage.End(runErr)
	slices.SortFunc(summary.Pages, func(a, b PageResult) int { return strings.Compare(a.Page, b.Page) })

	p.finish(ctx, summary)
	return summary, runErr
}

func (p *Processor) processPages(ctx context.Context, dir string, pages []string, force bool, summary *RunSummary) []error {
	sem := make(chan struct{}, p.workers)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, page := range pages {
		select {
		case <-ctx.Done():
			wg.Wait()
			return errs
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(page string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := p.ProcessFile(ctx, dir, page, force)

			mu.Lock()
			defer mu.Unlock()
			summary.add(PageResult{Page: filepath.ToSlash(page), Outcome: outcome, Err: err})
			if err != nil {
				observability.WarnContext(ctx, "Page failed", logfields.Page(filepath.ToSlash(page)), logfields.Error(err))
				errs = append(errs, err)
			}
		}(page)
	}
	wg.Wait()
	return errs
}

// discover lists pages under dir, relative to it, in walk order.
func (p *Processor) discover(ctx context.Context, dir string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if p.Matches(rel) {
			pages = append(pages, rel)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "walk site directory").
			WithContext("path", dir).Build()
	}
	observability.DebugContext(ctx, "Discovered pages", logfields.Count(len(pages)))
	return pages, nil
}

// Matches reports whether the site-relative path rel is a page ProcessSite
// would process.
func (p *Processor) Matches(rel string) bool {
	name := filepath.ToSlash(rel)
	return matchAny(p.include, name) && !matchAny(p.exclude, name)
}

func (p *Processor) finish(ctx context.Context, summary *RunSummary) {
	summary.Duration = p.now().Sub(summary.StartedAt)
	p.recorder.ObserveRunDuration(summary.Duration)
	p.recorder.IncRunOutcome(summary.Outcome())

	// Recording and notifying must outlive a canceled run context.
	bg := context.WithoutCancel(ctx)

	if p.ledger != nil {
		err := p.ledger.RecordRun(bg, ledger.Run{
			ID:        summary.RunID,
			StartedAt: summary.StartedAt,
			Duration:  summary.Duration,
			Processed: summary.Processed,
			Unchanged: summary.Unchanged,
			Skipped:   summary.Skipped,
			Failed:    summary.Failed,
			Outcome:   string(summary.Outcome()),
		})
		if err != nil {
			observability.WarnContext(ctx, "Failed to record run", logfields.Error(err))
		}
	}

	if p.notifier != nil {
		err := p.notifier.RunCompleted(bg, summary)
		p.recorder.IncNotification(err == nil)
		if err != nil {
			observability.WarnContext(ctx, "Failed to publish run notification", logfields.Error(err))
		}
	}

	observability.InfoContext(ctx, "Site run completed",
		logfields.Result(string(summary.Outcome())),
		logfields.DurationMS(float64(summary.Duration.Microseconds())/1000),
		slog.Int("updated", summary.Processed),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
}
