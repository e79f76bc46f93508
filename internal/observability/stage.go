package observability

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitehead/internal/logfields"
)

// Stage times one named step of a run and logs its outcome when ended.
type Stage struct {
	ctx   context.Context
	name  string
	start time.Time
	now   func() time.Time
}

// StartStage tags ctx with the stage name and starts its clock.
func StartStage(ctx context.Context, name string) (context.Context, *Stage) {
	ctx = WithStage(ctx, name)
	DebugContext(ctx, "Stage started")
	return ctx, &Stage{ctx: ctx, name: name, start: time.Now(), now: time.Now}
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// End logs the stage duration, at error level when err is non-nil, and
// returns the elapsed time.
func (s *Stage) End(err error) time.Duration {
	elapsed := s.now().Sub(s.start)
	attrs := []slog.Attr{logfields.DurationMS(float64(elapsed.Microseconds()) / 1000)}
	if err != nil {
		ErrorContext(s.ctx, "Stage failed", append(attrs, logfields.Error(err))...)
		return elapsed
	}
	DebugContext(s.ctx, "Stage completed", attrs...)
	return elapsed
}
