package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyCommand    = "command"
	KeyPage       = "page"
	KeyStage      = "stage"
	KeyPlugin     = "plugin"
	KeyPath       = "path"
	KeyResult     = "result"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyScenario   = "scenario"
	KeySubject    = "subject"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Command(name string) slog.Attr   { return slog.String(KeyCommand, name) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Scenario(name string) slog.Attr  { return slog.String(KeyScenario, name) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
