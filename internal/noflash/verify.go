package noflash

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitehead/internal/browsersim"
)

// Scenario is one simulated visit.
type Scenario struct {
	Name    string
	Options browsersim.Options
	// Injections is how many times the script appears on the page.
	Injections int
}

// ScenarioResult is the observed behavior of one scenario.
type ScenarioResult struct {
	Scenario       string
	Attribute      string
	AttributeSet   bool
	ClassAfterRun  bool
	ClassAfterLoad bool
	ClassAdds      int
	ClassRemovals  int
	UncaughtError  error
	ListenerError  error
	Violations     []string
}

// OK reports whether the scenario met the contract.
func (r ScenarioResult) OK() bool {
	return len(r.Violations) == 0
}

// Report aggregates the results of a verification run.
type Report struct {
	Results []ScenarioResult
}

// OK reports whether every scenario met the contract.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return true
}

// Violations lists every violation prefixed with its scenario name.
func (r *Report) Violations() []string {
	var out []string
	for _, res := range r.Results {
		for _, v := range res.Violations {
			out = append(out, res.Scenario+": "+v)
		}
	}
	return out
}

// Scenarios returns the visit matrix the script must satisfy.
func Scenarios() []Scenario {
	stored := map[string]string{StorageKey: "light"}
	storedDark := map[string]string{StorageKey: "dark"}
	empty := map[string]string{StorageKey: ""}

	return []Scenario{
		{Name: "light-no-preference", Options: browsersim.Options{}, Injections: 1},
		{Name: "light-stored-preference", Options: browsersim.Options{Storage: stored}, Injections: 1},
		{Name: "dark-no-preference", Options: browsersim.Options{PrefersDark: true}, Injections: 1},
		{Name: "dark-empty-preference", Options: browsersim.Options{PrefersDark: true, Storage: empty}, Injections: 1},
		{Name: "dark-stored-light", Options: browsersim.Options{PrefersDark: true, Storage: stored}, Injections: 1},
		{Name: "dark-stored-dark", Options: browsersim.Options{PrefersDark: true, Storage: storedDark}, Injections: 1},
		{Name: "dark-storage-denied", Options: browsersim.Options{PrefersDark: true, StorageError: "SecurityError: The operation is insecure."}, Injections: 1},
		{Name: "dark-storage-undefined", Options: browsersim.Options{PrefersDark: true, StorageUndefined: true}, Injections: 1},
		{Name: "matchmedia-unsupported", Options: browsersim.Options{MatchMediaUnsupported: true}, Injections: 1},
		{Name: "dark-no-preference-injected-twice", Options: browsersim.Options{PrefersDark: true}, Injections: 2},
		{Name: "dark-stored-injected-twice", Options: browsersim.Options{PrefersDark: true, Storage: stored}, Injections: 2},
	}
}

// Verify runs script through every scenario and checks the flash-prevention
// contract. A non-nil error is returned only when ctx is canceled.
func Verify(ctx context.Context, script string) (*Report, error) {
	report := &Report{}
	for _, sc := range Scenarios() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, runScenario(sc, script))
	}
	return report, nil
}

func runScenario(sc Scenario, script string) ScenarioResult {
	b := browsersim.New(sc.Options)
	res := ScenarioResult{Scenario: sc.Name}

	for i := 0; i < sc.Injections; i++ {
		if err := b.Run(fmt.Sprintf("%s#%d", sc.Name, i+1), script); err != nil && res.UncaughtError == nil {
			res.UncaughtError = err
		}
	}
	afterRun := b.Root()
	res.Attribute, res.AttributeSet = afterRun.Attribute(ThemeAttribute)
	res.ClassAfterRun = afterRun.HasClass(TransientClass)

	res.ListenerError = b.DispatchLoad()
	res.ClassAfterLoad = b.Root().HasClass(TransientClass)

	muts := b.Mutations()
	res.ClassAdds = browsersim.Count(muts, browsersim.OpAddClass, TransientClass)
	for _, m := range muts {
		if m.Op == browsersim.OpRemoveClass && m.Name == TransientClass && m.AfterLoad {
			res.ClassRemovals++
		}
	}

	res.Violations = check(sc, res, muts)
	return res
}

func check(sc Scenario, res ScenarioResult, muts []browsersim.Mutation) []string {
	var v []string
	fail := func(format string, args ...any) {
		v = append(v, fmt.Sprintf(format, args...))
	}

	if res.UncaughtError != nil {
		fail("exception escaped the script: %v", res.UncaughtError)
	}
	if res.ListenerError != nil {
		fail("load listener failed: %v", res.ListenerError)
	}
	if n := browsersim.Count(muts, browsersim.OpStorageWrite, StorageKey); n > 0 {
		fail("script wrote to storage %d time(s)", n)
	}
	if res.ClassAfterLoad {
		fail("class %q still present after load", TransientClass)
	}

	opts := sc.Options
	failed := opts.StorageError != "" || opts.StorageUndefined || opts.MatchMediaUnsupported
	stored := opts.Storage[StorageKey] != ""

	switch {
	case failed || !opts.PrefersDark:
		if res.AttributeSet {
			fail("%s set to %q without a dark preference", ThemeAttribute, res.Attribute)
		}
		if res.ClassAdds > 0 {
			fail("class %q added without a dark preference", TransientClass)
		}
	default:
		if !res.AttributeSet || res.Attribute != ThemeValue {
			fail("%s is %q, want %q", ThemeAttribute, res.Attribute, ThemeValue)
		}
		if stored {
			if res.ClassAdds > 0 {
				fail("class %q added despite a persisted preference", TransientClass)
			}
			break
		}
		if !res.ClassAfterRun {
			fail("class %q missing before load", TransientClass)
		}
		if sc.Injections == 1 && res.ClassRemovals != 1 {
			fail("class %q removed %d time(s) after load, want exactly once", TransientClass, res.ClassRemovals)
		}
	}
	return v
}

// Summary renders a one-line-per-scenario description of the report.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, res := range r.Results {
		status := "ok"
		if !res.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%-36s %-4s attr=%-5t class(run)=%-5t class(load)=%-5t\n",
			res.Scenario, status, res.AttributeSet, res.ClassAfterRun, res.ClassAfterLoad)
		for _, v := range res.Violations {
			fmt.Fprintf(&b, "    - %s\n", v)
		}
	}
	return b.String()
}
