package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/noflash"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Pages []string `arg:"" optional:"" type:"existingfile" help:"HTML pages whose inline theme scripts are checked (defaults to the built-in script)"`
}

func (c *CheckCmd) Run(g *Global, _ *CLI) error {
	return RunCheck(context.Background(), g.out(), c.Pages)
}

// RunCheck verifies the flash prevention contract for the built-in script or,
// when pages are given, for every theme script found in them.
func RunCheck(ctx context.Context, w io.Writer, pages []string) error {
	if len(pages) == 0 {
		return checkScript(ctx, w, "built-in", noflash.Script)
	}

	var failed int
	for _, page := range pages {
		scripts, err := pageScripts(page)
		if err != nil {
			return err
		}
		if len(scripts) == 0 {
			return ferrors.ValidationError("page has no inline theme script").
				WithContext("page", page).Build()
		}
		for i, script := range scripts {
			name := fmt.Sprintf("%s#%d", page, i+1)
			if err := checkScript(ctx, w, name, script); err != nil {
				if !ferrors.HasCategory(err, ferrors.CategoryScript) {
					return err
				}
				failed++
			}
		}
	}
	if failed > 0 {
		return ferrors.ScriptError("flash prevention contract violated").
			WithContext("scripts", failed).Build()
	}
	return nil
}

func pageScripts(page string) ([]string, error) {
	f, err := os.Open(page)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open page").
			WithContext("page", page).Build()
	}
	defer func() { _ = f.Close() }()

	scripts, err := noflash.FindScripts(f)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRender, "read page scripts").
			WithContext("page", page).Build()
	}
	return scripts, nil
}

func checkScript(ctx context.Context, w io.Writer, name, script string) error {
	report, err := noflash.Verify(ctx, script)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "verify script").Build()
	}

	_, _ = fmt.Fprintf(w, "== %s\n%s", name, report.Summary())
	if report.OK() {
		slog.Debug("Script satisfies contract", logfields.Path(name), logfields.Count(len(report.Results)))
		return nil
	}
	return ferrors.ScriptError("flash prevention contract violated").
		WithContext("script", name).
		WithContext("violations", len(report.Violations())).Build()
}
