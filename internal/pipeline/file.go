package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehead/internal/ledger"
	"git.home.luguber.info/inful/sitehead/internal/logfields"
	"git.home.luguber.info/inful/sitehead/internal/observability"
)

// ProcessFile processes the page at root/rel in place. The file is rewritten
// atomically and only when its content changes. With a ledger configured,
// pages last written with the current registry signature are skipped unless
// force is set.
func (p *Processor) ProcessFile(ctx context.Context, root, rel string, force bool) (Outcome, error) {
	start := p.now()
	outcome, err := p.processFile(observability.WithPage(ctx, filepath.ToSlash(rel)), root, rel, force)
	p.recorder.ObservePageDuration(p.now().Sub(start))
	p.recorder.IncPageResult(outcome.resultLabel())
	return outcome, err
}

func (p *Processor) processFile(ctx context.Context, root, rel string, force bool) (Outcome, error) {
	page := filepath.ToSlash(rel)
	path := filepath.Join(root, rel)

	in, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && p.ledger != nil {
			if ferr := p.ledger.Forget(ctx, page); ferr != nil {
				observability.WarnContext(ctx, "Failed to forget removed page", logfields.Error(ferr))
			}
		}
		return OutcomeFailed, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read page").
			WithContext("page", page).Build()
	}
	inHash := contentHash(in)
	signature := p.registry.Signature()

	if p.ledger != nil && !force {
		entry, ok, err := p.ledger.Lookup(ctx, page)
		if err != nil {
			return OutcomeFailed, err
		}
		if ok && entry.Current(inHash, signature) {
			observability.DebugContext(ctx, "Page already processed", logfields.Result(string(OutcomeSkipped)))
			return OutcomeSkipped, nil
		}
	}

	out, outcome, err := p.ProcessDocument(ctx, "/"+page, in)
	if err != nil {
		return OutcomeFailed, err
	}
	if outcome == OutcomeUpdated {
		if err := writeAtomic(path, out); err != nil {
			return OutcomeFailed, err
		}
	}

	if p.ledger != nil {
		err := p.ledger.Record(ctx, ledger.Entry{
			Page:        page,
			InputHash:   inHash,
			OutputHash:  contentHash(out),
			Signature:   signature,
			ProcessedAt: time.Now(),
		})
		if err != nil {
			return OutcomeFailed, err
		}
	}
	observability.DebugContext(ctx, "Page processed", logfields.Result(string(outcome)))
	return outcome, nil
}

// writeAtomic replaces path with data via a temporary file in the same
// directory, keeping the original file mode.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temporary file").
			WithContext("path", path).Build()
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write temporary file").
			WithContext("path", path).Build()
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "close temporary file").
			WithContext("path", path).Build()
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "set file mode").
			WithContext("path", path).Build()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace page").
			WithContext("path", path).Build()
	}
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
