package harness

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tmcheck/internal/errs"
	"tmcheck/internal/logging"
)

const defaultDebounce = 200 * time.Millisecond

// Watch verifies dir, then again each time a fixture, snapshot or grammar
// file changes, until ctx is cancelled. Each run's outcome or error is passed
// to fn. A grammar that fails to reload is reported through fn and the
// previous grammars stay in use. Watch returns nil on cancellation.
func (h *Harness) Watch(ctx context.Context, dir string, fn func(*Outcome, error)) error {
	log := h.logs.Get(logging.CategoryWatch)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.WrapConfiguration(err, "create file watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warn("closing watcher", zap.Error(err))
		}
	}()

	if err := addTree(watcher, dir); err != nil {
		return err
	}
	grammarDirs := make(map[string]bool, len(h.opts.GrammarDirs))
	for _, gd := range h.opts.GrammarDirs {
		abs, err := filepath.Abs(gd)
		if err != nil {
			abs = gd
		}
		grammarDirs[abs] = true
		if err := watcher.Add(gd); err != nil {
			log.Warn("cannot watch grammar directory", zap.String("dir", gd), zap.Error(err))
		}
	}

	debounce := h.opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fn(h.Verify(ctx, dir))

	var (
		timer         *time.Timer
		fire          <-chan time.Time
		reloadGrammar bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						log.Warn("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			if isGrammarEvent(grammarDirs, event.Name) {
				reloadGrammar = true
			}
			log.Debug("change", zap.String("file", event.Name), zap.Stringer("op", event.Op))

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Stop()
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			if reloadGrammar {
				reloadGrammar = false
				reg, err := LoadRegistry(h.opts.GrammarDirs, h.logs.Get(logging.CategoryGrammar))
				if err != nil {
					fn(nil, err)
					continue
				}
				h.registry = reg
				log.Info("grammars reloaded", zap.Int("count", reg.Len()))
			}
			fn(h.Verify(ctx, dir))
		}
	}
}

// addTree watches root and every directory below it, skipping
// dot-directories. A single file root is watched as is.
func addTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return errs.WrapLoad(err, "watch %s", root)
	}
	if !info.IsDir() {
		return errs.WrapLoad(w.Add(root), "watch %s", root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errs.WrapLoad(err, "walk %s", p)
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return errs.WrapLoad(w.Add(p), "watch %s", p)
	})
}

func isGrammarEvent(dirs map[string]bool, name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
	default:
		return false
	}
	dir, err := filepath.Abs(filepath.Dir(name))
	if err != nil {
		return false
	}
	return dirs[dir]
}
