// Package watch re-runs a build whenever crawlable pages below a directory
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches Root recursively and calls a rebuild function after
// relevant changes settle.
type Watcher struct {
	Root       string
	Extensions []string // lower case, without dots
	Ignore     []string // base names never triggering a rebuild
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Run calls rebuild once for every burst of page changes until ctx is done.
// Changes made by rebuild itself are coalesced into at most one extra run,
// which is a no-op for an idempotent build.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context) error) error {
	if !isDir(w.Root) {
		return fmt.Errorf("watch root %s is not a directory", w.Root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.Root); err != nil {
		return err
	}
	w.info("watching for changes", "path", w.Root)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(fw, event) {
				pending = true
				timer.Reset(debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if w.Logger != nil {
				w.Logger.Warn("watch error", "error", err)
			}

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.info("change detected, rebuilding", "path", w.Root)
			if err := rebuild(ctx); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
		}
	}
}

// handleEvent registers new directories and reports whether event should
// trigger a rebuild.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if err := w.addTree(fw, event.Name); err == nil && isDir(event.Name) {
			return true
		}
	}
	return w.Relevant(event)
}

// Relevant reports whether event touches a crawlable page.
func (w *Watcher) Relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if slices.ContainsFunc(w.Ignore, func(s string) bool { return strings.EqualFold(s, base) }) {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if len(w.Extensions) == 0 {
		return true
	}
	return ext != "" && slices.Contains(w.Extensions, ext)
}

// addTree adds dir and every directory below it to the watcher. Paths that
// are not directories are ignored.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	if !isDir(dir) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (w *Watcher) info(msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.Info(msg, args...)
	}
}
