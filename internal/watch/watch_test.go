package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	w := &Watcher{Extensions: []string{"html", "htm"}, Ignore: []string{"searchbox.html"}}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create page", fsnotify.Event{Name: "/site/index.html", Op: fsnotify.Create}, true},
		{"write page", fsnotify.Event{Name: "/site/sub/page.HTM", Op: fsnotify.Write}, true},
		{"remove page", fsnotify.Event{Name: "/site/old.html", Op: fsnotify.Remove}, true},
		{"rename page", fsnotify.Event{Name: "/site/old.html", Op: fsnotify.Rename}, true},
		{"chmod page", fsnotify.Event{Name: "/site/index.html", Op: fsnotify.Chmod}, false},
		{"artifact", fsnotify.Event{Name: "/site/index.js", Op: fsnotify.Write}, false},
		{"searchbox asset", fsnotify.Event{Name: "/site/searchbox.html", Op: fsnotify.Write}, false},
		{"hidden file", fsnotify.Event{Name: "/site/.index.html.swp", Op: fsnotify.Create}, false},
		{"no extension", fsnotify.Event{Name: "/site/README", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Relevant(tt.event); got != tt.want {
				t.Errorf("Relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestRelevantNoExtensions(t *testing.T) {
	w := &Watcher{}
	if !w.Relevant(fsnotify.Event{Name: "/site/anything.txt", Op: fsnotify.Write}) {
		t.Fatal("empty extension list should match every file")
	}
}

func TestRunRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{
		Root:       dir,
		Extensions: []string{"html"},
		Debounce:   20 * time.Millisecond,
	}

	var builds atomic.Int32
	rebuilt := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			builds.Add(1)
			rebuilt <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register the tree, then write to a nested page.
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-rebuilt:
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Run: %v", err)
			}
			if builds.Load() < 1 {
				t.Fatal("expected at least one rebuild")
			}
			return
		case <-tick.C:
			page := filepath.Join(dir, "sub", "page.html")
			if err := os.WriteFile(page, []byte("<body>x</body>"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("timeout waiting for rebuild")
		}
	}
}

func TestRunIgnoresIrrelevantChanges(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{
		Root:       dir,
		Extensions: []string{"html"},
		Debounce:   10 * time.Millisecond,
	}

	var builds atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "index.js"), []byte("var index;"), 0o644)
	}()

	if err := w.Run(ctx, func(context.Context) error {
		builds.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := builds.Load(); n != 0 {
		t.Fatalf("expected no rebuilds, got %d", n)
	}
}

func TestRunMissingRoot(t *testing.T) {
	w := &Watcher{Root: filepath.Join(t.TempDir(), "missing")}
	if err := w.Run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for a missing root")
	}
}
