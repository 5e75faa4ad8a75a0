package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/vesa/internal/importer"
)

type recorder struct {
	mu       sync.Mutex
	imported []string
	removed  []string
}

func (r *recorder) Accepts(path string) bool { return strings.HasSuffix(path, ".md") }

func (r *recorder) ImportFile(_ context.Context, path string) (importer.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported = append(r.imported, path)
	return importer.Created, nil
}

func (r *recorder) RemoveFile(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
	return nil
}

func (r *recorder) snapshot() (imported, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.imported...), append([]string(nil), r.removed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, rec *recorder, root string, recursive bool) *Watcher {
	t.Helper()
	w := New(rec, []string{root}, recursive, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_importsAndRemoves(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	startWatcher(t, rec, root, true)

	note := filepath.Join(root, "note.md")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(note, []byte(strings.Repeat("x", i+1)), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "skip.bin"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { imported, _ := rec.snapshot(); return len(imported) > 0 })
	time.Sleep(150 * time.Millisecond)
	imported, _ := rec.snapshot()
	if len(imported) != 1 || imported[0] != note {
		t.Errorf("imported = %v, want one debounced import of %s", imported, note)
	}

	if err := os.Remove(note); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { _, removed := rec.snapshot(); return len(removed) == 1 })
}

func TestWatcher_newDirectory(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	startWatcher(t, rec, root, true)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(sub, "inner.md")
	if err := os.WriteFile(nested, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		imported, _ := rec.snapshot()
		for _, p := range imported {
			if p == nested {
				return true
			}
		}
		return false
	})
}

func TestWatcher_startCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing", "notes")
	startWatcher(t, &recorder{}, root, false)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestWatcher_startTwice(t *testing.T) {
	w := startWatcher(t, &recorder{}, t.TempDir(), false)
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	w.Stop()
	w.Stop()
}

func TestHidden(t *testing.T) {
	if !hidden("/a/.git") || hidden("/a/.b/c") || hidden("/a/b") {
		t.Error("hidden() mismatch")
	}
}

func TestSchedule_FiredTimerKeepsNewerPending(t *testing.T) {
	rec := &recorder{}
	w := New(rec, nil, false, WithDebounce(10*time.Millisecond))
	ctx := context.Background()
	path := "/notes/a.md"

	w.mu.Lock()
	w.scheduleLocked(ctx, path)
	// let the first timer fire and block on w.mu
	time.Sleep(100 * time.Millisecond)
	w.debounce = time.Hour
	w.scheduleLocked(ctx, path)
	newer := w.pending[path]
	w.mu.Unlock()

	waitFor(t, func() bool {
		imported, _ := rec.snapshot()
		return len(imported) == 1
	})
	w.mu.Lock()
	got := w.pending[path]
	w.mu.Unlock()
	if got == nil || got != newer {
		t.Fatal("fired timer dropped the newer pending import")
	}
	w.unschedule(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 0 {
		t.Errorf("pending = %d after unschedule", len(w.pending))
	}
}
