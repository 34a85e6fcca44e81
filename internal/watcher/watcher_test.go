package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/kensaku/internal/metrics"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func startWatcher(t *testing.T, root string, onChange func([]string), opts ...Option) *Watcher {
	t.Helper()
	w := New(root, onChange, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	w := startWatcher(t, dir, rec.onChange,
		WithDebounce(200*time.Millisecond), WithLogger(zap.New(core)), WithMetrics(m))

	for i := 0; i < 5; i++ {
		if err := writeFile(filepath.Join(dir, "segment.zap"), strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(600 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("change notifications = %d, want 1", len(calls))
	}
	if len(calls[0]) != 1 || !strings.HasSuffix(calls[0][0], "segment.zap") {
		t.Errorf("paths = %v", calls[0])
	}
	if w.Changes() != 1 {
		t.Errorf("Changes() = %d", w.Changes())
	}
	if logs.Len() != 1 {
		t.Errorf("staleness warnings = %d, want 1", logs.Len())
	}
	if got := testutil.ToFloat64(m.IndexChanges); got != 1 {
		t.Errorf("index changes metric = %v, want 1", got)
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec.onChange, WithDebounce(150*time.Millisecond))

	sub := filepath.Join(dir, "store")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)
	if err := writeFile(filepath.Join(sub, "000000000001.zap"), "seg"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	found := false
	for _, paths := range rec.snapshot() {
		for _, p := range paths {
			if strings.HasSuffix(p, "000000000001.zap") {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected a change under the new subdirectory, got %v", rec.snapshot())
	}
}

func TestWatcher_QuietIndex(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "index_meta.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := startWatcher(t, dir, rec.onChange, WithDebounce(50*time.Millisecond))
	time.Sleep(200 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 || w.Changes() != 0 {
		t.Errorf("unexpected notifications: %d", n)
	}
}

func TestWatcher_Start_missingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing index directory")
	}
}

func TestWatcher_Start_fileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	if err := New(path, nil).Start(context.Background()); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w := New(t.TempDir(), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
