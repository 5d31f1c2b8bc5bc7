package refresh

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/zonemap/pkg/debounce"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]zone.Zone
}

func (r *recorder) fn(_ context.Context, zones []zone.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, zones)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func zoneFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.json")
	writeFile(t, path, body)
	return path
}

func TestRefresherSkipsUnchanged(t *testing.T) {
	path := zoneFile(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	rec := &recorder{}
	r := New(source.NewFile(path, nil), rec.fn, nil)
	ctx := context.Background()

	for i, want := range []bool{true, false} {
		changed, err := r.Run(ctx)
		if err != nil || changed != want {
			t.Fatalf("run %d: changed=%v err=%v, want %v", i, changed, err, want)
		}
	}

	writeFile(t, path, `[{"id": 1, "ticker": "THYAO", "score": 74}]`)
	if changed, _ := r.Run(ctx); !changed {
		t.Error("changed score should be delivered")
	}

	r.Forget()
	if changed, _ := r.Run(ctx); !changed {
		t.Error("Forget should force the next delivery")
	}
	if rec.count() != 3 {
		t.Errorf("fn called %d times, want 3", rec.count())
	}
}

func TestRefresherKeepsLastOnError(t *testing.T) {
	path := zoneFile(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	fail := true
	r := New(source.NewFile(path, nil), func(context.Context, []zone.Zone) error {
		if fail {
			return errors.New(errors.ErrCodeMissingSurface, "no surface")
		}
		return nil
	}, nil)

	if _, err := r.Run(context.Background()); !errors.Is(err, errors.ErrCodeMissingSurface) {
		t.Fatalf("err = %v", err)
	}
	fail = false
	if changed, err := r.Run(context.Background()); !changed || err != nil {
		t.Errorf("retry after failed delivery: changed=%v err=%v", changed, err)
	}
}

func TestRefresherLoadError(t *testing.T) {
	r := New(source.NewFile(filepath.Join(t.TempDir(), "missing.json"), nil), (&recorder{}).fn, nil)
	if _, err := r.Run(context.Background()); err == nil {
		t.Error("missing file should fail")
	}
}

func TestNewPoller(t *testing.T) {
	r := New(source.NewFile("zones.json", nil), (&recorder{}).fn, nil)
	if _, err := NewPoller(r, "every tuesday", 0); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad schedule: err = %v", err)
	}

	p, err := NewPoller(r, "@every 1h", 0)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	p.Start()
	defer p.Stop()
	if next := p.Next(); next.IsZero() || time.Until(next) > time.Hour {
		t.Errorf("Next() = %v", next)
	}
}

func TestPollerTick(t *testing.T) {
	path := zoneFile(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	rec := &recorder{}
	p, err := NewPoller(New(source.NewFile(path, nil), rec.fn, nil), "@every 1h", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	p.tick()
	p.tick()
	if rec.count() != 1 {
		t.Errorf("fn called %d times, want 1", rec.count())
	}

	p.Stop()
	writeFile(t, path, `[]`)
	p.tick()
	if rec.count() != 1 {
		t.Error("tick after Stop should not deliver")
	}
}

func TestWatcherHandle(t *testing.T) {
	path := zoneFile(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	rec := &recorder{}
	clock := &debounce.Manual{}
	w, err := NewWatcher(New(source.NewFile(path, nil), rec.fn, nil), path,
		WithSettle(100*time.Millisecond), WithScheduler(clock))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: path + ".swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := w.handle(tt.ev); got != tt.want {
			t.Errorf("%s: handle = %v, want %v", tt.name, got, tt.want)
		}
	}

	if n := clock.Advance(50 * time.Millisecond); n != 0 {
		t.Fatalf("reloaded before the file settled")
	}
	clock.Advance(100 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("burst of events reloaded %d times, want 1", rec.count())
	}
}

func TestWatcherRun(t *testing.T) {
	path := zoneFile(t, `[{"id": 1, "ticker": "THYAO", "score": 72}]`)
	got := make(chan []zone.Zone, 4)
	r := New(source.NewFile(path, nil), func(_ context.Context, zones []zone.Zone) error {
		got <- zones
		return nil
	}, nil)
	w, err := NewWatcher(r, path, WithSettle(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, `[{"id": 1, "ticker": "THYAO", "score": 72}, {"id": 2, "ticker": "SISE", "score": 40}]`)

	select {
	case zones := <-got:
		if len(zones) != 2 {
			t.Errorf("reloaded %d zones, want 2", len(zones))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}
