package refresh

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/zonemap/pkg/debounce"
	"github.com/matzehuels/zonemap/pkg/errors"
)

// DefaultSettle is how long a file must stay quiet before it is reloaded.
const DefaultSettle = 200 * time.Millisecond

// Watcher reloads a file source when the file changes. Editors and
// exporters tend to write in several steps, so events are debounced and
// the file is read once it has settled.
type Watcher struct {
	r    *Refresher
	path string

	settle *debounce.Debouncer[struct{}]
	ctx    context.Context
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*watcherConfig)

type watcherConfig struct {
	settle time.Duration
	sched  debounce.Scheduler
}

// WithSettle sets the quiet window.
func WithSettle(d time.Duration) WatcherOption {
	return func(c *watcherConfig) { c.settle = d }
}

// WithScheduler replaces the wall-clock timer, for tests.
func WithScheduler(s debounce.Scheduler) WatcherOption {
	return func(c *watcherConfig) { c.sched = s }
}

// NewWatcher returns a watcher that runs r whenever path changes.
func NewWatcher(r *Refresher, path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "watch %s", path)
	}
	cfg := watcherConfig{settle: DefaultSettle}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Watcher{r: r, path: abs, ctx: context.Background()}
	w.settle = debounce.New(cfg.settle, cfg.sched, func(struct{}) { w.reload() })
	return w, nil
}

// Run watches until ctx is done. The file's directory is watched rather
// than the file itself so that replace-by-rename writes are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create file watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "watch %s", filepath.Dir(w.path))
	}
	w.ctx = ctx
	defer w.settle.Cancel()
	w.r.logger.Info("watching zone file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.r.logger.Warn("file watcher error", "path", w.path, "err", err)
		}
	}
}

// handle schedules a reload for events that touch the watched file.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	w.settle.Trigger(struct{}{})
	return true
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	changed, err := w.r.Run(w.ctx)
	switch {
	case err != nil:
		w.r.logger.Error("reload after file change failed", "path", w.path, "err", err)
	case changed:
		w.r.logger.Info("zone file changed", "path", w.path)
	}
}
