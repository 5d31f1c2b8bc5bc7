// Package refresh keeps a zone set current.
//
// A [Refresher] loads zones from a source and hands them to a callback when
// they differ from the last set it delivered. [Poller] runs it on a cron
// schedule; [Watcher] runs it when a file source changes on disk.
package refresh

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Func receives a freshly loaded zone set.
type Func func(ctx context.Context, zones []zone.Zone) error

// Refresher loads zones and forwards changed sets. It is safe for
// concurrent use; overlapping runs are serialized.
type Refresher struct {
	src    source.Source
	fn     Func
	logger *log.Logger

	mu   sync.Mutex
	last string
}

// New returns a refresher that loads from src and calls fn.
func New(src source.Source, fn Func, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Refresher{src: src, fn: fn, logger: logger}
}

// Run loads the zone set once. fn is called only when the set differs from
// the one delivered by the previous successful run. It reports whether fn
// was called.
func (r *Refresher) Run(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	zones, err := source.Load(ctx, r.src)
	if err != nil {
		return false, err
	}

	// An unhashable set is always delivered.
	sum, _ := cache.HashJSON(zones)
	if sum != "" && sum == r.last {
		r.logger.Debug("zone set unchanged", "source", r.src.Name(), "zones", len(zones))
		return false, nil
	}

	if err := r.fn(ctx, zones); err != nil {
		return false, err
	}
	r.last = sum
	r.logger.Debug("zone set refreshed", "source", r.src.Name(), "zones", len(zones))
	return true, nil
}

// Forget clears the remembered zone set so the next run always calls fn.
func (r *Refresher) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = ""
}
