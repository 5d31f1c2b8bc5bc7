package viewport

import (
	"context"
	"sync"
)

// Surface is a drawing target that displays whole scenes.
type Surface interface {
	Present(ctx context.Context, s *Scene) error
}

// SurfaceFunc adapts a function to [Surface].
type SurfaceFunc func(ctx context.Context, s *Scene) error

// Present calls f.
func (f SurfaceFunc) Present(ctx context.Context, s *Scene) error { return f(ctx, s) }

// SurfaceRegistry resolves surfaces by id.
type SurfaceRegistry interface {
	Lookup(id string) (Surface, bool)
}

// Surfaces is a concurrency-safe [SurfaceRegistry].
type Surfaces struct {
	mu sync.RWMutex
	m  map[string]Surface
}

// NewSurfaces returns an empty registry.
func NewSurfaces() *Surfaces {
	return &Surfaces{m: make(map[string]Surface)}
}

// Register binds id to s, replacing any previous binding.
func (r *Surfaces) Register(id string, s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id] = s
}

// Unregister removes the binding for id.
func (r *Surfaces) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}

// Lookup implements [SurfaceRegistry].
func (r *Surfaces) Lookup(id string) (Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[id]
	return s, ok
}
