// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through small hook interfaces; the binary decides
// what to do with them. Nothing here depends on a metrics backend.
//
// Four categories exist:
//   - Pipeline: zone loading, layout and artifact rendering
//   - Cache: artifact cache hits, misses and writes
//   - HTTP: calls made by the zone API client
//   - Viewport: resize scheduling, render passes and click dispatch
//
// Each has a no-op default. Register implementations once at startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetViewportHooks(&myViewportHooks{})
//	    // ... run application
//	}
//
// Libraries call the registered hooks:
//
//	observability.Pipeline().OnLayoutStart(ctx, len(zones))
//	// ... lay out ...
//	observability.Pipeline().OnLayoutComplete(ctx, cells, dropped, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the treemap pipeline.
type PipelineHooks interface {
	// Source events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, zoneCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, zoneCount int)
	OnLayoutComplete(ctx context.Context, cellCount, dropped int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// Viewport Hooks
// =============================================================================

// ViewportHooks receives events from the interactive viewport. Resize and
// pass events may arrive on a timer goroutine.
type ViewportHooks interface {
	// OnResizeScheduled records a resize event entering the debounce window.
	OnResizeScheduled(width float64)

	// OnPass records a finished render pass. sceneID is empty when the
	// pass was aborted.
	OnPass(sceneID string, cellCount int, duration time.Duration, err error)

	// OnDispatch records a click routed to a region handler.
	OnDispatch(region string, zoneID int64)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// NoopViewportHooks is a no-op implementation of ViewportHooks.
type NoopViewportHooks struct{}

func (NoopViewportHooks) OnResizeScheduled(float64)                {}
func (NoopViewportHooks) OnPass(string, int, time.Duration, error) {}
func (NoopViewportHooks) OnDispatch(string, int64)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	viewportHooks ViewportHooks = NoopViewportHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// SetViewportHooks registers custom viewport hooks.
func SetViewportHooks(h ViewportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		viewportHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Viewport returns the registered viewport hooks.
func Viewport() ViewportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return viewportHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
	viewportHooks = NoopViewportHooks{}
}
