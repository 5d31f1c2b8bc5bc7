// Package viewport drives the interactive treemap.
//
// A [Controller] owns the application state (active view, zone set,
// viewport width) and re-runs the layout/render pipeline when that state
// changes:
//
//   - Resize events are debounced; only the last width of a burst is laid
//     out, and only while the treemap view is active and zones exist.
//   - Refresh replaces the zone set and renders immediately.
//   - Click classifies a point into regions (flag glyph, then cell) and runs
//     each region's handler until one returns [Stop].
//
// Each pass resolves its surface by id, builds a fresh [Scene] and hands it
// to the surface. If the surface cannot be found the pass is aborted with a
// MISSING_SURFACE error and the previous scene stays current. Passes are
// serialized: the debounce timer fires on its own goroutine.
package viewport

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/debounce"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/observability"
	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// View is the active presentation of the zone set.
type View int

const (
	ViewTreemap View = iota
	ViewList
)

func (v View) String() string {
	if v == ViewList {
		return "list"
	}
	return "treemap"
}

// MinHeight is the smallest treemap height.
const MinHeight = 500

// HeightRatio derives the treemap height from its width.
const HeightRatio = 0.6

// HeightFor returns the treemap height for a viewport width.
func HeightFor(width float64) float64 {
	return math.Max(MinHeight, width*HeightRatio)
}

// State is the application state the controller renders from.
type State struct {
	View  View
	Zones []zone.Zone
	Width float64
}

// Height returns the derived treemap height.
func (s State) Height() float64 { return HeightFor(s.Width) }

// Dispatch tells Click whether to offer the event to the next region.
type Dispatch int

const (
	Continue Dispatch = iota
	Stop
)

// Handler handles a click on one region.
type Handler func(ctx context.Context, r Region) Dispatch

// Loader fetches the current zone set.
type Loader interface {
	Zones(ctx context.Context) ([]zone.Zone, error)
}

// Flagger toggles the flag of a zone and returns the new flag state.
type Flagger interface {
	ToggleFlag(ctx context.Context, id int64) (bool, error)
}

// DetailOpener shows the detail view of a zone.
type DetailOpener interface {
	OpenDetail(ctx context.Context, id int64) error
}

// DetailFunc adapts a function to [DetailOpener].
type DetailFunc func(ctx context.Context, id int64) error

// OpenDetail calls f.
func (f DetailFunc) OpenDetail(ctx context.Context, id int64) error { return f(ctx, id) }

// Options configures a [Controller].
type Options struct {
	// SurfaceID names the surface passes draw to.
	SurfaceID string
	Surfaces  SurfaceRegistry

	Padding  treemap.Padding
	Renderer cell.Renderer

	// Debounce is the resize quiet window; zero means 250ms.
	Debounce  time.Duration
	Scheduler debounce.Scheduler

	Loader  Loader
	Flagger Flagger
	Detail  DetailOpener

	// Width is the initial viewport width.
	Width float64
	View  View

	Logger *log.Logger
}

// Controller is the viewport state machine. It is safe for concurrent use.
type Controller struct {
	opts   Options
	logger *log.Logger
	resize *debounce.Debouncer[float64]

	// mu serializes passes and guards state and scene.
	mu    sync.Mutex
	state State
	scene *Scene

	hmu      sync.RWMutex
	handlers map[RegionKind]Handler
}

// New returns a controller with the default flag and cell handlers.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Controller{
		opts:   opts,
		logger: logger,
		state:  State{View: opts.View, Width: opts.Width},
	}
	c.resize = debounce.New(opts.Debounce, opts.Scheduler, c.onResize)
	c.handlers = map[RegionKind]Handler{
		RegionFlag: c.handleFlag,
		RegionCell: c.handleCell,
	}
	return c
}

// Handle replaces the handler of a region kind.
func (c *Controller) Handle(kind RegionKind, h Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[kind] = h
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Zones = append([]zone.Zone(nil), s.Zones...)
	return s
}

// Scene returns the current scene, or nil before the first pass.
func (c *Controller) Scene() *Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

// Resize records a new viewport width. The re-layout runs once the quiet
// window has passed without another Resize.
func (c *Controller) Resize(width float64) {
	observability.Viewport().OnResizeScheduled(width)
	c.resize.Trigger(width)
}

func (c *Controller) onResize(width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Width = width
	if c.state.View != ViewTreemap || len(c.state.Zones) == 0 {
		c.logger.Debug("resize recorded without re-layout", "width", width, "view", c.state.View, "zones", len(c.state.Zones))
		return
	}
	if err := c.pass(context.Background()); err != nil {
		c.logger.Error("render pass failed after resize", "width", width, "err", err)
	}
}

// Refresh replaces the zone set and, when the treemap view is active,
// renders it immediately. A pending resize to the current width is
// cancelled since this pass already covers it. An empty zone set renders
// an empty scene.
func (c *Controller) Refresh(ctx context.Context, zones []zone.Zone) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	width := c.state.Width
	c.resize.CancelIf(func(w float64) bool { return w == width })

	c.state.Zones = append([]zone.Zone(nil), zones...)
	if c.state.View != ViewTreemap {
		return nil
	}
	return c.pass(ctx)
}

// Reload fetches zones through the configured loader and refreshes.
func (c *Controller) Reload(ctx context.Context) error {
	if c.opts.Loader == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "viewport has no zone loader")
	}
	zones, err := c.opts.Loader.Zones(ctx)
	if err != nil {
		return err
	}
	return c.Refresh(ctx, zones)
}

// SetView switches the active view. Switching to the treemap renders the
// current zone set.
func (c *Controller) SetView(ctx context.Context, v View) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.state.View
	c.state.View = v
	if v != ViewTreemap || prev == ViewTreemap {
		return nil
	}
	return c.pass(ctx)
}

// pass runs one render pass. The caller holds c.mu.
func (c *Controller) pass(ctx context.Context) error {
	start := time.Now()
	surface, ok := c.surface()
	if !ok {
		err := errors.New(errors.ErrCodeMissingSurface, "surface %q is not registered", c.opts.SurfaceID)
		c.logger.Error("render pass aborted", "surface", c.opts.SurfaceID, "code", errors.GetCode(err))
		observability.Viewport().OnPass("", 0, time.Since(start), err)
		return err
	}

	if err := errors.ValidateDimensions(c.state.Width, c.state.Height()); err != nil {
		observability.Viewport().OnPass("", 0, time.Since(start), err)
		return err
	}

	scene := Build(c.state.Zones, c.state.Width, c.state.Height(), c.opts.Padding, c.opts.Renderer)
	if scene.Dropped > 0 {
		c.logger.Debug("dropped zones without a usable score", "count", scene.Dropped)
	}
	if scene.Degenerate > 0 {
		c.logger.Debug("dropped degenerate rectangles", "count", scene.Degenerate, "code", errors.ErrCodeDegenerateGeometry)
	}

	if err := surface.Present(ctx, scene); err != nil {
		observability.Viewport().OnPass("", 0, time.Since(start), err)
		return err
	}
	c.scene = scene
	c.logger.Debug("presented scene", "scene", scene.ID, "cells", len(scene.Cells), "width", scene.Width, "height", scene.Height)
	observability.Viewport().OnPass(scene.ID, len(scene.Cells), time.Since(start), nil)
	return nil
}

func (c *Controller) surface() (Surface, bool) {
	if c.opts.Surfaces == nil {
		return nil, false
	}
	return c.opts.Surfaces.Lookup(c.opts.SurfaceID)
}

// Click routes a click at (x, y) on the current scene. Regions are offered
// topmost first; dispatch ends at the first handler that returns [Stop].
// It returns the regions that were handled.
func (c *Controller) Click(ctx context.Context, x, y float64) []Region {
	regions := c.Scene().HitTest(x, y)

	var handled []Region
	for _, r := range regions {
		c.hmu.RLock()
		h := c.handlers[r.Kind]
		c.hmu.RUnlock()
		if h == nil {
			continue
		}
		observability.Viewport().OnDispatch(r.Kind.String(), r.ZoneID)
		handled = append(handled, r)
		if h(ctx, r) == Stop {
			break
		}
	}
	return handled
}

func (c *Controller) handleFlag(ctx context.Context, r Region) Dispatch {
	if c.opts.Flagger == nil {
		return Stop
	}
	flagged, err := c.opts.Flagger.ToggleFlag(ctx, r.ZoneID)
	if err != nil {
		c.logger.Error("toggle flag failed", "zone", r.ZoneID, "err", err)
		return Stop
	}
	c.logger.Info("toggled flag", "zone", r.ZoneID, "flagged", flagged)
	if c.opts.Loader != nil {
		if err := c.Reload(ctx); err != nil {
			c.logger.Error("reload after flag toggle failed", "zone", r.ZoneID, "err", err)
		}
	}
	return Stop
}

func (c *Controller) handleCell(ctx context.Context, r Region) Dispatch {
	if c.opts.Detail == nil {
		return Stop
	}
	if err := c.opts.Detail.OpenDetail(ctx, r.ZoneID); err != nil {
		c.logger.Error("open detail failed", "zone", r.ZoneID, "err", err)
	}
	return Stop
}

// Close cancels any pending resize.
func (c *Controller) Close() {
	c.resize.Cancel()
}
