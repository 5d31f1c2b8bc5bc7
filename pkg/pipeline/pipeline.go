// Package pipeline provides the render pipeline shared by every zonemap
// front end.
//
// One run turns a zone set into output artifacts:
//
//  1. Load: read zones from a [source.Source]
//  2. Layout: squarify the zones and build a [viewport.Scene] of cells
//  3. Render: write the scene in each requested format
//
// The render and serve commands both go through a [Runner], which caches
// artifacts by a hash of the zone set and every option that affects the
// output, so an unchanged zone set is never rendered twice.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, zones, pipeline.Options{
//	    Width:   1200,
//	    Formats: []sink.Format{sink.FormatSVG, sink.FormatPNG},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts[sink.FormatSVG]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/viewport"
	"github.com/matzehuels/zonemap/pkg/zone"
)

const (
	// DefaultWidth is the treemap width in pixels.
	DefaultWidth = 1200.0

	// DefaultInnerPadding separates sibling cells.
	DefaultInnerPadding = 2.0

	// DefaultOuterPadding insets the whole treemap from the container edge.
	DefaultOuterPadding = 4.0

	// ArtifactTTL is how long a rendered artifact stays cached.
	ArtifactTTL = 24 * time.Hour

	// ZonesTTL is how long the last good zone set of a source is kept for
	// offline fallback.
	ZonesTTL = 7 * 24 * time.Hour
)

// Options configures a pipeline run. It serializes to JSON so the serve
// command can log and hash it.
type Options struct {
	// Layout
	Width        float64 `json:"width"`
	Height       float64 `json:"height,omitempty"` // 0 derives it from Width
	InnerPadding float64 `json:"inner_padding"`
	OuterPadding float64 `json:"outer_padding"`

	// Cells
	Palette          palette.Scale `json:"palette"`
	CommentCharWidth float64       `json:"comment_char_width,omitempty"`
	CornerRadius     float64       `json:"corner_radius,omitempty"`

	// Render
	Formats     []sink.Format `json:"formats"`
	Interactive bool          `json:"interactive,omitempty"`
	API         string        `json:"api,omitempty"`
	Title       string        `json:"title,omitempty"`
	Scale       float64       `json:"scale,omitempty"`
	Cols        int           `json:"cols,omitempty"`
	Rows        int           `json:"rows,omitempty"`

	// Refresh bypasses the artifact cache.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is the output of [Runner.Execute].
type Result struct {
	// Scene is the laid-out treemap.
	Scene *viewport.Scene

	// ZonesHash is the content hash of the input zone set.
	ZonesHash string

	// Artifacts holds the rendered outputs by format.
	Artifacts map[sink.Format][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	// RenderHit is true when every artifact came from the cache.
	RenderHit bool
	// Hits lists the formats served from the cache.
	Hits []sink.Format
}

// ValidateAndSetDefaults fills zero fields and checks the rest. Calling it
// again is a no-op.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults fills the layout and cell fields.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = viewport.HeightFor(o.Width)
	}
	if o.Palette == (palette.Scale{}) {
		o.Palette = palette.Default
	}
	if o.CommentCharWidth == 0 {
		o.CommentCharWidth = cell.DefaultCommentCharWidth
	}
	if o.CornerRadius == 0 {
		o.CornerRadius = cell.DefaultCornerRadius
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// SetRenderDefaults fills the render fields.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []sink.Format{sink.FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = 2
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// ValidateForLayout checks the layout fields.
func (o *Options) ValidateForLayout() error {
	if err := errors.ValidateDimensions(o.Width, o.Height); err != nil {
		return err
	}
	if err := errors.ValidatePadding(o.InnerPadding, o.OuterPadding); err != nil {
		return err
	}
	if err := o.Palette.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "palette")
	}
	return nil
}

// ValidateForRender checks the render fields.
func (o *Options) ValidateForRender() error {
	seen := make(map[sink.Format]bool, len(o.Formats))
	for _, f := range o.Formats {
		if _, err := sink.ParseFormat(string(f)); err != nil {
			return err
		}
		if seen[f] {
			return errors.New(errors.ErrCodeInvalidInput, "format %q requested twice", f)
		}
		seen[f] = true
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %g", o.Scale)
	}
	return nil
}

// Padding returns the treemap padding.
func (o *Options) Padding() treemap.Padding {
	return treemap.Padding{Inner: o.InnerPadding, Outer: o.OuterPadding}
}

// Renderer returns the cell renderer.
func (o *Options) Renderer() cell.Renderer {
	return cell.Renderer{Scale: o.Palette, CommentCharWidth: o.CommentCharWidth, CornerRadius: o.CornerRadius}
}

// SinkOptions returns the per-format settings.
func (o *Options) SinkOptions() sink.Options {
	return sink.Options{
		Interactive: o.Interactive,
		API:         o.API,
		Title:       o.Title,
		Scale:       o.Scale,
		Cols:        o.Cols,
		Rows:        o.Rows,
	}
}

// SceneKeyOpts returns the layout inputs for cache keys.
func (o *Options) SceneKeyOpts() cache.SceneKeyOpts {
	return cache.SceneKeyOpts{
		Width:            o.Width,
		Height:           o.Height,
		InnerPadding:     o.InnerPadding,
		OuterPadding:     o.OuterPadding,
		CommentCharWidth: o.CommentCharWidth,
		CornerRadius:     o.CornerRadius,
		Thresholds:       [3]float64{o.Palette.Strong, o.Palette.Good, o.Palette.Moderate},
	}
}

// ArtifactKeyOpts returns the render inputs for the cache key of format f.
func (o *Options) ArtifactKeyOpts(f sink.Format) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      string(f),
		Interactive: o.Interactive,
		API:         o.API,
		Title:       o.Title,
		Scale:       o.Scale,
		Cols:        o.Cols,
		Rows:        o.Rows,
	}
}

// Layout builds the scene for zones. It is the pure layout stage: no
// caching, no hooks.
func Layout(zones []zone.Zone, opts Options) (*viewport.Scene, error) {
	opts.SetLayoutDefaults()
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	return viewport.Build(zones, opts.Width, opts.Height, opts.Padding(), opts.Renderer()), nil
}
