// Package pkg provides the core libraries for zonemap treemaps.
//
// # Overview
//
// zonemap draws the accumulation zones found by a market scanner as a
// squarified treemap: every zone gets a rectangle proportional to its score,
// coloured by score tier, labelled as far as its size allows and marked when
// it has been flagged. The pkg directory is organized into four areas:
//
//  1. Domain: [zone] records, [palette] tiers and [treemap] geometry
//  2. Rendering: [render/cell] content and [render/sink] output formats
//  3. Interaction: [viewport] scenes, hit-testing and resize handling
//  4. Infrastructure: [source], [cache], [pipeline], [refresh], [config]
//
// # Architecture
//
// The typical data flow:
//
//	scanner API / JSON file / SQLite database
//	         ↓
//	    [source] package (load and normalize zones)
//	         ↓
//	    [treemap] package (squarified rectangles)
//	         ↓
//	    [render/cell] package (tier, colour, labels, flag glyph)
//	         ↓
//	    [render/sink] package (SVG, PNG, PDF, JSON, terminal)
//
// # Quick Start
//
// Read zones from a file and render an SVG:
//
//	import (
//	    "context"
//
//	    "github.com/matzehuels/zonemap/pkg/render/cell"
//	    "github.com/matzehuels/zonemap/pkg/render/sink"
//	    "github.com/matzehuels/zonemap/pkg/treemap"
//	    "github.com/matzehuels/zonemap/pkg/viewport"
//	    "github.com/matzehuels/zonemap/pkg/zone"
//	)
//
//	// 1. Load zones
//	zones, report, _ := zone.ImportJSON("zones.json")
//	report.Log(logger, "zones.json")
//
//	// 2. Lay out and style the cells
//	width := 1200.0
//	scene := viewport.Build(zones, width, viewport.HeightFor(width),
//	    treemap.Padding{Inner: 2, Outer: 4}, cell.Renderer{})
//
//	// 3. Render
//	svg, _ := sink.Render(context.Background(), scene, sink.FormatSVG, sink.Options{})
//
// # Main Packages
//
// ## Domain
//
// [zone] - The zone record, its detail (score history and comments) and a
// forgiving decoder that coerces mistyped fields instead of rejecting the
// whole list.
//
// [palette] - Score tiers and their colours for SVG, PNG and terminals.
//
// [treemap] - Squarified treemap layout with inner and outer padding. Pure
// geometry: weights in, rectangles out.
//
// ## Rendering
//
// [render/cell] - Decides per rectangle what is shown (ticker, score, delta,
// candle count, comment preview) from the rectangle's size.
//
// [render/sink] - Output formats. SVG can carry a click script that toggles
// flags through the zone endpoints.
//
// [render] - External SVG conversion with rsvg-convert.
//
// ## Interaction
//
// [viewport] - Scenes with hit-testing, a controller that re-lays out after
// a debounced resize and routes clicks to flag and detail handlers.
//
// [debounce] - Trailing-edge debouncer with a manual scheduler for tests.
//
// ## Infrastructure
//
// [source] - Zone sources: JSON file, scanner HTTP API and SQLite.
//
// [cache] - Artifact cache with file, Redis and null backends.
//
// [pipeline] - Load, lay out and render with caching. Used by every command.
//
// [refresh] - Cron polling and file watching that feed new zone sets to the
// renderers.
//
// [config] - TOML configuration.
//
// [httputil] - Response stash and retry helpers for the API source.
//
// [observability] - Hooks for pipeline, cache and viewport events.
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/treemap/...   # Specific package
//	go test -run Example        # Examples only
//
// [zone]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/zone
// [palette]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/palette
// [treemap]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/treemap
// [render]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/render
// [render/cell]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/render/cell
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/render/sink
// [viewport]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/viewport
// [debounce]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/debounce
// [source]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/source
// [cache]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/pipeline
// [refresh]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/refresh
// [config]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/config
// [httputil]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/zonemap/pkg/observability
package pkg
