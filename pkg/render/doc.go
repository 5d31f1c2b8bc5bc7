// Package render turns treemap scenes into output formats.
//
// # Overview
//
// Rendering happens in two steps. The [cell] subpackage decides what each
// rectangle shows (tier, colour, text lines, flag glyph) and emits typed
// drawing commands. The [sink] subpackage consumes those commands and
// writes one format each:
//
//   - SVG, optionally with the click/flag interaction script
//   - PNG, rasterised in-process
//   - PDF, converted from SVG with rsvg-convert
//   - JSON, the scene as data
//   - terminal, a coloured character grid
//
// # Format Conversion
//
// [ToPDF] converts any SVG using the external rsvg-convert tool (from
// librsvg):
//
//	svg := sink.RenderSVG(scene)
//	pdf, err := render.ToPDF(ctx, svg)
//
// [cell]: github.com/matzehuels/zonemap/pkg/render/cell
// [sink]: github.com/matzehuels/zonemap/pkg/render/sink
package render
