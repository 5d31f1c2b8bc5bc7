// Package sink writes treemap scenes in concrete output formats.
//
// # Overview
//
// A sink transforms a [viewport.Scene] into bytes. Every sink walks the
// same typed command lists produced by the cell renderer, so the tier
// decisions are made once and all formats agree on what each rectangle
// shows:
//
//   - SVG ([RenderSVG]): vector output, optionally interactive
//   - PNG ([RenderPNG]): rasterised in-process with gg and the Go fonts
//   - PDF ([RenderPDF]): SVG converted with rsvg-convert
//   - JSON ([RenderJSON]): the scene as data for other tools
//   - Terminal ([RenderTerminal]): a coloured character grid
//
// [Render] dispatches on a [Format] for callers that take the format from
// a flag or a URL.
//
// # SVG Interaction
//
// [WithInteraction] adds a script to the SVG. A click on a flag glyph posts
// to "<api>/<id>/flag" and stops the event there, so the cell underneath
// never sees it; a click anywhere else on a cell dispatches a
// "zonemap:detail" event carrying the zone id. Both events bubble, so a host
// page can listen on the document.
//
// [viewport.Scene]: github.com/matzehuels/zonemap/pkg/viewport.Scene
package sink
