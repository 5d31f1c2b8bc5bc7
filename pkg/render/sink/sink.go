package sink

import (
	"context"
	"strings"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

// Format names an output format.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
	FormatTerminal Format = "term"
)

// Formats lists every format in a stable order.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatTerminal}

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want svg, png, pdf, json or term)", s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatTerminal {
		return ".txt"
	}
	return "." + string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options carries the per-format settings used by [Render].
type Options struct {
	// Interactive embeds the click script in SVG output; API is the zone
	// endpoint prefix it talks to.
	Interactive bool
	API         string
	Title       string

	// Scale is the PNG scale factor.
	Scale float64

	// Cols and Rows size terminal output.
	Cols, Rows int
}

// Render writes the scene in format f.
func Render(ctx context.Context, s *viewport.Scene, f Format, opts Options) ([]byte, error) {
	var svgOpts []SVGOption
	if opts.Interactive {
		svgOpts = append(svgOpts, WithInteraction(opts.API))
	}
	if opts.Title != "" {
		svgOpts = append(svgOpts, WithTitle(opts.Title))
	}

	switch f {
	case FormatSVG:
		return RenderSVG(s, svgOpts...), nil
	case FormatPNG:
		var pngOpts []PNGOption
		if opts.Scale > 0 {
			pngOpts = append(pngOpts, WithScale(opts.Scale))
		}
		return RenderPNG(s, pngOpts...)
	case FormatPDF:
		return RenderPDF(ctx, s, WithPDFSVGOptions(svgOpts...))
	case FormatJSON:
		return RenderJSON(s)
	case FormatTerminal:
		cols, rows := opts.Cols, opts.Rows
		if cols <= 0 {
			cols = 100
		}
		if rows <= 0 {
			rows = 30
		}
		return []byte(RenderTerminal(s, cols, rows) + "\n"), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "format %q", f)
}
