package sink

import (
	"bytes"
	"fmt"
	"html"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

const cellCSS = `
    .zonemap { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; }
    .cell { cursor: pointer; }
    .cell rect.fill { stroke: #ffffff; stroke-width: 1; transition: opacity 0.15s ease; }
    .cell:hover rect.fill { opacity: 0.85; }
    .cell text { fill: #ffffff; text-anchor: middle; pointer-events: none; }
    .flag { cursor: pointer; }
    .flag:hover { opacity: 1 !important; }`

const cellJS = `
    (function () {
      var root = document.querySelector('svg.zonemap');
      if (!root) return;
      var api = root.getAttribute('data-api');
      function emit(name, detail) {
        root.dispatchEvent(new CustomEvent(name, {bubbles: true, detail: detail}));
      }
      root.addEventListener('click', function (ev) {
        var flag = ev.target.closest('.flag');
        if (flag) {
          ev.stopPropagation();
          var id = +flag.getAttribute('data-zone');
          fetch(api + '/' + id + '/flag', {method: 'POST'})
            .then(function (r) { return r.json(); })
            .then(function (res) { emit('zonemap:flag', {id: id, flagged: res.is_flagged}); });
          return;
        }
        var cell = ev.target.closest('.cell');
        if (cell) emit('zonemap:detail', {id: +cell.getAttribute('data-zone')});
      });
    })();`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	interactive bool
	api         string
	title       string
}

// WithInteraction embeds the click script. api is the URL prefix of the
// zone endpoints, e.g. "/zones".
func WithInteraction(api string) SVGOption {
	return func(r *svgRenderer) { r.interactive, r.api = true, api }
}

// WithTitle sets the document title.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// RenderSVG renders the scene as a standalone SVG document.
func RenderSVG(s *viewport.Scene, opts ...SVGOption) []byte {
	var r svgRenderer
	for _, opt := range opts {
		opt(&r)
	}

	w, h := sceneSize(s)
	var buf bytes.Buffer
	canvas := svg.New(&buf)

	attrs := []string{fmt.Sprintf(`viewBox="0 0 %d %d"`, w, h), `class="zonemap"`}
	if s != nil {
		attrs = append(attrs, fmt.Sprintf(`data-scene="%s"`, s.ID))
	}
	if r.interactive {
		attrs = append(attrs, fmt.Sprintf(`data-api="%s"`, html.EscapeString(r.api)))
	}
	canvas.Start(w, h, attrs...)
	if r.title != "" {
		canvas.Title(r.title)
	}
	canvas.Style("text/css", cellCSS)

	if s != nil {
		for _, c := range s.Cells {
			renderCellSVG(canvas, c)
		}
	}
	if r.interactive {
		// Written by hand: svgo treats script data containing "=" as an
		// attribute list.
		fmt.Fprintf(canvas.Writer, "<script type=\"application/javascript\"><![CDATA[%s\n]]></script>\n", cellJS)
	}
	canvas.End()
	return buf.Bytes()
}

func renderCellSVG(canvas *svg.SVG, c cell.Cell) {
	canvas.Group(
		fmt.Sprintf(`class="cell tier-%s %s"`, c.Tier, c.Color.Name()),
		fmt.Sprintf(`id="zone-%d"`, c.ZoneID),
		fmt.Sprintf(`data-zone="%d"`, c.ZoneID),
		fmt.Sprintf(`data-ticker="%s"`, html.EscapeString(c.Ticker)),
	)
	canvas.Title(tooltip(c))
	for _, cmd := range c.Commands {
		switch cmd := cmd.(type) {
		case cell.Rect:
			canvas.Roundrect(px(cmd.X0), px(cmd.Y0), px(cmd.Width()), px(cmd.Height()), px(cmd.Radius), px(cmd.Radius),
				`class="fill"`, "fill:"+cmd.Fill.Hex())
		case cell.Text:
			style := fmt.Sprintf("font-size:%gpx", cmd.Size)
			if cmd.Bold {
				style += ";font-weight:bold"
			}
			canvas.Text(px(cmd.X), px(cmd.Y), cmd.Content, fmt.Sprintf(`class="%s"`, cmd.Role), style)
		case cell.Glyph:
			renderFlagSVG(canvas, c.ZoneID, cmd)
		}
	}
	canvas.Gend()
}

func renderFlagSVG(canvas *svg.SVG, id int64, g cell.Glyph) {
	canvas.Group(
		`class="flag"`,
		fmt.Sprintf(`data-zone="%d"`, id),
		fmt.Sprintf(`data-flagged="%t"`, g.Active),
		fmt.Sprintf(`opacity="%.1f"`, g.Opacity),
	)
	b := g.Bounds()
	canvas.Rect(px(b.X0), px(b.Y0), px(b.Width()), px(b.Height()), "fill:transparent")
	f := flagShapeOf(g)
	canvas.Line(px(f.poleX), px(f.top), px(f.poleX), px(f.bottom), "stroke:#ffffff;stroke-width:1.5")
	canvas.Polygon([]int{px(f.poleX), px(f.tipX), px(f.poleX)}, []int{px(f.top), px(f.tipY), px(f.tail)}, "fill:#ffffff")
	canvas.Gend()
}

// flagShape is a pole with a triangular pennant, shared by the SVG and PNG
// sinks.
type flagShape struct {
	poleX, top, bottom float64
	tipX, tipY, tail   float64
}

func flagShapeOf(g cell.Glyph) flagShape {
	x := g.X + 0.2*g.Size
	return flagShape{
		poleX: x, top: g.Y, bottom: g.Y + g.Size,
		tipX: g.X + g.Size, tipY: g.Y + 0.3*g.Size, tail: g.Y + 0.6*g.Size,
	}
}

func tooltip(c cell.Cell) string {
	t := c.Ticker
	if t == "" {
		t = fmt.Sprintf("zone %d", c.ZoneID)
	}
	for _, cmd := range c.Commands {
		if txt, ok := cmd.(cell.Text); ok && txt.Role == cell.RoleScore {
			return t + " · " + txt.Content
		}
	}
	return t
}

func sceneSize(s *viewport.Scene) (int, int) {
	if s == nil {
		return 0, 0
	}
	return px(s.Width), px(s.Height)
}

func px(v float64) int { return int(math.Round(v)) }
