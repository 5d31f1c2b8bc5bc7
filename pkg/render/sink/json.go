package sink

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

type jsonScene struct {
	ID         string     `json:"id"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	CreatedAt  time.Time  `json:"created_at"`
	Dropped    int        `json:"dropped,omitempty"`
	Degenerate int        `json:"degenerate,omitempty"`
	Cells      []jsonCell `json:"cells"`
}

type jsonCell struct {
	ZoneID   int64         `json:"zone_id"`
	Ticker   string        `json:"ticker,omitempty"`
	Tier     string        `json:"tier"`
	Bounds   jsonRect      `json:"bounds"`
	Color    string        `json:"color"`
	Fill     string        `json:"fill"`
	Flagged  bool          `json:"flagged"`
	FlagHit  *jsonRect     `json:"flag_hit,omitempty"`
	Commands []jsonCommand `json:"commands"`
}

type jsonRect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// jsonCommand flattens the command union; Type says which fields apply.
type jsonCommand struct {
	Type string `json:"type"`

	Rect   *jsonRect `json:"rect,omitempty"`
	Radius float64   `json:"radius,omitempty"`
	Fill   string    `json:"fill,omitempty"`

	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Role    string  `json:"role,omitempty"`
	Content string  `json:"content,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Bold    bool    `json:"bold,omitempty"`

	Glyph   string  `json:"glyph,omitempty"`
	Active  bool    `json:"active,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
}

// RenderJSON exports the scene, including every drawing command, as JSON.
// Browser and third-party front ends can draw from it without repeating the
// tier logic.
func RenderJSON(s *viewport.Scene) ([]byte, error) {
	out := jsonScene{Cells: []jsonCell{}}
	if s != nil {
		out.ID, out.Width, out.Height, out.CreatedAt = s.ID, s.Width, s.Height, s.CreatedAt
		out.Dropped, out.Degenerate = s.Dropped, s.Degenerate
		for _, c := range s.Cells {
			out.Cells = append(out.Cells, toJSONCell(c))
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func toJSONCell(c cell.Cell) jsonCell {
	jc := jsonCell{
		ZoneID:   c.ZoneID,
		Ticker:   c.Ticker,
		Tier:     c.Tier.String(),
		Bounds:   toJSONRect(c.Bounds),
		Color:    c.Color.Name(),
		Fill:     c.Color.Hex(),
		Flagged:  c.Flagged,
		Commands: make([]jsonCommand, 0, len(c.Commands)),
	}
	if c.HasFlag() {
		r := toJSONRect(c.FlagHit)
		jc.FlagHit = &r
	}
	for _, cmd := range c.Commands {
		switch cmd := cmd.(type) {
		case cell.Rect:
			r := toJSONRect(cmd.Rect)
			jc.Commands = append(jc.Commands, jsonCommand{Type: "rect", Rect: &r, Radius: cmd.Radius, Fill: cmd.Fill.Hex()})
		case cell.Text:
			jc.Commands = append(jc.Commands, jsonCommand{
				Type: "text", X: cmd.X, Y: cmd.Y, Role: cmd.Role.String(),
				Content: cmd.Content, Size: cmd.Size, Bold: cmd.Bold,
			})
		case cell.Glyph:
			r := toJSONRect(cmd.Bounds())
			jc.Commands = append(jc.Commands, jsonCommand{
				Type: "glyph", Rect: &r, Glyph: "flag", Active: cmd.Active, Opacity: cmd.Opacity,
			})
		}
	}
	return jc
}

func toJSONRect(r treemap.Rect) jsonRect {
	return jsonRect{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1}
}
