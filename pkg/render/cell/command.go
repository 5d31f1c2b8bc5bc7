package cell

import (
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/treemap"
)

// Command is one typed drawing instruction. The set of implementations is
// closed: [Rect], [Text] and [Glyph]. Sinks switch on the concrete type.
type Command interface {
	command()
}

// Rect is a filled rounded rectangle.
type Rect struct {
	treemap.Rect
	Radius float64
	Fill   palette.Color
}

// Role says which datum a [Text] line carries.
type Role int

const (
	RoleTicker Role = iota
	RoleScore
	RoleDelta
	RoleCandles
	RoleWidth
	RoleComment
)

var roleNames = [...]string{"ticker", "score", "delta", "candles", "width", "comment"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// Text is one horizontally centred line of text. Y is the baseline.
type Text struct {
	X, Y    float64
	Role    Role
	Content string
	Size    float64
	Bold    bool
}

// GlyphKind identifies an icon.
type GlyphKind int

const (
	GlyphFlag GlyphKind = iota
)

// Glyph is a square icon whose top-left corner is at X, Y.
type Glyph struct {
	X, Y    float64
	Size    float64
	Kind    GlyphKind
	Active  bool
	Opacity float64
}

// Bounds returns the square the glyph occupies.
func (g Glyph) Bounds() treemap.Rect {
	return treemap.Rect{X0: g.X, Y0: g.Y, X1: g.X + g.Size, Y1: g.Y + g.Size}
}

func (Rect) command()  {}
func (Text) command()  {}
func (Glyph) command() {}
