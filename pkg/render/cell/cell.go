// Package cell turns laid-out zones into typed drawing commands.
//
// The amount of text a cell carries depends only on its size. [SelectTier]
// buckets a rectangle into one of four tiers:
//
//	Hidden    w < 40 or h < 20        fill only
//	Tiny      w < 60 or h < 50        ticker, centred, small font
//	Standard  h <= 100                ticker, score, score change, flag
//	Detailed  h > 100                 standard plus candles, width, comment
//
// Lines whose data is absent (no ticker, no score change, no comment) are
// removed from the vertical flow, so the remaining lines close up with no
// blank gaps. The fill colour always comes from the palette, whatever the
// tier.
//
// The output is a [Cell]: bounds, tier, colour and a list of [Command]
// values. Sinks (SVG, PNG, terminal, JSON) consume the commands without
// repeating any of the tier logic.
package cell

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Tier is a level-of-detail bucket.
type Tier int

const (
	TierHidden Tier = iota
	TierTiny
	TierStandard
	TierDetailed
)

var tierNames = [...]string{"hidden", "tiny", "standard", "detailed"}

func (t Tier) String() string {
	if t < TierHidden || t > TierDetailed {
		return "unknown"
	}
	return tierNames[t]
}

// Tier thresholds in pixels.
const (
	MinVisibleWidth   = 40
	MinVisibleHeight  = 20
	MinStandardWidth  = 60
	MinStandardHeight = 50
	DetailedHeight    = 100
)

// SelectTier picks the tier for a rectangle of the given size.
func SelectTier(w, h float64) Tier {
	switch {
	case w < MinVisibleWidth || h < MinVisibleHeight:
		return TierHidden
	case w < MinStandardWidth || h < MinStandardHeight:
		return TierTiny
	case h > DetailedHeight:
		return TierDetailed
	default:
		return TierStandard
	}
}

// Cell is the rendered form of one layout node. It is rebuilt on every pass.
type Cell struct {
	ZoneID   int64
	Ticker   string
	Tier     Tier
	Bounds   treemap.Rect
	Color    palette.Color
	Commands []Command

	// FlagHit is the clickable area of the flag glyph. It is empty for
	// tiers below Standard.
	FlagHit treemap.Rect
	Flagged bool
}

// HasFlag reports whether the cell carries a clickable flag glyph.
func (c Cell) HasFlag() bool { return !c.FlagHit.Empty() }

// Defaults for [Renderer].
const (
	DefaultCommentCharWidth = 7
	DefaultCornerRadius     = 4
)

// Font sizes and spacing.
const (
	tinySize    = 10
	tickerSize  = 16
	scoreSize   = 13
	deltaSize   = 11
	detailSize  = 10
	lineGap     = 4
	flagSize    = 14
	flagInsetX  = 18
	flagInsetY  = 4
	flagOpacity = 1.0
	flagDimmed  = 0.3
)

// Renderer holds the tunables of the cell renderer. Zero fields take their
// defaults.
type Renderer struct {
	Scale            palette.Scale `toml:"-"`
	CommentCharWidth float64       `toml:"comment_char_width"`
	CornerRadius     float64       `toml:"corner_radius"`
}

// Render renders a node with the default renderer.
func Render(n treemap.Node[zone.Zone]) Cell { return Renderer{}.Render(n) }

// RenderAll renders nodes in order.
func (r Renderer) RenderAll(nodes []treemap.Node[zone.Zone]) []Cell {
	out := make([]Cell, len(nodes))
	for i, n := range nodes {
		out[i] = r.Render(n)
	}
	return out
}

func (r Renderer) withDefaults() Renderer {
	if r.Scale == (palette.Scale{}) {
		r.Scale = palette.Default
	}
	if r.CommentCharWidth <= 0 {
		r.CommentCharWidth = DefaultCommentCharWidth
	}
	if r.CornerRadius <= 0 {
		r.CornerRadius = DefaultCornerRadius
	}
	return r
}

// Render builds the cell for one node. It never fails: absent data renders
// as zero values or is left out.
func (r Renderer) Render(n treemap.Node[zone.Zone]) Cell {
	r = r.withDefaults()
	z := n.Payload
	w, h := n.Width(), n.Height()

	c := Cell{
		ZoneID:  z.ID,
		Ticker:  z.Ticker,
		Tier:    SelectTier(w, h),
		Bounds:  n.Rect,
		Color:   r.Scale.ColorFor(z.Score),
		Flagged: z.IsFlagged,
	}
	c.Commands = append(c.Commands, Rect{Rect: n.Rect, Radius: r.CornerRadius, Fill: c.Color})

	switch c.Tier {
	case TierHidden:
		return c
	case TierTiny:
		if z.Ticker != "" {
			c.Commands = append(c.Commands, Text{
				X: n.CenterX(), Y: n.CenterY() + tinySize/3.0,
				Role: RoleTicker, Content: z.Ticker, Size: tinySize, Bold: true,
			})
		}
		return c
	}

	lines := r.lines(z, w, c.Tier)
	c.Commands = append(c.Commands, flow(lines, n.Rect)...)

	g := Glyph{X: n.X1 - flagInsetX, Y: n.Y0 + flagInsetY, Size: flagSize, Kind: GlyphFlag, Active: z.IsFlagged, Opacity: flagDimmed}
	if z.IsFlagged {
		g.Opacity = flagOpacity
	}
	c.Commands = append(c.Commands, g)
	c.FlagHit = g.Bounds()
	return c
}

func (r Renderer) lines(z zone.Zone, w float64, tier Tier) []Text {
	var out []Text
	if z.Ticker != "" {
		out = append(out, Text{Role: RoleTicker, Content: z.Ticker, Size: tickerSize, Bold: true})
	}
	out = append(out, Text{Role: RoleScore, Content: FormatScore(z.Score), Size: scoreSize})
	if d := FormatDelta(z.ScoreChange); d != "" {
		out = append(out, Text{Role: RoleDelta, Content: d, Size: deltaSize})
	}
	if tier < TierDetailed {
		return out
	}
	width := z.TotalDiffPercent
	if math.IsNaN(width) || math.IsInf(width, 0) {
		width = 0
	}
	out = append(out,
		Text{Role: RoleCandles, Content: fmt.Sprintf("%d candles", z.CandleCount), Size: detailSize},
		Text{Role: RoleWidth, Content: fmt.Sprintf("Width: %.2f%%", width), Size: detailSize},
	)
	if z.LastComment != "" {
		out = append(out, Text{Role: RoleComment, Content: Truncate(z.LastComment, r.maxCommentChars(w)), Size: detailSize})
	}
	return out
}

func (r Renderer) maxCommentChars(w float64) int {
	return int(math.Floor(w / r.CommentCharWidth))
}

// flow stacks lines top to bottom with a running baseline and centres the
// block vertically in bounds. The block never starts above the top edge.
func flow(lines []Text, bounds treemap.Rect) []Command {
	var block float64
	for i, l := range lines {
		block += l.Size
		if i > 0 {
			block += lineGap
		}
	}
	y := bounds.Y0 + math.Max(lineGap, (bounds.Height()-block)/2)

	out := make([]Command, len(lines))
	for i, l := range lines {
		y += l.Size
		l.X, l.Y = bounds.CenterX(), y
		out[i] = l
		y += lineGap
	}
	return out
}

// FormatScore renders a score rounded to a whole number.
func FormatScore(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "0"
	}
	return fmt.Sprintf("%.0f", math.Round(score))
}

// FormatDelta renders a score change as an arrow and a magnitude with one
// decimal. Zero and non-finite changes yield "".
func FormatDelta(change float64) string {
	switch {
	case math.IsNaN(change) || math.IsInf(change, 0) || change == 0:
		return ""
	case change > 0:
		return fmt.Sprintf("▲ %.1f", change)
	default:
		return fmt.Sprintf("▼ %.1f", -change)
	}
}

// Truncate keeps the first n characters of s and appends "..." when it cut,
// so a cut result is up to n+3 characters long.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}
