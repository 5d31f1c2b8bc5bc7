// Package palette maps zone scores to a small set of discrete fill colours.
//
// Scores are bucketed into four tiers, evaluated top-down with the first
// match winning:
//
//	score >= 70  Strong
//	score >= 50  Good
//	score >= 30  Moderate
//	otherwise    Weak
//
// NaN and negative scores fall through to Weak. The mapping is pure and
// total, so every sink (SVG, PNG, terminal) can call [ColorFor] directly.
package palette

import (
	"fmt"
	"image/color"
	"math"

	"github.com/charmbracelet/lipgloss"
)

// Color is one of the four score tiers.
type Color int

const (
	Weak Color = iota
	Moderate
	Good
	Strong
)

type swatch struct {
	name string
	rgba color.RGBA
	ansi lipgloss.Color
}

var swatches = [...]swatch{
	Weak:     {"weak", color.RGBA{0xef, 0x44, 0x44, 0xff}, lipgloss.Color("167")},
	Moderate: {"moderate", color.RGBA{0xf5, 0x9e, 0x0b, 0xff}, lipgloss.Color("214")},
	Good:     {"good", color.RGBA{0x22, 0xc5, 0x5e, 0xff}, lipgloss.Color("71")},
	Strong:   {"strong", color.RGBA{0x15, 0x80, 0x3d, 0xff}, lipgloss.Color("28")},
}

// Name returns the lower-case tier name ("strong", "good", ...).
func (c Color) Name() string { return c.swatch().name }

// RGBA returns the tier colour for raster sinks.
func (c Color) RGBA() color.RGBA { return c.swatch().rgba }

// Hex returns the tier colour as a CSS hex string.
func (c Color) Hex() string {
	rgba := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// Terminal returns the closest ANSI-256 colour.
func (c Color) Terminal() lipgloss.Color { return c.swatch().ansi }

func (c Color) String() string { return c.Name() }

func (c Color) swatch() swatch {
	if c < Weak || c > Strong {
		return swatches[Weak]
	}
	return swatches[c]
}

// Scale holds the lower bounds of the Strong, Good and Moderate tiers.
type Scale struct {
	Strong   float64 `toml:"strong" json:"strong"`
	Good     float64 `toml:"good" json:"good"`
	Moderate float64 `toml:"moderate" json:"moderate"`
}

// Default is the scale used by [ColorFor].
var Default = Scale{Strong: 70, Good: 50, Moderate: 30}

// ColorFor maps a score to its tier using [Default].
func ColorFor(score float64) Color { return Default.ColorFor(score) }

// ColorFor maps a score to its tier. Comparisons against NaN are false, so
// NaN lands on Weak without a special case; negatives are guarded explicitly
// in case a scale is configured with a negative bound.
func (s Scale) ColorFor(score float64) Color {
	if math.IsNaN(score) || score < 0 {
		return Weak
	}
	switch {
	case score >= s.Strong:
		return Strong
	case score >= s.Good:
		return Good
	case score >= s.Moderate:
		return Moderate
	default:
		return Weak
	}
}

// Validate reports whether the bounds are strictly descending.
func (s Scale) Validate() error {
	if !(s.Strong > s.Good && s.Good > s.Moderate && s.Moderate >= 0) {
		return fmt.Errorf("palette bounds must satisfy strong > good > moderate >= 0, got %v/%v/%v",
			s.Strong, s.Good, s.Moderate)
	}
	return nil
}
