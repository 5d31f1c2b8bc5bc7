package sink

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

const flagRune = '⚑'

var (
	labelColor = lipgloss.Color("15")
	dimColor   = lipgloss.Color("250")
)

// Grid maps a scene onto a character grid of Cols×Rows.
type Grid struct {
	Cols, Rows    int
	Width, Height float64
}

// NewGrid returns the grid for drawing s in cols×rows characters.
func NewGrid(s *viewport.Scene, cols, rows int) Grid {
	g := Grid{Cols: max(cols, 0), Rows: max(rows, 0)}
	if s != nil {
		g.Width, g.Height = s.Width, s.Height
	}
	return g
}

// ToScene returns the scene point at the centre of a character.
func (g Grid) ToScene(col, row int) (x, y float64) {
	if g.Cols == 0 || g.Rows == 0 {
		return 0, 0
	}
	return (float64(col) + 0.5) * g.Width / float64(g.Cols), (float64(row) + 0.5) * g.Height / float64(g.Rows)
}

func (g Grid) col(x float64) int {
	return clamp(int(math.Floor(x*float64(g.Cols)/g.Width)), 0, g.Cols)
}

func (g Grid) row(y float64) int {
	return clamp(int(math.Floor(y*float64(g.Rows)/g.Height)), 0, g.Rows)
}

type glyph struct {
	r     rune
	owner int
	bold  bool
	dim   bool
}

// RenderTerminal draws the scene as cols×rows coloured characters. Cells
// keep their palette colour as background; text lines that fit are centred
// in them, and flagged zones show a flag in their top-right corner.
func RenderTerminal(s *viewport.Scene, cols, rows int) string {
	g := NewGrid(s, cols, rows)
	if g.Cols == 0 || g.Rows == 0 || g.Width <= 0 || g.Height <= 0 {
		return ""
	}

	grid := make([][]glyph, g.Rows)
	for r := range grid {
		grid[r] = make([]glyph, g.Cols)
		for c := range grid[r] {
			grid[r][c] = glyph{r: ' ', owner: -1}
		}
	}

	for i, c := range s.Cells {
		c0, c1 := g.col(c.Bounds.X0), g.col(c.Bounds.X1)
		r0, r1 := g.row(c.Bounds.Y0), g.row(c.Bounds.Y1)
		// Keep a one-character gutter so neighbours of equal colour stay
		// distinguishable.
		if c1-c0 >= 3 {
			c1--
		}
		if r1-r0 >= 3 {
			r1--
		}
		for r := r0; r < r1; r++ {
			for col := c0; col < c1; col++ {
				grid[r][col] = glyph{r: ' ', owner: i}
			}
		}
		labelTerminal(grid, c, c0, c1, r0, r1, i)
	}

	colors := make([]lipgloss.Color, len(s.Cells))
	for i, c := range s.Cells {
		colors[i] = c.Color.Terminal()
	}

	var b strings.Builder
	for r, line := range grid {
		if r > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for col := 1; col <= len(line); col++ {
			if col < len(line) && sameRun(line[start], line[col]) {
				continue
			}
			b.WriteString(styleRun(line[start:col], colors))
			start = col
		}
	}
	return b.String()
}

func labelTerminal(grid [][]glyph, c cell.Cell, c0, c1, r0, r1, owner int) {
	width, height := c1-c0, r1-r0
	if width <= 0 || height <= 0 {
		return
	}

	var lines []cell.Text
	for _, cmd := range c.Commands {
		if t, ok := cmd.(cell.Text); ok {
			lines = append(lines, t)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	top := r0 + (height-len(lines))/2
	for i, t := range lines {
		runes := []rune(t.Content)
		if len(runes) > width {
			runes = runes[:width]
		}
		left := c0 + (width-len(runes))/2
		for j, ch := range runes {
			grid[top+i][left+j] = glyph{r: ch, owner: owner, bold: t.Role == cell.RoleTicker, dim: t.Role == cell.RoleComment}
		}
	}

	if c.HasFlag() && c.Flagged && width >= 2 {
		grid[r0][c1-1] = glyph{r: flagRune, owner: owner, bold: true}
	}
}

func sameRun(a, b glyph) bool {
	return a.owner == b.owner && a.bold == b.bold && a.dim == b.dim
}

func styleRun(run []glyph, colors []lipgloss.Color) string {
	var sb strings.Builder
	for _, g := range run {
		sb.WriteRune(g.r)
	}
	head := run[0]
	if head.owner < 0 {
		return sb.String()
	}
	st := lipgloss.NewStyle().Background(colors[head.owner]).Foreground(labelColor).Bold(head.bold)
	if head.dim {
		st = st.Foreground(dimColor)
	}
	return st.Render(sb.String())
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
