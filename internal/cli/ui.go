package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleFlagged   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	StyleSelected  = lipgloss.NewStyle().Reverse(true)
	styleTableHead = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	styleTableCell = lipgloss.NewStyle().Padding(0, 1)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconFlag    = "⚑"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats
// =============================================================================

// printStats prints a one-line summary of a pipeline run, e.g.
// "  42 zones · 40 cells · 2 dropped · 3 flagged · median 61.5 · cached".
func printStats(st pipeline.Stats, cached bool) {
	fmt.Println(statsLine(st, cached))
}

func statsLine(st pipeline.Stats, cached bool) string {
	parts := []string{fmt.Sprintf("%d zones", st.ZoneCount), fmt.Sprintf("%d cells", st.CellCount)}
	if st.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d dropped", st.Dropped))
	}
	if st.Degenerate > 0 {
		parts = append(parts, fmt.Sprintf("%d degenerate", st.Degenerate))
	}
	if st.Flagged > 0 {
		parts = append(parts, fmt.Sprintf("%d flagged", st.Flagged))
	}
	if st.CellCount > 0 {
		parts = append(parts, "median "+strconv.FormatFloat(st.ScoreMedian, 'f', 1, 64))
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	var b strings.Builder
	b.WriteString("  ")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(StyleDim.Render(" · "))
		}
		b.WriteString(StyleDim.Render(p))
	}
	b.WriteString(StyleDim.Render(" · "))
	b.WriteString(statusStyle.Render(status))
	return b.String()
}

// =============================================================================
// Zone Table
// =============================================================================

var zoneHeaders = []string{"", "ID", "Ticker", "Score", "Change", "Candles", "Diff %", "Comment"}

// zoneTable renders zones as a bordered table. The row at selected (or
// none when negative) is highlighted; scores are coloured like their cells.
func zoneTable(zones []zone.Zone, scale palette.Scale, selected, width int) string {
	rows := make([][]string, len(zones))
	for i, z := range zones {
		flag := ""
		if z.IsFlagged {
			flag = iconFlag
		}
		rows[i] = []string{
			flag,
			strconv.FormatInt(z.ID, 10),
			z.Ticker,
			strconv.FormatFloat(z.Score, 'f', 1, 64),
			signed(z.ScoreChange),
			strconv.Itoa(z.CandleCount),
			strconv.FormatFloat(z.TotalDiffPercent, 'f', 2, 64),
			z.LastComment,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(zoneHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHead
			}
			if row >= len(zones) {
				return styleTableCell
			}
			s := styleTableCell
			switch col {
			case 0:
				s = s.Inherit(StyleFlagged)
			case 3:
				s = s.Foreground(scale.ColorFor(zones[row].Score).Terminal())
			}
			if row == selected {
				s = s.Inherit(StyleSelected)
			}
			return s
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}

func signed(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if v > 0 {
		return "+" + s
	}
	return s
}

// printZones writes the zone table to w.
func printZones(w io.Writer, zones []zone.Zone, scale palette.Scale) {
	if len(zones) == 0 {
		fmt.Fprintln(w, StyleDim.Render("no zones"))
		return
	}
	fmt.Fprintln(w, zoneTable(zones, scale, -1, 0))
}
