package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/zonemap/pkg/config"
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/zone"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		base   string
		format sink.Format
		want   string
	}{
		{"treemap", sink.FormatSVG, "treemap.svg"},
		{"out/treemap", sink.FormatPNG, "out/treemap.png"},
		{"treemap.svg", sink.FormatSVG, "treemap.svg"},
		{"treemap.SVG", sink.FormatSVG, "treemap.SVG"},
		{"treemap.svg", sink.FormatPDF, "treemap.svg.pdf"},
		{"grid", sink.FormatTerminal, "grid.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := outputPath(tt.base, tt.format); got != tt.want {
				t.Errorf("outputPath(%q, %s) = %q, want %q", tt.base, tt.format, got, tt.want)
			}
		})
	}
}

func TestRenderOptions(t *testing.T) {
	cfg := config.Default()

	t.Run("config defaults", func(t *testing.T) {
		got, err := renderOptions(cfg, &renderOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if got.Width != cfg.Layout.Width {
			t.Errorf("Width = %v, want %v", got.Width, cfg.Layout.Width)
		}
		if len(got.Formats) != 1 || got.Formats[0] != sink.FormatSVG {
			t.Errorf("Formats = %v, want [svg]", got.Formats)
		}
		if got.Interactive || got.Refresh {
			t.Error("flags should default to off")
		}
	})

	t.Run("flags override", func(t *testing.T) {
		got, err := renderOptions(cfg, &renderOpts{
			formats:     "svg, png",
			width:       640,
			title:       "BIST",
			interactive: true,
			apiPrefix:   "/zones",
			refresh:     true,
		})
		if err != nil {
			t.Fatal(err)
		}
		want := pipeline.Options{Width: 640, Title: "BIST", Interactive: true, API: "/zones", Refresh: true}
		if got.Width != want.Width || got.Title != want.Title || got.Interactive != want.Interactive ||
			got.API != want.API || got.Refresh != want.Refresh {
			t.Errorf("options = %+v", got)
		}
		if len(got.Formats) != 2 || got.Formats[1] != sink.FormatPNG {
			t.Errorf("Formats = %v, want [svg png]", got.Formats)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := renderOptions(cfg, &renderOpts{formats: "svg,gif"}); err == nil {
			t.Error("expected an error for gif")
		}
	})
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.InnerPadding = 3
	cfg.Render.Formats = []string{"json", "pdf"}

	got, err := pipelineOptions(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.InnerPadding != 3 || got.OuterPadding != cfg.Layout.OuterPadding {
		t.Errorf("padding = %v/%v", got.InnerPadding, got.OuterPadding)
	}
	if len(got.Formats) != 2 || got.Formats[0] != sink.FormatJSON {
		t.Errorf("Formats = %v", got.Formats)
	}

	cfg.Render.Formats = []string{"bmp"}
	if _, err := pipelineOptions(cfg, nil); err == nil {
		t.Error("expected an error for bmp")
	}
}

func TestStatsLine(t *testing.T) {
	st := pipeline.Stats{ZoneCount: 4, CellCount: 3, Dropped: 1, Flagged: 2, ScoreMedian: 61.5}

	fresh := statsLine(st, false)
	for _, want := range []string{"4 zones", "3 cells", "1 dropped", "2 flagged", "median 61.5", iconFresh} {
		if !strings.Contains(fresh, want) {
			t.Errorf("statsLine missing %q: %s", want, fresh)
		}
	}
	if strings.Contains(fresh, "degenerate") {
		t.Error("zero counts should be left out")
	}

	if got := statsLine(pipeline.Stats{}, true); !strings.Contains(got, iconCached) || strings.Contains(got, "median") {
		t.Errorf("empty cached run = %q", got)
	}
}

func TestZoneTable(t *testing.T) {
	zones := []zone.Zone{
		{ID: 7, Ticker: "THYAO", Score: 82, ScoreChange: 2.5, IsFlagged: true},
		{ID: 8, Ticker: "SISE", Score: 41, ScoreChange: -1},
	}

	got := zoneTable(zones, palette.Default, 1, 0)
	for _, want := range []string{"Ticker", "THYAO", "SISE", iconFlag, "+2.5", "-1.0", "82.0"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q", want)
		}
	}
	if n := strings.Count(got, iconFlag); n != 1 {
		t.Errorf("flag icons = %d, want 1", n)
	}
}

func TestSigned(t *testing.T) {
	tests := map[float64]string{3: "+3.0", 0: "0.0", -0.5: "-0.5"}
	for v, want := range tests {
		if got := signed(v); got != want {
			t.Errorf("signed(%v) = %q, want %q", v, got, want)
		}
	}
}
