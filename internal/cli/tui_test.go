package cli

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/zonemap/pkg/debounce"
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/viewport"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// memSource is an in-memory source that can toggle flags.
type memSource struct {
	mu    sync.Mutex
	zones []zone.Zone
}

func (s *memSource) Name() string { return "mem" }

func (s *memSource) Zones(context.Context) ([]zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]zone.Zone(nil), s.zones...), nil
}

func (s *memSource) ToggleFlag(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.zones {
		if s.zones[i].ID == id {
			s.zones[i].IsFlagged = !s.zones[i].IsFlagged
			return s.zones[i].IsFlagged, nil
		}
	}
	return false, nil
}

func newTestModel(t *testing.T) ViewModel {
	t.Helper()
	src := &memSource{zones: []zone.Zone{
		{ID: 1, Ticker: "THYAO", Score: 80, CandleCount: 12},
		{ID: 2, Ticker: "SISE", Score: 50, CandleCount: 8},
		{ID: 3, Ticker: "ASELS", Score: 25, CandleCount: 5},
	}}
	m := NewViewModel(context.Background(), src, viewport.Options{
		Renderer: cell.Renderer{
			Scale:            palette.Default,
			CommentCharWidth: cell.DefaultCommentCharWidth,
			CornerRadius:     cell.DefaultCornerRadius,
		},
		Scheduler: &debounce.Manual{},
	})
	t.Cleanup(m.Controller().Close)

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	if msg := m.reload()(); msg != nil {
		t.Fatalf("reload: %v", msg)
	}
	m = drain(t, m) // scene
	m = drain(t, m) // zone set
	return m
}

func update(t *testing.T, m ViewModel, msg tea.Msg) ViewModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(ViewModel)
}

// drain feeds the next pending event to the model.
func drain(t *testing.T, m ViewModel) ViewModel {
	t.Helper()
	select {
	case ev := <-m.events:
		return update(t, m, eventMsg(ev))
	case <-time.After(2 * time.Second):
		t.Fatal("no event from the controller")
		return m
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewModelTreemap(t *testing.T) {
	m := newTestModel(t)

	if m.scene == nil || m.canvas == "" {
		t.Fatal("no scene presented")
	}
	if len(m.scene.Cells) != 3 || len(m.zones) != 3 {
		t.Errorf("cells = %d, zones = %d, want 3 each", len(m.scene.Cells), len(m.zones))
	}
	if m.grid.Cols != 100 || m.grid.Rows != 40-chromeLines {
		t.Errorf("grid = %dx%d, want 100x%d", m.grid.Cols, m.grid.Rows, 40-chromeLines)
	}

	view := m.View()
	for _, want := range []string{"zonemap", "mem", "3 zones", "treemap"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewModelResizeIsDebounced(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 30})
	if got := m.Controller().State().Width; got == 60*pxPerCol {
		t.Error("resize applied before the quiet window passed")
	}
	if m.term.cols != 60 || m.term.rows != 30-chromeLines {
		t.Errorf("surface size = %dx%d", m.term.cols, m.term.rows)
	}
}

func TestViewModelClickOpensDetail(t *testing.T) {
	m := newTestModel(t)

	col, row, id := -1, -1, int64(0)
	for r := 0; r < m.grid.Rows && col < 0; r++ {
		for c := 0; c < m.grid.Cols; c++ {
			regions := m.scene.HitTest(m.grid.ToScene(c, r))
			if len(regions) == 1 && regions[0].Kind == viewport.RegionCell {
				col, row, id = c, r, regions[0].ZoneID
				break
			}
		}
	}
	if col < 0 {
		t.Fatal("no clickable cell found")
	}

	next, cmd := m.Update(tea.MouseMsg{X: col, Y: row + headerLines, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = next.(ViewModel)
	if cmd == nil {
		t.Fatal("click produced no command")
	}
	cmd()
	m = drain(t, m)

	if m.detail == nil || m.detail.Zone.ID != id {
		t.Fatalf("detail = %+v, want zone %d", m.detail, id)
	}
	if !strings.Contains(m.View(), "esc close") {
		t.Error("detail view not shown")
	}

	m = update(t, m, key("esc"))
	if m.detail != nil {
		t.Error("esc should close the detail")
	}
}

func TestViewModelClickOutsideMap(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.MouseMsg{X: 5, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if cmd != nil {
		t.Error("click on the header should be ignored")
	}
	_, cmd = m.Update(tea.MouseMsg{X: 5, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if cmd != nil {
		t.Error("release should be ignored")
	}
}

func TestViewModelList(t *testing.T) {
	m := newTestModel(t)

	next, cmd := m.Update(key("tab"))
	m = next.(ViewModel)
	if m.view != viewport.ViewList {
		t.Fatalf("view = %v, want list", m.view)
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("SetView: %v", msg)
	}
	if !strings.Contains(m.View(), "Ticker") {
		t.Error("list view should show the zone table")
	}

	m = update(t, m, key("down"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	next, cmd = m.Update(key("f"))
	m = next.(ViewModel)
	if msg := cmd(); msg != nil {
		t.Fatalf("toggle: %v", msg)
	}
	m = drain(t, m)
	if !m.zones[1].IsFlagged {
		t.Error("zone 2 should be flagged after f")
	}

	next, cmd = m.Update(key("enter"))
	m = next.(ViewModel)
	cmd()
	m = drain(t, m)
	if m.detail == nil || m.detail.Zone.Ticker != "SISE" {
		t.Errorf("detail = %+v, want SISE", m.detail)
	}
}

func TestViewModelRefresh(t *testing.T) {
	m := newTestModel(t)

	zones := []zone.Zone{{ID: 9, Ticker: "KCHOL", Score: 40}}
	if err := m.Refresh(context.Background(), zones); err != nil {
		t.Fatal(err)
	}
	m = drain(t, m) // scene
	m = drain(t, m) // zone set
	if len(m.zones) != 1 || len(m.scene.Cells) != 1 {
		t.Errorf("zones = %d, cells = %d, want 1", len(m.zones), len(m.scene.Cells))
	}
}
