package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/palette"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/viewport"
	"github.com/matzehuels/zonemap/pkg/zone"
)

const (
	// terminalSurface is the surface id the view command registers.
	terminalSurface = "terminal"

	// pxPerCol converts terminal columns to layout pixels.
	pxPerCol = 10

	// headerLines sit above the map.
	headerLines = 2
	// chromeLines are the header and status lines around the map.
	chromeLines = headerLines + 1

	historyRows = 10
)

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	detailTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	detailBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	statusErrStyle  = lipgloss.NewStyle().Foreground(colorRed)
	statusInfoStyle = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Surface
// =============================================================================

// event carries asynchronous results to the model: a presented scene, an
// opened detail or a replaced zone set.
type event struct {
	scene      *viewport.Scene
	canvas     string
	cols, rows int

	detail *zone.Detail
	zones  []zone.Zone
	hasSet bool

	err error
}

type eventMsg event

type errMsg struct{ err error }

// termSurface draws scenes as text sized to the terminal and hands them to
// the model.
type termSurface struct {
	events chan event

	mu         sync.Mutex
	cols, rows int
}

func (s *termSurface) setSize(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = cols, rows
}

// Present implements viewport.Surface.
func (s *termSurface) Present(ctx context.Context, sc *viewport.Scene) error {
	s.mu.Lock()
	cols, rows := s.cols, s.rows
	s.mu.Unlock()

	ev := event{scene: sc, canvas: sink.RenderTerminal(sc, cols, rows), cols: cols, rows: rows}
	return send(ctx, s.events, ev)
}

func send(ctx context.Context, ch chan<- event, ev event) error {
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func listen(ch <-chan event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// =============================================================================
// ViewModel - interactive treemap
// =============================================================================

// ViewModel is the bubbletea model of the view command. The treemap is laid
// out by a viewport.Controller; this model only forwards terminal events to
// it and draws what it presents.
type ViewModel struct {
	ctx    context.Context
	ctrl   *viewport.Controller
	term   *termSurface
	events chan event
	src    source.Source
	scale  palette.Scale

	cols, rows int
	scene      *viewport.Scene
	canvas     string
	grid       sink.Grid
	zones      []zone.Zone

	view   viewport.View
	cursor int
	detail *zone.Detail
	status string
	err    error
}

// NewViewModel creates the model and its controller. The caller closes
// the controller when the program ends.
func NewViewModel(ctx context.Context, src source.Source, opts viewport.Options) ViewModel {
	events := make(chan event, 16)
	term := &termSurface{events: events, cols: 80, rows: 24 - chromeLines}

	surfaces := viewport.NewSurfaces()
	surfaces.Register(terminalSurface, term)

	opts.SurfaceID = terminalSurface
	opts.Surfaces = surfaces
	opts.Loader = src
	if f, ok := src.(source.Flagger); ok {
		opts.Flagger = f
	}
	if opts.Width == 0 {
		opts.Width = 80 * pxPerCol
	}
	ctrl := viewport.New(opts)
	ctrl.Handle(viewport.RegionCell, func(ctx context.Context, r viewport.Region) viewport.Dispatch {
		d, err := loadDetail(ctx, src, ctrl, r.ZoneID)
		if err != nil {
			send(ctx, events, event{err: err})
			return viewport.Stop
		}
		send(ctx, events, event{detail: &d})
		return viewport.Stop
	})

	return ViewModel{
		ctx:    ctx,
		ctrl:   ctrl,
		term:   term,
		events: events,
		src:    src,
		scale:  opts.Renderer.Scale,
		cols:   80,
		rows:   24,
	}
}

// Controller returns the controller driving the model.
func (m ViewModel) Controller() *viewport.Controller { return m.ctrl }

// Refresh replaces the zone set from outside the program, e.g. from a
// poller. Its signature matches refresh.Func.
func (m ViewModel) Refresh(ctx context.Context, zones []zone.Zone) error {
	if err := m.ctrl.Refresh(ctx, zones); err != nil {
		return err
	}
	return send(ctx, m.events, event{zones: zones, hasSet: true})
}

// loadDetail returns the detail of a zone, falling back to the zone itself
// for sources without score history.
func loadDetail(ctx context.Context, src source.Source, ctrl *viewport.Controller, id int64) (zone.Detail, error) {
	if d, ok := src.(source.Detailer); ok {
		return d.Detail(ctx, id)
	}
	for _, z := range ctrl.State().Zones {
		if z.ID == id {
			return zone.Detail{Zone: z}, nil
		}
	}
	return zone.Detail{}, errors.New(errors.ErrCodeNotFound, "zone %d not found", id)
}

func (m ViewModel) Init() tea.Cmd {
	return tea.Batch(listen(m.events), m.reload())
}

func (m ViewModel) reload() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Reload(m.ctx); err != nil {
			return errMsg{err}
		}
		send(m.ctx, m.events, event{zones: m.ctrl.State().Zones, hasSet: true})
		return nil
	}
}

func (m ViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.term.setSize(m.cols, m.mapRows())
		if m.cols > 0 {
			m.ctrl.Resize(float64(m.cols * pxPerCol))
		}
		return m, nil

	case eventMsg:
		if msg.scene != nil {
			m.scene, m.canvas = msg.scene, msg.canvas
			m.grid = sink.NewGrid(msg.scene, msg.cols, msg.rows)
			// A flag click reloads inside the controller.
			m.zones = m.ctrl.State().Zones
		}
		if msg.detail != nil {
			m.detail = msg.detail
		}
		if msg.hasSet {
			m.zones = msg.zones
			m.cursor = min(m.cursor, max(len(m.zones)-1, 0))
			m.err, m.status = nil, ""
		}
		if msg.err != nil {
			m.err = msg.err
		}
		return m, listen(m.events)

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.MouseMsg:
		if m.view != viewport.ViewTreemap || m.detail != nil || m.scene == nil {
			return m, nil
		}
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		row := msg.Y - headerLines
		if row < 0 || row >= m.grid.Rows || msg.X < 0 || msg.X >= m.grid.Cols {
			return m, nil
		}
		x, y := m.grid.ToScene(msg.X, row)
		return m, func() tea.Msg {
			m.ctrl.Click(m.ctx, x, y)
			return nil
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ViewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.detail != nil {
			m.detail = nil
			return m, nil
		}
		return m, tea.Quit
	case "r":
		m.status = "reloading..."
		return m, m.reload()
	case "tab":
		next := viewport.ViewList
		if m.view == viewport.ViewList {
			next = viewport.ViewTreemap
		}
		m.view, m.detail = next, nil
		return m, func() tea.Msg {
			if err := m.ctrl.SetView(m.ctx, next); err != nil {
				return errMsg{err}
			}
			return nil
		}
	}

	if m.view != viewport.ViewList || m.detail != nil {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.zones)-1 {
			m.cursor++
		}
	case "enter":
		if z, ok := m.selected(); ok {
			return m, func() tea.Msg {
				d, err := loadDetail(m.ctx, m.src, m.ctrl, z.ID)
				if err != nil {
					return errMsg{err}
				}
				send(m.ctx, m.events, event{detail: &d})
				return nil
			}
		}
	case "f":
		z, ok := m.selected()
		f, canFlag := m.src.(source.Flagger)
		if !ok || !canFlag {
			return m, nil
		}
		return m, func() tea.Msg {
			if _, err := f.ToggleFlag(m.ctx, z.ID); err != nil {
				return errMsg{err}
			}
			return m.reload()()
		}
	}
	return m, nil
}

func (m ViewModel) selected() (zone.Zone, bool) {
	if m.cursor < 0 || m.cursor >= len(m.zones) {
		return zone.Zone{}, false
	}
	return m.zones[m.cursor], true
}

func (m ViewModel) mapRows() int {
	return max(m.rows-chromeLines, 1)
}

func (m ViewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("zonemap"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s · %d zones · %s", m.src.Name(), len(m.zones), m.view)))
	b.WriteString("\n")

	switch {
	case m.detail != nil:
		b.WriteString(listDimStyle.Render("esc close"))
		b.WriteString("\n")
		b.WriteString(m.detailView())
	case m.view == viewport.ViewList:
		b.WriteString(listDimStyle.Render("↑/↓ move  ⏎ detail  f flag  tab treemap  r reload  q quit"))
		b.WriteString("\n")
		b.WriteString(m.listView())
	default:
		b.WriteString(listDimStyle.Render("click cell: detail  click " + iconFlag + ": flag  tab list  r reload  q quit"))
		b.WriteString("\n")
		if m.canvas == "" {
			b.WriteString(listDimStyle.Render("loading..."))
		} else {
			b.WriteString(m.canvas)
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(statusErrStyle.Render(iconError + " " + errors.UserMessage(m.err)))
	case m.status != "":
		b.WriteString(statusInfoStyle.Render(m.status))
	}
	return b.String()
}

// listView draws the window of the zone table around the cursor.
func (m ViewModel) listView() string {
	if len(m.zones) == 0 {
		return listDimStyle.Render("no zones")
	}
	height := max(m.mapRows()-4, 1)
	offset := max(m.cursor-height+1, 0)
	end := min(offset+height, len(m.zones))

	t := zoneTable(m.zones[offset:end], m.scale, m.cursor-offset, m.cols)
	return t + "\n" + listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.zones)))
}

// detailView draws one zone with its most recent score history.
func (m ViewModel) detailView() string {
	d := m.detail
	z := d.Zone

	var b strings.Builder
	title := z.Ticker
	if z.IsFlagged {
		title += " " + StyleFlagged.Render(iconFlag)
	}
	b.WriteString(detailTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("score %s (%s) · %d candles · diff %.2f%%",
		lipgloss.NewStyle().Foreground(m.scale.ColorFor(z.Score).Terminal()).Render(strconv.FormatFloat(z.Score, 'f', 1, 64)),
		signed(z.ScoreChange), z.CandleCount, z.TotalDiffPercent))
	if z.StartDate != "" {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("\n%s → %s  %s", z.StartDate, z.EndDate, z.Status)))
	}

	if n := len(d.History); n > 0 {
		hist := d.History[max(n-historyRows, 0):]
		rows := make([][]string, len(hist))
		for i, p := range hist {
			rows[i] = []string{p.Date, strconv.FormatFloat(p.Score, 'f', 1, 64), signed(p.ScoreChange), strconv.Itoa(p.CandleCount)}
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(StyleDim).
			Headers("Date", "Score", "Change", "Candles").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == -1 {
					return styleTableHead
				}
				return styleTableCell
			})
		b.WriteString("\n\n")
		b.WriteString(t.String())
	}

	for _, c := range d.Comments {
		b.WriteString("\n")
		b.WriteString(StyleValue.Render(c.Username+": ") + c.Text)
	}
	return detailBoxStyle.Render(b.String())
}
