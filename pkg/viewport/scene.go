package viewport

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/treemap"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Scene is the complete output of one render pass. A new pass builds a new
// scene from scratch; scenes are never patched.
type Scene struct {
	ID         string
	Width      float64
	Height     float64
	Cells      []cell.Cell
	Dropped    int
	Degenerate int
	CreatedAt  time.Time
}

// Build lays out zones in a width×height container and renders every cell.
func Build(zones []zone.Zone, width, height float64, pad treemap.Padding, r cell.Renderer) *Scene {
	items := make([]treemap.Item[zone.Zone], len(zones))
	for i, z := range zones {
		items[i] = treemap.Item[zone.Zone]{Weight: z.Weight(), Payload: z}
	}
	res := treemap.Layout(items, treemap.Size{W: width, H: height}, pad)
	return &Scene{
		ID:         uuid.NewString(),
		Width:      width,
		Height:     height,
		Cells:      r.RenderAll(res.Nodes),
		Dropped:    res.Dropped,
		Degenerate: res.Degenerate,
		CreatedAt:  time.Now(),
	}
}

// RegionKind identifies an interactive sub-region of a cell.
type RegionKind int

const (
	RegionCell RegionKind = iota
	RegionFlag
)

func (k RegionKind) String() string {
	if k == RegionFlag {
		return "flag"
	}
	return "cell"
}

// Region is one interactive area under a point.
type Region struct {
	Kind   RegionKind
	ZoneID int64
	Bounds treemap.Rect
}

// HitTest returns the regions under (x, y), topmost first: the flag glyph
// (when the point is on it) and then the cell itself.
func (s *Scene) HitTest(x, y float64) []Region {
	if s == nil {
		return nil
	}
	for _, c := range s.Cells {
		if !c.Bounds.Contains(x, y) {
			continue
		}
		var out []Region
		if c.HasFlag() && c.FlagHit.Contains(x, y) {
			out = append(out, Region{Kind: RegionFlag, ZoneID: c.ZoneID, Bounds: c.FlagHit})
		}
		return append(out, Region{Kind: RegionCell, ZoneID: c.ZoneID, Bounds: c.Bounds})
	}
	return nil
}

// Cell returns the cell of the given zone.
func (s *Scene) Cell(zoneID int64) (cell.Cell, bool) {
	if s == nil {
		return cell.Cell{}, false
	}
	for _, c := range s.Cells {
		if c.ZoneID == zoneID {
			return c, true
		}
	}
	return cell.Cell{}, false
}
