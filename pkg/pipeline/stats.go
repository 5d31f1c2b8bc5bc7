package pipeline

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/zonemap/pkg/render/cell"
	"github.com/matzehuels/zonemap/pkg/viewport"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// Stats summarizes a pipeline run.
type Stats struct {
	ZoneCount  int `json:"zone_count"`
	CellCount  int `json:"cell_count"`
	Dropped    int `json:"dropped"`
	Degenerate int `json:"degenerate"`
	Flagged    int `json:"flagged"`

	// Tiers counts cells per level of detail.
	Tiers map[string]int `json:"tiers"`

	// Score statistics over the zones with a usable score. The median is
	// the lower median for even counts.
	ScoreMean   float64 `json:"score_mean"`
	ScoreMedian float64 `json:"score_median"`
	ScoreStdDev float64 `json:"score_stddev"`

	LayoutTime time.Duration `json:"layout_time"`
	RenderTime time.Duration `json:"render_time"`
}

func computeStats(zones []zone.Zone, s *viewport.Scene) Stats {
	st := Stats{
		ZoneCount:  len(zones),
		CellCount:  len(s.Cells),
		Dropped:    s.Dropped,
		Degenerate: s.Degenerate,
		Tiers:      make(map[string]int, 4),
	}
	for _, c := range s.Cells {
		st.Tiers[c.Tier.String()]++
	}

	scores := make([]float64, 0, len(zones))
	for _, z := range zones {
		if z.IsFlagged {
			st.Flagged++
		}
		if w := z.Weight(); w > 0 {
			scores = append(scores, w)
		}
	}
	st.ScoreMean, st.ScoreMedian, st.ScoreStdDev = scoreStats(scores)
	return st
}

// scoreStats returns mean, lower median and sample standard deviation. An
// empty set yields zeros; a single score has no spread.
func scoreStats(scores []float64) (mean, median, stddev float64) {
	if len(scores) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(sorted) > 1 {
		stddev = stat.StdDev(sorted, nil)
	}
	if math.IsNaN(stddev) {
		stddev = 0
	}
	return mean, median, stddev
}

// TierCount returns the number of cells in tier t.
func (s Stats) TierCount(t cell.Tier) int { return s.Tiers[t.String()] }
