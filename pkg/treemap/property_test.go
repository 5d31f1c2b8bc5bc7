package treemap

import (
	"math"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func drawWeights(t *rapid.T) []float64 {
	ws := rapid.SliceOfN(rapid.Float64Range(0.5, 100), 1, 40).Draw(t, "weights")
	slices.SortFunc(ws, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	return ws
}

func drawBounds(t *rapid.T) Rect {
	w := rapid.Float64Range(50, 2000).Draw(t, "width")
	h := rapid.Float64Range(50, 2000).Draw(t, "height")
	return Rect{X1: w, Y1: h}
}

func TestSquarifyTilesContainer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := drawWeights(t)
		bounds := drawBounds(t)

		var sum float64
		for _, r := range Squarify(ws, bounds) {
			sum += r.Area()
		}
		if diff := math.Abs(sum - bounds.Area()); diff > 1e-6*bounds.Area() {
			t.Fatalf("areas sum to %v, container is %v", sum, bounds.Area())
		}
	})
}

func TestSquarifyAreasProportional(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := drawWeights(t)
		bounds := drawBounds(t)
		rects := Squarify(ws, bounds)

		var total float64
		for _, w := range ws {
			total += w
		}
		for i, r := range rects {
			want := ws[i] / total * bounds.Area()
			if math.Abs(r.Area()-want) > 1e-6*bounds.Area() {
				t.Fatalf("rect %d area %v, want %v", i, r.Area(), want)
			}
		}
	})
}

func TestSquarifyMonotoneArea(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := drawWeights(t)
		rects := Squarify(ws, drawBounds(t))
		for i := 1; i < len(rects); i++ {
			if rects[i].Area() > rects[i-1].Area()*(1+1e-9) {
				t.Fatalf("weight %v got area %v, heavier weight %v got %v",
					ws[i], rects[i].Area(), ws[i-1], rects[i-1].Area())
			}
		}
	})
}

func TestLayoutDisjointAndInside(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := drawWeights(t)
		w := rapid.Float64Range(50, 2000).Draw(t, "width")
		h := rapid.Float64Range(50, 2000).Draw(t, "height")
		pad := Padding{
			Inner: rapid.Float64Range(0, 6).Draw(t, "inner"),
			Outer: rapid.Float64Range(0, 10).Draw(t, "outer"),
		}

		items := make([]Item[int], len(ws))
		for i, wt := range ws {
			items[i] = Item[int]{Weight: wt, Payload: i}
		}
		res := Layout(items, Size{W: w, H: h}, pad)

		if len(res.Nodes)+res.Degenerate != len(items) {
			t.Fatalf("%d nodes + %d degenerate != %d items", len(res.Nodes), res.Degenerate, len(items))
		}
		for i, a := range res.Nodes {
			if a.X0 != math.Round(a.X0) || a.Y1 != math.Round(a.Y1) {
				t.Fatalf("node %d has fractional coordinates: %+v", i, a.Rect)
			}
			if a.X0 < math.Round(pad.Outer)-1 || a.X1 > math.Round(w-pad.Outer)+1 {
				t.Fatalf("node %d escapes the container: %+v", i, a.Rect)
			}
			for j := i + 1; j < len(res.Nodes); j++ {
				if a.Overlaps(res.Nodes[j].Rect) {
					t.Fatalf("nodes %d and %d overlap: %+v %+v", i, j, a.Rect, res.Nodes[j].Rect)
				}
			}
		}
	})
}

func TestLayoutRoundedAreaTracksWeight(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := drawWeights(t)
		items := make([]Item[float64], len(ws))
		for i, wt := range ws {
			items[i] = Item[float64]{Weight: wt, Payload: wt}
		}
		size := Size{W: 1200, H: 720}
		res := Layout(items, size, Padding{})

		// Rounding moves each edge by at most half a pixel.
		for i := 1; i < len(res.Nodes); i++ {
			prev, cur := res.Nodes[i-1], res.Nodes[i]
			tol := prev.Width() + prev.Height() + cur.Width() + cur.Height()
			if cur.Payload < prev.Payload && cur.Area() > prev.Area()+tol {
				t.Fatalf("weight %v has area %v, heavier %v has %v", cur.Payload, cur.Area(), prev.Payload, prev.Area())
			}
		}
	})
}
