package treemap

import (
	"math"
	"testing"
)

func TestLayoutTwoItemsFourToOne(t *testing.T) {
	items := []Item[string]{
		{Weight: 20, Payload: "small"},
		{Weight: 80, Payload: "big"},
	}
	res := Layout(items, Size{W: 400, H: 400}, Padding{})

	if len(res.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(res.Nodes))
	}
	if res.Nodes[0].Payload != "big" {
		t.Errorf("first node = %q, want big (descending weight)", res.Nodes[0].Payload)
	}
	if got := res.Nodes[0].Area(); got != 128000 {
		t.Errorf("big area = %v, want 128000", got)
	}
	if got := res.Nodes[1].Area(); got != 32000 {
		t.Errorf("small area = %v, want 32000", got)
	}
	want := Rect{X0: 0, Y0: 0, X1: 320, Y1: 400}
	if res.Nodes[0].Rect != want {
		t.Errorf("big rect = %+v, want %+v", res.Nodes[0].Rect, want)
	}
}

func TestLayoutEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		weights   []float64
		size      Size
		pad       Padding
		wantNodes int
		wantDrop  int
	}{
		{"no items", nil, Size{400, 300}, Padding{}, 0, 0},
		{"single item", []float64{5}, Size{400, 300}, Padding{}, 1, 0},
		{"non-positive dropped", []float64{10, 0, -3}, Size{400, 300}, Padding{}, 1, 2},
		{"nan and inf dropped", []float64{10, math.NaN(), math.Inf(1)}, Size{400, 300}, Padding{}, 1, 2},
		{"container below outer padding", []float64{10, 20}, Size{7, 300}, Padding{Outer: 4}, 0, 0},
		{"container equal to outer padding", []float64{10}, Size{8, 8}, Padding{Outer: 4}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]Item[int], len(tt.weights))
			for i, w := range tt.weights {
				items[i] = Item[int]{Weight: w, Payload: i}
			}
			res := Layout(items, tt.size, tt.pad)
			if len(res.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(res.Nodes), tt.wantNodes)
			}
			if res.Dropped != tt.wantDrop {
				t.Errorf("dropped = %d, want %d", res.Dropped, tt.wantDrop)
			}
		})
	}
}

func TestLayoutSingleItemFillsPaddedArea(t *testing.T) {
	res := Layout([]Item[int]{{Weight: 3, Payload: 1}}, Size{W: 500, H: 300}, Padding{Inner: 2, Outer: 4})
	if len(res.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(res.Nodes))
	}
	want := Rect{X0: 4, Y0: 4, X1: 496, Y1: 296}
	if res.Nodes[0].Rect != want {
		t.Errorf("rect = %+v, want %+v (inner padding must not touch the container edge)", res.Nodes[0].Rect, want)
	}
}

func TestLayoutEqualWeights(t *testing.T) {
	items := make([]Item[int], 4)
	for i := range items {
		items[i] = Item[int]{Weight: 1, Payload: i}
	}
	res := Layout(items, Size{W: 400, H: 400}, Padding{})
	for _, n := range res.Nodes {
		if n.Area() != 40000 {
			t.Errorf("node %d area = %v, want 40000", n.Payload, n.Area())
		}
	}
}

func TestLayoutStableOrderForTies(t *testing.T) {
	items := []Item[string]{{1, "a"}, {2, "b"}, {1, "c"}, {2, "d"}}
	res := Layout(items, Size{W: 600, H: 400}, Padding{})
	got := make([]string, len(res.Nodes))
	for i, n := range res.Nodes {
		got[i] = n.Payload
	}
	want := []string{"b", "d", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLayoutInnerPaddingSeparatesNeighbours(t *testing.T) {
	items := []Item[int]{{Weight: 1, Payload: 0}, {Weight: 1, Payload: 1}}
	res := Layout(items, Size{W: 400, H: 200}, Padding{Inner: 4})
	if len(res.Nodes) != 2 {
		t.Fatalf("got %d nodes", len(res.Nodes))
	}
	a, b := res.Nodes[0].Rect, res.Nodes[1].Rect
	if gap := b.X0 - a.X1; gap != 4 {
		t.Errorf("gap between neighbours = %v, want 4", gap)
	}
	if a.X0 != 0 || b.X1 != 400 {
		t.Errorf("outer edges moved: %+v %+v", a, b)
	}
}

func TestLayoutDegenerateDropped(t *testing.T) {
	items := []Item[int]{{Weight: 1e6, Payload: 0}, {Weight: 1e-6, Payload: 1}}
	res := Layout(items, Size{W: 100, H: 100}, Padding{Inner: 2})
	if len(res.Nodes) != 1 || res.Degenerate != 1 {
		t.Errorf("nodes = %d, degenerate = %d; want 1 and 1", len(res.Nodes), res.Degenerate)
	}
}

func TestLayoutHugeWeights(t *testing.T) {
	items := []Item[int]{{Weight: 1e308, Payload: 0}, {Weight: 1e308, Payload: 1}, {Weight: 5e307, Payload: 2}}
	res := Layout(items, Size{W: 400, H: 400}, Padding{})
	if len(res.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(res.Nodes))
	}
	var area float64
	for _, n := range res.Nodes {
		r := n.Rect
		for _, v := range []float64{r.X0, r.Y0, r.X1, r.Y1} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("node %d rect %+v is not finite", n.Payload, r)
			}
		}
		if r.X1 < r.X0 || r.Y1 < r.Y0 {
			t.Errorf("node %d rect %+v is inverted", n.Payload, r)
		}
		area += r.Area()
	}
	if math.Abs(area-160000) > 1 {
		t.Errorf("total area = %v, want 160000", area)
	}
	if res.Nodes[0].Area() != res.Nodes[1].Area() {
		t.Errorf("equal weights got areas %v and %v", res.Nodes[0].Area(), res.Nodes[1].Area())
	}
}

func TestRectEmptyNaN(t *testing.T) {
	if !(Rect{X1: math.NaN(), Y1: 10}).Empty() {
		t.Error("a rect with a NaN edge must be empty")
	}
}

func TestSquarifyWorstAspect(t *testing.T) {
	rects := Squarify([]float64{6, 6, 4, 3, 2, 2, 1}, Rect{X1: 6, Y1: 4})
	for i, r := range rects {
		ratio := math.Max(r.Width()/r.Height(), r.Height()/r.Width())
		if ratio > 4 {
			t.Errorf("rect %d aspect ratio %.2f, squarify should keep it low", i, ratio)
		}
	}
}

func TestRectContains(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := Rect{X0: 10, Y0: 0, X1: 20, Y1: 10}
	if !a.Contains(0, 0) {
		t.Error("top-left corner should be inside")
	}
	if a.Contains(10, 5) == b.Contains(10, 5) {
		t.Error("a shared edge must belong to exactly one rectangle")
	}
	if a.Overlaps(b) {
		t.Error("touching rectangles must not overlap")
	}
}
