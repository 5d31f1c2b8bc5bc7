// Package treemap computes area-proportional rectangle tilings.
//
// [Layout] takes weighted items and a container and returns one rectangle per
// positive-weight item, sized so that each rectangle's area is proportional
// to its weight. Rectangles are produced by the squarified algorithm of
// Bruls, Huizing and van Wijk, which keeps aspect ratios close to 1 by
// laying rows along the shorter side of the remaining space.
//
// The output is integral: every coordinate is rounded to a whole pixel.
// Edges shared by two rectangles are derived from a single float value, so
// independent rounding can never make neighbours overlap.
package treemap

import (
	"cmp"
	"math"
	"slices"
)

// Item is a weighted payload. Only items with a finite, positive weight
// receive a rectangle.
type Item[T any] struct {
	Weight  float64
	Payload T
}

// Node is a laid-out item.
type Node[T any] struct {
	Rect
	Payload T
}

// Padding controls the gaps of a layout. Outer insets the container on every
// side before tiling. Inner is the gap between neighbouring rectangles; each
// rectangle gives up Inner/2 on every edge it shares with another rectangle.
type Padding struct {
	Inner float64 `toml:"inner_padding" json:"inner_padding"`
	Outer float64 `toml:"outer_padding" json:"outer_padding"`
}

// Result is the output of [Layout].
type Result[T any] struct {
	// Nodes are ordered by descending weight; ties keep input order.
	Nodes []Node[T]

	// Dropped counts items rejected for a non-positive or non-finite weight.
	Dropped int

	// Degenerate counts rectangles removed because padding and rounding
	// left them without area.
	Degenerate int
}

// Layout tiles the padded container with one rectangle per usable item.
//
// Items with weight <= 0, NaN or ±Inf are removed before layout and counted
// in Result.Dropped. When the container is smaller than twice the outer
// padding in either dimension the result holds no nodes.
func Layout[T any](items []Item[T], bounds Size, pad Padding) Result[T] {
	kept := make([]Item[T], 0, len(items))
	for _, it := range items {
		if usable(it.Weight) {
			kept = append(kept, it)
		}
	}
	res := Result[T]{Dropped: len(items) - len(kept)}

	container := Rect{X0: 0, Y0: 0, X1: bounds.W, Y1: bounds.H}.Inset(pad.Outer)
	if len(kept) == 0 || container.Empty() {
		return res
	}

	slices.SortStableFunc(kept, func(a, b Item[T]) int {
		return cmp.Compare(b.Weight, a.Weight)
	})

	weights := make([]float64, len(kept))
	for i, it := range kept {
		weights[i] = it.Weight
	}
	rects := Squarify(weights, container)

	half := pad.Inner / 2
	res.Nodes = make([]Node[T], 0, len(kept))
	for i, r := range rects {
		r = insetShared(r, container, half).Round()
		if r.Empty() {
			res.Degenerate++
			continue
		}
		res.Nodes = append(res.Nodes, Node[T]{Rect: r, Payload: kept[i].Payload})
	}
	return res
}

// Squarify tiles bounds with rectangles whose areas are proportional to
// weights. Weights must be positive and sorted in descending order; the
// returned slice is parallel to weights. No padding or rounding is applied,
// so the rectangles tile bounds exactly (up to float error).
func Squarify(weights []float64, bounds Rect) []Rect {
	out := make([]Rect, len(weights))
	if len(weights) == 0 || bounds.Empty() {
		return out
	}

	// Weights are taken relative to the largest so huge finite values
	// cannot overflow the total.
	var largest float64
	for _, w := range weights {
		largest = math.Max(largest, w)
	}
	areas := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		areas[i] = w / largest
		total += areas[i]
	}
	scale := bounds.Area() / total
	for i := range areas {
		areas[i] *= scale
	}

	remaining := bounds
	for i := 0; i < len(areas); {
		side := math.Min(remaining.Width(), remaining.Height())
		j, sum := i+1, areas[i]
		best := worst(areas[i], areas[i], sum, side)
		for j < len(areas) {
			next := sum + areas[j]
			w := worst(areas[i], areas[j], next, side)
			if w > best {
				break
			}
			best, sum = w, next
			j++
		}
		remaining = placeRow(areas[i:j], sum, remaining, out[i:j], j == len(areas))
		i = j
	}
	return out
}

// worst returns the largest aspect ratio in a row laid along a side of the
// given length, where rmax and rmin are the row's extreme areas and sum is
// its total area.
func worst(rmax, rmin, sum, side float64) float64 {
	if sum <= 0 || side <= 0 || rmin <= 0 {
		return math.Inf(1)
	}
	s2, w2 := sum*sum, side*side
	return math.Max(w2*rmax/s2, s2/(w2*rmin))
}

// placeRow lays one row of areas along the shorter side of r, writes the
// rectangles to dst and returns the space left over. The final row snaps to
// the far edge of r to absorb float drift.
func placeRow(areas []float64, sum float64, r Rect, dst []Rect, last bool) Rect {
	if r.Width() >= r.Height() {
		thick := sum / r.Height()
		x1 := r.X0 + thick
		if last || x1 > r.X1 {
			x1 = r.X1
		}
		y := r.Y0
		for k, a := range areas {
			y1 := y + a/thick
			if k == len(areas)-1 {
				y1 = r.Y1
			}
			dst[k] = Rect{X0: r.X0, Y0: y, X1: x1, Y1: y1}
			y = y1
		}
		return Rect{X0: x1, Y0: r.Y0, X1: r.X1, Y1: r.Y1}
	}

	thick := sum / r.Width()
	y1 := r.Y0 + thick
	if last || y1 > r.Y1 {
		y1 = r.Y1
	}
	x := r.X0
	for k, a := range areas {
		x1 := x + a/thick
		if k == len(areas)-1 {
			x1 = r.X1
		}
		dst[k] = Rect{X0: x, Y0: r.Y0, X1: x1, Y1: y1}
		x = x1
	}
	return Rect{X0: r.X0, Y0: y1, X1: r.X1, Y1: r.Y1}
}

const edgeEpsilon = 1e-9

// insetShared moves every edge of r that is not on the container boundary
// inward by d.
func insetShared(r, container Rect, d float64) Rect {
	if d == 0 {
		return r
	}
	if math.Abs(r.X0-container.X0) > edgeEpsilon {
		r.X0 += d
	}
	if math.Abs(r.Y0-container.Y0) > edgeEpsilon {
		r.Y0 += d
	}
	if math.Abs(r.X1-container.X1) > edgeEpsilon {
		r.X1 -= d
	}
	if math.Abs(r.Y1-container.Y1) > edgeEpsilon {
		r.Y1 -= d
	}
	return r
}

func usable(w float64) bool {
	return w > 0 && !math.IsInf(w, 1) && !math.IsNaN(w)
}
