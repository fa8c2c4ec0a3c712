package mesh

import (
	"fmt"
	"math"

	"github.com/crimson-sun/thermofin/internal/geometry"
)

// Options controls triangulation.
type Options struct {
	Density          float64 // target grid lines per unit length
	AspectRatioLimit float64 // maximum admissible element aspect ratio (0 disables the check)
}

// Generate triangulates the half-domain fin geometry on a lattice whose
// grid lines are aligned with every segment boundary, so the resulting
// triangulation traces the fin outline exactly. Each lattice cell whose
// center lies inside the fin is split into two triangles.
//
// Fails with ErrDegenerate or ErrAspectRatio when the requested density
// cannot produce admissible elements; both are retryable with a higher
// density.
func Generate(g geometry.FinGeometry, opt Options) (*Mesh, error) {
	if opt.Density <= 0 {
		return nil, fmt.Errorf("%w: non-positive density %g", ErrDegenerate, opt.Density)
	}

	bx, by := g.Breakpoints()
	xs := subdivide(bx, opt.Density)
	ys := subdivide(by, opt.Density)

	m := &Mesh{}

	// Lattice node indices, assigned on first use.
	type coord struct{ i, j int }
	nodeID := make(map[coord]int)
	node := func(i, j int) int {
		if id, ok := nodeID[coord{i, j}]; ok {
			return id
		}
		id := len(m.Nodes)
		nodeID[coord{i, j}] = id
		m.Nodes = append(m.Nodes, Point{X: xs[i], Y: ys[j]})
		return id
	}

	for j := 0; j+1 < len(ys); j++ {
		for i := 0; i+1 < len(xs); i++ {
			cx := 0.5 * (xs[i] + xs[i+1])
			cy := 0.5 * (ys[j] + ys[j+1])
			if !g.Contains(cx, cy) {
				continue
			}
			v00 := node(i, j)
			v10 := node(i+1, j)
			v11 := node(i+1, j+1)
			v01 := node(i, j+1)
			m.Elements = append(m.Elements, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
		}
	}

	if len(m.Elements) == 0 {
		return nil, fmt.Errorf("%w: triangulation produced no elements", ErrDegenerate)
	}

	if opt.AspectRatioLimit > 0 {
		for e := range m.Elements {
			if r := m.AspectRatio(e); r > opt.AspectRatioLimit {
				return nil, fmt.Errorf("%w: element %d has ratio %.3g (limit %g)",
					ErrAspectRatio, e, r, opt.AspectRatioLimit)
			}
		}
	}

	tagBoundary(m, g)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// subdivide evenly splits each interval between consecutive breakpoints
// into round(length·density) pieces (at least one), returning the full
// sorted lattice coordinates. Aligning the subdivision with the
// breakpoints keeps step sizes near 1/density without skinny slivers.
func subdivide(breaks []float64, density float64) []float64 {
	out := []float64{breaks[0]}
	for k := 0; k+1 < len(breaks); k++ {
		a, b := breaks[k], breaks[k+1]
		n := int(math.Round((b - a) * density))
		if n < 1 {
			n = 1
		}
		step := (b - a) / float64(n)
		for i := 1; i < n; i++ {
			out = append(out, a+float64(i)*step)
		}
		out = append(out, b)
	}
	return out
}

// tagBoundary finds edges used by exactly one element and tags them by
// location: y at the domain bottom is the base, y at the top is the tip,
// x on the symmetry axis is the symmetry boundary, everything else is a
// convective side edge.
func tagBoundary(m *Mesh, g geometry.FinGeometry) {
	bounds := g.Bounds()
	eps := 1e-9 * math.Max(bounds.Width(), bounds.Height())

	counts := make(map[[2]int]int)
	order := make([][2]int, 0)
	for _, t := range m.Elements {
		for i := 0; i < 3; i++ {
			key := edgeKey(t[i], t[(i+1)%3])
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	// Iterate in first-use order so edge ordering is deterministic.
	for _, key := range order {
		if counts[key] != 1 {
			continue
		}
		a, b := m.Nodes[key[0]], m.Nodes[key[1]]
		var tag BoundaryTag
		switch {
		case math.Abs(a.Y-bounds.YMin) < eps && math.Abs(b.Y-bounds.YMin) < eps:
			tag = TagBase
		case math.Abs(a.Y-bounds.YMax) < eps && math.Abs(b.Y-bounds.YMax) < eps:
			tag = TagTip
		case math.Abs(a.X-bounds.XMin) < eps && math.Abs(b.X-bounds.XMin) < eps:
			tag = TagSymmetry
		default:
			tag = TagSide
		}
		m.Boundary = append(m.Boundary, Edge{A: key[0], B: key[1], Tag: tag})
	}
}

// EdgeLength returns the length of boundary edge e.
func (m *Mesh) EdgeLength(e Edge) float64 {
	a, b := m.Nodes[e.A], m.Nodes[e.B]
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
