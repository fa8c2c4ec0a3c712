// Package mesh triangulates fin geometries into conforming
// finite-element meshes with tagged boundary edges.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/crimson-sun/thermofin/internal/model"
)

var (
	// ErrDegenerate reports an element with repeated nodes or near-zero area.
	ErrDegenerate = errors.New("mesh: degenerate element")
	// ErrAspectRatio reports an element above the configured aspect ratio limit.
	ErrAspectRatio = errors.New("mesh: element aspect ratio above limit")
	// ErrBoundaryTags reports boundary edges that do not partition the
	// mesh boundary exactly once.
	ErrBoundaryTags = errors.New("mesh: boundary tags do not partition the boundary")
)

// Point is a 2D node coordinate.
type Point struct {
	X, Y float64
}

// BoundaryTag identifies the physical role of a boundary edge.
type BoundaryTag uint8

const (
	TagNone     BoundaryTag = iota
	TagBase                 // fin root, fixed heat flux
	TagTip                  // top boundary, convective
	TagSide                 // exposed side edges, convective
	TagSymmetry             // symmetry axis at x = 0, zero flux
)

func (t BoundaryTag) String() string {
	switch t {
	case TagBase:
		return "base"
	case TagTip:
		return "tip"
	case TagSide:
		return "side"
	case TagSymmetry:
		return "symmetry"
	default:
		return "none"
	}
}

// Edge is one boundary edge between two node indices.
type Edge struct {
	A, B int
	Tag  BoundaryTag
}

// Mesh is a conforming triangulation: nodes, triangles (counterclockwise
// node index triples), and the tagged boundary edges.
type Mesh struct {
	Nodes    []Point
	Elements [][3]int
	Boundary []Edge
}

// Bounds returns the axis-aligned bounding box of all nodes.
func (m *Mesh) Bounds() model.BBox {
	if len(m.Nodes) == 0 {
		return model.BBox{}
	}
	b := model.BBox{
		XMin: m.Nodes[0].X, XMax: m.Nodes[0].X,
		YMin: m.Nodes[0].Y, YMax: m.Nodes[0].Y,
	}
	for _, p := range m.Nodes[1:] {
		b.XMin = math.Min(b.XMin, p.X)
		b.XMax = math.Max(b.XMax, p.X)
		b.YMin = math.Min(b.YMin, p.Y)
		b.YMax = math.Max(b.YMax, p.Y)
	}
	return b
}

// ElementArea returns the signed area of element e (positive for
// counterclockwise orientation).
func (m *Mesh) ElementArea(e int) float64 {
	t := m.Elements[e]
	a, b, c := m.Nodes[t[0]], m.Nodes[t[1]], m.Nodes[t[2]]
	return 0.5 * ((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y))
}

// AspectRatio returns longest-edge² / (2·area), a scale-free shape
// measure that is 2 for a right isosceles triangle and grows without
// bound as the element degenerates.
func (m *Mesh) AspectRatio(e int) float64 {
	t := m.Elements[e]
	a, b, c := m.Nodes[t[0]], m.Nodes[t[1]], m.Nodes[t[2]]
	l1 := sq(b.X-a.X) + sq(b.Y-a.Y)
	l2 := sq(c.X-b.X) + sq(c.Y-b.Y)
	l3 := sq(a.X-c.X) + sq(a.Y-c.Y)
	longest := math.Max(l1, math.Max(l2, l3))
	area := math.Abs(m.ElementArea(e))
	if area == 0 {
		return math.Inf(1)
	}
	return longest / (2 * area)
}

func sq(v float64) float64 { return v * v }

// Validate checks structural invariants: every element has three
// distinct nodes and strictly positive area, and the tagged boundary
// edges cover the topological boundary exactly once.
func (m *Mesh) Validate() error {
	for e, t := range m.Elements {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return fmt.Errorf("%w: element %d repeats node indices %v", ErrDegenerate, e, t)
		}
		if m.ElementArea(e) <= 0 {
			return fmt.Errorf("%w: element %d has area %g", ErrDegenerate, e, m.ElementArea(e))
		}
	}

	// Count undirected edge usage across elements. Edges used once are
	// topological boundary; they must match the tagged set exactly.
	counts := make(map[[2]int]int)
	for _, t := range m.Elements {
		for i := 0; i < 3; i++ {
			counts[edgeKey(t[i], t[(i+1)%3])]++
		}
	}

	tagged := make(map[[2]int]int)
	for _, e := range m.Boundary {
		if e.Tag == TagNone {
			return fmt.Errorf("%w: edge (%d,%d) is untagged", ErrBoundaryTags, e.A, e.B)
		}
		tagged[edgeKey(e.A, e.B)]++
	}

	for key, n := range counts {
		switch {
		case n == 1 && tagged[key] != 1:
			return fmt.Errorf("%w: boundary edge (%d,%d) tagged %d times",
				ErrBoundaryTags, key[0], key[1], tagged[key])
		case n > 1 && tagged[key] != 0:
			return fmt.Errorf("%w: interior edge (%d,%d) carries a tag",
				ErrBoundaryTags, key[0], key[1])
		}
	}
	for key := range tagged {
		if counts[key] != 1 {
			return fmt.Errorf("%w: tagged edge (%d,%d) is not a boundary edge",
				ErrBoundaryTags, key[0], key[1])
		}
	}
	return nil
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
