// Package geometry derives a concrete fin geometry from a parameter
// vector. The fin is symmetric about x = 0, so all segments describe the
// half domain x >= 0: a vertical post with a stack of horizontal sub-fins
// attached to its right side. Heat enters through the post root (y = 0)
// and leaves through convection on the exposed edges.
package geometry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/crimson-sun/thermofin/internal/model"
)

// Reference fin proportions: a post of half-width 0.5 and height 4 with
// sub-fins spanning 2.5 to each side. Sub-fin thickness is a quarter of
// the attachment spacing, which reproduces the classic four-fin layout
// (thickness 0.25 at heights 0.75-1, 1.75-2, 2.75-3, 3.75-4).
const (
	PostHalfWidth = 0.5
	PostHeight    = 4.0
	SubFinSpan    = 2.5
)

var (
	// ErrBadSegment reports a derived segment with non-positive dimensions.
	ErrBadSegment = errors.New("geometry: non-positive segment dimension")
	// ErrBadConductivity reports a non-positive conductivity parameter.
	ErrBadConductivity = errors.New("geometry: non-positive conductivity")
	// ErrNegativeBiot reports a negative convective coefficient.
	ErrNegativeBiot = errors.New("geometry: negative Biot number")
	// ErrSchemaMismatch reports a vector whose length does not match the schema.
	ErrSchemaMismatch = errors.New("geometry: parameter vector does not match schema")
)

// Segment is one axis-aligned rectangular piece of the fin with uniform
// conductivity, in half-domain coordinates.
type Segment struct {
	X0, X1       float64
	Y0, Y1       float64
	Conductivity float64
}

// Contains reports whether (x, y) lies inside the segment (inclusive).
func (s Segment) Contains(x, y float64) bool {
	return x >= s.X0 && x <= s.X1 && y >= s.Y0 && y <= s.Y1
}

// FinGeometry is the half-domain fin: the post plus its sub-fins,
// ordered bottom to top, with the convective coefficient and the fixed
// base heat flux.
type FinGeometry struct {
	Post     Segment
	SubFins  []Segment
	Biot     float64
	BaseFlux float64
}

// FromParams derives the fin geometry from a parameter vector laid out
// by schema. It is pure and deterministic. Vectors produced by the
// sampler always pass; the error paths guard hand-built vectors.
func FromParams(p model.ParameterVector, schema model.Schema, baseFlux float64) (FinGeometry, error) {
	if len(p) != schema.Len() {
		return FinGeometry{}, fmt.Errorf("%w: got %d parameters, schema has %d",
			ErrSchemaMismatch, len(p), schema.Len())
	}
	if baseFlux <= 0 {
		return FinGeometry{}, fmt.Errorf("%w: base flux %g", ErrBadSegment, baseFlux)
	}

	biot := p[schema.BiotIndex()]
	if biot < 0 {
		return FinGeometry{}, fmt.Errorf("%w: %g", ErrNegativeBiot, biot)
	}
	postK := p[schema.PostIndex()]
	if postK <= 0 {
		return FinGeometry{}, fmt.Errorf("%w: post conductivity %g", ErrBadConductivity, postK)
	}

	g := FinGeometry{
		Post: Segment{
			X0: 0, X1: PostHalfWidth,
			Y0: 0, Y1: PostHeight,
			Conductivity: postK,
		},
		Biot:     biot,
		BaseFlux: baseFlux,
	}

	n := schema.SubFins
	if n == 0 {
		return g, nil
	}

	spacing := PostHeight / float64(n)
	thickness := spacing / 4
	for i := 0; i < n; i++ {
		k := p[schema.SubFinIndex(i)]
		if k <= 0 {
			return FinGeometry{}, fmt.Errorf("%w: sub-fin %d conductivity %g", ErrBadConductivity, i+1, k)
		}
		top := float64(i+1) * spacing
		seg := Segment{
			X0: PostHalfWidth, X1: PostHalfWidth + SubFinSpan,
			Y0: top - thickness, Y1: top,
			Conductivity: k,
		}
		if seg.X1 <= seg.X0 || seg.Y1 <= seg.Y0 {
			return FinGeometry{}, fmt.Errorf("%w: sub-fin %d", ErrBadSegment, i+1)
		}
		g.SubFins = append(g.SubFins, seg)
	}
	return g, nil
}

// Segments returns the post followed by the sub-fins, bottom to top.
func (g FinGeometry) Segments() []Segment {
	out := make([]Segment, 0, len(g.SubFins)+1)
	out = append(out, g.Post)
	out = append(out, g.SubFins...)
	return out
}

// Bounds returns the half-domain bounding box.
func (g FinGeometry) Bounds() model.BBox {
	b := model.BBox{
		XMin: g.Post.X0, XMax: g.Post.X1,
		YMin: g.Post.Y0, YMax: g.Post.Y1,
	}
	for _, s := range g.SubFins {
		if s.X1 > b.XMax {
			b.XMax = s.X1
		}
		if s.Y1 > b.YMax {
			b.YMax = s.Y1
		}
	}
	return b
}

// Contains reports whether (x, y) lies inside the fin material.
func (g FinGeometry) Contains(x, y float64) bool {
	if g.Post.Contains(x, y) {
		return true
	}
	for _, s := range g.SubFins {
		if s.Contains(x, y) {
			return true
		}
	}
	return false
}

// ConductivityAt returns the conductivity of the segment containing
// (x, y). Sub-fins take precedence over the post on shared edges only
// where they overlap the post boundary line; interiors never overlap.
func (g FinGeometry) ConductivityAt(x, y float64) (float64, bool) {
	for _, s := range g.SubFins {
		if s.Contains(x, y) {
			return s.Conductivity, true
		}
	}
	if g.Post.Contains(x, y) {
		return g.Post.Conductivity, true
	}
	return 0, false
}

// Breakpoints returns the sorted distinct x and y coordinates where
// segment boundaries lie. The mesh generator aligns its lattice with
// these so the triangulation traces the fin outline exactly.
func (g FinGeometry) Breakpoints() (xs, ys []float64) {
	xset := map[float64]struct{}{}
	yset := map[float64]struct{}{}
	for _, s := range g.Segments() {
		xset[s.X0] = struct{}{}
		xset[s.X1] = struct{}{}
		yset[s.Y0] = struct{}{}
		yset[s.Y1] = struct{}{}
	}
	for x := range xset {
		xs = append(xs, x)
	}
	for y := range yset {
		ys = append(ys, y)
	}
	sort.Float64s(xs)
	sort.Float64s(ys)
	return xs, ys
}
