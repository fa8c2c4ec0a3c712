// Package resample maps nodal temperature fields onto a fixed uniform
// grid. Point location uses a bucketed spatial index over the mesh
// elements, and interpolation is barycentric, matching the linear FEM
// basis exactly: values at points coinciding with mesh nodes reproduce
// the nodal values.
package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/crimson-sun/thermofin/internal/fem"
	"github.com/crimson-sun/thermofin/internal/mesh"
	"github.com/crimson-sun/thermofin/internal/model"
)

// ErrFieldSize reports a field whose length does not match the mesh.
var ErrFieldSize = errors.New("resample: field length does not match mesh")

const baryEps = 1e-12

// Resampler resamples fields defined on one fixed mesh onto a W×H grid
// over the given bounding box. Cell locations are precomputed at
// construction, so the validity mask is a function of geometry alone and
// per-field resampling is a weighted gather.
//
// When the box extends to negative x and the mesh covers only the x >= 0
// half domain, cell centers at negative x are evaluated at their mirror
// image, reproducing the full symmetric fin.
type Resampler struct {
	w, h int
	bbox model.BBox

	elem    []int        // enclosing element per cell, -1 if outside
	weights [][3]float64 // barycentric weights per cell
	nodes   [][3]int     // node indices per cell
}

// New builds a resampler for the mesh. The mesh is only read during
// construction.
func New(m *mesh.Mesh, bbox model.BBox, w, h int) *Resampler {
	r := &Resampler{
		w: w, h: h, bbox: bbox,
		elem:    make([]int, w*h),
		weights: make([][3]float64, w*h),
		nodes:   make([][3]int, w*h),
	}

	idx := newBucketIndex(m)
	mb := m.Bounds()
	mirror := bbox.XMin < mb.XMin

	dx := bbox.Width() / float64(w)
	dy := bbox.Height() / float64(h)

	for iy := 0; iy < h; iy++ {
		y := bbox.YMin + (float64(iy)+0.5)*dy
		for ix := 0; ix < w; ix++ {
			x := bbox.XMin + (float64(ix)+0.5)*dx
			if mirror && x < mb.XMin {
				x = 2*mb.XMin - x
			}
			cell := iy*w + ix
			e, wgt := idx.locate(m, x, y)
			r.elem[cell] = e
			if e >= 0 {
				r.weights[cell] = wgt
				r.nodes[cell] = m.Elements[e]
			}
		}
	}
	return r
}

// Resample interpolates the field onto the grid. Cells outside the fin
// get the sentinel value 0 and a false mask entry.
func (r *Resampler) Resample(field fem.TemperatureField) (model.GridSample, error) {
	nodeCount := 0
	for _, tri := range r.nodes {
		for _, n := range tri {
			if n+1 > nodeCount {
				nodeCount = n + 1
			}
		}
	}
	if len(field) < nodeCount {
		return model.GridSample{}, fmt.Errorf("%w: %d values, need at least %d", ErrFieldSize, len(field), nodeCount)
	}

	out := model.NewGridSample(r.w, r.h)
	for cell, e := range r.elem {
		if e < 0 {
			continue
		}
		tri := r.nodes[cell]
		wgt := r.weights[cell]
		out.Values[cell] = wgt[0]*field[tri[0]] + wgt[1]*field[tri[1]] + wgt[2]*field[tri[2]]
		out.Mask[cell] = true
	}
	return out, nil
}

// Mask returns a copy of the validity mask.
func (r *Resampler) Mask() []bool {
	out := make([]bool, len(r.elem))
	for i, e := range r.elem {
		out[i] = e >= 0
	}
	return out
}

// bucketIndex bins element bounding boxes into a uniform grid of
// buckets so point location scans only nearby candidates.
type bucketIndex struct {
	bounds  model.BBox
	nx, ny  int
	dx, dy  float64
	buckets [][]int
}

func newBucketIndex(m *mesh.Mesh) *bucketIndex {
	b := &bucketIndex{bounds: m.Bounds()}
	n := len(m.Elements)
	side := int(math.Ceil(math.Sqrt(float64(n) / 2)))
	if side < 1 {
		side = 1
	}
	b.nx, b.ny = side, side
	b.dx = b.bounds.Width() / float64(b.nx)
	b.dy = b.bounds.Height() / float64(b.ny)
	b.buckets = make([][]int, b.nx*b.ny)

	for e, tri := range m.Elements {
		x0, x1 := m.Nodes[tri[0]].X, m.Nodes[tri[0]].X
		y0, y1 := m.Nodes[tri[0]].Y, m.Nodes[tri[0]].Y
		for _, v := range tri[1:] {
			x0 = math.Min(x0, m.Nodes[v].X)
			x1 = math.Max(x1, m.Nodes[v].X)
			y0 = math.Min(y0, m.Nodes[v].Y)
			y1 = math.Max(y1, m.Nodes[v].Y)
		}
		i0, j0 := b.cellOf(x0, y0)
		i1, j1 := b.cellOf(x1, y1)
		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				b.buckets[j*b.nx+i] = append(b.buckets[j*b.nx+i], e)
			}
		}
	}
	return b
}

func (b *bucketIndex) cellOf(x, y float64) (int, int) {
	i := int((x - b.bounds.XMin) / b.dx)
	j := int((y - b.bounds.YMin) / b.dy)
	return clamp(i, b.nx-1), clamp(j, b.ny-1)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// locate finds the element containing (x, y) and its barycentric
// weights, or (-1, zero) when the point is outside every element.
func (b *bucketIndex) locate(m *mesh.Mesh, x, y float64) (int, [3]float64) {
	if !b.bounds.Contains(x, y) {
		return -1, [3]float64{}
	}
	i, j := b.cellOf(x, y)
	for _, e := range b.buckets[j*b.nx+i] {
		if wgt, ok := barycentric(m, e, x, y); ok {
			return e, wgt
		}
	}
	return -1, [3]float64{}
}

// barycentric computes the weights of (x, y) in element e, reporting
// whether the point lies inside (with a small tolerance so points on
// shared edges land in exactly one adjacent element deterministically).
func barycentric(m *mesh.Mesh, e int, x, y float64) ([3]float64, bool) {
	tri := m.Elements[e]
	a, bb, c := m.Nodes[tri[0]], m.Nodes[tri[1]], m.Nodes[tri[2]]

	det := (bb.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(bb.Y-a.Y)
	if det == 0 {
		return [3]float64{}, false
	}
	l1 := ((x-a.X)*(c.Y-a.Y) - (c.X-a.X)*(y-a.Y)) / det
	l2 := ((bb.X-a.X)*(y-a.Y) - (x-a.X)*(bb.Y-a.Y)) / det
	l0 := 1 - l1 - l2
	if l0 < -baryEps || l1 < -baryEps || l2 < -baryEps {
		return [3]float64{}, false
	}
	return [3]float64{l0, l1, l2}, true
}
