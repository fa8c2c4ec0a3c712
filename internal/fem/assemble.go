// Package fem assembles and solves the steady-state heat conduction
// system for a meshed fin: piecewise-linear elements, a fixed heat flux
// on the base, convective (Robin) exchange on the exposed edges, and a
// natural zero-flux condition on the symmetry axis.
package fem

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/thermofin/internal/geometry"
	"github.com/crimson-sun/thermofin/internal/mesh"
)

// ErrNoSegment reports an element whose centroid lies in no geometry
// segment; it indicates a mesh/geometry mismatch and is not retryable.
var ErrNoSegment = errors.New("fem: element centroid outside all segments")

// System is the assembled linear system K·T = F.
type System struct {
	K *CSR
	F []float64
}

// Assemble builds the stiffness matrix and load vector for one mesh and
// geometry. Per element, the conductivity-weighted gradient integral
// contributes a local 3×3 block scattered into K. Convective boundary
// edges add the Robin correction Bi·L/6·[[2,1],[1,2]] to K; the ambient
// temperature is zero, so they add nothing to F. Base edges carry the
// fixed flux: F += q·L/2 at each endpoint.
func Assemble(m *mesh.Mesh, g geometry.FinGeometry) (*System, error) {
	n := len(m.Nodes)
	rows := make([]rowAccum, n)
	for i := range rows {
		rows[i] = make(rowAccum)
	}
	f := make([]float64, n)

	for e, tri := range m.Elements {
		a, b, c := m.Nodes[tri[0]], m.Nodes[tri[1]], m.Nodes[tri[2]]

		area := m.ElementArea(e)
		if area <= 0 {
			return nil, fmt.Errorf("%w: element %d area %g", mesh.ErrDegenerate, e, area)
		}

		cx := (a.X + b.X + c.X) / 3
		cy := (a.Y + b.Y + c.Y) / 3
		k, ok := g.ConductivityAt(cx, cy)
		if !ok {
			return nil, fmt.Errorf("%w: element %d centroid (%g, %g)", ErrNoSegment, e, cx, cy)
		}

		// Gradient coefficients of the linear basis functions:
		// bi = y_j - y_k, ci = x_k - x_j (cyclic).
		bb := [3]float64{b.Y - c.Y, c.Y - a.Y, a.Y - b.Y}
		cc := [3]float64{c.X - b.X, a.X - c.X, b.X - a.X}

		scale := k / (4 * area)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rows[tri[i]][tri[j]] += scale * (bb[i]*bb[j] + cc[i]*cc[j])
			}
		}
	}

	for _, edge := range m.Boundary {
		l := m.EdgeLength(edge)
		switch edge.Tag {
		case mesh.TagSide, mesh.TagTip:
			w := g.Biot * l / 6
			rows[edge.A][edge.A] += 2 * w
			rows[edge.B][edge.B] += 2 * w
			rows[edge.A][edge.B] += w
			rows[edge.B][edge.A] += w
		case mesh.TagBase:
			f[edge.A] += g.BaseFlux * l / 2
			f[edge.B] += g.BaseFlux * l / 2
		case mesh.TagSymmetry:
			// natural boundary: no contribution
		}
	}

	return &System{K: compress(rows), F: f}, nil
}
