package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/crimson-sun/thermofin/internal/fem"
	"github.com/crimson-sun/thermofin/internal/geometry"
	"github.com/crimson-sun/thermofin/internal/mesh"
	"github.com/crimson-sun/thermofin/internal/model"
)

// unitSquareMesh triangulates [0,1]² into two triangles.
func unitSquareMesh() *mesh.Mesh {
	return &mesh.Mesh{
		Nodes:    []mesh.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Elements: [][3]int{{0, 1, 2}, {0, 2, 3}},
		Boundary: []mesh.Edge{
			{A: 0, B: 1, Tag: mesh.TagBase},
			{A: 1, B: 2, Tag: mesh.TagSide},
			{A: 2, B: 3, Tag: mesh.TagTip},
			{A: 3, B: 0, Tag: mesh.TagSymmetry},
		},
	}
}

// linearField evaluates f = 1 + 2x + 3y at the mesh nodes. Linear
// fields are reproduced exactly by barycentric interpolation.
func linearField(m *mesh.Mesh) fem.TemperatureField {
	f := make(fem.TemperatureField, len(m.Nodes))
	for i, p := range m.Nodes {
		f[i] = 1 + 2*p.X + 3*p.Y
	}
	return f
}

func TestResample_LinearFieldExact(t *testing.T) {
	m := unitSquareMesh()
	bbox := model.BBox{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
	r := New(m, bbox, 8, 8)

	out, err := r.Resample(linearField(m))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	for iy := 0; iy < 8; iy++ {
		for ix := 0; ix < 8; ix++ {
			if !out.Valid(ix, iy) {
				t.Fatalf("cell (%d,%d) unexpectedly masked out", ix, iy)
			}
			x := (float64(ix) + 0.5) / 8
			y := (float64(iy) + 0.5) / 8
			want := 1 + 2*x + 3*y
			if math.Abs(out.At(ix, iy)-want) > 1e-12 {
				t.Fatalf("cell (%d,%d): got %g, want %g", ix, iy, out.At(ix, iy), want)
			}
		}
	}
}

func TestResample_ExactAtNodes(t *testing.T) {
	m := unitSquareMesh()
	// 2x2 grid over [-0.5,1.5]²: cell centers land exactly on the four
	// mesh nodes.
	bbox := model.BBox{XMin: -0.5, XMax: 1.5, YMin: -0.5, YMax: 1.5}
	r := New(m, bbox, 2, 2)

	field := fem.TemperatureField{10, 20, 30, 40}
	out, err := r.Resample(field)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	checks := []struct {
		ix, iy int
		want   float64
	}{
		{0, 0, 10}, // node (0,0)
		{1, 0, 20}, // node (1,0)
		{1, 1, 30}, // node (1,1)
		{0, 1, 40}, // node (0,1)
	}
	for _, c := range checks {
		if !out.Valid(c.ix, c.iy) {
			t.Fatalf("cell (%d,%d) at a mesh node masked out", c.ix, c.iy)
		}
		if math.Abs(out.At(c.ix, c.iy)-c.want) > 1e-12 {
			t.Fatalf("cell (%d,%d): got %g, want %g", c.ix, c.iy, out.At(c.ix, c.iy), c.want)
		}
	}
}

func TestResample_OutsideCellsMasked(t *testing.T) {
	m := unitSquareMesh()
	bbox := model.BBox{XMin: -1, XMax: 2, YMin: -1, YMax: 2}
	r := New(m, bbox, 6, 6)

	out, err := r.Resample(linearField(m))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	// corners of the padded box lie outside the square
	for _, c := range [][2]int{{0, 0}, {5, 0}, {0, 5}, {5, 5}} {
		if out.Valid(c[0], c[1]) {
			t.Fatalf("corner cell (%d,%d) should be outside the domain", c[0], c[1])
		}
		if out.At(c[0], c[1]) != 0 {
			t.Fatalf("masked cell (%d,%d) carries %g, want sentinel 0", c[0], c[1], out.At(c[0], c[1]))
		}
	}
	// center cells lie inside
	if !out.Valid(2, 2) || !out.Valid(3, 3) {
		t.Fatal("interior cells should be valid")
	}
}

func TestResample_MaskIsGeometryOnly(t *testing.T) {
	m := unitSquareMesh()
	bbox := model.BBox{XMin: -1, XMax: 2, YMin: -1, YMax: 2}
	r := New(m, bbox, 16, 16)

	a, err := r.Resample(linearField(m))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	b, err := r.Resample(fem.TemperatureField{-5, 0, 12, 7})
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	for i := range a.Mask {
		if a.Mask[i] != b.Mask[i] {
			t.Fatalf("mask differs at cell %d across fields", i)
		}
	}
	mask := r.Mask()
	for i := range mask {
		if mask[i] != a.Mask[i] {
			t.Fatalf("Mask() differs from sample mask at cell %d", i)
		}
	}
}

func TestResample_MirrorsAcrossSymmetryAxis(t *testing.T) {
	// Half-domain fin mesh; resample over the full symmetric box.
	schema := model.NewSchema(4)
	g, err := geometry.FromParams(model.ParameterVector{1, 2, 3, 4, 0.5, 1.5}, schema, 1.0)
	if err != nil {
		t.Fatalf("FromParams: %v", err)
	}
	m, err := mesh.Generate(g, mesh.Options{Density: 4, AspectRatioLimit: 8})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	bbox := model.BBox{XMin: -3, XMax: 3, YMin: 0, YMax: 4}
	r := New(m, bbox, 32, 32)

	field := make(fem.TemperatureField, len(m.Nodes))
	for i, p := range m.Nodes {
		field[i] = p.X*p.X + p.Y // even in x, arbitrary in y
	}
	out, err := r.Resample(field)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	for iy := 0; iy < 32; iy++ {
		for ix := 0; ix < 16; ix++ {
			mx := 31 - ix // mirrored column
			if out.Valid(ix, iy) != out.Valid(mx, iy) {
				t.Fatalf("mask not symmetric at (%d,%d)", ix, iy)
			}
			if !out.Valid(ix, iy) {
				continue
			}
			if math.Abs(out.At(ix, iy)-out.At(mx, iy)) > 1e-12 {
				t.Fatalf("value not symmetric at (%d,%d): %g vs %g",
					ix, iy, out.At(ix, iy), out.At(mx, iy))
			}
		}
	}

	// Bottom grid corners lie beside the post, outside the fin; the top
	// corners sit inside the flush topmost sub-fin.
	for _, c := range [][2]int{{0, 0}, {31, 0}} {
		if out.Valid(c[0], c[1]) {
			t.Fatalf("bottom corner cell (%d,%d) should be masked out", c[0], c[1])
		}
	}
	for _, c := range [][2]int{{0, 31}, {31, 31}} {
		if !out.Valid(c[0], c[1]) {
			t.Fatalf("top corner cell (%d,%d) lies inside the top sub-fin", c[0], c[1])
		}
	}
}

func TestResample_FieldSizeMismatch(t *testing.T) {
	m := unitSquareMesh()
	r := New(m, model.BBox{XMin: 0, XMax: 1, YMin: 0, YMax: 1}, 4, 4)
	_, err := r.Resample(fem.TemperatureField{1, 2})
	if err == nil {
		t.Fatal("expected error for short field")
	}
	if !errors.Is(err, ErrFieldSize) {
		t.Fatalf("expected ErrFieldSize, got: %v", err)
	}
}

func TestLocate_SharedEdgeFindsOneElement(t *testing.T) {
	m := unitSquareMesh()
	idx := newBucketIndex(m)
	// point on the diagonal shared by both triangles
	e, wgt := idx.locate(m, 0.5, 0.5)
	if e < 0 {
		t.Fatal("expected the diagonal point to be located")
	}
	var sum float64
	for _, w := range wgt {
		if w < -1e-12 {
			t.Fatalf("negative weight %g", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("weights sum to %g, want 1", sum)
	}
}
