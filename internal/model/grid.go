package model

// BBox is an axis-aligned bounding box in the fin's coordinate system.
type BBox struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Width returns the horizontal extent.
func (b BBox) Width() float64 { return b.XMax - b.XMin }

// Height returns the vertical extent.
func (b BBox) Height() float64 { return b.YMax - b.YMin }

// Contains reports whether (x, y) lies inside the box (inclusive).
func (b BBox) Contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// GridSample is a temperature field resampled onto a fixed W×H grid,
// stored row-major (row iy, column ix at index iy*W+ix, y increasing
// upward). Mask is true where the cell center lies inside the fin;
// masked-out cells carry the value 0.
type GridSample struct {
	W, H   int
	Values []float64
	Mask   []bool
}

// NewGridSample allocates a zeroed W×H sample with an all-false mask.
func NewGridSample(w, h int) GridSample {
	return GridSample{
		W:      w,
		H:      h,
		Values: make([]float64, w*h),
		Mask:   make([]bool, w*h),
	}
}

// At returns the value at column ix, row iy.
func (g GridSample) At(ix, iy int) float64 { return g.Values[iy*g.W+ix] }

// Valid reports whether the cell at column ix, row iy is inside the fin.
func (g GridSample) Valid(ix, iy int) bool { return g.Mask[iy*g.W+ix] }
