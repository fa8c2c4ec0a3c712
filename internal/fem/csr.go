package fem

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix. Assembly accumulates entries
// per row and converts once, with column indices sorted within each row
// so the layout is deterministic for identical inputs.
type CSR struct {
	N      int
	RowPtr []int
	Col    []int
	Val    []float64
}

// rowAccum accumulates scattered element contributions for one row.
type rowAccum map[int]float64

// compress builds CSR storage from per-row accumulators.
func compress(rows []rowAccum) *CSR {
	n := len(rows)
	a := &CSR{N: n, RowPtr: make([]int, n+1)}
	for i, r := range rows {
		cols := make([]int, 0, len(r))
		for c := range r {
			cols = append(cols, c)
		}
		sort.Ints(cols)
		for _, c := range cols {
			a.Col = append(a.Col, c)
			a.Val = append(a.Val, r[c])
		}
		a.RowPtr[i+1] = len(a.Col)
	}
	return a
}

// MulVec computes dst = A·x.
func (a *CSR) MulVec(dst, x []float64) {
	for i := 0; i < a.N; i++ {
		var s float64
		for p := a.RowPtr[i]; p < a.RowPtr[i+1]; p++ {
			s += a.Val[p] * x[a.Col[p]]
		}
		dst[i] = s
	}
}

// Diagonal extracts the main diagonal.
func (a *CSR) Diagonal() []float64 {
	d := make([]float64, a.N)
	for i := 0; i < a.N; i++ {
		for p := a.RowPtr[i]; p < a.RowPtr[i+1]; p++ {
			if a.Col[p] == i {
				d[i] = a.Val[p]
				break
			}
		}
	}
	return d
}

// At returns the entry at (i, j), zero if not stored.
func (a *CSR) At(i, j int) float64 {
	for p := a.RowPtr[i]; p < a.RowPtr[i+1]; p++ {
		if a.Col[p] == j {
			return a.Val[p]
		}
	}
	return 0
}

// Dense expands the matrix into a symmetric dense form for the direct
// solver. Only the upper triangle is read, matching mat.SymDense.
func (a *CSR) Dense() *mat.SymDense {
	s := mat.NewSymDense(a.N, nil)
	for i := 0; i < a.N; i++ {
		for p := a.RowPtr[i]; p < a.RowPtr[i+1]; p++ {
			if j := a.Col[p]; j >= i {
				s.SetSym(i, j, a.Val[p])
			}
		}
	}
	return s
}
