package fem

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/thermofin/internal/geometry"
)

var (
	// ErrSingular reports a singular stiffness matrix. This happens
	// deterministically when the convective coefficient is zero: without
	// the Robin term the operator has the constant functions in its null
	// space, so the system has no unique solution.
	ErrSingular = errors.New("fem: singular system")
	// ErrNoConvergence reports an iterative solve that did not reach the
	// residual tolerance within the iteration budget. Not retryable.
	ErrNoConvergence = errors.New("fem: solver did not converge")
)

// TemperatureField holds one solved temperature per mesh node. It is
// produced by Solve and never mutated afterwards.
type TemperatureField []float64

// SolverOptions tunes the linear solve.
type SolverOptions struct {
	Method        string  // "cg" (default) or "cholesky"
	Tolerance     float64 // relative residual threshold
	MaxIterations int     // 0 means 4·n
}

// Solve computes nodal temperatures for the assembled system. The
// geometry supplies the convective coefficient for the singularity
// guard: a zero Biot number is rejected up front rather than letting
// the solver stagnate on a semi-definite matrix.
func Solve(sys *System, g geometry.FinGeometry, opt SolverOptions) (TemperatureField, error) {
	if g.Biot <= 0 {
		return nil, fmt.Errorf("%w: convective coefficient is %g, stiffness matrix is only positive semi-definite", ErrSingular, g.Biot)
	}
	tol := opt.Tolerance
	if tol <= 0 {
		tol = 1e-8
	}
	switch opt.Method {
	case "", "cg":
		return solveCG(sys, tol, opt.MaxIterations)
	case "cholesky":
		return solveCholesky(sys, tol)
	default:
		return nil, fmt.Errorf("fem: unknown solver method %q", opt.Method)
	}
}

// solveCG runs Jacobi-preconditioned conjugate gradients from a zero
// initial guess. K is symmetric positive definite for any mesh with a
// positive Biot number, which is exactly the regime CG requires.
func solveCG(sys *System, tol float64, maxIter int) (TemperatureField, error) {
	n := sys.K.N
	if maxIter <= 0 {
		maxIter = 4 * n
	}

	diag := sys.K.Diagonal()
	for i, d := range diag {
		if d <= 0 {
			return nil, fmt.Errorf("%w: non-positive diagonal at node %d", ErrSingular, i)
		}
	}

	x := make([]float64, n)
	r := make([]float64, n)
	copy(r, sys.F)

	normF := floats.Norm(sys.F, 2)
	if normF == 0 {
		return TemperatureField(x), nil
	}

	z := make([]float64, n)
	for i := range z {
		z[i] = r[i] / diag[i]
	}
	p := make([]float64, n)
	copy(p, z)

	ap := make([]float64, n)
	rz := floats.Dot(r, z)

	for iter := 0; iter < maxIter; iter++ {
		sys.K.MulVec(ap, p)
		pap := floats.Dot(p, ap)
		if pap <= 0 {
			return nil, fmt.Errorf("%w: direction of non-positive curvature at iteration %d", ErrSingular, iter)
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)

		if floats.Norm(r, 2)/normF <= tol {
			return TemperatureField(x), nil
		}

		for i := range z {
			z[i] = r[i] / diag[i]
		}
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}

	return nil, fmt.Errorf("%w: relative residual %.3e after %d iterations (tolerance %.1e)",
		ErrNoConvergence, floats.Norm(r, 2)/normF, maxIter, tol)
}

// solveCholesky factorizes the dense symmetric form and solves directly.
// Factorization failure means the matrix is not positive definite.
func solveCholesky(sys *System, tol float64) (TemperatureField, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(sys.K.Dense()); !ok {
		return nil, fmt.Errorf("%w: Cholesky factorization failed", ErrSingular)
	}

	n := sys.K.N
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, mat.NewVecDense(n, sys.F)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	x := make([]float64, n)
	copy(x, sol.RawVector().Data)

	// Direct solves should sit far below the tolerance; verify anyway so
	// a badly conditioned system is reported instead of stored.
	r := make([]float64, n)
	sys.K.MulVec(r, x)
	floats.Sub(r, sys.F)
	normF := floats.Norm(sys.F, 2)
	if normF > 0 && floats.Norm(r, 2)/normF > tol {
		return nil, fmt.Errorf("%w: direct solve residual %.3e above tolerance %.1e",
			ErrNoConvergence, floats.Norm(r, 2)/normF, tol)
	}
	return TemperatureField(x), nil
}
