package xrfmap

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// NNLS solves min ||A*x - b|| subject to x >= 0 using the Lawson-Hanson
// active set method. A is (m x n) with m >= n for a well-posed fit, b has
// length m. Returns the solution and the residual 2-norm.
func NNLS(a *mat.Dense, b []float64) (x []float64, rnorm float64, err error) {
	m, n := a.Dims()
	if len(b) != m {
		return nil, 0, errors.Newf("nnls: matrix has %d rows but vector has %d elements", m, len(b)).
			Category(errors.CategoryFitting).
			Build()
	}

	x = make([]float64, n)
	passive := make([]bool, n)
	nPassive := 0

	bVec := mat.NewVecDense(m, b)

	// Tolerance scaled by the problem data.
	tol := 10 * machEps * float64(max(m, n)) * matInfNorm(a)

	// w = A^T (b - A x), the negative gradient.
	w := make([]float64, n)
	resid := mat.NewVecDense(m, nil)
	updateGradient := func() {
		xVec := mat.NewVecDense(n, x)
		resid.MulVec(a, xVec)
		resid.SubVec(bVec, resid)
		for j := 0; j < n; j++ {
			col := a.ColView(j)
			w[j] = mat.Dot(col, resid)
		}
	}

	maxIter := 3 * n
	for iter := 0; iter < maxIter; iter++ {
		updateGradient()

		// Most negative-gradient free variable.
		jMax, wMax := -1, tol
		for j := 0; j < n; j++ {
			if !passive[j] && w[j] > wMax {
				jMax, wMax = j, w[j]
			}
		}
		if jMax < 0 {
			break // KKT conditions met
		}
		passive[jMax] = true
		nPassive++

		for {
			z, solveErr := solvePassive(a, b, passive, nPassive)
			if solveErr != nil {
				return nil, 0, solveErr
			}

			// All passive components positive: accept the step.
			minZ := math.Inf(1)
			for j := 0; j < n; j++ {
				if passive[j] && z[j] < minZ {
					minZ = z[j]
				}
			}
			if minZ > tol {
				copy(x, z)
				break
			}

			// Step as far as possible toward z without leaving the feasible
			// region, then drop the variables that hit zero.
			alpha := math.Inf(1)
			for j := 0; j < n; j++ {
				if passive[j] && z[j] <= tol {
					if d := x[j] - z[j]; d > 0 {
						alpha = math.Min(alpha, x[j]/d)
					}
				}
			}
			if math.IsInf(alpha, 1) {
				alpha = 0
			}
			for j := 0; j < n; j++ {
				if passive[j] {
					x[j] += alpha * (z[j] - x[j])
					if x[j] <= tol {
						x[j] = 0
						passive[j] = false
						nPassive--
					}
				}
			}
			if nPassive == 0 {
				break
			}
		}
	}

	xVec := mat.NewVecDense(n, x)
	resid.MulVec(a, xVec)
	resid.SubVec(bVec, resid)
	return x, mat.Norm(resid, 2), nil
}

// solvePassive solves the unconstrained least squares problem restricted to
// the passive columns, returning a full-length vector with zeros elsewhere.
func solvePassive(a *mat.Dense, b []float64, passive []bool, nPassive int) ([]float64, error) {
	m, n := a.Dims()

	cols := make([]int, 0, nPassive)
	for j := 0; j < n; j++ {
		if passive[j] {
			cols = append(cols, j)
		}
	}

	sub := mat.NewDense(m, len(cols), nil)
	for k, j := range cols {
		for i := 0; i < m; i++ {
			sub.Set(i, k, a.At(i, j))
		}
	}

	var qr mat.QR
	qr.Factorize(sub)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, mat.NewVecDense(m, b)); err != nil {
		return nil, errors.Newf("nnls: least squares subproblem is singular: %w", err).
			Category(errors.CategoryFitting).
			Build()
	}

	z := make([]float64, n)
	for k, j := range cols {
		z[j] = sol.AtVec(k)
	}
	return z, nil
}

const machEps = 2.220446049250313e-16

func matInfNorm(a *mat.Dense) float64 {
	return mat.Norm(a, math.Inf(1))
}
