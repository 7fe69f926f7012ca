package splinepy

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ProximityOptions tunes the proximity search. The zero value selects the
// defaults noted per field.
type ProximityOptions struct {
	// SampleResolutions gives the per-axis seed grid resolution; nil picks
	// max(3, degree+2) per axis. Seeding is a fixed uniform grid, so
	// identical inputs always produce identical results.
	SampleResolutions []int
	// Tolerance bounds the residual (and stationarity) norm accepted as
	// converged; 0 means 1e-10.
	Tolerance float64
	// MaxIterations caps the Newton iteration per query; 0 means 32.
	MaxIterations int
	// Nthreads controls the worker fan-out over the query batch.
	Nthreads int
}

// A ProximityReport describes the outcome of one proximity query.
type ProximityReport struct {
	// Residual is the Euclidean distance from the query to the returned
	// spline point.
	Residual float64
	// Iterations counts the Newton steps taken.
	Iterations int
	// Converged is true when the residual or the distance gradient
	// dropped below tolerance. Queries outside the reachable image end on
	// a clamped domain boundary with Converged false.
	Converged bool
}

const defaultProximityTolerance = 1e-10

// Proximities finds, for each physical query point, the parametric point
// whose image minimizes the Euclidean distance to it.
//
// Candidates are seeded from a uniform parametric grid and the best seed
// is refined by Newton iteration on the squared distance, solving the
// normal equations with the exact Hessian J^T J + Σ_k r_k ∂²S_k and
// clamping every step into the parametric bounds. Queries that do not
// converge (typically points outside the spline's image, which stall on a
// domain boundary) still return the best candidate found; the aggregated
// error then wraps [ErrConvergence] and the per-query reports tell the
// outcomes apart.
func (s *Spline) Proximities(queries [][]float64, opts ProximityOptions) ([][]float64, []ProximityReport, error) {
	for qi, q := range queries {
		if len(q) != s.dim {
			return nil, nil, fmt.Errorf("%w: query %d has %d coordinates, want dim %d",
				ErrIncompatibleOperands, qi, len(q), s.dim)
		}
	}
	resolutions := opts.SampleResolutions
	if resolutions == nil {
		resolutions = make([]int, len(s.degrees))
		for axis, p := range s.degrees {
			resolutions[axis] = max(3, p+2)
		}
	}
	tol := opts.Tolerance
	if tol == 0 {
		tol = defaultProximityTolerance
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = 32
	}

	bounds := s.ParametricBounds()
	seeds := uniformGrid(bounds, resolutions)
	seedImages := make([][]float64, len(seeds))
	parallelFor(len(seeds), opts.Nthreads, func(i int) {
		seedImages[i] = s.evaluateAt(seeds[i])
	})

	params := make([][]float64, len(queries))
	reports := make([]ProximityReport, len(queries))
	parallelFor(len(queries), opts.Nthreads, func(qi int) {
		params[qi], reports[qi] = s.proximityAt(queries[qi], seeds, seedImages, bounds, tol, maxIter)
	})

	for _, rep := range reports {
		if !rep.Converged {
			return params, reports, fmt.Errorf("%w: %d of %d proximity queries did not reach tolerance %g",
				ErrConvergence, countUnconverged(reports), len(reports), tol)
		}
	}
	return params, reports, nil
}

func countUnconverged(reports []ProximityReport) int {
	n := 0
	for _, rep := range reports {
		if !rep.Converged {
			n++
		}
	}
	return n
}

func (s *Spline) proximityAt(x []float64, seeds, seedImages [][]float64, bounds [][2]float64, tol float64, maxIter int) ([]float64, ProximityReport) {
	best := 0
	bestDist := math.Inf(1)
	for i, img := range seedImages {
		if d := squaredDistance(img, x); d < bestDist {
			bestDist = d
			best = i
		}
	}
	paraDim := len(s.degrees)
	u := slices.Clone(seeds[best])

	bestU := slices.Clone(u)
	bestRes := math.Sqrt(bestDist)
	report := ProximityReport{Residual: bestRes}

	orders := make([]int, paraDim)
	grad := make([]float64, paraDim)
	for it := 0; it < maxIter; it++ {
		pt := s.evaluateAt(u)
		r := make([]float64, s.dim)
		for k := range r {
			r[k] = pt[k] - x[k]
		}
		res := norm(r)
		if res < bestRes {
			bestRes = res
			copy(bestU, u)
		}
		report.Iterations = it
		report.Residual = res
		if res <= tol {
			report.Converged = true
			return u, report
		}

		// First and second parametric derivatives of the map.
		jac := make([][]float64, paraDim) // [axis] -> dim-vector
		for a := 0; a < paraDim; a++ {
			orders[a] = 1
			jac[a] = s.derivativeAt(u, orders)
			orders[a] = 0
		}
		for a := 0; a < paraDim; a++ {
			grad[a] = dot(jac[a], r)
		}
		if norm(grad) <= tol {
			report.Converged = true
			return u, report
		}

		hess := mat.NewDense(paraDim, paraDim, nil)
		for a := 0; a < paraDim; a++ {
			for b := a; b < paraDim; b++ {
				orders[a]++
				orders[b]++
				sab := s.derivativeAt(u, orders)
				orders[a] = 0
				orders[b] = 0
				h := dot(jac[a], jac[b]) + dot(sab, r)
				hess.Set(a, b, h)
				hess.Set(b, a, h)
			}
		}

		step := make([]float64, paraDim)
		var lu mat.LU
		lu.Factorize(hess)
		var delta mat.VecDense
		if lu.Cond() < 1/condEpsilon && lu.SolveVecTo(&delta, false, mat.NewVecDense(paraDim, grad)) == nil {
			for a := range step {
				step[a] = -delta.AtVec(a)
			}
		} else {
			// Degenerate Hessian (flat spot, degree-0 axis): fall back to a
			// damped gradient step.
			scale := 1 / (1 + norm(grad))
			for a := range step {
				step[a] = -grad[a] * scale
			}
		}

		var moved float64
		for a := range u {
			next := math.Min(math.Max(u[a]+step[a], bounds[a][0]), bounds[a][1])
			moved += (next - u[a]) * (next - u[a])
			u[a] = next
		}
		if math.Sqrt(moved) < 1e-15 {
			// Stalled, usually clamped against the boundary.
			break
		}
	}

	report.Residual = bestRes
	return bestU, report
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
