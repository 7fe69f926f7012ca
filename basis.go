package splinepy

import "fmt"

// bernsteinBasis returns all degree+1 Bernstein polynomial values
// B(i,degree) at u, computed with the de Casteljau-style recurrence (the
// Bernstein analogue of the Cox-de Boor triangle), which is numerically
// stable for u in [0, 1].
func bernsteinBasis(degree int, u float64) []float64 {
	vals := make([]float64, degree+1)
	vals[0] = 1
	v := 1 - u
	for j := 1; j <= degree; j++ {
		var saved float64
		for r := 0; r < j; r++ {
			tmp := vals[r]
			vals[r] = saved + v*tmp
			saved = u * tmp
		}
		vals[j] = saved
	}
	return vals
}

// bsplineBasis returns the degree+1 non-vanishing B-spline basis values on
// the knot span containing u.
//
// Corresponds to algorithm A2.2 from The NURBS Book (Piegl & Tiller, 2nd
// edition).
func bsplineBasis(kv KnotVector, degree, span int, u float64) []float64 {
	vals := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	vals[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = u - kv[span+1-j]
		right[j] = kv[span+j] - u
		var saved float64
		for r := 0; r < j; r++ {
			tmp := vals[r] / (right[r+1] + left[j-r])
			vals[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		vals[j] = saved
	}
	return vals
}

// axisBasis returns the degrees[axis]+1 non-vanishing univariate basis
// values at u along one parametric axis, together with the axis index of
// the first supported control point.
func (s *Spline) axisBasis(axis int, u float64) ([]float64, int) {
	p := s.degrees[axis]
	if !s.kind.HasKnotVectors() {
		return bernsteinBasis(p, u), 0
	}
	kv := s.knots[axis]
	span := kv.Span(p, u)
	return bsplineBasis(kv, p, span, u), span - p
}

// checkQueries validates a batch of parametric query points against the
// parametric bounds. Queries outside the domain are rejected, never
// silently clamped.
func (s *Spline) checkQueries(queries [][]float64) error {
	bounds := s.ParametricBounds()
	for qi, q := range queries {
		if len(q) != len(s.degrees) {
			return fmt.Errorf("%w: query %d has %d coordinates, want para_dim = %d",
				ErrOutOfDomain, qi, len(q), len(s.degrees))
		}
		for axis, u := range q {
			if u < bounds[axis][0] || u > bounds[axis][1] {
				return fmt.Errorf("%w: query %d coordinate %g on axis %d outside [%g, %g]",
					ErrOutOfDomain, qi, u, axis, bounds[axis][0], bounds[axis][1])
			}
		}
	}
	return nil
}

// basisAndSupportAt computes the tensor-product basis values with non-zero
// support at one query, and the flat control point indices they belong to,
// in row-major support order.
func (s *Spline) basisAndSupportAt(q []float64) (values []float64, support []int) {
	paraDim := len(s.degrees)
	axisVals := make([][]float64, paraDim)
	axisFirst := make([]int, paraDim)
	supportSizes := make([]int, paraDim)
	for axis := range s.degrees {
		axisVals[axis], axisFirst[axis] = s.axisBasis(axis, q[axis])
		supportSizes[axis] = len(axisVals[axis])
	}
	return tensorProduct(axisVals, axisFirst, supportSizes, s.gridSizes())
}

// tensorProduct combines per-axis basis values into the flattened
// tensor-product values and their flat grid offsets.
func tensorProduct(axisVals [][]float64, axisFirst, supportSizes, gridSizes []int) (values []float64, support []int) {
	strides := gridStrides(gridSizes)
	n := gridSize(supportSizes)
	values = make([]float64, n)
	support = make([]int, n)
	index := make([]int, len(supportSizes))
	for k := 0; k < n; k++ {
		v := 1.0
		off := 0
		for axis, i := range index {
			v *= axisVals[axis][i]
			off += (axisFirst[axis] + i) * strides[axis]
		}
		values[k] = v
		support[k] = off
		nextIndex(index, supportSizes)
	}
	return values, support
}

// Basis computes, per query, the values of all basis functions with
// non-zero support there, in row-major support order. For rational kinds
// the returned values are those of the non-rational (polynomial) basis;
// rational weighting is applied only inside [Spline.Evaluate].
//
// nthreads controls the worker fan-out over the query batch; values <= 1
// evaluate serially.
func (s *Spline) Basis(queries [][]float64, nthreads int) ([][]float64, error) {
	values, _, err := s.BasisAndSupport(queries, nthreads)
	return values, err
}

// Support computes, per query, the flat control point indices whose basis
// functions do not vanish there.
func (s *Spline) Support(queries [][]float64, nthreads int) ([][]int, error) {
	_, support, err := s.BasisAndSupport(queries, nthreads)
	return support, err
}

// BasisAndSupport computes basis values and the matching control point
// indices in one pass. Assembling the values into a (sparse) matrix B with
// B[q][support[q][k]] = values[q][k] makes B * controlPoints reproduce
// [Spline.Evaluate] exactly for non-rational kinds.
func (s *Spline) BasisAndSupport(queries [][]float64, nthreads int) ([][]float64, [][]int, error) {
	if err := s.checkQueries(queries); err != nil {
		return nil, nil, err
	}
	values := make([][]float64, len(queries))
	support := make([][]int, len(queries))
	parallelFor(len(queries), nthreads, func(i int) {
		values[i], support[i] = s.basisAndSupportAt(queries[i])
	})
	return values, support, nil
}

// Evaluate maps a batch of parametric queries to physical space. For
// rational kinds the homogeneous-coordinate projection
//
//	S(u) = Σ w_i N_i(u) P_i / Σ w_i N_i(u)
//
// is applied; for non-rational kinds the result equals the basis matrix
// product with the control points.
func (s *Spline) Evaluate(queries [][]float64, nthreads int) ([][]float64, error) {
	if err := s.checkQueries(queries); err != nil {
		return nil, err
	}
	out := make([][]float64, len(queries))
	parallelFor(len(queries), nthreads, func(i int) {
		out[i] = s.evaluateAt(queries[i])
	})
	return out, nil
}

func (s *Spline) evaluateAt(q []float64) []float64 {
	values, support := s.basisAndSupportAt(q)
	point := make([]float64, s.dim)
	if !s.kind.Rational() {
		for k, idx := range support {
			b := values[k]
			cp := s.controlPoints[idx]
			for j := range point {
				point[j] += b * cp[j]
			}
		}
		return point
	}
	var den float64
	for k, idx := range support {
		wb := values[k] * s.weights[idx]
		den += wb
		cp := s.controlPoints[idx]
		for j := range point {
			point[j] += wb * cp[j]
		}
	}
	for j := range point {
		point[j] /= den
	}
	return point
}
