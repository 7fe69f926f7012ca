package splinepy

import (
	"fmt"
	"slices"
)

// Sample evaluates the spline on a uniform grid over the parametric
// bounds with resolutions[axis] points per axis (each at least 2), in
// row-major order matching the control point convention.
func (s *Spline) Sample(resolutions []int, nthreads int) ([][]float64, error) {
	if len(resolutions) != len(s.degrees) {
		return nil, fmt.Errorf("%w: %d resolutions for %d parametric axes",
			ErrIncompatibleOperands, len(resolutions), len(s.degrees))
	}
	for axis, r := range resolutions {
		if r < 2 {
			return nil, fmt.Errorf("%w: resolution %d on axis %d, need at least 2",
				ErrIncompatibleOperands, r, axis)
		}
	}
	queries := uniformGrid(s.ParametricBounds(), resolutions)
	return s.Evaluate(queries, nthreads)
}

// uniformGrid lists the row-major grid of parametric points with the
// given per-axis resolutions over bounds, endpoints included.
func uniformGrid(bounds [][2]float64, resolutions []int) [][]float64 {
	queries := make([][]float64, gridSize(resolutions))
	index := make([]int, len(resolutions))
	for qi := range queries {
		q := make([]float64, len(resolutions))
		for axis, i := range index {
			lo, hi := bounds[axis][0], bounds[axis][1]
			q[axis] = lo + (hi-lo)*float64(i)/float64(resolutions[axis]-1)
		}
		queries[qi] = q
		nextIndex(index, resolutions)
	}
	return queries
}

// GrevilleAbscissae returns the per-axis Greville parameters, the knot
// averages γ_i = (k_{i+1} + ... + k_{i+p}) / p associated with each
// control point. They interlace the parametric domain and are the
// canonical collocation/fitting sites for the control polygon. A degree-0
// axis uses interval midpoints.
func (s *Spline) GrevilleAbscissae() [][]float64 {
	sizes := s.gridSizes()
	out := make([][]float64, len(s.degrees))
	for axis, p := range s.degrees {
		g := make([]float64, sizes[axis])
		if s.kind.HasKnotVectors() {
			kv := s.knots[axis]
			for i := range g {
				if p == 0 {
					g[i] = (kv[i] + kv[i+1]) / 2
					continue
				}
				var sum float64
				for j := 1; j <= p; j++ {
					sum += kv[i+j]
				}
				g[i] = sum / float64(p)
			}
		} else {
			for i := range g {
				if p == 0 {
					g[i] = 0.5
				} else {
					g[i] = float64(i) / float64(p)
				}
			}
		}
		out[axis] = g
	}
	return out
}

// ExtractBezierPatches decomposes the spline into its polynomial
// segments, returned as Bezier or RationalBezier patches (each
// parametrized over the unit cube) in row-major segment order. Bezier
// kinds return a single copy of themselves.
//
// The decomposition inserts every interior knot up to full multiplicity
// on a working copy, then slices the refined grid per segment.
func (s *Spline) ExtractBezierPatches() ([]*Spline, error) {
	if !s.kind.HasKnotVectors() {
		return []*Spline{s.Copy()}, nil
	}
	work := s.Copy()
	for axis := range work.degrees {
		interior, mults := work.interiorKnots(axis)
		p := work.degrees[axis]
		var fill []float64
		for vi, u := range interior {
			for m := mults[vi]; m < p; m++ {
				fill = append(fill, u)
			}
		}
		if len(fill) > 0 {
			if err := work.InsertKnots(axis, fill); err != nil {
				return nil, err
			}
		}
	}

	// Per-axis segment start offsets; a multiplicity degree+1 interior
	// knot means the segments on either side own separate boundary points.
	paraDim := len(work.degrees)
	segments := make([]int, paraDim)
	axisStarts := make([][]int, paraDim)
	for axis := range work.degrees {
		_, mults := work.interiorKnots(axis)
		segments[axis] = len(mults) + 1
		axisStarts[axis] = segmentStarts(mults)
	}
	sizes := work.gridSizes()
	strides := gridStrides(sizes)

	patches := make([]*Spline, 0, gridSize(segments))
	segIndex := make([]int, paraDim)
	patchSizes := make([]int, paraDim)
	for axis, p := range work.degrees {
		patchSizes[axis] = p + 1
	}
	for {
		// Gather the (p+1)^paraDim sub-grid of this segment.
		n := gridSize(patchSizes)
		points := make([][]float64, n)
		var weights []float64
		if work.kind.Rational() {
			weights = make([]float64, n)
		}
		local := make([]int, paraDim)
		for k := 0; k < n; k++ {
			off := 0
			for axis := range local {
				off += (axisStarts[axis][segIndex[axis]] + local[axis]) * strides[axis]
			}
			points[k] = slices.Clone(work.controlPoints[off])
			if weights != nil {
				weights[k] = work.weights[off]
			}
			nextIndex(local, patchSizes)
		}
		var patch *Spline
		var err error
		if weights != nil {
			patch, err = NewRationalBezier(work.degrees, points, weights)
		} else {
			patch, err = NewBezier(work.degrees, points)
		}
		if err != nil {
			return nil, err
		}
		patches = append(patches, patch)
		if !nextIndex(segIndex, segments) {
			return patches, nil
		}
	}
}

// Split cuts the spline along one axis at parameter u, returning the two
// halves as knotted splines (BSpline or NURBS) whose shared boundary is
// the spline point at u. The union of the halves reproduces the original
// geometry exactly.
func (s *Spline) Split(axis int, u float64) (*Spline, *Spline, error) {
	if err := s.checkRefineAxis(axis); err != nil {
		return nil, nil, err
	}
	bounds := s.ParametricBounds()
	lo, hi := bounds[axis][0], bounds[axis][1]
	if u <= lo+knotEpsilon || u >= hi-knotEpsilon {
		return nil, nil, fmt.Errorf("%w: split parameter %g outside open interval (%g, %g)",
			ErrOutOfDomain, u, lo, hi)
	}

	work := s.Copy()
	if !work.kind.HasKnotVectors() {
		var err error
		if work, err = work.ToNURBS(); err != nil {
			return nil, nil, err
		}
		if !s.kind.Rational() {
			work, _ = work.ToBSpline()
		}
	}
	p := work.degrees[axis]
	if m := work.knots[axis].Multiplicity(u); m < p {
		fill := make([]float64, p-m)
		for i := range fill {
			fill[i] = u
		}
		if err := work.InsertKnots(axis, fill); err != nil {
			return nil, nil, err
		}
	}

	kv := work.knots[axis]
	// firstU is the index of the first knot equal to u; the control point
	// at axis position firstU-1 is the left half's boundary point.
	firstU := 0
	for firstU < len(kv) && kv[firstU] < u-knotEpsilon {
		firstU++
	}
	leftCount := firstU // = (firstU + p) - p - 1 + 1 knots below plus clamp

	leftKnots := make(KnotVector, 0, firstU+p+1)
	leftKnots = append(leftKnots, kv[:firstU+p]...)
	leftKnots = append(leftKnots, u)

	// At multiplicity p the halves share the boundary control point; at
	// p+1 the spline jumps at u and each half keeps its own.
	rightFrom := leftCount - 1
	rightKnots := make(KnotVector, 0, len(kv)-firstU+1)
	if kv.Multiplicity(u) > p {
		rightFrom = leftCount
	} else {
		rightKnots = append(rightKnots, u)
	}
	rightKnots = append(rightKnots, kv[firstU:]...)

	sizes := work.gridSizes()
	left := work.sliceAxis(axis, 0, leftCount)
	right := work.sliceAxis(axis, rightFrom, sizes[axis])
	left.knots[axis] = leftKnots
	right.knots[axis] = rightKnots
	return left, right, nil
}

// sliceAxis copies the sub-grid with axis indices in [from, to). Knot
// vectors are left for the caller to fix up.
func (s *Spline) sliceAxis(axis, from, to int) *Spline {
	sizes := s.gridSizes()
	newSizes := slices.Clone(sizes)
	newSizes[axis] = to - from
	strides := gridStrides(sizes)
	out := s.Copy()
	out.controlPoints = make([][]float64, gridSize(newSizes))
	if out.weights != nil {
		out.weights = make([]float64, gridSize(newSizes))
	}
	index := make([]int, len(sizes))
	for k := range out.controlPoints {
		off := 0
		for a, i := range index {
			if a == axis {
				i += from
			}
			off += i * strides[a]
		}
		out.controlPoints[k] = slices.Clone(s.controlPoints[off])
		if out.weights != nil {
			out.weights[k] = s.weights[off]
		}
		nextIndex(index, newSizes)
	}
	return out
}
