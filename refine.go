package splinepy

import (
	"fmt"
	"math"
	"slices"
)

// The refinement engine mutates control points (and weights) in place
// while preserving the represented geometry: exactly for insertion and
// elevation, within a caller-supplied tolerance for removal and reduction.
// All univariate kernels run on grid lines along the refined axis, on
// homogeneous coordinates for rational kinds so that weights follow the
// same convex combinations as the points.

// workingGrid returns the coordinate rows the univariate kernels operate
// on: homogeneous (dim+1) rows for rational kinds, plain copies otherwise.
func (s *Spline) workingGrid() [][]float64 {
	if s.kind.Rational() {
		return s.homogeneous()
	}
	return clonePoints(s.controlPoints)
}

// commitGrid installs a working grid produced by the kernels.
func (s *Spline) commitGrid(grid [][]float64) {
	if s.kind.Rational() {
		s.setHomogeneous(grid)
		return
	}
	s.controlPoints = grid
}

func (s *Spline) checkRefineAxis(axis int) error {
	if axis < 0 || axis >= len(s.degrees) {
		return fmt.Errorf("%w: axis %d out of range for para_dim %d",
			ErrIncompatibleOperands, axis, len(s.degrees))
	}
	return nil
}

// InsertKnots inserts the given parameter values into the knot vector of
// one axis using Boehm's algorithm; the represented geometry is unchanged
// to floating-point precision. Values must lie strictly inside the
// parametric bounds and must not raise any multiplicity beyond degree+1.
// The values are processed in ascending order, so the result does not
// depend on the order given.
//
// Corresponds to algorithm A5.1 from The NURBS Book (Piegl & Tiller, 2nd
// edition), applied per grid line.
func (s *Spline) InsertKnots(axis int, values []float64) error {
	if err := s.checkRefineAxis(axis); err != nil {
		return err
	}
	if !s.kind.HasKnotVectors() {
		return fmt.Errorf("%w: %v splines have no knot vectors to refine into", ErrIncompatibleOperands, s.kind)
	}
	p := s.degrees[axis]
	kv := s.knots[axis]
	lo, hi := kv.Bounds()
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	for _, u := range sorted {
		if u <= lo || u >= hi {
			return fmt.Errorf("%w: knot %g outside open interval (%g, %g)", ErrOutOfDomain, u, lo, hi)
		}
	}
	mults := map[float64]int{}
	for _, u := range sorted {
		if kv.Multiplicity(u)+mults[u]+1 > p+1 {
			return fmt.Errorf("%w: inserting %g would exceed multiplicity degree+1", ErrIncompatibleOperands, u)
		}
		mults[u]++
	}

	grid := s.workingGrid()
	for _, u := range sorted {
		grid = s.insertKnotGrid(grid, axis, u)
	}
	s.commitGrid(grid)
	return nil
}

// insertKnotGrid inserts u once along axis, updating s.knots[axis] and
// returning the enlarged grid.
func (s *Spline) insertKnotGrid(grid [][]float64, axis int, u float64) [][]float64 {
	p := s.degrees[axis]
	kv := s.knots[axis]
	k := kv.Span(p, u)
	mult := kv.Multiplicity(u)

	// Convex combination coefficients depend on the knot vector only and
	// are shared by every grid line.
	alphas := make([]float64, 0, p)
	for i := k - p + 1; i <= k-mult; i++ {
		alphas = append(alphas, (u-kv[i])/(kv[i+p]-kv[i]))
	}

	oldSizes := s.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis]++
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))

	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		newLine := make([][]float64, len(line)+1)
		for i := range newLine {
			switch {
			case i <= k-p:
				newLine[i] = line[i]
			case i > k-mult:
				newLine[i] = line[i-1]
			default:
				a := alphas[i-(k-p+1)]
				newLine[i] = lerpRow(line[i-1], line[i], a)
			}
		}
		scatterLine(newGrid, newLine, newStart, newStride)
	})

	newKnots := make(KnotVector, 0, len(kv)+1)
	newKnots = append(newKnots, kv[:k+1]...)
	newKnots = append(newKnots, u)
	newKnots = append(newKnots, kv[k+1:]...)
	s.knots[axis] = newKnots
	return newGrid
}

// lerpRow returns (1-a)*x + a*y componentwise.
func lerpRow(x, y []float64, a float64) []float64 {
	out := make([]float64, len(x))
	for j := range out {
		out[j] = (1-a)*x[j] + a*y[j]
	}
	return out
}

// RemoveKnots attempts to remove the given values from the knot vector of
// one axis. A value is removed only if the coarser control polygon
// reproduces the geometry within tolerance on every grid line; otherwise
// it is left in place. The returned slice reports per value whether the
// removal happened; if any removal was refused the error wraps
// [ErrToleranceNotMet], but successful removals are kept.
//
// Corresponds to algorithm A5.8 from The NURBS Book (Piegl & Tiller, 2nd
// edition), applied per grid line.
func (s *Spline) RemoveKnots(axis int, values []float64, tolerance float64) ([]bool, error) {
	if err := s.checkRefineAxis(axis); err != nil {
		return nil, err
	}
	if !s.kind.HasKnotVectors() {
		return nil, fmt.Errorf("%w: %v splines have no knot vectors", ErrIncompatibleOperands, s.kind)
	}
	removed := make([]bool, len(values))
	grid := s.workingGrid()
	lo, hi := s.knots[axis].Bounds()
	for vi, u := range values {
		// Clamping knots at the boundary are structural and stay.
		if u <= lo || u >= hi || s.knots[axis].Multiplicity(u) == 0 {
			continue
		}
		if next, ok := s.removeKnotGrid(grid, axis, u, tolerance); ok {
			grid = next
			removed[vi] = true
		}
	}
	s.commitGrid(grid)
	for _, ok := range removed {
		if !ok {
			return removed, fmt.Errorf("%w: some knots could not be removed within tolerance %g",
				ErrToleranceNotMet, tolerance)
		}
	}
	return removed, nil
}

// removeKnotGrid tries to remove u once along axis. All grid lines must
// pass the tolerance check before anything is committed.
func (s *Spline) removeKnotGrid(grid [][]float64, axis int, u, tol float64) ([][]float64, bool) {
	p := s.degrees[axis]
	kv := s.knots[axis]

	oldSizes := s.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis]--
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))

	ok := true
	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		if !ok {
			return
		}
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		newLine, lineOK := removeKnotLine(line, kv, p, u, tol)
		if !lineOK {
			ok = false
			return
		}
		scatterLine(newGrid, newLine, newStart, newStride)
	})
	if !ok {
		return nil, false
	}

	r := -1
	for i, k := range kv {
		if math.Abs(k-u) <= knotEpsilon {
			r = i
		}
	}
	newKnots := make(KnotVector, 0, len(kv)-1)
	newKnots = append(newKnots, kv[:r]...)
	newKnots = append(newKnots, kv[r+1:]...)
	s.knots[axis] = newKnots
	return newGrid, true
}

// removeKnotLine removes one occurrence of u from a single control point
// line, reversing Boehm's insertion, and reports whether the removal
// reproduces the line within tol.
func removeKnotLine(line [][]float64, kv KnotVector, p int, u, tol float64) ([][]float64, bool) {
	ord := p + 1
	r := -1
	for i, k := range kv {
		if math.Abs(k-u) <= knotEpsilon {
			r = i
		}
	}
	mult := kv.Multiplicity(u)
	first := r - p
	last := r - mult

	temp := make([][]float64, last-first+3)
	off := first - 1
	temp[0] = line[off]
	temp[last+1-off] = line[last+1]
	i, j := first, last
	ii, jj := 1, last-off
	for j-i > 0 {
		alfi := (u - kv[i]) / (kv[i+ord] - kv[i])
		alfj := (u - kv[j]) / (kv[j+ord] - kv[j])
		temp[ii] = solveLerpRow(line[i], temp[ii-1], alfi)
		temp[jj] = solveLerpRowRight(line[j], temp[jj+1], alfj)
		i, ii = i+1, ii+1
		j, jj = j-1, jj-1
	}

	if j-i < 0 {
		if rowDistance(temp[ii-1], temp[jj+1]) > tol {
			return nil, false
		}
	} else {
		alfi := (u - kv[i]) / (kv[i+ord] - kv[i])
		if rowDistance(line[i], lerpRow(temp[ii-1], temp[ii+1], alfi)) > tol {
			return nil, false
		}
	}

	updated := clonePoints(line)
	i, j = first, last
	for j-i > 0 {
		updated[i] = temp[i-off]
		updated[j] = temp[j-off]
		i, j = i+1, j-1
	}

	fout := (2*r - mult - p) / 2
	newLine := make([][]float64, 0, len(line)-1)
	newLine = append(newLine, updated[:fout]...)
	newLine = append(newLine, updated[fout+1:]...)
	return newLine, true
}

// solveLerpRow solves q = (1-a)*prev + a*x for x.
func solveLerpRow(q, prev []float64, a float64) []float64 {
	out := make([]float64, len(q))
	for k := range out {
		out[k] = (q[k] - (1-a)*prev[k]) / a
	}
	return out
}

// solveLerpRowRight solves q = (1-a)*x + a*next for x.
func solveLerpRowRight(q, next []float64, a float64) []float64 {
	out := make([]float64, len(q))
	for k := range out {
		out[k] = (q[k] - a*next[k]) / (1 - a)
	}
	return out
}

func rowDistance(x, y []float64) float64 {
	var sum float64
	for k := range x {
		d := x[k] - y[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func maxAbsCoordinate(grid [][]float64) float64 {
	var m float64
	for _, row := range grid {
		for _, c := range row {
			m = math.Max(m, math.Abs(c))
		}
	}
	return m
}

// ElevateDegrees raises the degree by one on each listed axis, in order;
// repeat an axis to elevate it further. The control polygon grows but the
// represented geometry is unchanged.
//
// Bezier axes use the binomial blending of two shifted copies of the
// control points. Knotted axes extract Bezier segments by knot insertion,
// elevate each segment, and restore the minimal interior knot
// multiplicities by (exactly removable) knot removal.
func (s *Spline) ElevateDegrees(axes ...int) error {
	for _, axis := range axes {
		if err := s.checkRefineAxis(axis); err != nil {
			return err
		}
		if s.kind.HasKnotVectors() {
			s.elevateKnottedAxis(axis)
		} else {
			grid := s.workingGrid()
			s.commitGrid(s.elevateBezierAxis(grid, axis))
			s.degrees[axis]++
		}
	}
	return nil
}

// elevateBezierAxis elevates a Bezier-kind axis by one degree:
//
//	Q_i = i/(p+1) * P_{i-1} + (1 - i/(p+1)) * P_i
func (s *Spline) elevateBezierAxis(grid [][]float64, axis int) [][]float64 {
	p := s.degrees[axis]
	oldSizes := s.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis]++
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))
	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		scatterLine(newGrid, elevateBezierLine(line, p), newStart, newStride)
	})
	return newGrid
}

// elevateBezierLine elevates one Bezier control point line from degree p
// to p+1.
func elevateBezierLine(line [][]float64, p int) [][]float64 {
	out := make([][]float64, p+2)
	out[0] = slices.Clone(line[0])
	out[p+1] = slices.Clone(line[p])
	for i := 1; i <= p; i++ {
		a := float64(i) / float64(p+1)
		out[i] = lerpRow(line[i], line[i-1], a)
	}
	return out
}

// segmentStarts returns the axis offset of each extracted Bezier
// segment's first control point, given the interior knot multiplicities
// after extraction (each degree or degree+1). Adjacent segments share a
// boundary point across a multiplicity-degree knot but not across a
// multiplicity-degree+1 knot, so starts advance by the multiplicity.
func segmentStarts(mults []int) []int {
	starts := make([]int, len(mults)+1)
	for i, m := range mults {
		starts[i+1] = starts[i] + m
	}
	return starts
}

// elevateKnottedAxis elevates a knotted axis by one degree via Bezier
// extraction.
func (s *Spline) elevateKnottedAxis(axis int) {
	p := s.degrees[axis]
	interior, interiorMults := s.interiorKnots(axis)

	// Extract Bezier segments: raise every interior multiplicity to at
	// least p. A multiplicity p+1 knot stays put and its neighbouring
	// segments keep separate boundary control points.
	grid := s.workingGrid()
	extracted := make([]int, len(interior))
	for vi, u := range interior {
		for m := interiorMults[vi]; m < p; m++ {
			grid = s.insertKnotGrid(grid, axis, u)
		}
		extracted[vi] = max(interiorMults[vi], p)
	}

	// Elevate each segment. Start offsets follow the cumulative interior
	// multiplicities, before and after elevation.
	nSeg := len(interior) + 1
	starts := segmentStarts(extracted)
	elevated := make([]int, len(extracted))
	for vi, m := range extracted {
		elevated[vi] = m + 1
	}
	newStarts := segmentStarts(elevated)
	oldSizes := s.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis] = newStarts[nSeg-1] + p + 2
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))
	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		newLine := make([][]float64, newSizes[axis])
		for g := 0; g < nSeg; g++ {
			seg := elevateBezierLine(line[starts[g]:starts[g]+p+1], p)
			copy(newLine[newStarts[g]:], seg)
		}
		scatterLine(newGrid, newLine, newStart, newStride)
	})

	// Elevated knot vector: ends clamped to p+2, every interior
	// multiplicity up by one.
	values, _ := s.knots[axis].uniqueKnots()
	newKnots := make(KnotVector, 0, len(values)*(p+2))
	for vi, v := range values {
		m := p + 2
		if vi > 0 && vi < len(values)-1 {
			m = elevated[vi-1]
		}
		for k := 0; k < m; k++ {
			newKnots = append(newKnots, v)
		}
	}
	s.knots[axis] = newKnots
	s.degrees[axis] = p + 1
	s.commitGrid(newGrid)

	// Restore minimal multiplicities: an interior knot of original
	// multiplicity m belongs at multiplicity m+1 after elevation. These
	// removals are exact up to roundoff.
	tol := 1e-8 * (1 + maxAbsCoordinate(s.controlPoints))
	grid = s.workingGrid()
	for vi, u := range interior {
		target := interiorMults[vi] + 1
		for s.knots[axis].Multiplicity(u) > target {
			next, ok := s.removeKnotGrid(grid, axis, u, tol)
			if !ok {
				break
			}
			grid = next
		}
	}
	s.commitGrid(grid)
}

// interiorKnots returns the distinct interior knot values of one axis and
// their multiplicities.
func (s *Spline) interiorKnots(axis int) ([]float64, []int) {
	values, mults := s.knots[axis].uniqueKnots()
	if len(values) <= 2 {
		return nil, nil
	}
	return slices.Clone(values[1 : len(values)-1]), slices.Clone(mults[1 : len(mults)-1])
}

// ReduceDegrees attempts to lower the degree by one on each listed axis.
// Reduction is exact only when the representation was produced by
// elevation from a lower degree; otherwise it is an approximation gated by
// tolerance. The returned slice reports per axis entry whether the
// reduction happened; refusals leave the spline unchanged on that axis
// and the error wraps [ErrToleranceNotMet].
func (s *Spline) ReduceDegrees(axes []int, tolerance float64) ([]bool, error) {
	reduced := make([]bool, len(axes))
	for ai, axis := range axes {
		if err := s.checkRefineAxis(axis); err != nil {
			return reduced, err
		}
		if s.degrees[axis] < 1 {
			continue
		}
		if s.kind.HasKnotVectors() {
			reduced[ai] = s.reduceKnottedAxis(axis, tolerance)
		} else {
			reduced[ai] = s.reduceBezierAxisInPlace(axis, tolerance)
		}
	}
	for _, ok := range reduced {
		if !ok {
			return reduced, fmt.Errorf("%w: some degree reductions exceed tolerance %g",
				ErrToleranceNotMet, tolerance)
		}
	}
	return reduced, nil
}

func (s *Spline) reduceBezierAxisInPlace(axis int, tol float64) bool {
	p := s.degrees[axis]
	grid := s.workingGrid()
	oldSizes := s.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis]--
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))
	ok := true
	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		if !ok {
			return
		}
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		newLine, lineOK := reduceBezierLine(line, p, tol)
		if !lineOK {
			ok = false
			return
		}
		scatterLine(newGrid, newLine, newStart, newStride)
	})
	if !ok {
		return false
	}
	s.degrees[axis]--
	s.commitGrid(newGrid)
	return true
}

// reduceBezierLine lowers one Bezier line from degree p to p-1 by running
// the elevation recurrence forwards and backwards and blending at the
// crossover. The candidate is accepted only if re-elevating it reproduces
// the input coefficients within tol (which bounds the function error by
// the convex hull property).
func reduceBezierLine(line [][]float64, p int, tol float64) ([][]float64, bool) {
	width := len(line[0])
	fwd := make([][]float64, p)
	fwd[0] = slices.Clone(line[0])
	for i := 1; i < p; i++ {
		// line[i] = i/p * fwd[i-1] + (1-i/p) * fwd[i]
		a := float64(i) / float64(p)
		out := make([]float64, width)
		for k := range out {
			out[k] = (line[i][k] - a*fwd[i-1][k]) / (1 - a)
		}
		fwd[i] = out
	}
	bwd := make([][]float64, p)
	bwd[p-1] = slices.Clone(line[p])
	for i := p - 1; i >= 1; i-- {
		// line[i] = i/p * bwd[i-1] + (1-i/p) * bwd[i]
		a := float64(i) / float64(p)
		out := make([]float64, width)
		for k := range out {
			out[k] = (line[i][k] - (1-a)*bwd[i][k]) / a
		}
		bwd[i-1] = out
	}
	mid := (p - 1) / 2
	reduced := make([][]float64, p)
	for i := range reduced {
		switch {
		case i < mid:
			reduced[i] = fwd[i]
		case i > mid:
			reduced[i] = bwd[i]
		default:
			reduced[i] = lerpRow(fwd[i], bwd[i], 0.5)
		}
	}
	for i, q := range elevateBezierLine(reduced, p-1) {
		if rowDistance(q, line[i]) > tol {
			return nil, false
		}
	}
	return reduced, true
}

// reduceKnottedAxis reduces a knotted axis by one degree via Bezier
// extraction, mirroring elevateKnottedAxis. Works on a copy and commits
// only if every segment reduction passes the tolerance.
func (s *Spline) reduceKnottedAxis(axis int, tol float64) bool {
	p := s.degrees[axis]
	if p < 2 && len(s.interiorKnotValues(axis)) > 0 {
		// Reducing below degree 1 across segments would break continuity.
		return false
	}
	work := s.Copy()
	interior, interiorMults := work.interiorKnots(axis)

	grid := work.workingGrid()
	extracted := make([]int, len(interior))
	for vi, u := range interior {
		for m := interiorMults[vi]; m < p; m++ {
			grid = work.insertKnotGrid(grid, axis, u)
		}
		extracted[vi] = max(interiorMults[vi], p)
	}

	nSeg := len(interior) + 1
	starts := segmentStarts(extracted)
	reducedMults := make([]int, len(extracted))
	for vi, m := range extracted {
		reducedMults[vi] = m - 1
	}
	newStarts := segmentStarts(reducedMults)
	oldSizes := work.gridSizes()
	newSizes := slices.Clone(oldSizes)
	newSizes[axis] = newStarts[nSeg-1] + p
	oldStride := gridStrides(oldSizes)[axis]
	newStride := gridStrides(newSizes)[axis]
	newGrid := make([][]float64, gridSize(newSizes))
	ok := true
	gridLinePairs(oldSizes, newSizes, axis, func(oldStart, newStart int) {
		if !ok {
			return
		}
		line := gatherLine(grid, oldStart, oldStride, oldSizes[axis])
		newLine := make([][]float64, newSizes[axis])
		for g := 0; g < nSeg; g++ {
			seg, segOK := reduceBezierLine(line[starts[g]:starts[g]+p+1], p, tol)
			if !segOK {
				ok = false
				return
			}
			copy(newLine[newStarts[g]:], seg)
		}
		scatterLine(newGrid, newLine, newStart, newStride)
	})
	if !ok {
		return false
	}

	values, _ := work.knots[axis].uniqueKnots()
	newKnots := make(KnotVector, 0, len(values)*p)
	for vi, v := range values {
		m := p
		if vi > 0 && vi < len(values)-1 {
			m = reducedMults[vi-1]
		}
		for k := 0; k < m; k++ {
			newKnots = append(newKnots, v)
		}
	}
	work.knots[axis] = newKnots
	work.degrees[axis] = p - 1
	work.commitGrid(newGrid)

	// Thin interior multiplicities back toward the original smoothness: a
	// knot of multiplicity m at degree p keeps continuity C^{p-m} with
	// multiplicity m-1 at degree p-1. Leftover knots are harmless.
	grid = work.workingGrid()
	for vi, u := range interior {
		target := interiorMults[vi] - 1
		for work.knots[axis].Multiplicity(u) > target {
			next, removeOK := work.removeKnotGrid(grid, axis, u, tol)
			if !removeOK {
				break
			}
			grid = next
		}
	}
	work.commitGrid(grid)

	*s = *work
	return true
}

func (s *Spline) interiorKnotValues(axis int) []float64 {
	if !s.kind.HasKnotVectors() {
		return nil
	}
	values, _ := s.interiorKnots(axis)
	return values
}
