package splinepy

import (
	"fmt"
	"math"
)

// The type transform layer re-expresses a spline in one of the other
// three representations where that is mathematically lossless: adding
// unit weights or a trivial clamped knot vector is always possible,
// while dropping weights or knot vectors requires the spline not to use
// them (constant weights, no interior knots). Every transform returns a
// new Spline and leaves the receiver untouched.

// constantWeight returns the shared weight value if all weights agree
// within knotEpsilon, or ok=false.
func (s *Spline) constantWeight() (float64, bool) {
	if s.weights == nil {
		return 1, true
	}
	w := s.weights[0]
	for _, v := range s.weights[1:] {
		if math.Abs(v-w) > knotEpsilon {
			return 0, false
		}
	}
	return w, true
}

func (s *Spline) hasInteriorKnots() bool {
	if !s.kind.HasKnotVectors() {
		return false
	}
	for axis := range s.knots {
		if len(s.interiorKnotValues(axis)) > 0 {
			return true
		}
	}
	return false
}

// ToBezier re-expresses the spline as a Bezier. Fails unless the spline
// is a single polynomial segment (no interior knots) with constant
// weights; knotted inputs are reparametrized onto the unit cube.
func (s *Spline) ToBezier() (*Spline, error) {
	if _, ok := s.constantWeight(); !ok {
		return nil, fmt.Errorf("%w: non-constant weights cannot be dropped", ErrIncompatibleOperands)
	}
	if s.hasInteriorKnots() {
		return nil, fmt.Errorf("%w: interior knots cannot be dropped (extract Bezier patches instead)",
			ErrIncompatibleOperands)
	}
	return NewBezier(s.degrees, s.controlPoints)
}

// ToRationalBezier re-expresses the spline as a RationalBezier. Fails if
// the spline has interior knots; knotted inputs are reparametrized onto
// the unit cube.
func (s *Spline) ToRationalBezier() (*Spline, error) {
	if s.hasInteriorKnots() {
		return nil, fmt.Errorf("%w: interior knots cannot be dropped (extract Bezier patches instead)",
			ErrIncompatibleOperands)
	}
	return NewRationalBezier(s.degrees, s.controlPoints, unitOrWeights(s))
}

// ToBSpline re-expresses the spline as a BSpline. Bezier kinds get the
// trivial clamped knot vector on [0, 1]; rational inputs must have
// constant weights.
func (s *Spline) ToBSpline() (*Spline, error) {
	if _, ok := s.constantWeight(); !ok {
		return nil, fmt.Errorf("%w: non-constant weights cannot be dropped", ErrIncompatibleOperands)
	}
	return NewBSpline(s.degrees, s.knotVectorsOrTrivial(), s.controlPoints)
}

// ToNURBS re-expresses the spline as a NURBS. Always available: missing
// weights become units, missing knot vectors become the trivial clamped
// vectors on [0, 1].
func (s *Spline) ToNURBS() (*Spline, error) {
	return NewNURBS(s.degrees, s.knotVectorsOrTrivial(), s.controlPoints, unitOrWeights(s))
}

func (s *Spline) knotVectorsOrTrivial() []KnotVector {
	if s.kind.HasKnotVectors() {
		return s.knots
	}
	kvs := make([]KnotVector, len(s.degrees))
	for axis, p := range s.degrees {
		kvs[axis] = bezierKnotVector(p)
	}
	return kvs
}
