package splinepy

import (
	"fmt"
	"math"
	"slices"
)

// knotEpsilon is the tolerance used to tell knot values apart when counting
// multiplicities and validating clamped ends.
const knotEpsilon = 1e-12

// A KnotVector is a non-decreasing sequence of parameter values. A clamped
// knot vector for a degree-p axis repeats its first and last value p+1
// times; all knotted splines in this package are clamped.
type KnotVector []float64

// Clone returns an independent copy.
func (kv KnotVector) Clone() KnotVector {
	return slices.Clone(kv)
}

// Bounds returns the parametric interval spanned by the knot vector.
func (kv KnotVector) Bounds() (min, max float64) {
	return kv[0], kv[len(kv)-1]
}

// Span locates the knot span containing u, i.e. the index i with
// knots[i] <= u < knots[i+1], by binary search. The last span is closed on
// the right so that u equal to the upper bound stays evaluable.
//
// Corresponds to algorithm A2.1 from The NURBS Book (Piegl & Tiller, 2nd
// edition).
func (kv KnotVector) Span(degree int, u float64) int {
	n := len(kv) - degree - 2
	if u >= kv[n+1] {
		return n
	}
	if u < kv[degree] {
		return degree
	}
	low, high := degree, n+1
	mid := (low + high) / 2
	for u < kv[mid] || u >= kv[mid+1] {
		if u < kv[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// Multiplicity counts how often u occurs in the knot vector.
func (kv KnotVector) Multiplicity(u float64) int {
	var m int
	for _, k := range kv {
		if math.Abs(k-u) <= knotEpsilon {
			m++
		}
	}
	return m
}

// uniqueKnots returns the distinct knot values together with their
// multiplicities, in ascending order.
func (kv KnotVector) uniqueKnots() (values []float64, mults []int) {
	for _, k := range kv {
		if len(values) == 0 || math.Abs(k-values[len(values)-1]) > knotEpsilon {
			values = append(values, k)
			mults = append(mults, 1)
		} else {
			mults[len(mults)-1]++
		}
	}
	return values, mults
}

// validate checks the knot vector against the given degree and control
// point count: correct length, non-decreasing values, clamped ends, and
// interior multiplicities not exceeding degree+1.
func (kv KnotVector) validate(degree, numControlPoints int) error {
	if len(kv) != numControlPoints+degree+1 {
		return fmt.Errorf("%w: knot vector has %d values, want control points + degree + 1 = %d",
			ErrInvalidConstruction, len(kv), numControlPoints+degree+1)
	}
	for i := 1; i < len(kv); i++ {
		if kv[i] < kv[i-1] {
			return fmt.Errorf("%w: knot vector decreases at index %d (%g < %g)",
				ErrInvalidConstruction, i, kv[i], kv[i-1])
		}
	}
	for i := 0; i <= degree; i++ {
		if math.Abs(kv[i]-kv[0]) > knotEpsilon || math.Abs(kv[len(kv)-1-i]-kv[len(kv)-1]) > knotEpsilon {
			return fmt.Errorf("%w: knot vector is not clamped (first and last knot must repeat degree+1 times)",
				ErrInvalidConstruction)
		}
	}
	if kv[0] == kv[len(kv)-1] {
		return fmt.Errorf("%w: knot vector spans an empty parametric interval", ErrInvalidConstruction)
	}
	values, mults := kv.uniqueKnots()
	for i, m := range mults {
		if i == 0 || i == len(values)-1 {
			continue
		}
		if m > degree+1 {
			return fmt.Errorf("%w: interior knot %g has multiplicity %d > degree+1",
				ErrInvalidConstruction, values[i], m)
		}
	}
	return nil
}

// bezierKnotVector returns the trivial clamped knot vector on [0, 1] that
// re-expresses a degree-p Bezier axis as a B-spline axis.
func bezierKnotVector(degree int) KnotVector {
	kv := make(KnotVector, 2*(degree+1))
	for i := range kv[degree+1:] {
		kv[degree+1+i] = 1
	}
	return kv
}
