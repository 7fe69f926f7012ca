package splinepy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

// quarterCircle returns the standard rational Bezier quarter circle from
// (1, 0) to (0, 1) on the unit circle.
func quarterCircle(t *testing.T) *Spline {
	t.Helper()
	s, err := NewRationalBezier(
		[]int{2},
		[][]float64{{1, 0}, {1, 1}, {0, 1}},
		[]float64{1, 0.7071067811865476, 1},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// wavyBSpline returns a cubic-free degree-2 planar B-spline with one
// interior knot, not produced by any insertion or elevation.
func wavyBSpline(t *testing.T) *Spline {
	t.Helper()
	s, err := NewBSpline(
		[]int{2},
		[]KnotVector{{0, 0, 0, 0.5, 1, 1, 1}},
		[][]float64{{0, 0}, {1, 2}, {3, -1}, {4, 4}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// surfaceBSpline returns a degree (2, 1) B-spline surface in 3D with an
// interior knot on the first axis.
func surfaceBSpline(t *testing.T) *Spline {
	t.Helper()
	s, err := NewBSpline(
		[]int{2, 1},
		[]KnotVector{{0, 0, 0, 0.4, 1, 1, 1}, {0, 0, 1, 1}},
		[][]float64{
			{0, 0, 0}, {0, 1, 0.5},
			{1, 0.2, 1}, {1, 1.1, 1.5},
			{2, -0.3, 0.5}, {2, 0.9, 1},
			{3, 0, 0}, {3, 1, 0.2},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// jumpLine returns a degree-1 B-spline whose interior knot carries full
// multiplicity degree+1, so the map jumps at u = 0.5.
func jumpLine(t *testing.T) *Spline {
	t.Helper()
	s, err := NewBSpline(
		[]int{1},
		[]KnotVector{{0, 0, 0.5, 0.5, 1, 1}},
		[][]float64{{0, 0}, {1, 1}, {2, 5}, {3, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func lineQueries(n int, lo, hi float64) [][]float64 {
	qs := make([][]float64, n)
	for i := range qs {
		qs[i] = []float64{lo + (hi-lo)*float64(i)/float64(n-1)}
	}
	return qs
}

func surfaceQueries(n int) [][]float64 {
	qs := make([][]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			qs = append(qs, []float64{float64(i) / float64(n-1), float64(j) / float64(n-1)})
		}
	}
	return qs
}

func mustEvaluate(t *testing.T, s *Spline, queries [][]float64) [][]float64 {
	t.Helper()
	pts, err := s.Evaluate(queries, 1)
	if err != nil {
		t.Fatal(err)
	}
	return pts
}
