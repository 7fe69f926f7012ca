package splinepy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestInsertKnotsPreservesGeometry(t *testing.T) {
	s := surfaceBSpline(t)
	queries := surfaceQueries(9)
	want := mustEvaluate(t, s, queries)

	if err := s.InsertKnots(0, []float64{0.2, 0.6, 0.6}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertKnots(1, []float64{0.5}); err != nil {
		t.Fatal(err)
	}
	diff(t, want, mustEvaluate(t, s, queries), cmpopts.EquateApprox(0, 1e-13))
	diff(t, KnotVector{0, 0, 0, 0.2, 0.4, 0.6, 0.6, 1, 1, 1}, s.KnotVectors()[0])
}

func TestInsertKnotsOrderIndependent(t *testing.T) {
	a, b := surfaceBSpline(t), surfaceBSpline(t)
	if err := a.InsertKnots(0, []float64{0.2, 0.8}); err != nil {
		t.Fatal(err)
	}
	if err := b.InsertKnots(0, []float64{0.8, 0.2}); err != nil {
		t.Fatal(err)
	}
	diff(t, a.ControlPoints(), b.ControlPoints())
	diff(t, a.KnotVectors(), b.KnotVectors())
}

func TestInsertKnotsRational(t *testing.T) {
	s, err := quarterCircle(t).ToNURBS()
	if err != nil {
		t.Fatal(err)
	}
	queries := lineQueries(11, 0, 1)
	want := mustEvaluate(t, s, queries)
	if err := s.InsertKnots(0, []float64{0.5}); err != nil {
		t.Fatal(err)
	}
	diff(t, want, mustEvaluate(t, s, queries), cmpopts.EquateApprox(0, 1e-14))
}

func TestInsertKnotsValidation(t *testing.T) {
	s := wavyBSpline(t)
	if err := s.InsertKnots(0, []float64{1.5}); !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("got %v, want ErrOutOfDomain", err)
	}
	if err := s.InsertKnots(0, []float64{0}); !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("got %v, want ErrOutOfDomain", err)
	}
	// 0.5 already has multiplicity 1; two more insertions reach degree+1,
	// a third must be refused.
	if err := s.InsertKnots(0, []float64{0.5, 0.5, 0.5}); !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("got %v, want ErrIncompatibleOperands", err)
	}
	bez, _ := NewBezier([]int{1}, [][]float64{{0}, {1}})
	if err := bez.InsertKnots(0, []float64{0.5}); !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("got %v, want ErrIncompatibleOperands", err)
	}
}

func TestInsertThenRemoveRoundTrip(t *testing.T) {
	s := wavyBSpline(t)
	wantCP := s.ControlPoints()
	wantKV := s.KnotVectors()

	if err := s.InsertKnots(0, []float64{0.25}); err != nil {
		t.Fatal(err)
	}
	removed, err := s.RemoveKnots(0, []float64{0.25}, 1e-10)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []bool{true}, removed)
	diff(t, wantKV, s.KnotVectors())
	diff(t, wantCP, s.ControlPoints(), cmpopts.EquateApprox(0, 1e-12))
}

func TestRemoveKnotRefusedLeavesSplineUnchanged(t *testing.T) {
	s := wavyBSpline(t)
	wantCP := s.ControlPoints()
	wantKV := s.KnotVectors()

	// The interior knot carries real shape information here; removing it
	// cannot reproduce the geometry.
	removed, err := s.RemoveKnots(0, []float64{0.5}, 1e-10)
	if !errors.Is(err, ErrToleranceNotMet) {
		t.Errorf("got %v, want ErrToleranceNotMet", err)
	}
	diff(t, []bool{false}, removed)
	diff(t, wantKV, s.KnotVectors())
	diff(t, wantCP, s.ControlPoints())
}

func TestRemoveKnotLooseToleranceSucceeds(t *testing.T) {
	s := wavyBSpline(t)
	removed, err := s.RemoveKnots(0, []float64{0.5}, 100)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []bool{true}, removed)
	diff(t, KnotVector{0, 0, 0, 1, 1, 1}, s.KnotVectors()[0])
}

func TestElevateDegreesPreservesGeometry(t *testing.T) {
	for name, s := range map[string]*Spline{
		"bezier curve":    mustBezierArc(t),
		"rational bezier": quarterCircle(t),
		"bspline surface": surfaceBSpline(t),
	} {
		t.Run(name, func(t *testing.T) {
			var queries [][]float64
			if s.ParaDim() == 1 {
				queries = lineQueries(9, 0, 1)
			} else {
				queries = surfaceQueries(6)
			}
			want := mustEvaluate(t, s, queries)
			wantDegrees := s.Degrees()

			// Elevate the first axis twice.
			if err := s.ElevateDegrees(0, 0); err != nil {
				t.Fatal(err)
			}
			wantDegrees[0] += 2
			diff(t, wantDegrees, s.Degrees())
			diff(t, want, mustEvaluate(t, s, queries), cmpopts.EquateApprox(0, 1e-11))
		})
	}
}

func mustBezierArc(t *testing.T) *Spline {
	t.Helper()
	s, err := NewBezier([]int{2}, [][]float64{{0, 0}, {1, 2}, {2, 0}})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestElevateKeepsInteriorMultiplicityMinimal(t *testing.T) {
	s := wavyBSpline(t)
	if err := s.ElevateDegrees(0); err != nil {
		t.Fatal(err)
	}
	diff(t, []int{3}, s.Degrees())
	diff(t, 2, s.KnotVectors()[0].Multiplicity(0.5))
}

func TestElevateThenReduceRoundTrip(t *testing.T) {
	s := mustBezierArc(t)
	wantCP := s.ControlPoints()

	if err := s.ElevateDegrees(0); err != nil {
		t.Fatal(err)
	}
	reduced, err := s.ReduceDegrees([]int{0}, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []bool{true}, reduced)
	diff(t, []int{2}, s.Degrees())
	diff(t, wantCP, s.ControlPoints(), cmpopts.EquateApprox(0, 1e-12))
}

func TestElevateThenReduceRoundTripKnotted(t *testing.T) {
	s := surfaceBSpline(t)
	wantCP := s.ControlPoints()
	wantKV := s.KnotVectors()

	if err := s.ElevateDegrees(0); err != nil {
		t.Fatal(err)
	}
	reduced, err := s.ReduceDegrees([]int{0}, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []bool{true}, reduced)
	diff(t, []int{2, 1}, s.Degrees())
	diff(t, wantKV, s.KnotVectors(), cmpopts.EquateApprox(0, 1e-12))
	diff(t, wantCP, s.ControlPoints(), cmpopts.EquateApprox(0, 1e-8))
}

func TestElevateFullMultiplicityKnot(t *testing.T) {
	// The segments on either side of the jump own separate boundary
	// control points, so segment offsets cannot assume shared joints.
	s := jumpLine(t)
	queries := lineQueries(9, 0, 1)
	want := mustEvaluate(t, s, queries)

	if err := s.ElevateDegrees(0); err != nil {
		t.Fatal(err)
	}
	diff(t, []int{2}, s.Degrees())
	diff(t, []KnotVector{{0, 0, 0, 0.5, 0.5, 0.5, 1, 1, 1}}, s.KnotVectors())
	diff(t, want, mustEvaluate(t, s, queries), cmpopts.EquateApprox(0, 1e-12))
}

func TestElevateThenReduceFullMultiplicityKnot(t *testing.T) {
	s := jumpLine(t)
	queries := lineQueries(9, 0, 1)
	want := mustEvaluate(t, s, queries)

	if err := s.ElevateDegrees(0); err != nil {
		t.Fatal(err)
	}
	reduced, err := s.ReduceDegrees([]int{0}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []bool{true}, reduced)
	diff(t, []int{1}, s.Degrees())
	diff(t, []KnotVector{{0, 0, 0.5, 0.5, 1, 1}}, s.KnotVectors())
	diff(t, want, mustEvaluate(t, s, queries), cmpopts.EquateApprox(0, 1e-9))
}

func TestReduceRefusedLeavesSplineUnchanged(t *testing.T) {
	// A generic cubic is not an elevated quadratic.
	s, err := NewBezier([]int{3}, [][]float64{{0, 0}, {0, 3}, {3, -2}, {4, 4}})
	if err != nil {
		t.Fatal(err)
	}
	wantCP := s.ControlPoints()
	reduced, rerr := s.ReduceDegrees([]int{0}, 1e-10)
	if !errors.Is(rerr, ErrToleranceNotMet) {
		t.Errorf("got %v, want ErrToleranceNotMet", rerr)
	}
	diff(t, []bool{false}, reduced)
	diff(t, []int{3}, s.Degrees())
	diff(t, wantCP, s.ControlPoints())
}
