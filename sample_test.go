package splinepy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSampleMatchesEvaluate(t *testing.T) {
	s := scaledSquare(t)
	pts, err := s.Sample([]int{3, 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, [][]float64{
		{0, 0}, {0, 2},
		{1, 0}, {1, 2},
		{2, 0}, {2, 2},
	}, pts, cmpopts.EquateApprox(0, 1e-15))

	if _, err := s.Sample([]int{3}, 1); !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("got %v, want ErrIncompatibleOperands for wrong resolution count", err)
	}
	if _, err := s.Sample([]int{3, 1}, 1); !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("got %v, want ErrIncompatibleOperands for resolution < 2", err)
	}
}

func TestGrevilleAbscissae(t *testing.T) {
	diff(t, [][]float64{{0, 0.25, 0.75, 1}}, wavyBSpline(t).GrevilleAbscissae())

	bez := mustBezierArc(t)
	diff(t, [][]float64{{0, 0.5, 1}}, bez.GrevilleAbscissae())
}

func TestExtractBezierPatches(t *testing.T) {
	s := wavyBSpline(t)
	patches, err := s.ExtractBezierPatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	for _, p := range patches {
		diff(t, Bezier, p.Kind())
		diff(t, []int{2}, p.Degrees())
	}

	// Patch g covers parametric interval [g/2, (g+1)/2] of the original,
	// affinely reparametrized onto [0, 1].
	for g, patch := range patches {
		for _, u := range []float64{0, 0.25, 0.5, 0.75, 1} {
			want := mustEvaluate(t, s, [][]float64{{(float64(g) + u) / 2}})[0]
			got := mustEvaluate(t, patch, [][]float64{{u}})[0]
			diff(t, want, got, cmpopts.EquateApprox(0, 1e-13))
		}
	}
}

func TestExtractBezierPatchesSurface(t *testing.T) {
	s := surfaceBSpline(t)
	patches, err := s.ExtractBezierPatches()
	if err != nil {
		t.Fatal(err)
	}
	// Two segments along axis 0 (interior knot 0.4), one along axis 1.
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	got := mustEvaluate(t, patches[0], [][]float64{{0.5, 0.5}})[0]
	want := mustEvaluate(t, s, [][]float64{{0.2, 0.5}})[0]
	diff(t, want, got, cmpopts.EquateApprox(0, 1e-13))
}

func TestExtractBezierPatchesBezierIsCopy(t *testing.T) {
	s := quarterCircle(t)
	patches, err := s.ExtractBezierPatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	diff(t, s.ControlPoints(), patches[0].ControlPoints())
	diff(t, s.Weights(), patches[0].Weights())
}

func TestSplitHalvesMatchOriginal(t *testing.T) {
	s := quarterCircle(t)
	left, right, err := s.Split(0, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, NURBS, left.Kind())
	diff(t, [][2]float64{{0, 0.3}}, left.ParametricBounds())
	diff(t, [][2]float64{{0.3, 1}}, right.ParametricBounds())

	for _, u := range []float64{0, 0.1, 0.2, 0.3} {
		want := mustEvaluate(t, s, [][]float64{{u}})[0]
		got := mustEvaluate(t, left, [][]float64{{u}})[0]
		diff(t, want, got, cmpopts.EquateApprox(0, 1e-13))
	}
	for _, u := range []float64{0.3, 0.5, 0.8, 1} {
		want := mustEvaluate(t, s, [][]float64{{u}})[0]
		got := mustEvaluate(t, right, [][]float64{{u}})[0]
		diff(t, want, got, cmpopts.EquateApprox(0, 1e-13))
	}
}

func TestSplitKnottedSurface(t *testing.T) {
	s := surfaceBSpline(t)
	left, right, err := s.Split(0, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	q := [][]float64{{0.2, 0.5}}
	diff(t, mustEvaluate(t, s, q), mustEvaluate(t, left, q), cmpopts.EquateApprox(0, 1e-13))
	q = [][]float64{{0.7, 0.25}}
	diff(t, mustEvaluate(t, s, q), mustEvaluate(t, right, q), cmpopts.EquateApprox(0, 1e-13))
}

func TestExtractBezierPatchesFullMultiplicityKnot(t *testing.T) {
	patches, err := jumpLine(t).ExtractBezierPatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	diff(t, [][]float64{{0, 0}, {1, 1}}, patches[0].ControlPoints())
	diff(t, [][]float64{{2, 5}, {3, 0}}, patches[1].ControlPoints())
}

func TestSplitAtFullMultiplicityKnot(t *testing.T) {
	// Splitting exactly at the jump: each half keeps its own boundary
	// control point.
	left, right, err := jumpLine(t).Split(0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []KnotVector{{0, 0, 0.5, 0.5}}, left.KnotVectors())
	diff(t, [][]float64{{0, 0}, {1, 1}}, left.ControlPoints())
	diff(t, []KnotVector{{0.5, 0.5, 1, 1}}, right.KnotVectors())
	diff(t, [][]float64{{2, 5}, {3, 0}}, right.ControlPoints())
}

func TestSplitValidation(t *testing.T) {
	s := quarterCircle(t)
	if _, _, err := s.Split(0, 0); !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("got %v, want ErrOutOfDomain", err)
	}
	if _, _, err := s.Split(1, 0.5); !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("got %v, want ErrIncompatibleOperands", err)
	}
}
