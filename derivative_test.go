package splinepy

import (
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDerivativeLineIsConstant(t *testing.T) {
	s, err := NewBezier([]int{1}, [][]float64{{0, 0}, {2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	ders, err := s.Derivative(lineQueries(5, 0, 1), []int{1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range ders {
		diff(t, []float64{2, 1}, d, cmpopts.EquateApprox(0, 1e-15))
	}
}

func TestDerivativeOrderBeyondDegreeIsZero(t *testing.T) {
	s := wavyBSpline(t)
	ders, err := s.Derivative([][]float64{{0.3}, {0.8}}, []int{3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, [][]float64{{0, 0}, {0, 0}}, ders)
}

// centralDifference approximates the derivative of s along axis at q.
func centralDifference(t *testing.T, s *Spline, q []float64, axis int, h float64) []float64 {
	t.Helper()
	lo := append([]float64(nil), q...)
	hi := append([]float64(nil), q...)
	lo[axis] -= h
	hi[axis] += h
	pts := mustEvaluate(t, s, [][]float64{lo, hi})
	out := make([]float64, s.Dim())
	for j := range out {
		out[j] = (pts[1][j] - pts[0][j]) / (2 * h)
	}
	return out
}

func TestRationalDerivativeMatchesFiniteDifference(t *testing.T) {
	s := quarterCircle(t)
	for _, u := range []float64{0.1, 0.35, 0.5, 0.8} {
		want := centralDifference(t, s, []float64{u}, 0, 1e-6)
		got, err := s.Derivative([][]float64{{u}}, []int{1}, 1)
		if err != nil {
			t.Fatal(err)
		}
		diff(t, want, got[0], cmpopts.EquateApprox(1e-8, 1e-8))
	}
}

func TestRationalSecondDerivative(t *testing.T) {
	s := quarterCircle(t)
	// d2/du2 via central difference of the exact first derivative.
	const h = 1e-5
	for _, u := range []float64{0.3, 0.5, 0.7} {
		d, err := s.Derivative([][]float64{{u - h}, {u + h}}, []int{1}, 1)
		if err != nil {
			t.Fatal(err)
		}
		want := make([]float64, s.Dim())
		for j := range want {
			want[j] = (d[1][j] - d[0][j]) / (2 * h)
		}
		got, err := s.Derivative([][]float64{{u}}, []int{2}, 1)
		if err != nil {
			t.Fatal(err)
		}
		diff(t, want, got[0], cmpopts.EquateApprox(1e-6, 1e-6))
	}
}

func TestMixedPartialMatchesFiniteDifference(t *testing.T) {
	s := surfaceBSpline(t)
	const h = 1e-5
	q := []float64{0.3, 0.6}
	// d2S/dudv via central difference of dS/du along v.
	lo, hi := []float64{q[0], q[1] - h}, []float64{q[0], q[1] + h}
	d, err := s.Derivative([][]float64{lo, hi}, []int{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, s.Dim())
	for j := range want {
		want[j] = (d[1][j] - d[0][j]) / (2 * h)
	}
	got, err := s.Derivative([][]float64{q}, []int{1, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, want, got[0], cmpopts.EquateApprox(1e-6, 1e-6))
}

func TestBasisDerivativeMirrorsSupport(t *testing.T) {
	s := surfaceBSpline(t)
	queries := surfaceQueries(4)
	_, wantSupport, err := s.BasisAndSupport(queries, 1)
	if err != nil {
		t.Fatal(err)
	}
	values, support, err := s.BasisDerivative(queries, []int{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, wantSupport, support)

	// Contracting the derivative basis with the control points gives the
	// map derivative (non-rational spline).
	ders, err := s.Derivative(queries, []int{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	cp := s.ControlPoints()
	for qi := range queries {
		pt := make([]float64, s.Dim())
		for k, idx := range support[qi] {
			for j := range pt {
				pt[j] += values[qi][k] * cp[idx][j]
			}
		}
		diff(t, ders[qi], pt, cmpopts.EquateApprox(0, 1e-14))
	}
}

func TestJacobianLine(t *testing.T) {
	s, err := NewBezier([]int{1}, [][]float64{{0, 0}, {2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	jac, err := s.Jacobian([][]float64{{0.25}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, [][][]float64{{{2}, {1}}}, jac, cmpopts.EquateApprox(0, 1e-15))
}

func TestDerivativeOrderValidation(t *testing.T) {
	s := surfaceBSpline(t)
	if _, err := s.Derivative(surfaceQueries(2), []int{1}, 1); err == nil {
		t.Error("want error for wrong orders length")
	}
	if _, err := s.Derivative(surfaceQueries(2), []int{1, -1}, 1); err == nil {
		t.Error("want error for negative order")
	}
}
