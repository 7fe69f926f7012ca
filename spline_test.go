package splinepy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructionValidation(t *testing.T) {
	valid := func() ([]int, []KnotVector, [][]float64, []float64) {
		return []int{2},
			[]KnotVector{{0, 0, 0, 0.5, 1, 1, 1}},
			[][]float64{{0, 0}, {1, 2}, {3, -1}, {4, 4}},
			[]float64{1, 2, 1, 1}
	}

	t.Run("valid NURBS", func(t *testing.T) {
		deg, kv, cp, w := valid()
		s, err := NewNURBS(deg, kv, cp, w)
		require.NoError(t, err)
		assert.Equal(t, NURBS, s.Kind())
		assert.Equal(t, 1, s.ParaDim())
		assert.Equal(t, 2, s.Dim())
		assert.Equal(t, 4, s.NumControlPoints())
	})

	t.Run("control point count mismatch", func(t *testing.T) {
		deg, kv, cp, _ := valid()
		_, err := NewBSpline(deg, kv, cp[:3])
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("decreasing knots", func(t *testing.T) {
		deg, _, cp, _ := valid()
		_, err := NewBSpline(deg, []KnotVector{{0, 0, 0, 0.5, 0.4, 1, 1}}, cp)
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("unclamped knots", func(t *testing.T) {
		deg, _, cp, _ := valid()
		_, err := NewBSpline(deg, []KnotVector{{0, 0, 0.2, 0.5, 1, 1, 1}}, cp)
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("non-positive weight", func(t *testing.T) {
		deg, kv, cp, w := valid()
		w[2] = 0
		_, err := NewNURBS(deg, kv, cp, w)
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("weight count mismatch", func(t *testing.T) {
		deg, kv, cp, w := valid()
		_, err := NewNURBS(deg, kv, cp, w[:2])
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("ragged control points", func(t *testing.T) {
		deg, kv, cp, _ := valid()
		cp[1] = []float64{1}
		_, err := NewBSpline(deg, kv, cp)
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("interior multiplicity over degree+1", func(t *testing.T) {
		_, err := NewBSpline(
			[]int{1},
			[]KnotVector{{0, 0, 0.5, 0.5, 0.5, 1, 1}},
			[][]float64{{0}, {1}, {2}, {3}, {4}},
		)
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})

	t.Run("bezier grid size", func(t *testing.T) {
		_, err := NewBezier([]int{2, 1}, [][]float64{{0, 0}, {1, 1}})
		assert.ErrorIs(t, err, ErrInvalidConstruction)
	})
}

func TestConstructorsCloneInputs(t *testing.T) {
	cp := [][]float64{{0, 0}, {1, 1}}
	s, err := NewBezier([]int{1}, cp)
	require.NoError(t, err)
	cp[0][0] = 99
	diff(t, [][]float64{{0, 0}, {1, 1}}, s.ControlPoints())
}

func TestCopyIsIndependent(t *testing.T) {
	s := wavyBSpline(t)
	c := s.Copy()
	require.NoError(t, c.InsertKnots(0, []float64{0.25}))
	diff(t, []KnotVector{{0, 0, 0, 0.5, 1, 1, 1}}, s.KnotVectors())
	diff(t, []KnotVector{{0, 0, 0, 0.25, 0.5, 1, 1, 1}}, c.KnotVectors())
}

func TestParametricBounds(t *testing.T) {
	s, err := NewBSpline(
		[]int{1},
		[]KnotVector{{2, 2, 3, 5, 5}},
		[][]float64{{0}, {1}, {2}},
	)
	require.NoError(t, err)
	diff(t, [][2]float64{{2, 5}}, s.ParametricBounds())

	diff(t, [][2]float64{{0, 1}}, quarterCircle(t).ParametricBounds())
}

func TestBounds(t *testing.T) {
	s := wavyBSpline(t)
	lo, hi := s.Bounds()
	diff(t, []float64{0, -1}, lo)
	diff(t, []float64{4, 4}, hi)
}
