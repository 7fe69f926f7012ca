package splinepy

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"
)

// bernsteinBasisDerivative returns the order-th derivative of all degree+1
// Bernstein basis polynomials at u. It uses the degree-reduction recursion
// d/du B(i,p) = p*(B(i-1,p-1) - B(i,p-1)), applied order times. Orders
// beyond the degree vanish identically.
func bernsteinBasisDerivative(degree int, u float64, order int) []float64 {
	if order == 0 {
		return bernsteinBasis(degree, u)
	}
	if order > degree {
		return make([]float64, degree+1)
	}
	vals := bernsteinBasis(degree-order, u)
	for d := degree - order; d < degree; d++ {
		next := make([]float64, d+2)
		for i := range next {
			var v float64
			if i > 0 {
				v += vals[i-1]
			}
			if i <= d {
				v -= vals[i]
			}
			next[i] = float64(d+1) * v
		}
		vals = next
	}
	return vals
}

// bsplineBasisDerivatives returns the non-vanishing B-spline basis values
// and their derivatives up to maxOrder on the span containing u, as rows
// 0..maxOrder of the result.
//
// Corresponds to algorithm A2.3 from The NURBS Book (Piegl & Tiller, 2nd
// edition).
func bsplineBasisDerivatives(kv KnotVector, degree, span int, u float64, maxOrder int) [][]float64 {
	p := degree
	n := min(maxOrder, p)
	ndu := make([][]float64, p+1)
	for i := range ndu {
		ndu[i] = make([]float64, p+1)
	}
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = u - kv[span+1-j]
		right[j] = kv[span+j] - u
		var saved float64
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			tmp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		ndu[j][j] = saved
	}

	ders := make([][]float64, maxOrder+1)
	for i := range ders {
		ders[i] = make([]float64, p+1)
	}
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}

	a := [2][]float64{make([]float64, p+1), make([]float64, p+1)}
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for k := 1; k <= n; k++ {
			var d float64
			rk, pk := r-k, p-k
			if r >= k {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			j1 := 1
			if rk < -1 {
				j1 = -rk
			}
			j2 := k - 1
			if r-1 > pk {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][k] = -a[s1][k-1] / ndu[pk+1][r]
				d += a[s2][k] * ndu[r][pk]
			}
			ders[k][r] = d
			s1, s2 = s2, s1
		}
	}

	acc := p
	for k := 1; k <= n; k++ {
		for j := 0; j <= p; j++ {
			ders[k][j] *= float64(acc)
		}
		acc *= p - k
	}
	return ders
}

// axisBasisDerivative returns the order-th derivative of the non-vanishing
// univariate basis functions at u along one axis, and the axis index of
// the first supported control point.
func (s *Spline) axisBasisDerivative(axis int, u float64, order int) ([]float64, int) {
	p := s.degrees[axis]
	if !s.kind.HasKnotVectors() {
		return bernsteinBasisDerivative(p, u, order), 0
	}
	kv := s.knots[axis]
	span := kv.Span(p, u)
	if order > p {
		return make([]float64, p+1), span - p
	}
	ders := bsplineBasisDerivatives(kv, p, span, u, order)
	return ders[order], span - p
}

func (s *Spline) checkOrders(orders []int) error {
	if len(orders) != len(s.degrees) {
		return fmt.Errorf("%w: %d differentiation orders for %d parametric axes",
			ErrIncompatibleOperands, len(orders), len(s.degrees))
	}
	for axis, o := range orders {
		if o < 0 {
			return fmt.Errorf("%w: negative differentiation order %d on axis %d",
				ErrIncompatibleOperands, o, axis)
		}
	}
	return nil
}

// BasisDerivative computes, per query, the orders-th mixed partial
// derivative of the non-rational basis functions with support there,
// mirroring [Spline.BasisAndSupport].
func (s *Spline) BasisDerivative(queries [][]float64, orders []int, nthreads int) ([][]float64, [][]int, error) {
	if err := s.checkOrders(orders); err != nil {
		return nil, nil, err
	}
	if err := s.checkQueries(queries); err != nil {
		return nil, nil, err
	}
	values := make([][]float64, len(queries))
	support := make([][]int, len(queries))
	parallelFor(len(queries), nthreads, func(i int) {
		values[i], support[i] = s.basisDerivativeAt(queries[i], orders)
	})
	return values, support, nil
}

func (s *Spline) basisDerivativeAt(q []float64, orders []int) ([]float64, []int) {
	paraDim := len(s.degrees)
	axisVals := make([][]float64, paraDim)
	axisFirst := make([]int, paraDim)
	supportSizes := make([]int, paraDim)
	for axis := range s.degrees {
		axisVals[axis], axisFirst[axis] = s.axisBasisDerivative(axis, q[axis], orders[axis])
		supportSizes[axis] = len(axisVals[axis])
	}
	return tensorProduct(axisVals, axisFirst, supportSizes, s.gridSizes())
}

// Derivative computes the orders-th mixed partial derivative of the
// geometric map at every query, with orders giving the differentiation
// order per parametric axis (0 = no differentiation along that axis).
// Orders exceeding the polynomial degree of an axis yield exact zeros.
//
// For rational kinds the derivative of the homogeneous-coordinate quotient
// is expanded with a multi-index Leibniz recursion over the numerator and
// denominator derivatives.
func (s *Spline) Derivative(queries [][]float64, orders []int, nthreads int) ([][]float64, error) {
	if err := s.checkOrders(orders); err != nil {
		return nil, err
	}
	if err := s.checkQueries(queries); err != nil {
		return nil, err
	}
	out := make([][]float64, len(queries))
	parallelFor(len(queries), nthreads, func(i int) {
		out[i] = s.derivativeAt(queries[i], orders)
	})
	return out, nil
}

func (s *Spline) derivativeAt(q []float64, orders []int) []float64 {
	if !s.kind.Rational() {
		values, support := s.basisDerivativeAt(q, orders)
		point := make([]float64, s.dim)
		for k, idx := range support {
			b := values[k]
			cp := s.controlPoints[idx]
			for j := range point {
				point[j] += b * cp[j]
			}
		}
		return point
	}
	return s.rationalDerivativeAt(q, orders)
}

// rationalDerivativeAt evaluates derivatives of the rational map
// S = A/W with A = Σ N w P and W = Σ N w. From the Leibniz rule applied
// to A = W*S,
//
//	S^(α) = (A^(α) - Σ_{0<β<=α} C(α,β) W^(β) S^(α-β)) / W
//
// where α, β are multi-indices over the parametric axes. Homogeneous
// derivatives A^(β), W^(β) come from the non-rational machinery applied to
// the homogeneous control points; S^(β) is built up in increasing
// multi-index order.
func (s *Spline) rationalDerivativeAt(q []float64, orders []int) []float64 {
	paraDim := len(s.degrees)
	// Per-axis derivative basis tables for every order 0..orders[axis].
	axisDers := make([][][]float64, paraDim)
	axisFirst := make([]int, paraDim)
	supportSizes := make([]int, paraDim)
	for axis := range s.degrees {
		axisDers[axis] = make([][]float64, orders[axis]+1)
		for o := 0; o <= orders[axis]; o++ {
			axisDers[axis][o], axisFirst[axis] = s.axisBasisDerivative(axis, q[axis], o)
		}
		supportSizes[axis] = len(axisDers[axis][0])
	}
	homo := s.homogeneous()

	subOrders := enumerateOrders(orders)
	numer := make([][]float64, len(subOrders)) // A^(β), dim components
	denom := make([]float64, len(subOrders))   // W^(β)
	axisVals := make([][]float64, paraDim)
	for bi, beta := range subOrders {
		for axis := range axisVals {
			axisVals[axis] = axisDers[axis][beta[axis]]
		}
		values, support := tensorProduct(axisVals, axisFirst, supportSizes, s.gridSizes())
		a := make([]float64, s.dim)
		var w float64
		for k, idx := range support {
			b := values[k]
			h := homo[idx]
			for j := range a {
				a[j] += b * h[j]
			}
			w += b * h[s.dim]
		}
		numer[bi], denom[bi] = a, w
	}

	// Leibniz recursion in increasing multi-index order; every β-γ
	// precedes β in the row-major enumeration.
	offsets := betaOffsets(orders)
	derivs := make([][]float64, len(subOrders))
	for bi, beta := range subOrders {
		v := append([]float64(nil), numer[bi]...)
		for gi, gamma := range subOrders[:bi+1] {
			if isZeroOrder(gamma) || !multiIndexLE(gamma, beta) {
				continue
			}
			c := multiBinomial(beta, gamma)
			rest := derivs[bi-gridOffset(gamma, offsets)]
			cw := c * denom[gi]
			for j := range v {
				v[j] -= cw * rest[j]
			}
		}
		for j := range v {
			v[j] /= denom[0]
		}
		derivs[bi] = v
	}
	return derivs[len(derivs)-1]
}

// enumerateOrders lists every multi-index β with 0 <= β_a <= limits[a], in
// row-major order.
func enumerateOrders(limits []int) [][]int {
	sizes := make([]int, len(limits))
	for i, l := range limits {
		sizes[i] = l + 1
	}
	out := make([][]int, 0, gridSize(sizes))
	index := make([]int, len(limits))
	for {
		out = append(out, append([]int(nil), index...))
		if !nextIndex(index, sizes) {
			return out
		}
	}
}

// betaOffsets returns the row-major strides of the enumeration produced by
// enumerateOrders, so that the position of β-γ can be computed from the
// position of β.
func betaOffsets(limits []int) []int {
	sizes := make([]int, len(limits))
	for i, l := range limits {
		sizes[i] = l + 1
	}
	return gridStrides(sizes)
}

func multiIndexLE(a, b []int) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

func isZeroOrder(a []int) bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// multiBinomial computes the product of per-axis binomial coefficients
// C(α_a, β_a).
func multiBinomial(alpha, beta []int) float64 {
	c := 1.0
	for i := range alpha {
		if beta[i] == 0 || beta[i] == alpha[i] {
			continue
		}
		c *= float64(combin.Binomial(alpha[i], beta[i]))
	}
	return c
}

// Jacobian computes the first-order parametric derivatives at every query,
// as one dim x paraDim matrix per query whose column a is the derivative
// along parametric axis a.
func (s *Spline) Jacobian(queries [][]float64, nthreads int) ([][][]float64, error) {
	if err := s.checkQueries(queries); err != nil {
		return nil, err
	}
	paraDim := len(s.degrees)
	out := make([][][]float64, len(queries))
	parallelFor(len(queries), nthreads, func(i int) {
		jac := make([][]float64, s.dim)
		for r := range jac {
			jac[r] = make([]float64, paraDim)
		}
		orders := make([]int, paraDim)
		for a := 0; a < paraDim; a++ {
			orders[a] = 1
			col := s.derivativeAt(queries[i], orders)
			orders[a] = 0
			for r := range col {
				jac[r][a] = col[r]
			}
		}
		out[i] = jac
	})
	return out, nil
}
