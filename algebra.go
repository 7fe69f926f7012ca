package splinepy

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/combin"
)

// The algebra engine builds new splines from the control polygons of its
// operands with closed combinatorial formulas; nothing here samples or
// fits. Multiplication and composition are defined on the Bezier kinds
// only, addition additionally accepts knotted operands with identical
// layout. Operands are never mutated.

func (s *Spline) checkBezierKind(op string) error {
	if s.kind.HasKnotVectors() {
		return fmt.Errorf("%w: %s requires Bezier kinds, got %v (extract Bezier patches first)",
			ErrIncompatibleOperands, op, s.kind)
	}
	return nil
}

// binomialRow returns C(n, 0..n) as floats.
func binomialRow(n int) []float64 {
	row := make([]float64, n+1)
	for i := range row {
		row[i] = float64(combin.Binomial(n, i))
	}
	return row
}

// Add returns the pointwise sum A(u) + B(u) as a new spline.
//
// Operands need matching parametric and physical dimensions. Bezier-kind
// operands of differing degrees are degree-matched automatically by
// elevating the lower-degree operand per axis. Knotted operands must
// already agree in degrees and knot vectors; rational operands must carry
// the same weights, since the sum of two rational maps with different
// denominators is not expressible with either denominator.
func (a *Spline) Add(b *Spline) (*Spline, error) {
	if len(a.degrees) != len(b.degrees) {
		return nil, fmt.Errorf("%w: addition across para_dim %d and %d",
			ErrIncompatibleOperands, len(a.degrees), len(b.degrees))
	}
	if a.dim != b.dim {
		return nil, fmt.Errorf("%w: addition across dim %d and %d",
			ErrIncompatibleOperands, a.dim, b.dim)
	}
	if a.kind.HasKnotVectors() != b.kind.HasKnotVectors() {
		return nil, fmt.Errorf("%w: addition across %v and %v", ErrIncompatibleOperands, a.kind, b.kind)
	}

	left, right := a, b
	if !a.kind.HasKnotVectors() {
		target := make([]int, len(a.degrees))
		for axis := range target {
			target[axis] = max(a.degrees[axis], b.degrees[axis])
		}
		var err error
		if left, err = elevatedTo(a, target); err != nil {
			return nil, err
		}
		if right, err = elevatedTo(b, target); err != nil {
			return nil, err
		}
	} else {
		if !slices.Equal(a.degrees, b.degrees) {
			return nil, fmt.Errorf("%w: knotted addition needs equal degrees, got %v and %v",
				ErrIncompatibleOperands, a.degrees, b.degrees)
		}
		for axis := range a.knots {
			if !knotsEqual(a.knots[axis], b.knots[axis]) {
				return nil, fmt.Errorf("%w: knotted addition needs equal knot vectors on axis %d",
					ErrIncompatibleOperands, axis)
			}
		}
	}

	rational := left.kind.Rational() || right.kind.Rational()
	var weights []float64
	if rational {
		lw := unitOrWeights(left)
		rw := unitOrWeights(right)
		for i := range lw {
			if math.Abs(lw[i]-rw[i]) > knotEpsilon {
				return nil, fmt.Errorf("%w: rational addition needs matching weights", ErrIncompatibleOperands)
			}
		}
		weights = lw
	}

	points := make([][]float64, len(left.controlPoints))
	for i := range points {
		row := make([]float64, left.dim)
		for j := range row {
			row[j] = left.controlPoints[i][j] + right.controlPoints[i][j]
		}
		points[i] = row
	}

	switch {
	case !left.kind.HasKnotVectors() && !rational:
		return NewBezier(left.degrees, points)
	case !left.kind.HasKnotVectors():
		return NewRationalBezier(left.degrees, points, weights)
	case !rational:
		return NewBSpline(left.degrees, left.knots, points)
	default:
		return NewNURBS(left.degrees, left.knots, points, weights)
	}
}

// elevatedTo returns a copy of s elevated to the target degrees.
func elevatedTo(s *Spline, target []int) (*Spline, error) {
	out := s.Copy()
	var axes []int
	for axis, p := range out.degrees {
		for k := p; k < target[axis]; k++ {
			axes = append(axes, axis)
		}
	}
	if err := out.ElevateDegrees(axes...); err != nil {
		return nil, err
	}
	return out, nil
}

func unitOrWeights(s *Spline) []float64 {
	if s.weights != nil {
		return slices.Clone(s.weights)
	}
	w := make([]float64, len(s.controlPoints))
	for i := range w {
		w[i] = 1
	}
	return w
}

func knotsEqual(a, b KnotVector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > knotEpsilon {
			return false
		}
	}
	return true
}

// Multiply returns the pointwise product A(u) * B(u) as a new Bezier-kind
// spline of per-axis degree deg(A)+deg(B). One operand may be scalar
// (dim 1), scaling the other componentwise; otherwise physical dimensions
// must match for an elementwise product.
//
// Control points come from the discrete convolution of the Bernstein
// coefficients,
//
//	(A*B)_k = Σ_{i+j=k} Π_a C(p_a,i_a) C(q_a,j_a) / C(p_a+q_a,k_a) · A_i ∘ B_j,
//
// applied to homogeneous coordinates for rational operands (numerators
// and denominators convolve independently).
func (a *Spline) Multiply(b *Spline) (*Spline, error) {
	if err := a.checkBezierKind("multiplication"); err != nil {
		return nil, err
	}
	if err := b.checkBezierKind("multiplication"); err != nil {
		return nil, err
	}
	if len(a.degrees) != len(b.degrees) {
		return nil, fmt.Errorf("%w: multiplication across para_dim %d and %d",
			ErrIncompatibleOperands, len(a.degrees), len(b.degrees))
	}
	if a.dim != b.dim && a.dim != 1 && b.dim != 1 {
		return nil, fmt.Errorf("%w: multiplication across dim %d and %d",
			ErrIncompatibleOperands, a.dim, b.dim)
	}

	paraDim := len(a.degrees)
	outDegrees := make([]int, paraDim)
	for axis := range outDegrees {
		outDegrees[axis] = a.degrees[axis] + b.degrees[axis]
	}
	aSizes, bSizes := a.gridSizes(), b.gridSizes()
	outSizes := make([]int, paraDim)
	coefA := make([][]float64, paraDim)
	coefB := make([][]float64, paraDim)
	coefOut := make([][]float64, paraDim)
	for axis := range outSizes {
		outSizes[axis] = outDegrees[axis] + 1
		coefA[axis] = binomialRow(a.degrees[axis])
		coefB[axis] = binomialRow(b.degrees[axis])
		coefOut[axis] = binomialRow(outDegrees[axis])
	}
	outStrides := gridStrides(outSizes)

	rational := a.kind.Rational() || b.kind.Rational()
	outDim := max(a.dim, b.dim)
	width := outDim
	var aGrid, bGrid [][]float64
	if rational {
		// Homogeneous rows (w*p..., w); the product's denominator is the
		// convolution of the operand denominators.
		aGrid, bGrid = a.homogeneous(), b.homogeneous()
		width = outDim + 1
	} else {
		aGrid, bGrid = a.controlPoints, b.controlPoints
	}

	out := make([][]float64, gridSize(outSizes))
	for i := range out {
		out[i] = make([]float64, width)
	}

	ia := make([]int, paraDim)
	for ka := 0; ; ka++ {
		ib := make([]int, paraDim)
		for kb := 0; ; kb++ {
			factor := 1.0
			off := 0
			for axis := range ia {
				k := ia[axis] + ib[axis]
				factor *= coefA[axis][ia[axis]] * coefB[axis][ib[axis]] / coefOut[axis][k]
				off += k * outStrides[axis]
			}
			accumulateProduct(out[off], aGrid[ka], bGrid[kb], a.dim, b.dim, factor, rational)
			if !nextIndex(ib, bSizes) {
				break
			}
		}
		if !nextIndex(ia, aSizes) {
			break
		}
	}

	if !rational {
		return NewBezier(outDegrees, out)
	}
	points := make([][]float64, len(out))
	weights := make([]float64, len(out))
	for i, h := range out {
		weights[i] = h[outDim]
		row := make([]float64, outDim)
		for j := range row {
			row[j] = h[j] / weights[i]
		}
		points[i] = row
	}
	return NewRationalBezier(outDegrees, points, weights)
}

// accumulateProduct adds factor * (x ∘ y) to dst, broadcasting a scalar
// operand over the other. In homogeneous form the trailing weight entries
// multiply as scalars.
func accumulateProduct(dst, x, y []float64, dimX, dimY int, factor float64, homogeneous bool) {
	outDim := max(dimX, dimY)
	for j := 0; j < outDim; j++ {
		xi, yi := min(j, dimX-1), min(j, dimY-1)
		dst[j] += factor * x[xi] * y[yi]
	}
	if homogeneous {
		dst[outDim] += factor * x[dimX] * y[dimY]
	}
}

// ComposedDegrees returns the per-axis degrees of Compose(a, b) without
// building it: along inner axis e the result degree is
// deg_b[e] * Σ_a deg_a[a]. The result control point count is the product
// of (degree+1) over these axes, which bounds the memory Compose commits
// to before any arithmetic runs.
func (a *Spline) ComposedDegrees(b *Spline) ([]int, error) {
	if err := a.checkBezierKind("composition"); err != nil {
		return nil, err
	}
	if err := b.checkBezierKind("composition"); err != nil {
		return nil, err
	}
	if b.dim != len(a.degrees) {
		return nil, fmt.Errorf("%w: inner dim %d does not match outer para_dim %d",
			ErrIncompatibleOperands, b.dim, len(a.degrees))
	}
	total := 0
	for _, p := range a.degrees {
		total += p
	}
	out := make([]int, len(b.degrees))
	for e, q := range b.degrees {
		out[e] = q * total
	}
	return out, nil
}

// bernPoly is a scalar polynomial in tensor-product Bernstein form, used
// as the working representation during composition.
type bernPoly struct {
	degrees []int
	coeffs  []float64
}

func bernConst(degrees []int, c float64) bernPoly {
	sizes := make([]int, len(degrees))
	for i, p := range degrees {
		sizes[i] = p + 1
	}
	coeffs := make([]float64, gridSize(sizes))
	for i := range coeffs {
		coeffs[i] = c
	}
	return bernPoly{degrees: slices.Clone(degrees), coeffs: coeffs}
}

// bernMul multiplies two scalar Bernstein polynomials by coefficient
// convolution (the scalar core of [Spline.Multiply]).
func bernMul(a, b bernPoly) bernPoly {
	paraDim := len(a.degrees)
	outDeg := make([]int, paraDim)
	aSizes := make([]int, paraDim)
	bSizes := make([]int, paraDim)
	outSizes := make([]int, paraDim)
	coefA := make([][]float64, paraDim)
	coefB := make([][]float64, paraDim)
	coefOut := make([][]float64, paraDim)
	for axis := range outDeg {
		outDeg[axis] = a.degrees[axis] + b.degrees[axis]
		aSizes[axis] = a.degrees[axis] + 1
		bSizes[axis] = b.degrees[axis] + 1
		outSizes[axis] = outDeg[axis] + 1
		coefA[axis] = binomialRow(a.degrees[axis])
		coefB[axis] = binomialRow(b.degrees[axis])
		coefOut[axis] = binomialRow(outDeg[axis])
	}
	outStrides := gridStrides(outSizes)
	out := make([]float64, gridSize(outSizes))

	ia := make([]int, paraDim)
	for ka := 0; ; ka++ {
		ib := make([]int, paraDim)
		for kb := 0; ; kb++ {
			factor := 1.0
			off := 0
			for axis := range ia {
				k := ia[axis] + ib[axis]
				factor *= coefA[axis][ia[axis]] * coefB[axis][ib[axis]] / coefOut[axis][k]
				off += k * outStrides[axis]
			}
			out[off] += factor * a.coeffs[ka] * b.coeffs[kb]
			if !nextIndex(ib, bSizes) {
				break
			}
		}
		if !nextIndex(ia, aSizes) {
			break
		}
	}
	return bernPoly{degrees: outDeg, coeffs: out}
}

// Compose substitutes the inner spline into the outer one, returning a
// new Bezier-kind spline C with C(t) = A(B(t)). Requires
// b.Dim() == a.ParaDim(), and the inner control points must lie inside
// the unit cube so that (by the convex hull property) the inner image
// stays inside the outer parametric domain.
//
// The substitution runs by progressive tensor contraction: per outer axis
// a, power tables of the inner coordinate polynomial N_a and its
// complement are built once by Bernstein coefficient convolution; each
// outer control point then contributes through a product of table
// entries, all of which share the fixed output degree q_e * Σ_a p_a
// (see [Spline.ComposedDegrees]). Intermediate degrees never exceed that
// bound, avoiding the blow-up of naive symbolic substitution. Rational
// operands work in homogeneous form; any rational operand makes the
// result a RationalBezier whose weights are the composed denominator
// coefficients.
func (a *Spline) Compose(b *Spline) (*Spline, error) {
	outDegrees, err := a.ComposedDegrees(b)
	if err != nil {
		return nil, err
	}
	for i, p := range b.controlPoints {
		for _, c := range p {
			if c < -knotEpsilon || c > 1+knotEpsilon {
				return nil, fmt.Errorf("%w: inner control point %d coordinate %g outside [0, 1]",
					ErrOutOfDomain, i, c)
			}
		}
	}

	outerParaDim := len(a.degrees)
	innerWeights := unitOrWeights(b)

	// Inner coordinate numerators N_a = Σ_j B_j(t) w_j b_j[a] and their
	// complements W - N_a, as Bernstein coefficient grids. For a
	// non-rational inner spline W is identically 1.
	innerSizes := b.gridSizes()
	numer := make([]bernPoly, outerParaDim)
	compl := make([]bernPoly, outerParaDim)
	for ax := 0; ax < outerParaDim; ax++ {
		n := bernPoly{degrees: slices.Clone(b.degrees), coeffs: make([]float64, gridSize(innerSizes))}
		v := bernPoly{degrees: slices.Clone(b.degrees), coeffs: make([]float64, gridSize(innerSizes))}
		for j := range b.controlPoints {
			n.coeffs[j] = innerWeights[j] * b.controlPoints[j][ax]
			v.coeffs[j] = innerWeights[j] * (1 - b.controlPoints[j][ax])
		}
		numer[ax] = n
		compl[ax] = v
	}

	// Power tables: powN[ax][i] = N_ax^i, powC[ax][i] = (W-N_ax)^i.
	powN := make([][]bernPoly, outerParaDim)
	powC := make([][]bernPoly, outerParaDim)
	zeroDeg := make([]int, len(b.degrees))
	for ax := 0; ax < outerParaDim; ax++ {
		p := a.degrees[ax]
		powN[ax] = make([]bernPoly, p+1)
		powC[ax] = make([]bernPoly, p+1)
		powN[ax][0] = bernConst(zeroDeg, 1)
		powC[ax][0] = bernConst(zeroDeg, 1)
		for i := 1; i <= p; i++ {
			powN[ax][i] = bernMul(powN[ax][i-1], numer[ax])
			powC[ax][i] = bernMul(powC[ax][i-1], compl[ax])
		}
	}

	outSizes := make([]int, len(outDegrees))
	for i, p := range outDegrees {
		outSizes[i] = p + 1
	}
	outLen := gridSize(outSizes)
	num := make([][]float64, a.dim)
	for j := range num {
		num[j] = make([]float64, outLen)
	}
	den := make([]float64, outLen)

	outerWeights := unitOrWeights(a)
	binom := make([][]float64, outerParaDim)
	for ax := range binom {
		binom[ax] = binomialRow(a.degrees[ax])
	}
	outerSizes := a.gridSizes()
	index := make([]int, outerParaDim)
	for flat := 0; ; flat++ {
		// T_i = Π_ax C(p_ax, i_ax) N_ax^{i_ax} (W-N_ax)^{p_ax-i_ax}; every
		// T_i has the full output degree, so accumulation is aligned.
		scale := 1.0
		term := bernConst(zeroDeg, 1)
		for ax, i := range index {
			scale *= binom[ax][i]
			term = bernMul(term, powN[ax][i])
			term = bernMul(term, powC[ax][a.degrees[ax]-i])
		}
		w := outerWeights[flat]
		cp := a.controlPoints[flat]
		for k, c := range term.coeffs {
			den[k] += scale * w * c
			for j := 0; j < a.dim; j++ {
				num[j][k] += scale * w * cp[j] * c
			}
		}
		if !nextIndex(index, outerSizes) {
			break
		}
	}

	rational := a.kind.Rational() || b.kind.Rational()
	points := make([][]float64, outLen)
	for k := range points {
		row := make([]float64, a.dim)
		for j := range row {
			if rational {
				row[j] = num[j][k] / den[k]
			} else {
				row[j] = num[j][k]
			}
		}
		points[k] = row
	}
	if !rational {
		return NewBezier(outDegrees, points)
	}
	return NewRationalBezier(outDegrees, points, den)
}
