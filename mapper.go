package splinepy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// A Mapper turns parametric derivatives of a field spline into
// physical-space differential operators by pushing them through the
// geometry spline's Jacobian via the chain rule. Field and geometry share
// one parametric domain; the geometry must map it into a physical space
// of the same dimension so its Jacobian is square and solvable.
type Mapper struct {
	field    *Spline
	geometry *Spline
}

// Mapper pairs the receiver, acting as the field, with a geometry spline.
// This is the only coupling point between the two: all physical-space
// operators go through the returned Mapper.
func (s *Spline) Mapper(geometry *Spline) (*Mapper, error) {
	if geometry.ParaDim() != s.ParaDim() {
		return nil, fmt.Errorf("%w: field para_dim %d, geometry para_dim %d",
			ErrIncompatibleOperands, s.ParaDim(), geometry.ParaDim())
	}
	if geometry.Dim() != geometry.ParaDim() {
		return nil, fmt.Errorf("%w: geometry maps %d parametric axes into dim %d, Jacobian not square",
			ErrIncompatibleOperands, geometry.ParaDim(), geometry.Dim())
	}
	fb, gb := s.ParametricBounds(), geometry.ParametricBounds()
	for axis := range fb {
		if math.Abs(fb[axis][0]-gb[axis][0]) > knotEpsilon || math.Abs(fb[axis][1]-gb[axis][1]) > knotEpsilon {
			return nil, fmt.Errorf("%w: field and geometry disagree on parametric bounds of axis %d",
				ErrIncompatibleOperands, axis)
		}
	}
	return &Mapper{field: s, geometry: geometry}, nil
}

// MapperRequest selects which physical operators a Mapper call computes;
// unrequested results stay nil in the output.
type MapperRequest struct {
	Values     bool // basis values / field values alongside the derivatives
	Gradient   bool
	Divergence bool // FieldDerivatives only; needs field dim == geometry dim
	Hessian    bool
	Laplacian  bool
}

// BasisDerivatives holds physical-space derivatives of the non-rational
// basis functions with support at each query. Indexing is
// [query][local basis index] with Support giving the matching control
// point indices.
type BasisDerivatives struct {
	Support   [][]int
	Values    [][]float64
	Gradient  [][][]float64   // [query][basis][dim]
	Hessian   [][][][]float64 // [query][basis][dim][dim]
	Laplacian [][]float64     // [query][basis]
}

// FieldDerivatives holds physical-space derivatives of the field values.
// Indexing is [query][field component].
type FieldDerivatives struct {
	Values     [][]float64
	Gradient   [][][]float64   // [query][component][dim]
	Divergence []float64       // [query]
	Hessian    [][][][]float64 // [query][component][dim][dim]
	Laplacian  [][]float64     // [query][component]
}

// queryFrame holds the per-query geometry factorization shared by every
// pushed-forward quantity.
type queryFrame struct {
	lu     mat.LU
	second [][][]float64 // [a][b] -> dim-vector d²x/du_a du_b, nil unless needed
}

func (m *Mapper) frameAt(q []float64, needSecond bool) (*queryFrame, error) {
	d := m.geometry.ParaDim()
	jac := mat.NewDense(d, d, nil)
	orders := make([]int, d)
	for a := 0; a < d; a++ {
		orders[a] = 1
		col := m.geometry.derivativeAt(q, orders)
		orders[a] = 0
		for r := 0; r < d; r++ {
			jac.Set(r, a, col[r])
		}
	}
	f := &queryFrame{}
	f.lu.Factorize(jac)
	if f.lu.Cond() > 1/condEpsilon {
		return nil, fmt.Errorf("%w: geometry Jacobian is singular at %v", ErrDegenerateGeometry, q)
	}
	if needSecond {
		f.second = make([][][]float64, d)
		for a := range f.second {
			f.second[a] = make([][]float64, d)
			for b := a; b < d; b++ {
				orders[a]++
				orders[b]++
				g := m.geometry.derivativeAt(q, orders)
				orders[a] = 0
				orders[b] = 0
				f.second[a][b] = g
			}
			for b := 0; b < a; b++ {
				f.second[a][b] = f.second[b][a]
			}
		}
	}
	return f, nil
}

const condEpsilon = 1e-13

// pushGradient solves J^T g_phys = g_para.
func (f *queryFrame) pushGradient(gPara []float64) ([]float64, error) {
	d := len(gPara)
	var dst mat.VecDense
	if err := f.lu.SolveVecTo(&dst, true, mat.NewVecDense(d, gPara)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	return dst.RawVector().Data, nil
}

// pushHessian computes J^{-T} (H_para - C) J^{-1} with the curvature
// correction C_ab = Σ_m d²x_m/du_a du_b · g_phys[m].
func (f *queryFrame) pushHessian(hPara [][]float64, gPhys []float64) ([][]float64, error) {
	d := len(hPara)
	rhs := mat.NewDense(d, d, nil)
	for a := 0; a < d; a++ {
		for b := 0; b < d; b++ {
			c := 0.0
			for mIdx, gm := range gPhys {
				c += f.second[a][b][mIdx] * gm
			}
			rhs.Set(a, b, hPara[a][b]-c)
		}
	}
	// X = J^{-T} rhs, then H = X J^{-1} via H^T = J^{-T} X^T.
	var x, h mat.Dense
	if err := f.lu.SolveTo(&x, true, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	if err := f.lu.SolveTo(&h, true, x.T()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	out := make([][]float64, d)
	for a := range out {
		row := make([]float64, d)
		for b := range row {
			row[b] = h.At(b, a)
		}
		out[a] = row
	}
	return out, nil
}

func trace(h [][]float64) float64 {
	var t float64
	for i := range h {
		t += h[i][i]
	}
	return t
}

// BasisFunctionDerivatives computes the requested physical-space
// operators for every basis function with support at each query.
// Laplacians are traces of the physical Hessians, so requesting only the
// Laplacian still computes Hessians internally but returns just the
// traces.
func (m *Mapper) BasisFunctionDerivatives(queries [][]float64, req MapperRequest, nthreads int) (*BasisDerivatives, error) {
	if err := m.field.checkQueries(queries); err != nil {
		return nil, err
	}
	needHessian := req.Hessian || req.Laplacian
	needGradient := req.Gradient || needHessian
	out := &BasisDerivatives{Support: make([][]int, len(queries))}
	if req.Values {
		out.Values = make([][]float64, len(queries))
	}
	if req.Gradient {
		out.Gradient = make([][][]float64, len(queries))
	}
	if req.Hessian {
		out.Hessian = make([][][][]float64, len(queries))
	}
	if req.Laplacian {
		out.Laplacian = make([][]float64, len(queries))
	}

	errs := make([]error, len(queries))
	parallelFor(len(queries), nthreads, func(qi int) {
		errs[qi] = m.basisDerivativesAt(queries[qi], qi, req, needGradient, needHessian, out)
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Mapper) basisDerivativesAt(q []float64, qi int, req MapperRequest, needGradient, needHessian bool, out *BasisDerivatives) error {
	d := m.field.ParaDim()
	frame, err := m.frameAt(q, needHessian)
	if err != nil {
		return err
	}

	values, support := m.field.basisAndSupportAt(q)
	out.Support[qi] = support
	if req.Values {
		out.Values[qi] = values
	}
	if !needGradient {
		return nil
	}
	nb := len(support)

	// Parametric first derivatives, [axis][basis].
	orders := make([]int, d)
	gradPara := make([][]float64, d)
	for a := 0; a < d; a++ {
		orders[a] = 1
		gradPara[a], _ = m.field.basisDerivativeAt(q, orders)
		orders[a] = 0
	}
	gPhys := make([][]float64, nb)
	for k := 0; k < nb; k++ {
		gp := make([]float64, d)
		for a := 0; a < d; a++ {
			gp[a] = gradPara[a][k]
		}
		if gPhys[k], err = frame.pushGradient(gp); err != nil {
			return err
		}
	}
	if req.Gradient {
		out.Gradient[qi] = gPhys
	}
	if !needHessian {
		return nil
	}

	// Parametric second derivatives, [a][b][basis].
	hessPara := make([][][]float64, d)
	for a := 0; a < d; a++ {
		hessPara[a] = make([][]float64, d)
		for b := a; b < d; b++ {
			orders[a]++
			orders[b]++
			hessPara[a][b], _ = m.field.basisDerivativeAt(q, orders)
			orders[a] = 0
			orders[b] = 0
		}
		for b := 0; b < a; b++ {
			hessPara[a][b] = hessPara[b][a]
		}
	}
	var hessians [][][]float64
	if req.Hessian {
		hessians = make([][][]float64, nb)
	}
	var laplacians []float64
	if req.Laplacian {
		laplacians = make([]float64, nb)
	}
	hk := make([][]float64, d)
	for k := 0; k < nb; k++ {
		for a := 0; a < d; a++ {
			row := make([]float64, d)
			for b := 0; b < d; b++ {
				row[b] = hessPara[a][b][k]
			}
			hk[a] = row
		}
		h, err := frame.pushHessian(hk, gPhys[k])
		if err != nil {
			return err
		}
		if req.Hessian {
			hessians[k] = h
		}
		if req.Laplacian {
			laplacians[k] = trace(h)
		}
	}
	if req.Hessian {
		out.Hessian[qi] = hessians
	}
	if req.Laplacian {
		out.Laplacian[qi] = laplacians
	}
	return nil
}

// FieldDerivatives computes the requested physical-space operators for
// the field values themselves (rational fields included, via the field's
// own derivative machinery). Divergence requires the field's physical
// dimension to equal the geometry's.
func (m *Mapper) FieldDerivatives(queries [][]float64, req MapperRequest, nthreads int) (*FieldDerivatives, error) {
	if err := m.field.checkQueries(queries); err != nil {
		return nil, err
	}
	if req.Divergence && m.field.Dim() != m.geometry.Dim() {
		return nil, fmt.Errorf("%w: divergence needs field dim %d == geometry dim %d",
			ErrIncompatibleOperands, m.field.Dim(), m.geometry.Dim())
	}
	needHessian := req.Hessian || req.Laplacian
	needGradient := req.Gradient || req.Divergence || needHessian
	out := &FieldDerivatives{}
	if req.Values {
		out.Values = make([][]float64, len(queries))
	}
	if req.Gradient {
		out.Gradient = make([][][]float64, len(queries))
	}
	if req.Divergence {
		out.Divergence = make([]float64, len(queries))
	}
	if req.Hessian {
		out.Hessian = make([][][][]float64, len(queries))
	}
	if req.Laplacian {
		out.Laplacian = make([][]float64, len(queries))
	}

	errs := make([]error, len(queries))
	parallelFor(len(queries), nthreads, func(qi int) {
		errs[qi] = m.fieldDerivativesAt(queries[qi], qi, req, needGradient, needHessian, out)
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Mapper) fieldDerivativesAt(q []float64, qi int, req MapperRequest, needGradient, needHessian bool, out *FieldDerivatives) error {
	d := m.field.ParaDim()
	fdim := m.field.Dim()
	frame, err := m.frameAt(q, needHessian)
	if err != nil {
		return err
	}
	if req.Values {
		out.Values[qi] = m.field.evaluateAt(q)
	}
	if !needGradient {
		return nil
	}

	orders := make([]int, d)
	// [axis] -> field derivative vector.
	dPara := make([][]float64, d)
	for a := 0; a < d; a++ {
		orders[a] = 1
		dPara[a] = m.field.derivativeAt(q, orders)
		orders[a] = 0
	}
	gPhys := make([][]float64, fdim)
	for i := 0; i < fdim; i++ {
		gp := make([]float64, d)
		for a := 0; a < d; a++ {
			gp[a] = dPara[a][i]
		}
		if gPhys[i], err = frame.pushGradient(gp); err != nil {
			return err
		}
	}
	if req.Gradient {
		out.Gradient[qi] = gPhys
	}
	if req.Divergence {
		var div float64
		for i := 0; i < fdim; i++ {
			div += gPhys[i][i]
		}
		out.Divergence[qi] = div
	}
	if !needHessian {
		return nil
	}

	hPara := make([][][]float64, d)
	for a := 0; a < d; a++ {
		hPara[a] = make([][]float64, d)
		for b := a; b < d; b++ {
			orders[a]++
			orders[b]++
			hPara[a][b] = m.field.derivativeAt(q, orders)
			orders[a] = 0
			orders[b] = 0
		}
		for b := 0; b < a; b++ {
			hPara[a][b] = hPara[b][a]
		}
	}
	var hessians [][][]float64
	if req.Hessian {
		hessians = make([][][]float64, fdim)
	}
	var laplacians []float64
	if req.Laplacian {
		laplacians = make([]float64, fdim)
	}
	hi := make([][]float64, d)
	for i := 0; i < fdim; i++ {
		for a := 0; a < d; a++ {
			row := make([]float64, d)
			for b := 0; b < d; b++ {
				row[b] = hPara[a][b][i]
			}
			hi[a] = row
		}
		h, err := frame.pushHessian(hi, gPhys[i])
		if err != nil {
			return err
		}
		if req.Hessian {
			hessians[i] = h
		}
		if req.Laplacian {
			laplacians[i] = trace(h)
		}
	}
	if req.Hessian {
		out.Hessian[qi] = hessians
	}
	if req.Laplacian {
		out.Laplacian[qi] = laplacians
	}
	return nil
}
