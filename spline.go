package splinepy

import (
	"fmt"
	"slices"
)

// Kind is the representation tag of a [Spline]. Operations branch on the
// tag where representations differ (explicit knot vectors, rational
// weighting); there is no type hierarchy.
type Kind uint8

const (
	Bezier Kind = iota
	RationalBezier
	BSpline
	NURBS
)

func (k Kind) String() string {
	switch k {
	case Bezier:
		return "Bezier"
	case RationalBezier:
		return "RationalBezier"
	case BSpline:
		return "BSpline"
	case NURBS:
		return "NURBS"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Rational reports whether the representation carries weights.
func (k Kind) Rational() bool {
	return k == RationalBezier || k == NURBS
}

// HasKnotVectors reports whether the representation carries explicit knot
// vectors.
func (k Kind) HasKnotVectors() bool {
	return k == BSpline || k == NURBS
}

// A Spline is a tensor-product parametric spline: a Bezier, rational
// Bezier, B-spline or NURBS curve, surface, volume or higher-dimensional
// patch, mapping a paraDim-dimensional parametric domain into
// dim-dimensional physical space.
//
// Control points are stored as a flat list of dim-vectors over the
// tensor-product grid in row-major order: axis 0 varies slowest, the last
// axis fastest.
//
// A Spline is safe for concurrent read-only use. The refinement operations
// (InsertKnots, RemoveKnots, ElevateDegrees, ReduceDegrees) mutate the
// receiver; callers that need the original must Copy first, and concurrent
// mutation of one instance must be serialized externally.
type Spline struct {
	kind          Kind
	dim           int
	degrees       []int
	knots         []KnotVector // nil for Bezier kinds
	controlPoints [][]float64
	weights       []float64 // nil for non-rational kinds
}

// NewBezier constructs a Bezier spline from per-axis degrees and a
// row-major control point grid with degree+1 points per axis.
func NewBezier(degrees []int, controlPoints [][]float64) (*Spline, error) {
	s := &Spline{
		kind:          Bezier,
		degrees:       slices.Clone(degrees),
		controlPoints: clonePoints(controlPoints),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRationalBezier constructs a rational Bezier spline. weights holds one
// strictly positive value per control point.
func NewRationalBezier(degrees []int, controlPoints [][]float64, weights []float64) (*Spline, error) {
	s := &Spline{
		kind:          RationalBezier,
		degrees:       slices.Clone(degrees),
		controlPoints: clonePoints(controlPoints),
		weights:       slices.Clone(weights),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewBSpline constructs a B-spline from per-axis degrees, per-axis clamped
// knot vectors and a row-major control point grid.
func NewBSpline(degrees []int, knots []KnotVector, controlPoints [][]float64) (*Spline, error) {
	s := &Spline{
		kind:          BSpline,
		degrees:       slices.Clone(degrees),
		knots:         cloneKnots(knots),
		controlPoints: clonePoints(controlPoints),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewNURBS constructs a NURBS from per-axis degrees, per-axis clamped knot
// vectors, a row-major control point grid and strictly positive weights.
func NewNURBS(degrees []int, knots []KnotVector, controlPoints [][]float64, weights []float64) (*Spline, error) {
	s := &Spline{
		kind:          NURBS,
		degrees:       slices.Clone(degrees),
		knots:         cloneKnots(knots),
		controlPoints: clonePoints(controlPoints),
		weights:       slices.Clone(weights),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Spline) validate() error {
	if len(s.degrees) == 0 {
		return fmt.Errorf("%w: need at least one parametric axis", ErrInvalidConstruction)
	}
	for axis, p := range s.degrees {
		if p < 0 {
			return fmt.Errorf("%w: negative degree %d on axis %d", ErrInvalidConstruction, p, axis)
		}
	}
	if len(s.controlPoints) == 0 {
		return fmt.Errorf("%w: no control points", ErrInvalidConstruction)
	}
	s.dim = len(s.controlPoints[0])
	if s.dim == 0 {
		return fmt.Errorf("%w: zero-dimensional control points", ErrInvalidConstruction)
	}
	for i, p := range s.controlPoints {
		if len(p) != s.dim {
			return fmt.Errorf("%w: control point %d has %d coordinates, want %d",
				ErrInvalidConstruction, i, len(p), s.dim)
		}
	}
	if s.kind.HasKnotVectors() {
		if len(s.knots) != len(s.degrees) {
			return fmt.Errorf("%w: %d knot vectors for %d parametric axes",
				ErrInvalidConstruction, len(s.knots), len(s.degrees))
		}
	} else if s.knots != nil {
		return fmt.Errorf("%w: %v splines carry no knot vectors", ErrInvalidConstruction, s.kind)
	}
	sizes := s.gridSizes()
	if want := gridSize(sizes); len(s.controlPoints) != want {
		return fmt.Errorf("%w: %d control points, want %d for grid %v",
			ErrInvalidConstruction, len(s.controlPoints), want, sizes)
	}
	if s.kind.HasKnotVectors() {
		for axis, kv := range s.knots {
			if err := kv.validate(s.degrees[axis], sizes[axis]); err != nil {
				return fmt.Errorf("axis %d: %w", axis, err)
			}
		}
	}
	if s.kind.Rational() {
		if len(s.weights) != len(s.controlPoints) {
			return fmt.Errorf("%w: %d weights for %d control points",
				ErrInvalidConstruction, len(s.weights), len(s.controlPoints))
		}
		for i, w := range s.weights {
			if w <= 0 {
				return fmt.Errorf("%w: weight %d is %g, must be strictly positive",
					ErrInvalidConstruction, i, w)
			}
		}
	} else if s.weights != nil {
		return fmt.Errorf("%w: %v splines carry no weights", ErrInvalidConstruction, s.kind)
	}
	return nil
}

// gridSizes returns the number of control points along each parametric
// axis. For knotted splines this is derived from the knot vector lengths;
// for Bezier kinds it is degree+1.
func (s *Spline) gridSizes() []int {
	sizes := make([]int, len(s.degrees))
	for axis, p := range s.degrees {
		if s.kind.HasKnotVectors() && axis < len(s.knots) && len(s.knots[axis]) > 0 {
			sizes[axis] = len(s.knots[axis]) - p - 1
		} else {
			sizes[axis] = p + 1
		}
	}
	return sizes
}

// Kind returns the representation tag.
func (s *Spline) Kind() Kind { return s.kind }

// ParaDim returns the number of parametric axes.
func (s *Spline) ParaDim() int { return len(s.degrees) }

// Dim returns the physical (embedding) space dimension.
func (s *Spline) Dim() int { return s.dim }

// Degrees returns a copy of the per-axis polynomial degrees.
func (s *Spline) Degrees() []int { return slices.Clone(s.degrees) }

// KnotVectors returns copies of the per-axis knot vectors, or nil for
// Bezier kinds.
func (s *Spline) KnotVectors() []KnotVector { return cloneKnots(s.knots) }

// ControlPoints returns a copy of the row-major control point grid.
func (s *Spline) ControlPoints() [][]float64 { return clonePoints(s.controlPoints) }

// Weights returns a copy of the per-control-point weights, or nil for
// non-rational kinds.
func (s *Spline) Weights() []float64 { return slices.Clone(s.weights) }

// NumControlPoints returns the total number of control points.
func (s *Spline) NumControlPoints() int { return len(s.controlPoints) }

// ParametricBounds returns the per-axis [min, max] parametric interval:
// [0, 1] for Bezier kinds, the clamped knot extremes otherwise.
func (s *Spline) ParametricBounds() [][2]float64 {
	bounds := make([][2]float64, len(s.degrees))
	for axis := range bounds {
		if s.kind.HasKnotVectors() {
			lo, hi := s.knots[axis].Bounds()
			bounds[axis] = [2]float64{lo, hi}
		} else {
			bounds[axis] = [2]float64{0, 1}
		}
	}
	return bounds
}

// Copy returns an independent deep copy.
func (s *Spline) Copy() *Spline {
	return &Spline{
		kind:          s.kind,
		dim:           s.dim,
		degrees:       slices.Clone(s.degrees),
		knots:         cloneKnots(s.knots),
		controlPoints: clonePoints(s.controlPoints),
		weights:       slices.Clone(s.weights),
	}
}

// Bounds returns the axis-aligned bounding box of the control polygon,
// which encloses the spline image by the convex hull property.
func (s *Spline) Bounds() (min, max []float64) {
	min = slices.Clone(s.controlPoints[0])
	max = slices.Clone(s.controlPoints[0])
	for _, p := range s.controlPoints[1:] {
		for j, c := range p {
			if c < min[j] {
				min[j] = c
			}
			if c > max[j] {
				max[j] = c
			}
		}
	}
	return min, max
}

func clonePoints(pts [][]float64) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[i] = slices.Clone(p)
	}
	return out
}

func cloneKnots(knots []KnotVector) []KnotVector {
	if knots == nil {
		return nil
	}
	out := make([]KnotVector, len(knots))
	for i, kv := range knots {
		out[i] = kv.Clone()
	}
	return out
}

// homogeneous returns the control points in homogeneous coordinates
// (w*p0, ..., w*p_{dim-1}, w). Non-rational splines get unit weights. The
// refinement engine operates on homogeneous coordinates so that convex
// combinations of control points preserve rational geometry.
func (s *Spline) homogeneous() [][]float64 {
	out := make([][]float64, len(s.controlPoints))
	for i, p := range s.controlPoints {
		h := make([]float64, s.dim+1)
		w := 1.0
		if s.weights != nil {
			w = s.weights[i]
		}
		for j, c := range p {
			h[j] = c * w
		}
		h[s.dim] = w
		out[i] = h
	}
	return out
}

// setHomogeneous replaces the control points (and weights, for rational
// kinds) from homogeneous coordinates.
func (s *Spline) setHomogeneous(h [][]float64) {
	s.controlPoints = make([][]float64, len(h))
	if s.kind.Rational() {
		s.weights = make([]float64, len(h))
	}
	for i, hp := range h {
		w := hp[s.dim]
		p := make([]float64, s.dim)
		for j := range p {
			p[j] = hp[j] / w
		}
		s.controlPoints[i] = p
		if s.kind.Rational() {
			s.weights[i] = w
		}
	}
}
