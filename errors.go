package splinepy

import "errors"

// Error taxonomy. All failures returned by this package wrap one of these
// sentinels, so callers can branch with [errors.Is] regardless of the
// detail message.
var (
	// ErrInvalidConstruction reports an invariant violation at construction
	// time: mismatched lengths, non-monotonic knots, a non-positive weight.
	ErrInvalidConstruction = errors.New("splinepy: invalid construction")

	// ErrOutOfDomain reports a parametric query outside the spline's
	// parametric bounds.
	ErrOutOfDomain = errors.New("splinepy: query outside parametric domain")

	// ErrIncompatibleOperands reports an algebraic operation across
	// splines with mismatched parametric or physical dimensions, or a
	// representation that does not support the operation.
	ErrIncompatibleOperands = errors.New("splinepy: incompatible operands")

	// ErrDegenerateGeometry reports a singular or near-singular Jacobian
	// encountered while mapping parametric derivatives to physical space.
	ErrDegenerateGeometry = errors.New("splinepy: degenerate geometry")

	// ErrToleranceNotMet reports that knot removal or degree reduction
	// could not preserve the geometry within the requested tolerance.
	// Batch operations report it per item; partial success is not an
	// error.
	ErrToleranceNotMet = errors.New("splinepy: tolerance not met")

	// ErrConvergence reports that a proximity search returned a
	// best-effort result without reaching the requested tolerance.
	ErrConvergence = errors.New("splinepy: proximity search did not converge")
)
