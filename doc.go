// Package splinepy provides tensor-product parametric splines: Bézier,
// rational Bézier, B-spline, and NURBS curves, surfaces, volumes, and
// higher-dimensional patches, in parametric and physical spaces of
// arbitrary dimension.
//
// # Splinepy
//
// This package is a manual, idiomatic Go port of the core of the
// [splinepy] Python/C++ library. It covers the computational kernel:
// basis evaluation, differentiation, refinement, Bézier algebra, physical
// differential operators, and proximity search. Input/output formats and
// visualization layers of the original are out of scope.
//
// # The Spline type
//
// All four representations share the single [Spline] type, tagged by
// [Kind]. A Spline maps a box-shaped parametric domain with ParaDim axes
// into a physical space of dimension Dim; control points live on a
// tensor-product grid flattened in row-major order (axis 0 slowest).
// Rational kinds ([RationalBezier], [NURBS]) carry a positive weight per
// control point, knotted kinds ([BSpline], [NURBS]) a clamped knot vector
// per axis. Operations branch on the tag where the representations
// differ; there is no type hierarchy. Lossless re-expression between the
// representations is provided by [Spline.ToBezier], [Spline.ToBSpline],
// [Spline.ToRationalBezier], and [Spline.ToNURBS].
//
// # Features
//
// We provide the following notable features:
//
//   - Batch evaluation and basis/support queries (see [Spline.Evaluate]
//     and [Spline.BasisAndSupport])
//   - Arbitrary-order mixed partial derivatives, including rational maps
//     (see [Spline.Derivative] and [Spline.Jacobian])
//   - Geometry-preserving knot insertion and degree elevation, and their
//     tolerance-gated inverses (see [Spline.InsertKnots],
//     [Spline.ElevateDegrees], [Spline.RemoveKnots],
//     [Spline.ReduceDegrees])
//   - Bézier algebra: pointwise sums and products and functional
//     composition (see [Spline.Add], [Spline.Multiply], [Spline.Compose])
//   - Physical-space gradients, Hessians, divergences, and Laplacians of
//     fields over a geometry (see [Spline.Mapper])
//   - Nearest-point search on the spline image (see [Spline.Proximities])
//   - Sampling, Bézier extraction, and splitting (see [Spline.Sample],
//     [Spline.ExtractBezierPatches], [Spline.Split])
//
// # Batches and parallelism
//
// Evaluation-type operations take batches of queries plus an explicit
// nthreads argument bounding the goroutines that fan out over the batch;
// values <= 1 run serially. Results are independent of nthreads. Reads on
// one Spline are safe concurrently; the refinement operations mutate the
// receiver and must be serialized by the caller, with [Spline.Copy]
// providing independent instances.
//
// # Errors
//
// Every failure wraps one of the package sentinels ([ErrInvalidConstruction],
// [ErrOutOfDomain], [ErrIncompatibleOperands], [ErrDegenerateGeometry],
// [ErrToleranceNotMet], [ErrConvergence]) so callers can branch with
// errors.Is. Tolerance-gated batch operations (knot removal, degree
// reduction, proximity) additionally report success per item and keep
// their partial results.
//
// # Literature
//
// This package makes use of the following ideas:
//   - [The NURBS Book] by Piegl and Tiller (knot span search, Cox–de Boor
//     recursion, derivative bases, knot insertion and removal)
//   - [Curves and Surfaces for CAGD] by Gerald Farin (Bézier degree
//     elevation and reduction, Bernstein polynomial arithmetic)
//   - [splinepy]
//
// [The NURBS Book]: https://doi.org/10.1007/978-3-642-59223-2
// [Curves and Surfaces for CAGD]: https://www.sciencedirect.com/book/9781558607378/curves-and-surfaces-for-cagd
// [splinepy]: https://github.com/tataratat/splinepy
package splinepy
