// Package geom implements the geometric primitives and predicates used by the
// mesher: planes, edges, projection, containment and inter-edge angles.
// Points and vectors are gonum r3.Vec values.
package geom

import (
	"errors"
	"math"

	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// epsilon scales size-relative tolerances.
	epsilon = 1e-12
	// containTol is the relative slack given to boundary ties in PointInPolygon.
	containTol = 1e-9
)

var (
	ErrDegeneratePlane = errors.New("degenerate plane: points are collinear or coincident")
	ErrDegenerateEdge  = errors.New("degenerate edge: zero length")
)

// Plane is the implicit surface A*x + B*y + C*z + D = 0.
type Plane struct {
	A, B, C, D float64
}

// PlaneFromPoints fits the plane through three points. The normal is the
// cross product (p1-p0)x(p2-p0) so counter-clockwise points see it pointing
// towards the viewer.
func PlaneFromPoints(p0, p1, p2 r3.Vec) (Plane, error) {
	e1 := r3.Sub(p1, p0)
	e2 := r3.Sub(p2, p0)
	n := r3.Cross(e1, e2)
	scale := r3.Norm(e1) * r3.Norm(e2)
	if scale == 0 || r3.Norm(n) <= epsilon*scale {
		return Plane{}, ErrDegeneratePlane
	}
	return Plane{A: n.X, B: n.Y, C: n.Z, D: -r3.Dot(n, p0)}, nil
}

// Normal returns the (non normalized) plane normal (A,B,C).
func (pl Plane) Normal() r3.Vec { return r3.Vec{X: pl.A, Y: pl.B, Z: pl.C} }

// UnitNormal returns the normalized plane normal.
// The zero plane returns the zero vector.
func (pl Plane) UnitNormal() r3.Vec { return d3.Unit(pl.Normal()) }

// Eval returns A*x + B*y + C*z + D at p. It is zero for points on the plane.
func (pl Plane) Eval(p r3.Vec) float64 {
	return pl.A*p.X + pl.B*p.Y + pl.C*p.Z + pl.D
}

// SignedDistance returns the distance from p to the plane, positive on the
// side the normal points to.
func (pl Plane) SignedDistance(p r3.Vec) float64 {
	n := r3.Norm(pl.Normal())
	if n == 0 {
		return math.NaN()
	}
	return pl.Eval(p) / n
}

// Distance returns |A*x+B*y+C*z+D| / ||(A,B,C)||.
func Distance(p r3.Vec, pl Plane) float64 {
	return math.Abs(pl.SignedDistance(p))
}

// Project returns the orthogonal projection of p onto pl.
func Project(p r3.Vec, pl Plane) r3.Vec {
	d := pl.SignedDistance(p)
	return r3.Sub(p, r3.Scale(d, pl.UnitNormal()))
}
