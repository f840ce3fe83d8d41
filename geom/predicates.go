package geom

import (
	"math"

	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Edge is an ordered pair of endpoints.
type Edge struct {
	P1, P2 r3.Vec
}

// Dir returns the edge displacement P2-P1.
func (e Edge) Dir() r3.Vec { return r3.Sub(e.P2, e.P1) }

// Length returns the distance between the edge endpoints.
func (e Edge) Length() float64 { return r3.Norm(e.Dir()) }

// EdgeAngle returns the angle in [0, pi] between the directions of a and b.
// Zero length edges have no direction and yield ErrDegenerateEdge.
func EdgeAngle(a, b Edge) (float64, error) {
	da, db := a.Dir(), b.Dir()
	if r3.Norm2(da) == 0 || r3.Norm2(db) == 0 {
		return math.NaN(), ErrDegenerateEdge
	}
	dot := r3.Dot(d3.Unit(da), d3.Unit(db))
	dot = math.Max(-1, math.Min(1, dot))
	return math.Acos(dot), nil
}

// Centroid returns the arithmetic mean of pts.
func Centroid(pts ...r3.Vec) r3.Vec {
	var c r3.Vec
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(pts)), c)
}

// NewellNormal returns the area weighted normal of a closed polygon.
// Its length is twice the area of the polygon projected on the plane
// perpendicular to it and its sign follows the winding.
func NewellNormal(poly []r3.Vec) r3.Vec {
	var n r3.Vec
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// PointInPolygon reports whether p, once projected onto pl, lies inside the
// polygon whose ordered vertices are poly. Points on the boundary are inside.
// Every edge contributes one half-plane test so the polygon is expected to be
// convex; for three or four vertices this is the triangle/quad test.
func PointInPolygon(p r3.Vec, poly []r3.Vec, pl Plane) bool {
	if len(poly) < 3 {
		return false
	}
	n := pl.UnitNormal()
	if r3.Norm2(n) == 0 {
		return false
	}
	if r3.Dot(NewellNormal(poly), n) < 0 {
		// Polygon winds clockwise seen from the normal.
		n = r3.Scale(-1, n)
	}
	q := Project(p, pl)
	tol := containTol * math.Max(1, d3.Set(poly).Bounds().Diagonal())
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		inward := d3.Unit(r3.Cross(n, r3.Sub(b, a)))
		if r3.Norm2(inward) == 0 {
			continue // repeated vertex.
		}
		if r3.Dot(inward, r3.Sub(q, a)) < -tol {
			return false
		}
	}
	return true
}
