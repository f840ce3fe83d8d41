package geom_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/qmesh/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func randVec(rng *rand.Rand) r3.Vec {
	return r3.Vec{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10, Z: rng.Float64()*20 - 10}
}

func TestPlaneFromPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p0, p1, p2 := randVec(rng), randVec(rng), randVec(rng)
		pl, err := geom.PlaneFromPoints(p0, p1, p2)
		if err != nil {
			// random points are collinear with probability zero.
			t.Fatal(err)
		}
		scale := r3.Norm(pl.Normal()) * 20
		for _, p := range []r3.Vec{p0, p1, p2} {
			if got := pl.Eval(p); math.Abs(got) > tol*scale {
				t.Errorf("plane %+v evaluates to %g at %v", pl, got, p)
			}
		}
	}
}

func TestPlaneFromPointsDegenerate(t *testing.T) {
	for _, tc := range []struct {
		name       string
		p0, p1, p2 r3.Vec
	}{
		{"collinear", r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2}},
		{"coincident", r3.Vec{X: 1}, r3.Vec{X: 1}, r3.Vec{Y: 3}},
		{"all equal", r3.Vec{}, r3.Vec{}, r3.Vec{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := geom.PlaneFromPoints(tc.p0, tc.p1, tc.p2)
			if !errors.Is(err, geom.ErrDegeneratePlane) {
				t.Errorf("want ErrDegeneratePlane, got %v", err)
			}
		})
	}
}

func TestProjectIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		pl, err := geom.PlaneFromPoints(randVec(rng), randVec(rng), randVec(rng))
		if err != nil {
			t.Fatal(err)
		}
		p := randVec(rng)
		q := geom.Project(p, pl)
		if d := geom.Distance(q, pl); d > tol {
			t.Errorf("projected point is %g away from plane", d)
		}
		qq := geom.Project(q, pl)
		if r3.Norm(r3.Sub(q, qq)) > tol {
			t.Errorf("projection not idempotent: %v != %v", q, qq)
		}
		// The projection displacement is parallel to the normal.
		disp := r3.Sub(p, q)
		if r3.Norm(r3.Cross(disp, pl.UnitNormal())) > tol*10 {
			t.Errorf("projection is not orthogonal")
		}
	}
}

func TestDistance(t *testing.T) {
	pl := geom.Plane{A: 0, B: 0, C: 2, D: -4} // z = 2
	for _, tc := range []struct {
		p    r3.Vec
		want float64
	}{
		{r3.Vec{Z: 2}, 0},
		{r3.Vec{X: 5, Y: -1, Z: 5}, 3},
		{r3.Vec{Z: -1}, 3},
	} {
		if got := geom.Distance(tc.p, pl); math.Abs(got-tc.want) > tol {
			t.Errorf("Distance(%v) = %g, want %g", tc.p, got, tc.want)
		}
	}
}

func TestPointInPolygonUnitSquare(t *testing.T) {
	square := []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	pl, err := geom.PlaneFromPoints(square[0], square[1], square[2])
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name string
		p    r3.Vec
		want bool
	}{
		{"center", r3.Vec{X: 0.5, Y: 0.5}, true},
		{"vertex", r3.Vec{X: 1, Y: 1}, true},
		{"edge midpoint", r3.Vec{X: 0.5}, true},
		{"outside", r3.Vec{X: 1.5, Y: 0.5}, false},
		{"above center", r3.Vec{X: 0.5, Y: 0.5, Z: 3}, true},
		{"below outside", r3.Vec{X: -0.1, Y: 0.5, Z: -2}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := geom.PointInPolygon(tc.p, square, pl); got != tc.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
	// Clockwise winding gives the same answers.
	cw := []r3.Vec{square[3], square[2], square[1], square[0]}
	if !geom.PointInPolygon(r3.Vec{X: 0.5, Y: 0.5}, cw, pl) {
		t.Error("clockwise square should contain its center")
	}
	if geom.PointInPolygon(r3.Vec{X: 1.5, Y: 0.5}, cw, pl) {
		t.Error("clockwise square should not contain outside point")
	}
}

func TestPointInPolygonTriangleAndHexagon(t *testing.T) {
	tri := []r3.Vec{{X: 0, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}, {X: 0, Y: 2, Z: 1}}
	pl, _ := geom.PlaneFromPoints(tri[0], tri[1], tri[2])
	if !geom.PointInPolygon(r3.Vec{X: 0.5, Y: 0.5, Z: 1}, tri, pl) {
		t.Error("triangle should contain (0.5,0.5)")
	}
	if geom.PointInPolygon(r3.Vec{X: 1.5, Y: 1.5, Z: 1}, tri, pl) {
		t.Error("triangle should not contain (1.5,1.5)")
	}
	if !geom.PointInPolygon(r3.Vec{X: 1, Y: 1, Z: 1}, tri, pl) {
		t.Error("hypotenuse midpoint lies on the boundary")
	}
	hex := make([]r3.Vec, 6)
	for i := range hex {
		a := float64(i) * math.Pi / 3
		hex[i] = r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
	}
	pl, _ = geom.PlaneFromPoints(hex[0], hex[1], hex[2])
	if !geom.PointInPolygon(r3.Vec{X: 0.1, Y: -0.2}, hex, pl) {
		t.Error("hexagon should contain point near center")
	}
	if geom.PointInPolygon(r3.Vec{X: 0.95, Y: 0.5}, hex, pl) {
		t.Error("hexagon should not contain point past its edge")
	}
}

func TestEdgeAngle(t *testing.T) {
	x := geom.Edge{P2: r3.Vec{X: 1}}
	for _, tc := range []struct {
		name string
		b    geom.Edge
		want float64
	}{
		{"parallel", geom.Edge{P1: r3.Vec{Y: 1}, P2: r3.Vec{X: 3, Y: 1}}, 0},
		{"perpendicular", geom.Edge{P2: r3.Vec{Y: 2}}, math.Pi / 2},
		{"opposite", geom.Edge{P2: r3.Vec{X: -5}}, math.Pi},
		{"45 degrees", geom.Edge{P2: r3.Vec{X: 1, Z: 1}}, math.Pi / 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := geom.EdgeAngle(x, tc.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tc.want) > tol {
				t.Errorf("got %g, want %g", got, tc.want)
			}
		})
	}
	_, err := geom.EdgeAngle(x, geom.Edge{P1: r3.Vec{X: 1}, P2: r3.Vec{X: 1}})
	if !errors.Is(err, geom.ErrDegenerateEdge) {
		t.Errorf("want ErrDegenerateEdge, got %v", err)
	}
}

func TestEdgeAngleClamped(t *testing.T) {
	// Nearly parallel long edges would produce |dot| slightly above 1 without clamping.
	a := geom.Edge{P2: r3.Vec{X: 1e8, Y: 1e-8}}
	b := geom.Edge{P2: r3.Vec{X: 3e8, Y: 3e-8}}
	got, err := geom.EdgeAngle(a, b)
	if err != nil || math.IsNaN(got) {
		t.Fatalf("got %g, %v", got, err)
	}
}

func TestCentroidNewell(t *testing.T) {
	square := []r3.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	c := geom.Centroid(square...)
	if c != (r3.Vec{X: 1, Y: 1}) {
		t.Errorf("centroid = %v", c)
	}
	n := geom.NewellNormal(square)
	if n != (r3.Vec{Z: 8}) {
		t.Errorf("newell normal = %v, want (0,0,8)", n)
	}
}
