package matter

import (
	"math"
	"testing"

	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPLAScale(t *testing.T) {
	f, err := mesh.NewFace([]r3.Vec{{}, {X: 10}, {X: 10, Y: 5}, {Y: 5, Z: 1}}, []mesh.Quad{{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	PLA.Scale(mesh.NewBody(f))
	k := PLA.ScaleFactor()
	if got := f.Vertices[2]; math.Abs(got.X-10*k) > 1e-12 || math.Abs(got.Y-5*k) > 1e-12 {
		t.Errorf("scaled vertex %v", got)
	}
	if got := f.Vertices[0]; got != (r3.Vec{}) {
		t.Errorf("origin moved to %v", got)
	}
	// Cooled part shrinks back to the modelled size.
	if shrunk := 10 * k * (1 - PLA.shrink); math.Abs(shrunk-10) > 1e-12 {
		t.Errorf("printed length %g, want 10", shrunk)
	}
}

func TestInternalDimScale(t *testing.T) {
	if got := PLA.InternalDimScale(3); math.Abs(got-(3*1.002+0.45)) > 1e-12 {
		t.Errorf("got %g", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on zero dimension")
		}
	}()
	PLA.InternalDimScale(0)
}
