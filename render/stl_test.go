package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/qmesh/mesh"
	"github.com/soypat/qmesh/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// twoFaces returns a body of a 1x1 grid and a 2x1 grid, the latter on the
// z=1 plane. Grid vertex (i,j) has index i*(ny+1)+j.
func twoFaces(t testing.TB) *mesh.Body {
	return mesh.NewBody(grid(t, 1, 1, 0), grid(t, 2, 1, 1))
}

func grid(t testing.TB, nx, ny int, z float64) *mesh.Face {
	var verts []r3.Vec
	for i := 0; i <= nx; i++ {
		for j := 0; j <= ny; j++ {
			verts = append(verts, r3.Vec{X: float64(i), Y: float64(j), Z: z})
		}
	}
	at := func(i, j int) int { return i*(ny+1) + j }
	var quads []mesh.Quad
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			quads = append(quads, mesh.Quad{at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)})
		}
	}
	f, err := mesh.NewFace(verts, quads)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestSTLCreateWrite(t *testing.T) {
	body := twoFaces(t)
	path := filepath.Join(t.TempDir(), "body.stl")
	if err := render.CreateSTL(path, body); err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := render.WriteSTL(&b, body); err != nil {
		t.Fatal(err)
	}
	if b.Len() != len(bfile) {
		t.Fatal("WriteSTL and CreateSTL output length mismatch")
	}
	if !bytes.Equal(b.Bytes(), bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
	if len(bfile) != 84+50*6 {
		t.Errorf("got %d bytes for 3 quads", len(bfile))
	}
}
