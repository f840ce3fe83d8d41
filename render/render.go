// Package render writes quad meshes to mesh and image files: Gambit neutral
// files, binary STL, shaded previews and quality histograms.
package render

import (
	"io"

	"github.com/soypat/qmesh/internal/d3"
	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a triangle in 3D space.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle following its winding.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	return d3.Unit(r3.Cross(e1, e2))
}

// Degenerate returns true if two vertices of the triangle coincide within tol.
func (t Triangle3) Degenerate(tol float64) bool {
	return d3.EqualWithin(t.V[0], t.V[1], tol) ||
		d3.EqualWithin(t.V[1], t.V[2], tol) ||
		d3.EqualWithin(t.V[2], t.V[0], tol)
}

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(dst []Triangle3) (int, error)
}

// quadSplitter reads the quads of a body as triangle pairs.
type quadSplitter struct {
	body       *mesh.Body
	face, slot int
	unwritten  triangle3Buffer
}

// NewBodyRenderer returns a Renderer that splits every quad (a,b,c,d) of
// body into triangles (a,b,c) and (a,c,d), face after face.
func NewBodyRenderer(body *mesh.Body) Renderer {
	return &quadSplitter{body: body}
}

func (qs *quadSplitter) ReadTriangles(dst []Triangle3) (n int, err error) {
	if len(dst) == 0 {
		panic("cannot write to empty triangle slice")
	}
	n = qs.unwritten.Read(dst)
	for n < len(dst) && qs.face < len(qs.body.Faces) {
		f := qs.body.Faces[qs.face]
		if qs.slot >= len(f.Quads) {
			qs.face++
			qs.slot = 0
			continue
		}
		q := f.Quad(qs.slot)
		qs.slot++
		tris := [2]Triangle3{
			{V: [3]r3.Vec{q[0], q[1], q[2]}},
			{V: [3]r3.Vec{q[0], q[2], q[3]}},
		}
		w := copy(dst[n:], tris[:])
		n += w
		qs.unwritten.Write(tris[w:])
	}
	if n == 0 && qs.unwritten.Len() == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Triangles returns the quads of body split into triangles.
func Triangles(body *mesh.Body) []Triangle3 {
	tris, _ := RenderAll(NewBodyRenderer(body))
	return tris
}
