package mesh

import (
	"sort"

	"github.com/google/uuid"
	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body is the discretized boundary of a solid: an ordered collection of faces.
// Quads of a body are numbered globally face after face.
type Body struct {
	ID    uuid.UUID
	Faces []*Face
}

// NewBody returns a body with a fresh random ID.
func NewBody(faces ...*Face) *Body {
	return &Body{ID: uuid.New(), Faces: faces}
}

// NumQuads returns the number of quads over all faces.
func (b *Body) NumQuads() (n int) {
	for _, f := range b.Faces {
		n += len(f.Quads)
	}
	return n
}

// NumVertices returns the number of vertices over all faces.
func (b *Body) NumVertices() (n int) {
	for _, f := range b.Faces {
		n += len(f.Vertices)
	}
	return n
}

// Index returns the global index of the quad at slot of face.
func (b *Body) Index(face, slot int) int {
	i := slot
	for _, f := range b.Faces[:face] {
		i += len(f.Quads)
	}
	return i
}

// Locate resolves a global quad index into its face and slot.
func (b *Body) Locate(i int) (face, slot int, ok bool) {
	if i < 0 {
		return -1, -1, false
	}
	ends := make([]int, len(b.Faces))
	total := 0
	for k, f := range b.Faces {
		total += len(f.Quads)
		ends[k] = total
	}
	face = sort.SearchInts(ends, i+1)
	if face == len(ends) {
		return -1, -1, false
	}
	start := ends[face] - len(b.Faces[face].Quads)
	return face, i - start, true
}

// Bounds returns the bounding box of all vertices of the body.
func (b *Body) Bounds() r3.Box {
	bb := d3.Empty()
	for _, f := range b.Faces {
		bb = bb.Extend(d3.Box(f.Bounds()))
	}
	return r3.Box(bb)
}
