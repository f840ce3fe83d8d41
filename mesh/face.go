// Package mesh holds the quadrilateral surface mesh model: faces made of a
// vertex arena and a table of quads indexing into it, and the body that
// aggregates the faces of one solid.
package mesh

import (
	"errors"
	"fmt"

	"github.com/soypat/qmesh/geom"
	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrMalformed = errors.New("malformed mesh")

// Quad holds four counter-clockwise vertex indices into the owning
// Face's vertex arena.
type Quad [4]int

// edgeKey identifies an undirected edge, lower vertex index first.
type edgeKey [2]int

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Face is the tessellation of one surface patch. Quads share vertices
// through the Vertices arena so moving a vertex moves it in every quad
// that references it.
type Face struct {
	Name     string
	Vertices []r3.Vec
	Quads    []Quad
	// Plane is fitted once from the first three points of the face and
	// is not refit when vertices move.
	Plane geom.Plane

	outline  []r3.Vec
	boundary []bool
	edges    map[edgeKey][]int
	incident [][]int
}

// NewFace creates a face from a vertex arena and quads indexing into it.
// The slices are owned by the face after the call.
func NewFace(vertices []r3.Vec, quads []Quad) (*Face, error) {
	if len(quads) == 0 {
		return nil, fmt.Errorf("%w: face has no quads", ErrMalformed)
	}
	for i, q := range quads {
		for _, v := range q {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("%w: quad %d references vertex %d of %d", ErrMalformed, i, v, len(vertices))
			}
		}
	}
	for i, v := range vertices {
		if !d3.IsFinite(v) {
			return nil, fmt.Errorf("%w: vertex %d is not finite: %v", ErrMalformed, i, v)
		}
	}
	q0 := quads[0]
	pl, err := geom.PlaneFromPoints(vertices[q0[0]], vertices[q0[1]], vertices[q0[2]])
	if err != nil {
		return nil, fmt.Errorf("fitting face plane: %w", err)
	}
	f := &Face{
		Vertices: vertices,
		Quads:    quads,
		Plane:    pl,
	}
	f.reindex()
	f.outline = f.traceOutline()
	return f, nil
}

// Len returns the number of quads in the face.
func (f *Face) Len() int { return len(f.Quads) }

// Quad returns the positions of the vertices of the quad at slot.
func (f *Face) Quad(slot int) [4]r3.Vec {
	q := f.Quads[slot]
	return [4]r3.Vec{f.Vertices[q[0]], f.Vertices[q[1]], f.Vertices[q[2]], f.Vertices[q[3]]}
}

// Points returns the face as a flat point sequence where quad i
// occupies entries [4i, 4i+4).
func (f *Face) Points() []r3.Vec {
	pts := make([]r3.Vec, 0, 4*len(f.Quads))
	for i := range f.Quads {
		q := f.Quad(i)
		pts = append(pts, q[:]...)
	}
	return pts
}

// Neighbor returns the slot of a quad other than slot that uses the
// edge between vertices a and b, in either direction.
func (f *Face) Neighbor(slot, a, b int) (int, bool) {
	for _, s := range f.edges[keyOf(a, b)] {
		if s != slot {
			return s, true
		}
	}
	return -1, false
}

// Incident returns the slots of the quads that use vertex v.
// The returned slice must not be modified.
func (f *Face) Incident(v int) []int { return f.incident[v] }

// IsBoundary reports whether vertex v lies on an edge used by a single quad.
func (f *Face) IsBoundary(v int) bool { return f.boundary[v] }

// Outline returns the face boundary loop as it was when the face was created.
// It is the polygon vertices are kept inside of during refinement.
func (f *Face) Outline() []r3.Vec { return f.outline }

// Move sets the position of vertex v.
func (f *Face) Move(v int, p r3.Vec) { f.Vertices[v] = p }

// SetQuad replaces the quad at slot and updates adjacency.
func (f *Face) SetQuad(slot int, q Quad) {
	old := f.Quads[slot]
	for i := range old {
		a, b := old[i], old[(i+1)%4]
		if a != b {
			f.edges[keyOf(a, b)] = removeSlot(f.edges[keyOf(a, b)], slot)
		}
		f.incident[old[i]] = removeSlot(f.incident[old[i]], slot)
	}
	f.Quads[slot] = q
	f.link(slot)
}

// Bounds returns the bounding box of the face vertices.
func (f *Face) Bounds() r3.Box {
	return r3.Box(d3.Set(f.Vertices).Bounds())
}

func (f *Face) reindex() {
	f.edges = make(map[edgeKey][]int, 2*len(f.Quads))
	f.incident = make([][]int, len(f.Vertices))
	for slot := range f.Quads {
		f.link(slot)
	}
}

func (f *Face) link(slot int) {
	q := f.Quads[slot]
	for i := range q {
		a, b := q[i], q[(i+1)%4]
		if a != b {
			k := keyOf(a, b)
			f.edges[k] = appendUnique(f.edges[k], slot)
		}
		f.incident[q[i]] = appendUnique(f.incident[q[i]], slot)
	}
}

// traceOutline marks boundary vertices and returns the longest loop of
// boundary edges, followed in the direction the quads traverse them.
func (f *Face) traceOutline() []r3.Vec {
	f.boundary = make([]bool, len(f.Vertices))
	next := make(map[int]int)
	for _, q := range f.Quads {
		for i := range q {
			a, b := q[i], q[(i+1)%4]
			if a == b || len(f.edges[keyOf(a, b)]) != 1 {
				continue
			}
			next[a] = b
			f.boundary[a] = true
			f.boundary[b] = true
		}
	}
	var best []int
	visited := make(map[int]bool, len(next))
	for start := range f.Vertices {
		if _, ok := next[start]; !ok || visited[start] {
			continue
		}
		loop := []int{start}
		visited[start] = true
		for v := next[start]; v != start; v = next[v] {
			if visited[v] {
				break // open chain or figure eight.
			}
			if _, ok := next[v]; !ok {
				break
			}
			visited[v] = true
			loop = append(loop, v)
		}
		if len(loop) > len(best) {
			best = loop
		}
	}
	outline := make([]r3.Vec, len(best))
	for i, v := range best {
		outline[i] = f.Vertices[v]
	}
	return outline
}

func appendUnique(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func removeSlot(s []int, v int) []int {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
