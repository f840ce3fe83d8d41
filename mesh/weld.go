package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// FaceFromPoints builds a face from a flat point sequence in which every
// four consecutive points are one counter-clockwise quad. Points closer
// than tol are merged into one shared vertex. If tol is zero it is inferred
// from the shortest quad edge.
func FaceFromPoints(points []r3.Vec, tol float64) (*Face, error) {
	if len(points) == 0 || len(points)%4 != 0 {
		return nil, fmt.Errorf("%w: point sequence length %d is not a positive multiple of 4", ErrMalformed, len(points))
	}
	if tol < 0 {
		return nil, fmt.Errorf("%w: negative weld tolerance %g", ErrMalformed, tol)
	}
	if tol == 0 {
		tol = suggestTolerance(points)
	}
	vertices, index := Weld(points, tol)
	quads := make([]Quad, len(points)/4)
	for i := range quads {
		copy(quads[i][:], index[4*i:4*i+4])
	}
	return NewFace(vertices, quads)
}

// Weld merges points within tol of an already seen point. It returns the
// unique vertices in order of first appearance and, for every input point,
// the index of the vertex it was merged into.
func Weld(points []r3.Vec, tol float64) (vertices []r3.Vec, index []int) {
	index = make([]int, len(points))
	tree := &kdtree.Tree{}
	tol2 := tol * tol
	for i, p := range points {
		q := &weldPoint{Vec: p, idx: len(vertices)}
		if tree.Root != nil {
			got, d2 := tree.Nearest(q)
			if got != nil && d2 <= tol2 {
				index[i] = got.(*weldPoint).idx
				continue
			}
		}
		tree.Insert(q, false)
		index[i] = q.idx
		vertices = append(vertices, p)
	}
	return vertices, index
}

// suggestTolerance follows the vertex tolerance heuristic of triangle
// model import: a small fraction of the shortest non zero edge.
func suggestTolerance(points []r3.Vec) float64 {
	minDist2 := math.MaxFloat64
	for i := 0; i < len(points); i += 4 {
		for j := 0; j < 4; j++ {
			d2 := r3.Norm2(r3.Sub(points[i+(j+1)%4], points[i+j]))
			if d2 > 0 {
				minDist2 = math.Min(minDist2, d2)
			}
		}
	}
	if minDist2 == math.MaxFloat64 {
		return 0
	}
	return math.Sqrt(minDist2) / 256
}

type weldPoint struct {
	r3.Vec
	idx int
}

var _ kdtree.Comparable = (*weldPoint)(nil)

func (p *weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*weldPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("unreachable")
}

func (p *weldPoint) Dims() int { return 3 }

func (p *weldPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(*weldPoint)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}
