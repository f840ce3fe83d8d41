package render

import (
	"math"

	"github.com/soypat/qmesh/internal/d3"
	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface = kdTriangles{}
	_ kdtree.Bounder   = kdTriangles{}
)

// candidates is the number of triangles, nearest by centroid, searched
// for the closest point to a query.
const candidates = 8

// Surface answers closest distance queries against a fixed set of
// triangles, typically the tessellation of a body before refinement.
type Surface struct {
	tree kdtree.Tree
}

// NewSurface indexes model in a k-d tree of triangle centroids.
func NewSurface(model []Triangle3) *Surface {
	if len(model) == 0 {
		panic("cannot index empty triangle slice")
	}
	kd := make(kdTriangles, len(model))
	for i := range kd {
		kd[i] = kdTriangle(model[i])
	}
	return &Surface{tree: *kdtree.New(kd, true)}
}

// Distance returns the distance from v to the closest of the triangles
// whose centroids are nearest to v.
func (s *Surface) Distance(v r3.Vec) float64 {
	keep := kdtree.NewNKeeper(candidates)
	s.tree.NearestSet(keep, kdTriangle{V: [3]r3.Vec{v, v, v}})
	best := math.Inf(1)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		t := c.Comparable.(kdTriangle)
		best = math.Min(best, r3.Norm(r3.Sub(v, closestOnTriangle(v, t.V))))
	}
	return best
}

// Bounds returns the box enclosing the triangles.
func (s *Surface) Bounds() r3.Box {
	bb := s.tree.Root.Bounding
	tMin := bb.Min.(kdTriangle)
	tMax := bb.Max.(kdTriangle)
	return r3.Box{Min: tMin.V[0], Max: tMax.V[0]}
}

// Deviation returns the largest and the mean distance from the vertices
// of body to s.
func Deviation(body *mesh.Body, s *Surface) (maxDist, meanDist float64) {
	n := 0
	for _, f := range body.Faces {
		for _, v := range f.Vertices {
			d := s.Distance(v)
			maxDist = math.Max(maxDist, d)
			meanDist += d
			n++
		}
	}
	if n > 0 {
		meanDist /= float64(n)
	}
	return maxDist, meanDist
}

// closestOnTriangle returns the point of triangle t closest to p by
// locating p among the Voronoi regions of the triangle features.
func closestOnTriangle(p r3.Vec, t [3]r3.Vec) r3.Vec {
	a, b, c := t[0], t[1], t[2]
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	s1, s2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if s1 <= 0 && s2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	s3, s4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if s3 >= 0 && s4 <= s3 {
		return b
	}
	vc := s1*s4 - s3*s2
	if vc <= 0 && s1 >= 0 && s3 <= 0 {
		return r3.Add(a, r3.Scale(s1/(s1-s3), ab))
	}
	cp := r3.Sub(p, c)
	s5, s6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if s6 >= 0 && s5 <= s6 {
		return c
	}
	vb := s5*s2 - s1*s6
	if vb <= 0 && s2 >= 0 && s6 <= 0 {
		return r3.Add(a, r3.Scale(s2/(s2-s6), ac))
	}
	va := s3*s6 - s5*s4
	if va <= 0 && s4-s3 >= 0 && s5-s6 >= 0 {
		w := (s4 - s3) / ((s4 - s3) + (s5 - s6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}
	denom := va + vb + vc
	if denom == 0 {
		return a // collapsed triangle.
	}
	v, w := vb/denom, vc/denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

type kdTriangles []kdTriangle

type kdTriangle Triangle3

func (k kdTriangles) Index(i int) kdtree.Comparable {
	return k[i]
}

// Len returns the length of the list.
func (k kdTriangles) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdTriangles) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), triangles: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k kdTriangles) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

func (k kdTriangles) Bounds() *kdtree.Bounding {
	bb := d3.Empty()
	for _, tri := range k {
		bb = bb.Include(tri.V[0]).Include(tri.V[1]).Include(tri.V[2])
	}
	return &kdtree.Bounding{
		Min: kdTriangle{V: [3]r3.Vec{bb.Min, bb.Min, bb.Min}},
		Max: kdTriangle{V: [3]r3.Vec{bb.Max, bb.Max, bb.Max}},
	}
}

// Compare returns the signed distance of the centroid of a from the plane
// passing through the centroid of b and perpendicular to the dimension d.
func (a kdTriangle) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a, b.(kdTriangle), int(d))
}

// Dims returns the number of dimensions described in the Comparable.
func (a kdTriangle) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the centroids
// of the receiver and the parameter.
func (a kdTriangle) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(kdCentroid(a), kdCentroid(b.(kdTriangle))))
}

// c = a.dim - b.dim
func kdComp(a, b kdTriangle, dim int) (c float64) {
	switch dim {
	case 0:
		c = (a.V[0].X + a.V[1].X + a.V[2].X) - (b.V[0].X + b.V[1].X + b.V[2].X)
	case 1:
		c = (a.V[0].Y + a.V[1].Y + a.V[2].Y) - (b.V[0].Y + b.V[1].Y + b.V[2].Y)
	case 2:
		c = (a.V[0].Z + a.V[1].Z + a.V[2].Z) - (b.V[0].Z + b.V[1].Z + b.V[2].Z)
	}
	return c / 3
}

func kdCentroid(a kdTriangle) r3.Vec {
	return r3.Scale(1./3., r3.Add(a.V[0], r3.Add(a.V[1], a.V[2])))
}

type kdPlane struct {
	dim       int
	triangles kdTriangles
}

func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.triangles[i], p.triangles[j], p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.triangles[i], p.triangles[j] = p.triangles[j], p.triangles[i]
}
func (p kdPlane) Len() int {
	return len(p.triangles)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.triangles = p.triangles[start:end]
	return p
}
