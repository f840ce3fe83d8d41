// Package qmorph improves the element quality of quadrilateral surface
// meshes with local Q-Morph operators: vertex smoothing of convex quads and
// diagonal reconnection of concave quads, applied worst element first.
package qmorph

import (
	"errors"
	"fmt"

	"github.com/soypat/qmesh/geom"
	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerate is returned for quads whose interior angles are undefined
// or collapse to zero.
var ErrDegenerate = errors.New("degenerate quad")

// turnTol is the magnitude below which the turn at a corner counts as straight.
const turnTol = 1e-12

// Angles returns the interior angles of q in [0, pi]. The angle at corner k
// lies between the edges from p_k to its two neighbours. Reflex corners
// report their supplementary unsigned angle.
func Angles(q [4]r3.Vec) (angles [4]float64, err error) {
	for k := range q {
		next := geom.Edge{P1: q[k], P2: q[(k+1)%4]}
		prev := geom.Edge{P1: q[k], P2: q[(k+3)%4]}
		angles[k], err = geom.EdgeAngle(next, prev)
		if err != nil {
			return angles, fmt.Errorf("%w: corner %d: %w", ErrDegenerate, k, err)
		}
	}
	return angles, nil
}

// Quality returns the ratio of the smallest to the largest interior angle
// of q. It is 1 for an equiangular quad.
func Quality(q [4]r3.Vec) (float64, error) {
	angles, err := Angles(q)
	if err != nil {
		return 0, err
	}
	return ratio(angles)
}

func ratio(angles [4]float64) (float64, error) {
	lo, hi := angles[0], angles[0]
	for _, a := range angles[1:] {
		if a < lo {
			lo = a
		}
		if a > hi {
			hi = a
		}
	}
	if !(lo > 0) {
		return 0, fmt.Errorf("%w: zero interior angle", ErrDegenerate)
	}
	return lo / hi, nil
}

// minCorner returns the first corner holding the smallest angle.
func minCorner(angles [4]float64) int {
	k := 0
	for i := 1; i < 4; i++ {
		if angles[i] < angles[k] {
			k = i
		}
	}
	return k
}

// Convexity is the operator class of a quad.
type Convexity uint8

const (
	Degenerate Convexity = iota
	Convex
	Concave
	// Neither covers self-intersecting quads and quads with two reflex corners.
	Neither
)

func (c Convexity) String() string {
	switch c {
	case Degenerate:
		return "degenerate"
	case Convex:
		return "convex"
	case Concave:
		return "concave"
	case Neither:
		return "neither"
	}
	return fmt.Sprintf("Convexity(%d)", uint8(c))
}

// Classify probes each edge of q with its in-plane normal, the edge
// direction crossed with normal, and measures how adjacent probes turn
// about normal. q is Convex when no corner turns clockwise. It is Concave
// when every corner turns clockwise or exactly one does.
func Classify(q [4]r3.Vec, normal r3.Vec) Convexity {
	n := d3.Unit(normal)
	if r3.Norm2(n) == 0 {
		return Degenerate
	}
	var probes [4]r3.Vec
	for i := range q {
		d := r3.Sub(q[(i+1)%4], q[i])
		if r3.Norm2(d) == 0 {
			return Degenerate
		}
		probes[i] = r3.Cross(r3.Unit(d), n)
	}
	var pos, neg int
	for i := range probes {
		turn := r3.Dot(n, r3.Cross(probes[i], probes[(i+1)%4]))
		switch {
		case turn > turnTol:
			pos++
		case turn < -turnTol:
			neg++
		}
	}
	switch {
	case pos == 0 && neg == 0:
		return Degenerate
	case neg == 0:
		return Convex
	case pos == 0 || neg == 1:
		return Concave
	}
	return Neither
}
