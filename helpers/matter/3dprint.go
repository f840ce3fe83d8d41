// Package matter compensates meshes for the shrinkage of 3D printing
// materials before export.
package matter

import (
	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// PLA (polylactic acid) is the most widely used plastic filament material in 3D printing.
	PLA = ViscousMaterial{shrink: 0.2e-2, pullShrink: .45} // 0.2% shrinkage
)

type ViscousMaterial struct {
	// shrink is the thermal contraction shrinkage of a material once the material
	// cools to room temperature after the heated bed is turned off.
	shrink float64
	// pullShrink takes into account viscoelastic shrinkage.
	pullShrink float64
}

// ScaleFactor is the uniform scale that cancels thermal shrinkage.
func (m ViscousMaterial) ScaleFactor() float64 { return 1 / (1 - m.shrink) }

// Scale scales every vertex of body about the origin by ScaleFactor.
// Face planes and outlines are not refit so it is meant for export only.
func (m ViscousMaterial) Scale(body *mesh.Body) {
	k := m.ScaleFactor()
	for _, f := range body.Faces {
		for v, p := range f.Vertices {
			f.Move(v, r3.Scale(k, p))
		}
	}
}

// InternalDimScale returns the modelled size of a hole or slot that prints
// with the real dimension given.
func (m ViscousMaterial) InternalDimScale(real float64) float64 {
	if real <= 0 {
		panic("InternalDimScale only works for non-zero dimensions")
	}
	return real*(m.shrink+1) + m.pullShrink
}
