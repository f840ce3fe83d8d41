// Package qmesh builds quadrilateral surface meshes from B-spline patches
// and improves their element quality with Q-Morph smoothing and quad
// reconnection.
//
// A typical run reads patches, tessellates them and refines the result:
//
//	surfaces, err := iges.ReadFile("part.igs")
//	...
//	body, stats, err := qmesh.Generate(ctx, qmesh.IGESPatches(surfaces, logger), qmesh.DefaultParms())
package qmesh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/soypat/qmesh/helpers/iges"
	"github.com/soypat/qmesh/mesh"
	"github.com/soypat/qmesh/nurbs"
	"github.com/soypat/qmesh/qmorph"
)

// Parms are the meshing parameters of a run.
type Parms struct {
	// SampleCount is the number of quads along each parametric direction
	// of every patch.
	SampleCount int
	// QualityThreshold is the quality refinement tries to lift every quad to.
	QualityThreshold float64
	// MaxIterations bounds refinement. Zero picks 100 times the quad count.
	MaxIterations int
	Containment   qmorph.Containment
	PinBoundary   bool
	// Workers limits concurrent patch tessellation. Zero uses every CPU.
	Workers int
	Logger  *log.Logger
	// OnCommit is passed on to the refinement loop.
	OnCommit func(qmorph.Commit)
}

// DefaultParms returns 10 by 10 sampling and a 0.8 quality threshold with
// body containment.
func DefaultParms() Parms {
	cfg := qmorph.DefaultConfig()
	return Parms{
		SampleCount:      10,
		QualityThreshold: cfg.QualityThreshold,
		Containment:      cfg.Containment,
	}
}

func (p Parms) config() qmorph.Config {
	return qmorph.Config{
		QualityThreshold: p.QualityThreshold,
		MaxIterations:    p.MaxIterations,
		Containment:      p.Containment,
		PinBoundary:      p.PinBoundary,
		Logger:           p.Logger,
		OnCommit:         p.OnCommit,
	}
}

func (p Parms) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// Build tessellates every patch into one face of a new body.
func Build(ctx context.Context, patches []nurbs.Patch, p Parms) (*mesh.Body, error) {
	if len(patches) == 0 {
		return nil, errors.New("no patches to mesh")
	}
	if p.SampleCount < 1 {
		return nil, fmt.Errorf("sample count must be at least 1, got %d", p.SampleCount)
	}
	start := time.Now()
	faces, err := nurbs.TessellateAll(ctx, patches, p.SampleCount, p.Workers)
	if err != nil {
		return nil, fmt.Errorf("tessellating: %w", err)
	}
	body := mesh.NewBody(faces...)
	p.logf("tessellated %d patches into %d quads (%d vertices) in %s",
		len(patches), body.NumQuads(), body.NumVertices(), time.Since(start).Round(time.Millisecond))
	return body, nil
}

// Refine improves the quads of body in place.
func Refine(ctx context.Context, body *mesh.Body, p Parms) (qmorph.Stats, error) {
	start := time.Now()
	stats, err := qmorph.Refine(ctx, body, p.config())
	if err != nil {
		return stats, fmt.Errorf("refining: %w", err)
	}
	p.logf("refinement took %s", time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// Generate builds a body from patches and refines it.
func Generate(ctx context.Context, patches []nurbs.Patch, p Parms) (*mesh.Body, qmorph.Stats, error) {
	body, err := Build(ctx, patches, p)
	if err != nil {
		return nil, qmorph.Stats{}, err
	}
	stats, err := Refine(ctx, body, p)
	if err != nil {
		return nil, stats, err
	}
	return body, stats, nil
}

// IGESPatches returns the patches of surfaces restricted to their stored
// parameter ranges. Rational surfaces are meshed from their Cartesian
// control points and reported to logger.
func IGESPatches(surfaces []iges.Surface, logger *log.Logger) []nurbs.Patch {
	patches := make([]nurbs.Patch, len(surfaces))
	for i := range surfaces {
		if surfaces[i].Rational() && logger != nil {
			logger.Printf("surface %s is rational: weights ignored", surfaces[i].Patch.Name)
		}
		patches[i] = surfaces[i].Patch
		patches[i].Range = surfaces[i].Domain
	}
	return patches
}
