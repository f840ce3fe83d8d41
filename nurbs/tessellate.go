package nurbs

import (
	"context"
	"fmt"
	"runtime"

	"github.com/soypat/qmesh/mesh"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// PatchError reports which patch of a batch failed to tessellate.
type PatchError struct {
	Index int
	Name  string
	Err   error
}

func (e *PatchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("patch %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("patch %d: %v", e.Index, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// Tessellate samples the patch on a uniform n by n grid over its parameter
// domain, or Range when set, and returns a face of n*n quads sharing (n+1)*(n+1) vertices.
// Quad (i,j) has corners (u_i,v_j), (u_i+1,v_j), (u_i+1,v_j+1), (u_i,v_j+1)
// and quads are stored with i varying slowest.
func (p *Patch) Tessellate(n int) (*mesh.Face, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample count must be at least 1, got %d", ErrMalformed, n)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	u0, u1, v0, v1, err := p.sampleDomain()
	if err != nil {
		return nil, err
	}
	params := func(lo, hi float64, i int) float64 {
		if i == n {
			return hi // avoid rounding past the domain end.
		}
		return lo + (hi-lo)*float64(i)/float64(n)
	}
	verts := make([]r3.Vec, 0, (n+1)*(n+1))
	for i := 0; i <= n; i++ {
		u := params(u0, u1, i)
		for j := 0; j <= n; j++ {
			v := params(v0, v1, j)
			pt, err := p.Evaluate(u, v)
			if err != nil {
				return nil, err
			}
			verts = append(verts, pt)
		}
	}
	at := func(i, j int) int { return i*(n+1) + j }
	quads := make([]mesh.Quad, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			quads = append(quads, mesh.Quad{at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)})
		}
	}
	face, err := mesh.NewFace(verts, quads)
	if err != nil {
		return nil, err
	}
	face.Name = p.Name
	return face, nil
}

// TessellateAll tessellates patches concurrently with at most workers
// goroutines (NumCPU if workers < 1). Faces are returned in patch order.
// The first failing patch cancels the rest and is returned as a *PatchError.
func TessellateAll(ctx context.Context, patches []Patch, n, workers int) ([]*mesh.Face, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	faces := make([]*mesh.Face, len(patches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range patches {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			face, err := patches[i].Tessellate(n)
			if err != nil {
				return &PatchError{Index: i, Name: patches[i].Name, Err: err}
			}
			faces[i] = face
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return faces, nil
}
