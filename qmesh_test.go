package qmesh_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/soypat/qmesh"
	"github.com/soypat/qmesh/helpers/iges"
	"github.com/soypat/qmesh/nurbs"
	"github.com/soypat/qmesh/qmorph"
	"gonum.org/v1/gonum/spatial/r3"
)

// bilinearPatch spans the four corners given counter-clockwise.
func bilinearPatch(name string, c0, c1, c2, c3 r3.Vec) nurbs.Patch {
	return nurbs.Patch{
		Name:    name,
		Control: [][]r3.Vec{{c0, c3}, {c1, c2}},
		KnotsU:  []float64{0, 0, 1, 1},
		KnotsV:  []float64{0, 0, 1, 1},
		DegreeU: 1,
		DegreeV: 1,
	}
}

func square(name string, z float64) nurbs.Patch {
	return bilinearPatch(name, r3.Vec{Z: z}, r3.Vec{X: 1, Z: z}, r3.Vec{X: 1, Y: 1, Z: z}, r3.Vec{Y: 1, Z: z})
}

func TestGenerateEquiangular(t *testing.T) {
	p := qmesh.DefaultParms()
	p.SampleCount = 4
	p.Workers = 2
	body, stats, err := qmesh.Generate(context.Background(), []nurbs.Patch{square("bottom", 0), square("top", 1)}, p)
	if err != nil {
		t.Fatal(err)
	}
	if body.NumQuads() != 32 || body.NumVertices() != 50 {
		t.Errorf("got %d quads and %d vertices", body.NumQuads(), body.NumVertices())
	}
	if body.Faces[0].Name != "bottom" || body.Faces[1].Name != "top" {
		t.Errorf("faces out of patch order: %q %q", body.Faces[0].Name, body.Faces[1].Name)
	}
	if stats.Iterations != 0 || math.Abs(stats.FinalMin-1) > 1e-12 {
		t.Errorf("square grid refined: %+v", stats)
	}
}

func TestGenerateTrapezoid(t *testing.T) {
	patch := bilinearPatch("trapezoid", r3.Vec{}, r3.Vec{X: 4}, r3.Vec{X: 3, Y: 2}, r3.Vec{X: 1, Y: 2})
	var logs bytes.Buffer
	p := qmesh.DefaultParms()
	p.SampleCount = 6
	p.Logger = log.New(&logs, "", 0)
	commits := 0
	p.OnCommit = func(c qmorph.Commit) {
		commits++
		if !(c.After > c.Before) {
			t.Errorf("%v on quad %d did not improve: %g -> %g", c.Op, c.Slot, c.Before, c.After)
		}
	}
	body, stats, err := qmesh.Generate(context.Background(), []nurbs.Patch{patch}, p)
	if err != nil {
		t.Fatal(err)
	}
	if stats.InitialMin >= p.QualityThreshold {
		t.Fatalf("trapezoid grid starts at quality %g", stats.InitialMin)
	}
	if stats.Iterations == 0 || commits != stats.Smoothed+stats.Reconnected {
		t.Errorf("got %d commits for %+v", commits, stats)
	}
	f := body.Faces[0]
	for slot := range f.Quads {
		switch c := qmorph.Classify(f.Quad(slot), f.Plane.Normal()); c {
		case qmorph.Convex, qmorph.Concave:
		default:
			t.Errorf("quad %d is %v after refinement", slot, c)
		}
	}
	if !strings.Contains(logs.String(), "tessellated 1 patches into 36 quads") {
		t.Errorf("missing tessellation log in %q", logs.String())
	}
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()
	p := qmesh.DefaultParms()
	if _, err := qmesh.Build(ctx, nil, p); err == nil {
		t.Error("no patches accepted")
	}
	bad := square("bad", 0)
	bad.KnotsV = []float64{0, 1}
	_, err := qmesh.Build(ctx, []nurbs.Patch{square("ok", 0), bad}, p)
	var perr *nurbs.PatchError
	if !errors.As(err, &perr) || perr.Index != 1 || !errors.Is(err, nurbs.ErrMalformed) {
		t.Errorf("got %v, want malformed patch 1", err)
	}
	p.SampleCount = 0
	if _, err := qmesh.Build(ctx, []nurbs.Patch{square("ok", 0)}, p); err == nil {
		t.Error("zero sample count accepted")
	}
	p = qmesh.DefaultParms()
	p.QualityThreshold = 1.5
	if _, _, err := qmesh.Generate(ctx, []nurbs.Patch{square("ok", 0)}, p); err == nil {
		t.Error("quality threshold above 1 accepted")
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := qmesh.Generate(ctx, []nurbs.Patch{square("a", 0)}, qmesh.DefaultParms())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context canceled", err)
	}
}

func TestIGESPatches(t *testing.T) {
	var logs bytes.Buffer
	surfaces := []iges.Surface{
		{Patch: square("plain", 0), Weights: [][]float64{{1, 1}, {1, 1}}},
		{Patch: square("weighted", 0), Weights: [][]float64{{1, 2}, {1, 1}}, Domain: [4]float64{0, 0.5, 0, 1}},
	}
	patches := qmesh.IGESPatches(surfaces, log.New(&logs, "", 0))
	if len(patches) != 2 || patches[1].Name != "weighted" {
		t.Fatalf("got patches %+v", patches)
	}
	if patches[1].Range != surfaces[1].Domain {
		t.Errorf("parameter range %v not carried over", patches[1].Range)
	}
	p := qmesh.DefaultParms()
	p.SampleCount = 2
	body, err := qmesh.Build(context.Background(), patches[1:], p)
	if err != nil {
		t.Fatal(err)
	}
	if bb := body.Bounds(); math.Abs(bb.Max.X-0.5) > 1e-12 || math.Abs(bb.Max.Y-1) > 1e-12 {
		t.Errorf("half range tessellated to bounds %+v", bb)
	}
	if got := logs.String(); strings.Contains(got, "plain") || !strings.Contains(got, "weighted is rational") {
		t.Errorf("unexpected warnings %q", got)
	}
}

func BenchmarkGenerate(b *testing.B) {
	patch := bilinearPatch("trapezoid", r3.Vec{}, r3.Vec{X: 4}, r3.Vec{X: 3, Y: 2}, r3.Vec{X: 1, Y: 2})
	p := qmesh.DefaultParms()
	p.SampleCount = 20
	for i := 0; i < b.N; i++ {
		if _, _, err := qmesh.Generate(context.Background(), []nurbs.Patch{patch}, p); err != nil {
			b.Fatal(err)
		}
	}
}
