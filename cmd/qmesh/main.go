// Command qmesh meshes the B-spline surfaces of an IGES file into
// quadrilaterals, refines them and writes the result as a Gambit neutral
// file. STL, preview and quality histogram outputs are optional.
//
// Usage:
//
//	qmesh -in part.igs -out part.neu -stl part.stl -png part.png -hist quality.png
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/soypat/qmesh"
	"github.com/soypat/qmesh/helpers/iges"
	"github.com/soypat/qmesh/helpers/matter"
	"github.com/soypat/qmesh/mesh"
	"github.com/soypat/qmesh/qmorph"
	"github.com/soypat/qmesh/render"
)

func main() {
	def := qmesh.DefaultParms()
	var (
		in      = flag.String("in", "", "input IGES file (required)")
		out     = flag.String("out", "out.neu", "output Gambit neutral file")
		stlOut  = flag.String("stl", "", "optional binary STL output")
		pngOut  = flag.String("png", "", "optional shaded preview PNG output")
		histOut = flag.String("hist", "", "optional quality histogram output, format from extension")
		n       = flag.Int("n", def.SampleCount, "quads per patch along each parametric direction")
		tau     = flag.Float64("tau", def.QualityThreshold, "quality threshold in (0, 1]")
		maxIter = flag.Int("maxiter", 0, "refinement iteration budget, 0 for 100 per quad")
		workers = flag.Int("workers", 0, "tessellation workers, 0 for one per CPU")
		pin     = flag.Bool("pin", def.PinBoundary, "keep face boundary vertices fixed")
		contain = flag.String("contain", def.Containment.String(), "smoothing containment: body or face")
		pla     = flag.Bool("pla", false, "scale the STL output to cancel PLA print shrinkage")
		verbose = flag.Bool("v", false, "log progress to stderr")
	)
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("qmesh: ")
	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	containment, err := parseContainment(*contain)
	if err != nil {
		log.Fatal(err)
	}
	p := qmesh.Parms{
		SampleCount:      *n,
		QualityThreshold: *tau,
		MaxIterations:    *maxIter,
		Containment:      containment,
		PinBoundary:      *pin,
		Workers:          *workers,
	}
	if *verbose {
		p.Logger = log.New(os.Stderr, "qmesh: ", log.Ltime|log.Lmicroseconds)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	surfaces, err := iges.ReadFile(*in)
	if err != nil {
		log.Fatal(err)
	}
	body, err := qmesh.Build(ctx, qmesh.IGESPatches(surfaces, p.Logger), p)
	if err != nil {
		log.Fatal(err)
	}
	before, err := qmorph.Summarize(body, *tau)
	if err != nil {
		log.Fatal(err)
	}
	surf := render.NewSurface(render.Triangles(body))
	stats, err := qmesh.Refine(ctx, body, p)
	if err != nil {
		log.Fatal(err)
	}
	after, err := qmorph.Summarize(body, *tau)
	if err != nil {
		log.Fatal(err)
	}
	maxDev, meanDev := render.Deviation(body, surf)
	report(os.Stdout, body, before, after, stats)
	fmt.Printf("deviation from tessellation: max %.4g mean %.4g\n", maxDev, meanDev)

	if err := render.CreateNEU(*out, body, render.DefaultNEUOptions()); err != nil {
		log.Fatal(err)
	}
	if *stlOut != "" {
		if *pla {
			matter.PLA.Scale(body)
		}
		if err := render.CreateSTL(*stlOut, body); err != nil {
			log.Fatal(err)
		}
	}
	if *pngOut != "" {
		if err := render.SavePreview(*pngOut, body, render.DefaultView()); err != nil {
			log.Fatal(err)
		}
	}
	if *histOut != "" {
		if err := render.SaveQualityHistogram(*histOut, after.Qualities, 20); err != nil {
			log.Fatal(err)
		}
	}
}

func parseContainment(s string) (qmorph.Containment, error) {
	for _, c := range []qmorph.Containment{qmorph.ContainBody, qmorph.ContainFace} {
		if s == c.String() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown containment %q, want body or face", s)
}

func report(w io.Writer, body *mesh.Body, before, after qmorph.Summary, stats qmorph.Stats) {
	fmt.Fprintf(w, "body %s: %d faces, %d quads, %d vertices\n", body.ID, len(body.Faces), body.NumQuads(), body.NumVertices())
	fmt.Fprintf(w, "%-8s %8s %8s %8s %8s %8s %6s\n", "quality", "min", "median", "mean", "stddev", "max", "below")
	for _, row := range []struct {
		name string
		s    qmorph.Summary
	}{{"before", before}, {"after", after}} {
		fmt.Fprintf(w, "%-8s %8.4f %8.4f %8.4f %8.4f %8.4f %6d\n",
			row.name, row.s.Min, row.s.Median, row.s.Mean, row.s.StdDev, row.s.Max, row.s.Below)
	}
	fmt.Fprintf(w, "%d iterations: %d smoothed (%d rejected), %d reconnected (%d rejected, %d without neighbour), %d skipped\n",
		stats.Iterations, stats.Smoothed, stats.SmoothRejected, stats.Reconnected, stats.SwapRejected, stats.NoNeighbor, stats.Skipped)
	if stats.Exhausted {
		fmt.Fprintln(w, "iteration budget exhausted")
	}
}
