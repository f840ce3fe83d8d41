package qmorph

import (
	"errors"
	"sort"

	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the quality distribution of a body.
type Summary struct {
	Count      int // quads with a defined quality.
	Degenerate int
	Min, Max   float64
	Mean       float64
	StdDev     float64
	Median     float64
	// Below counts quads with quality under the threshold given to Summarize.
	Below int
	// Qualities holds every defined quality in ascending order.
	Qualities []float64
}

// Summarize computes quality statistics over all quads of body.
func Summarize(body *mesh.Body, threshold float64) (Summary, error) {
	var s Summary
	s.Qualities = make([]float64, 0, body.NumQuads())
	for _, f := range body.Faces {
		for slot := range f.Quads {
			q, err := Quality(f.Quad(slot))
			if err != nil {
				s.Degenerate++
				continue
			}
			s.Qualities = append(s.Qualities, q)
		}
	}
	s.Count = len(s.Qualities)
	if s.Count == 0 {
		return s, errors.New("body has no quads with defined quality")
	}
	sort.Float64s(s.Qualities)
	s.Min = floats.Min(s.Qualities)
	s.Max = floats.Max(s.Qualities)
	s.Mean, s.StdDev = stat.MeanStdDev(s.Qualities, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, s.Qualities, nil)
	s.Below = sort.SearchFloat64s(s.Qualities, threshold)
	return s, nil
}
