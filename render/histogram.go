package render

import (
	"errors"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	histWidth, histHeight = 6 * vg.Inch, 4 * vg.Inch
	defaultBins           = 20
)

// QualityHistogram plots the distribution of quad qualities in (0, 1] and
// writes it to w. format is any of the formats supported by plot.WriterTo
// such as "png", "svg" or "pdf". Bins less than 1 picks a default count.
func QualityHistogram(w io.Writer, qualities []float64, bins int, format string) error {
	p, err := qualityPlot(qualities, bins)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(histWidth, histHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveQualityHistogram is like QualityHistogram but writes to a file whose
// extension selects the format.
func SaveQualityHistogram(path string, qualities []float64, bins int) error {
	p, err := qualityPlot(qualities, bins)
	if err != nil {
		return err
	}
	return p.Save(histWidth, histHeight, path)
}

func qualityPlot(qualities []float64, bins int) (*plot.Plot, error) {
	if len(qualities) == 0 {
		return nil, errors.New("no qualities to plot")
	}
	if bins < 1 {
		bins = defaultBins
	}
	h, err := plotter.NewHist(plotter.Values(qualities), bins)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = "Quad quality"
	p.X.Label.Text = "min/max interior angle"
	p.Y.Label.Text = "quads"
	p.X.Min, p.X.Max = 0, 1
	p.Add(h)
	return p, nil
}
