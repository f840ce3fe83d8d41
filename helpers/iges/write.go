package iges

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// WriteFile writes surfaces to a new IGES file at path.
func WriteFile(path string, surfaces []Surface) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(fp, surfaces)
}

// Write writes surfaces as entity 128 records of an IGES file. Surfaces
// without weights are written with unit weights. The DE field of the
// surfaces is ignored and entries are numbered in slice order.
func Write(w io.Writer, surfaces []Surface) error {
	if len(surfaces) == 0 {
		return ErrNoSurfaces
	}
	params := make([][]string, len(surfaces))
	for i := range surfaces {
		if err := surfaces[i].Patch.Validate(); err != nil {
			return fmt.Errorf("iges: surface %d: %w", i, err)
		}
		params[i] = wrapParams(surfaceParams(&surfaces[i]), paramCols)
	}

	bw := bufio.NewWriter(w)
	sec := sectionWriter{w: bw}
	sec.write('S', "qmesh B-spline surface export")
	for _, l := range wrapGlobal(globalParams(), dataCols) {
		sec.write('G', l)
	}
	pline := 1
	for i, s := range surfaces {
		label := s.Label
		if len(label) > 8 {
			label = label[:8]
		}
		sec.write('D', fmt.Sprintf("%8d%8d%8d%8d%8d%8d%8d%8d%8s", surfaceType, pline, 0, 0, 0, 0, 0, 0, "00000000"))
		sec.write('D', fmt.Sprintf("%8d%8d%8d%8d%8d%8s%8s%8s%8d", surfaceType, 0, 0, len(params[i]), 0, "", "", label, 0))
		pline += len(params[i])
	}
	for i, lines := range params {
		for _, l := range lines {
			sec.write('P', fmt.Sprintf("%-64s %7d", l, 2*i+1))
		}
	}
	sec.write('T', fmt.Sprintf("S%7dG%7dD%7dP%7d", sec.seq['S'], sec.seq['G'], sec.seq['D'], sec.seq['P']))
	if sec.err != nil {
		return sec.err
	}
	return bw.Flush()
}

type sectionWriter struct {
	w   *bufio.Writer
	seq [128]int
	err error
}

func (s *sectionWriter) write(section byte, data string) {
	if s.err != nil {
		return
	}
	s.seq[section]++
	_, s.err = fmt.Fprintf(s.w, "%-72s%c%7d\n", data, section, s.seq[section])
}

func hollerith(s string) string { return strconv.Itoa(len(s)) + "H" + s }

func globalParams() []string {
	now := time.Now().UTC().Format("20060102.150405")
	return []string{
		hollerith(","), hollerith(";"),
		hollerith("qmesh"), hollerith("qmesh.igs"),
		hollerith("qmesh"), hollerith("qmesh"),
		"32", "308", "15", "308", "15",
		hollerith("qmesh"),
		"1.0", "2", hollerith("MM"),
		"1", "1.0", hollerith(now),
		"1.0E-9", "0.0",
		hollerith(""), hollerith(""),
		"11", "0", hollerith(now),
	}
}

// surfaceParams lists entity 128 parameters with weights and control
// points running over the first index fastest.
func surfaceParams(s *Surface) []string {
	p := &s.Patch
	k1, k2 := len(p.Control)-1, len(p.Control[0])-1
	f := func(v float64) string { return strconv.FormatFloat(v, 'G', -1, 64) }
	polynomial := 1
	if s.Rational() {
		polynomial = 0
	}
	out := []string{strconv.Itoa(surfaceType), strconv.Itoa(k1), strconv.Itoa(k2),
		strconv.Itoa(p.DegreeU), strconv.Itoa(p.DegreeV), "0", "0", strconv.Itoa(polynomial), "0", "0"}
	for _, k := range p.KnotsU {
		out = append(out, f(k))
	}
	for _, k := range p.KnotsV {
		out = append(out, f(k))
	}
	weighted := len(s.Weights) == k1+1
	for j := 0; j <= k2; j++ {
		for i := 0; i <= k1; i++ {
			w := 1.0
			if weighted {
				w = s.Weights[i][j]
			}
			out = append(out, f(w))
		}
	}
	for j := 0; j <= k2; j++ {
		for i := 0; i <= k1; i++ {
			c := p.Control[i][j]
			out = append(out, f(c.X), f(c.Y), f(c.Z))
		}
	}
	dom := s.Domain
	if dom == [4]float64{} {
		dom = p.Range
	}
	if dom == [4]float64{} {
		dom[0], dom[1], dom[2], dom[3] = p.Domain()
	}
	for _, d := range dom {
		out = append(out, f(d))
	}
	return out
}

// wrapParams joins parameters with delimiters into lines no longer than
// width without splitting a parameter.
func wrapParams(params []string, width int) []string {
	var lines []string
	var b strings.Builder
	for i, p := range params {
		tok := p + ","
		if i == len(params)-1 {
			tok = p + ";"
		}
		if b.Len()+len(tok) > width {
			lines = append(lines, b.String())
			b.Reset()
		}
		b.WriteString(tok)
	}
	return append(lines, b.String())
}

// wrapGlobal joins global parameters and cuts the text at width columns.
// Hollerith constants may straddle lines.
func wrapGlobal(params []string, width int) []string {
	text := strings.Join(params, ",") + ";"
	var lines []string
	for len(text) > width {
		lines = append(lines, text[:width])
		text = text[width:]
	}
	return append(lines, text)
}
