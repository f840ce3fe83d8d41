// Package iges reads and writes rational B-spline surfaces (entity type 128)
// in the fixed column ASCII form of the Initial Graphics Exchange
// Specification. Every other entity is skipped.
package iges

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/qmesh/nurbs"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoSurfaces is returned by Read when the input holds no entity 128.
var ErrNoSurfaces = errors.New("iges: no B-spline surfaces")

const (
	dataCols    = 72
	paramCols   = 64
	surfaceType = 128
)

// SyntaxError reports malformed input at a 1-based line number.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("iges: line %d: %s", e.Line, e.Msg)
}

// Surface is a B-spline surface entity.
type Surface struct {
	// DE is the sequence number of the first directory entry line.
	DE    int
	Label string
	// Patch holds the Cartesian control points. Its Name is the label or,
	// lacking one, the directory entry number.
	Patch nurbs.Patch
	// Weights[i][j] is the weight of Patch.Control[i][j].
	Weights [][]float64
	// Domain is the parameter range U0, U1, V0, V1 stored with the entity.
	Domain [4]float64
}

// Rational reports whether the weights are not all equal, in which case the
// non-rational Patch only approximates the surface.
func (s *Surface) Rational() bool {
	if len(s.Weights) == 0 || len(s.Weights[0]) == 0 {
		return false
	}
	w0 := s.Weights[0][0]
	for _, row := range s.Weights {
		for _, w := range row {
			if math.Abs(w-w0) > 1e-12*math.Abs(w0) {
				return true
			}
		}
	}
	return false
}

// ReadFile reads the B-spline surfaces of the IGES file at path.
func ReadFile(path string) ([]Surface, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Read(bufio.NewReader(fp))
}

type dirEntry struct {
	entity int
	label  string
}

type paramGroup struct {
	line int // first parameter line.
	data strings.Builder
}

// Read parses an IGES file and returns its B-spline surfaces in the order
// their parameter data appears.
func Read(r io.Reader) ([]Surface, error) {
	var (
		global  strings.Builder
		dir     = make(map[int]dirEntry)
		params  = make(map[int]*paramGroup)
		order   []int
		pending string // first line of an unpaired directory entry.
		pendNum int
		lineNum int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < dataCols+1 {
			line += strings.Repeat(" ", dataCols+1-len(line))
		}
		switch line[dataCols] {
		case 'S':
		case 'G':
			global.WriteString(line[:dataCols])
		case 'D':
			if pending == "" {
				pending, pendNum = line, lineNum
				continue
			}
			seq, de, err := parseDirEntry(pending, line, pendNum)
			if err != nil {
				return nil, err
			}
			dir[seq] = de
			pending = ""
		case 'P':
			de, err := strconv.Atoi(strings.TrimSpace(line[paramCols:dataCols]))
			if err != nil {
				return nil, &SyntaxError{Line: lineNum, Msg: "bad directory entry pointer"}
			}
			g, ok := params[de]
			if !ok {
				g = &paramGroup{line: lineNum}
				params[de] = g
				order = append(order, de)
			}
			g.data.WriteString(line[:paramCols])
		case 'T':
		case 'C', 'B':
			return nil, &SyntaxError{Line: lineNum, Msg: "compressed and binary forms are not supported"}
		default:
			return nil, &SyntaxError{Line: lineNum, Msg: fmt.Sprintf("unknown section %q", line[dataCols])}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending != "" {
		return nil, &SyntaxError{Line: pendNum, Msg: "directory entry missing its second line"}
	}
	pd, rd, err := delimiters(global.String())
	if err != nil {
		return nil, err
	}

	var surfaces []Surface
	for _, seq := range order {
		g := params[seq]
		de, ok := dir[seq]
		if !ok {
			return nil, &SyntaxError{Line: g.line, Msg: fmt.Sprintf("parameter data points to missing directory entry %d", seq)}
		}
		if de.entity != surfaceType {
			continue
		}
		fields := splitParams(g.data.String(), pd, rd)
		s, err := parseSurface(fields)
		if err != nil {
			return nil, &SyntaxError{Line: g.line, Msg: fmt.Sprintf("entity %d: %s", seq, err)}
		}
		s.DE = seq
		s.Label = de.label
		s.Patch.Name = de.label
		if s.Patch.Name == "" {
			s.Patch.Name = "DE" + strconv.Itoa(seq)
		}
		if err := s.Patch.Validate(); err != nil {
			return nil, fmt.Errorf("iges: entity %d: %w", seq, err)
		}
		surfaces = append(surfaces, s)
	}
	if len(surfaces) == 0 {
		return nil, ErrNoSurfaces
	}
	return surfaces, nil
}

// parseDirEntry decodes the pair of 8 column field lines of a directory
// entry. Only the entity type and label are kept.
func parseDirEntry(l1, l2 string, line int) (seq int, de dirEntry, err error) {
	field := func(l string, n int) string { return strings.TrimSpace(l[8*n : 8*n+8]) }
	seq, err = strconv.Atoi(strings.TrimSpace(l1[dataCols+1:]))
	if err != nil {
		return 0, de, &SyntaxError{Line: line, Msg: "bad directory sequence number"}
	}
	t1, err1 := strconv.Atoi(field(l1, 0))
	t2, err2 := strconv.Atoi(field(l2, 0))
	if err1 != nil || err2 != nil || t1 != t2 {
		return 0, de, &SyntaxError{Line: line, Msg: "inconsistent directory entity type"}
	}
	return seq, dirEntry{entity: t1, label: field(l2, 7)}, nil
}

// delimiters returns the parameter and record delimiters declared by the
// first two global parameters, either as 1H Hollerith constants or left to
// their defaults.
func delimiters(g string) (pd, rd byte, err error) {
	pd, rd = ',', ';'
	g = strings.TrimLeft(g, " ")
	if g == "" {
		return pd, rd, nil
	}
	if strings.HasPrefix(g, "1H") && len(g) > 2 {
		pd = g[2]
		g = g[3:]
	}
	if g == "" || (g[0] != pd && g[0] != rd) {
		return 0, 0, &SyntaxError{Line: 1, Msg: "bad parameter delimiter in global section"}
	}
	if g[0] == rd {
		return pd, rd, nil
	}
	g = g[1:]
	if strings.HasPrefix(g, "1H") && len(g) > 2 {
		rd = g[2]
	}
	return pd, rd, nil
}

// splitParams splits parameter data at pd up to the first rd.
func splitParams(data string, pd, rd byte) []string {
	if i := strings.IndexByte(data, rd); i >= 0 {
		data = data[:i]
	}
	fields := strings.Split(data, string(pd))
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

type fieldReader struct {
	fields []string
	pos    int
	err    error
}

func (f *fieldReader) float() float64 {
	if f.err != nil {
		return 0
	}
	if f.pos >= len(f.fields) {
		f.err = fmt.Errorf("parameter %d missing", f.pos+1)
		return 0
	}
	s := strings.NewReplacer("D", "E", "d", "e").Replace(f.fields[f.pos])
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.err = fmt.Errorf("parameter %d: %q is not a number", f.pos+1, f.fields[f.pos])
	}
	f.pos++
	return v
}

func (f *fieldReader) int() int {
	v := f.float()
	if f.err == nil && v != math.Trunc(v) {
		f.err = fmt.Errorf("parameter %d: %g is not an integer", f.pos, v)
	}
	return int(v)
}

func (f *fieldReader) floats(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = f.float()
	}
	return s
}

// parseSurface decodes entity 128 parameters:
//
//	128, K1, K2, M1, M2, PROP1..PROP5, S(K1+M1+2), T(K2+M2+2),
//	W((K1+1)(K2+1)), X Y Z((K1+1)(K2+1)), U0, U1, V0, V1
//
// Weights and control points run over the first index fastest.
func parseSurface(fields []string) (Surface, error) {
	fr := &fieldReader{fields: fields}
	if typ := fr.int(); fr.err == nil && typ != surfaceType {
		return Surface{}, fmt.Errorf("entity type %d in parameter data", typ)
	}
	k1, k2, m1, m2 := fr.int(), fr.int(), fr.int(), fr.int()
	for i := 0; i < 5; i++ {
		fr.int()
	}
	if fr.err != nil {
		return Surface{}, fr.err
	}
	if k1 < 1 || k2 < 1 || m1 < 1 || m2 < 1 {
		return Surface{}, fmt.Errorf("bad surface indices K1=%d K2=%d M1=%d M2=%d", k1, k2, m1, m2)
	}
	s := Surface{Patch: nurbs.Patch{DegreeU: m1, DegreeV: m2}}
	s.Patch.KnotsU = fr.floats(k1 + m1 + 2)
	s.Patch.KnotsV = fr.floats(k2 + m2 + 2)
	s.Patch.Control = make([][]r3.Vec, k1+1)
	s.Weights = make([][]float64, k1+1)
	for i := range s.Patch.Control {
		s.Patch.Control[i] = make([]r3.Vec, k2+1)
		s.Weights[i] = make([]float64, k2+1)
	}
	for j := 0; j <= k2; j++ {
		for i := 0; i <= k1; i++ {
			s.Weights[i][j] = fr.float()
		}
	}
	for j := 0; j <= k2; j++ {
		for i := 0; i <= k1; i++ {
			s.Patch.Control[i][j] = r3.Vec{X: fr.float(), Y: fr.float(), Z: fr.float()}
		}
	}
	for i := range s.Domain {
		s.Domain[i] = fr.float()
	}
	if fr.err != nil {
		return Surface{}, fr.err
	}
	for _, row := range s.Weights {
		for _, w := range row {
			if !(w > 0) {
				return Surface{}, fmt.Errorf("non-positive weight %g", w)
			}
		}
	}
	return s, nil
}
