// Package nurbs evaluates tensor product B-spline surface patches and
// tessellates them into quadrilateral faces.
package nurbs

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/qmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrMalformed = errors.New("malformed surface")

// Patch is a non-rational B-spline surface. Control[i][j] is the control
// point i along u and j along v. Rational input must have its weights
// divided out before building a Patch.
type Patch struct {
	Name    string
	Control [][]r3.Vec
	KnotsU  []float64
	KnotsV  []float64
	DegreeU int
	DegreeV int
	// Range optionally restricts tessellation to U0, U1, V0, V1 inside the
	// knot domain. The zero value samples the whole domain.
	Range [4]float64
}

// DomainError is returned when a surface is evaluated outside the parameter
// range covered by its knot vectors.
type DomainError struct {
	Dir      byte // 'u' or 'v'
	Param    float64
	Min, Max float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("parameter %c=%g outside surface domain [%g, %g]", e.Dir, e.Param, e.Min, e.Max)
}

// Validate checks the control grid against degrees and knot vectors.
func (p *Patch) Validate() error {
	if err := p.checkShape(); err != nil {
		return err
	}
	for i, row := range p.Control {
		for j, c := range row {
			if !d3.IsFinite(c) {
				return fmt.Errorf("%w: control point (%d,%d) is not finite", ErrMalformed, i, j)
			}
		}
	}
	if err := checkKnots('u', p.KnotsU, len(p.Control), p.DegreeU); err != nil {
		return err
	}
	return checkKnots('v', p.KnotsV, len(p.Control[0]), p.DegreeV)
}

// checkShape checks the dimensions Evaluate indexes by.
func (p *Patch) checkShape() error {
	if p.DegreeU < 1 || p.DegreeV < 1 {
		return fmt.Errorf("%w: degrees must be positive, got (%d, %d)", ErrMalformed, p.DegreeU, p.DegreeV)
	}
	rows := len(p.Control)
	if rows < p.DegreeU+1 {
		return fmt.Errorf("%w: %d control rows, degree %d needs at least %d", ErrMalformed, rows, p.DegreeU, p.DegreeU+1)
	}
	cols := len(p.Control[0])
	if cols < p.DegreeV+1 {
		return fmt.Errorf("%w: %d control columns, degree %d needs at least %d", ErrMalformed, cols, p.DegreeV, p.DegreeV+1)
	}
	for i, row := range p.Control {
		if len(row) != cols {
			return fmt.Errorf("%w: control row %d has %d points, want %d", ErrMalformed, i, len(row), cols)
		}
	}
	if len(p.KnotsU) != rows+p.DegreeU+1 {
		return fmt.Errorf("%w: u knot vector has %d values, want %d", ErrMalformed, len(p.KnotsU), rows+p.DegreeU+1)
	}
	if len(p.KnotsV) != cols+p.DegreeV+1 {
		return fmt.Errorf("%w: v knot vector has %d values, want %d", ErrMalformed, len(p.KnotsV), cols+p.DegreeV+1)
	}
	return nil
}

func checkKnots(dir byte, knots []float64, n, degree int) error {
	if len(knots) != n+degree+1 {
		return fmt.Errorf("%w: %c knot vector has %d values, want %d", ErrMalformed, dir, len(knots), n+degree+1)
	}
	for i := 1; i < len(knots); i++ {
		if knots[i] < knots[i-1] {
			return fmt.Errorf("%w: %c knot vector decreases at index %d", ErrMalformed, dir, i)
		}
	}
	if knots[degree] >= knots[n] {
		return fmt.Errorf("%w: %c knot vector has empty domain", ErrMalformed, dir)
	}
	return nil
}

// Domain returns the valid parameter ranges of the surface. A patch whose
// control grid does not match its degrees and knots has an empty domain of
// NaNs.
func (p *Patch) Domain() (u0, u1, v0, v1 float64) {
	if p.checkShape() != nil {
		nan := math.NaN()
		return nan, nan, nan, nan
	}
	nu, nv := len(p.Control), len(p.Control[0])
	return p.KnotsU[p.DegreeU], p.KnotsU[nu], p.KnotsV[p.DegreeV], p.KnotsV[nv]
}

// sampleDomain returns Domain narrowed to Range when one is set.
func (p *Patch) sampleDomain() (u0, u1, v0, v1 float64, err error) {
	u0, u1, v0, v1 = p.Domain()
	if p.Range == [4]float64{} {
		return u0, u1, v0, v1, nil
	}
	u0, u1 = math.Max(u0, p.Range[0]), math.Min(u1, p.Range[1])
	v0, v1 = math.Max(v0, p.Range[2]), math.Min(v1, p.Range[3])
	if !(u0 < u1) || !(v0 < v1) {
		return 0, 0, 0, 0, fmt.Errorf("%w: range %v misses the knot domain", ErrMalformed, p.Range)
	}
	return u0, u1, v0, v1, nil
}

// Evaluate returns the surface point at (u, v) using de Boor's algorithm,
// first along v for each row of the local control window and then along u.
// A control grid too small for the degrees or knots is reported as
// ErrMalformed. Knot monotonicity is only checked by Validate.
func (p *Patch) Evaluate(u, v float64) (r3.Vec, error) {
	if err := p.checkShape(); err != nil {
		return r3.Vec{}, err
	}
	nu, nv := len(p.Control), len(p.Control[0])
	ku, err := findSpan('u', p.KnotsU, nu, p.DegreeU, u)
	if err != nil {
		return r3.Vec{}, err
	}
	kv, err := findSpan('v', p.KnotsV, nv, p.DegreeV, v)
	if err != nil {
		return r3.Vec{}, err
	}
	var rowBuf, colBuf [8]r3.Vec
	rows := buffer(rowBuf[:0], p.DegreeU+1)
	col := buffer(colBuf[:0], p.DegreeV+1)
	for a := range rows {
		copy(col, p.Control[ku-p.DegreeU+a][kv-p.DegreeV:kv+1])
		rows[a] = deBoor(kv, p.DegreeV, v, p.KnotsV, col)
	}
	return deBoor(ku, p.DegreeU, u, p.KnotsU, rows), nil
}

func buffer(b []r3.Vec, n int) []r3.Vec {
	if cap(b) >= n {
		return b[:n]
	}
	return make([]r3.Vec, n)
}

// findSpan returns k such that knots[k] <= x < knots[k+1] with
// degree <= k < n. The upper domain end maps onto the last span.
func findSpan(dir byte, knots []float64, n, degree int, x float64) (int, error) {
	lo, hi := knots[degree], knots[n]
	if x < lo || x > hi || math.IsNaN(x) {
		return -1, &DomainError{Dir: dir, Param: x, Min: lo, Max: hi}
	}
	if x == hi {
		k := n - 1
		for k > degree && knots[k] == hi {
			k--
		}
		return k, nil
	}
	// Binary search over [degree, n).
	low, high := degree, n
	for high-low > 1 {
		mid := (low + high) / 2
		if x < knots[mid] {
			high = mid
		} else {
			low = mid
		}
	}
	return low, nil
}

// deBoor evaluates a B-spline curve at x in span k. d holds the degree+1
// control points c[k-degree..k] and is overwritten.
func deBoor(k, degree int, x float64, knots []float64, d []r3.Vec) r3.Vec {
	for r := 1; r <= degree; r++ {
		for j := degree; j >= r; j-- {
			left := knots[j+k-degree]
			den := knots[j+1+k-r] - left
			alpha := 0.0
			if den != 0 {
				alpha = (x - left) / den
			}
			d[j] = r3.Add(r3.Scale(1-alpha, d[j-1]), r3.Scale(alpha, d[j]))
		}
	}
	return d[degree]
}
