package qmorph

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/soypat/qmesh/geom"
	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// staleTol is the largest difference between a queued and a live quality
// for which the queued entry is still considered current.
const staleTol = 1e-12

// Containment selects the boundary smoothed vertices must stay within.
type Containment uint8

const (
	// ContainBody requires a moved vertex to lie inside the outline of
	// every face of the body.
	ContainBody Containment = iota
	// ContainFace only checks the outline of the face owning the quad.
	ContainFace
)

func (c Containment) String() string {
	switch c {
	case ContainBody:
		return "body"
	case ContainFace:
		return "face"
	}
	return fmt.Sprintf("Containment(%d)", uint8(c))
}

// Op is a mesh operator applied by Refine.
type Op uint8

const (
	OpSmooth Op = iota + 1
	OpReconnect
)

func (op Op) String() string {
	switch op {
	case OpSmooth:
		return "smooth"
	case OpReconnect:
		return "reconnect"
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Commit describes an accepted operation on the quad at Slot of Face.
// Before and After are its quality around the operation.
type Commit struct {
	Op            Op
	Face, Slot    int
	Before, After float64
}

// Config controls Refine.
type Config struct {
	// Refinement stops once the worst queued quad reaches QualityThreshold.
	QualityThreshold float64
	// MaxIterations bounds the number of quads processed.
	// Zero means 100 times the number of quads in the body.
	MaxIterations int
	Containment   Containment
	// PinBoundary keeps vertices on face outlines in place while smoothing.
	PinBoundary bool
	// Logger receives progress messages. Nil silences them.
	Logger *log.Logger
	// OnCommit, if not nil, is called after every accepted operation.
	OnCommit func(Commit)
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		QualityThreshold: 0.8,
		Containment:      ContainBody,
	}
}

// Stats counts what happened during Refine.
type Stats struct {
	Iterations     int
	Smoothed       int
	SmoothRejected int // moved vertex left the boundary or quality did not improve.
	Reconnected    int
	SwapRejected   int // includes neighbours sharing the edge with the same winding.
	NoNeighbor     int
	Skipped        int // degenerate or neither convex nor concave.
	Stale          int
	// Exhausted is set when refinement stopped on the iteration budget.
	Exhausted  bool
	InitialMin float64
	FinalMin   float64
}

// Refine improves the quads of body in place until the worst quad reaches
// the quality threshold, no quad is left to improve, the iteration budget
// runs out or ctx is done. In the last case the context error is returned
// along with the statistics gathered so far.
func Refine(ctx context.Context, body *mesh.Body, cfg Config) (Stats, error) {
	if !(cfg.QualityThreshold > 0 && cfg.QualityThreshold <= 1) {
		return Stats{}, fmt.Errorf("quality threshold %g outside (0, 1]", cfg.QualityThreshold)
	}
	if cfg.MaxIterations < 0 {
		return Stats{}, fmt.Errorf("negative iteration budget %d", cfg.MaxIterations)
	}
	n := body.NumQuads()
	budget := cfg.MaxIterations
	if budget == 0 {
		budget = 100 * n
	}
	r := &refiner{body: body, cfg: cfg, queue: newQueue(n)}
	r.seed()
	r.stats.InitialMin = minQuality(body)

	for {
		if err := ctx.Err(); err != nil {
			r.stats.FinalMin = minQuality(body)
			return r.stats, err
		}
		head, stale, ok := r.queue.head()
		r.stats.Stale += stale
		if !ok || head.quality >= cfg.QualityThreshold {
			break
		}
		if r.stats.Iterations >= budget {
			r.stats.Exhausted = true
			r.logf("iteration budget of %d spent with %d quads queued", budget, len(r.queue.heap))
			break
		}
		r.queue.pop()
		r.step(head)
	}
	r.stats.FinalMin = minQuality(body)
	r.logf("refined %d quads in %d iterations (%d smoothed, %d reconnected): worst quality %.4f -> %.4f",
		n, r.stats.Iterations, r.stats.Smoothed, r.stats.Reconnected, r.stats.InitialMin, r.stats.FinalMin)
	return r.stats, nil
}

type refiner struct {
	body  *mesh.Body
	cfg   Config
	queue *queue
	stats Stats
}

func (r *refiner) logf(format string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}

func (r *refiner) seed() {
	i := 0
	for fi, f := range r.body.Faces {
		for slot := range f.Quads {
			q, err := Quality(f.Quad(slot))
			if err != nil {
				r.logf("face %d quad %d not queued: %v", fi, slot, err)
			} else {
				r.queue.push(i, q)
			}
			i++
		}
	}
}

// step processes one popped entry.
func (r *refiner) step(e entry) {
	fi, slot, ok := r.body.Locate(e.index)
	if !ok {
		panic(fmt.Sprintf("queued quad %d outside body", e.index))
	}
	f := r.body.Faces[fi]
	quad := f.Quad(slot)
	live, err := Quality(quad)
	if err != nil {
		r.stats.Skipped++
		return
	}
	if math.Abs(live-e.quality) > staleTol {
		r.stats.Stale++
		r.queue.push(e.index, live)
		return
	}
	r.stats.Iterations++
	switch Classify(quad, f.Plane.Normal()) {
	case Convex:
		r.smooth(fi, slot, live)
	case Concave:
		r.reconnect(fi, slot, live)
	default:
		r.stats.Skipped++
	}
}

// affected records the quality of a quad before an operation.
type affected struct {
	slot    int
	quality float64 // NaN if degenerate.
	class   Convexity
}

func (r *refiner) snapshot(f *mesh.Face, slots []int) []affected {
	snap := make([]affected, len(slots))
	for i, s := range slots {
		q, err := Quality(f.Quad(s))
		if err != nil {
			q = math.NaN()
		}
		snap[i] = affected{slot: s, quality: q, class: Classify(f.Quad(s), f.Plane.Normal())}
	}
	return snap
}

// smooth moves every vertex of the quad halfway towards the mean centroid
// of the quads sharing it. For a vertex used by this quad alone that is the
// quad centroid.
func (r *refiner) smooth(fi, slot int, before float64) {
	f := r.body.Faces[fi]
	quad := f.Quads[slot]
	var (
		moved  [4]bool
		saved  [4]r3.Vec
		target [4]r3.Vec
		slots  []int
	)
	for k, v := range quad {
		saved[k] = f.Vertices[v]
		slots = appendSlots(slots, f.Incident(v))
		if r.cfg.PinBoundary && f.IsBoundary(v) {
			continue
		}
		var c r3.Vec
		inc := f.Incident(v)
		for _, s := range inc {
			pts := f.Quad(s)
			c = r3.Add(c, geom.Centroid(pts[:]...))
		}
		c = r3.Scale(1/float64(len(inc)), c)
		p := r3.Add(c, r3.Scale(0.5, r3.Sub(saved[k], c)))
		if !r.contained(fi, p) {
			r.stats.SmoothRejected++
			return
		}
		target[k], moved[k] = p, true
	}
	snap := r.snapshot(f, slots)
	for k, v := range quad {
		if moved[k] {
			f.Move(v, target[k])
		}
	}
	after, err := Quality(f.Quad(slot))
	if err != nil || after <= before || r.tangled(f, snap) {
		for k, v := range quad {
			f.Move(v, saved[k])
		}
		r.stats.SmoothRejected++
		return
	}
	r.stats.Smoothed++
	r.commit(Commit{Op: OpSmooth, Face: fi, Slot: slot, Before: before, After: after}, snap)
}

// contained reports whether p may hold a vertex of face fi.
func (r *refiner) contained(fi int, p r3.Vec) bool {
	if r.cfg.Containment == ContainFace {
		f := r.body.Faces[fi]
		return geom.PointInPolygon(p, f.Outline(), f.Plane)
	}
	for _, f := range r.body.Faces {
		if !geom.PointInPolygon(p, f.Outline(), f.Plane) {
			return false
		}
	}
	return true
}

// tangled reports whether an operation turned a valid quad in snap into
// a degenerate or self-intersecting one.
func (r *refiner) tangled(f *mesh.Face, snap []affected) bool {
	for _, a := range snap {
		if a.class != Convex && a.class != Concave {
			continue
		}
		switch Classify(f.Quad(a.slot), f.Plane.Normal()) {
		case Degenerate, Neither:
			return true
		}
	}
	return false
}

// reconnect rotates the diagonal shared with a neighbour so that it ends
// at the neighbour corner of smallest angle. Writing the quad as
// (a,b,c,d) with shared edge a-b and the neighbour as (b,a,e,f), the pair
// becomes (c,d,a,e),(e,f,b,c) or (f,b,c,d),(d,a,e,f).
func (r *refiner) reconnect(fi, slot int, before float64) {
	f := r.body.Faces[fi]
	P := f.Quads[slot]
	angles, err := Angles(f.Quad(slot))
	if err != nil {
		r.stats.Skipped++
		return
	}
	k := minCorner(angles)
	found := false
	for _, i := range [2]int{k, (k + 3) % 4} {
		a, b := P[i], P[(i+1)%4]
		ns, ok := f.Neighbor(slot, a, b)
		if !ok {
			continue
		}
		found = true
		N := f.Quads[ns]
		j := directedEdge(N, b, a)
		if j < 0 {
			r.stats.SwapRejected++ // neighbour wound the same way.
			continue
		}
		nangles, err := Angles(f.Quad(ns))
		if err != nil {
			r.stats.SwapRejected++
			continue
		}
		c, d := P[(i+2)%4], P[(i+3)%4]
		e, g := N[(j+2)%4], N[(j+3)%4]
		m, angleM := e, nangles[(j+2)%4]
		if ag := nangles[(j+3)%4]; ag < angleM {
			m, angleM = g, ag
		}
		if angles[k]+angleM >= math.Pi {
			r.stats.SwapRejected++
			continue
		}
		var newP, newN mesh.Quad
		if m == e {
			newP, newN = mesh.Quad{c, d, a, e}, mesh.Quad{e, g, b, c}
		} else {
			newP, newN = mesh.Quad{g, b, c, d}, mesh.Quad{d, a, e, g}
		}
		snap := r.snapshot(f, []int{slot, ns})
		f.SetQuad(slot, newP)
		f.SetQuad(ns, newN)
		after, err := Quality(f.Quad(slot))
		if err != nil || after <= before || !valid(f, slot) || !valid(f, ns) {
			f.SetQuad(slot, P)
			f.SetQuad(ns, N)
			r.stats.SwapRejected++
			continue
		}
		r.stats.Reconnected++
		r.commit(Commit{Op: OpReconnect, Face: fi, Slot: slot, Before: before, After: after}, snap)
		return
	}
	if !found {
		r.stats.NoNeighbor++
	}
}

// valid reports whether the quad at slot has a defined quality and an
// operator class.
func valid(f *mesh.Face, slot int) bool {
	if _, err := Quality(f.Quad(slot)); err != nil {
		return false
	}
	c := Classify(f.Quad(slot), f.Plane.Normal())
	return c == Convex || c == Concave
}

// commit requeues the quads of snap that improved and refreshes the
// queued entries of those that did not.
func (r *refiner) commit(c Commit, snap []affected) {
	f := r.body.Faces[c.Face]
	for _, a := range snap {
		q, err := Quality(f.Quad(a.slot))
		if err != nil {
			continue
		}
		idx := r.body.Index(c.Face, a.slot)
		if a.slot == c.Slot || q > a.quality || r.queue.has(idx) {
			r.queue.push(idx, q)
		}
	}
	if r.cfg.OnCommit != nil {
		r.cfg.OnCommit(c)
	}
}

// directedEdge returns the corner of q at which the edge a->b starts, or -1.
func directedEdge(q mesh.Quad, a, b int) int {
	for i := range q {
		if q[i] == a && q[(i+1)%4] == b {
			return i
		}
	}
	return -1
}

func appendSlots(dst, slots []int) []int {
outer:
	for _, s := range slots {
		for _, d := range dst {
			if d == s {
				continue outer
			}
		}
		dst = append(dst, s)
	}
	return dst
}

// minQuality returns the lowest quality over the non-degenerate quads of body.
func minQuality(body *mesh.Body) float64 {
	lo := math.Inf(1)
	for _, f := range body.Faces {
		for slot := range f.Quads {
			if q, err := Quality(f.Quad(slot)); err == nil && q < lo {
				lo = q
			}
		}
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return lo
}
