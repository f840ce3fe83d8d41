package render_test

import (
	"bufio"
	"bytes"
	"image/png"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/qmesh/mesh"
	"github.com/soypat/qmesh/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// neuSections splits a neutral file into its sections keyed by the first
// word of the section heading.
func neuSections(t *testing.T, data string) map[string][]string {
	sections := make(map[string][]string)
	sc := bufio.NewScanner(strings.NewReader(data))
	var name string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case name == "":
			name = strings.Fields(line)[0]
		case line == "ENDOFSECTION":
			name = ""
		default:
			sections[name] = append(sections[name], line)
		}
	}
	if name != "" {
		t.Fatalf("section %s not terminated", name)
	}
	return sections
}

func atoi(t *testing.T, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestWriteNEU(t *testing.T) {
	body := twoFaces(t)
	opts := render.DefaultNEUOptions()
	opts.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var b bytes.Buffer
	if err := render.WriteNEU(&b, body, opts); err != nil {
		t.Fatal(err)
	}
	s := neuSections(t, b.String())

	control := s["CONTROL"]
	if !strings.Contains(control[1], body.ID.String()) {
		t.Errorf("title %q does not name body %s", control[1], body.ID)
	}
	counts := strings.Fields(control[len(control)-1])
	if diff := cmp.Diff([]string{"10", "3", "1", "0", "3", "3"}, counts); diff != "" {
		t.Errorf("header counts (-want +got):\n%s", diff)
	}

	nodes := s["NODAL"]
	if len(nodes) != 10 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	for i, line := range nodes {
		f := strings.Fields(line)
		if atoi(t, f[0]) != i+1 {
			t.Errorf("node %d numbered %s", i+1, f[0])
		}
	}
	// Node 5 is the first vertex of the second face.
	f := strings.Fields(nodes[4])
	z, err := strconv.ParseFloat(f[3], 64)
	if err != nil || z != 1 {
		t.Errorf("node 5 line %q", nodes[4])
	}

	var elems [][]int
	for _, line := range s["ELEMENTS/CELLS"] {
		var e []int
		for _, f := range strings.Fields(line) {
			e = append(e, atoi(t, f))
		}
		elems = append(elems, e)
	}
	want := [][]int{
		{1, 2, 4, 1, 3, 4, 2},
		{2, 2, 4, 5, 7, 8, 6},
		{3, 2, 4, 7, 9, 10, 8},
	}
	if diff := cmp.Diff(want, elems); diff != "" {
		t.Errorf("elements (-want +got):\n%s", diff)
	}

	group := s["ELEMENT"]
	if len(group) != 4 || strings.TrimSpace(group[1]) != "surface" {
		t.Fatalf("element group %q", group)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, strings.Fields(group[3])); diff != "" {
		t.Errorf("group members (-want +got):\n%s", diff)
	}
}

func TestCreateNEUEmptyBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.neu")
	if err := render.CreateNEU(path, mesh.NewBody(), render.DefaultNEUOptions()); err == nil {
		t.Error("empty body accepted")
	}
}

func TestQualityHistogram(t *testing.T) {
	qualities := []float64{0.2, 0.5, 0.55, 0.9, 1, 1}
	var b bytes.Buffer
	if err := render.QualityHistogram(&b, qualities, 10, "png"); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&b); err != nil {
		t.Errorf("histogram is not a PNG: %v", err)
	}
	if err := render.QualityHistogram(&b, nil, 10, "png"); err == nil {
		t.Error("empty qualities accepted")
	}
	if err := render.SaveQualityHistogram(filepath.Join(t.TempDir(), "q.svg"), []float64{1, 1}, 0); err != nil {
		t.Error(err)
	}
	b.Reset()
	if err := render.QualityHistogram(&b, qualities, -3, "png"); err != nil {
		t.Errorf("negative bin count: %v", err)
	}
}

func TestSurfaceDeviation(t *testing.T) {
	body := mesh.NewBody(grid(t, 4, 4, 0))
	surf := render.NewSurface(render.Triangles(body))
	if bb := surf.Bounds(); bb.Max != (r3.Vec{X: 4, Y: 4}) || bb.Min != (r3.Vec{}) {
		t.Errorf("surface bounds %+v", bb)
	}
	if d := surf.Distance(r3.Vec{X: 1.3, Y: 2.7, Z: -0.25}); math.Abs(d-0.25) > 1e-12 {
		t.Errorf("distance below surface %g, want 0.25", d)
	}
	if d := surf.Distance(r3.Vec{X: 5, Y: 2}); math.Abs(d-1) > 1e-12 {
		t.Errorf("distance beyond the edge %g, want 1", d)
	}
	maxDist, meanDist := render.Deviation(body, surf)
	if maxDist > 1e-12 || meanDist > 1e-12 {
		t.Errorf("mesh deviates from itself: %g %g", maxDist, meanDist)
	}
	body.Faces[0].Move(12, r3.Vec{X: 2, Y: 2, Z: 0.5})
	maxDist, _ = render.Deviation(body, surf)
	if math.Abs(maxDist-0.5) > 1e-12 {
		t.Errorf("lifted vertex deviation %g, want 0.5", maxDist)
	}
}
