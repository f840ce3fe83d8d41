package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/soypat/qmesh/mesh"
)

// Gambit element type and node count of a quadrilateral.
const (
	neuQuadrilateral = 2
	neuQuadNodes     = 4
)

// NEUOptions controls the header and element group of a Gambit neutral file.
type NEUOptions struct {
	// Title defaults to one naming the body ID.
	Title   string
	Program string
	Version string
	// Time is written to the header when not zero.
	Time      time.Time
	GroupName string
	Material  int
}

// DefaultNEUOptions returns the options used by the command line tool.
func DefaultNEUOptions() NEUOptions {
	return NEUOptions{
		Program:   "qmesh",
		Version:   "1.0",
		GroupName: "surface",
		Material:  1,
	}
}

// CreateNEU writes body to a Gambit neutral file at path.
func CreateNEU(path string, body *mesh.Body, opts NEUOptions) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteNEU(file, body, opts)
}

// WriteNEU writes body in Gambit neutral format. Nodes are the vertices of
// every face, face after face, and elements the quads in the same order.
// Both are numbered from 1. All elements belong to a single group.
func WriteNEU(w io.Writer, body *mesh.Body, opts NEUOptions) error {
	nelem := body.NumQuads()
	if nelem == 0 {
		return errors.New("empty body")
	}
	numnp := body.NumVertices()
	title := opts.Title
	if title == "" {
		title = "qmesh body " + body.ID.String()
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "        CONTROL INFO %s\n", opts.Version)
	fmt.Fprintf(bw, "** GAMBIT NEUTRAL FILE\n")
	fmt.Fprintf(bw, "%s\n", title)
	fmt.Fprintf(bw, "PROGRAM: %20s     VERSION: %s\n", opts.Program, opts.Version)
	if !opts.Time.IsZero() {
		fmt.Fprintf(bw, "%s\n", opts.Time.Format(time.ANSIC))
	}
	fmt.Fprintf(bw, "     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL\n")
	fmt.Fprintf(bw, "%10d%10d%10d%10d%10d%10d\n", numnp, nelem, 1, 0, 3, 3)
	fmt.Fprintf(bw, "ENDOFSECTION\n")

	fmt.Fprintf(bw, "   NODAL COORDINATES %s\n", opts.Version)
	node := 1
	for _, f := range body.Faces {
		for _, v := range f.Vertices {
			fmt.Fprintf(bw, "%10d%20.11e%20.11e%20.11e\n", node, v.X, v.Y, v.Z)
			node++
		}
	}
	fmt.Fprintf(bw, "ENDOFSECTION\n")

	fmt.Fprintf(bw, "      ELEMENTS/CELLS %s\n", opts.Version)
	elem, offset := 1, 1
	for _, f := range body.Faces {
		for _, q := range f.Quads {
			fmt.Fprintf(bw, "%8d %2d %2d ", elem, neuQuadrilateral, neuQuadNodes)
			for _, v := range q {
				fmt.Fprintf(bw, "%8d", offset+v)
			}
			bw.WriteByte('\n')
			elem++
		}
		offset += len(f.Vertices)
	}
	fmt.Fprintf(bw, "ENDOFSECTION\n")

	fmt.Fprintf(bw, "       ELEMENT GROUP %s\n", opts.Version)
	fmt.Fprintf(bw, "GROUP: %10d ELEMENTS: %10d MATERIAL: %10d NFLAGS: %10d\n", 1, nelem, opts.Material, 1)
	fmt.Fprintf(bw, "%32s\n", opts.GroupName)
	fmt.Fprintf(bw, "%8d\n", 0)
	for e := 1; e <= nelem; e++ {
		fmt.Fprintf(bw, "%8d", e)
		if e%10 == 0 || e == nelem {
			bw.WriteByte('\n')
		}
	}
	fmt.Fprintf(bw, "ENDOFSECTION\n")
	return bw.Flush()
}
