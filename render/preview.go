package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/qmesh/internal/d3"
	"github.com/soypat/qmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera and shading of a mesh preview. The mesh is
// scaled to fit the bi-unit cube centered at the origin before drawing.
type View struct {
	// Width and Height of the output image in pixels.
	Width, Height int
	// Supersample renders at this multiple of the output size and then
	// downsamples for antialiasing.
	Supersample int
	Eye         r3.Vec // camera position.
	LookAt      r3.Vec
	Up          r3.Vec
	Light       r3.Vec // light direction.
	FovY        float64
	Near, Far   float64
	// Hex colors of the mesh and the background.
	Color, Background string
}

// DefaultView looks at the origin from the (3,3,3) corner with Z up.
func DefaultView() View {
	return View{
		Width:       960,
		Height:      540,
		Supersample: 2,
		Eye:         d3.Elem(3),
		Up:          r3.Vec{Z: 1},
		Light:       r3.Vec{X: -0.75, Y: 1, Z: 0.25},
		FovY:        30,
		Near:        1,
		Far:         10,
		Color:       "#468966",
		Background:  "#FFF8E3",
	}
}

// Preview renders a Phong shaded image of body.
func Preview(body *mesh.Body, view View) (image.Image, error) {
	if view.Width <= 0 || view.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", view.Width, view.Height)
	}
	scale := view.Supersample
	if scale < 1 {
		scale = 1
	}
	tris := Triangles(body)
	if len(tris) == 0 {
		return nil, errors.New("empty body")
	}
	faux := make([]*fauxgl.Triangle, len(tris))
	for i, t := range tris {
		faux[i] = fauxgl.NewTriangleForPoints(fauxVec(t.V[0]), fauxVec(t.V[1]), fauxVec(t.V[2]))
	}
	m := fauxgl.NewTriangleMesh(faux)
	m.BiUnitCube()

	var (
		eye    = fauxVec(view.Eye)
		center = fauxVec(view.LookAt)
		up     = fauxVec(view.Up)
		light  = fauxVec(view.Light).Normalize()
	)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.FovY, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(m)
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePreview renders body and writes the image to a PNG file.
func SavePreview(path string, body *mesh.Body, view View) error {
	img, err := Preview(body, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fauxVec(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
