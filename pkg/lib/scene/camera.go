package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCameraName is the root prim name given to a synthetic camera.
const DefaultCameraName = "NodleDefaultCamera"

// HorizontalAperture is the default film back width in millimetres.
const HorizontalAperture = 20.955

// Placement is a look-at camera position.
type Placement struct {
	Eye    r3.Vec
	Target r3.Vec
	Up     r3.Vec
	// Radius is the bounding sphere radius around Target; zero when the
	// scene has no bounds.
	Radius float64
}

// PlaceCamera frames b from twice its largest extent, offset above and to
// the side of its center. An empty bound gives a camera at (10, 10, 10)
// looking at the origin.
func PlaceCamera(b Bound, upAxis string) Placement {
	up := r3.Vec{Y: 1}
	if upAxis == "Z" {
		up = r3.Vec{Z: 1}
	}
	if b.IsEmpty() || b.MaxExtent() == 0 {
		target := r3.Vec{}
		if !b.IsEmpty() {
			target = b.Center()
		}
		return Placement{Eye: r3.Add(target, r3.Vec{X: 10, Y: 10, Z: 10}), Target: target, Up: up}
	}
	d := 2 * b.MaxExtent()
	offset := r3.Vec{X: d, Y: 0.7 * d, Z: 0.5 * d}
	if upAxis == "Z" {
		offset = r3.Vec{X: d, Y: 0.5 * d, Z: 0.7 * d}
	}
	center := b.Center()
	return Placement{
		Eye:    r3.Add(center, offset),
		Target: center,
		Up:     up,
		Radius: r3.Norm(b.Size()) / 2,
	}
}

// CameraSpec is a camera prim to add to an exported layer.
type CameraSpec struct {
	Name      string
	Placement Placement
	// Width and Height shape the aperture; zero means square.
	Width, Height int
}

// Path is the camera's prim path.
func (c CameraSpec) Path() string { return "/" + c.Name }

func (c CameraSpec) apertures() (h, v float64) {
	h, v = HorizontalAperture, HorizontalAperture
	if c.Width > 0 && c.Height > 0 {
		v = HorizontalAperture * float64(c.Height) / float64(c.Width)
	}
	return h, v
}

// lens returns a focal length that fits the bounding sphere in the narrower
// aperture, and a clipping range around it.
func (c CameraSpec) lens() (focal, near, far float64) {
	p := c.Placement
	dist := r3.Norm(r3.Sub(p.Eye, p.Target))
	if p.Radius <= 0 || dist <= p.Radius {
		return 50, 0.1, math.Max(1000, 4*dist)
	}
	h, v := c.apertures()
	half := math.Asin(p.Radius / dist)
	focal = math.Min(h, v) / (2 * math.Tan(half*1.1))
	near = math.Max((dist-p.Radius)*0.5, 1e-3)
	far = (dist + p.Radius) * 2
	return focal, near, far
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Prim renders the camera as a text-format root prim.
func (c CameraSpec) Prim() string {
	p := c.Placement
	m := LookAt(p.Eye, p.Target, p.Up).RowMatrix()
	rows := make([]string, 4)
	for i := range rows {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s)",
			formatFloat(m[i*4]), formatFloat(m[i*4+1]), formatFloat(m[i*4+2]), formatFloat(m[i*4+3]))
	}
	h, v := c.apertures()
	focal, near, far := c.lens()

	var b strings.Builder
	fmt.Fprintf(&b, "def Camera \"%s\"\n{\n", c.Name)
	fmt.Fprintf(&b, "    float2 clippingRange = (%s, %s)\n", formatFloat(near), formatFloat(far))
	fmt.Fprintf(&b, "    float focalLength = %s\n", formatFloat(focal))
	fmt.Fprintf(&b, "    float horizontalAperture = %s\n", formatFloat(h))
	fmt.Fprintf(&b, "    float verticalAperture = %s\n", formatFloat(v))
	fmt.Fprintf(&b, "    token projection = \"perspective\"\n")
	fmt.Fprintf(&b, "    matrix4d xformOp:transform = ( %s )\n", strings.Join(rows, ", "))
	fmt.Fprintf(&b, "    uniform token[] xformOpOrder = [\"xformOp:transform\"]\n")
	b.WriteString("}\n")
	return b.String()
}

// UniqueRootName returns base, or base with a numeric suffix, so that it
// does not collide with a root prim of the layer.
func (s *Stage) UniqueRootName(base string) string {
	taken := map[string]bool{}
	for _, n := range s.RootNames() {
		taken[n] = true
	}
	name := base
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}

// SyntheticCamera builds a camera framing the stage's world bound.
func (s *Stage) SyntheticCamera(width, height int) CameraSpec {
	return CameraSpec{
		Name:      s.UniqueRootName(DefaultCameraName),
		Placement: PlaceCamera(s.WorldBound(), s.UpAxis()),
		Width:     width,
		Height:    height,
	}
}
