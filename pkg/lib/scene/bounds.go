package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bound is an axis-aligned box. The zero value is empty.
type Bound struct {
	Min, Max r3.Vec
	valid    bool
}

// BoundOf returns the smallest box holding pts.
func BoundOf(pts ...r3.Vec) Bound {
	var b Bound
	for _, p := range pts {
		b.Extend(p)
	}
	return b
}

func (b Bound) IsEmpty() bool { return !b.valid }

func (b *Bound) Extend(p r3.Vec) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return
	}
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

func (b Bound) Union(o Bound) Bound {
	if !o.valid {
		return b
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
	return b
}

func (b Bound) Center() r3.Vec { return r3.Scale(0.5, r3.Add(b.Min, b.Max)) }

func (b Bound) Size() r3.Vec {
	if !b.valid {
		return r3.Vec{}
	}
	return r3.Sub(b.Max, b.Min)
}

func (b Bound) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}

func (b Bound) Corners() [8]r3.Vec {
	var c [8]r3.Vec
	for i := range c {
		c[i] = b.Min
		if i&1 != 0 {
			c[i].X = b.Max.X
		}
		if i&2 != 0 {
			c[i].Y = b.Max.Y
		}
		if i&4 != 0 {
			c[i].Z = b.Max.Z
		}
	}
	return c
}

// Transform returns the box holding the transformed corners of b.
func (b Bound) Transform(a Affine) Bound {
	if !b.valid {
		return b
	}
	var out Bound
	for _, c := range b.Corners() {
		out.Extend(a.Apply(c))
	}
	return out
}

var pointBased = map[string]bool{
	"Mesh": true, "Points": true, "BasisCurves": true, "NurbsCurves": true,
	"NurbsPatch": true, "HermiteCurves": true, "TetMesh": true,
}

func axisIndex(axis string) int {
	switch axis {
	case "X":
		return 0
	case "Y":
		return 1
	}
	return 2
}

func setAxis(v *r3.Vec, i int, f float64) {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
}

// axisBox is a box with half size along along the axis and radius across it.
func axisBox(axis string, along, across float64) Bound {
	half := r3.Vec{X: across, Y: across, Z: across}
	setAxis(&half, axisIndex(axis), along)
	return BoundOf(r3.Scale(-1, half), half)
}

// LocalExtent is the prim's bound in its own space: the authored extent,
// else the bound of its points, else the extent implied by a gprim's
// schema attributes.
func LocalExtent(p *Prim) (Bound, bool) {
	if v, ok := p.Get("extent"); ok {
		if pts, ok := v.Vecs(); ok && len(pts) == 2 {
			return BoundOf(pts...), true
		}
	}
	if pointBased[p.TypeName] {
		if v, ok := p.Get("points"); ok {
			if pts, ok := v.Vecs(); ok && len(pts) > 0 {
				return BoundOf(pts...), true
			}
		}
		return Bound{}, false
	}

	axis := p.Token("axis", "Z")
	switch p.TypeName {
	case "Cube":
		h := p.Float("size", 2) / 2
		return BoundOf(r3.Vec{X: -h, Y: -h, Z: -h}, r3.Vec{X: h, Y: h, Z: h}), true
	case "Sphere":
		r := p.Float("radius", 1)
		return BoundOf(r3.Vec{X: -r, Y: -r, Z: -r}, r3.Vec{X: r, Y: r, Z: r}), true
	case "Cylinder", "Cone":
		return axisBox(axis, p.Float("height", 2)/2, p.Float("radius", 1)), true
	case "Capsule":
		r := p.Float("radius", 0.5)
		return axisBox(axis, p.Float("height", 1)/2+r, r), true
	case "Plane":
		w, l := p.Float("width", 2)/2, p.Float("length", 2)/2
		var half r3.Vec
		switch axis {
		case "X":
			half = r3.Vec{Y: l, Z: w}
		case "Y":
			half = r3.Vec{X: w, Z: l}
		default:
			half = r3.Vec{X: w, Y: l}
		}
		return BoundOf(r3.Scale(-1, half), half), true
	}
	return Bound{}, false
}

// DefaultPurposes are the purposes included in world bounds.
var DefaultPurposes = []string{"default", "render"}

// WorldBound is the world-space bound of the traversable geometry whose
// purpose is in purposes (DefaultPurposes when none are given). Invisible
// subtrees are skipped.
func (s *Stage) WorldBound(purposes ...string) Bound {
	if len(purposes) == 0 {
		purposes = DefaultPurposes
	}
	include := map[string]bool{}
	for _, p := range purposes {
		include[p] = true
	}

	var out Bound
	var walk func(p *Prim, parent Affine, inherited string)
	walk = func(p *Prim, parent Affine, inherited string) {
		if !traversable(p) || p.Token("visibility", "inherited") == "invisible" {
			return
		}
		purpose := inherited
		if purpose == "default" {
			purpose = p.Token("purpose", "default")
		}
		local, reset, err := LocalTransform(p)
		if err != nil {
			logger.Printf("%v", err)
		}
		world := local
		if !reset {
			world = local.Then(parent)
		}
		if include[purpose] {
			if b, ok := LocalExtent(p); ok {
				out = out.Union(b.Transform(world))
			}
		}
		for _, c := range p.Children {
			walk(c, world, purpose)
		}
	}
	for _, p := range s.Layer.Prims {
		walk(p, Identity(), "default")
	}
	return out
}
