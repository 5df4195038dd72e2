package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Affine maps p to L*p + T.
type Affine struct {
	L [3][3]float64
	T r3.Vec
}

func Identity() Affine {
	return Affine{L: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

func Translate(v r3.Vec) Affine {
	a := Identity()
	a.T = v
	return a
}

func Scale(v r3.Vec) Affine {
	return Affine{L: [3][3]float64{{v.X, 0, 0}, {0, v.Y, 0}, {0, 0, v.Z}}}
}

// Rotate returns a right-handed rotation of deg degrees about axis 0, 1 or 2.
func Rotate(axis int, deg float64) Affine {
	s, c := math.Sincos(deg * math.Pi / 180)
	switch axis {
	case 0:
		return Affine{L: [3][3]float64{{1, 0, 0}, {0, c, -s}, {0, s, c}}}
	case 1:
		return Affine{L: [3][3]float64{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}}
	default:
		return Affine{L: [3][3]float64{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}}
	}
}

// Quat returns the rotation of the quaternion (w, x, y, z).
func Quat(w, x, y, z float64) Affine {
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n == 0 {
		return Identity()
	}
	w, x, y, z = w/n, x/n, y/n, z/n
	return Affine{L: [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}}
}

// FromRowMatrix converts a row-major matrix4d in the row-vector convention,
// with the translation in the last row.
func FromRowMatrix(m []float64) (Affine, error) {
	if len(m) != 16 {
		return Affine{}, fmt.Errorf("matrix4d needs 16 values, got %d", len(m))
	}
	var a Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a.L[i][j] = m[j*4+i]
		}
	}
	a.T = r3.Vec{X: m[12], Y: m[13], Z: m[14]}
	return a, nil
}

// RowMatrix is the inverse of FromRowMatrix.
func (a Affine) RowMatrix() [16]float64 {
	var m [16]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[j*4+i] = a.L[i][j]
		}
	}
	m[12], m[13], m[14], m[15] = a.T.X, a.T.Y, a.T.Z, 1
	return m
}

func (a Affine) mulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: a.L[0][0]*v.X + a.L[0][1]*v.Y + a.L[0][2]*v.Z,
		Y: a.L[1][0]*v.X + a.L[1][1]*v.Y + a.L[1][2]*v.Z,
		Z: a.L[2][0]*v.X + a.L[2][1]*v.Y + a.L[2][2]*v.Z,
	}
}

func (a Affine) Apply(p r3.Vec) r3.Vec {
	return r3.Add(a.mulVec(p), a.T)
}

// Then returns the transform that applies a first and b second.
func (a Affine) Then(b Affine) Affine {
	var out Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.L[i][j] = b.L[i][0]*a.L[0][j] + b.L[i][1]*a.L[1][j] + b.L[i][2]*a.L[2][j]
		}
	}
	out.T = b.Apply(a.T)
	return out
}

// Inverse returns false for singular transforms.
func (a Affine) Inverse() (Affine, bool) {
	m := a.L
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if det == 0 || math.IsNaN(det) {
		return Affine{}, false
	}
	inv := 1 / det
	var out Affine
	out.L = [3][3]float64{
		{(m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv, (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv, (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv},
		{(m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv, (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv, (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv},
		{(m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv, (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv, (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv},
	}
	out.T = r3.Scale(-1, out.mulVec(a.T))
	return out, true
}

var rotateOrders = map[string]string{
	"rotateXYZ": "XYZ", "rotateXZY": "XZY", "rotateYXZ": "YXZ",
	"rotateYZX": "YZX", "rotateZXY": "ZXY", "rotateZYX": "ZYX",
}

// opTransform evaluates one xform op from its default value.
func opTransform(opType string, v Value) (Affine, error) {
	switch opType {
	case "translate":
		t, ok := v.Vec()
		if !ok {
			return Affine{}, fmt.Errorf("translate needs a 3-vector")
		}
		return Translate(t), nil
	case "scale":
		if f, ok := v.Float(); ok {
			return Scale(r3.Vec{X: f, Y: f, Z: f}), nil
		}
		s, ok := v.Vec()
		if !ok {
			return Affine{}, fmt.Errorf("scale needs a 3-vector")
		}
		return Scale(s), nil
	case "rotateX", "rotateY", "rotateZ":
		deg, ok := v.Float()
		if !ok {
			return Affine{}, fmt.Errorf("%s needs an angle", opType)
		}
		return Rotate(int(opType[len(opType)-1]-'X'), deg), nil
	case "orient":
		q, ok := v.Floats()
		if !ok || len(q) != 4 {
			return Affine{}, fmt.Errorf("orient needs a quaternion")
		}
		return Quat(q[0], q[1], q[2], q[3]), nil
	case "transform":
		m, ok := v.Floats()
		if !ok {
			return Affine{}, fmt.Errorf("transform needs a matrix4d")
		}
		return FromRowMatrix(m)
	}
	if order, ok := rotateOrders[opType]; ok {
		r, ok := v.Vec()
		if !ok {
			return Affine{}, fmt.Errorf("%s needs a 3-vector", opType)
		}
		angles := [3]float64{r.X, r.Y, r.Z}
		out := Identity()
		for _, axis := range order {
			i := int(axis - 'X')
			out = out.Then(Rotate(i, angles[i]))
		}
		return out, nil
	}
	return Affine{}, fmt.Errorf("unsupported xform op %q", opType)
}

// LocalTransform composes the prim's xform ops in xformOpOrder. The last op
// in the order is applied to points first. reset reports a
// "!resetXformStack!" entry, which discards the parent transform.
func LocalTransform(p *Prim) (local Affine, reset bool, err error) {
	local = Identity()
	v, ok := p.Get("xformOpOrder")
	if !ok {
		return local, false, nil
	}
	order, ok := v.Strings()
	if !ok {
		return local, false, fmt.Errorf("%s: xformOpOrder is not a token list", p.path)
	}
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if name == "!resetXformStack!" {
			reset = true
			continue
		}
		opType, attr, invert := splitOpName(name)
		val, ok := p.Get(attr)
		if !ok {
			continue
		}
		op, err := opTransform(opType, val)
		if err != nil {
			return Identity(), false, fmt.Errorf("%s.%s: %w", p.path, attr, err)
		}
		if invert {
			if op, ok = op.Inverse(); !ok {
				return Identity(), false, fmt.Errorf("%s.%s: cannot invert singular op", p.path, attr)
			}
		}
		local = local.Then(op)
	}
	return local, reset, nil
}

// LookAt returns the camera transform at eye looking at target. Cameras look
// down their local -Z axis with +Y up.
func LookAt(eye, target, up r3.Vec) Affine {
	z := r3.Sub(eye, target)
	if r3.Norm(z) == 0 {
		z = r3.Vec{Z: 1}
	}
	z = r3.Unit(z)
	x := r3.Cross(up, z)
	if r3.Norm(x) < 1e-9 {
		// up is parallel to the view direction.
		alt := r3.Vec{X: 1}
		if math.Abs(z.X) > 0.9 {
			alt = r3.Vec{Y: 1}
		}
		x = r3.Cross(alt, z)
	}
	x = r3.Unit(x)
	y := r3.Cross(z, x)
	return Affine{
		L: [3][3]float64{{x.X, y.X, z.X}, {x.Y, y.Y, z.Y}, {x.Z, y.Z, z.Z}},
		T: eye,
	}
}
