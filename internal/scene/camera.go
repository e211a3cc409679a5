// Package scene holds the scene-side objects driven by the VR controls.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a scene camera with a local transform made of a rotation,
// a position and a uniform scale. Matrix is only refreshed by
// UpdateMatrix and ApplyMatrix.
type Camera struct {
	quaternion mgl64.Quat
	position   mgl64.Vec3
	scale      float64
	matrix     mgl64.Mat4
}

// State is a JSON-friendly snapshot of a camera transform.
type State struct {
	Orientation [4]float64 `json:"orientation"` // x, y, z, w
	Position    [3]float64 `json:"position"`
	Scale       float64    `json:"scale"`
}

// NewCamera returns a camera at the origin with identity rotation and scale 1.
func NewCamera() *Camera {
	return &Camera{
		quaternion: mgl64.QuatIdent(),
		scale:      1,
		matrix:     mgl64.Ident4(),
	}
}

func (c *Camera) Quaternion() mgl64.Quat { return c.quaternion }

func (c *Camera) SetQuaternion(q mgl64.Quat) { c.quaternion = q }

func (c *Camera) Position() mgl64.Vec3 { return c.position }

func (c *Camera) SetPosition(p mgl64.Vec3) { c.position = p }

// SetY replaces the vertical component of the position.
func (c *Camera) SetY(y float64) { c.position[1] = y }

func (c *Camera) Scale() float64 { return c.scale }

func (c *Camera) SetScale(s float64) { c.scale = s }

func (c *Camera) Matrix() mgl64.Mat4 { return c.matrix }

// UpdateMatrix composes the local matrix from position, rotation and scale.
func (c *Camera) UpdateMatrix() {
	c.matrix = compose(c.position, c.quaternion, c.scale)
}

// ApplyMatrix premultiplies the local matrix by m and decomposes the
// result back into position, rotation and scale. Non-uniform scale in m
// is collapsed to the X axis scale.
func (c *Camera) ApplyMatrix(m mgl64.Mat4) {
	c.matrix = m.Mul4(c.matrix)
	c.position, c.quaternion, c.scale = decompose(c.matrix)
}

// Snapshot returns the current transform.
func (c *Camera) Snapshot() State {
	q := c.quaternion
	return State{
		Orientation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		Position:    [3]float64(c.position),
		Scale:       c.scale,
	}
}

func compose(p mgl64.Vec3, q mgl64.Quat, s float64) mgl64.Mat4 {
	t := mgl64.Translate3D(p[0], p[1], p[2])
	return t.Mul4(q.Mat4()).Mul4(mgl64.Scale3D(s, s, s))
}

func decompose(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, float64) {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}

	pos := m.Col(3).Vec3()
	if sx == 0 || sy == 0 || sz == 0 {
		return pos, mgl64.QuatIdent(), sx
	}

	rot := mgl64.Ident4()
	rot.SetCol(0, m.Col(0).Mul(1/sx))
	rot.SetCol(1, m.Col(1).Mul(1/sy))
	rot.SetCol(2, m.Col(2).Mul(1/sz))
	rot.SetCol(3, mgl64.Vec4{0, 0, 0, 1})

	return pos, mgl64.Mat4ToQuat(rot).Normalize(), sx
}
