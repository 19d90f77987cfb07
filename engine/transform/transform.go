package transform

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform holds the position, orientation, and scale of an object in world space.
// Orientation is stored as a unit quaternion so both axis/angle and per-axis rotations
// can be applied to the same underlying state. Derived matrices are computed on every
// read from the current fields, so a read always reflects the latest write.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	// Up is the reference up vector used by LookAt and LookTo.
	Up mgl32.Vec3
}

// New creates a Transform at the given position with identity rotation and unit scale.
//
// Parameters:
//   - pos: the initial world-space position
//   - options: variadic list of TransformBuilderOption functions
//
// Returns:
//   - *Transform: the new transform
func New(pos mgl32.Vec3, options ...TransformBuilderOption) *Transform {
	t := &Transform{
		Position: pos,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Up:       mgl32.Vec3{0, 1, 0},
	}
	for _, opt := range options {
		opt(t)
	}
	t.Rotation = t.Rotation.Normalize()
	return t
}

// SetPosition replaces the world-space position.
func (t *Transform) SetPosition(pos mgl32.Vec3) {
	t.Position = pos
}

// SetScale replaces the per-axis scale.
func (t *Transform) SetScale(scale mgl32.Vec3) {
	t.Scale = scale
}

// Translate offsets the position by delta in world space.
func (t *Transform) Translate(delta mgl32.Vec3) {
	t.Position = t.Position.Add(delta)
}

// RotateLocal applies an incremental rotation about axis expressed in the object's
// current local frame (post-multiplication). A zero axis is ignored.
//
// Parameters:
//   - axis: rotation axis in local space (need not be normalized)
//   - angle: rotation angle in radians
func (t *Transform) RotateLocal(axis mgl32.Vec3, angle float32) {
	q, ok := axisAngle(axis, angle)
	if !ok {
		return
	}
	t.Rotation = t.Rotation.Mul(q).Normalize()
}

// RotateWorld applies an incremental rotation about a fixed world-space axis
// (pre-multiplication). A zero axis is ignored.
//
// Parameters:
//   - axis: rotation axis in world space (need not be normalized)
//   - angle: rotation angle in radians
func (t *Transform) RotateWorld(axis mgl32.Vec3, angle float32) {
	q, ok := axisAngle(axis, angle)
	if !ok {
		return
	}
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// RotateX rotates about the local X axis.
func (t *Transform) RotateX(angle float32) {
	t.RotateLocal(mgl32.Vec3{1, 0, 0}, angle)
}

// RotateY rotates about the local Y axis.
func (t *Transform) RotateY(angle float32) {
	t.RotateLocal(mgl32.Vec3{0, 1, 0}, angle)
}

// RotateZ rotates about the local Z axis.
func (t *Transform) RotateZ(angle float32) {
	t.RotateLocal(mgl32.Vec3{0, 0, 1}, angle)
}

// LookAt orients the transform so that Forward points at target.
// Does nothing when target coincides with the position.
func (t *Transform) LookAt(target mgl32.Vec3) {
	dir := target.Sub(t.Position)
	if dir.Len() == 0 {
		return
	}
	t.LookTo(dir)
}

// LookTo orients the transform so that Forward points along dir, keeping the
// local up as close to Up as possible. Degenerate inputs (zero direction or a
// direction parallel to Up) leave the rotation unchanged.
//
// Parameters:
//   - dir: the world-space direction to face
func (t *Transform) LookTo(dir mgl32.Vec3) {
	if dir.Len() == 0 {
		return
	}
	// Local -Z is forward, so the local +Z column points away from dir.
	back := dir.Normalize().Mul(-1)
	right := t.Up.Cross(back)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	up := back.Cross(right)

	basis := mgl32.Mat3FromCols(right, up, back)
	t.Rotation = mgl32.Mat4ToQuat(basis.Mat4()).Normalize()
}

// Forward returns the unit vector the transform faces (local -Z).
func (t *Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}

// Right returns the unit vector pointing to the transform's right (local +X).
func (t *Transform) Right() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{1, 0, 0}).Normalize()
}

// LocalUp returns the unit vector pointing up in the transform's frame (local +Y).
func (t *Transform) LocalUp() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 1, 0}).Normalize()
}

// Matrix returns the world matrix T * R * S in column-major order.
func (t *Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// RotationTranslation returns T * R, ignoring scale. Cameras invert this to build a view matrix.
func (t *Transform) RotationTranslation() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).Mul4(t.Rotation.Mat4())
}

// NormalMatrix returns the inverse-transpose of the upper-left 3x3 of the world matrix.
// Correct under non-uniform scale. A degenerate (zero) scale yields the rotation matrix.
func (t *Transform) NormalMatrix() mgl32.Mat3 {
	m := t.Matrix().Mat3()
	if m.Det() == 0 {
		return t.Rotation.Mat4().Mat3()
	}
	return m.Inv().Transpose()
}

func axisAngle(axis mgl32.Vec3, angle float32) (mgl32.Quat, bool) {
	if axis.Len() == 0 {
		return mgl32.Quat{}, false
	}
	return mgl32.QuatRotate(angle, axis.Normalize()), true
}
