package transform

import "github.com/go-gl/mathgl/mgl32"

// TransformBuilderOption is a functional option used to configure a Transform during construction.
type TransformBuilderOption func(*Transform)

// WithRotation sets the initial orientation. The quaternion is normalized on construction.
//
// Parameters:
//   - q: the initial rotation
//
// Returns:
//   - TransformBuilderOption: a function that sets the rotation
func WithRotation(q mgl32.Quat) TransformBuilderOption {
	return func(t *Transform) {
		t.Rotation = q
	}
}

// WithScale sets the initial per-axis scale.
//
// Parameters:
//   - scale: the initial scale
//
// Returns:
//   - TransformBuilderOption: a function that sets the scale
func WithScale(scale mgl32.Vec3) TransformBuilderOption {
	return func(t *Transform) {
		t.Scale = scale
	}
}

// WithUniformScale sets the same scale on all three axes.
func WithUniformScale(s float32) TransformBuilderOption {
	return func(t *Transform) {
		t.Scale = mgl32.Vec3{s, s, s}
	}
}

// WithUp sets the reference up vector used by LookAt and LookTo.
func WithUp(up mgl32.Vec3) TransformBuilderOption {
	return func(t *Transform) {
		t.Up = up
	}
}
