package camera

import "github.com/riwanou/wgpu-lua-fun/engine/transform"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithFovy sets the vertical field of view in degrees.
//
// Parameters:
//   - fovy: the vertical field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that applies the field of view to a camera
func WithFovy(fovy float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fovy = fovy
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: the near plane distance
//   - far: the far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that applies the clip planes to a camera
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithTransform replaces the camera's transform.
//
// Parameters:
//   - t: the transform the camera should follow
//
// Returns:
//   - CameraBuilderOption: a function that applies the transform to a camera
func WithTransform(t *transform.Transform) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.transform = t
	}
}
