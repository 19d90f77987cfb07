package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	transform *transform.Transform

	fovy float32 // degrees
	near float32
	far  float32
}

// Camera is a perspective viewpoint into the scene.
//
// The camera embeds a Transform that scripts move and rotate like any entity. The view
// matrix is derived from that transform; the projection needs the surface aspect ratio,
// which only the frame driver knows, so it is passed in rather than stored.
type Camera interface {
	// Transform returns the camera's mutable transform.
	//
	// Returns:
	//   - *transform.Transform: the transform driving the view matrix
	Transform() *transform.Transform

	// Fovy returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: the vertical field of view in degrees
	Fovy() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: the near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: the far plane distance
	Far() float32

	// SetFovy sets the vertical field of view in degrees.
	//
	// Parameters:
	//   - fovy: the vertical field of view in degrees
	SetFovy(fovy float32)

	// SetClipPlanes sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: the near plane distance (must be > 0)
	//   - far: the far plane distance (must be > near)
	SetClipPlanes(near, far float32)

	// View returns the view-from-world matrix, the inverse of the camera's rotation-translation matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the clip-from-view matrix for the given aspect ratio.
	// Right-handed, with WebGPU clip-space depth in [0, 1].
	//
	// Parameters:
	//   - aspect: the surface width divided by height
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection(aspect float32) mgl32.Mat4

	// Globals builds the per-frame globals uniform from the camera state.
	//
	// Parameters:
	//   - aspect: the surface width divided by height
	//   - elapsed: seconds since the engine started
	//
	// Returns:
	//   - GPUGlobals: the uniform ready for marshalling
	Globals(aspect, elapsed float32) GPUGlobals
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera positioned at (0, 0, 2) looking down -Z,
// with a 45 degree vertical field of view and clip planes at 0.1 and 100.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions to configure the Camera
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		transform: transform.New(mgl32.Vec3{0, 0, 2}),
		fovy:      45,
		near:      0.1,
		far:       100,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Transform() *transform.Transform {
	return c.transform
}

func (c *cameraImpl) Fovy() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fovy
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetFovy(fovy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fovy = fovy
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	return c.transform.RotationTranslation().Inv()
}

func (c *cameraImpl) Projection(aspect float32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		aspect = 1
	}
	return perspective(common.ToRadians(c.fovy), aspect, c.near, c.far)
}

func (c *cameraImpl) Globals(aspect, elapsed float32) GPUGlobals {
	return GPUGlobals{
		ClipView:  c.Projection(aspect),
		ViewWorld: c.View(),
		Elapsed:   elapsed,
	}
}

// perspective builds a right-handed perspective matrix mapping view-space depth
// [-near, -far] to clip-space depth [0, 1].
func perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}
