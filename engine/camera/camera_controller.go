package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// cameraControllerImpl is the implementation of CameraController.
// It keeps yaw and pitch as the source of truth and rebuilds the transform's rotation from
// them, so mouse look never accumulates roll.
type cameraControllerImpl struct {
	mu *sync.Mutex

	transform *transform.Transform

	yaw   float32 // radians around world Y, 0 looks down -Z
	pitch float32 // radians from the horizontal plane

	minPitch float32
	maxPitch float32

	moveSpeed        float32
	mouseSensitivity float32
}

// CameraController drives a transform with first-person fly controls: mouse look through yaw and
// pitch, and movement along the transform's local axes. Entities own the input mapping and feed
// the controller per frame.
type CameraController interface {
	// Look turns the transform by a mouse delta. Positive dx turns right, positive dy turns
	// down. Pitch is clamped to the controller's bounds.
	//
	// Parameters:
	//   - dx: horizontal mouse delta in pixels
	//   - dy: vertical mouse delta in pixels
	Look(dx, dy float32)

	// Move translates the transform along its forward and right axes and world up. The
	// combined direction is normalized, so diagonal movement is not faster.
	//
	// Parameters:
	//   - forward: -1, 0 or 1 along Forward
	//   - right: -1, 0 or 1 along Right
	//   - up: -1, 0 or 1 along world +Y
	//   - dt: seconds since the previous frame
	Move(forward, right, up, dt float32)

	// Sync re-reads yaw and pitch from the transform's current orientation. Call it after
	// rotating the transform directly, e.g. with LookAt.
	Sync()

	// Yaw returns the current horizontal angle.
	//
	// Returns:
	//   - float32: yaw in radians, 0 facing -Z
	Yaw() float32

	// Pitch returns the current vertical angle.
	//
	// Returns:
	//   - float32: pitch in radians, positive looking up
	Pitch() float32

	// MoveSpeed returns the movement speed.
	//
	// Returns:
	//   - float32: units per second
	MoveSpeed() float32

	// MouseSensitivity returns the mouse look multiplier.
	//
	// Returns:
	//   - float32: radians per pixel
	MouseSensitivity() float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a fly controller for t, reading the initial yaw and pitch from
// its orientation.
//
// Parameters:
//   - t: the transform to drive, typically Camera.Transform()
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(t *transform.Transform, options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:               &sync.Mutex{},
		transform:        t,
		minPitch:         common.ToRadians(-89),
		maxPitch:         common.ToRadians(89),
		moveSpeed:        5.0,
		mouseSensitivity: 0.003,
	}
	for _, opt := range options {
		opt(cc)
	}
	cc.Sync()
	return cc
}

func (cc *cameraControllerImpl) Sync() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	f := cc.transform.Forward()
	cc.yaw = float32(math.Atan2(float64(-f[0]), float64(-f[2])))
	cc.pitch = common.Clamp(float32(math.Asin(float64(common.Clamp(f[1], -1, 1)))), cc.minPitch, cc.maxPitch)
	cc.apply()
}

// apply rebuilds the rotation as yaw about world Y followed by pitch about local X.
func (cc *cameraControllerImpl) apply() {
	yaw := mgl32.QuatRotate(cc.yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(cc.pitch, mgl32.Vec3{1, 0, 0})
	cc.transform.Rotation = yaw.Mul(pitch).Normalize()
}

func (cc *cameraControllerImpl) Look(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw -= dx * cc.mouseSensitivity
	cc.yaw = float32(math.Remainder(float64(cc.yaw), 2*math.Pi))
	cc.pitch = common.Clamp(cc.pitch-dy*cc.mouseSensitivity, cc.minPitch, cc.maxPitch)
	cc.apply()
}

func (cc *cameraControllerImpl) Move(forward, right, up, dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	dir := cc.transform.Forward().Mul(forward).
		Add(cc.transform.Right().Mul(right)).
		Add(mgl32.Vec3{0, up, 0})
	if dir.Len() < 1e-6 {
		return
	}
	cc.transform.Translate(dir.Normalize().Mul(cc.moveSpeed * dt))
}

func (cc *cameraControllerImpl) Yaw() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.yaw
}

func (cc *cameraControllerImpl) Pitch() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pitch
}

func (cc *cameraControllerImpl) MoveSpeed() float32 {
	return cc.moveSpeed
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	return cc.mouseSensitivity
}
