package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPitchBounds sets the vertical look limits.
//
// Parameters:
//   - min: minimum pitch in radians
//   - max: maximum pitch in radians
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithPitchBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if min > max {
			min, max = max, min
		}
		cc.minPitch = min
		cc.maxPitch = max
	}
}

// WithMoveSpeed sets the movement speed.
//
// Parameters:
//   - speed: units per second
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.moveSpeed = speed
	}
}

// WithMouseSensitivity sets the mouse look multiplier.
//
// Parameters:
//   - sensitivity: radians per pixel of mouse movement
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}
