package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87 // W key (ASCII)
	KeyA     = 65 // A key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyQ     = 81 // Q key (ASCII)
	KeyE     = 69 // E key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)

	KeyEsc = 256 // Escape key (GLFW)
)

// Additional non-printable keys
const (
	KeyLeftShift   = 340 // Left Shift (GLFW)
	KeyLeftControl = 341 // Left Control (GLFW)
	KeyRightShift  = 344 // Right Shift (GLFW)
)

// Mouse buttons are reported through the key path with an offset so a single
// action table can bind either. GLFW button indices start at 0.
const (
	MouseButtonOffset = 1000

	MouseButtonLeft   = MouseButtonOffset + 0
	MouseButtonRight  = MouseButtonOffset + 1
	MouseButtonMiddle = MouseButtonOffset + 2
)
