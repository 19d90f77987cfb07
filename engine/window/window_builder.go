package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area size. The renderer's first surface configuration and
// the camera aspect ratio use it until the first resize.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithSizeLimits bounds the client area while resizing. A zero or negative value leaves that
// bound unconstrained.
//
// Parameters:
//   - minWidth, minHeight: smallest size in pixels
//   - maxWidth, maxHeight: largest size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits = sizeLimits{minWidth, minHeight, maxWidth, maxHeight}
	}
}

// WithResizable controls whether the user can resize the window. Defaults to true.
//
// Parameters:
//   - resizable: false to fix the window size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}

// WithCursorGrabbed grabs the cursor as soon as the window is created, as if GrabCursor had
// been called.
//
// Parameters:
//   - grabbed: true to start with the cursor grabbed
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithCursorGrabbed(grabbed bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.grabOnSpawn = grabbed
	}
}
