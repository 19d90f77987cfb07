package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// A Window is the renderer.Surface the wgpu backend presents to, and the input.EventSource
// feeding the engine's Inputs.
type Window interface {
	// SetUpdateCallback sets the function called once per message loop iteration, after
	// pending events are dispatched.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Mouse buttons are reported
	// here too, as common.MouseButtonOffset plus the button index.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key and mouse button release events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetFocusCallback sets the callback for window focus changes.
	//
	// Parameters:
	//   - callback: function receiving true when the window gains focus
	SetFocusCallback(callback func(focused bool))

	// SetCursorEnterCallback sets the callback for the cursor entering or leaving the window.
	//
	// Parameters:
	//   - callback: function receiving true when the cursor enters
	SetCursorEnterCallback(callback func(entered bool))

	// SetMouseMoveCallback sets the callback for cursor movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	SetMouseMoveCallback(callback func(x, y int32))

	// GrabCursor hides the cursor and locks it to the window for unbounded mouse movement.
	GrabCursor()

	// ReleaseCursor restores the normal cursor. Escape calls it when the cursor is grabbed.
	ReleaseCursor()

	// CursorGrabbed reports whether the cursor is currently grabbed.
	//
	// Returns:
	//   - bool: true between GrabCursor and ReleaseCursor
	CursorGrabbed() bool

	// SurfaceDescriptor returns the platform surface descriptor the wgpu backend creates its
	// surface from.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: false once closed by the user, Escape or Close
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: an error if the window was already closed
	Close() error

	// ProcessMessages runs the message loop until the window closes, calling the update
	// callback once per iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// platformWindow is the native window behind an engineWindow.
type platformWindow interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	running() bool
	// poll dispatches pending events and reports whether the window is still running.
	poll() bool
	setCursorGrabbed(grab bool)
	close()
}

// callbacks are the event handlers registered on a Window. Nil handlers are skipped.
type callbacks struct {
	update      func()
	resize      func(width, height int)
	keyDown     func(keyCode uint32)
	keyUp       func(keyCode uint32)
	focus       func(focused bool)
	cursorEnter func(entered bool)
	mouseMove   func(x, y int32)
}

// sizeLimits holds the resize bounds in pixels; a value <= 0 is unconstrained.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title       string
	limits      sizeLimits
	resizable   bool
	grabOnSpawn bool

	// width and height track the framebuffer, which differs from the requested size on high-DPI displays
	width, height int

	grabbed bool
	on      callbacks

	platform platformWindow
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. It panics if the platform window cannot be created.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "wgpu-lua-fun",
		limits:    sizeLimits{minWidth: 320, minHeight: 180},
		resizable: true,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}

	platform, err := newGLFWWindow(w)
	if err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	w.platform = platform
	if w.grabOnSpawn {
		w.GrabCursor()
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) { w.on.update = callback }

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) { w.on.resize = callback }

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) { w.on.keyDown = callback }

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) { w.on.keyUp = callback }

func (w *engineWindow) SetFocusCallback(callback func(focused bool)) { w.on.focus = callback }

func (w *engineWindow) SetCursorEnterCallback(callback func(entered bool)) {
	w.on.cursorEnter = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) { w.on.mouseMove = callback }

func (w *engineWindow) GrabCursor() {
	if w.platform != nil {
		w.platform.setCursorGrabbed(true)
		w.grabbed = true
	}
}

func (w *engineWindow) ReleaseCursor() {
	if w.platform != nil {
		w.platform.setCursorGrabbed(false)
		w.grabbed = false
	}
}

func (w *engineWindow) CursorGrabbed() bool { return w.grabbed }

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window is not initialized")
	}
	w.platform.close()
	w.platform = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() && w.platform.poll() {
		if w.on.update != nil {
			w.on.update()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int { return w.width }

func (w *engineWindow) Height() int { return w.height }

// key routes a press or release to the matching callback.
func (w *engineWindow) key(code uint32, pressed bool) {
	switch {
	case pressed && w.on.keyDown != nil:
		w.on.keyDown(code)
	case !pressed && w.on.keyUp != nil:
		w.on.keyUp(code)
	}
}

// framebufferResized records the new size and notifies the resize callback.
func (w *engineWindow) framebufferResized(width, height int) {
	w.width, w.height = width, height
	if w.on.resize != nil {
		w.on.resize(width, height)
	}
}
