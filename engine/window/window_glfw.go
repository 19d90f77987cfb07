package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/riwanou/wgpu-lua-fun/common"
)

// glfwWindow is the GLFW platformWindow.
// Reference: https://www.glfw.org/docs/latest/window_guide.html
type glfwWindow struct {
	owner  *engineWindow
	handle *glfw.Window
	closed bool
}

var _ platformWindow = &glfwWindow{}

// newGLFWWindow creates the native window and routes its events to owner. GLFW must be used
// from the thread that initialized it, so the calling goroutine is locked to its thread.
func newGLFWWindow(owner *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU drives the surface, so no OpenGL context is created
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfwBool(owner.resizable))

	handle, err := glfw.CreateWindow(owner.width, owner.height, owner.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	l := owner.limits
	handle.SetSizeLimits(glfwLimit(l.minWidth), glfwLimit(l.minHeight), glfwLimit(l.maxWidth), glfwLimit(l.maxHeight))

	g := &glfwWindow{owner: owner, handle: handle}
	g.registerCallbacks()

	// the framebuffer can be larger than the requested size on high-DPI displays
	owner.width, owner.height = handle.GetFramebufferSize()
	return g, nil
}

// registerCallbacks forwards GLFW events to the owner's callbacks.
// Reference: https://www.glfw.org/docs/latest/input_guide.html
func (g *glfwWindow) registerCallbacks() {
	w := g.owner

	g.handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			g.escape()
			return
		}
		if action == glfw.Repeat {
			action = glfw.Press
		}
		w.key(uint32(key), action == glfw.Press)
	})

	// mouse buttons share the key path, offset past every GLFW key code
	g.handle.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		w.key(uint32(common.MouseButtonOffset+int(button)), action == glfw.Press)
	})

	g.handle.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if w.on.focus != nil {
			w.on.focus(focused)
		}
	})
	g.handle.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if w.on.cursorEnter != nil {
			w.on.cursorEnter(entered)
		}
	})
	g.handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.on.mouseMove != nil {
			w.on.mouseMove(int32(x), int32(y))
		}
	})
	g.handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.framebufferResized(width, height)
	})
}

// escape releases a grabbed cursor, or closes the window when the cursor is free.
func (g *glfwWindow) escape() {
	if g.owner.grabbed {
		g.owner.ReleaseCursor()
		return
	}
	g.handle.SetShouldClose(true)
}

func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.handle)
}

func (g *glfwWindow) running() bool {
	return !g.closed && !g.handle.ShouldClose()
}

func (g *glfwWindow) poll() bool {
	glfw.PollEvents()
	return g.running()
}

// setCursorGrabbed disables the cursor for unbounded movement, with raw motion when supported.
// Reference: https://www.glfw.org/docs/latest/input_guide.html#cursor_mode
func (g *glfwWindow) setCursorGrabbed(grab bool) {
	raw := glfw.RawMouseMotionSupported()
	if grab {
		g.handle.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		if raw {
			g.handle.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
		return
	}
	if raw {
		g.handle.SetInputMode(glfw.RawMouseMotion, glfw.False)
	}
	g.handle.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
}

func (g *glfwWindow) close() {
	if g.closed {
		return
	}
	g.closed = true
	g.handle.Destroy()
	glfw.Terminate()
}

func glfwBool(v bool) int {
	if v {
		return glfw.True
	}
	return glfw.False
}

// glfwLimit maps an unconstrained size bound to glfw.DontCare.
func glfwLimit(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}
