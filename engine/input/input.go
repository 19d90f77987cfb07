package input

import (
	"fmt"
	"log"
	"slices"
	"sync"
)

// EventSource is the subset of a window that feeds Inputs. window.Window satisfies it.
type EventSource interface {
	SetKeyDownCallback(callback func(keyCode uint32))
	SetKeyUpCallback(callback func(keyCode uint32))
	SetMouseMoveCallback(callback func(x, y int32))
	SetFocusCallback(callback func(focused bool))
	SetCursorEnterCallback(callback func(entered bool))
}

// inputs is the implementation of the Inputs interface.
type inputs struct {
	mu *sync.Mutex

	bindings [actionCount][]uint32

	down     map[uint32]bool
	justDown map[uint32]bool

	// hasCursor is false until the first mouse move so the first position yields no delta.
	hasCursor      bool
	lastX, lastY   int32
	deltaX, deltaY float32

	focused      bool
	cursorInside bool

	// unknownLogged holds action values already reported as unknown.
	unknownLogged map[Action]bool
}

// Inputs tracks keyboard, mouse and window-state input for the current frame and maps keys
// to the closed Action set.
//
// Key and mouse events arrive through the KeyDown, KeyUp and MouseMove methods, usually wired
// to a window with Attach. EndFrame is called by the frame driver after the frame has run.
type Inputs interface {
	// RegisterAction replaces the keys bound to an action.
	//
	// Parameters:
	//   - action: the action to bind
	//   - keys: the key codes (see common.Key*) that trigger it
	//
	// Returns:
	//   - error: an error wrapping ErrUnknownAction if action is outside the action set
	RegisterAction(action Action, keys ...uint32) error

	// Bindings returns the keys currently bound to an action.
	//
	// Parameters:
	//   - action: the action
	//
	// Returns:
	//   - []uint32: the bound key codes, nil for an unknown action
	Bindings(action Action) []uint32

	// Pressed reports whether any key bound to action is held. Unknown actions are never pressed.
	//
	// Parameters:
	//   - action: the action to poll
	//
	// Returns:
	//   - bool: true while a bound key is down
	Pressed(action Action) bool

	// JustPressed reports whether a key bound to action went down during the current frame.
	//
	// Parameters:
	//   - action: the action to poll
	//
	// Returns:
	//   - bool: true on the frame the action was triggered
	JustPressed(action Action) bool

	// MouseDelta returns the cursor movement accumulated during the current frame, in pixels.
	//
	// Returns:
	//   - float32: horizontal movement, positive to the right
	//   - float32: vertical movement, positive downwards
	MouseDelta() (dx, dy float32)

	// Focused reports whether the window has input focus.
	Focused() bool

	// CursorInside reports whether the cursor is inside the window.
	CursorInside() bool

	// KeyDown records a key press. Repeats of a held key are ignored.
	KeyDown(keyCode uint32)

	// KeyUp records a key release.
	KeyUp(keyCode uint32)

	// MouseMove records the cursor position and accumulates the delta from the previous one.
	MouseMove(x, y int32)

	// SetFocused records a window focus change. Losing focus releases every held key.
	SetFocused(focused bool)

	// SetCursorInside records the cursor entering or leaving the window.
	SetCursorInside(inside bool)

	// EndFrame clears the just-pressed state and the mouse delta.
	EndFrame()
}

var _ Inputs = &inputs{}

// NewInputs creates an Inputs with the default bindings: W/S/A/D for forward, backward, left
// and right, Space for up, LeftShift for down, E for interact and F for focus.
//
// Parameters:
//   - options: variadic list of InputsBuilderOption functions
//
// Returns:
//   - Inputs: the new input state
func NewInputs(options ...InputsBuilderOption) Inputs {
	in := &inputs{
		mu:            &sync.Mutex{},
		down:          make(map[uint32]bool),
		justDown:      make(map[uint32]bool),
		focused:       true,
		cursorInside:  true,
		unknownLogged: make(map[Action]bool),
	}
	for a, keys := range defaultBindings {
		in.bindings[a] = slices.Clone(keys)
	}
	for _, opt := range options {
		opt(in)
	}
	return in
}

// Attach wires the callbacks of src to in.
//
// Parameters:
//   - in: the input state to feed
//   - src: the event source, usually a window.Window
func Attach(in Inputs, src EventSource) {
	src.SetKeyDownCallback(in.KeyDown)
	src.SetKeyUpCallback(in.KeyUp)
	src.SetMouseMoveCallback(in.MouseMove)
	src.SetFocusCallback(in.SetFocused)
	src.SetCursorEnterCallback(in.SetCursorInside)
}

func (in *inputs) RegisterAction(action Action, keys ...uint32) error {
	if !action.Valid() {
		return fmt.Errorf("register %v: %w", action, ErrUnknownAction)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.bindings[action] = slices.Clone(keys)
	return nil
}

func (in *inputs) Bindings(action Action) []uint32 {
	if !action.Valid() {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.bindings[action])
}

func (in *inputs) Pressed(action Action) bool {
	return in.anyBound(action, in.down)
}

func (in *inputs) JustPressed(action Action) bool {
	return in.anyBound(action, in.justDown)
}

func (in *inputs) anyBound(action Action, keys map[uint32]bool) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !action.Valid() {
		if !in.unknownLogged[action] {
			in.unknownLogged[action] = true
			log.Printf("[Input] %v: %v", ErrUnknownAction, action)
		}
		return false
	}
	for _, k := range in.bindings[action] {
		if keys[k] {
			return true
		}
	}
	return false
}

func (in *inputs) MouseDelta() (float32, float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.deltaX, in.deltaY
}

func (in *inputs) Focused() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.focused
}

func (in *inputs) CursorInside() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cursorInside
}

func (in *inputs) KeyDown(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.down[keyCode] {
		return
	}
	in.down[keyCode] = true
	in.justDown[keyCode] = true
}

func (in *inputs) KeyUp(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.down, keyCode)
}

func (in *inputs) MouseMove(x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.hasCursor {
		in.deltaX += float32(x - in.lastX)
		in.deltaY += float32(y - in.lastY)
	}
	in.lastX, in.lastY = x, y
	in.hasCursor = true
}

func (in *inputs) SetFocused(focused bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.focused = focused
	if !focused {
		// key-up events are not delivered to an unfocused window
		clear(in.down)
		in.hasCursor = false
	}
}

func (in *inputs) SetCursorInside(inside bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cursorInside = inside
	if !inside {
		in.hasCursor = false
	}
}

func (in *inputs) EndFrame() {
	in.mu.Lock()
	defer in.mu.Unlock()
	clear(in.justDown)
	in.deltaX, in.deltaY = 0, 0
}
