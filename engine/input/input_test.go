package input

import (
	"errors"
	"slices"
	"testing"

	"github.com/riwanou/wgpu-lua-fun/common"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		want    Action
		wantErr bool
	}{
		{"forward", ActionForward, false},
		{"backward", ActionBackward, false},
		{"left", ActionLeft, false},
		{"right", ActionRight, false},
		{"up", ActionUp, false},
		{"down", ActionDown, false},
		{"interact", ActionInteract, false},
		{"focus", ActionFocus, false},
		{" Forward ", ActionForward, false},
		{"jump", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownAction) {
				t.Errorf("ParseAction(%q) error = %v, want ErrUnknownAction", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAction(%q) = %v, %v, want %v", tt.name, got, err, tt.want)
		}
		if got.String() != actionNames[tt.want] {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), actionNames[tt.want])
		}
	}
}

func TestDefaultBindings(t *testing.T) {
	in := NewInputs()
	tests := []struct {
		key    uint32
		action Action
	}{
		{common.KeyW, ActionForward},
		{common.KeyS, ActionBackward},
		{common.KeyA, ActionLeft},
		{common.KeyD, ActionRight},
		{common.KeySpace, ActionUp},
		{common.KeyLeftShift, ActionDown},
		{common.KeyE, ActionInteract},
		{common.KeyF, ActionFocus},
	}
	for _, tt := range tests {
		in.KeyDown(tt.key)
		for _, a := range Actions() {
			if got := in.Pressed(a); got != (a == tt.action) {
				t.Errorf("key %d held: Pressed(%v) = %v, want %v", tt.key, a, got, a == tt.action)
			}
		}
		in.KeyUp(tt.key)
	}
}

func TestJustPressedLastsOneFrame(t *testing.T) {
	in := NewInputs()

	in.KeyDown(common.KeyE)
	if !in.Pressed(ActionInteract) || !in.JustPressed(ActionInteract) {
		t.Fatalf("frame 1: Pressed = %v, JustPressed = %v, want true, true", in.Pressed(ActionInteract), in.JustPressed(ActionInteract))
	}
	in.EndFrame()

	in.KeyDown(common.KeyE) // repeat while held
	if !in.Pressed(ActionInteract) || in.JustPressed(ActionInteract) {
		t.Errorf("frame 2: Pressed = %v, JustPressed = %v, want true, false", in.Pressed(ActionInteract), in.JustPressed(ActionInteract))
	}
	in.EndFrame()

	in.KeyUp(common.KeyE)
	if in.Pressed(ActionInteract) {
		t.Errorf("frame 3: Pressed after release = true, want false")
	}
}

func TestTapWithinFrameIsJustPressed(t *testing.T) {
	in := NewInputs()
	in.KeyDown(common.KeyF)
	in.KeyUp(common.KeyF)
	if in.Pressed(ActionFocus) || !in.JustPressed(ActionFocus) {
		t.Errorf("tap: Pressed = %v, JustPressed = %v, want false, true", in.Pressed(ActionFocus), in.JustPressed(ActionFocus))
	}
}

func TestRegisterAction(t *testing.T) {
	in := NewInputs()
	if err := in.RegisterAction(ActionForward, common.KeyQ, common.MouseButtonLeft); err != nil {
		t.Fatalf("RegisterAction() error = %v", err)
	}
	if got := in.Bindings(ActionForward); !slices.Equal(got, []uint32{common.KeyQ, common.MouseButtonLeft}) {
		t.Errorf("Bindings(forward) = %v, want [Q MouseLeft]", got)
	}

	in.KeyDown(common.KeyW)
	if in.Pressed(ActionForward) {
		t.Errorf("old binding W still triggers forward")
	}
	in.KeyDown(common.MouseButtonLeft)
	if !in.Pressed(ActionForward) {
		t.Errorf("mouse button binding does not trigger forward")
	}

	if err := in.RegisterAction(Action(42), common.KeyQ); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("RegisterAction(42) error = %v, want ErrUnknownAction", err)
	}
}

func TestUnknownActionNeverPressed(t *testing.T) {
	in := NewInputs()
	in.KeyDown(common.KeyW)
	for _, a := range []Action{-1, actionCount, 99} {
		if in.Pressed(a) || in.JustPressed(a) {
			t.Errorf("Pressed(%v) = true, want false", a)
		}
	}
}

func TestBuilderBindings(t *testing.T) {
	in := NewInputs(WithoutDefaultBindings(), WithBinding(ActionUp, common.KeyR))
	for _, a := range Actions() {
		want := 0
		if a == ActionUp {
			want = 1
		}
		if got := len(in.Bindings(a)); got != want {
			t.Errorf("len(Bindings(%v)) = %d, want %d", a, got, want)
		}
	}
}

func TestMouseDelta(t *testing.T) {
	in := NewInputs()

	in.MouseMove(100, 100)
	if dx, dy := in.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("delta after first move = (%v, %v), want (0, 0)", dx, dy)
	}
	in.MouseMove(110, 95)
	in.MouseMove(115, 90)
	if dx, dy := in.MouseDelta(); dx != 15 || dy != -10 {
		t.Errorf("accumulated delta = (%v, %v), want (15, -10)", dx, dy)
	}

	in.EndFrame()
	if dx, dy := in.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("delta after EndFrame = (%v, %v), want (0, 0)", dx, dy)
	}

	in.SetCursorInside(false)
	in.MouseMove(500, 500)
	if dx, dy := in.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("delta after re-entering = (%v, %v), want (0, 0)", dx, dy)
	}
}

func TestFocusLossReleasesKeys(t *testing.T) {
	in := NewInputs()
	if !in.Focused() || !in.CursorInside() {
		t.Fatalf("initial Focused = %v, CursorInside = %v, want true, true", in.Focused(), in.CursorInside())
	}

	in.KeyDown(common.KeyW)
	in.SetFocused(false)
	if in.Focused() || in.Pressed(ActionForward) {
		t.Errorf("after focus loss: Focused = %v, Pressed(forward) = %v, want false, false", in.Focused(), in.Pressed(ActionForward))
	}
	in.SetCursorInside(false)
	if in.CursorInside() {
		t.Errorf("CursorInside() = true after leaving")
	}
}

type fakeSource struct {
	keyDown, keyUp func(uint32)
	move           func(x, y int32)
	focus, enter   func(bool)
}

func (f *fakeSource) SetKeyDownCallback(cb func(uint32)) { f.keyDown = cb }
func (f *fakeSource) SetKeyUpCallback(cb func(uint32)) { f.keyUp = cb }
func (f *fakeSource) SetMouseMoveCallback(cb func(x, y int32)) { f.move = cb }
func (f *fakeSource) SetFocusCallback(cb func(focused bool)) { f.focus = cb }
func (f *fakeSource) SetCursorEnterCallback(cb func(bool)) { f.enter = cb }

func TestAttach(t *testing.T) {
	in := NewInputs()
	src := &fakeSource{}
	Attach(in, src)

	src.keyDown(common.KeyD)
	if !in.Pressed(ActionRight) {
		t.Errorf("key down through source not recorded")
	}
	src.keyUp(common.KeyD)
	src.move(1, 1)
	src.move(4, 5)
	if dx, dy := in.MouseDelta(); dx != 3 || dy != 4 {
		t.Errorf("MouseDelta() = (%v, %v), want (3, 4)", dx, dy)
	}
	src.focus(false)
	src.enter(false)
	if in.Focused() || in.CursorInside() {
		t.Errorf("focus and enter callbacks not recorded")
	}
}
