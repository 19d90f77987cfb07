package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

func TestControllerSyncsFromLookAt(t *testing.T) {
	tr := transform.New(mgl32.Vec3{0, 4, 12})
	tr.LookAt(mgl32.Vec3{0, 4, 0})
	cc := NewCameraController(tr)
	if math.Abs(float64(cc.Yaw())) > 1e-5 || math.Abs(float64(cc.Pitch())) > 1e-5 {
		t.Errorf("yaw, pitch = %v, %v, want 0, 0 facing -Z", cc.Yaw(), cc.Pitch())
	}

	tr.LookAt(mgl32.Vec3{-10, 4, 12})
	cc.Sync()
	if math.Abs(float64(cc.Yaw()-math.Pi/2)) > 1e-4 {
		t.Errorf("yaw facing -X = %v, want pi/2", cc.Yaw())
	}
}

func TestControllerLook(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float32
		check  func(f mgl32.Vec3) bool
	}{
		{"right", 100, 0, func(f mgl32.Vec3) bool { return f[0] > 0 }},
		{"left", -100, 0, func(f mgl32.Vec3) bool { return f[0] < 0 }},
		{"down", 0, 100, func(f mgl32.Vec3) bool { return f[1] < 0 }},
		{"up", 0, -100, func(f mgl32.Vec3) bool { return f[1] > 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := transform.New(mgl32.Vec3{})
			cc := NewCameraController(tr, WithMouseSensitivity(0.005))
			cc.Look(tt.dx, tt.dy)
			if f := tr.Forward(); !tt.check(f) {
				t.Errorf("Look(%v, %v) forward = %v", tt.dx, tt.dy, f)
			}
			if r := tr.Right(); math.Abs(float64(r[1])) > 1e-5 {
				t.Errorf("Look(%v, %v) right = %v, want no roll", tt.dx, tt.dy, r)
			}
		})
	}
}

func TestControllerPitchClamped(t *testing.T) {
	tr := transform.New(mgl32.Vec3{})
	cc := NewCameraController(tr, WithPitchBounds(common.ToRadians(-45), common.ToRadians(45)))
	cc.Look(0, -100000)
	if got, want := cc.Pitch(), common.ToRadians(45); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("Pitch() = %v, want %v", got, want)
	}
}

func TestControllerMove(t *testing.T) {
	tr := transform.New(mgl32.Vec3{})
	cc := NewCameraController(tr, WithMoveSpeed(2))

	cc.Move(1, 0, 0, 0.5)
	if !tr.Position.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("position after forward = %v, want (0, 0, -1)", tr.Position)
	}

	tr.SetPosition(mgl32.Vec3{})
	cc.Move(1, 1, 0, 1)
	if got := tr.Position.Len(); math.Abs(float64(got-2)) > 1e-5 {
		t.Errorf("diagonal distance = %v, want 2", got)
	}

	tr.SetPosition(mgl32.Vec3{})
	cc.Move(0, 0, 0, 1)
	if tr.Position != (mgl32.Vec3{}) {
		t.Errorf("position after no input = %v, want origin", tr.Position)
	}
}
