package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

type call struct {
	mesh, shader, material string
}

func TestBatchesOnePerDistinctKey(t *testing.T) {
	tests := []struct {
		name  string
		calls []call
		want  map[renderer.BatchKey]int
	}{
		{
			name: "single key",
			calls: []call{
				{"cube", "unlit", ""},
				{"cube", "unlit", ""},
				{"cube", "unlit", ""},
			},
			want: map[renderer.BatchKey]int{
				{Mesh: "cube", Shader: "unlit", Material: "unlit"}: 3,
			},
		},
		{
			name: "shader splits",
			calls: []call{
				{"dragon", "player", ""},
				{"dragon", "nebula", ""},
			},
			want: map[renderer.BatchKey]int{
				{Mesh: "dragon", Shader: "player", Material: "player"}: 1,
				{Mesh: "dragon", Shader: "nebula", Material: "nebula"}: 1,
			},
		},
		{
			name: "material splits",
			calls: []call{
				{"quad", "textured", "brick"},
				{"quad", "textured", "grass"},
				{"quad", "textured", "brick"},
				{"cube", "textured", "brick"},
			},
			want: map[renderer.BatchKey]int{
				{Mesh: "quad", Shader: "textured", Material: "brick"}: 2,
				{Mesh: "quad", Shader: "textured", Material: "grass"}: 1,
				{Mesh: "cube", Shader: "textured", Material: "brick"}: 1,
			},
		},
		{
			name: "default shader",
			calls: []call{
				{"cube", "", ""},
				{"cube", "unlit", ""},
			},
			want: map[renderer.BatchKey]int{
				{Mesh: "cube", Shader: "unlit", Material: "unlit"}: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScene("test")
			for _, c := range tt.calls {
				if c.material != "" {
					s.UseMaterial(c.material)
				} else {
					s.ClearMaterial()
				}
				s.BatchModel(c.mesh, c.shader, transform.New(mgl32.Vec3{}))
			}

			batches := s.Batches()
			if len(batches) != len(tt.want) {
				t.Fatalf("len(Batches()) = %d, want %d", len(batches), len(tt.want))
			}
			total := 0
			for _, b := range batches {
				want, ok := tt.want[b.Key]
				if !ok {
					t.Errorf("unexpected batch %s", b.Key)
					continue
				}
				if len(b.Instances) != want {
					t.Errorf("batch %s has %d instances, want %d", b.Key, len(b.Instances), want)
				}
				total += len(b.Instances)
			}
			if s.InstanceCount() != total || total != len(tt.calls) {
				t.Errorf("InstanceCount() = %d, want %d", s.InstanceCount(), len(tt.calls))
			}
		})
	}
}

func TestBatchOrder(t *testing.T) {
	s := NewScene("test")
	positions := []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}

	s.BatchModel("quad", "unlit", transform.New(positions[0]))
	s.BatchModel("cube", "unlit", transform.New(mgl32.Vec3{}))
	s.BatchModel("quad", "unlit", transform.New(positions[1]))
	s.BatchModel("quad", "unlit", transform.New(positions[2]))

	batches := s.Batches()
	if len(batches) != 2 || batches[0].Key.Mesh != "quad" || batches[1].Key.Mesh != "cube" {
		t.Fatalf("Batches() keys = %v, want [quad cube] in first-seen order", batches)
	}
	for i, inst := range batches[0].Instances {
		got := inst.Model.Col(3).Vec3()
		if got != positions[i] {
			t.Errorf("quad instance %d translation = %v, want %v", i, got, positions[i])
		}
	}
}

func TestBatchModelSnapshotsTransform(t *testing.T) {
	s := NewScene("test")
	tr := transform.New(mgl32.Vec3{1, 2, 3})
	s.BatchModel("cube", "", tr)
	tr.SetPosition(mgl32.Vec3{9, 9, 9})

	got := s.Batches()[0].Instances[0].Model.Col(3).Vec3()
	if got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("instance translation = %v, want the position at BatchModel time (1, 2, 3)", got)
	}
}

func TestBatchModelNilTransformIsIdentity(t *testing.T) {
	s := NewScene("test")
	s.BatchModel("cube", "", nil)

	if got := s.Batches()[0].Instances[0].Model; got != mgl32.Ident4() {
		t.Errorf("nil transform model = %v, want identity", got)
	}
}

func TestMaterialContext(t *testing.T) {
	s := NewScene("test", WithDefaultShader("lit"))
	if s.DefaultShader() != "lit" {
		t.Fatalf("DefaultShader() = %q, want lit", s.DefaultShader())
	}

	s.UseMaterial("brick")
	s.BatchModel("cube", "", nil)
	s.ClearMaterial()
	s.BatchModel("cube", "", nil)
	s.UseMaterial("brick")
	s.Reset()
	if s.Material() != "" {
		t.Errorf("Material() after Reset = %q, want empty", s.Material())
	}
}

func TestMaterialContextKeys(t *testing.T) {
	s := NewScene("test", WithDefaultShader("lit"))
	s.UseMaterial("brick")
	s.BatchModel("cube", "", nil)
	s.ClearMaterial()
	s.BatchModel("cube", "", nil)

	want := []renderer.BatchKey{
		{Mesh: "cube", Shader: "lit", Material: "brick"},
		{Mesh: "cube", Shader: "lit", Material: "lit"},
	}
	batches := s.Batches()
	if len(batches) != len(want) {
		t.Fatalf("len(Batches()) = %d, want %d", len(batches), len(want))
	}
	for i, b := range batches {
		if b.Key != want[i] {
			t.Errorf("Batches()[%d].Key = %s, want %s", i, b.Key, want[i])
		}
	}
}

func TestResetClearsFrame(t *testing.T) {
	s := NewScene("test")
	s.BatchModel("cube", "", nil)
	s.PointLight(mgl32.Vec3{0, 5, 0}, 3)
	previous := s.Batches()

	s.Reset()
	if len(s.Batches()) != 0 || len(s.Lights()) != 0 || s.InstanceCount() != 0 {
		t.Errorf("after Reset: %d batches, %d lights, %d instances, want none", len(s.Batches()), len(s.Lights()), s.InstanceCount())
	}
	if len(previous) != 1 || len(previous[0].Instances) != 1 {
		t.Errorf("Reset modified the previous frame's batches: %v", previous)
	}

	s.BatchModel("cube", "", nil)
	if len(s.Batches()) != 1 || len(s.Batches()[0].Instances) != 1 {
		t.Errorf("Batches() after Reset and one call = %v, want one batch of one instance", s.Batches())
	}
}

func TestLightsAcrossFrames(t *testing.T) {
	agg := light.NewAggregator()
	s := NewScene("test", WithAggregator(agg))

	s.PointLight(mgl32.Vec3{0, 5, 0}, 3)
	frame := s.Frame(camera.GPUGlobals{})
	if len(frame.Lights) != 1 || frame.Lights[0].Position != [3]float32{0, 5, 0} || frame.Lights[0].Radius != 3 {
		t.Fatalf("frame 1 lights = %v, want one light at (0, 5, 0) radius 3", frame.Lights)
	}
	if agg.Count() != 1 {
		t.Errorf("aggregator Count() = %d, want 1", agg.Count())
	}

	s.Reset()
	if frame := s.Frame(camera.GPUGlobals{}); len(frame.Lights) != 0 {
		t.Errorf("frame 2 lights = %v, want none", frame.Lights)
	}
}

func TestFrameCarriesGlobals(t *testing.T) {
	cam := camera.NewCamera()
	s := NewScene("test", WithCamera(cam))
	if s.Camera() != cam {
		t.Fatalf("Camera() did not return the configured camera")
	}

	globals := cam.Globals(16.0/9.0, 2.5)
	s.BatchModel("cube", "", nil)
	frame := s.Frame(globals)
	if frame.Globals != globals || len(frame.Batches) != 1 {
		t.Errorf("Frame() = %+v, want the given globals and one batch", frame)
	}

	s.SetCamera(nil)
	if s.Camera() != cam {
		t.Errorf("SetCamera(nil) replaced the camera")
	}
}
