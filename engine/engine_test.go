package engine

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
	"github.com/riwanou/wgpu-lua-fun/engine/resource"
	"github.com/riwanou/wgpu-lua-fun/engine/script"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// testEntity forwards its lifecycle calls to optional functions.
type testEntity struct {
	tr     *transform.Transform
	init   func(ctx *script.Context) error
	update func(ctx *script.Context, dt, elapsed float32) error
	render func(ctx *script.Context) error
}

func newTestEntity(pos mgl32.Vec3) *testEntity {
	return &testEntity{tr: transform.New(pos)}
}

func (e *testEntity) Init(ctx *script.Context) error {
	if e.init == nil {
		return nil
	}
	return e.init(ctx)
}

func (e *testEntity) Update(ctx *script.Context, dt, elapsed float32) error {
	if e.update == nil {
		return nil
	}
	return e.update(ctx, dt, elapsed)
}

func (e *testEntity) Render(ctx *script.Context) error {
	if e.render == nil {
		return nil
	}
	return e.render(ctx)
}

func (e *testEntity) Transform() *transform.Transform { return e.tr }

// dragonMeshes serves "dragon" as a cube on top of the built-in meshes.
func dragonMeshes() resource.MeshSource {
	return resource.ChainMeshes(
		resource.BuiltinMeshes(),
		resource.MeshSourceFunc(func(id string) (common.MeshStagingData, error) {
			if id != "dragon" {
				return common.MeshStagingData{}, resource.ErrResourceNotFound
			}
			return model.Cube().StagingData(), nil
		}),
	)
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (Engine, renderer.HeadlessBackend) {
	t.Helper()
	backend := renderer.NewHeadlessBackend()
	pipelines := append(DefaultPipelines(),
		pipeline.NewBuiltinPipeline("player", pipeline.VariantAnimated),
		pipeline.NewBuiltinPipeline("nebula", pipeline.VariantUnlit),
	)
	r := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithBackend(backend),
		renderer.WithPipelines(pipelines...),
	)
	reg := resource.NewRegistry(r, resource.WithMeshSource(dragonMeshes()))
	e := NewEngine(append([]EngineBuilderOption{WithRenderer(r), WithRegistry(reg)}, options...)...)
	t.Cleanup(e.Release)
	return e, backend
}

func TestDragonDrawnOncePerShader(t *testing.T) {
	player := newTestEntity(mgl32.Vec3{0, 0, -5})
	player.init = func(ctx *script.Context) error {
		if _, err := ctx.Graphics.LoadMesh("dragon"); err != nil {
			return err
		}
		_, err := ctx.Graphics.AddMaterial("player", resource.MaterialParams{})
		return err
	}
	player.render = func(ctx *script.Context) error {
		ctx.Scene.BatchModel("dragon", "player", player.Transform())
		return nil
	}

	nebula := newTestEntity(mgl32.Vec3{3, 0, -5})
	nebula.init = func(ctx *script.Context) error {
		_, err := ctx.Graphics.LoadMesh("dragon")
		return err
	}
	nebula.render = func(ctx *script.Context) error {
		ctx.Scene.BatchModel("dragon", "nebula", nebula.Transform())
		return nil
	}

	e, backend := newTestEngine(t, WithEntity("player", player), WithEntity("nebula", nebula))
	if err := e.Frame(1.0 / 60); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("len(Draws()) = %d, want 2", len(draws))
	}
	for i, want := range []string{"player", "nebula"} {
		d := draws[i]
		if d.Mesh != "dragon" || d.Pipeline != want || d.InstanceCount != 1 {
			t.Errorf("draw %d = %+v, want mesh dragon, pipeline %s, 1 instance", i, d, want)
		}
	}
	if n := backend.Uploads("dragon"); n != 1 {
		t.Errorf("Uploads(dragon) = %d, want 1", n)
	}
}

func TestBatchKeysIndependentOfEntityOrder(t *testing.T) {
	newRed := func() *testEntity {
		e := newTestEntity(mgl32.Vec3{1, 0, 0})
		e.init = func(ctx *script.Context) error {
			if _, err := ctx.Graphics.LoadMesh("cube"); err != nil {
				return err
			}
			_, err := ctx.Graphics.AddMaterial("unlit", resource.MaterialParams{Key: "red"})
			return err
		}
		e.render = func(ctx *script.Context) error {
			ctx.Scene.UseMaterial("red")
			ctx.Scene.BatchModel("cube", "unlit", e.Transform())
			return nil
		}
		return e
	}
	newPlain := func() *testEntity {
		e := newTestEntity(mgl32.Vec3{-1, 0, 0})
		e.init = func(ctx *script.Context) error {
			if _, err := ctx.Graphics.LoadMesh("cube"); err != nil {
				return err
			}
			_, err := ctx.Graphics.AddMaterial("unlit", resource.MaterialParams{})
			return err
		}
		e.render = func(ctx *script.Context) error {
			ctx.Scene.BatchModel("cube", "unlit", e.Transform())
			return nil
		}
		return e
	}

	keys := func(t *testing.T, options ...EngineBuilderOption) []string {
		t.Helper()
		e, backend := newTestEngine(t, options...)
		if err := e.Frame(1.0 / 60); err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		var out []string
		for _, b := range e.Scene().Batches() {
			if len(b.Instances) != 1 {
				t.Errorf("batch %v has %d instances, want 1", b.Key, len(b.Instances))
			}
			out = append(out, b.Key.String())
		}
		if len(backend.Draws()) != 2 {
			t.Errorf("len(Draws()) = %d, want 2", len(backend.Draws()))
		}
		slices.Sort(out)
		return out
	}

	forward := keys(t, WithEntity("red", newRed()), WithEntity("plain", newPlain()))
	reverse := keys(t, WithEntity("plain", newPlain()), WithEntity("red", newRed()))
	if len(forward) != 2 || !slices.Equal(forward, reverse) {
		t.Errorf("batch keys = %v registered red first, %v registered plain first, want the same two keys", forward, reverse)
	}
}

func lightHeader(t *testing.T, backend renderer.HeadlessBackend) uint32 {
	t.Helper()
	var last *renderer.WriteRecord
	for _, w := range backend.Writes() {
		if len(w.Label) >= 6 && w.Label[:6] == "lights" {
			w := w
			last = &w
		}
	}
	if last == nil {
		t.Fatalf("no light buffer write recorded")
	}
	return binary.LittleEndian.Uint32(last.Data[:4])
}

func TestLightCountDropsToZero(t *testing.T) {
	lamp := newTestEntity(mgl32.Vec3{})
	lamp.render = func(ctx *script.Context) error {
		if ctx.State.Bool("done") {
			return nil
		}
		ctx.State["done"] = true
		ctx.Scene.PointLight(mgl32.Vec3{0, 5, 0}, 3)
		return nil
	}

	e, backend := newTestEngine(t, WithEntity("lamp", lamp))
	if err := e.Frame(1.0 / 60); err != nil {
		t.Fatalf("frame 1 error = %v", err)
	}
	if got := lightHeader(t, backend); got != 1 {
		t.Errorf("frame 1 light header = %d, want 1", got)
	}
	if got := e.Renderer().Stats().LightCount; got != 1 {
		t.Errorf("frame 1 LightCount = %d, want 1", got)
	}

	backend.ClearRecords()
	if err := e.Frame(1.0 / 60); err != nil {
		t.Fatalf("frame 2 error = %v", err)
	}
	if got := lightHeader(t, backend); got != 0 {
		t.Errorf("frame 2 light header = %d, want 0", got)
	}
	if got := e.Renderer().Stats().LightCount; got != 0 {
		t.Errorf("frame 2 LightCount = %d, want 0", got)
	}
}

func TestGlobalsWrittenEachFrame(t *testing.T) {
	e, backend := newTestEngine(t)
	e.Frame(0.25)
	e.Frame(0.25)

	var last renderer.WriteRecord
	count := 0
	for _, w := range backend.Writes() {
		if len(w.Label) >= 7 && w.Label[:7] == "globals" {
			last = w
			count++
		}
	}
	if count != 2 {
		t.Fatalf("globals writes = %d, want 2", count)
	}
	if len(last.Data) != 144 {
		t.Fatalf("globals write size = %d, want 144", len(last.Data))
	}
	elapsed := math.Float32frombits(binary.LittleEndian.Uint32(last.Data[128:132]))
	if elapsed != 0.5 {
		t.Errorf("elapsed in globals = %v, want 0.5", elapsed)
	}
}

func TestScriptErrorDoesNotFailFrame(t *testing.T) {
	broken := newTestEntity(mgl32.Vec3{})
	broken.update = func(*script.Context, float32, float32) error { return errors.New("boom") }
	healthy := newTestEntity(mgl32.Vec3{})
	healthy.init = func(ctx *script.Context) error {
		_, err := ctx.Graphics.LoadMesh("cube")
		return err
	}
	healthy.render = func(ctx *script.Context) error {
		ctx.Scene.BatchModel("cube", "", healthy.Transform())
		return nil
	}

	e, backend := newTestEngine(t, WithEntity("broken", broken), WithEntity("healthy", healthy))
	if err := e.Frame(1.0 / 60); err != nil {
		t.Fatalf("Frame() error = %v, want script errors to be isolated", err)
	}
	if draws := backend.Draws(); len(draws) != 1 || draws[0].Mesh != "cube" {
		t.Errorf("Draws() = %+v, want the healthy entity's cube", draws)
	}
}

func TestUnknownMeshDropsBatchOnly(t *testing.T) {
	ghost := newTestEntity(mgl32.Vec3{})
	ghost.render = func(ctx *script.Context) error {
		ctx.Scene.BatchModel("ghost", "", ghost.Transform())
		return nil
	}
	e, backend := newTestEngine(t, WithEntity("ghost", ghost))
	if err := e.Frame(1.0 / 60); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if len(backend.Draws()) != 0 || e.Renderer().Stats().DroppedBatches != 1 {
		t.Errorf("draws = %d, dropped = %d, want 0 and 1", len(backend.Draws()), e.Renderer().Stats().DroppedBatches)
	}
}

func TestDuplicateEntityFailsRun(t *testing.T) {
	e, _ := newTestEngine(t,
		WithEntity("twin", newTestEntity(mgl32.Vec3{})),
		WithEntity("twin", newTestEntity(mgl32.Vec3{})),
	)
	if err := e.Run(); !errors.Is(err, script.ErrEntityExists) {
		t.Errorf("Run() error = %v, want ErrEntityExists", err)
	}
	if err := e.Frame(0.1); !errors.Is(err, script.ErrEntityExists) {
		t.Errorf("Frame() error = %v, want ErrEntityExists", err)
	}
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	var frames int
	var lastElapsed float32
	var e Engine

	counter := newTestEntity(mgl32.Vec3{})
	counter.update = func(ctx *script.Context, dt, elapsed float32) error {
		frames++
		lastElapsed = elapsed
		if frames == 5 {
			e.Quit()
		}
		return nil
	}

	e, backend := newTestEngine(t, WithEntity("counter", counter), WithFixedDelta(0.5))
	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if frames != 5 || lastElapsed != 2.5 {
		t.Errorf("frames = %d, elapsed = %v, want 5 and 2.5", frames, lastElapsed)
	}
	if backend.Presented() != 5 {
		t.Errorf("Presented() = %d, want 5", backend.Presented())
	}
}

func TestRunStopsOnFlushError(t *testing.T) {
	e, backend := newTestEngine(t, WithFixedDelta(0.1))
	backend.FailNextFrames(1)
	if err := e.Run(); err == nil {
		t.Errorf("Run() error = nil, want the begin frame failure")
	}
}

func TestHeadlessCursor(t *testing.T) {
	grabber := newTestEntity(mgl32.Vec3{})
	var grabbed bool
	grabber.update = func(ctx *script.Context, dt, elapsed float32) error {
		ctx.Window.GrabCursor()
		grabbed = ctx.Window.CursorGrabbed()
		return nil
	}
	e, _ := newTestEngine(t, WithEntity("grabber", grabber))
	e.Frame(0.1)
	if !grabbed {
		t.Errorf("CursorGrabbed() after GrabCursor = false, want true")
	}
}
