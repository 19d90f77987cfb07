package script

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/riwanou/wgpu-lua-fun/engine/scene"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// recorder records its lifecycle calls into a shared journal and fails on demand.
type recorder struct {
	name    string
	journal *[]string
	tr      *transform.Transform

	failInit, failUpdate int
	panicRender          bool
}

func newRecorder(name string, journal *[]string) *recorder {
	return &recorder{name: name, journal: journal, tr: transform.New(mgl32.Vec3{})}
}

func (p *recorder) Init(ctx *Context) error {
	*p.journal = append(*p.journal, p.name+".init")
	if p.failInit > 0 {
		p.failInit--
		return errors.New("init failed")
	}
	ctx.State["inits"] = ctx.State.Int("inits", 0) + 1
	return nil
}

func (p *recorder) Update(ctx *Context, dt, elapsed float32) error {
	*p.journal = append(*p.journal, p.name+".update")
	if p.failUpdate > 0 {
		p.failUpdate--
		return fmt.Errorf("update failed at %v", elapsed)
	}
	ctx.State["t"] = ctx.State.Float("t", 0) + dt
	return nil
}

func (p *recorder) Render(ctx *Context) error {
	*p.journal = append(*p.journal, p.name+".render")
	if p.panicRender {
		panic("render exploded")
	}
	if ctx.Scene != nil {
		ctx.Scene.BatchModel("cube", "", p.tr)
	}
	return nil
}

func (p *recorder) Transform() *transform.Transform { return p.tr }

func TestRegisterGeneratesUUID(t *testing.T) {
	b := NewBridge()
	var journal []string

	id, err := b.Register("", newRecorder("a", &journal))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated id %q is not a uuid: %v", id, err)
	}
	if state, ok := b.State(id); !ok || state != StateUninitialized {
		t.Errorf("State(%s) = %v, %v, want uninitialized, true", id, state, ok)
	}

	if _, err := b.Register(id, newRecorder("b", &journal)); !errors.Is(err, ErrEntityExists) {
		t.Errorf("Register(duplicate) error = %v, want ErrEntityExists", err)
	}
	if _, err := b.Register("x", nil); err == nil {
		t.Errorf("Register(nil entity) error = nil, want an error")
	}
}

func TestFramePassOrder(t *testing.T) {
	b := NewBridge()
	var journal []string
	b.Register("a", newRecorder("a", &journal))
	b.Register("b", newRecorder("b", &journal))

	if err := b.Frame(&Context{}, 0.016, 0.016); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	want := []string{"a.init", "b.init", "a.update", "b.update", "a.render", "b.render"}
	if !slices.Equal(journal, want) {
		t.Errorf("frame 1 calls = %v, want %v", journal, want)
	}

	journal = journal[:0]
	b.Frame(&Context{}, 0.016, 0.032)
	want = []string{"a.update", "b.update", "a.render", "b.render"}
	if !slices.Equal(journal, want) {
		t.Errorf("frame 2 calls = %v, want %v", journal, want)
	}
	if state, _ := b.State("a"); state != StateActive {
		t.Errorf("State(a) = %v, want active", state)
	}
}

func TestFailedInitRetried(t *testing.T) {
	b := NewBridge()
	var journal []string
	p := newRecorder("a", &journal)
	p.failInit = 1
	b.Register("a", p)

	err := b.Frame(&Context{}, 0.016, 0.016)
	var serr *ScriptError
	if !errors.As(err, &serr) || serr.EntityID != "a" || serr.Phase != PhaseInit || !errors.Is(err, ErrScript) {
		t.Fatalf("Frame() error = %v, want a ScriptError for a's init", err)
	}
	if !slices.Equal(journal, []string{"a.init"}) {
		t.Errorf("frame 1 calls = %v, want only a.init", journal)
	}
	if state, _ := b.State("a"); state != StateUninitialized {
		t.Errorf("State(a) after failed init = %v, want uninitialized", state)
	}

	journal = journal[:0]
	if err := b.Frame(&Context{}, 0.016, 0.032); err != nil {
		t.Fatalf("frame 2 error = %v", err)
	}
	if !slices.Equal(journal, []string{"a.init", "a.update", "a.render"}) {
		t.Errorf("frame 2 calls = %v, want init retried then update and render", journal)
	}
}

func TestFailureIsolatesEntity(t *testing.T) {
	b := NewBridge()
	var journal []string
	bad := newRecorder("bad", &journal)
	b.Register("bad", bad)
	b.Register("good", newRecorder("good", &journal))
	s := scene.NewScene("test")

	b.Frame(&Context{Scene: s}, 0.016, 0.016)
	journal = journal[:0]
	s.Reset()
	bad.failUpdate = 1

	err := b.Frame(&Context{Scene: s}, 0.016, 0.032)
	if !errors.Is(err, ErrScript) {
		t.Fatalf("Frame() error = %v, want ErrScript", err)
	}
	want := []string{"bad.update", "good.update", "good.render"}
	if !slices.Equal(journal, want) {
		t.Errorf("calls = %v, want %v", journal, want)
	}
	if got := s.InstanceCount(); got != 1 {
		t.Errorf("InstanceCount() = %d, want 1 from the healthy entity", got)
	}
	if state, _ := b.State("bad"); state != StateActive {
		t.Errorf("State(bad) = %v, want active", state)
	}
}

func TestPanicRecovered(t *testing.T) {
	b := NewBridge()
	var journal []string
	p := newRecorder("a", &journal)
	p.panicRender = true
	b.Register("a", p)

	err := b.Frame(&Context{}, 0.016, 0.016)
	var serr *ScriptError
	if !errors.As(err, &serr) {
		t.Fatalf("Frame() error = %v, want a ScriptError", err)
	}
	if !serr.Panicked || serr.Phase != PhaseRender || serr.Err.Error() != "render exploded" {
		t.Errorf("ScriptError = %+v, want a render panic carrying the panic value", serr)
	}
}

func TestErrorLoggedOnceUntilReplaced(t *testing.T) {
	b := NewBridge().(*bridge)
	var journal []string
	p := newRecorder("a", &journal)
	p.failUpdate = 3
	b.Register("a", p)

	b.Frame(&Context{}, 0.016, 0.016)
	if !b.records["a"].logged {
		t.Fatalf("first failure not marked as logged")
	}
	b.Frame(&Context{}, 0.016, 0.032)
	if !b.records["a"].logged {
		t.Errorf("logged flag cleared without a replace")
	}

	if err := b.Replace("a", p); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if b.records["a"].logged {
		t.Errorf("Replace() kept the logged flag")
	}
}

func TestReplaceKeepsState(t *testing.T) {
	b := NewBridge()
	var journal []string
	b.Register("a", newRecorder("a", &journal))
	b.Frame(&Context{}, 0.5, 0.5)

	before := b.Store("a").Float("t", 0)
	if err := b.Replace("a", newRecorder("a2", &journal)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	journal = journal[:0]
	b.Frame(&Context{}, 0.5, 1)

	if !slices.Equal(journal, []string{"a2.update", "a2.render"}) {
		t.Errorf("calls after Replace = %v, want the new implementation without a second init", journal)
	}
	store := b.Store("a")
	if before != 0.5 || store.Float("t", 0) != 1 || store.Int("inits", 0) != 1 {
		t.Errorf("store after Replace = %v, want t=1 and one init", store)
	}

	if err := b.Replace("ghost", newRecorder("g", &journal)); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Replace(ghost) error = %v, want ErrEntityNotFound", err)
	}
}

func TestRemoveTearsDown(t *testing.T) {
	b := NewBridge()
	var journal []string
	b.Register("a", newRecorder("a", &journal))
	b.Register("b", newRecorder("b", &journal))
	b.Frame(&Context{}, 0.016, 0.016)

	if err := b.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if state, ok := b.State("a"); !ok || state != StateTornDown {
		t.Errorf("State(a) = %v, %v, want torn down, true", state, ok)
	}
	if b.Store("a") != nil || b.Transform("a") != nil {
		t.Errorf("removed entity still exposes its store or transform")
	}
	if got := b.Entities(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Entities() = %v, want [b]", got)
	}

	journal = journal[:0]
	b.Frame(&Context{}, 0.016, 0.032)
	if !slices.Equal(journal, []string{"b.update", "b.render"}) {
		t.Errorf("calls after Remove = %v, want only b", journal)
	}

	if err := b.Remove("a"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("second Remove() error = %v, want ErrEntityNotFound", err)
	}
	if _, err := b.Register("a", newRecorder("a", &journal)); !errors.Is(err, ErrEntityExists) {
		t.Errorf("Register(removed id) error = %v, want ErrEntityExists", err)
	}
}

func TestContextIsPerEntity(t *testing.T) {
	b := NewBridge(WithIDGenerator(func() string { return "fixed" }))
	seen := map[string]string{}
	b.Register("", entityFunc(func(ctx *Context) { seen[ctx.ID] = fmt.Sprint(len(ctx.State)) }))
	b.Register("other", entityFunc(func(ctx *Context) { seen[ctx.ID] = "x" }))

	shared := &Context{}
	b.Frame(shared, 0.016, 0.016)
	if seen["fixed"] != "0" || seen["other"] != "x" {
		t.Errorf("seen = %v, want calls for fixed and other", seen)
	}
	if shared.ID != "" || shared.State != nil {
		t.Errorf("Frame() mutated the shared context: %+v", shared)
	}
}

func TestMaterialContextScopedToCall(t *testing.T) {
	red := entityFunc(func(ctx *Context) {
		ctx.Scene.UseMaterial("red")
		ctx.Scene.BatchModel("cube", "unlit", nil)
	})
	plain := entityFunc(func(ctx *Context) {
		ctx.Scene.BatchModel("cube", "unlit", nil)
	})

	tests := []struct {
		name  string
		order []Entity
	}{
		{"red first", []Entity{red, plain}},
		{"plain first", []Entity{plain, red}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := scene.NewScene("test")
			b := NewBridge()
			for i, e := range tt.order {
				b.Register(fmt.Sprint(i), e)
			}
			b.Frame(&Context{Scene: sc}, 0.016, 0.016)

			var materials []string
			for _, batch := range sc.Batches() {
				materials = append(materials, batch.Key.Material)
			}
			slices.Sort(materials)
			if want := []string{"red", "unlit"}; !slices.Equal(materials, want) {
				t.Errorf("batch materials = %v, want %v", materials, want)
			}
		})
	}
}

// entityFunc is an Entity whose Render calls the function; other calls do nothing.
type entityFunc func(ctx *Context)

func (f entityFunc) Init(*Context) error { return nil }
func (f entityFunc) Update(*Context, float32, float32) error { return nil }
func (f entityFunc) Render(ctx *Context) error { f(ctx); return nil }
func (f entityFunc) Transform() *transform.Transform { return nil }
