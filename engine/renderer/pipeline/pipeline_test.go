package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/shader"
)

// withSource builds a pipeline of the given variant around arbitrary WGSL source.
func withSource(t *testing.T, variant Variant, source string) Pipeline {
	t.Helper()
	vs, err := shader.ParseShader("test_vs", shader.ShaderTypeVertex, source)
	if err != nil {
		t.Fatalf("ParseShader(vertex) error = %v", err)
	}
	fs, err := shader.ParseShader("test_fs", shader.ShaderTypeFragment, source)
	if err != nil {
		t.Fatalf("ParseShader(fragment) error = %v", err)
	}
	return NewPipeline("test", WithVariant(variant), WithShaders(vs, fs))
}

func TestBuiltinPipelinesValidate(t *testing.T) {
	tests := []struct {
		variant     Variant
		wantGroups  int
		wantUniform uint64
	}{
		{VariantUnlit, 1, 0},
		{VariantAnimated, 3, 16},
		{VariantLitNormal, 2, 0},
		{VariantTexturedLit, 3, 16},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			p := NewBuiltinPipeline(tt.variant.String(), tt.variant)
			if err := p.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got := len(p.BindGroupLayouts()); got != tt.wantGroups {
				t.Errorf("len(BindGroupLayouts()) = %d, want %d", got, tt.wantGroups)
			}
			if got := p.MaterialUniformSize(); got != tt.wantUniform {
				t.Errorf("MaterialUniformSize() = %d, want %d", got, tt.wantUniform)
			}
		})
	}
}

func TestBindGroupLayoutsFillGaps(t *testing.T) {
	p := NewBuiltinPipeline("animated", VariantAnimated)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	layouts := p.BindGroupLayouts()
	if len(layouts[GroupLights].Entries) != 0 {
		t.Errorf("group %d entries = %d, want an empty placeholder", GroupLights, len(layouts[GroupLights].Entries))
	}
	if _, ok := p.BindGroupLayout(GroupLights); ok {
		t.Errorf("BindGroupLayout(%d) reported a declared group", GroupLights)
	}
}

func TestMergedLayoutVisibleToBothStages(t *testing.T) {
	p := NewBuiltinPipeline("lit", VariantTexturedLit)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	for g, desc := range p.BindGroupLayouts() {
		for _, e := range desc.Entries {
			if e.Visibility != want {
				t.Errorf("group %d binding %d visibility = %v, want %v", g, e.Binding, e.Visibility, want)
			}
		}
	}
}

func TestValidateRejectsMismatchedVariant(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		source  Variant
	}{
		{"unlit declaring lights", VariantUnlit, VariantLitNormal},
		{"lit missing lights", VariantLitNormal, VariantUnlit},
		{"animated missing material", VariantAnimated, VariantUnlit},
		{"textured missing texture", VariantTexturedLit, VariantAnimated},
		{"animated with extra lights", VariantAnimated, VariantTexturedLit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := withSource(t, tt.variant, tt.source.Source())
			if err := p.Validate(); !errors.Is(err, ErrBindingLayoutMismatch) {
				t.Errorf("Validate() error = %v, want ErrBindingLayoutMismatch", err)
			}
			if p.BindGroupLayouts() != nil {
				t.Errorf("BindGroupLayouts() non-nil after failed validation")
			}
		})
	}
}

func TestValidateRejectsWrongGlobalsSize(t *testing.T) {
	const source = `
//@engine:include vertex
//@engine:include instance
@group(0) @binding(0) var<uniform> globals: vec4<f32>;

@vertex
fn vs_main(vertex: VertexInput, instance: InstanceInput) -> @builtin(position) vec4<f32> {
    return globals + vec4<f32>(vertex.position, 1.0) + instance.model_0;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`
	p := withSource(t, VariantUnlit, source)
	if err := p.Validate(); !errors.Is(err, ErrBindingLayoutMismatch) {
		t.Errorf("Validate() error = %v, want ErrBindingLayoutMismatch", err)
	}
}

func TestValidateRejectsMissingInstanceInput(t *testing.T) {
	const source = `
//@engine:include globals
//@engine:include vertex
//@engine:group 0 0 storage_uniform globals globals

@vertex
fn vs_main(vertex: VertexInput) -> @builtin(position) vec4<f32> {
    return globals.clip_view * vec4<f32>(vertex.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`
	p := withSource(t, VariantUnlit, source)
	if err := p.Validate(); !errors.Is(err, ErrBindingLayoutMismatch) {
		t.Errorf("Validate() error = %v, want ErrBindingLayoutMismatch", err)
	}
}

func TestValidateRequiresShaders(t *testing.T) {
	p := NewPipeline("empty")
	if err := p.Validate(); !errors.Is(err, ErrBindingLayoutMismatch) {
		t.Errorf("Validate() error = %v, want ErrBindingLayoutMismatch", err)
	}
}

func TestVertexLayoutSlots(t *testing.T) {
	p := NewBuiltinPipeline("unlit", VariantUnlit)
	layouts := p.VertexLayouts()
	if len(layouts) != 2 {
		t.Fatalf("len(VertexLayouts()) = %d, want 2", len(layouts))
	}
	if layouts[0].StepMode != wgpu.VertexStepModeVertex || layouts[0].ArrayStride != 32 {
		t.Errorf("slot 0 = (step %v, stride %d), want (vertex, 32)", layouts[0].StepMode, layouts[0].ArrayStride)
	}
	if layouts[1].StepMode != wgpu.VertexStepModeInstance || layouts[1].ArrayStride != 100 {
		t.Errorf("slot 1 = (step %v, stride %d), want (instance, 100)", layouts[1].StepMode, layouts[1].ArrayStride)
	}
	if got := layouts[1].Attributes[0].ShaderLocation; got != 3 {
		t.Errorf("first instance location = %d, want 3", got)
	}
}

func TestParseVariant(t *testing.T) {
	for v, name := range variantNames {
		got, err := ParseVariant(name)
		if err != nil || got != v {
			t.Errorf("ParseVariant(%q) = %v, %v, want %v, nil", name, got, err, v)
		}
	}
	if _, err := ParseVariant("toon"); err == nil {
		t.Errorf("ParseVariant(%q) error = nil, want error", "toon")
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("defaults")
	if p.Variant() != VariantUnlit {
		t.Errorf("Variant() = %v, want %v", p.Variant(), VariantUnlit)
	}
	st := p.State()
	if !st.DepthTest || !st.DepthWrite {
		t.Errorf("depth test/write = %v/%v, want true/true", st.DepthTest, st.DepthWrite)
	}
	if st.CullMode != wgpu.CullModeBack || st.Blend != nil {
		t.Errorf("State() = %+v, want back-face culled and opaque", st)
	}

	overlay := NewPipeline("overlay", WithDepth(false, false), WithBlend(AlphaBlending),
		WithRaster(wgpu.PrimitiveTopologyLineList, wgpu.FrontFaceCW, wgpu.CullModeNone))
	st = overlay.State()
	if st.DepthTest || st.Blend != AlphaBlending || st.Topology != wgpu.PrimitiveTopologyLineList || st.CullMode != wgpu.CullModeNone {
		t.Errorf("overlay State() = %+v", st)
	}
}

func TestSharedLayoutsMatchValidatedGroups(t *testing.T) {
	p := NewBuiltinPipeline("textured", VariantTexturedLit)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name  string
		group int
		want  []wgpu.BindGroupLayoutEntry
	}{
		{"globals", GroupGlobals, GlobalsLayout().Entries},
		{"lights", GroupLights, LightsLayout().Entries},
	}
	for _, tt := range tests {
		got, ok := p.BindGroupLayout(tt.group)
		if !ok {
			t.Fatalf("BindGroupLayout(%d) missing", tt.group)
		}
		if !reflect.DeepEqual(got.Entries, tt.want) {
			t.Errorf("%s entries = %+v, want %+v", tt.name, got.Entries, tt.want)
		}
	}
	if n := len(EmptyLayout().Entries); n != 0 {
		t.Errorf("EmptyLayout() has %d entries, want 0", n)
	}
}
