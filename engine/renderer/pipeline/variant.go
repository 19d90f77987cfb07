package pipeline

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
)

var (
	//go:embed assets/common_vertex.wgsl
	commonVertexSource string

	//go:embed assets/lighting.wgsl
	lightingSource string

	//go:embed assets/unlit.wgsl
	unlitSource string

	//go:embed assets/animated.wgsl
	animatedSource string

	//go:embed assets/lit_normal.wgsl
	litNormalSource string

	//go:embed assets/textured_lit.wgsl
	texturedLitSource string
)

// Variant is the closed set of binding shapes a pipeline can have. Each variant fixes exactly which
// bind groups and bindings its shaders declare, so the renderer knows what to bind per draw.
type Variant int

const (
	// VariantUnlit binds only the globals (group 0).
	VariantUnlit Variant = iota

	// VariantAnimated binds the globals and a material uniform (group 2, binding 0).
	VariantAnimated

	// VariantLitNormal binds the globals and the point lights (group 1).
	VariantLitNormal

	// VariantTexturedLit binds the globals, the point lights, and a full material group:
	// uniform, diffuse texture and sampler.
	VariantTexturedLit
)

var variantNames = map[Variant]string{
	VariantUnlit:       "unlit",
	VariantAnimated:    "animated",
	VariantLitNormal:   "lit_normal",
	VariantTexturedLit: "textured_lit",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant resolves a variant from its name, as printed by Variant.String.
//
// Parameters:
//   - name: the variant name, e.g. "lit_normal"
//
// Returns:
//   - Variant: the matching variant
//   - error: an error if the name is unknown
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown pipeline variant %q", name)
}

// Source returns the complete built-in WGSL program for the variant, containing both the vertex
// and fragment entry points.
//
// Returns:
//   - string: the WGSL source with @engine: annotations, empty for unknown variants
func (v Variant) Source() string {
	switch v {
	case VariantUnlit:
		return commonVertexSource + "\n" + unlitSource
	case VariantAnimated:
		return commonVertexSource + "\n" + animatedSource
	case VariantLitNormal:
		return commonVertexSource + "\n" + lightingSource + "\n" + litNormalSource
	case VariantTexturedLit:
		return commonVertexSource + "\n" + lightingSource + "\n" + texturedLitSource
	default:
		return ""
	}
}

// UsesLights reports whether the variant binds the point light buffer (group 1).
//
// Returns:
//   - bool: true for the lit variants
func (v Variant) UsesLights() bool {
	return v == VariantLitNormal || v == VariantTexturedLit
}

// UsesMaterial reports whether the variant binds a material group (group 2).
//
// Returns:
//   - bool: true for the variants with a material uniform
func (v Variant) UsesMaterial() bool {
	return v == VariantAnimated || v == VariantTexturedLit
}

// UsesTexture reports whether the variant's material group carries a texture and sampler.
//
// Returns:
//   - bool: true for VariantTexturedLit
func (v Variant) UsesTexture() bool {
	return v == VariantTexturedLit
}

type entryKind int

const (
	kindUniform entryKind = iota
	kindReadOnlyStorage
	kindTexture
	kindSampler
)

func (k entryKind) String() string {
	switch k {
	case kindUniform:
		return "uniform buffer"
	case kindReadOnlyStorage:
		return "read-only storage buffer"
	case kindTexture:
		return "2d float texture"
	case kindSampler:
		return "filtering sampler"
	default:
		return "unknown"
	}
}

// expectedEntry describes one binding a variant requires. minSize of 0 accepts any non-zero size.
type expectedEntry struct {
	binding uint32
	kind    entryKind
	minSize uint64
}

// contract returns the exact set of groups and bindings the variant requires.
func (v Variant) contract() map[int][]expectedEntry {
	globalsSize := uint64(new(camera.GPUGlobals).Size())
	c := map[int][]expectedEntry{
		GroupGlobals: {{binding: 0, kind: kindUniform, minSize: globalsSize}},
	}
	if v.UsesLights() {
		c[GroupLights] = []expectedEntry{
			{binding: 0, kind: kindReadOnlyStorage, minSize: light.LightBufferSize(light.LightBufferCapacity(0))},
		}
	}
	if v.UsesMaterial() {
		c[GroupMaterial] = []expectedEntry{{binding: BindingMaterialUniform, kind: kindUniform}}
	}
	if v.UsesTexture() {
		c[GroupMaterial] = append(c[GroupMaterial],
			expectedEntry{binding: BindingDiffuseTexture, kind: kindTexture},
			expectedEntry{binding: BindingDiffuseSampler, kind: kindSampler},
		)
	}
	return c
}

// checkLayouts compares merged bind group layouts against the variant's contract.
func (v Variant) checkLayouts(layouts map[int]wgpu.BindGroupLayoutDescriptor) error {
	if _, ok := variantNames[v]; !ok {
		return fmt.Errorf("unknown variant %d: %w", int(v), ErrBindingLayoutMismatch)
	}

	contract := v.contract()
	for g := range layouts {
		if _, ok := contract[g]; !ok {
			return fmt.Errorf("group %d is not part of the variant: %w", g, ErrBindingLayoutMismatch)
		}
	}

	for g, want := range contract {
		desc, ok := layouts[g]
		if !ok {
			return fmt.Errorf("group %d is missing: %w", g, ErrBindingLayoutMismatch)
		}
		if len(desc.Entries) != len(want) {
			return fmt.Errorf("group %d declares %d bindings, want %d: %w", g, len(desc.Entries), len(want), ErrBindingLayoutMismatch)
		}
		for i, w := range want {
			e := desc.Entries[i]
			if e.Binding != w.binding || !w.kind.matches(e) {
				return fmt.Errorf("group %d binding %d: want %s at binding %d: %w", g, e.Binding, w.kind, w.binding, ErrBindingLayoutMismatch)
			}
			if w.kind == kindUniform || w.kind == kindReadOnlyStorage {
				size := e.Buffer.MinBindingSize
				if size == 0 || (w.minSize != 0 && size != w.minSize) {
					return fmt.Errorf("group %d binding %d: size %d, want %d: %w", g, e.Binding, size, w.minSize, ErrBindingLayoutMismatch)
				}
			}
		}
	}
	return nil
}

func (k entryKind) matches(e wgpu.BindGroupLayoutEntry) bool {
	switch k {
	case kindUniform:
		return e.Buffer.Type == wgpu.BufferBindingTypeUniform
	case kindReadOnlyStorage:
		return e.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage
	case kindTexture:
		return e.Texture.SampleType == wgpu.TextureSampleTypeFloat &&
			e.Texture.ViewDimension == wgpu.TextureViewDimension2D &&
			!e.Texture.Multisampled
	case kindSampler:
		return e.Sampler.Type == wgpu.SamplerBindingTypeFiltering
	default:
		return false
	}
}

// checkVertexLayouts requires slot 0 to be the per-vertex layout and slot 1 the per-instance layout.
func checkVertexLayouts(layouts []wgpu.VertexBufferLayout) error {
	want := []struct {
		name       string
		stride     uint64
		stepMode   wgpu.VertexStepMode
		attributes int
	}{
		{"vertex", uint64(new(model.GPUVertex).Size()), wgpu.VertexStepModeVertex, 3},
		{"instance", uint64(new(model.GPUInstance).Size()), wgpu.VertexStepModeInstance, 7},
	}
	if len(layouts) != len(want) {
		return fmt.Errorf("vertex shader consumes %d vertex buffers, want %d: %w", len(layouts), len(want), ErrBindingLayoutMismatch)
	}
	for slot, w := range want {
		l := layouts[slot]
		if l.ArrayStride != w.stride || l.StepMode != w.stepMode || len(l.Attributes) != w.attributes {
			return fmt.Errorf("vertex buffer %d (%s): stride %d with %d attributes, want stride %d with %d: %w",
				slot, w.name, l.ArrayStride, len(l.Attributes), w.stride, w.attributes, ErrBindingLayoutMismatch)
		}
	}
	return nil
}
