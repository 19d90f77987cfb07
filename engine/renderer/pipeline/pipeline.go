package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/shader"
)

// Bind group indices shared by every built-in variant.
const (
	GroupGlobals  = 0
	GroupLights   = 1
	GroupMaterial = 2
)

// Binding indices inside the material group.
const (
	BindingMaterialUniform = 0
	BindingDiffuseTexture  = 1
	BindingDiffuseSampler  = 2
)

// ErrBindingLayoutMismatch is returned when a pipeline's declared bind groups, vertex layouts, or a
// material payload do not match the shape its Variant requires.
var ErrBindingLayoutMismatch = errors.New("binding layout mismatch")

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU render pipeline and the configuration needed to create it.
type pipeline struct {
	pipelineKey string
	variant     Variant

	// both shaders are required before the pipeline can be validated or registered
	vertexShader, fragmentShader shader.Shader

	renderPipeline *wgpu.RenderPipeline

	// layouts is the merged per-group layout, filled by Validate
	layouts map[int]wgpu.BindGroupLayoutDescriptor

	state RenderState
}

// Pipeline defines the interface for a render pipeline: a vertex and fragment shader pair, the
// Variant describing which bind groups it consumes, and the RenderState used to create the GPU
// pipeline.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Variant returns the binding shape this pipeline was declared with.
	//
	// Returns:
	//   - Variant: the pipeline variant
	Variant() Variant

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the underlying render pipeline, nil until the backend has created it.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline object
	Pipeline() *wgpu.RenderPipeline

	// Validate merges the vertex and fragment bind group layouts and checks them, together with the
	// vertex buffer layouts, against the pipeline's Variant. It must succeed before registration.
	//
	// Returns:
	//   - error: a wrapped ErrBindingLayoutMismatch describing the first mismatch, or nil
	Validate() error

	// BindGroupLayouts returns one descriptor per group index from 0 to the highest declared group.
	// Groups the shaders skip are returned as empty descriptors. Nil until Validate succeeds.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: the dense layout list, index = group
	BindGroupLayouts() []wgpu.BindGroupLayoutDescriptor

	// BindGroupLayout returns the merged layout for one group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group
	//   - bool: false if the shaders do not declare the group
	BindGroupLayout(group int) (wgpu.BindGroupLayoutDescriptor, bool)

	// VertexLayouts returns the vertex buffer layouts of the vertex shader, index = slot.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, or nil if no vertex shader is set
	VertexLayouts() []wgpu.VertexBufferLayout

	// MaterialUniformSize returns the size in bytes of the material uniform the shaders expect.
	//
	// Returns:
	//   - uint64: the expected payload size, 0 when the variant takes no material uniform
	MaterialUniformSize() uint64

	// State returns the fixed-function state the GPU pipeline is created with.
	//
	// Returns:
	//   - RenderState: the depth, raster and blend configuration
	State() RenderState

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. Shaders are supplied through
// WithShaders; the variant defaults to VariantUnlit and the state to opaque, depth tested,
// back-face culled triangles.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		variant:     VariantUnlit,
		state:       defaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewBuiltinPipeline creates a pipeline for one of the built-in variants, parsing the embedded
// WGSL program for both stages. Extra options are applied after the shaders are set.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline, used as the shader id by materials and batches
//   - variant: the built-in variant to create
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the new pipeline
func NewBuiltinPipeline(pipelineKey string, variant Variant, opts ...PipelineBuilderOption) Pipeline {
	source := variant.Source()
	base := []PipelineBuilderOption{
		WithVariant(variant),
		WithShaders(
			shader.NewShader(pipelineKey+"_vs", shader.ShaderTypeVertex, source),
			shader.NewShader(pipelineKey+"_fs", shader.ShaderTypeFragment, source),
		),
	}
	return NewPipeline(pipelineKey, append(base, opts...)...)
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Variant() Variant {
	return p.variant
}

func (p *pipeline) Pipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Validate() error {
	if p.vertexShader == nil || p.fragmentShader == nil {
		return fmt.Errorf("pipeline %s: vertex and fragment shaders are required: %w", p.pipelineKey, ErrBindingLayoutMismatch)
	}

	merged := mergeBindGroupLayouts(
		p.vertexShader.BindGroupLayoutDescriptors(),
		p.fragmentShader.BindGroupLayoutDescriptors(),
	)
	if err := p.variant.checkLayouts(merged); err != nil {
		return fmt.Errorf("pipeline %s (%s): %w", p.pipelineKey, p.variant, err)
	}
	if err := checkVertexLayouts(p.vertexShader.VertexLayouts()); err != nil {
		return fmt.Errorf("pipeline %s (%s): %w", p.pipelineKey, p.variant, err)
	}

	p.layouts = merged
	return nil
}

func (p *pipeline) BindGroupLayouts() []wgpu.BindGroupLayoutDescriptor {
	if p.layouts == nil {
		return nil
	}
	maxGroup := -1
	for g := range p.layouts {
		if g > maxGroup {
			maxGroup = g
		}
	}
	out := make([]wgpu.BindGroupLayoutDescriptor, maxGroup+1)
	for g := range out {
		if desc, ok := p.layouts[g]; ok {
			out[g] = desc
		} else {
			out[g] = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s_empty_%d", p.pipelineKey, g)}
		}
	}
	return out
}

func (p *pipeline) BindGroupLayout(group int) (wgpu.BindGroupLayoutDescriptor, bool) {
	desc, ok := p.layouts[group]
	return desc, ok
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	if p.vertexShader == nil {
		return nil
	}
	return p.vertexShader.VertexLayouts()
}

func (p *pipeline) MaterialUniformSize() uint64 {
	desc, ok := p.layouts[GroupMaterial]
	if !ok {
		return 0
	}
	for _, e := range desc.Entries {
		if e.Binding == BindingMaterialUniform && e.Buffer.Type == wgpu.BufferBindingTypeUniform {
			return e.Buffer.MinBindingSize
		}
	}
	return 0
}

func (p *pipeline) State() RenderState {
	return p.state
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

// mergeBindGroupLayouts combines the vertex and fragment stage layouts into one layout per group.
// Every entry ends up visible to both stages so that a group can be bound once per draw regardless
// of which stage reads it.
//
// Parameters:
//   - vertexLayouts: bind group layouts parsed from the vertex shader
//   - fragmentLayouts: bind group layouts parsed from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: merged layouts keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
		label := vertexLayouts[g].Label
		if label == "" {
			label = fragmentLayouts[g].Label
		}
		for _, e := range vertexLayouts[g].Entries {
			entryMap[e.Binding] = e
		}
		for _, e := range fragmentLayouts[g].Entries {
			if _, ok := entryMap[e.Binding]; !ok {
				entryMap[e.Binding] = e
			}
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			e.Visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})

		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   label,
			Entries: entries,
		}
	}

	return merged
}
